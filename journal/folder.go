package journal

import "sync"

// Folder is a mailbox folder with its own change journal.
//
// ModifyIndex and Journal may be pre-populated before the folder is
// registered; a zero ModifyIndex and nil Journal are valid starting points.
// Once registered, both are owned by the registry and must only be changed
// through Registry.AppendEntries.
type Folder struct {
	ID          string
	Owner       string
	ModifyIndex uint64
	Journal     []Entry

	mu sync.Mutex
}

// FolderStats is a point-in-time view of a folder's counters
type FolderStats struct {
	ID            string `json:"id"`
	Owner         string `json:"owner"`
	ModifyIndex   uint64 `json:"modify_index"`
	JournalLength int    `json:"journal_length"`
	HighestModseq uint64 `json:"highest_modseq"`
}

// NewFolder creates an empty folder
func NewFolder(id, owner string) *Folder {
	return &Folder{ID: id, Owner: owner}
}

// append stamps and appends entries in order. Nil entries and entries whose
// SetModseq panics are skipped without consuming a modseq. Returns the number
// appended, the last modseq stamped (0 if none) and the number rejected.
func (f *Folder) append(entries []Entry) (appended int, last uint64, rejected int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Journal == nil {
		f.Journal = make([]Entry, 0, len(entries))
	}

	for _, e := range entries {
		if e == nil {
			continue
		}
		next := f.ModifyIndex + 1
		if !stamp(e, next) {
			rejected++
			continue
		}
		f.ModifyIndex = next
		f.Journal = append(f.Journal, e)
		last = next
		appended++
	}
	return appended, last, rejected
}

// stamp sets modseq on e. A typed nil such as Record(nil) panics in
// SetModseq; that entry is reported as not stamped.
func stamp(e Entry, modseq uint64) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	e.SetModseq(modseq)
	return true
}

// since returns a copy of the journal suffix with modseq > threshold.
// The journal is sorted, so the scan walks back from the tail and stops at
// the first entry that is not newer than threshold.
func (f *Folder) since(threshold uint64) []Entry {
	f.mu.Lock()
	defer f.mu.Unlock()

	start := len(f.Journal)
	for start > 0 && f.Journal[start-1].Modseq() > threshold {
		start--
	}

	out := make([]Entry, len(f.Journal)-start)
	copy(out, f.Journal[start:])
	return out
}

// Stats returns the folder's current counters
func (f *Folder) Stats() FolderStats {
	f.mu.Lock()
	defer f.mu.Unlock()

	stats := FolderStats{
		ID:            f.ID,
		Owner:         f.Owner,
		ModifyIndex:   f.ModifyIndex,
		JournalLength: len(f.Journal),
	}
	if n := len(f.Journal); n > 0 {
		stats.HighestModseq = f.Journal[n-1].Modseq()
	}
	return stats
}

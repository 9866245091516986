package journal

import (
	"sort"

	"github.com/jizhuozhi/go-future"
	"github.com/maxpert/modjournal/telemetry"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog"
)

// Scheduler defers work to a later turn. *executor.Executor implements it.
type Scheduler interface {
	Schedule(task func()) bool
}

// Registry maps folder ids to folders and owns their journals
type Registry struct {
	folders *xsync.MapOf[string, *Folder]
	sched   Scheduler
	logger  zerolog.Logger
}

// NewRegistry creates a registry seeded with folders. Map keys are the
// authoritative folder ids; a folder with an empty ID takes its key.
// With a nil scheduler, append results resolve before AppendEntries returns.
func NewRegistry(folders map[string]*Folder, sched Scheduler, logger zerolog.Logger) *Registry {
	r := &Registry{
		folders: xsync.NewMapOf[string, *Folder](),
		sched:   sched,
		logger:  logger.With().Str("component", "journal").Logger(),
	}

	for id, f := range folders {
		if f == nil {
			f = &Folder{}
		}
		if f.ID == "" {
			f.ID = id
		}
		r.folders.Store(id, f)
	}

	telemetry.FoldersRegistered.Set(float64(r.Len()))
	return r
}

// Register adds a folder. Fails with ErrFolderExists if the id is taken.
func (r *Registry) Register(f *Folder) error {
	if _, loaded := r.folders.LoadOrStore(f.ID, f); loaded {
		return ErrFolderExists
	}

	r.logger.Debug().Str("folder", f.ID).Str("owner", f.Owner).Msg("Folder registered")
	telemetry.FoldersRegistered.Inc()
	return nil
}

// Remove drops a folder and its journal. Returns false if it was not registered.
func (r *Registry) Remove(id string) bool {
	if _, ok := r.folders.LoadAndDelete(id); !ok {
		return false
	}

	telemetry.FoldersRegistered.Dec()
	return true
}

// Lookup returns the folder registered under id
func (r *Registry) Lookup(id string) (*Folder, bool) {
	return r.folders.Load(id)
}

// Len returns the number of registered folders
func (r *Registry) Len() int {
	return r.folders.Size()
}

// List returns registered folder ids in sorted order
func (r *Registry) List() []string {
	ids := make([]string, 0, r.folders.Size())
	r.folders.Range(func(id string, _ *Folder) bool {
		ids = append(ids, id)
		return true
	})
	sort.Strings(ids)
	return ids
}

// Stats returns counters for one folder
func (r *Registry) Stats(id string) (FolderStats, bool) {
	f, ok := r.folders.Load(id)
	if !ok {
		return FolderStats{}, false
	}
	return f.Stats(), true
}

// TotalEntries sums journal lengths across all folders
func (r *Registry) TotalEntries() int {
	total := 0
	r.folders.Range(func(_ string, f *Folder) bool {
		total += f.Stats().JournalLength
		return true
	})
	return total
}

// Append stamps entries with consecutive modseqs and appends them to the
// folder's journal, in order, before returning. last is the modseq stamped on
// the final appended entry and is 0 when nothing was written; err is a
// FolderNotFoundError for an unknown folder.
func (r *Registry) Append(folderID string, entries ...Entry) (last uint64, err error) {
	f, ok := r.folders.Load(folderID)
	if !ok {
		telemetry.AppendsTotal.With("not_found").Inc()
		return 0, FolderNotFoundError{FolderID: folderID}
	}

	appended, rejected := 0, 0
	if len(entries) > 0 {
		appended, last, rejected = f.append(entries)
	}

	if rejected > 0 {
		r.logger.Warn().
			Str("folder", folderID).
			Int("rejected", rejected).
			Msg("Skipped entries that could not be stamped")
	}

	if appended == 0 {
		telemetry.AppendsTotal.With("noop").Inc()
		return 0, nil
	}

	telemetry.AppendsTotal.With("written").Inc()
	telemetry.EntriesAppendedTotal.Add(float64(appended))
	return last, nil
}

// AppendEntries is Append with a deferred result. The journal is updated
// before this call returns; the future resolves on the scheduler's next turn:
//
//   - (true, nil) when at least one entry was written
//   - (false, nil) for an empty batch (nothing to publish)
//   - (false, FolderNotFoundError) when folderID is not registered
func (r *Registry) AppendEntries(folderID string, entries ...Entry) *future.Future[bool] {
	p := future.NewPromise[bool]()
	last, err := r.Append(folderID, entries...)
	r.Defer(func() { p.Set(last > 0, err) })
	return p.Future()
}

// GetUpdates returns entries of folderID with modseq strictly greater than
// since, in ascending modseq order. ok is false when the folder does not
// exist; an existing folder with nothing newer yields an empty slice.
// The owner is only used for tracing.
func (r *Registry) GetUpdates(owner, folderID string, since uint64) (entries []Entry, ok bool) {
	f, ok := r.folders.Load(folderID)
	if !ok {
		telemetry.UpdatesNonexistentTotal.Inc()
		r.logger.Debug().
			Str("owner", owner).
			Str("folder", folderID).
			Msg("Catch-up read for nonexistent folder")
		return nil, false
	}

	entries = f.since(since)
	telemetry.UpdatesReturned.Observe(float64(len(entries)))
	return entries, true
}

// Defer runs task on the scheduler's next turn. Without a scheduler, or once it has stopped,
// the task runs inline so pending results are never lost.
func (r *Registry) Defer(task func()) {
	if r.sched != nil && r.sched.Schedule(task) {
		return
	}
	task()
}

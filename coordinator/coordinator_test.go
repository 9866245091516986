package coordinator

import (
	"sync"
	"testing"
	"time"

	"github.com/jizhuozhi/go-future"
	"github.com/maxpert/modjournal/cfg"
	"github.com/maxpert/modjournal/journal"
	"github.com/maxpert/modjournal/notify"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCoordinator(t *testing.T, folders ...string) *Coordinator {
	t.Helper()
	m := make(map[string]*journal.Folder, len(folders))
	for _, id := range folders {
		m[id] = journal.NewFolder(id, "alice")
	}

	logger := zerolog.Nop()
	c, err := New(Options{Folders: m, Logger: &logger})
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

type notices struct {
	mu  sync.Mutex
	got []any
}

func (n *notices) HandleChange(payload any) {
	n.mu.Lock()
	n.got = append(n.got, payload)
	n.mu.Unlock()
}

func (n *notices) all() []any {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]any(nil), n.got...)
}

func TestCoordinator_AppendThenCatchUp(t *testing.T) {
	c := newTestCoordinator(t, "INBOX")

	written, err := c.AppendEntries("INBOX", journal.Record{"msg": "a"}, journal.Record{"msg": "b"}).Get()
	require.NoError(t, err)
	require.True(t, written)

	entries, ok := c.GetUpdates("alice", "INBOX", 0)
	require.True(t, ok)
	require.Len(t, entries, 2)
	assert.Equal(t, uint64(1), entries[0].Modseq())
	assert.Equal(t, uint64(2), entries[1].Modseq())

	_, ok = c.GetUpdates("alice", "MISSING", 0)
	assert.False(t, ok)
}

func TestCoordinator_AppendDoesNotPublish(t *testing.T) {
	c := newTestCoordinator(t, "INBOX")

	rec := &notices{}
	c.Subscribe(notify.StaticSession("alice"), "INBOX", rec)

	_, err := c.AppendEntries("INBOX", journal.Record{"msg": "a"}).Get()
	require.NoError(t, err)
	c.Sync()

	assert.Empty(t, rec.all())
}

func TestCoordinator_PublishSubscribe(t *testing.T) {
	c := newTestCoordinator(t, "INBOX")
	session := notify.StaticSession("alice")

	rec := &notices{}
	c.Subscribe(session, "INBOX", rec)
	c.Publish("alice", "INBOX", "ping")
	c.Sync()
	assert.Equal(t, []any{"ping"}, rec.all())

	c.Unsubscribe(session, "INBOX", rec)
	c.Publish("alice", "INBOX", "ping again")
	c.Sync()
	assert.Equal(t, []any{"ping"}, rec.all())
}

func TestCoordinator_AppendAndNotify(t *testing.T) {
	c := newTestCoordinator(t, "INBOX")

	rec := &notices{}
	c.Subscribe(notify.StaticSession("alice"), "INBOX", rec)

	written, err := c.AppendAndNotify("alice", "INBOX", nil, journal.Record{"msg": "a"}, journal.Record{"msg": "b"}).Get()
	require.NoError(t, err)
	assert.True(t, written)
	c.Sync()

	require.Equal(t, []any{ChangeNotice{Owner: "alice", Folder: "INBOX", Modseq: 2}}, rec.all())

	// Listener catches up from the last modseq it knew about
	entries, ok := c.GetUpdates("alice", "INBOX", 0)
	require.True(t, ok)
	assert.Len(t, entries, 2)
}

func TestCoordinator_AppendAndNotifyCustomPayload(t *testing.T) {
	c := newTestCoordinator(t, "INBOX")

	rec := &notices{}
	c.Subscribe(notify.StaticSession("alice"), "INBOX", rec)

	_, err := c.AppendAndNotify("alice", "INBOX", "EXISTS 1", journal.Record{"msg": "a"}).Get()
	require.NoError(t, err)
	c.Sync()

	assert.Equal(t, []any{"EXISTS 1"}, rec.all())
}

func TestCoordinator_AppendAndNotifySkipsNoopAndMissing(t *testing.T) {
	c := newTestCoordinator(t, "INBOX")

	rec := &notices{}
	c.Subscribe(notify.StaticSession("alice"), "INBOX", rec)
	c.Subscribe(notify.StaticSession("alice"), "MISSING", rec)

	written, err := c.AppendAndNotify("alice", "INBOX", nil).Get()
	require.NoError(t, err)
	assert.False(t, written)

	written, err = c.AppendAndNotify("alice", "MISSING", nil, journal.Record{"msg": "a"}).Get()
	assert.ErrorIs(t, err, journal.ErrFolderNotFound)
	assert.False(t, written)

	c.Sync()
	assert.Empty(t, rec.all())
}

func TestCoordinator_CompletionBeforeDelivery(t *testing.T) {
	c := newTestCoordinator(t, "INBOX")

	futCh := make(chan *future.Future[bool], 1)
	resolvedAtDelivery := make(chan bool, 1)

	// The completion must already be settled when the handler runs
	c.Subscribe(notify.StaticSession("alice"), "INBOX", notify.HandlerFunc(func(any) {
		fut := <-futCh
		if !fut.Done() {
			resolvedAtDelivery <- false
			return
		}
		written, err := fut.Get()
		resolvedAtDelivery <- written && err == nil
	}))

	futCh <- c.AppendAndNotify("alice", "INBOX", nil, journal.Record{"msg": "a"})

	select {
	case ok := <-resolvedAtDelivery:
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for delivery")
	}
}

func TestCoordinator_DeriveChannelKey(t *testing.T) {
	c := newTestCoordinator(t)

	assert.Equal(t, notify.DeriveChannelKey("alice", "INBOX"), c.DeriveChannelKey("alice", "INBOX"))
	assert.NotEqual(t, c.DeriveChannelKey("alice", "INBOX"), c.DeriveChannelKey("bob", "INBOX"))
}

func TestCoordinator_DefaultsToEmptyRegistry(t *testing.T) {
	c, err := New(Options{})
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, 0, c.Registry().Len())
	written, err := c.AppendEntries("INBOX", journal.Record{}).Get()
	assert.ErrorIs(t, err, journal.ErrFolderNotFound)
	assert.False(t, written)
}

func TestCoordinator_NewFromConfig(t *testing.T) {
	conf := cfg.Default()
	conf.Journal.Folders = []cfg.FolderConfiguration{
		{ID: "INBOX", Owner: "alice"},
		{ID: "Archive", Owner: "alice", ModifyIndex: 100},
	}
	conf.Notify.KeyCacheSize = 8

	c, err := NewFromConfig(conf)
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, []string{"Archive", "INBOX"}, c.Registry().List())

	e := journal.Record{"msg": "a"}
	_, err = c.AppendEntries("Archive", e).Get()
	require.NoError(t, err)
	assert.Equal(t, uint64(101), e.Modseq())

	conf.Journal.Folders = append(conf.Journal.Folders, cfg.FolderConfiguration{ID: "INBOX"})
	_, err = NewFromConfig(conf)
	assert.Error(t, err)
}

func TestCoordinator_CloseIsIdempotent(t *testing.T) {
	c := newTestCoordinator(t, "INBOX")
	c.Close()
	c.Close()

	// Appends still settle after close
	written, err := c.AppendEntries("INBOX", journal.Record{"msg": "late"}).Get()
	require.NoError(t, err)
	assert.True(t, written)
}

func TestCoordinator_HandlerCanAwaitAppend(t *testing.T) {
	c := newTestCoordinator(t, "INBOX", "Audit")

	audited := make(chan bool, 1)
	c.Subscribe(notify.StaticSession("alice"), "INBOX", notify.HandlerFunc(func(any) {
		written, err := c.AppendEntries("Audit", journal.Record{"msg": "seen"}).Get()
		audited <- written && err == nil
	}))

	c.Publish("alice", "INBOX", "changed")

	select {
	case ok := <-audited:
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("handler waiting on an append never resumed")
	}

	// Later work still flows
	rec := &notices{}
	c.Subscribe(notify.StaticSession("alice"), "Audit", rec)
	_, err := c.AppendAndNotify("alice", "Audit", "more", journal.Record{"msg": "b"}).Get()
	require.NoError(t, err)
	c.Sync()
	assert.Equal(t, []any{"more"}, rec.all())

	closed := make(chan struct{})
	go func() {
		c.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close blocked")
	}
}

func TestCoordinator_NoticeCarriesOwnBatchModseq(t *testing.T) {
	c := newTestCoordinator(t, "INBOX")

	const writers = 8
	futs := make([]*future.Future[bool], writers)
	batches := make([][]journal.Entry, writers)

	got := make(chan ChangeNotice, writers)
	c.Subscribe(notify.StaticSession("alice"), "INBOX", notify.HandlerFunc(func(p any) {
		got <- p.(ChangeNotice)
	}))

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		batches[w] = []journal.Entry{journal.Record{"w": w}, journal.Record{"w": w}}
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			futs[w] = c.AppendAndNotify("alice", "INBOX", nil, batches[w]...)
		}(w)
	}
	wg.Wait()
	c.Sync()
	close(got)

	lasts := make(map[uint64]bool, writers)
	for w := 0; w < writers; w++ {
		written, err := futs[w].Get()
		require.NoError(t, err)
		require.True(t, written)
		lasts[batches[w][1].Modseq()] = true
	}

	seen := 0
	for n := range got {
		assert.True(t, lasts[n.Modseq], "notice modseq %d is not the end of any batch", n.Modseq)
		delete(lasts, n.Modseq)
		seen++
	}
	assert.Equal(t, writers, seen)
}

func TestCoordinator_PublishWaitsForEarlierCompletion(t *testing.T) {
	c := newTestCoordinator(t, "INBOX")

	futCh := make(chan *future.Future[bool], 1)
	settled := make(chan bool, 1)
	c.Subscribe(notify.StaticSession("alice"), "INBOX", notify.HandlerFunc(func(any) {
		settled <- (<-futCh).Done()
	}))

	futCh <- c.AppendEntries("INBOX", journal.Record{"msg": "a"})
	c.Publish("alice", "INBOX", "changed")

	select {
	case done := <-settled:
		assert.True(t, done)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for delivery")
	}
}

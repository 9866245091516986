package coordinator

import (
	"fmt"
	"os"
	"sync"

	"github.com/jizhuozhi/go-future"
	"github.com/maxpert/modjournal/cfg"
	"github.com/maxpert/modjournal/executor"
	"github.com/maxpert/modjournal/journal"
	"github.com/maxpert/modjournal/notify"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options configures a Coordinator
type Options struct {
	Folders      map[string]*journal.Folder // Initial folders, keyed by id (default: none)
	Logger       *zerolog.Logger            // Defaults to a console logger on stderr
	KeyCacheSize int                        // Channel key LRU size (default: cfg.DefaultKeyCacheSize)
}

// ChangeNotice is the default payload published by AppendAndNotify.
// It only says that a folder moved forward; subscribers fetch the entries
// with GetUpdates.
type ChangeNotice struct {
	Owner  string `json:"owner"`
	Folder string `json:"folder"`
	Modseq uint64 `json:"modseq"`
}

// Coordinator owns the folder registry and the subscription router for the
// lifetime of its holder. Writes and notifications are independent: a caller
// appends entries and then, if something was written, publishes a change.
//
// Append completions and publish fan-out run on separate executors, so a
// handler may wait on an append future. Every publish passes through the
// completion queue first, which keeps completions scheduled before a publish
// ahead of its delivery.
type Coordinator struct {
	registry    *journal.Registry
	router      *notify.Router
	completions *executor.Executor
	deliveries  *executor.Executor
	logger      zerolog.Logger

	closeOnce sync.Once
}

// handoff schedules a task on deliveries once the completion queue reaches it
type handoff struct {
	completions *executor.Executor
	deliveries  *executor.Executor
}

func (h handoff) Schedule(task func()) bool {
	return h.completions.Schedule(func() {
		h.deliveries.Schedule(task)
	})
}

func defaultLogger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}

// New creates a coordinator and starts its executors
func New(opts Options) (*Coordinator, error) {
	logger := defaultLogger()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	size := opts.KeyCacheSize
	if size <= 0 {
		size = cfg.DefaultKeyCacheSize
	}
	keys, err := notify.NewKeyCache(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create channel key cache: %w", err)
	}

	completions := executor.New(logger.With().Str("queue", "completions").Logger())
	deliveries := executor.New(logger.With().Str("queue", "deliveries").Logger())
	completions.Start()
	deliveries.Start()

	c := &Coordinator{
		registry:    journal.NewRegistry(opts.Folders, completions, logger),
		router:      notify.NewRouter(handoff{completions: completions, deliveries: deliveries}, keys, logger),
		completions: completions,
		deliveries:  deliveries,
		logger:      logger.With().Str("component", "coordinator").Logger(),
	}

	c.logger.Info().Int("folders", c.registry.Len()).Msg("Journal coordinator started")
	return c, nil
}

// NewFromConfig creates a coordinator from the folders and notify settings in
// conf, logging through the global zerolog logger
func NewFromConfig(conf *cfg.Configuration) (*Coordinator, error) {
	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	folders := make(map[string]*journal.Folder, len(conf.Journal.Folders))
	for _, fc := range conf.Journal.Folders {
		f := journal.NewFolder(fc.ID, fc.Owner)
		f.ModifyIndex = fc.ModifyIndex
		folders[fc.ID] = f
	}

	return New(Options{
		Folders:      folders,
		Logger:       &log.Logger,
		KeyCacheSize: conf.Notify.KeyCacheSize,
	})
}

// Registry returns the folder registry
func (c *Coordinator) Registry() *journal.Registry {
	return c.registry
}

// Router returns the subscription router
func (c *Coordinator) Router() *notify.Router {
	return c.router
}

// AppendEntries stamps and appends entries to folderID. See journal.Registry.AppendEntries.
func (c *Coordinator) AppendEntries(folderID string, entries ...journal.Entry) *future.Future[bool] {
	return c.registry.AppendEntries(folderID, entries...)
}

// GetUpdates returns entries newer than since; ok is false for unknown folders
func (c *Coordinator) GetUpdates(owner, folderID string, since uint64) ([]journal.Entry, bool) {
	return c.registry.GetUpdates(owner, folderID, since)
}

// Subscribe registers handler for changes to folderID of the session owner
func (c *Coordinator) Subscribe(session notify.Session, folderID string, handler notify.Handler) {
	c.router.Subscribe(session, folderID, handler)
}

// Unsubscribe removes a handler registered with Subscribe
func (c *Coordinator) Unsubscribe(session notify.Session, folderID string, handler notify.Handler) {
	c.router.Unsubscribe(session, folderID, handler)
}

// Publish signals subscribers of (owner, folderID) on a later turn
func (c *Coordinator) Publish(owner, folderID string, payload any) {
	c.router.Publish(owner, folderID, payload)
}

// DeriveChannelKey returns the channel key for (owner, folderID)
func (c *Coordinator) DeriveChannelKey(owner, folderID string) notify.ChannelKey {
	return c.router.ChannelKey(owner, folderID)
}

// AppendAndNotify appends entries and, when something was written, publishes
// payload to the folder's subscribers. A nil payload publishes a ChangeNotice
// carrying the last modseq of this batch. The future resolves before any
// handler sees the notification.
func (c *Coordinator) AppendAndNotify(owner, folderID string, payload any, entries ...journal.Entry) *future.Future[bool] {
	p := future.NewPromise[bool]()

	last, err := c.registry.Append(folderID, entries...)
	c.registry.Defer(func() { p.Set(last > 0, err) })

	if last > 0 {
		if payload == nil {
			payload = ChangeNotice{Owner: owner, Folder: folderID, Modseq: last}
		}
		c.router.Publish(owner, folderID, payload)
	}

	return p.Future()
}

// Sync waits until every completion and delivery scheduled so far has run.
// Handlers must not call it.
func (c *Coordinator) Sync() {
	c.completions.Sync()
	c.deliveries.Sync()
}

// Close delivers what is already scheduled and stops the executors.
// Later appends resolve inline and later publishes are dropped.
func (c *Coordinator) Close() {
	c.closeOnce.Do(func() {
		c.completions.Stop()
		c.deliveries.Stop()
		c.logger.Info().Msg("Journal coordinator stopped")
	})
}

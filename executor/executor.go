package executor

import (
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Executor runs scheduled tasks one at a time, in schedule order, on a single
// background goroutine. Schedule never blocks the caller: the queue is unbounded.
type Executor struct {
	logger zerolog.Logger

	mu    sync.Mutex
	queue []func()

	wakeCh chan struct{}
	stopCh chan struct{}
	doneCh chan struct{}

	started atomic.Bool
	stopped atomic.Bool
}

// New creates an executor. Call Start before scheduling work that must run.
func New(logger zerolog.Logger) *Executor {
	return &Executor{
		logger: logger.With().Str("component", "executor").Logger(),
		wakeCh: make(chan struct{}, 1),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start launches the run loop. Calling Start more than once is a no-op.
func (e *Executor) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped.Load() || !e.started.CompareAndSwap(false, true) {
		return
	}
	go e.loop()
}

// Schedule queues task for a later turn. Returns false if the executor is stopped.
func (e *Executor) Schedule(task func()) bool {
	if task == nil {
		return true
	}

	e.mu.Lock()
	if e.stopped.Load() {
		e.mu.Unlock()
		return false
	}
	e.queue = append(e.queue, task)
	e.mu.Unlock()

	// Coalesce wakeups; the loop drains the whole queue per wake.
	select {
	case e.wakeCh <- struct{}{}:
	default:
	}
	return true
}

// Sync blocks until every task scheduled before the call has run.
// Returns immediately if the executor was never started or is stopped.
// Calling Sync from a scheduled task deadlocks.
func (e *Executor) Sync() {
	if !e.started.Load() {
		return
	}
	done := make(chan struct{})
	if !e.Schedule(func() { close(done) }) {
		return
	}
	select {
	case <-done:
	case <-e.doneCh:
	}
}

// Pending returns the number of queued tasks that have not started yet.
func (e *Executor) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

// Stop runs everything already queued, then terminates the loop. Idempotent.
func (e *Executor) Stop() {
	e.mu.Lock()
	if !e.stopped.CompareAndSwap(false, true) {
		e.mu.Unlock()
		<-e.doneCh
		return
	}
	started := e.started.Load()
	e.mu.Unlock()

	close(e.stopCh)
	if !started {
		// Never started: drain inline so no scheduled completion is lost.
		e.drain()
		close(e.doneCh)
		return
	}
	<-e.doneCh
}

func (e *Executor) loop() {
	defer close(e.doneCh)

	for {
		select {
		case <-e.wakeCh:
			e.drain()
		case <-e.stopCh:
			e.drain()
			return
		}
	}
}

func (e *Executor) drain() {
	for {
		e.mu.Lock()
		if len(e.queue) == 0 {
			e.mu.Unlock()
			return
		}
		batch := e.queue
		e.queue = nil
		e.mu.Unlock()

		for _, task := range batch {
			e.run(task)
		}
	}
}

func (e *Executor) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("Scheduled task panicked")
		}
	}()
	task()
}

package notify

import (
	"reflect"
	"runtime/debug"
	"sync"

	"github.com/maxpert/modjournal/telemetry"
	"github.com/rs/zerolog"
)

// Scheduler defers work to a later turn. *executor.Executor implements it.
type Scheduler interface {
	Schedule(task func()) bool
}

// Router is a multicast table from channel key to handlers.
// Safe for concurrent use.
type Router struct {
	mu       sync.RWMutex
	channels map[ChannelKey][]Handler
	total    int

	keys   *KeyCache
	sched  Scheduler
	logger zerolog.Logger
}

// NewRouter creates a router. keys may be nil, in which case every call
// derives its key. With a nil scheduler each publish is delivered from its
// own goroutine.
func NewRouter(sched Scheduler, keys *KeyCache, logger zerolog.Logger) *Router {
	return &Router{
		channels: make(map[ChannelKey][]Handler),
		keys:     keys,
		sched:    sched,
		logger:   logger.With().Str("component", "notify").Logger(),
	}
}

// ChannelKey returns the key used for (owner, folderID)
func (r *Router) ChannelKey(owner, folderID string) ChannelKey {
	if r.keys != nil {
		return r.keys.Key(owner, folderID)
	}
	return DeriveChannelKey(owner, folderID)
}

// Subscribe registers handler for changes to folderID of the session owner.
// There is no limit on handlers per channel; subscribing the same handler
// twice means it is delivered to twice. Handlers whose dynamic type is not
// comparable cannot be unsubscribed and are rejected with a warning.
func (r *Router) Subscribe(session Session, folderID string, handler Handler) {
	if handler == nil {
		return
	}

	owner := session.OwnerID()
	if !isComparable(handler) {
		r.logger.Warn().
			Str("owner", owner).
			Str("folder", folderID).
			Str("type", reflect.TypeOf(handler).String()).
			Msg("Rejecting handler of non-comparable type")
		return
	}
	key := r.ChannelKey(owner, folderID)

	r.mu.Lock()
	r.channels[key] = append(r.channels[key], handler)
	count := len(r.channels[key])
	r.total++
	r.mu.Unlock()

	telemetry.Subscribers.Inc()
	r.logger.Debug().
		Str("owner", owner).
		Str("folder", folderID).
		Str("channel", string(key)).
		Int("handlers", count).
		Msg("Subscribed to folder changes")
}

// Unsubscribe removes one registration of handler. Unknown handlers are ignored.
func (r *Router) Unsubscribe(session Session, folderID string, handler Handler) {
	if handler == nil || !isComparable(handler) {
		return
	}

	owner := session.OwnerID()
	key := r.ChannelKey(owner, folderID)

	r.mu.Lock()
	handlers := r.channels[key]
	idx := -1
	for i, h := range handlers {
		if h == handler {
			idx = i
			break
		}
	}
	if idx < 0 {
		r.mu.Unlock()
		return
	}

	// Copy on remove: in-flight deliveries hold the old slice
	next := make([]Handler, 0, len(handlers)-1)
	next = append(next, handlers[:idx]...)
	next = append(next, handlers[idx+1:]...)
	if len(next) == 0 {
		delete(r.channels, key)
	} else {
		r.channels[key] = next
	}
	r.total--
	count := len(next)
	r.mu.Unlock()

	telemetry.Subscribers.Dec()
	r.logger.Debug().
		Str("owner", owner).
		Str("folder", folderID).
		Str("channel", string(key)).
		Int("handlers", count).
		Msg("Unsubscribed from folder changes")
}

// Publish delivers payload to every handler subscribed to (owner, folderID).
// It returns before any handler runs. Handlers are snapshotted at delivery
// time, so a handler added or removed after Publish returns may or may not
// see this payload.
func (r *Router) Publish(owner, folderID string, payload any) {
	key := r.ChannelKey(owner, folderID)
	telemetry.PublishesTotal.Inc()

	deliver := func() { r.deliver(key, payload) }
	if r.sched == nil {
		go deliver()
		return
	}
	if !r.sched.Schedule(deliver) {
		r.logger.Warn().
			Str("owner", owner).
			Str("folder", folderID).
			Msg("Dropping publish, scheduler stopped")
	}
}

// HandlerCount returns the handlers registered for (owner, folderID)
func (r *Router) HandlerCount(owner, folderID string) int {
	key := r.ChannelKey(owner, folderID)

	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels[key])
}

// ChannelCount returns the number of channels with at least one handler
func (r *Router) ChannelCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels)
}

// SubscriberCount returns registrations across all channels
func (r *Router) SubscriberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.total
}

func (r *Router) deliver(key ChannelKey, payload any) {
	r.mu.RLock()
	handlers := r.channels[key]
	r.mu.RUnlock()

	// Slices in the table are never mutated in place, so no copy is needed
	for _, h := range handlers {
		r.safeCall(key, h, payload)
	}
}

func (r *Router) safeCall(key ChannelKey, h Handler, payload any) {
	defer func() {
		if rec := recover(); rec != nil {
			telemetry.HandlerPanicsTotal.Inc()
			r.logger.Error().
				Str("channel", string(key)).
				Interface("panic", rec).
				Str("stack", string(debug.Stack())).
				Msg("Change handler panicked")
		}
	}()
	h.HandleChange(payload)
	telemetry.DeliveriesTotal.Inc()
}

// isComparable reports whether handler can be matched by interface equality
func isComparable(handler Handler) bool {
	return reflect.TypeOf(handler).Comparable()
}

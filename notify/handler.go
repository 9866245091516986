package notify

// Handler receives change payloads published on a channel.
//
// Handlers are removed by identity (interface equality), so implementations
// must be comparable; pointer receivers are the natural choice.
type Handler interface {
	HandleChange(payload any)
}

type funcHandler struct {
	fn func(payload any)
}

func (h *funcHandler) HandleChange(payload any) {
	h.fn(payload)
}

// HandlerFunc wraps fn in a handler with its own identity. Keep the returned
// value to unsubscribe later; wrapping the same fn twice yields two handlers.
func HandlerFunc(fn func(payload any)) Handler {
	return &funcHandler{fn: fn}
}

// Session identifies the owner a subscription is made on behalf of
type Session interface {
	OwnerID() string
}

// StaticSession is a Session for a fixed owner id
type StaticSession string

func (s StaticSession) OwnerID() string {
	return string(s)
}

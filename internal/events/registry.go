package events

import (
	"context"
	"fmt"
	"sync"
)

// Handler processes one decoded envelope. Expected business conditions are
// reported in the Result; only exceptional failures return an error.
type Handler interface {
	Handle(ctx context.Context, payload Payload) (Result, error)
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(ctx context.Context, payload Payload) (Result, error)

// Handle calls f(ctx, payload)
func (f HandlerFunc) Handle(ctx context.Context, payload Payload) (Result, error) {
	return f(ctx, payload)
}

// Registry maps kinds to handlers. Kinds without a handler go to the
// fallback, whose results are reported as ignored.
type Registry struct {
	mu       sync.RWMutex
	handlers map[Kind]Handler
	fallback Handler
}

// NewRegistry creates an empty registry whose fallback ignores the envelope
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[Kind]Handler),
		fallback: HandlerFunc(ignore),
	}
}

// Register binds h to kind, replacing any previous handler. Only kinds
// ParseKind can produce are reachable, so any other kind panics.
func (r *Registry) Register(kind Kind, h Handler) {
	if kind == KindUnknown || ParseKind(string(kind)) != kind {
		panic(fmt.Sprintf("events: cannot register a handler for kind %q", kind))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[kind] = h
}

// Lookup returns the handler for kind and whether it was registered.
// A miss returns the fallback.
func (r *Registry) Lookup(kind Kind) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if kind != KindUnknown {
		if h, ok := r.handlers[kind]; ok {
			return h, true
		}
	}
	return r.fallback, false
}

func ignore(context.Context, Payload) (Result, error) {
	return Result{"status": "ignored", "reason": "unknown_event_type"}, nil
}

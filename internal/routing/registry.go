package routing

import (
	"context"
	"fmt"
)

// Handler is one backend implementation unit. Call performs the backend's
// work with no arguments beyond the context and returns its result, or fails
// with any error.
type Handler interface {
	Call(ctx context.Context) (any, error)
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context) (any, error)

func (f HandlerFunc) Call(ctx context.Context) (any, error) {
	return f(ctx)
}

// Registry maps backend identifiers to handlers. It is populated once at
// process start and read-only afterwards, so lookups need no locking.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds a backend name to a handler. Re-registering a name replaces
// the previous handler; registration happens during wiring, before any Route
// call.
func (r *Registry) Register(name string, h Handler) {
	r.handlers[name] = h
}

// Resolve returns the handler for a backend name, or ErrUnknownBackend.
func (r *Registry) Resolve(name string) (Handler, error) {
	h, ok := r.handlers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, name)
	}
	return h, nil
}

// Names returns the registered backend names, for diagnostics.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		out = append(out, name)
	}
	return out
}

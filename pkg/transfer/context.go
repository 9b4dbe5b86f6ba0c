package transfer

import "context"

// ContextKey is the context key for the transfer adapter.
var ContextKey = struct{ string }{"transfer"}

// WithContext returns a new context with the transfer adapter attached.
func WithContext(ctx context.Context, a Adapter) context.Context {
	return context.WithValue(ctx, ContextKey, a)
}

// FromContext returns the transfer adapter from the context.
func FromContext(ctx context.Context) Adapter {
	if a, ok := ctx.Value(ContextKey).(Adapter); ok {
		return a
	}

	return nil
}

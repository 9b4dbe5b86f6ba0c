package storage

import "context"

// ContextKey is the context key for the storage backend.
var ContextKey = struct{ string }{"storage"}

// WithContext returns a new context with the storage backend attached.
func WithContext(ctx context.Context, s Storage) context.Context {
	return context.WithValue(ctx, ContextKey, s)
}

// FromContext returns the storage backend from the context.
func FromContext(ctx context.Context) Storage {
	if s, ok := ctx.Value(ContextKey).(Storage); ok {
		return s
	}

	return nil
}

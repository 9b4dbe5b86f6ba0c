package jwk

import "context"

// ContextKey is the context key for the JSON Web Key pair.
var ContextKey = struct{ string }{"jwk"}

// WithContext returns a new context with the key pair attached.
func WithContext(ctx context.Context, p Pair) context.Context {
	return context.WithValue(ctx, ContextKey, p)
}

// FromContext returns the key pair from the context.
func FromContext(ctx context.Context) (Pair, bool) {
	p, ok := ctx.Value(ContextKey).(Pair)
	return p, ok
}

package web

import (
	"context"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/largo-sh/largo/pkg/config"
	"github.com/largo-sh/largo/pkg/jwk"
	"github.com/largo-sh/largo/pkg/storage"
	"github.com/largo-sh/largo/pkg/transfer"
)

var requestIDCtxKey = struct{ string }{"request_id"}

// NewContextHandler returns a new context middleware.
// This middleware adds the config, storage backend, transfer adapter, logger
// and a request id to the request context.
func NewContextHandler(ctx context.Context) func(http.Handler) http.Handler {
	cfg := config.FromContext(ctx)
	strg := storage.FromContext(ctx)
	adapter := transfer.FromContext(ctx)
	keys, hasKeys := jwk.FromContext(ctx)
	logger := log.FromContext(ctx).WithPrefix("http")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := uuid.NewString()
			w.Header().Set("X-Request-Id", id)

			ctx := r.Context()
			ctx = context.WithValue(ctx, requestIDCtxKey, id)
			ctx = config.WithContext(ctx, cfg)
			ctx = storage.WithContext(ctx, strg)
			ctx = transfer.WithContext(ctx, adapter)
			if hasKeys {
				ctx = jwk.WithContext(ctx, keys)
			}
			ctx = log.WithContext(ctx, logger.With(
				"method", r.Method,
				"path", r.URL,
				"request_id", id,
			))
			r = r.WithContext(ctx)

			next.ServeHTTP(w, r)
		})
	}
}

// requestID returns the request id from the context, if any.
func requestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDCtxKey).(string); ok {
		return id
	}
	return ""
}

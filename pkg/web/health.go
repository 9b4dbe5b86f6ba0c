package web

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/largo-sh/largo/pkg/storage"
)

// HealthController registers the health check routes for the web server.
func HealthController(_ context.Context, r *mux.Router) {
	r.HandleFunc("/livez", getLiveness)
	r.HandleFunc("/readyz", getReadiness)
}

func getLiveness(w http.ResponseWriter, _ *http.Request) {
	renderStatus(http.StatusOK)(w, nil)
}

func getReadiness(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	strg := storage.FromContext(ctx)
	if strg == nil {
		renderStatus(http.StatusServiceUnavailable)(w, nil)
		return
	}

	// Exists is side-effect-free, so probing a sentinel key verifies the
	// backend is reachable without touching stored objects.
	probe := storage.ObjectKey{Namespace: "_health", Oid: "probe"}
	if _, err := strg.Exists(ctx, probe); err != nil {
		renderStatus(http.StatusServiceUnavailable)(w, nil)
		return
	}

	renderStatus(http.StatusOK)(w, nil)
}

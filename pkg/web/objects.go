package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/largo-sh/largo/pkg/lfs"
	"github.com/largo-sh/largo/pkg/storage"
	"github.com/largo-sh/largo/pkg/transfer"
)

//nolint:revive
var objectsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "largo",
	Subsystem: "http",
	Name:      "objects_total",
	Help:      "The total number of streamed object storage requests",
}, []string{"namespace", "method"})

// serviceObjectsBasic streams object bytes through the server.
// https://github.com/git-lfs/git-lfs/blob/main/docs/api/basic-transfers.md
func serviceObjectsBasic(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		serviceObjectsDownload(w, r)
	case http.MethodPut:
		serviceObjectsUpload(w, r)
	}
}

// GET: /<namespace>/objects/storage/<oid>
func serviceObjectsDownload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)
	key := storage.ObjectKey{Namespace: vars["namespace"], Oid: vars["oid"]}
	logger := log.FromContext(ctx).WithPrefix("http.objects")

	if !authorizeAction(w, r, key.Namespace, key.Oid) {
		return
	}

	strg := storage.FromContext(ctx)
	size, err := strg.Size(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			renderJSON(w, http.StatusNotFound, lfs.ErrorResponse{
				Message:   "object not found",
				RequestID: requestID(ctx),
			})
			return
		}
		logger.Error("error getting object size", "oid", key.Oid, "err", err)
		renderJSON(w, http.StatusInternalServerError, lfs.ErrorResponse{
			Message:   "internal server error",
			RequestID: requestID(ctx),
		})
		return
	}

	obj, err := strg.Get(ctx, key)
	if err != nil {
		logger.Error("error opening object", "oid", key.Oid, "err", err)
		renderJSON(w, http.StatusNotFound, lfs.ErrorResponse{
			Message:   "object not found",
			RequestID: requestID(ctx),
		})
		return
	}

	defer obj.Close() // nolint: errcheck
	objectsCounter.WithLabelValues(key.Namespace, r.Method).Inc()
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, obj); err != nil {
		logger.Error("error copying object to response", "oid", key.Oid, "err", err)
	}
}

// PUT: /<namespace>/objects/storage/<oid>
func serviceObjectsUpload(w http.ResponseWriter, r *http.Request) {
	if !isBinary(r) {
		renderJSON(w, http.StatusUnsupportedMediaType, lfs.ErrorResponse{
			Message: "invalid content type",
		})
		return
	}

	ctx := r.Context()
	vars := mux.Vars(r)
	key := storage.ObjectKey{Namespace: vars["namespace"], Oid: vars["oid"]}
	logger := log.FromContext(ctx).WithPrefix("http.objects")

	if !authorizeAction(w, r, key.Namespace, key.Oid) {
		return
	}

	strg := storage.FromContext(ctx)
	defer r.Body.Close() // nolint: errcheck
	written, err := strg.Put(ctx, key, r.Body)
	if err != nil {
		logger.Error("error writing object", "oid", key.Oid, "err", err)
		renderJSON(w, http.StatusInternalServerError, lfs.ErrorResponse{
			Message:   "internal server error",
			RequestID: requestID(ctx),
		})
		return
	}

	logger.Debug("stored object", "oid", key.Oid, "bytes", written)
	objectsCounter.WithLabelValues(key.Namespace, r.Method).Inc()
	renderStatus(http.StatusOK)(w, nil)
}

// serviceObjectsVerify checks a stored object against a pointer.
// https://github.com/git-lfs/git-lfs/blob/main/docs/api/basic-transfers.md#verification
// POST: /<namespace>/objects/storage/verify
func serviceObjectsVerify(w http.ResponseWriter, r *http.Request) {
	var pointer lfs.Pointer
	ctx := r.Context()
	namespace := mux.Vars(r)["namespace"]
	logger := log.FromContext(ctx).WithPrefix("http.objects")

	if !authorizeAction(w, r, namespace, "") {
		return
	}

	defer r.Body.Close() // nolint: errcheck
	if err := json.NewDecoder(r.Body).Decode(&pointer); err != nil {
		logger.Error("error decoding json", "err", err)
		renderJSON(w, http.StatusBadRequest, lfs.ErrorResponse{
			Message:   "invalid json",
			RequestID: requestID(ctx),
		})
		return
	}

	strg := storage.FromContext(ctx)
	key := storage.ObjectKey{Namespace: namespace, Oid: pointer.Oid}
	found, size, err := transfer.Stat(ctx, strg, key)
	if err != nil {
		logger.Error("error getting object stat", "oid", pointer.Oid, "err", err)
		renderJSON(w, http.StatusInternalServerError, lfs.ErrorResponse{
			Message:   "internal server error",
			RequestID: requestID(ctx),
		})
		return
	}

	if !found {
		renderJSON(w, http.StatusNotFound, lfs.ErrorResponse{
			Message:   "object not found",
			RequestID: requestID(ctx),
		})
		return
	}

	if size != pointer.Size {
		renderJSON(w, http.StatusUnprocessableEntity, lfs.ErrorResponse{
			Message:   "size mismatch",
			RequestID: requestID(ctx),
		})
		return
	}

	renderStatus(http.StatusOK)(w, nil)
}

package web

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/largo-sh/largo/pkg/lfs"
	"github.com/largo-sh/largo/pkg/transfer"
)

// LfsRoute is a route for Git LFS services.
type LfsRoute struct {
	method  []string
	handler http.HandlerFunc
	path    string
}

var _ http.Handler = LfsRoute{}

// ServeHTTP implements http.Handler.
func (l LfsRoute) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var hasMethod bool
	for _, m := range l.method {
		if m == r.Method {
			hasMethod = true
			break
		}
	}

	if !hasMethod {
		renderMethodNotAllowed(w, r)
		return
	}

	l.handler(w, r)
}

//nolint:revive
var lfsBatchCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "largo",
	Subsystem: "http",
	Name:      "lfs_batch_total",
	Help:      "The total number of objects requested in LFS batch operations",
}, []string{"namespace", "operation"})

// LfsController registers the Git LFS routes.
func LfsController(_ context.Context, r *mux.Router) {
	basePrefix := "/{namespace:.+}"
	for _, route := range lfsRoutes {
		r.Handle(basePrefix+route.path, route)
	}
}

// Route order matters: the verify route must be registered before the
// object route so "verify" is never taken for an oid.
var lfsRoutes = []LfsRoute{
	{
		method:  []string{http.MethodPost},
		handler: serviceLfsBatch,
		path:    "/objects/batch",
	},
	{
		method:  []string{http.MethodPost},
		handler: serviceObjectsVerify,
		path:    "/objects/storage/verify",
	},
	{
		// Streamed object up-/downloads.
		method:  []string{http.MethodGet, http.MethodPut},
		handler: serviceObjectsBasic,
		path:    "/objects/storage/{oid}",
	},
}

// serviceLfsBatch handles Git LFS batch requests.
// https://github.com/git-lfs/git-lfs/blob/main/docs/api/batch.md
// POST: /<namespace>/objects/batch
func serviceLfsBatch(w http.ResponseWriter, r *http.Request) {
	if !isLfs(r) {
		renderNotAcceptable(w)
		return
	}

	var batchRequest lfs.BatchRequest
	ctx := r.Context()
	logger := log.FromContext(ctx).WithPrefix("http.lfs")

	defer r.Body.Close() // nolint: errcheck
	if err := json.NewDecoder(r.Body).Decode(&batchRequest); err != nil {
		logger.Errorf("error decoding json: %s", err)
		renderJSON(w, http.StatusBadRequest, lfs.ErrorResponse{
			Message:   "invalid json",
			RequestID: requestID(ctx),
		})
		return
	}

	// We only accept basic transfers for now.
	// Default to basic if no transfer is specified.
	if len(batchRequest.Transfers) > 0 {
		var isBasic bool
		for _, t := range batchRequest.Transfers {
			if t == lfs.TransferBasic {
				isBasic = true
				break
			}
		}

		if !isBasic {
			renderJSON(w, http.StatusUnprocessableEntity, lfs.ErrorResponse{
				Message:   "unsupported transfer",
				RequestID: requestID(ctx),
			})
			return
		}
	}

	adapter := transfer.FromContext(ctx)
	namespace := mux.Vars(r)["namespace"]

	var batchResponse lfs.BatchResponse
	batchResponse.Transfer = lfs.TransferBasic
	batchResponse.HashAlgo = lfs.HashAlgorithmSHA256

	objects := make([]*lfs.ObjectResponse, 0, len(batchRequest.Objects))
	switch batchRequest.Operation {
	case lfs.OperationDownload:
		for _, o := range batchRequest.Objects {
			objects = append(objects, adapter.Download(ctx, namespace, o.Oid, o.Size))
		}
	case lfs.OperationUpload:
		for _, o := range batchRequest.Objects {
			objects = append(objects, adapter.Upload(ctx, namespace, o.Oid, o.Size))
		}
	default:
		renderJSON(w, http.StatusUnprocessableEntity, lfs.ErrorResponse{
			Message:   "unsupported operation",
			RequestID: requestID(ctx),
		})
		return
	}

	lfsBatchCounter.WithLabelValues(namespace, batchRequest.Operation).Add(float64(len(objects)))

	batchResponse.Objects = objects
	renderJSON(w, http.StatusOK, batchResponse)
}

// renderJSON renders a JSON response with the given status code and value. It
// also sets the Content-Type header to the JSON LFS media type
// (application/vnd.git-lfs+json).
func renderJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", lfs.MediaType)
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("error encoding json", "err", err)
	}
}

func renderNotAcceptable(w http.ResponseWriter) {
	renderStatus(http.StatusNotAcceptable)(w, nil)
}

// Clients may append parameters to the media type, e.g.
// "application/vnd.git-lfs+json; charset=utf-8", so match by prefix.
func isLfs(r *http.Request) bool {
	contentType := r.Header.Get("Content-Type")
	accept := r.Header.Get("Accept")
	return strings.HasPrefix(contentType, lfs.MediaType) && strings.HasPrefix(accept, lfs.MediaType)
}

func isBinary(r *http.Request) bool {
	contentType := r.Header.Get("Content-Type")
	return strings.HasPrefix(contentType, "application/octet-stream")
}

// Package external provides the direct transfer adapter. Clients move
// object bytes straight to the storage backend with signed URLs; the server
// never streams them.
package external

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/largo-sh/largo/pkg/config"
	"github.com/largo-sh/largo/pkg/jwk"
	"github.com/largo-sh/largo/pkg/lfs"
	"github.com/largo-sh/largo/pkg/storage"
	"github.com/largo-sh/largo/pkg/transfer"
)

func init() {
	transfer.Register("external", newAdapter)
}

// Adapter produces upload and download actions with presigned backend URLs.
// Verification still goes through the server, so verify actions point at the
// server's verify endpoint with a bearer token like the streamed adapter.
type Adapter struct {
	storage   storage.Storage
	issuer    storage.SignedURLIssuer
	keys      jwk.Pair
	publicURL string
	lifetime  time.Duration
}

var _ transfer.Adapter = (*Adapter)(nil)

func newAdapter(_ context.Context, cfg *config.Config, s storage.Storage) (transfer.Adapter, error) {
	issuer, ok := s.(storage.SignedURLIssuer)
	if !ok {
		return nil, fmt.Errorf("storage backend %q cannot issue signed URLs", cfg.Storage.Backend)
	}

	kp, err := jwk.NewPair(cfg)
	if err != nil {
		return nil, fmt.Errorf("load signing key: %w", err)
	}

	return &Adapter{
		storage:   s,
		issuer:    issuer,
		keys:      kp,
		publicURL: cfg.HTTP.PublicURL,
		lifetime:  cfg.ActionLifetime(),
	}, nil
}

// Name implements transfer.Adapter.
func (a *Adapter) Name() string { return "external" }

// Upload implements transfer.Adapter.
func (a *Adapter) Upload(ctx context.Context, namespace, oid string, size int64) *lfs.ObjectResponse {
	resp := &lfs.ObjectResponse{
		Pointer:       lfs.Pointer{Oid: oid, Size: size},
		Authenticated: true,
	}

	key := storage.ObjectKey{Namespace: namespace, Oid: oid}
	found, stored, err := transfer.Stat(ctx, a.storage, key)
	if err != nil {
		resp.Error = storageError(err)
		return resp
	}

	if found && stored == size {
		return resp
	}

	href, err := a.issuer.SignedURL(ctx, key, http.MethodPut, a.lifetime, "")
	if err != nil {
		resp.Error = storageError(err)
		return resp
	}

	token, err := transfer.SignActionToken(a.keys, a.publicURL, key, a.lifetime)
	if err != nil {
		resp.Error = storageError(err)
		return resp
	}

	resp.Actions = map[string]*lfs.Link{
		lfs.ActionUpload: {
			Href: href,
			Header: map[string]string{
				"Content-Type": "application/octet-stream",
			},
			ExpiresIn: int64(a.lifetime.Seconds()),
		},
		lfs.ActionVerify: {
			Href: fmt.Sprintf("%s/%s/objects/storage/verify", a.publicURL, namespace),
			Header: map[string]string{
				"Authorization": "Bearer " + token,
			},
			ExpiresIn: int64(a.lifetime.Seconds()),
		},
	}

	return resp
}

// Download implements transfer.Adapter.
func (a *Adapter) Download(ctx context.Context, namespace, oid string, size int64) *lfs.ObjectResponse {
	resp := &lfs.ObjectResponse{
		Pointer: lfs.Pointer{Oid: oid, Size: size},
	}

	key := storage.ObjectKey{Namespace: namespace, Oid: oid}
	found, stored, err := transfer.Stat(ctx, a.storage, key)
	if err != nil {
		resp.Error = storageError(err)
		return resp
	}

	if !found {
		resp.Error = &lfs.ObjectError{
			Code:    http.StatusNotFound,
			Message: "Object does not exist",
		}
		return resp
	}

	if stored != size {
		resp.Error = &lfs.ObjectError{
			Code:    http.StatusUnprocessableEntity,
			Message: "Object size does not match",
		}
		return resp
	}

	href, err := a.issuer.SignedURL(ctx, key, http.MethodGet, a.lifetime, "")
	if err != nil {
		resp.Error = storageError(err)
		return resp
	}

	resp.Authenticated = true
	resp.Actions = map[string]*lfs.Link{
		lfs.ActionDownload: {
			Href:      href,
			ExpiresIn: int64(a.lifetime.Seconds()),
		},
	}

	return resp
}

func storageError(err error) *lfs.ObjectError {
	return &lfs.ObjectError{
		Code:    http.StatusInternalServerError,
		Message: err.Error(),
	}
}

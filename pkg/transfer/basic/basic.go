// Package basic provides the streamed transfer adapter. Object bytes pass
// through the server's own object storage endpoints.
package basic

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
	transfer.Register("basic", newAdapter)
}

// Adapter produces actions pointing at the server's own PUT/GET/verify
// endpoints. Action headers carry a bearer token scoped to the object and
// valid for the action lifetime.
type Adapter struct {
	storage   storage.Storage
	keys      jwk.Pair
	publicURL string
	lifetime  time.Duration
}

var _ transfer.Adapter = (*Adapter)(nil)

func newAdapter(_ context.Context, cfg *config.Config, s storage.Storage) (transfer.Adapter, error) {
	kp, err := jwk.NewPair(cfg)
	if err != nil {
		return nil, fmt.Errorf("load signing key: %w", err)
	}

	return &Adapter{
		storage:   s,
		keys:      kp,
		publicURL: cfg.HTTP.PublicURL,
		lifetime:  cfg.ActionLifetime(),
	}, nil
}

// Name implements transfer.Adapter.
func (a *Adapter) Name() string { return lfs.TransferBasic }

// Upload implements transfer.Adapter. An object already stored with a
// matching size yields a response without actions; the client infers there
// is nothing to do.
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

	token, err := transfer.SignActionToken(a.keys, a.publicURL, key, a.lifetime)
	if err != nil {
		resp.Error = storageError(err)
		return resp
	}

	header := map[string]string{
		"Authorization": "Bearer " + token,
	}
	resp.Actions = map[string]*lfs.Link{
		lfs.ActionUpload: {
			Href:      a.objectURL(namespace, oid),
			Header:    header,
			ExpiresIn: int64(a.lifetime.Seconds()),
		},
		lfs.ActionVerify: {
			Href:      a.verifyURL(namespace),
			Header:    header,
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

	token, err := transfer.SignActionToken(a.keys, a.publicURL, key, a.lifetime)
	if err != nil {
		resp.Error = storageError(err)
		return resp
	}

	resp.Authenticated = true
	resp.Actions = map[string]*lfs.Link{
		lfs.ActionDownload: {
			Href: a.objectURL(namespace, oid),
			Header: map[string]string{
				"Authorization": "Bearer " + token,
			},
			ExpiresIn: int64(a.lifetime.Seconds()),
		},
	}

	return resp
}

func (a *Adapter) objectURL(namespace, oid string) string {
	return fmt.Sprintf("%s/%s/objects/storage/%s", a.publicURL, namespace, oid)
}

func (a *Adapter) verifyURL(namespace string) string {
	return fmt.Sprintf("%s/%s/objects/storage/verify", a.publicURL, namespace)
}

func storageError(err error) *lfs.ObjectError {
	return &lfs.ObjectError{
		Code:    http.StatusInternalServerError,
		Message: err.Error(),
	}
}

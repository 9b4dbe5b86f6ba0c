// Package transfer turns per-object batch requests into Git LFS action
// descriptors.
package transfer

import (
	"context"
	"fmt"
	"sync"

	"github.com/largo-sh/largo/pkg/config"
	"github.com/largo-sh/largo/pkg/lfs"
	"github.com/largo-sh/largo/pkg/storage"
)

// Adapter answers how a client should move one object's bytes. Upload and
// Download never fail as a whole; per-object problems are reported in the
// returned response's Error field so one bad object cannot fail its batch
// siblings.
type Adapter interface {
	Name() string
	Upload(ctx context.Context, namespace, oid string, size int64) *lfs.ObjectResponse
	Download(ctx context.Context, namespace, oid string, size int64) *lfs.ObjectResponse
}

// Constructor is a function that returns a new transfer adapter on top of
// the given storage backend.
type Constructor func(ctx context.Context, cfg *config.Config, s storage.Storage) (Adapter, error)

var (
	registry = map[string]Constructor{}
	mtx      sync.RWMutex

	// ErrAdapterNotFound is returned when a transfer adapter is not registered.
	ErrAdapterNotFound = fmt.Errorf("transfer adapter not found")
)

// Register registers a transfer adapter.
func Register(name string, fn Constructor) {
	mtx.Lock()
	defer mtx.Unlock()

	registry[name] = fn
}

// New returns a new transfer adapter for the given name.
func New(ctx context.Context, name string, cfg *config.Config, s storage.Storage) (Adapter, error) {
	mtx.RLock()
	fn, ok := registry[name]
	mtx.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrAdapterNotFound, name)
	}

	return fn(ctx, cfg, s)
}

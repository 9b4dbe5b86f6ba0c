package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/largo-sh/largo/pkg/config"
)

// Constructor is a function that returns a new storage backend.
type Constructor func(ctx context.Context, cfg *config.Config) (Storage, error)

var (
	registry = map[string]Constructor{}
	mtx      sync.RWMutex

	// ErrBackendNotFound is returned when a storage backend is not registered.
	ErrBackendNotFound = fmt.Errorf("storage backend not found")
)

// Register registers a storage backend.
func Register(name string, fn Constructor) {
	mtx.Lock()
	defer mtx.Unlock()

	registry[name] = fn
}

// New returns a new storage backend for the given name.
func New(ctx context.Context, name string, cfg *config.Config) (Storage, error) {
	mtx.RLock()
	fn, ok := registry[name]
	mtx.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBackendNotFound, name)
	}

	return fn(ctx, cfg)
}

// Package local provides a storage backend on the local filesystem.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/largo-sh/largo/pkg/config"
	"github.com/largo-sh/largo/pkg/storage"
)

func init() {
	storage.Register("local", newStorage)
}

// Storage stores objects on the local filesystem, one file per object under
// <root>/<prefix>/<namespace>/<oid> with no sidecar metadata.
type Storage struct {
	root   string
	prefix string
}

var _ storage.Storage = (*Storage)(nil)

// NewStorage creates a new local Storage rooted at root. The root directory
// is created when missing.
func NewStorage(root, prefix string) (*Storage, error) {
	if err := os.MkdirAll(root, os.ModePerm); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &Storage{root: root, prefix: prefix}, nil
}

func newStorage(_ context.Context, cfg *config.Config) (storage.Storage, error) {
	return NewStorage(cfg.Storage.Root, cfg.Storage.Prefix)
}

// Exists implements storage.Storage.
func (l *Storage) Exists(_ context.Context, key storage.ObjectKey) (bool, error) {
	_, err := os.Stat(l.path(key))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Size implements storage.Storage.
func (l *Storage) Size(_ context.Context, key storage.ObjectKey) (int64, error) {
	stat, err := os.Stat(l.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, fmt.Errorf("%w: %s", storage.ErrObjectNotFound, key)
		}
		return 0, err
	}
	return stat.Size(), nil
}

// Get implements storage.Storage.
func (l *Storage) Get(_ context.Context, key storage.ObjectKey) (io.ReadCloser, error) {
	f, err := os.Open(l.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", storage.ErrObjectNotFound, key)
		}
		return nil, err
	}
	return f, nil
}

// Put implements storage.Storage. The object is written to a temporary file
// first and renamed into place so concurrent writers never expose a partial
// object under the final path.
func (l *Storage) Put(_ context.Context, key storage.ObjectKey, r io.Reader) (int64, error) {
	name := l.path(key)
	if err := os.MkdirAll(filepath.Dir(name), os.ModePerm); err != nil {
		return 0, err
	}

	f, err := os.CreateTemp(filepath.Dir(name), filepath.Base(name)+".*")
	if err != nil {
		return 0, err
	}
	defer os.Remove(f.Name()) // nolint: errcheck

	written, err := io.Copy(f, r)
	if err != nil {
		f.Close() // nolint: errcheck
		return 0, err
	}
	if err := f.Close(); err != nil {
		return 0, err
	}
	if err := os.Rename(f.Name(), name); err != nil {
		return 0, err
	}
	return written, nil
}

// Replace all slashes with the OS-specific separator and root the blob path
// under the storage root.
func (l *Storage) path(key storage.ObjectKey) string {
	p := storage.BlobPath(l.prefix, key)
	p = strings.ReplaceAll(p, "/", string(os.PathSeparator))
	return filepath.Join(l.root, p)
}

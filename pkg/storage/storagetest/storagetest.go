// Package storagetest provides an in-memory storage backend for tests.
package storagetest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/largo-sh/largo/pkg/storage"
)

// Storage keeps objects in memory. Errs lets a test force an error per
// method name (exists, size, get, put, signedurl).
type Storage struct {
	mu      sync.Mutex
	objects map[string][]byte

	Errs map[string]error
}

var (
	_ storage.Storage         = (*Storage)(nil)
	_ storage.SignedURLIssuer = (*Storage)(nil)
)

// NewStorage returns an empty in-memory storage.
func NewStorage() *Storage {
	return &Storage{
		objects: make(map[string][]byte),
		Errs:    make(map[string]error),
	}
}

// Set stores content under key without going through Put.
func (s *Storage) Set(key storage.ObjectKey, content []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key.String()] = content
}

// Exists implements storage.Storage.
func (s *Storage) Exists(_ context.Context, key storage.ObjectKey) (bool, error) {
	if err := s.Errs["exists"]; err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key.String()]
	return ok, nil
}

// Size implements storage.Storage.
func (s *Storage) Size(_ context.Context, key storage.ObjectKey) (int64, error) {
	if err := s.Errs["size"]; err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.objects[key.String()]
	if !ok {
		return 0, fmt.Errorf("%w: %s", storage.ErrObjectNotFound, key)
	}
	return int64(len(b)), nil
}

// Get implements storage.Storage.
func (s *Storage) Get(_ context.Context, key storage.ObjectKey) (io.ReadCloser, error) {
	if err := s.Errs["get"]; err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.objects[key.String()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrObjectNotFound, key)
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

// Put implements storage.Storage.
func (s *Storage) Put(_ context.Context, key storage.ObjectKey, r io.Reader) (int64, error) {
	if err := s.Errs["put"]; err != nil {
		return 0, err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key.String()] = b
	return int64(len(b)), nil
}

// SignedURL implements storage.SignedURLIssuer. The URL encodes the method
// and key so tests can assert what was requested.
func (s *Storage) SignedURL(_ context.Context, key storage.ObjectKey, method string, expires time.Duration, filename string) (string, error) {
	if err := s.Errs["signedurl"]; err != nil {
		return "", err
	}
	q := url.Values{}
	q.Set("method", method)
	q.Set("expires", expires.String())
	if filename != "" {
		q.Set("filename", filename)
	}
	return fmt.Sprintf("https://blobs.test/%s?%s", key, q.Encode()), nil
}

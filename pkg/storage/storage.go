// Package storage defines the contract for Largo object storage backends.
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"time"
)

var (
	// ErrObjectNotFound is returned by Size and Get for a missing object.
	// All backends share this contract; none of them reports a missing
	// object as a zero-sized one.
	ErrObjectNotFound = errors.New("object not found")

	// ErrUnsupportedMethod is returned by SignedURL for methods other than
	// GET and PUT.
	ErrUnsupportedMethod = errors.New("unsupported method for signed URL")
)

// ObjectKey uniquely identifies one stored object. Namespace is an opaque
// hierarchical scope such as "org/repo"; Oid is the content address.
type ObjectKey struct {
	Namespace string
	Oid       string
}

// String returns the namespace segments joined with the oid.
func (k ObjectKey) String() string {
	return path.Join(k.Namespace, k.Oid)
}

// BlobPath resolves the storage location for key under an optional prefix.
// A leading separator on the prefix is stripped so it is always treated as
// relative to the backend's root.
func BlobPath(prefix string, key ObjectKey) string {
	return path.Join(strings.TrimPrefix(prefix, "/"), key.Namespace, key.Oid)
}

// Storage is an interface for storing and retrieving large objects. All
// operations are stateless; existence and size are queried live, never
// cached. Implementations must stream object bytes and never buffer a whole
// object in memory.
type Storage interface {
	// Exists reports whether the object is stored. It is side-effect-free
	// and returns (false, nil) for a missing object.
	Exists(ctx context.Context, key ObjectKey) (bool, error)

	// Size returns the stored size in bytes. A missing object is an error
	// wrapping ErrObjectNotFound.
	Size(ctx context.Context, key ObjectKey) (int64, error)

	// Get opens the object for reading. A missing object is an error
	// wrapping ErrObjectNotFound. The caller must close the reader.
	Get(ctx context.Context, key ObjectKey) (io.ReadCloser, error)

	// Put reads r to completion, stores it under key and returns the number
	// of bytes written. Missing namespace structure is created on demand.
	// Concurrent puts to the same key race with last-write-wins semantics.
	Put(ctx context.Context, key ObjectKey, r io.Reader) (int64, error)
}

// SignedURLIssuer is the capability of a backend that can hand out
// time-limited URLs granting direct access to a single object, bypassing the
// server. The method parameter selects the granted operation and must be
// http.MethodGet or http.MethodPut. If filename is non-empty, a download
// response served from the URL suggests it via a content-disposition
// directive.
type SignedURLIssuer interface {
	SignedURL(ctx context.Context, key ObjectKey, method string, expires time.Duration, filename string) (string, error)
}

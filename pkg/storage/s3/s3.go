// Package s3 provides a storage backend on any S3-compatible object store.
package s3

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/largo-sh/largo/pkg/config"
	"github.com/largo-sh/largo/pkg/storage"
)

func init() {
	storage.Register("s3", newStorage)
}

// Storage stores objects in a bucket on an S3-compatible store. It also
// issues presigned URLs so clients can move object bytes without going
// through the server.
type Storage struct {
	client *minio.Client
	bucket string
	prefix string
}

var (
	_ storage.Storage         = (*Storage)(nil)
	_ storage.SignedURLIssuer = (*Storage)(nil)
)

// NewStorage creates a new S3 Storage and provisions the bucket. Bucket
// creation is best-effort: an already-existing bucket is fine, any other
// failure is fatal.
func NewStorage(ctx context.Context, cfg config.S3Config, prefix string) (*Storage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}

	s := &Storage{
		client: client,
		bucket: cfg.Bucket,
		prefix: prefix,
	}

	if err := s.initBucket(ctx, cfg.Region); err != nil {
		return nil, err
	}

	return s, nil
}

func newStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	return NewStorage(ctx, cfg.S3, cfg.Storage.Prefix)
}

func (s *Storage) initBucket(ctx context.Context, region string) error {
	err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: region})
	if err != nil {
		// Swallow "already exists" conflicts, including buckets created
		// concurrently by another process.
		exists, errBucket := s.client.BucketExists(ctx, s.bucket)
		if errBucket == nil && exists {
			return nil
		}
		return fmt.Errorf("create bucket %q: %w", s.bucket, err)
	}
	return nil
}

// Exists implements storage.Storage.
func (s *Storage) Exists(ctx context.Context, key storage.ObjectKey) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, s.path(key), minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Size implements storage.Storage.
func (s *Storage) Size(ctx context.Context, key storage.ObjectKey) (int64, error) {
	info, err := s.client.StatObject(ctx, s.bucket, s.path(key), minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return 0, fmt.Errorf("%w: %s", storage.ErrObjectNotFound, key)
		}
		return 0, err
	}
	return info.Size, nil
}

// Get implements storage.Storage.
func (s *Storage) Get(ctx context.Context, key storage.ObjectKey) (io.ReadCloser, error) {
	// GetObject defers I/O to the first read, so probe first to report a
	// missing object up front.
	if _, err := s.client.StatObject(ctx, s.bucket, s.path(key), minio.StatObjectOptions{}); err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", storage.ErrObjectNotFound, key)
		}
		return nil, err
	}

	obj, err := s.client.GetObject(ctx, s.bucket, s.path(key), minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	return obj, nil
}

// Put implements storage.Storage. The object is uploaded in bounded parts,
// the size does not need to be known up front.
func (s *Storage) Put(ctx context.Context, key storage.ObjectKey, r io.Reader) (int64, error) {
	info, err := s.client.PutObject(ctx, s.bucket, s.path(key), r, -1, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return 0, err
	}
	return info.Size, nil
}

// SignedURL implements storage.SignedURLIssuer. The URL grants exactly one
// operation, selected by method, and expires after the given duration.
func (s *Storage) SignedURL(ctx context.Context, key storage.ObjectKey, method string, expires time.Duration, filename string) (string, error) {
	switch method {
	case http.MethodPut:
		u, err := s.client.PresignedPutObject(ctx, s.bucket, s.path(key), expires)
		if err != nil {
			return "", err
		}
		return u.String(), nil
	case http.MethodGet:
		params := make(url.Values)
		if filename != "" {
			params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", filename))
		}
		u, err := s.client.PresignedGetObject(ctx, s.bucket, s.path(key), expires, params)
		if err != nil {
			return "", err
		}
		return u.String(), nil
	default:
		return "", fmt.Errorf("%w: %s", storage.ErrUnsupportedMethod, method)
	}
}

func (s *Storage) path(key storage.ObjectKey) string {
	return storage.BlobPath(s.prefix, key)
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
}

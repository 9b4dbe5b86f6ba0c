package external

import (
	"context"
	"net/http"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matryer/is"

	"github.com/largo-sh/largo/pkg/config"
	"github.com/largo-sh/largo/pkg/lfs"
	"github.com/largo-sh/largo/pkg/storage"
	"github.com/largo-sh/largo/pkg/storage/storagetest"
	"github.com/largo-sh/largo/pkg/transfer"
)

func testAdapter(t *testing.T, strg storage.Storage) transfer.Adapter {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.HTTP.PublicURL = "https://largo.example"
	cfg.SigningKeyPath = filepath.Join(t.TempDir(), "largo_ed25519")
	a, err := newAdapter(context.TODO(), cfg, strg)
	if err != nil {
		t.Fatalf("newAdapter: %v", err)
	}
	return a
}

func TestRequiresSignedURLIssuer(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.SigningKeyPath = filepath.Join(t.TempDir(), "largo_ed25519")

	// Hide the signed URL method behind the plain storage interface.
	var plain struct{ storage.Storage }
	plain.Storage = storagetest.NewStorage()
	_, err := newAdapter(context.TODO(), cfg, plain)
	if err == nil {
		t.Fatal("err = nil, want error for backend without signed URLs")
	}
}

func TestUploadSignedURL(t *testing.T) {
	is := is.New(t)
	strg := storagetest.NewStorage()
	a := testAdapter(t, strg)

	resp := a.Upload(context.TODO(), "org/repo", "abc123", 42)
	is.Equal(resp.Error, nil)

	up, ok := resp.Actions[lfs.ActionUpload]
	is.True(ok)
	is.True(strings.HasPrefix(up.Href, "https://blobs.test/org/repo/abc123?"))
	is.True(strings.Contains(up.Href, "method=PUT"))
	is.Equal(up.Header["Content-Type"], "application/octet-stream")

	// Verification still runs through the server.
	verify, ok := resp.Actions[lfs.ActionVerify]
	is.True(ok)
	is.Equal(verify.Href, "https://largo.example/org/repo/objects/storage/verify")
	is.True(strings.HasPrefix(verify.Header["Authorization"], "Bearer "))
}

func TestUploadExistingObject(t *testing.T) {
	is := is.New(t)
	strg := storagetest.NewStorage()
	key := storage.ObjectKey{Namespace: "org/repo", Oid: "abc123"}
	strg.Set(key, []byte("same size"))
	a := testAdapter(t, strg)

	resp := a.Upload(context.TODO(), "org/repo", "abc123", int64(len("same size")))
	is.Equal(resp.Error, nil)
	is.Equal(len(resp.Actions), 0)
}

func TestDownloadSignedURL(t *testing.T) {
	is := is.New(t)
	strg := storagetest.NewStorage()
	key := storage.ObjectKey{Namespace: "org/repo", Oid: "abc123"}
	strg.Set(key, []byte("content"))
	a := testAdapter(t, strg)

	resp := a.Download(context.TODO(), "org/repo", "abc123", int64(len("content")))
	is.Equal(resp.Error, nil)
	is.True(resp.Authenticated)

	dl, ok := resp.Actions[lfs.ActionDownload]
	is.True(ok)
	is.True(strings.HasPrefix(dl.Href, "https://blobs.test/org/repo/abc123?"))
	is.True(strings.Contains(dl.Href, "method=GET"))
	is.Equal(len(dl.Header), 0)
}

func TestDownloadMissingObject(t *testing.T) {
	is := is.New(t)
	a := testAdapter(t, storagetest.NewStorage())

	resp := a.Download(context.TODO(), "org/repo", "abc123", 42)
	is.True(resp.Error != nil)
	is.Equal(resp.Error.Code, http.StatusNotFound)
	is.Equal(resp.Error.Message, "Object does not exist")
}

func TestDownloadSizeMismatch(t *testing.T) {
	is := is.New(t)
	strg := storagetest.NewStorage()
	key := storage.ObjectKey{Namespace: "org/repo", Oid: "abc123"}
	strg.Set(key, []byte("short"))
	a := testAdapter(t, strg)

	resp := a.Download(context.TODO(), "org/repo", "abc123", 999)
	is.True(resp.Error != nil)
	is.Equal(resp.Error.Code, http.StatusUnprocessableEntity)
	is.Equal(resp.Error.Message, "Object size does not match")
}

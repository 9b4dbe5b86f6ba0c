package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matryer/is"

	"github.com/largo-sh/largo/pkg/config"
	"github.com/largo-sh/largo/pkg/jwk"
	"github.com/largo-sh/largo/pkg/lfs"
	"github.com/largo-sh/largo/pkg/storage"
	"github.com/largo-sh/largo/pkg/storage/storagetest"
	"github.com/largo-sh/largo/pkg/transfer"

	_ "github.com/largo-sh/largo/pkg/transfer/basic"
)

type testEnv struct {
	server  *httptest.Server
	storage *storagetest.Storage
	cfg     *config.Config
	keys    jwk.Pair
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.HTTP.PublicURL = "https://largo.example"
	cfg.SigningKeyPath = filepath.Join(t.TempDir(), "largo_ed25519")

	strg := storagetest.NewStorage()
	ctx := config.WithContext(context.TODO(), cfg)
	adapter, err := transfer.New(ctx, "basic", cfg, strg)
	if err != nil {
		t.Fatalf("transfer.New: %v", err)
	}

	kp, err := jwk.NewPair(cfg)
	if err != nil {
		t.Fatalf("jwk.NewPair: %v", err)
	}

	ctx = storage.WithContext(ctx, strg)
	ctx = transfer.WithContext(ctx, adapter)
	ctx = jwk.WithContext(ctx, kp)
	srv := httptest.NewServer(NewRouter(ctx))
	t.Cleanup(srv.Close)

	return &testEnv{
		server:  srv,
		storage: strg,
		cfg:     cfg,
		keys:    kp,
	}
}

func (e *testEnv) token(t *testing.T, key storage.ObjectKey) string {
	t.Helper()
	token, err := transfer.SignActionToken(e.keys, e.cfg.HTTP.PublicURL, key, time.Minute)
	if err != nil {
		t.Fatalf("SignActionToken: %v", err)
	}
	return token
}

func (e *testEnv) batch(t *testing.T, namespace string, req lfs.BatchRequest) (*http.Response, *lfs.BatchResponse) {
	t.Helper()
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal batch request: %v", err)
	}

	r, err := http.NewRequest(http.MethodPost,
		fmt.Sprintf("%s/%s/objects/batch", e.server.URL, namespace),
		bytes.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	r.Header.Set("Content-Type", lfs.MediaType)
	r.Header.Set("Accept", lfs.MediaType)

	resp, err := e.server.Client().Do(r)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	if resp.StatusCode != http.StatusOK {
		return resp, nil
	}

	var batchResponse lfs.BatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&batchResponse); err != nil {
		t.Fatalf("decode batch response: %v", err)
	}
	return resp, &batchResponse
}

func TestBatchUpload(t *testing.T) {
	is := is.New(t)
	e := newTestEnv(t)
	e.storage.Set(storage.ObjectKey{Namespace: "org/repo", Oid: "stored"}, []byte("stored bytes"))

	resp, batch := e.batch(t, "org/repo", lfs.BatchRequest{
		Operation: lfs.OperationUpload,
		Objects: []lfs.Pointer{
			{Oid: "new", Size: 42},
			{Oid: "stored", Size: int64(len("stored bytes"))},
		},
	})
	is.Equal(resp.StatusCode, http.StatusOK)
	is.Equal(resp.Header.Get("Content-Type"), lfs.MediaType)
	is.Equal(batch.Transfer, lfs.TransferBasic)
	is.Equal(len(batch.Objects), 2)

	// Missing object gets upload and verify actions.
	up := batch.Objects[0]
	is.Equal(up.Oid, "new")
	is.True(up.Actions[lfs.ActionUpload] != nil)
	is.True(up.Actions[lfs.ActionVerify] != nil)

	// Stored object with matching size has nothing to do.
	is.Equal(batch.Objects[1].Oid, "stored")
	is.Equal(len(batch.Objects[1].Actions), 0)
	is.Equal(batch.Objects[1].Error, nil)
}

func TestBatchDownload(t *testing.T) {
	is := is.New(t)
	e := newTestEnv(t)
	e.storage.Set(storage.ObjectKey{Namespace: "org/repo", Oid: "stored"}, []byte("stored bytes"))

	resp, batch := e.batch(t, "org/repo", lfs.BatchRequest{
		Operation: lfs.OperationDownload,
		Objects: []lfs.Pointer{
			{Oid: "stored", Size: int64(len("stored bytes"))},
			{Oid: "missing", Size: 7},
			{Oid: "stored", Size: 999},
		},
	})
	is.Equal(resp.StatusCode, http.StatusOK)
	is.Equal(len(batch.Objects), 3)

	ok := batch.Objects[0]
	is.Equal(ok.Error, nil)
	is.True(ok.Authenticated)
	is.True(ok.Actions[lfs.ActionDownload] != nil)

	// A bad object never fails its batch siblings.
	missing := batch.Objects[1]
	is.True(missing.Error != nil)
	is.Equal(missing.Error.Code, http.StatusNotFound)
	is.Equal(missing.Error.Message, "Object does not exist")

	mismatch := batch.Objects[2]
	is.True(mismatch.Error != nil)
	is.Equal(mismatch.Error.Code, http.StatusUnprocessableEntity)
	is.Equal(mismatch.Error.Message, "Object size does not match")
}

func TestBatchContentType(t *testing.T) {
	e := newTestEnv(t)

	cases := []struct {
		name        string
		contentType string
		accept      string
		want        int
	}{
		{"lfs media type", lfs.MediaType, lfs.MediaType, http.StatusOK},
		// git-lfs clients append a charset parameter.
		{"charset parameter", lfs.MediaType + "; charset=utf-8", lfs.MediaType, http.StatusOK},
		{"plain json", "application/json", lfs.MediaType, http.StatusNotAcceptable},
		{"no accept", lfs.MediaType, "", http.StatusNotAcceptable},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			is := is.New(t)
			req, err := http.NewRequest(http.MethodPost,
				e.server.URL+"/org/repo/objects/batch",
				strings.NewReader(`{"operation":"download","objects":[]}`))
			is.NoErr(err)
			req.Header.Set("Content-Type", c.contentType)
			if c.accept != "" {
				req.Header.Set("Accept", c.accept)
			}

			resp, err := e.server.Client().Do(req)
			is.NoErr(err)
			defer resp.Body.Close()
			is.Equal(resp.StatusCode, c.want)
		})
	}
}

func TestBatchUnsupportedTransfer(t *testing.T) {
	is := is.New(t)
	e := newTestEnv(t)

	resp, _ := e.batch(t, "org/repo", lfs.BatchRequest{
		Operation: lfs.OperationDownload,
		Transfers: []string{"ssh"},
	})
	is.Equal(resp.StatusCode, http.StatusUnprocessableEntity)
}

func TestBatchUnsupportedOperation(t *testing.T) {
	is := is.New(t)
	e := newTestEnv(t)

	resp, _ := e.batch(t, "org/repo", lfs.BatchRequest{
		Operation: "delete",
		Objects:   []lfs.Pointer{{Oid: "abc", Size: 1}},
	})
	is.Equal(resp.StatusCode, http.StatusUnprocessableEntity)
}

func TestObjectsRoundTrip(t *testing.T) {
	is := is.New(t)
	e := newTestEnv(t)
	key := storage.ObjectKey{Namespace: "org/repo", Oid: "abc123"}
	content := []byte("large file content")

	url := fmt.Sprintf("%s/org/repo/objects/storage/abc123", e.server.URL)

	put, err := http.NewRequest(http.MethodPut, url, bytes.NewReader(content))
	is.NoErr(err)
	put.Header.Set("Content-Type", "application/octet-stream")
	put.Header.Set("Authorization", "Bearer "+e.token(t, key))

	resp, err := e.server.Client().Do(put)
	is.NoErr(err)
	resp.Body.Close()
	is.Equal(resp.StatusCode, http.StatusOK)

	get, err := http.NewRequest(http.MethodGet, url, nil)
	is.NoErr(err)
	get.Header.Set("Authorization", "Bearer "+e.token(t, key))

	resp, err = e.server.Client().Do(get)
	is.NoErr(err)
	defer resp.Body.Close()
	is.Equal(resp.StatusCode, http.StatusOK)

	got, err := io.ReadAll(resp.Body)
	is.NoErr(err)
	is.Equal(got, content)
}

func TestObjectsUnauthorized(t *testing.T) {
	is := is.New(t)
	e := newTestEnv(t)

	resp, err := e.server.Client().Get(
		fmt.Sprintf("%s/org/repo/objects/storage/abc123", e.server.URL))
	is.NoErr(err)
	defer resp.Body.Close()
	is.Equal(resp.StatusCode, http.StatusUnauthorized)
	is.True(strings.HasPrefix(resp.Header.Get("LFS-Authenticate"), "Bearer"))
}

func TestObjectsTokenScope(t *testing.T) {
	is := is.New(t)
	e := newTestEnv(t)

	// A token for one object does not open another.
	other := storage.ObjectKey{Namespace: "org/repo", Oid: "other"}
	get, err := http.NewRequest(http.MethodGet,
		fmt.Sprintf("%s/org/repo/objects/storage/abc123", e.server.URL), nil)
	is.NoErr(err)
	get.Header.Set("Authorization", "Bearer "+e.token(t, other))

	resp, err := e.server.Client().Do(get)
	is.NoErr(err)
	defer resp.Body.Close()
	is.Equal(resp.StatusCode, http.StatusForbidden)
}

func TestObjectsDownloadMissing(t *testing.T) {
	is := is.New(t)
	e := newTestEnv(t)
	key := storage.ObjectKey{Namespace: "org/repo", Oid: "abc123"}

	get, err := http.NewRequest(http.MethodGet,
		fmt.Sprintf("%s/org/repo/objects/storage/abc123", e.server.URL), nil)
	is.NoErr(err)
	get.Header.Set("Authorization", "Bearer "+e.token(t, key))

	resp, err := e.server.Client().Do(get)
	is.NoErr(err)
	defer resp.Body.Close()
	is.Equal(resp.StatusCode, http.StatusNotFound)
}

func TestObjectsUploadContentType(t *testing.T) {
	is := is.New(t)
	e := newTestEnv(t)
	key := storage.ObjectKey{Namespace: "org/repo", Oid: "abc123"}

	put, err := http.NewRequest(http.MethodPut,
		fmt.Sprintf("%s/org/repo/objects/storage/abc123", e.server.URL),
		strings.NewReader("content"))
	is.NoErr(err)
	put.Header.Set("Content-Type", "text/plain")
	put.Header.Set("Authorization", "Bearer "+e.token(t, key))

	resp, err := e.server.Client().Do(put)
	is.NoErr(err)
	defer resp.Body.Close()
	is.Equal(resp.StatusCode, http.StatusUnsupportedMediaType)
}

func TestObjectsUploadContentTypeParams(t *testing.T) {
	is := is.New(t)
	e := newTestEnv(t)
	key := storage.ObjectKey{Namespace: "org/repo", Oid: "abc123"}

	put, err := http.NewRequest(http.MethodPut,
		fmt.Sprintf("%s/org/repo/objects/storage/abc123", e.server.URL),
		strings.NewReader("content"))
	is.NoErr(err)
	put.Header.Set("Content-Type", "application/octet-stream; charset=binary")
	put.Header.Set("Authorization", "Bearer "+e.token(t, key))

	resp, err := e.server.Client().Do(put)
	is.NoErr(err)
	defer resp.Body.Close()
	is.Equal(resp.StatusCode, http.StatusOK)
}

func TestSigningKeyLoadedOnce(t *testing.T) {
	is := is.New(t)
	e := newTestEnv(t)
	key := storage.ObjectKey{Namespace: "org/repo", Oid: "abc123"}
	e.storage.Set(key, []byte("content"))
	token := e.token(t, key)

	// Authorization must run against the pair loaded at startup, not
	// reload the key file per request.
	is.NoErr(os.Remove(e.cfg.SigningKeyPath))

	get, err := http.NewRequest(http.MethodGet,
		fmt.Sprintf("%s/org/repo/objects/storage/abc123", e.server.URL), nil)
	is.NoErr(err)
	get.Header.Set("Authorization", "Bearer "+token)

	resp, err := e.server.Client().Do(get)
	is.NoErr(err)
	defer resp.Body.Close()
	is.Equal(resp.StatusCode, http.StatusOK)
}

func TestVerify(t *testing.T) {
	e := newTestEnv(t)
	e.storage.Set(storage.ObjectKey{Namespace: "org/repo", Oid: "stored"}, []byte("stored bytes"))

	cases := []struct {
		name    string
		pointer lfs.Pointer
		want    int
	}{
		{"stored", lfs.Pointer{Oid: "stored", Size: int64(len("stored bytes"))}, http.StatusOK},
		{"missing", lfs.Pointer{Oid: "missing", Size: 7}, http.StatusNotFound},
		{"size mismatch", lfs.Pointer{Oid: "stored", Size: 999}, http.StatusUnprocessableEntity},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			is := is.New(t)
			body, err := json.Marshal(c.pointer)
			is.NoErr(err)

			req, err := http.NewRequest(http.MethodPost,
				fmt.Sprintf("%s/org/repo/objects/storage/verify", e.server.URL),
				bytes.NewReader(body))
			is.NoErr(err)
			req.Header.Set("Content-Type", lfs.MediaType)
			req.Header.Set("Authorization", "Bearer "+e.token(t, storage.ObjectKey{Namespace: "org/repo", Oid: c.pointer.Oid}))

			resp, err := e.server.Client().Do(req)
			is.NoErr(err)
			defer resp.Body.Close()
			is.Equal(resp.StatusCode, c.want)
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	is := is.New(t)
	e := newTestEnv(t)

	resp, err := e.server.Client().Get(e.server.URL + "/org/repo/objects/batch")
	is.NoErr(err)
	defer resp.Body.Close()
	is.Equal(resp.StatusCode, http.StatusMethodNotAllowed)
}

func TestNotFound(t *testing.T) {
	is := is.New(t)
	e := newTestEnv(t)

	resp, err := e.server.Client().Get(e.server.URL + "/nope")
	is.NoErr(err)
	defer resp.Body.Close()
	is.Equal(resp.StatusCode, http.StatusNotFound)
}

func TestHealth(t *testing.T) {
	is := is.New(t)
	e := newTestEnv(t)

	for _, route := range []string{"/livez", "/readyz"} {
		resp, err := e.server.Client().Get(e.server.URL + route)
		is.NoErr(err)
		resp.Body.Close()
		is.Equal(resp.StatusCode, http.StatusOK)
	}
}

func TestRequestID(t *testing.T) {
	is := is.New(t)
	e := newTestEnv(t)

	resp, err := e.server.Client().Get(e.server.URL + "/livez")
	is.NoErr(err)
	defer resp.Body.Close()
	is.True(resp.Header.Get("X-Request-Id") != "")
}

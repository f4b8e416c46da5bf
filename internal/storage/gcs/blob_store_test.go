package gcs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func newTestStore(t *testing.T, handler http.Handler, cfg Config) *BlobStore {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := storage.NewClient(context.Background(),
		option.WithEndpoint(server.URL), option.WithoutAuthentication())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	store, err := New(client, cfg)
	require.NoError(t, err)
	return store
}

func TestPutObjectUploadsUnderPrefix(t *testing.T) {
	t.Parallel()

	var (
		mu        sync.Mutex
		gotName   string
		gotBody   string
		gotPath   string
		gotUpload string
	)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		mu.Lock()
		gotPath = r.URL.Path
		gotName = r.URL.Query().Get("name")
		gotUpload = r.URL.Query().Get("uploadType")
		gotBody = string(body)
		mu.Unlock()
		fmt.Fprintf(w, `{"name": %q, "bucket": "news"}`, r.URL.Query().Get("name"))
	})

	store := newTestStore(t, handler, Config{Bucket: "news", Prefix: "/harvests/"})
	uri, err := store.PutObject(context.Background(), "crawl.json", "application/json", strings.NewReader(`[{"headline":"x"}]`))
	require.NoError(t, err)
	assert.Equal(t, "gs://news/harvests/crawl.json", uri)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, gotPath, "/upload/storage/v1/b/news/o")
	assert.Equal(t, "harvests/crawl.json", gotName)
	assert.Equal(t, "multipart", gotUpload)
	assert.Contains(t, gotBody, `[{"headline":"x"}]`)
	assert.Contains(t, gotBody, "application/json")
}

func TestPutObjectServerError(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	store := newTestStore(t, handler, Config{Bucket: "news"})
	_, err := store.PutObject(context.Background(), "crawl.json", "", strings.NewReader("[]"))
	assert.Error(t, err)
}

func TestPutObjectRequiresPath(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, http.NotFoundHandler(), Config{Bucket: "news"})
	_, err := store.PutObject(context.Background(), "", "", strings.NewReader("[]"))
	assert.Error(t, err)
}

func TestNewValidates(t *testing.T) {
	t.Parallel()

	_, err := New(nil, Config{Bucket: "news"})
	assert.Error(t, err)

	client, err := storage.NewClient(context.Background(), option.WithoutAuthentication())
	require.NoError(t, err)
	defer func() { _ = client.Close() }()
	_, err = New(client, Config{})
	assert.Error(t, err)
}

func TestOpenChecksBucket(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/b/news") {
			fmt.Fprint(w, `{"name": "news"}`)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	opts := []option.ClientOption{option.WithEndpoint(server.URL), option.WithoutAuthentication()}
	store, err := Open(context.Background(), Config{Bucket: "news"}, opts...)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = Open(context.Background(), Config{Bucket: "missing"}, opts...)
	assert.Error(t, err)
}

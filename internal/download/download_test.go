package download

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingHandler struct {
	hits atomic.Int32
}

func (h *countingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.hits.Add(1)
	if r.URL.Path == "/missing.png" {
		http.NotFound(w, r)
		return
	}
	_, _ = w.Write([]byte("PNGDATA"))
}

type recordingHooks struct {
	prefix string
	posted []string
}

func (h *recordingHooks) Pre(_ context.Context, url string) (string, error) {
	return h.prefix + url, nil
}

func (h *recordingHooks) Post(_ context.Context, p string) error {
	h.posted = append(h.posted, p)
	return nil
}

func newDownloader(t *testing.T) *Downloader {
	t.Helper()
	return &Downloader{
		Dir:     t.TempDir(),
		BaseURL: "https://example.com",
		Upload:  "uploads",
	}
}

func TestAssetName(t *testing.T) {
	assert.Equal(t, "dune-9182a5a82be86d72bafbfbf47e4f77aa.jpg", AssetName("dune", "http://x.test/a.jpg"))
	assert.Equal(t, "x-0cc175b9c0f1b6a831c399e269772661", AssetName("x", "a"))
	assert.Equal(t, filepath.Ext(AssetName("s", "http://x.test/img.png?w=100")), ".png")
}

func TestFetch_Downloads(t *testing.T) {
	h := &countingHandler{}
	srv := httptest.NewServer(h)
	defer srv.Close()

	d := newDownloader(t)
	hk := &recordingHooks{}
	d.Hooks = hk

	value := srv.URL + "/a.png"
	res, err := d.Fetch(context.Background(), "item", value)
	require.NoError(t, err)

	assert.Equal(t, Downloaded, res.Status)
	assert.Equal(t, value, res.URL)
	assert.Equal(t, "https://example.com/uploads/"+AssetName("item", value), res.PublicURL)
	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, "PNGDATA", string(data))
	assert.Equal(t, []string{res.Path}, hk.posted)
}

func TestFetch_CachedSkipsRequest(t *testing.T) {
	h := &countingHandler{}
	srv := httptest.NewServer(h)
	defer srv.Close()

	d := newDownloader(t)
	value := srv.URL + "/a.png"

	_, err := d.Fetch(context.Background(), "item", value)
	require.NoError(t, err)
	res, err := d.Fetch(context.Background(), "item", value)
	require.NoError(t, err)

	assert.Equal(t, Cached, res.Status)
	assert.Equal(t, int32(1), h.hits.Load())

	d.Overwrite = true
	res, err = d.Fetch(context.Background(), "item", value)
	require.NoError(t, err)
	assert.Equal(t, Downloaded, res.Status)
	assert.Equal(t, int32(2), h.hits.Load())
}

func TestFetch_NotFoundIsIsolated(t *testing.T) {
	srv := httptest.NewServer(&countingHandler{})
	defer srv.Close()

	d := newDownloader(t)
	hk := &recordingHooks{}
	d.Hooks = hk

	res, err := d.Fetch(context.Background(), "item", srv.URL+"/missing.png")
	require.NoError(t, err)

	assert.Equal(t, Failed, res.Status)
	require.NotNil(t, res.Err)
	assert.Contains(t, res.Err.Error(), "HTTP 404")
	assert.NoFileExists(t, res.Path)
	assert.Empty(t, hk.posted)
}

func TestFetch_PreHookRewritesURL(t *testing.T) {
	srv := httptest.NewServer(&countingHandler{})
	defer srv.Close()

	d := newDownloader(t)
	d.Hooks = &recordingHooks{prefix: srv.URL}

	res, err := d.Fetch(context.Background(), "item", "/a.png")
	require.NoError(t, err)
	assert.Equal(t, Downloaded, res.Status)
	assert.Equal(t, srv.URL+"/a.png", res.URL)
	assert.Equal(t, AssetName("item", "/a.png"), res.Name)
}

type failingPre struct{}

func (failingPre) Pre(context.Context, string) (string, error) {
	return "", errors.New("hook failed")
}

func (failingPre) Post(context.Context, string) error { return nil }

func TestFetch_HookErrorIsReturned(t *testing.T) {
	d := newDownloader(t)
	d.Hooks = failingPre{}

	_, err := d.Fetch(context.Background(), "item", "http://x.test/a.png")
	assert.EqualError(t, err, "hook failed")
}

func TestFetch_InvalidURL(t *testing.T) {
	d := newDownloader(t)

	res, err := d.Fetch(context.Background(), "item", "::nope")
	require.NoError(t, err)
	assert.Equal(t, Failed, res.Status)
	assert.NotEmpty(t, res.Err.Hint)
}

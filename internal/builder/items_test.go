package builder

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cth/internal/config"
	"cth/internal/download"
	"cth/internal/records"
)

func imageServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cover.png" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("png"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestBuildItems_DownloadsImage(t *testing.T) {
	srv := imageServer(t)
	f := newFixture(t, baseProject, nil)
	b := f.builder(t, config.OverwriteNone)

	value := srv.URL + "/cover.png"
	col, err := b.BuildItems(context.Background(), source("books.csv",
		records.Row{"title": "Dune", "slug": "dune", "image": value},
	))
	require.NoError(t, err)

	name := download.AssetName("dune", value)
	public := "https://example.com/uploads/" + name
	assert.FileExists(t, f.layout.Upload+"/"+name)
	assert.Equal(t, "[Shelf]Dune|"+public+"|dune|../|true", f.read(t, "item/dune.html"))
	assert.Equal(t, public, col.Rows[0]["image"])
}

func TestBuildItems_FetchFailureIsIsolated(t *testing.T) {
	srv := imageServer(t)
	f := newFixture(t, baseProject, nil)
	b := f.builder(t, config.OverwriteNone)

	missing := srv.URL + "/missing.png"
	col, err := b.BuildItems(context.Background(), source("books.csv",
		records.Row{"title": "Dune", "slug": "dune", "image": missing},
		records.Row{"title": "Emma", "slug": "emma", "image": srv.URL + "/cover.png"},
	))
	require.NoError(t, err)

	assert.Equal(t, "[Shelf]Dune|"+missing+"|dune|../|false", f.read(t, "item/dune.html"))
	assert.Equal(t, missing, col.Rows[0]["image"])

	uploads, err := os.ReadDir(f.layout.Upload)
	require.NoError(t, err)
	require.Len(t, uploads, 1)
	assert.Equal(t, download.AssetName("emma", srv.URL+"/cover.png"), uploads[0].Name())
}

type uppercaseEach struct{ calls []string }

func (h *uppercaseEach) Pre(_ context.Context, rows []records.Row) ([]records.Row, error) {
	return append(rows, records.Row{"title": "Added", "slug": "added"}), nil
}

func (h *uppercaseEach) Each(_ context.Context, row records.Row) (records.Row, error) {
	h.calls = append(h.calls, row["title"])
	out := row.Clone()
	out["title"] = "<" + row["title"] + ">"
	return out, nil
}

func (h *uppercaseEach) Post(_ context.Context, rows []records.Row) ([]records.Row, error) {
	return rows[:1], nil
}

func TestBuildItems_BuildHooks(t *testing.T) {
	f := newFixture(t, baseProject, nil)
	b := f.builder(t, config.OverwriteNone)
	h := &uppercaseEach{}
	b.hooks.Build = h

	col, err := b.BuildItems(context.Background(), source("books.csv",
		records.Row{"title": "Dune", "slug": "dune"},
		records.Row{"title": "Emma", "slug": "emma"},
	))
	require.NoError(t, err)

	assert.Equal(t, []string{"Dune", "Emma", "Added"}, h.calls, "each runs in row order")
	assert.Equal(t, "[Shelf]&lt;Dune&gt;||dune|../|false", f.read(t, "item/dune.html"))
	assert.FileExists(t, f.layout.Item+"/added.html")
	assert.Equal(t, []records.Row{{"title": "<Dune>", "slug": "dune"}}, col.Rows)
	assert.Len(t, col.Items, 3)
}

// Package hooks defines the project extension points of a build: row
// transforms, template helpers and asset download callbacks. Every
// capability has a pass-through default; projects override them with
// declarative files under hooks/ that are loaded once at startup.
package hooks

import (
	"context"

	"cth/internal/records"
)

// BuildHooks transform rows around the item build.
type BuildHooks interface {
	// Pre receives every row of a data file before any item is built.
	Pre(ctx context.Context, rows []records.Row) ([]records.Row, error)
	// Each receives a single row after its asset download.
	Each(ctx context.Context, row records.Row) (records.Row, error)
	// Post receives every row of a data file after its items are rendered.
	Post(ctx context.Context, rows []records.Row) ([]records.Row, error)
}

// HelperHooks contribute named template helpers. Each value is a template
// rendered with {value, hash, this} when the helper is called.
type HelperHooks interface {
	Helpers() map[string]string
}

// DownloaderHooks surround the download of an item asset.
type DownloaderHooks interface {
	// Pre maps a column value to the URL that is fetched.
	Pre(ctx context.Context, url string) (string, error)
	// Post runs after the asset was written to localPath.
	Post(ctx context.Context, localPath string) error
}

// Set is the capability set injected into a build.
type Set struct {
	Build      BuildHooks
	Helpers    HelperHooks
	Downloader DownloaderHooks
}

// Defaults returns the pass-through hook set.
func Defaults() Set {
	return Set{
		Build:      NopBuild{},
		Helpers:    NopHelpers{},
		Downloader: NopDownloader{},
	}
}

// NopBuild returns rows unchanged.
type NopBuild struct{}

func (NopBuild) Pre(_ context.Context, rows []records.Row) ([]records.Row, error)  { return rows, nil }
func (NopBuild) Each(_ context.Context, row records.Row) (records.Row, error)      { return row, nil }
func (NopBuild) Post(_ context.Context, rows []records.Row) ([]records.Row, error) { return rows, nil }

// NopHelpers contributes no helpers.
type NopHelpers struct{}

func (NopHelpers) Helpers() map[string]string { return nil }

// NopDownloader fetches the column value as-is and does nothing afterwards.
type NopDownloader struct{}

func (NopDownloader) Pre(_ context.Context, url string) (string, error) { return url, nil }
func (NopDownloader) Post(context.Context, string) error                 { return nil }

// internal/builder/models.go
package builder

import (
	"time"

	"cth/internal/records"
)

// ItemState is the build state of one row. The row itself stays a plain
// column map so hooks see exactly the data file contents.
type ItemState struct {
	Index       int
	Row         records.Row
	Context     Context
	Slug        string
	Destination string
}

// ItemRef points at a rendered item page.
type ItemRef struct {
	Title string
	URL   string
	Row   records.Row
}

func (r ItemRef) value() map[string]any {
	return map[string]any{"title": r.Title, "url": r.URL, "item": r.Row}
}

// Collection is the outcome of building one data file.
type Collection struct {
	File    string
	LastMod time.Time
	// Rows are the rows returned by the post build hook.
	Rows []records.Row
	// Items are the pages written for the file, in row order.
	Items []ItemRef
}

func (c Collection) value() map[string]any {
	return map[string]any{
		"file":    c.File,
		"lastmod": c.LastMod.Unix(),
		"items":   c.Rows,
	}
}

// SitemapEntry is one url of sitemap.xml.
type SitemapEntry struct {
	URL     string
	LastMod string
}

func (e SitemapEntry) value() map[string]any {
	return map[string]any{"url": e.URL, "lastmod": e.LastMod}
}

// Bucket is one page of the alphabetical index.
type Bucket struct {
	Name  string
	Items []ItemRef
}

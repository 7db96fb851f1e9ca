// internal/builder/sitemap.go
package builder

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"cth/internal/config"
	"cth/internal/logfields"
	"cth/internal/util"
)

// LastModLayout formats sitemap lastmod dates.
const LastModLayout = "2006-01-02"

// NumericBucket collects titles that do not start with a latin letter.
const NumericBucket = "numeric"

// SitemapEntries lists the pages of meta.pages that have been rendered,
// sorted by name, followed by every item page.
func (b *Builder) SitemapEntries() ([]SitemapEntry, error) {
	site := b.project.SiteURL()

	names := make([]string, 0, len(b.project.Meta.Pages))
	for name := range b.project.Meta.Pages {
		names = append(names, name)
	}
	sort.Strings(names)

	var entries []SitemapEntry
	for _, name := range names {
		info, err := os.Stat(filepath.Join(b.layout.Dist, name+".html"))
		if err != nil {
			b.logger.Debug("page missing from sitemap", logfields.File(name+".html"), logfields.Error(err))
			continue
		}
		u, err := url.JoinPath(site, name+".html")
		if err != nil {
			return nil, err
		}
		entries = append(entries, SitemapEntry{URL: u, LastMod: info.ModTime().Format(LastModLayout)})
	}

	files, err := os.ReadDir(b.layout.Item)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading item directory: %w", err)
	}
	for _, f := range files {
		if f.IsDir() || filepath.Ext(f.Name()) != ".html" {
			continue
		}
		info, err := f.Info()
		if err != nil {
			return nil, err
		}
		u, err := url.JoinPath(site, b.project.Settings.Slug.Item, f.Name())
		if err != nil {
			return nil, err
		}
		entries = append(entries, SitemapEntry{URL: u, LastMod: info.ModTime().Format(LastModLayout)})
	}
	return entries, nil
}

// BuildSitemap renders sitemap.xml and its stylesheet.
func (b *Builder) BuildSitemap(_ context.Context) error {
	if !b.project.Settings.Sitemap {
		return nil
	}

	if b.hasTemplate(SitemapTemplate) {
		dst := filepath.Join(b.layout.Dist, "sitemap.xml")
		if b.shouldWrite(dst, config.OverwritePage) {
			entries, err := b.SitemapEntries()
			if err != nil {
				return fmt.Errorf("sitemap: %w", err)
			}
			values := make([]map[string]any, len(entries))
			for i, e := range entries {
				values[i] = e.value()
			}
			c, err := b.NewContext(map[string]any{
				"sitemaps": values,
				"is":       map[string]any{"sitemap": true},
				"basehref": "",
			}, nil)
			if err != nil {
				return err
			}
			if err := b.renderTo("sitemap", SitemapTemplate, dst, c); err != nil {
				return fmt.Errorf("sitemap: %w", err)
			}
		} else {
			b.skip("sitemap", dst)
		}
	}

	if b.hasTemplate(SitemapXSL) {
		dst := filepath.Join(b.layout.Dist, SitemapXSL)
		if util.FileExists(dst) && b.overwrite != config.OverwriteAll {
			b.skip("sitemap", dst)
			return nil
		}
		c, err := b.NewContext(map[string]any{"is": map[string]any{"sitemap": true}}, nil)
		if err != nil {
			return err
		}
		if err := b.renderTo("sitemap", SitemapXSL, dst, c); err != nil {
			return fmt.Errorf("sitemap stylesheet: %w", err)
		}
	}
	return nil
}

// BucketNames lists the alphabetical index buckets in order.
func BucketNames() []string {
	names := make([]string, 0, 27)
	for r := 'a'; r <= 'z'; r++ {
		names = append(names, string(r))
	}
	return append(names, NumericBucket)
}

// BucketOf returns the bucket of a title.
func BucketOf(title string) string {
	r, _ := utf8.DecodeRuneInString(title)
	if r = unicode.ToLower(r); r >= 'a' && r <= 'z' {
		return string(r)
	}
	return NumericBucket
}

// Bucketize groups refs by the first letter of their title. Every bucket
// is present and sorted by title.
func Bucketize(refs []ItemRef) []Bucket {
	names := BucketNames()
	index := make(map[string]int, len(names))
	buckets := make([]Bucket, len(names))
	for i, name := range names {
		index[name] = i
		buckets[i] = Bucket{Name: name}
	}
	for _, ref := range refs {
		i := index[BucketOf(ref.Title)]
		buckets[i].Items = append(buckets[i].Items, ref)
	}

	col := collate.New(language.English, collate.IgnoreCase)
	for i := range buckets {
		items := buckets[i].Items
		sort.SliceStable(items, func(a, b int) bool {
			return col.CompareString(items[a].Title, items[b].Title) < 0
		})
	}
	return buckets
}

// BuildAlphabetIndex renders one index page per bucket under the sitemap
// directory. Index pages are always rewritten.
func (b *Builder) BuildAlphabetIndex(ctx context.Context, collections []Collection) error {
	if !b.hasTemplate(AlphabetTemplate) {
		return nil
	}

	var refs []ItemRef
	for _, c := range collections {
		refs = append(refs, c.Items...)
	}
	names := BucketNames()
	base := b.project.Settings.Slug.Sitemap + "/index.html"

	for _, bucket := range Bucketize(refs) {
		if err := ctx.Err(); err != nil {
			return err
		}
		items := make([]map[string]any, len(bucket.Items))
		for i, ref := range bucket.Items {
			items[i] = ref.value()
		}
		c, err := b.NewContext(map[string]any{
			"letter":   bucket.Name,
			"items":    items,
			"buckets":  names,
			"is":       map[string]any{"sitemap": true},
			"basehref": util.ComputeBaseHref(base),
		}, b.project.Meta.Sitemap)
		if err != nil {
			return fmt.Errorf("index %s: %w", bucket.Name, err)
		}
		dst := filepath.Join(b.layout.Sitemap, bucket.Name+".html")
		if err := b.renderTo("alphabet", AlphabetTemplate, dst, c); err != nil {
			return fmt.Errorf("index %s: %w", bucket.Name, err)
		}
	}
	return nil
}

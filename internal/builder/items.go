// internal/builder/items.go
package builder

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"cth/internal/config"
	"cth/internal/download"
	"cth/internal/logfields"
	"cth/internal/records"
	"cth/internal/util"
)

// DefaultTitle names the aggregated page of a file without titled rows.
const DefaultTitle = "Untitled"

// BuildItems builds the item pages of one data file.
//
// Contexts and slugs are resolved in row order, assets are then fetched
// concurrently, the each hook runs in row order and pages finally render
// concurrently. The returned collection carries the rows after the post
// hook.
func (b *Builder) BuildItems(ctx context.Context, src *records.Source) (Collection, error) {
	rows := make([]records.Row, len(src.Rows))
	for i, row := range src.Rows {
		rows[i] = row.Clone()
	}

	rows, err := b.hooks.Build.Pre(ctx, rows)
	if err != nil {
		return Collection{}, err
	}

	states, err := b.resolveItems(rows)
	if err != nil {
		return Collection{}, fmt.Errorf("%s: %w", src.Name, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, st := range states {
		g.Go(func() error { return b.fetchAsset(gctx, st) })
	}
	if err := g.Wait(); err != nil {
		return Collection{}, fmt.Errorf("%s: %w", src.Name, err)
	}

	for _, st := range states {
		row, err := b.hooks.Build.Each(ctx, st.Row)
		if err != nil {
			return Collection{}, fmt.Errorf("%s: row %d: %w", src.Name, st.Index, err)
		}
		st.Row = row
	}

	all := make([]records.Row, len(states))
	for i, st := range states {
		all[i] = st.Row
	}

	var refs []ItemRef
	if b.project.Settings.Data.Multiple {
		refs, err = b.renderItems(ctx, states, all)
	} else {
		refs, err = b.renderAggregate(all)
	}
	if err != nil {
		return Collection{}, fmt.Errorf("%s: %w", src.Name, err)
	}

	out, err := b.hooks.Build.Post(ctx, all)
	if err != nil {
		return Collection{}, err
	}

	b.logger.Info("items built", logfields.File(src.Name), "rows", len(states), "pages", len(refs))
	return Collection{
		File:    src.Name,
		LastMod: src.ModTime,
		Rows:    out,
		Items:   refs,
	}, nil
}

// resolveItems builds every item context and slug in row order. An item
// without a slug takes the first slug resolved before it, or its index.
func (b *Builder) resolveItems(rows []records.Row) ([]*ItemState, error) {
	states := make([]*ItemState, len(rows))
	first := ""
	for i, row := range rows {
		slug := strconv.Itoa(i)
		rel := b.project.Settings.Slug.Item + "/" + slug + ".html"
		c, err := b.NewContext(map[string]any{
			"item":     row,
			"is":       map[string]any{"item": true},
			"basehref": util.ComputeBaseHref(rel),
		}, b.project.Meta.Item)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}

		switch s := c.Slug(); {
		case s != "":
			slug = s
			if first == "" {
				first = s
			}
		case first != "":
			slug = first
		}

		c["slug"] = slug
		states[i] = &ItemState{
			Index:       i,
			Row:         row,
			Context:     c,
			Slug:        slug,
			Destination: filepath.Join(b.layout.Item, slug+".html"),
		}
	}
	return states, nil
}

// fetchAsset downloads the image column of an item. Fetch failures leave
// the pre hook URL in the column and are not returned.
func (b *Builder) fetchAsset(ctx context.Context, st *ItemState) error {
	data := b.project.Settings.Data
	if !data.SaveImg || data.ImgColumn == "" {
		return nil
	}
	value, ok := st.Row[data.ImgColumn]
	if !ok || value == "" {
		return nil
	}

	res, err := b.downloader.Fetch(ctx, st.Slug, value)
	if err != nil {
		return fmt.Errorf("item %s: %w", st.Slug, err)
	}
	b.recorder.IncAsset(res.Status.String())

	switch res.Status {
	case download.Downloaded:
		st.Row[data.ImgColumn] = res.PublicURL
		st.Context.IsFlags()["imgdownloaded"] = true
	case download.Cached:
		st.Row[data.ImgColumn] = res.PublicURL
	default:
		st.Row[data.ImgColumn] = res.URL
	}
	st.Context["item"] = st.Row
	return nil
}

func (b *Builder) renderItems(ctx context.Context, states []*ItemState, all []records.Row) ([]ItemRef, error) {
	if !b.hasTemplate(ItemTemplate) {
		return nil, nil
	}

	// Rows sharing a slug share a page; the last of them is written.
	last := make(map[string]int, len(states))
	for i, st := range states {
		last[st.Destination] = i
	}

	var g errgroup.Group
	for i, st := range states {
		if last[st.Destination] != i {
			continue
		}
		if !b.shouldWrite(st.Destination, config.OverwriteItem) {
			b.skip("item", st.Destination)
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			c := st.Context.With(map[string]any{
				"item":  []records.Row{st.Row},
				"items": all,
			})
			if err := b.renderTo("item", ItemTemplate, st.Destination, c); err != nil {
				return fmt.Errorf("item %s: %w", st.Slug, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	refs := make([]ItemRef, 0, len(last))
	for i, st := range states {
		if last[st.Destination] != i {
			continue
		}
		refs = append(refs, b.itemRef(st.Row["title"], st.Slug, st.Row))
	}
	return refs, nil
}

// renderAggregate writes every row of a file into a single page named
// after the last titled row.
func (b *Builder) renderAggregate(all []records.Row) ([]ItemRef, error) {
	if !b.hasTemplate(ItemTemplate) {
		return nil, nil
	}

	title := DefaultTitle
	for _, row := range all {
		if t := row["title"]; strings.TrimSpace(t) != "" {
			title = t
		}
	}
	slug := Slugify(title)
	dst := filepath.Join(b.layout.Item, slug+".html")
	ref := b.itemRef(title, slug, nil)

	if !b.shouldWrite(dst, config.OverwriteItem) {
		b.skip("item", dst)
		return []ItemRef{ref}, nil
	}

	c, err := b.NewContext(map[string]any{
		"item":     all,
		"is":       map[string]any{"item": true},
		"basehref": util.ComputeBaseHref(b.project.Settings.Slug.Item + "/" + slug + ".html"),
	}, b.project.Meta.Item)
	if err != nil {
		return nil, err
	}
	c["slug"] = slug
	if err := b.renderTo("item", ItemTemplate, dst, c); err != nil {
		return nil, fmt.Errorf("item %s: %w", slug, err)
	}
	return []ItemRef{ref}, nil
}

func (b *Builder) itemRef(title, slug string, row records.Row) ItemRef {
	u, err := url.JoinPath(b.project.SiteURL(), b.project.Settings.Slug.Item, slug+".html")
	if err != nil {
		u = b.project.SiteURL() + "/" + b.project.Settings.Slug.Item + "/" + slug + ".html"
	}
	return ItemRef{Title: title, URL: u, Row: row}
}

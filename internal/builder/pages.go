// internal/builder/pages.go
package builder

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/frontmatter"

	"cth/internal/config"
	"cth/internal/logfields"
)

// Page source extensions.
const (
	PageHandlebars = ".hbs"
	PageMarkdown   = ".md"
)

// BuildHome renders the home page with every collection.
func (b *Builder) BuildHome(_ context.Context, collections []Collection) error {
	dst := filepath.Join(b.layout.Dist, "index.html")
	if !b.hasTemplate(HomeTemplate) {
		return nil
	}
	if !b.shouldWrite(dst, config.OverwritePage) {
		b.skip("home", dst)
		return nil
	}

	items := make([]map[string]any, len(collections))
	for i, c := range collections {
		items[i] = c.value()
	}
	c, err := b.NewContext(map[string]any{
		"items":    items,
		"is":       map[string]any{"home": true},
		"basehref": "",
	}, b.project.Meta.Home)
	if err != nil {
		return fmt.Errorf("home: %w", err)
	}
	if err := b.renderTo("home", HomeTemplate, dst, c); err != nil {
		return fmt.Errorf("home: %w", err)
	}
	return nil
}

// BuildPages renders every page source listed in meta.pages through the
// page template. Sources not listed are ignored.
func (b *Builder) BuildPages(ctx context.Context) error {
	if !b.hasTemplate(PageTemplate) {
		return nil
	}
	entries, err := os.ReadDir(b.layout.Pages)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading pages: %w", err)
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || (ext != PageHandlebars && ext != PageMarkdown) {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ext)
		meta, listed := b.project.Meta.Pages[name]
		if !listed {
			b.logger.Debug("page not listed in meta.pages", logfields.File(entry.Name()))
			continue
		}

		dst := filepath.Join(b.layout.Dist, name+".html")
		if !b.shouldWrite(dst, config.OverwritePage) {
			b.skip("page", dst)
			continue
		}
		if err := b.buildPage(filepath.Join(b.layout.Pages, entry.Name()), dst, meta); err != nil {
			return fmt.Errorf("page %s: %w", name, err)
		}
	}
	return nil
}

func (b *Builder) buildPage(src, dst string, meta map[string]any) error {
	raw, err := os.ReadFile(src)
	if err != nil {
		return err
	}

	fm := map[string]any{}
	body, err := frontmatter.Parse(bytes.NewReader(raw), &fm)
	if err != nil {
		return fmt.Errorf("parsing front matter: %w", err)
	}

	page := make(map[string]any, len(fm)+len(meta)+1)
	for k, v := range fm {
		page[k] = v
	}
	for k, v := range meta {
		page[k] = v
	}

	c, err := b.NewContext(map[string]any{
		"page":     page,
		"is":       map[string]any{"page": true},
		"basehref": "",
	}, meta)
	if err != nil {
		return err
	}

	content, err := b.engine.Render(string(body), map[string]any(c))
	if err != nil {
		return fmt.Errorf("rendering content: %w", err)
	}
	if filepath.Ext(src) == PageMarkdown {
		if content, err = b.engine.Markdown(content); err != nil {
			return err
		}
	}
	page["content"] = content

	return b.renderTo("page", PageTemplate, dst, c)
}

// BuildRobots renders robots.txt when enabled in the settings.
func (b *Builder) BuildRobots(_ context.Context) error {
	if !b.project.Settings.Robots || !b.hasTemplate(RobotsTemplate) {
		return nil
	}
	dst := filepath.Join(b.layout.Dist, "robots.txt")
	if !b.shouldWrite(dst, config.OverwritePage) {
		b.skip("robots", dst)
		return nil
	}

	c, err := b.NewContext(map[string]any{
		"is":       map[string]any{"robot": true},
		"basehref": "",
	}, nil)
	if err != nil {
		return err
	}
	if err := b.renderTo("robots", RobotsTemplate, dst, c); err != nil {
		return fmt.Errorf("robots: %w", err)
	}
	return nil
}

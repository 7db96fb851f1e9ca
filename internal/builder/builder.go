// internal/builder/builder.go
package builder

import (
	"log/slog"
	"os"
	"path/filepath"

	"cth/internal/config"
	"cth/internal/download"
	"cth/internal/hooks"
	"cth/internal/logfields"
	"cth/internal/metrics"
	"cth/internal/render"
	"cth/internal/util"
)

// Theme template names.
const (
	HomeTemplate     = "home.hbs"
	ItemTemplate     = "item.hbs"
	PageTemplate     = "page.hbs"
	SitemapTemplate  = "sitemap.hbs"
	SitemapXSL       = "sitemap.xsl"
	RobotsTemplate   = "robots.txt"
	AlphabetTemplate = "alphabet.hbs"
	AssetsDir        = "assets"
)

// Options wires a Builder.
type Options struct {
	Project    *config.Project
	Layout     config.Layout
	Engine     *render.Engine
	Hooks      hooks.Set
	Overwrite  config.Overwrite
	HTTPClient download.HTTPClient
	Recorder   metrics.Recorder
	Logger     *slog.Logger
}

// Builder renders the artifacts of one project run. Its methods are the
// build stages and are safe to call from concurrent tasks.
type Builder struct {
	project    *config.Project
	layout     config.Layout
	engine     *render.Engine
	hooks      hooks.Set
	downloader *download.Downloader
	overwrite  config.Overwrite
	recorder   metrics.Recorder
	logger     *slog.Logger
}

// New creates a Builder, filling unset hooks, recorder and logger with
// their defaults.
func New(opts Options) *Builder {
	defaults := hooks.Defaults()
	if opts.Hooks.Build == nil {
		opts.Hooks.Build = defaults.Build
	}
	if opts.Hooks.Helpers == nil {
		opts.Hooks.Helpers = defaults.Helpers
	}
	if opts.Hooks.Downloader == nil {
		opts.Hooks.Downloader = defaults.Downloader
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Builder{
		project: opts.Project,
		layout:  opts.Layout,
		engine:  opts.Engine,
		hooks:   opts.Hooks,
		downloader: &download.Downloader{
			Dir:       opts.Layout.Upload,
			BaseURL:   opts.Project.SiteURL(),
			Upload:    opts.Project.Settings.Slug.Upload,
			Overwrite: opts.Overwrite.Allows(config.OverwriteImage),
			Client:    opts.HTTPClient,
			Hooks:     opts.Hooks.Downloader,
			Logger:    opts.Logger,
		},
		overwrite: opts.Overwrite,
		recorder:  opts.Recorder,
		logger:    opts.Logger,
	}
}

// Prepare creates the output directories items and assets are written to.
func (b *Builder) Prepare() error {
	for _, dir := range []string{b.layout.Dist, b.layout.Upload, b.layout.Item} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

// shouldWrite reports whether dst may be (re)written under category c.
func (b *Builder) shouldWrite(dst string, c config.Overwrite) bool {
	return !util.FileExists(dst) || b.overwrite.Allows(c)
}

// renderTo renders a theme template into dst and records the result.
func (b *Builder) renderTo(kind, template, dst string, ctx Context) error {
	if err := b.engine.RenderFile(b.layout.ThemeFile(template), dst, map[string]any(ctx)); err != nil {
		return err
	}
	b.recorder.IncRender(kind, true)
	b.logger.Debug("rendered", slog.String("kind", kind), logfields.Path(b.rel(dst)))
	return nil
}

func (b *Builder) skip(kind, dst string) {
	b.recorder.IncRender(kind, false)
	b.logger.Debug("skipped existing output", slog.String("kind", kind), logfields.Path(b.rel(dst)))
}

func (b *Builder) hasTemplate(name string) bool {
	return util.FileExists(b.layout.ThemeFile(name))
}

func (b *Builder) rel(path string) string {
	if r, err := filepath.Rel(b.layout.Dist, path); err == nil {
		return filepath.ToSlash(r)
	}
	return path
}

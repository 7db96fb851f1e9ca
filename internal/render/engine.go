// Package render holds the template engine instance shared by every render
// of a build. Helpers and partials are fixed when the engine is created.
package render

import (
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"github.com/aymerick/raymond"
	"github.com/microcosm-cc/bluemonday"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/xml"
	"github.com/yuin/goldmark"

	"cth/internal/util"
)

// Partials that are always registered, empty when the theme lacks them.
var defaultPartials = []string{"header", "footer"}

// PartialsDir holds additional theme partials, registered by base name.
const PartialsDir = "partials"

// Options configure an Engine.
type Options struct {
	// ThemeDir is the theme root. Partials and include targets resolve
	// against it.
	ThemeDir string
	// Helpers are project helper templates keyed by helper name. They take
	// precedence over built-in helpers.
	Helpers map[string]string
	// Minify compacts .html, .css and .xml output files.
	Minify bool
	// Unsafe disables sanitizing of markdown output.
	Unsafe bool
}

// Engine renders templates with a fixed set of helpers and partials. It is
// safe for concurrent use.
type Engine struct {
	themeDir  string
	helpers   map[string]any
	partials  map[string]string
	minifier  *minify.M
	md        goldmark.Markdown
	autop     goldmark.Markdown
	sanitizer *bluemonday.Policy
	perm      func(n int) []int
}

// New creates an engine, loading theme partials from disk.
func New(opts Options) (*Engine, error) {
	e := &Engine{
		themeDir:  opts.ThemeDir,
		partials:  map[string]string{},
		md:        newMarkdown(false),
		autop:     newMarkdown(true),
		sanitizer: newSanitizer(opts.Unsafe),
		perm:      rand.Perm,
	}

	if opts.Minify {
		m := minify.New()
		m.Add("text/html", &html.Minifier{KeepDocumentTags: true, KeepEndTags: true, KeepQuotes: true})
		m.AddFunc("text/css", css.Minify)
		m.AddFunc("text/xml", xml.Minify)
		e.minifier = m
	}

	if err := e.loadPartials(); err != nil {
		return nil, err
	}

	e.helpers = e.builtinHelpers()
	for name, tpl := range opts.Helpers {
		if name == "" {
			return nil, fmt.Errorf("helper with empty name")
		}
		if _, err := raymond.Parse(tpl); err != nil {
			return nil, fmt.Errorf("parsing helper %s: %w", name, err)
		}
		e.helpers[name] = e.templateHelper(tpl)
	}
	return e, nil
}

func (e *Engine) loadPartials() error {
	for _, name := range defaultPartials {
		content, err := readOptional(filepath.Join(e.themeDir, name+".hbs"))
		if err != nil {
			return err
		}
		e.partials[name] = content
	}

	dir := filepath.Join(e.themeDir, PartialsDir)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading partials: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".hbs" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("reading partial %s: %w", entry.Name(), err)
		}
		e.partials[strings.TrimSuffix(entry.Name(), ".hbs")] = string(data)
	}
	return nil
}

func readOptional(path string) (string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}

// Render evaluates source against ctx.
func (e *Engine) Render(source string, ctx any) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("template: %v", r)
		}
	}()

	tpl, err := raymond.Parse(source)
	if err != nil {
		return "", err
	}
	tpl.RegisterHelpers(e.helpers)
	tpl.RegisterPartials(e.partials)
	return tpl.Exec(ctx)
}

// RenderFile renders the template at src into dst. With a nil ctx the file
// is copied verbatim. Output is minified according to the extension of dst.
func (e *Engine) RenderFile(src, dst string, ctx any) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("reading template: %w", err)
	}

	if ctx != nil {
		out, err := e.Render(string(data), ctx)
		if err != nil {
			return fmt.Errorf("rendering %s: %w", filepath.Base(src), err)
		}
		data = []byte(out)
	}

	if data, err = e.Minify(dst, data); err != nil {
		return err
	}
	return util.WriteFileAtomic(dst, data, 0o644)
}

var mediaTypes = map[string]string{
	".html": "text/html",
	".css":  "text/css",
	".xml":  "text/xml",
}

// Minify compacts data when minification is enabled and the extension of
// path is one the engine minifies.
func (e *Engine) Minify(path string, data []byte) ([]byte, error) {
	if e.minifier == nil {
		return data, nil
	}
	mediaType, ok := mediaTypes[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return data, nil
	}
	out, err := e.minifier.Bytes(mediaType, data)
	if err != nil {
		return nil, fmt.Errorf("minifying %s: %w", filepath.Base(path), err)
	}
	return out, nil
}

// internal/config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileName is the project configuration file at the project root.
const FileName = "project.json"

// Project holds the configuration from the project.json file.
// It is loaded once per run and treated as read-only afterwards.
type Project struct {
	Site     map[string]any `json:"site"`
	Meta     Meta           `json:"meta"`
	Settings Settings       `json:"settings"`

	// raw keeps the untyped trees handed to templates as site/meta/settings.
	raw map[string]any
}

// Meta is the metadata tree keyed by artifact kind. String values may
// contain template syntax that is resolved per artifact.
type Meta struct {
	Home    map[string]any            `json:"home"`
	Item    map[string]any            `json:"item"`
	Sitemap map[string]any            `json:"sitemap"`
	Pages   map[string]map[string]any `json:"pages"`
}

// Settings controls the build.
type Settings struct {
	Theme   string       `json:"theme"`
	Slug    SlugSettings `json:"slug"`
	Data    DataSettings `json:"data"`
	Sitemap bool         `json:"sitemap"`
	Robots  bool         `json:"robots"`
	Minify  bool         `json:"minify"`
	Unsafe  bool         `json:"unsafe"`
}

// SlugSettings names the output path segments under dist/.
type SlugSettings struct {
	Upload  string `json:"upload"`
	Item    string `json:"item"`
	Sitemap string `json:"sitemap"`
}

// DataSettings describes how rows become items.
type DataSettings struct {
	Multiple  bool   `json:"multiple"`
	ImgColumn string `json:"imgcolumn"`
	SaveImg   bool   `json:"saveimg"`
	Delimiter string `json:"delimiter"`
}

// SiteURL returns site.url without a trailing slash.
func (p *Project) SiteURL() string {
	u, _ := p.Site["url"].(string)
	return strings.TrimRight(u, "/")
}

// Fields returns the project-wide template fields. The maps are shared,
// callers must not mutate them.
func (p *Project) Fields() map[string]any {
	return map[string]any{
		"site":     p.raw["site"],
		"meta":     p.raw["meta"],
		"settings": p.raw["settings"],
	}
}

// Load reads, defaults and validates root/project.json. A .env file next to
// it may override site.url and settings.theme.
func Load(root string) (*Project, error) {
	path := filepath.Join(root, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read config file at %s: %w", path, err)
	}
	if err := loadEnv(root); err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes project.json content, applies environment overrides and
// defaults, and validates the result.
func Parse(data []byte) (*Project, error) {
	var p Project
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("could not parse %s: %w", FileName, err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("could not parse %s: %w", FileName, err)
	}
	p.raw = raw

	applyEnv(&p)
	applyDefaults(&p)

	if errs := Validate(&p); len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}
	return &p, nil
}

func applyDefaults(p *Project) {
	if p.Site == nil {
		p.Site = map[string]any{}
	}
	if p.Slug().Upload == "" {
		p.Settings.Slug.Upload = "uploads"
	}
	if p.Slug().Item == "" {
		p.Settings.Slug.Item = "item"
	}
	if p.Slug().Sitemap == "" {
		p.Settings.Slug.Sitemap = "sitemap"
	}
	if p.Settings.Data.Delimiter == "" {
		p.Settings.Data.Delimiter = ","
	}
	if p.Meta.Pages == nil {
		p.Meta.Pages = map[string]map[string]any{}
	}

	// Templates see the defaulted values too.
	site, _ := p.raw["site"].(map[string]any)
	if site == nil {
		site = map[string]any{}
	}
	for k, v := range p.Site {
		site[k] = v
	}
	p.raw["site"] = site

	settings, _ := p.raw["settings"].(map[string]any)
	if settings == nil {
		settings = map[string]any{}
	}
	settings["theme"] = p.Settings.Theme
	settings["slug"] = map[string]any{
		"upload":  p.Settings.Slug.Upload,
		"item":    p.Settings.Slug.Item,
		"sitemap": p.Settings.Slug.Sitemap,
	}
	p.raw["settings"] = settings

	if _, ok := p.raw["meta"].(map[string]any); !ok {
		p.raw["meta"] = map[string]any{}
	}
}

// Slug is a shorthand for Settings.Slug.
func (p *Project) Slug() SlugSettings {
	return p.Settings.Slug
}

// ValidationError holds multiple validation failures.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// Validate checks a Project for semantic correctness.
// Returns a list of validation error messages (empty if valid).
func Validate(p *Project) []string {
	var errs []string

	if p.SiteURL() == "" {
		errs = append(errs, "site.url is required; add \"url\": \"https://...\" to the site block")
	}
	if p.Settings.Theme == "" {
		errs = append(errs, "settings.theme is required; name a directory under themes/")
	} else if strings.ContainsAny(p.Settings.Theme, `/\`) {
		errs = append(errs, fmt.Sprintf("settings.theme '%s' must be a directory name, not a path", p.Settings.Theme))
	}

	for name, seg := range map[string]string{
		"upload":  p.Settings.Slug.Upload,
		"item":    p.Settings.Slug.Item,
		"sitemap": p.Settings.Slug.Sitemap,
	} {
		if strings.Contains(seg, "..") || filepath.IsAbs(seg) {
			errs = append(errs, fmt.Sprintf("settings.slug.%s '%s' must stay inside dist/", name, seg))
		}
	}

	if len([]rune(p.Settings.Data.Delimiter)) != 1 {
		errs = append(errs, fmt.Sprintf("settings.data.delimiter '%s' must be a single character", p.Settings.Data.Delimiter))
	}
	if p.Settings.Data.SaveImg && p.Settings.Data.ImgColumn == "" {
		errs = append(errs, "settings.data.saveimg requires settings.data.imgcolumn")
	}

	return errs
}

package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"cth/internal/util"
)

// Project directory names.
const (
	DataDir   = "csv"
	DistDir   = "dist"
	HooksDir  = "hooks"
	PagesDir  = "pages"
	ThemesDir = "themes"
)

// ErrNotProject is returned when the working directory lacks the project markers.
var ErrNotProject = errors.New("not inside a project folder")

// Layout resolves every directory a build reads from or writes to.
type Layout struct {
	Root    string
	Data    string
	Dist    string
	Hooks   string
	Pages   string
	Theme   string
	Upload  string
	Item    string
	Sitemap string
}

// NewLayout derives the build layout from the project root and settings.
func NewLayout(root string, s Settings) Layout {
	dist := filepath.Join(root, DistDir)
	return Layout{
		Root:    root,
		Data:    filepath.Join(root, DataDir),
		Dist:    dist,
		Hooks:   filepath.Join(root, HooksDir),
		Pages:   filepath.Join(root, PagesDir),
		Theme:   filepath.Join(root, ThemesDir, s.Theme),
		Upload:  filepath.Join(dist, s.Slug.Upload),
		Item:    filepath.Join(dist, s.Slug.Item),
		Sitemap: filepath.Join(dist, s.Slug.Sitemap),
	}
}

// ThemeFile returns the path of a file inside the theme directory.
func (l Layout) ThemeFile(name string) string {
	return filepath.Join(l.Theme, name)
}

// CheckProject verifies that root holds the markers a build needs:
// project.json, the data directory and the themes directory.
func CheckProject(root string) error {
	var missing []string
	if !util.FileExists(filepath.Join(root, FileName)) {
		missing = append(missing, FileName)
	}
	for _, dir := range []string{DataDir, ThemesDir} {
		if !util.DirExists(filepath.Join(root, dir)) {
			missing = append(missing, dir+"/")
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s in %s", ErrNotProject, strings.Join(missing, ", "), root)
	}
	return nil
}

// IsInitialized reports whether dir already carries every project marker.
func IsInitialized(dir string) bool {
	if !util.FileExists(filepath.Join(dir, FileName)) {
		return false
	}
	for _, d := range []string{DataDir, DistDir, HooksDir, PagesDir, ThemesDir} {
		if !util.DirExists(filepath.Join(dir, d)) {
			return false
		}
	}
	return true
}

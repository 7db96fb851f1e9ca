// internal/scaffold/scaffold.go
package scaffold

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/gosimple/slug"

	"cth/internal/config"
	"cth/internal/logfields"
	"cth/internal/util"
)

//go:embed all:template
var templateFS embed.FS

var (
	ErrNameRequired       = errors.New("project name is required")
	ErrDirExists          = errors.New("directory already exists")
	ErrAlreadyInitialized = errors.New("current directory is already a project")
)

// placeholder files keep empty directories in the embedded tree.
const placeholder = ".gitkeep"

// Result describes a scaffolded project.
type Result struct {
	Name  string
	Dir   string
	Files int
}

// Template returns the embedded project tree.
func Template() fs.FS {
	sub, err := fs.Sub(templateFS, "template")
	if err != nil {
		panic(err)
	}
	return sub
}

// New creates cwd/<slug(name)> from the embedded project tree.
func New(cwd, name string, logger *slog.Logger) (Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	projectName := slug.Make(name)
	if projectName == "" {
		return Result{}, ErrNameRequired
	}
	dir := filepath.Join(cwd, projectName)

	if _, err := os.Stat(dir); err == nil {
		return Result{}, fmt.Errorf("'%s': %w", projectName, ErrDirExists)
	}
	if config.IsInitialized(cwd) {
		return Result{}, ErrAlreadyInitialized
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return Result{}, fmt.Errorf("creating %s: %w", dir, err)
	}
	files, err := util.CopyTree(Template(), dir, util.CopyOptions{
		Exclude: func(rel string, d fs.DirEntry) bool {
			return !d.IsDir() && path.Base(rel) == placeholder
		},
	})
	if err != nil {
		return Result{}, fmt.Errorf("scaffolding %s: %w", projectName, err)
	}

	logger.Info("project created", logfields.Path(dir), slog.Int("files", files))
	return Result{Name: projectName, Dir: dir, Files: files}, nil
}

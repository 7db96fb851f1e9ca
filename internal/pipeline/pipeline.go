// Package pipeline wires a project build into a task graph and runs it.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"cth/internal/builder"
	"cth/internal/config"
	"cth/internal/download"
	"cth/internal/hooks"
	"cth/internal/logfields"
	"cth/internal/metrics"
	"cth/internal/records"
	"cth/internal/render"
	"cth/internal/util"
)

// Stage names.
const (
	StageLoad     = "load"
	StageItems    = "items"
	StageHome     = "home"
	StagePages    = "pages"
	StageSitemap  = "sitemap"
	StageRobots   = "robots"
	StageAssets   = "assets"
	StageAlphabet = "alphabet"
)

// Options configure a build.
type Options struct {
	Root       string
	Selector   string
	Clean      bool
	Overwrite  config.Overwrite
	HTTPClient download.HTTPClient
	Recorder   metrics.Recorder
	Logger     *slog.Logger
}

// Result summarizes a build.
type Result struct {
	Files       []string
	Collections []builder.Collection
	Duration    time.Duration
}

// Run builds the project at opts.Root.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	start := time.Now()
	res, err := run(ctx, opts)
	dur := time.Since(start)

	opts.Recorder.ObserveBuildDuration(dur)
	if err != nil {
		opts.Recorder.IncBuildOutcome("failed")
		return nil, err
	}
	opts.Recorder.IncBuildOutcome("success")
	res.Duration = dur
	opts.Logger.Info("build finished", "files", len(res.Files), logfields.Duration(dur))
	return res, nil
}

func run(ctx context.Context, opts Options) (*Result, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, err
	}
	if err := config.CheckProject(root); err != nil {
		return nil, err
	}
	project, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	layout := config.NewLayout(root, project.Settings)
	if !util.DirExists(layout.Theme) {
		return nil, fmt.Errorf("theme %q not found in %s", project.Settings.Theme, filepath.Dir(layout.Theme))
	}

	files, err := records.Discover(layout.Data, opts.Selector)
	if err != nil {
		return nil, err
	}

	hookSet, err := hooks.Load(layout.Hooks, root)
	if err != nil {
		return nil, err
	}
	engine, err := render.New(render.Options{
		ThemeDir: layout.Theme,
		Helpers:  hookSet.Helpers.Helpers(),
		Minify:   project.Settings.Minify,
		Unsafe:   project.Settings.Unsafe,
	})
	if err != nil {
		return nil, err
	}

	if opts.Clean {
		opts.Logger.Info("cleaning output directory", logfields.Path(layout.Dist))
		if err := util.CleanDir(layout.Dist); err != nil {
			return nil, fmt.Errorf("cleaning %s: %w", layout.Dist, err)
		}
	}

	b := builder.New(builder.Options{
		Project:    project,
		Layout:     layout,
		Engine:     engine,
		Hooks:      hookSet,
		Overwrite:  opts.Overwrite,
		HTTPClient: opts.HTTPClient,
		Recorder:   opts.Recorder,
		Logger:     opts.Logger,
	})
	if err := b.Prepare(); err != nil {
		return nil, err
	}

	g, collections := newBuildGraph(b, project, files, opts)
	if err := g.Run(ctx); err != nil {
		return nil, err
	}
	return &Result{Files: files, Collections: collections}, nil
}

// newBuildGraph lays out the stages: every file loads and builds its items
// independently; home, pages, sitemap and robots then run in sequence
// while assets and the alphabetical index branch off the item builds.
func newBuildGraph(b *builder.Builder, project *config.Project, files []string, opts Options) (*Graph, []builder.Collection) {
	g := NewGraph(opts.Recorder, opts.Logger)
	delimiter := []rune(project.Settings.Data.Delimiter)[0]

	sources := make([]*records.Source, len(files))
	collections := make([]builder.Collection, len(files))
	itemTasks := make([]string, len(files))

	for i, path := range files {
		name := filepath.Base(path)
		loadTask := StageLoad + ":" + name
		itemTasks[i] = StageItems + ":" + name

		mustAdd(g, Task{
			Name:  loadTask,
			Stage: StageLoad,
			Run: func(context.Context) error {
				src, err := records.Load(path, delimiter)
				if err != nil {
					return err
				}
				sources[i] = src
				return nil
			},
		})
		mustAdd(g, Task{
			Name:  itemTasks[i],
			Stage: StageItems,
			Deps:  []string{loadTask},
			Run: func(ctx context.Context) error {
				col, err := b.BuildItems(ctx, sources[i])
				if err != nil {
					return err
				}
				collections[i] = col
				return nil
			},
		})
	}

	mustAdd(g, Task{
		Name: StageHome,
		Deps: itemTasks,
		Run:  func(ctx context.Context) error { return b.BuildHome(ctx, collections) },
	})
	mustAdd(g, Task{
		Name:     StageAssets,
		Deps:     itemTasks,
		Optional: true,
		Run: func(ctx context.Context) error {
			_, err := b.CopyAssets(ctx)
			return err
		},
	})
	mustAdd(g, Task{
		Name:     StageAlphabet,
		Deps:     itemTasks,
		Optional: true,
		Run:      func(ctx context.Context) error { return b.BuildAlphabetIndex(ctx, collections) },
	})
	mustAdd(g, Task{Name: StagePages, Deps: []string{StageHome}, Run: b.BuildPages})
	mustAdd(g, Task{Name: StageSitemap, Deps: []string{StagePages}, Run: b.BuildSitemap})
	mustAdd(g, Task{Name: StageRobots, Deps: []string{StageSitemap}, Run: b.BuildRobots})
	return g, collections
}

func mustAdd(g *Graph, t Task) {
	if err := g.Add(t); err != nil {
		panic(err)
	}
}

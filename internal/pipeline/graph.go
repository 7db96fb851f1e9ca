package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"cth/internal/logfields"
	"cth/internal/metrics"
)

// StageError wraps the failure of one task.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Task is a node of the build graph.
type Task struct {
	Name string
	// Stage labels metrics; it defaults to Name.
	Stage string
	Deps  []string
	// Optional tasks do not cancel the run when they fail. Their failure is
	// still part of the result.
	Optional bool
	Run      func(ctx context.Context) error
}

type node struct {
	Task
	done    chan struct{}
	err     error
	skipped bool
}

// Graph runs tasks once all of their dependencies have succeeded. A graph
// runs once.
type Graph struct {
	nodes    map[string]*node
	order    []string
	recorder metrics.Recorder
	logger   *slog.Logger
}

// NewGraph creates an empty graph.
func NewGraph(recorder metrics.Recorder, logger *slog.Logger) *Graph {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Graph{nodes: map[string]*node{}, recorder: recorder, logger: logger}
}

// Add registers a task. Dependencies may be added later.
func (g *Graph) Add(t Task) error {
	if t.Name == "" || t.Run == nil {
		return errors.New("task needs a name and a run function")
	}
	if _, dup := g.nodes[t.Name]; dup {
		return fmt.Errorf("task %s registered twice", t.Name)
	}
	if t.Stage == "" {
		t.Stage = t.Name
	}
	g.nodes[t.Name] = &node{Task: t, done: make(chan struct{})}
	g.order = append(g.order, t.Name)
	return nil
}

func (g *Graph) validate() error {
	for _, name := range g.order {
		for _, dep := range g.nodes[name].Deps {
			if _, ok := g.nodes[dep]; !ok {
				return fmt.Errorf("task %s depends on unknown task %s", name, dep)
			}
		}
	}

	const (
		unvisited = iota
		visiting
		visited
	)
	state := make(map[string]int, len(g.nodes))
	var visit func(string) error
	visit = func(name string) error {
		switch state[name] {
		case visiting:
			return fmt.Errorf("dependency cycle through task %s", name)
		case visited:
			return nil
		}
		state[name] = visiting
		for _, dep := range g.nodes[name].Deps {
			if err := visit(dep); err != nil {
				return err
			}
		}
		state[name] = visited
		return nil
	}
	for _, name := range g.order {
		if err := visit(name); err != nil {
			return err
		}
	}
	return nil
}

// Run executes every task concurrently in dependency order. A failing
// task that is not optional cancels the context of the others. Dependents
// of a failed task are skipped. The result joins the failures of every
// task that ran.
func (g *Graph) Run(ctx context.Context) error {
	if err := g.validate(); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for _, name := range g.order {
		n := g.nodes[name]
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer close(n.done)
			g.run(runCtx, cancel, n)
		}()
	}
	wg.Wait()

	var errs []error
	skipped := false
	for _, name := range g.order {
		n := g.nodes[name]
		switch {
		case n.skipped:
			skipped = true
		case n.err != nil:
			errs = append(errs, n.err)
		}
	}
	if len(errs) == 0 && skipped {
		return ctx.Err()
	}
	return errors.Join(errs...)
}

func (g *Graph) run(ctx context.Context, cancel context.CancelFunc, n *node) {
	for _, dep := range n.Deps {
		d := g.nodes[dep]
		<-d.done
		if d.err != nil {
			g.skip(n, fmt.Errorf("dependency %s failed", dep))
			return
		}
	}
	if err := ctx.Err(); err != nil {
		g.skip(n, err)
		return
	}

	g.logger.Debug("stage started", logfields.Stage(n.Name))
	start := time.Now()
	err := n.Run(ctx)
	dur := time.Since(start)
	g.recorder.ObserveStageDuration(n.Stage, dur)

	if err != nil && errors.Is(err, context.Canceled) && ctx.Err() != nil {
		g.skip(n, err)
		return
	}
	if err != nil {
		n.err = &StageError{Stage: n.Name, Err: err}
		g.recorder.IncStageResult(n.Stage, metrics.ResultFailed)
		if n.Optional {
			g.logger.Warn("stage failed", logfields.Stage(n.Name), logfields.Duration(dur), logfields.Error(err))
		} else {
			g.logger.Error("stage failed", logfields.Stage(n.Name), logfields.Duration(dur), logfields.Error(err))
			cancel()
		}
		return
	}
	g.recorder.IncStageResult(n.Stage, metrics.ResultSuccess)
	g.logger.Info("stage finished", logfields.Stage(n.Name), logfields.Duration(dur))
}

func (g *Graph) skip(n *node, reason error) {
	n.err = reason
	n.skipped = true
	g.recorder.IncStageResult(n.Stage, metrics.ResultSkipped)
	g.logger.Debug("stage skipped", logfields.Stage(n.Name), logfields.Error(reason))
}

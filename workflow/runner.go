// Package workflow runs graphs of file-producing tasks: a task whose output
// already exists is complete, requirements run before their dependents and
// independent tasks run concurrently.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/wgdzlh/datacube/log"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

var ErrCycle = errors.New("task graph has a cycle")

type Task interface {
	// ID identifies the task; tasks with equal ids are run once.
	ID() string
	Requires() []Task
	// Output is the file the task produces, empty when it has none.
	Output() string
	Run(ctx context.Context) error
}

// Complete reports whether the task's output already exists.
func Complete(t Task) bool {
	out := t.Output()
	if out == "" {
		return false
	}
	_, err := os.Stat(out)
	return err == nil
}

type Runner struct {
	Workers int
}

type Stats struct {
	RunID   string
	Ran     int64
	Skipped int64
}

type node struct {
	task Task
	deps []*node
	done chan struct{}
	ok   bool
}

// build walks the graph depth first, deduplicating by id.
func build(roots []Task) (nodes []*node, err error) {
	var (
		byID    = map[string]*node{}
		visit   func(t Task) (*node, error)
		onStack = map[string]bool{}
	)
	visit = func(t Task) (*node, error) {
		id := t.ID()
		if onStack[id] {
			return nil, fmt.Errorf("%w at %s", ErrCycle, id)
		}
		if n, ok := byID[id]; ok {
			return n, nil
		}
		onStack[id] = true
		n := &node{task: t, done: make(chan struct{})}
		var reqs []Task
		// requirements of a complete task are not needed
		if !Complete(t) {
			reqs = t.Requires()
		}
		for _, r := range reqs {
			d, err := visit(r)
			if err != nil {
				return nil, err
			}
			n.deps = append(n.deps, d)
		}
		onStack[id] = false
		byID[id] = n
		nodes = append(nodes, n)
		return n, nil
	}
	for _, r := range roots {
		if _, err = visit(r); err != nil {
			return
		}
	}
	return
}

// Run executes the graph below roots. The first failing task cancels the
// rest and its error is returned.
func (r *Runner) Run(ctx context.Context, roots ...Task) (stats Stats, err error) {
	stats.RunID = uuid.NewString()
	nodes, err := build(roots)
	if err != nil {
		return
	}
	workers := r.Workers
	if workers < 1 {
		workers = 1
	}
	log.Info("Workflow:run start", zap.String("run", stats.RunID), zap.Int("tasks", len(nodes)), zap.Int("workers", workers))

	var (
		sem         = semaphore.NewWeighted(int64(workers))
		ran, skipped atomic.Int64
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, n := range nodes {
		g.Go(func() (err error) {
			defer close(n.done)
			for _, d := range n.deps {
				select {
				case <-d.done:
					if !d.ok {
						return nil
					}
				case <-gctx.Done():
					return nil
				}
			}
			if gctx.Err() != nil {
				return nil
			}
			if Complete(n.task) {
				log.Debug("Workflow:task complete, skipped", zap.String("task", n.task.ID()))
				skipped.Add(1)
				n.ok = true
				return nil
			}
			if err = sem.Acquire(gctx, 1); err != nil {
				return nil
			}
			defer sem.Release(1)
			log.Debug("Workflow:task start", zap.String("task", n.task.ID()))
			if err = n.task.Run(gctx); err != nil {
				log.Error("Workflow:task failed", zap.String("task", n.task.ID()), zap.Error(err))
				return fmt.Errorf("task %s: %w", n.task.ID(), err)
			}
			ran.Add(1)
			n.ok = true
			return nil
		})
	}
	err = g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	stats.Ran, stats.Skipped = ran.Load(), skipped.Load()
	log.Info("Workflow:run end", zap.String("run", stats.RunID), zap.Int64("ran", stats.Ran),
		zap.Int64("skipped", stats.Skipped), zap.Bool("ok", err == nil))
	return
}

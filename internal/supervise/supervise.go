// Package supervise runs the background goroutines cmd/engine and
// cmd/simulate wire around the single-threaded engine loop (the
// reconnecting feed, the telemetry HTTP server) under one
// errgroup.Group: the first goroutine to return an error cancels the
// shared context, and Run waits for every goroutine to unwind before
// returning that error. Grounded on the errgroup.WithContext/g.Go
// supervision shape used throughout other_examples' TradeMode-style
// app wiring, generalized from a per-mode ad hoc group to a reusable
// named-task supervisor.
package supervise

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Task is one supervised background goroutine. It must return promptly
// once ctx is cancelled.
type Task func(ctx context.Context) error

// Group supervises a set of named tasks, logging each one's start and
// exit and cancelling the rest on the first failure.
type Group struct {
	g      *errgroup.Group
	ctx    context.Context
	logger *slog.Logger
}

// New builds a Group deriving a cancellable context from parent; the
// returned context is what Go'd tasks should select on. As with any
// errgroup.WithContext context, it is cancelled as soon as a task
// fails OR the caller cancels parent itself — not only after Wait
// returns — so a caller driving its own loop (e.g. the engine's hot
// loop, which is not itself one of these tasks) can cancel parent when
// its loop exits and rely on Wait to then join every background task.
func New(parent context.Context, logger *slog.Logger) (*Group, context.Context) {
	g, ctx := errgroup.WithContext(parent)
	if logger == nil {
		logger = slog.Default()
	}
	return &Group{g: g, ctx: ctx, logger: logger.With("component", "supervise")}, ctx
}

// Go schedules task under name. If task returns a non-nil error, the
// Group's context is cancelled so every other task can observe it and
// exit.
func (s *Group) Go(name string, task Task) {
	s.g.Go(func() error {
		s.logger.Info("task starting", "task", name)
		err := task(s.ctx)
		if err != nil {
			s.logger.Error("task exited with error", "task", name, "error", err)
			return err
		}
		s.logger.Info("task exited", "task", name)
		return nil
	})
}

// Wait blocks until every task has returned, and reports the first
// non-nil error among them (if any).
func (s *Group) Wait() error {
	return s.g.Wait()
}

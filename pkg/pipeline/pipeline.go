package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Stage is one named step. Stages that share a level run concurrently and
// must not write the same part of the state.
type Stage[S any] struct {
	Name      string
	DependsOn []string
	Run       func(ctx context.Context, state S) error
}

func (s Stage[S]) name() string   { return s.Name }
func (s Stage[S]) deps() []string { return s.DependsOn }

type Pipeline[S any] struct {
	levels [][]Stage[S]
	logger *slog.Logger
}

// New validates the stage graph. Cycles and unknown dependencies are
// rejected here, before anything runs.
func New[S any](logger *slog.Logger, stages ...Stage[S]) (*Pipeline[S], error) {
	lv, err := levels(stages)
	if err != nil {
		return nil, err
	}

	return &Pipeline[S]{levels: lv, logger: logger}, nil
}

// Order returns stage names in execution order.
func (p *Pipeline[S]) Order() []string {
	var names []string
	for _, level := range p.levels {
		for _, s := range level {
			names = append(names, s.Name)
		}
	}

	return names
}

// Run executes the stages level by level and stops at the first failure.
func (p *Pipeline[S]) Run(ctx context.Context, state S) error {
	for _, level := range p.levels {
		g, gctx := errgroup.WithContext(ctx)
		for _, stage := range level {
			g.Go(func() error {
				return p.runStage(gctx, stage, state)
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}

	return nil
}

func (p *Pipeline[S]) runStage(ctx context.Context, stage Stage[S], state S) error {
	if stage.Run == nil {
		return nil
	}
	begin := time.Now()
	if err := stage.Run(ctx, state); err != nil {
		p.logger.Warn("Pipeline stage failed",
			slog.String("stage", stage.Name),
			slog.String("duration", time.Since(begin).String()),
			slog.Any("error", err),
		)

		return fmt.Errorf("stage %s: %w", stage.Name, err)
	}
	p.logger.Info("Pipeline stage completed",
		slog.String("stage", stage.Name),
		slog.String("duration", time.Since(begin).String()),
	)

	return nil
}

package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"videominer/internal/core/domain"
)

// Step is one named extraction strategy.
type Step[In, Out any] struct {
	Name string
	Run  func(ctx context.Context, in In) (Out, error)
}

// Outcome reports which step produced a chain's value.
type Outcome[Out any] struct {
	Value    Out
	Step     string
	Failures []string // "<step>: <error>" for every step that errored before the winner
}

// Chain runs steps in order until one yields a non-empty value. A step that
// errors or panics counts as having yielded nothing.
type Chain[In, Out any] struct {
	steps  []Step[In, Out]
	empty  func(Out) bool
	logger zerolog.Logger
}

// NewChain creates a chain. empty decides whether a step's value is usable.
func NewChain[In, Out any](logger zerolog.Logger, empty func(Out) bool, steps ...Step[In, Out]) *Chain[In, Out] {
	return &Chain[In, Out]{steps: steps, empty: empty, logger: logger}
}

// Run walks the steps. When every step comes up empty it returns an error
// wrapping domain.ErrNothingFound, or the context error if ctx ended first.
func (c *Chain[In, Out]) Run(ctx context.Context, in In) (Outcome[Out], error) {
	var out Outcome[Out]
	for _, step := range c.steps {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		value, err := runStep(ctx, step, in)
		if err != nil {
			c.logger.Debug().Err(err).Str("step", step.Name).Msg("step failed")
			out.Failures = append(out.Failures, fmt.Sprintf("%s: %v", step.Name, err))
			continue
		}
		if c.empty(value) {
			c.logger.Debug().Str("step", step.Name).Msg("step found nothing")
			continue
		}
		out.Value = value
		out.Step = step.Name
		return out, nil
	}
	return out, fmt.Errorf("all %d methods tried: %w", len(c.steps), domain.ErrNothingFound)
}

func runStep[In, Out any](ctx context.Context, step Step[In, Out], in In) (value Out, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return step.Run(ctx, in)
}

package generation

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"videominer/internal/core/domain"
)

// TaskAPI is the remote generation service.
type TaskAPI interface {
	Create(ctx context.Context, params CreateParams) (string, error)
	Query(ctx context.Context, taskID string) (PollResponse, error)
}

// Clock abstracts time so polling can be tested without real sleeps.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Poller creates a task and polls it until a terminal state.
type Poller struct {
	api      TaskAPI
	clock    Clock
	interval time.Duration
	budget   time.Duration
	logger   zerolog.Logger
}

// Option configures a Poller.
type Option func(*Poller)

func WithClock(c Clock) Option { return func(p *Poller) { p.clock = c } }

// WithInterval and WithBudget ignore non-positive durations.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

func WithBudget(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.budget = d
		}
	}
}

// NewPoller creates a Poller with a 5s interval and a 3 minute budget.
func NewPoller(api TaskAPI, logger zerolog.Logger, opts ...Option) *Poller {
	p := &Poller{
		api:      api,
		clock:    realClock{},
		interval: DefaultInterval,
		budget:   DefaultBudget,
		logger:   logger.With().Str("component", "generation").Logger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run creates a task and watches it. onUpdate, when not nil, sees every state
// including the final one. A missing task id is a hard error and nothing is
// polled.
func (p *Poller) Run(ctx context.Context, params CreateParams, onUpdate func(State)) (State, error) {
	notify(onUpdate, State{Phase: PhaseCreating})

	taskID, err := p.api.Create(ctx, params)
	if err != nil {
		failed := State{Phase: PhaseFailed, Error: err.Error()}
		notify(onUpdate, failed)
		return failed, fmt.Errorf("failed to create task: %w", err)
	}
	if taskID == "" {
		failed := State{Phase: PhaseFailed, Error: "create returned no task id"}
		notify(onUpdate, failed)
		return failed, fmt.Errorf("create returned no task id: %w", domain.ErrMalformedPayload)
	}

	p.logger.Info().Str("task_id", taskID).Msg("task created")
	return p.Watch(ctx, taskID, onUpdate)
}

// Watch polls an existing task. Cancelling ctx stops polling and makes no
// server call.
func (p *Poller) Watch(ctx context.Context, taskID string, onUpdate func(State)) (State, error) {
	s := NewState(taskID, p.budget)
	notify(onUpdate, s)
	start := p.clock.Now()

	for {
		if err := ctx.Err(); err != nil {
			return s, err
		}
		select {
		case <-ctx.Done():
			return s, ctx.Err()
		case <-p.clock.After(p.interval):
		}

		// The tick that reaches the budget still queries; Transition lets a
		// completion seen on that tick win over expiry.
		elapsed := p.clock.Now().Sub(start)
		resp, err := p.api.Query(ctx, taskID)
		if err != nil {
			if ctx.Err() != nil {
				return s, ctx.Err()
			}
			p.logger.Warn().Err(err).Str("task_id", taskID).Msg("poll failed, will retry")
			resp = PollResponse{}
		}

		s = Transition(s, resp, elapsed)
		notify(onUpdate, s)
		if s.Phase == PhaseTimedOut {
			p.logger.Warn().Str("task_id", taskID).Dur("elapsed", elapsed).Msg("task timed out")
			return s, nil
		}
		if s.Phase.Terminal() {
			p.logger.Info().Str("task_id", taskID).Str("status", string(s.Phase)).Dur("elapsed", elapsed).Msg("task finished")
			return s, nil
		}
	}
}

func notify(fn func(State), s State) {
	if fn != nil {
		fn(s)
	}
}

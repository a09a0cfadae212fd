// Package generation drives asynchronous video generation tasks: create once,
// poll on a fixed interval, stop on a terminal state or a client-side budget.
package generation

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"videominer/internal/core/domain"
)

const (
	DefaultInterval = 5 * time.Second
	DefaultBudget   = 3 * time.Minute

	// MaxPendingProgress caps the cosmetic estimate until the task completes.
	MaxPendingProgress = 90
)

// Phase is the lifecycle state of a task.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseCreating   Phase = "creating"
	PhaseQueued     Phase = "queued"
	PhaseProcessing Phase = "processing"
	PhaseCompleted  Phase = "completed"
	PhaseFailed     Phase = "failed"
	PhaseTimedOut   Phase = "timed_out"
)

// Terminal reports whether no further polling may happen.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseFailed || p == PhaseTimedOut
}

// CreateParams is the body of a create call.
type CreateParams struct {
	Prompt      string   `json:"prompt" binding:"required"`
	AspectRatio string   `json:"aspect_ratio,omitempty"`
	Duration    int      `json:"duration,omitempty"`
	Model       string   `json:"model,omitempty"`
	MediaFiles  []string `json:"media_files,omitempty"`
}

// PollResponse is one normalized query result. An empty Status means the poll
// produced no news (for example a transport error) and only time advances.
type PollResponse struct {
	Status   Phase
	VideoURL string
	Error    string
}

// State is the client-side view of a task.
type State struct {
	TaskID   string        `json:"taskId"`
	Phase    Phase         `json:"status"`
	Elapsed  time.Duration `json:"-"`
	Progress int           `json:"progress"`
	VideoURL string        `json:"videoUrl,omitempty"`
	Error    string        `json:"error,omitempty"`
	Budget   time.Duration `json:"-"`
}

// MarshalJSON adds elapsed time in whole seconds.
func (s State) MarshalJSON() ([]byte, error) {
	type alias State
	return json.Marshal(struct {
		alias
		ElapsedSeconds int `json:"elapsedSeconds"`
	}{alias(s), int(s.Elapsed.Seconds())})
}

// Err returns nil for completed or pending tasks and a typed error otherwise.
func (s State) Err() error {
	switch s.Phase {
	case PhaseTimedOut:
		return fmt.Errorf("generation stopped after %s: %w", s.Elapsed.Round(time.Second), domain.ErrTimedOut)
	case PhaseFailed:
		return &FailedError{Reason: s.Error}
	}
	return nil
}

// FailedError is a failure reported by the remote task.
type FailedError struct {
	Reason string
}

func (e *FailedError) Error() string {
	if e.Reason == "" {
		return "generation failed"
	}
	return "generation failed: " + e.Reason
}

// IsFailed reports whether err is a remote task failure.
func IsFailed(err error) bool {
	var f *FailedError
	return errors.As(err, &f)
}

// NewState returns the state right after a successful create.
func NewState(taskID string, budget time.Duration) State {
	if budget <= 0 {
		budget = DefaultBudget
	}
	return State{TaskID: taskID, Phase: PhaseQueued, Budget: budget}
}

// Transition applies one poll response observed at elapsed. It is pure:
// terminal states are returned unchanged, completion wins over the budget,
// and a pending task past its budget becomes timed_out.
func Transition(s State, resp PollResponse, elapsed time.Duration) State {
	if s.Phase.Terminal() {
		return s
	}
	if s.Budget <= 0 {
		s.Budget = DefaultBudget
	}
	s.Elapsed = elapsed

	switch resp.Status {
	case PhaseCompleted:
		if resp.VideoURL == "" {
			s.Phase = PhaseFailed
			s.Error = "task completed without a video url"
			return s
		}
		s.Phase = PhaseCompleted
		s.Progress = 100
		s.VideoURL = resp.VideoURL
		return s
	case PhaseFailed:
		s.Phase = PhaseFailed
		s.Error = resp.Error
		if s.Error == "" {
			s.Error = "task reported failure"
		}
		return s
	}

	if elapsed >= s.Budget {
		return Expire(s, elapsed)
	}

	switch resp.Status {
	case PhaseQueued, PhaseProcessing:
		s.Phase = resp.Status
	case "":
	default:
		s.Phase = PhaseProcessing
	}
	if p := EstimateProgress(elapsed, s.Budget); p > s.Progress {
		s.Progress = p
	}
	return s
}

// Expire moves a pending task to timed_out.
func Expire(s State, elapsed time.Duration) State {
	if s.Phase.Terminal() {
		return s
	}
	s.Elapsed = elapsed
	s.Phase = PhaseTimedOut
	s.Error = fmt.Sprintf("no result after %s", s.Budget)
	return s
}

// EstimateProgress returns min(90, elapsed/budget*90).
func EstimateProgress(elapsed, budget time.Duration) int {
	if budget <= 0 || elapsed <= 0 {
		return 0
	}
	p := int(float64(elapsed) / float64(budget) * MaxPendingProgress)
	if p > MaxPendingProgress {
		return MaxPendingProgress
	}
	return p
}

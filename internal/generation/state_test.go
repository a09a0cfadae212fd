package generation

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestTransition(t *testing.T) {
	base := NewState("t", 3*time.Minute)

	tests := []struct {
		name    string
		state   State
		resp    PollResponse
		elapsed time.Duration
		want    Phase
	}{
		{"queued stays queued", base, PollResponse{Status: PhaseQueued}, 5 * time.Second, PhaseQueued},
		{"unknown status is processing", base, PollResponse{Status: "running"}, 5 * time.Second, PhaseProcessing},
		{"no news keeps phase", base, PollResponse{}, 5 * time.Second, PhaseQueued},
		{"completed", base, PollResponse{Status: PhaseCompleted, VideoURL: "u"}, 10 * time.Second, PhaseCompleted},
		{"completed without url fails", base, PollResponse{Status: PhaseCompleted}, 10 * time.Second, PhaseFailed},
		{"failed", base, PollResponse{Status: PhaseFailed}, 10 * time.Second, PhaseFailed},
		{"pending past budget", base, PollResponse{Status: PhaseProcessing}, 3 * time.Minute, PhaseTimedOut},
		{"completed past budget still completes", base, PollResponse{Status: PhaseCompleted, VideoURL: "u"}, 4 * time.Minute, PhaseCompleted},
		{"terminal is sticky", State{Phase: PhaseFailed}, PollResponse{Status: PhaseCompleted, VideoURL: "u"}, time.Second, PhaseFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Transition(tt.state, tt.resp, tt.elapsed)
			if got.Phase != tt.want {
				t.Errorf("Phase = %s, want %s", got.Phase, tt.want)
			}
		})
	}
}

func TestEstimateProgress(t *testing.T) {
	tests := []struct {
		elapsed time.Duration
		want    int
	}{
		{0, 0},
		{90 * time.Second, 45},
		{3 * time.Minute, 90},
		{10 * time.Minute, 90},
	}
	for _, tt := range tests {
		if got := EstimateProgress(tt.elapsed, 3*time.Minute); got != tt.want {
			t.Errorf("EstimateProgress(%s) = %d, want %d", tt.elapsed, got, tt.want)
		}
	}
}

func TestProgressMonotonic(t *testing.T) {
	s := NewState("t", time.Minute)
	s.Progress = 60
	s = Transition(s, PollResponse{Status: PhaseProcessing}, 10*time.Second)
	if s.Progress != 60 {
		t.Errorf("Progress = %d, want 60 kept", s.Progress)
	}
}

func TestStateJSON(t *testing.T) {
	s := State{TaskID: "t", Phase: PhaseProcessing, Elapsed: 42 * time.Second, Progress: 21}
	b, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"taskId":"t"`, `"status":"processing"`, `"elapsedSeconds":42`, `"progress":21`} {
		if !strings.Contains(string(b), want) {
			t.Errorf("json %s missing %s", b, want)
		}
	}
}

package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"videominer/internal/core/domain"
)

func stringStep(name, value string, err error) Step[string, string] {
	return Step[string, string]{
		Name: name,
		Run: func(ctx context.Context, in string) (string, error) {
			return value, err
		},
	}
}

func isEmpty(s string) bool { return s == "" }

func TestChainFirstNonEmptyWins(t *testing.T) {
	var ran []string
	track := func(name, value string) Step[string, string] {
		return Step[string, string]{
			Name: name,
			Run: func(ctx context.Context, in string) (string, error) {
				ran = append(ran, name)
				return value, nil
			},
		}
	}
	c := NewChain(zerolog.Nop(), isEmpty, track("a", ""), track("b", "found"), track("c", "late"))

	out, err := c.Run(context.Background(), "in")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out.Value != "found" || out.Step != "b" {
		t.Errorf("Run() = %+v", out)
	}
	if strings.Join(ran, ",") != "a,b" {
		t.Errorf("ran %v, want a,b", ran)
	}
}

func TestChainIsolatesErrorsAndPanics(t *testing.T) {
	panicky := Step[string, string]{
		Name: "panicky",
		Run: func(ctx context.Context, in string) (string, error) {
			var m map[string]string
			m["boom"] = in
			return "", nil
		},
	}
	c := NewChain(zerolog.Nop(), isEmpty,
		stringStep("broken", "ignored", errors.New("upstream 500")),
		panicky,
		stringStep("last", "ok", nil),
	)

	out, err := c.Run(context.Background(), "x")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out.Step != "last" || out.Value != "ok" {
		t.Errorf("Run() = %+v", out)
	}
	if len(out.Failures) != 2 || !strings.HasPrefix(out.Failures[1], "panicky: panic:") {
		t.Errorf("Failures = %v", out.Failures)
	}
}

func TestChainExhausted(t *testing.T) {
	c := NewChain(zerolog.Nop(), isEmpty, stringStep("a", "", nil), stringStep("b", "", errors.New("nope")))

	_, err := c.Run(context.Background(), "x")
	if !errors.Is(err, domain.ErrNothingFound) {
		t.Errorf("error = %v, want ErrNothingFound", err)
	}
}

func TestChainStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewChain(zerolog.Nop(), isEmpty, stringStep("a", "value", nil))

	_, err := c.Run(ctx, "x")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

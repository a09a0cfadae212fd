package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrProductNotFound means no identifiers or keywords could be derived from the input URL.
	ErrProductNotFound = errors.New("could not identify product")

	// ErrNotConnected means an operation needs an access token the caller did not supply.
	ErrNotConnected = errors.New("account not connected")

	// ErrRateLimited maps an upstream 429.
	ErrRateLimited = errors.New("rate limited")

	// ErrInsufficientCredits maps an upstream 402.
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrTimedOut is a client-side timeout, never a state reported by a remote API.
	ErrTimedOut = errors.New("timed out")

	// ErrMalformedPayload means a remote response lacked a required field.
	ErrMalformedPayload = errors.New("malformed remote payload")

	// ErrNotConfigured means the adapter has no credentials to run with.
	ErrNotConfigured = errors.New("not configured")

	// ErrNothingFound means every extraction method ran and none produced a result.
	ErrNothingFound = errors.New("nothing found")
)

// HTTPError represents a non-success HTTP status from an upstream.
type HTTPError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("unexpected status code %d from %s: %s", e.StatusCode, e.URL, e.Body)
	}
	return fmt.Sprintf("unexpected status code %d from %s", e.StatusCode, e.URL)
}

// Is lets errors.Is match 429 and 402 against the sentinel errors.
func (e *HTTPError) Is(target error) bool {
	switch target {
	case ErrRateLimited:
		return e.StatusCode == 429
	case ErrInsufficientCredits:
		return e.StatusCode == 402
	}
	return false
}

// IsTimeout reports whether err is a client-side timeout of any kind.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimedOut) || errors.Is(err, context.DeadlineExceeded)
}

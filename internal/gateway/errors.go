package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/go-github/v57/github"
)

var (
	// ErrTargetNotFound means the repository does not exist or is not visible to the credential.
	ErrTargetNotFound = errors.New("target not found")
	// ErrBadCredentials means the host rejected the configured token.
	ErrBadCredentials = errors.New("credentials rejected")
	// ErrUserNotFound means a login search returned no match.
	ErrUserNotFound = errors.New("user not found")
	// ErrHostNotConfigured means no endpoint is configured for the requested host mode.
	ErrHostNotConfigured = errors.New("github host not configured")
)

// TransientFetchError is a failed request after retries were exhausted.
// It ends the current pagination loop only.
type TransientFetchError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransientFetchError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: status %d: %v", e.Op, e.StatusCode, e.Err)
}

func (e *TransientFetchError) Unwrap() error {
	return e.Err
}

// MalformedResponseError is a payload missing a field the shapers rely on.
type MalformedResponseError struct {
	Kind  string
	ID    string
	Field string
	Err   error
}

func (e *MalformedResponseError) Error() string {
	msg := fmt.Sprintf("malformed %s %s", e.Kind, e.ID)
	if e.Field != "" {
		msg += ": missing " + e.Field
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// FatalForTarget maps a fetch failure that makes the whole target unusable
// to ErrTargetNotFound or ErrBadCredentials. It returns nil for anything else.
func FatalForTarget(err error) error {
	var fetchErr *TransientFetchError
	if !errors.As(err, &fetchErr) {
		return nil
	}
	switch fetchErr.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %v", ErrTargetNotFound, err)
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %v", ErrBadCredentials, err)
	}
	return nil
}

func classify(op string, resp *github.Response, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &TransientFetchError{Op: op, StatusCode: statusOf(resp), Err: err}
}

func statusOf(resp *github.Response) int {
	if resp == nil || resp.Response == nil {
		return 0
	}
	return resp.StatusCode
}

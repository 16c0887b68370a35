package routing

import (
	"errors"
	"fmt"
	"strings"
)

// ErrConfigMissing is returned when the failover directory file cannot be read.
var ErrConfigMissing = errors.New("failover configuration missing")

// ErrUnknownBackend is returned when a directory entry has no registered handler.
var ErrUnknownBackend = errors.New("unknown backend")

// BackendError wraps a failure from a single backend attempt. It never reaches
// the caller of Route directly; the router converts the last one into an
// ExhaustedError when every candidate has failed.
type BackendError struct {
	Backend string
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend %s: %v", e.Backend, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// ExhaustedError is the terminal routing failure: every candidate backend for
// a category failed. It carries the full candidate list in attempt order and
// the last underlying failure as its cause.
type ExhaustedError struct {
	Category   string
	Candidates []string
	LastErr    error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all backends for %q failed (tried %s): %v",
		e.Category, strings.Join(e.Candidates, ", "), e.LastErr)
}

func (e *ExhaustedError) Unwrap() error {
	return e.LastErr
}

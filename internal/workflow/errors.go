package workflow

import (
	"fmt"
)

// GateDenialError reports that a stage gate refused the transition. The
// workflow state is unchanged; the API layer surfaces Reason as a
// conflict, not a server failure.
type GateDenialError struct {
	Op     string
	Reason string
}

func (e *GateDenialError) Error() string {
	return fmt.Sprintf("%s denied: %s", e.Op, e.Reason)
}

// Error is a hard workflow failure: generation, persistence, or export
// errors that moved the book into the error status.
type Error struct {
	Op    string
	Stage string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s failed at stage %s: %v", e.Op, e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrapErr(op, stage string, err error) error {
	return &Error{Op: op, Stage: stage, Err: err}
}

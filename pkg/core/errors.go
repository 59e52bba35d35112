package core

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingInput indicates a required input was not provided.
	ErrMissingInput = errors.New("missing required input")
	// ErrUnknownAction indicates the action input is not one of the supported actions.
	ErrUnknownAction = errors.New("unknown action")
	// ErrNoPullRequest indicates neither the event payload nor PR_NUMBER identify a pull request.
	ErrNoPullRequest = errors.New("no pull request context")
	// ErrInvalidTargets indicates the targets input could not be parsed.
	ErrInvalidTargets = errors.New("invalid targets")
	// ErrInvalidMarker indicates a comment marker that cannot be embedded on a single line.
	ErrInvalidMarker = errors.New("invalid comment marker")
)

// TransportError wraps a failed tracker call.
type TransportError struct {
	Op  string
	ID  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.ID, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

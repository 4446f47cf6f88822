package session

import "github.com/pkg/errors"

var (
	// ErrInvalidTransition is returned for actions the current view or modal does not allow.
	ErrInvalidTransition = errors.New("action not allowed in the current state")
	// ErrSubmissionInFlight is returned when a submit is attempted while the same draft is being submitted.
	ErrSubmissionInFlight = errors.New("submission already in progress")
	errUnknownView        = errors.New("unknown view")
)

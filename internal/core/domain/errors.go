package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNotFound          = errors.New("walk session not found")
	ErrRouteUnavailable  = errors.New("route unavailable")
)

// ValidationError reports malformed input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// InvalidTransitionError reports an operation that is illegal for the session's current status.
type InvalidTransitionError struct {
	SessionID string
	Op        string
	From      WalkStatus
}

func (e *InvalidTransitionError) Error() string {
	if e.From == "" {
		return fmt.Sprintf("cannot %s session %s", e.Op, e.SessionID)
	}
	return fmt.Sprintf("cannot %s session %s in status %s", e.Op, e.SessionID, e.From)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// NotFoundError reports an unknown session id.
type NotFoundError struct {
	SessionID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("walk session %s not found", e.SessionID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// RouteUnavailableError wraps every failure of the directions provider.
type RouteUnavailableError struct {
	Cause string
	Err   error
}

func (e *RouteUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("route unavailable: %s: %v", e.Cause, e.Err)
	}
	return "route unavailable: " + e.Cause
}

// Is lets errors.Is match both the sentinel and the wrapped cause.
func (e *RouteUnavailableError) Is(target error) bool { return target == ErrRouteUnavailable }

func (e *RouteUnavailableError) Unwrap() error { return e.Err }

package domain

import (
	"time"
)

// WalkStatus is the lifecycle state of a walk session.
type WalkStatus string

const (
	StatusPending    WalkStatus = "PENDING"
	StatusMatching   WalkStatus = "MATCHING"
	StatusInProgress WalkStatus = "IN_PROGRESS"
	StatusCompleted  WalkStatus = "COMPLETED"
	StatusCancelled  WalkStatus = "CANCELLED"
	StatusFailed     WalkStatus = "FAILED"
	StatusDismissed  WalkStatus = "DISMISSED"
)

// ActiveStatuses are the states in which a session still occupies its owner.
var ActiveStatuses = []WalkStatus{StatusPending, StatusMatching, StatusInProgress}

// allowedTransitions lists every legal edge of the lifecycle.
var allowedTransitions = map[WalkStatus][]WalkStatus{
	StatusPending:    {StatusMatching, StatusCancelled, StatusFailed},
	StatusMatching:   {StatusInProgress, StatusCancelled, StatusFailed},
	StatusInProgress: {StatusCompleted, StatusCancelled, StatusFailed},
	StatusFailed:     {StatusDismissed},
}

// CanTransition reports whether a session may move from one status to another.
func CanTransition(from, to WalkStatus) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// SourcesOf returns every status that may legally move to the given status.
func SourcesOf(to WalkStatus) []WalkStatus {
	var out []WalkStatus
	for _, from := range []WalkStatus{StatusPending, StatusMatching, StatusInProgress, StatusFailed} {
		if CanTransition(from, to) {
			out = append(out, from)
		}
	}
	return out
}

// IsActive reports whether the status is PENDING, MATCHING or IN_PROGRESS.
func (s WalkStatus) IsActive() bool {
	return s == StatusPending || s == StatusMatching || s == StatusInProgress
}

// IsTerminal reports whether the session has been resolved.
func (s WalkStatus) IsTerminal() bool {
	return !s.IsActive()
}

// Valid reports whether s is one of the known statuses.
func (s WalkStatus) Valid() bool {
	switch s {
	case StatusPending, StatusMatching, StatusInProgress, StatusCompleted,
		StatusCancelled, StatusFailed, StatusDismissed:
		return true
	}
	return false
}

// WalkSession is one owner-initiated dog-walking engagement.
type WalkSession struct {
	ID        string       `json:"id"`
	OwnerID   string       `json:"owner_id"`
	SitterID  string       `json:"sitter_id,omitempty"`
	PetIDs    []string     `json:"pet_ids"`
	Location  WalkLocation `json:"location"`
	Duration  string       `json:"duration"`
	Status    WalkStatus   `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// LocationOutcome describes what a location report did to a session.
type LocationOutcome struct {
	SessionID      string     `json:"session_id"`
	DistanceMeters float64    `json:"distance_meters"`
	WithinRange    bool       `json:"within_range"`
	Completed      bool       `json:"completed"`
	Status         WalkStatus `json:"status"`
}

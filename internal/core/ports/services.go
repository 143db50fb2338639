package ports

import (
	"context"

	"github.com/samirrijal/walkies/internal/core/domain"
)

// SessionFeed fans out session changes to live observers of an owner.
type SessionFeed interface {
	Publish(ctx context.Context, session *domain.WalkSession) error
	// Subscribe registers onChange for the owner's sessions. The returned
	// func stops delivery; onChange is never invoked after it returns.
	Subscribe(ownerID string, onChange func()) (unsubscribe func(), err error)
}

// LocationReport is a sitter position sample for a session.
type LocationReport struct {
	SessionID string              `json:"session_id"`
	SitterID  string              `json:"sitter_id,omitempty"`
	Location  domain.WalkLocation `json:"location"`
}

// LocationPublisher queues location reports for asynchronous processing.
type LocationPublisher interface {
	PublishLocation(ctx context.Context, report *LocationReport) error
}

// LocationSubscriber consumes queued location reports.
type LocationSubscriber interface {
	SubscribeLocations(ctx context.Context, handler func(ctx context.Context, report *LocationReport) error) error
}

// AuthState answers who the current caller is. Identity is carried by ctx.
type AuthState interface {
	IsAuthenticated(ctx context.Context) bool
	CurrentRole(ctx context.Context) (string, bool)
}

// FeatureFlags gates whole application flows.
type FeatureFlags interface {
	OwnerPathEnabled(ctx context.Context) bool
	SitterPathEnabled(ctx context.Context) bool
}

// DirectionsProvider computes walking routes.
type DirectionsProvider interface {
	Route(ctx context.Context, from, to domain.WalkLocation) (*domain.RouteInfo, error)
}

// MatchScheduler arranges for unmatched sessions to fail after a timeout.
type MatchScheduler interface {
	ScheduleMatchTimeout(ctx context.Context, sessionID string) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

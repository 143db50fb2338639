package ports

import (
	"context"

	"github.com/samirrijal/walkies/internal/core/domain"
)

// StatusTransition is a conditional status update: the write only applies
// while the stored status is one of From.
type StatusTransition struct {
	From     []domain.WalkStatus
	To       domain.WalkStatus
	SitterID string // set on accept, ignored otherwise
}

// WalkSessionRepository persists walk sessions.
//
// Transition must be atomic with respect to its precondition. When the session
// exists but its status is not in From it returns *domain.InvalidTransitionError;
// unknown ids yield *domain.NotFoundError.
type WalkSessionRepository interface {
	Create(ctx context.Context, session *domain.WalkSession) error
	GetByID(ctx context.Context, id string) (*domain.WalkSession, error)
	FindActiveByOwner(ctx context.Context, ownerID string) (*domain.WalkSession, error)
	ListResolvedByOwner(ctx context.Context, ownerID string) ([]domain.WalkSession, error)
	ListOpenNearby(ctx context.Context, near domain.WalkLocation, radiusMeters float64, limit int) ([]domain.WalkSession, error)
	Transition(ctx context.Context, id string, t StatusTransition) (*domain.WalkSession, error)
}

// ProfileRepository stores per-user role and push tokens.
type ProfileRepository interface {
	RoleOf(ctx context.Context, userID string) (string, error)
	SetRole(ctx context.Context, userID, role string) error
	SaveOwnerPushToken(ctx context.Context, userID, token string) error
	SaveSitterPushToken(ctx context.Context, userID, token string) error
}

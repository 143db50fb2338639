package workflows

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/samirrijal/walkies/internal/core/domain"
)

// SessionExpirer fails sessions that were never matched.
type SessionExpirer interface {
	ExpireUnmatched(ctx context.Context, id string) (bool, error)
}

// MatchActivities holds the activity implementations for the match-timeout workflow.
type MatchActivities struct {
	Sessions SessionExpirer
}

// ExpireUnmatchedSession fails the session if it is still PENDING or MATCHING.
// It reports whether the session was failed.
func (a *MatchActivities) ExpireUnmatchedSession(ctx context.Context, sessionID string) (bool, error) {
	expired, err := a.Sessions.ExpireUnmatched(ctx, sessionID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, temporal.NewNonRetryableApplicationError(err.Error(), "NotFoundError", err)
	}
	if err != nil {
		return false, fmt.Errorf("expire session %s: %w", sessionID, err)
	}
	activity.GetLogger(ctx).Info("match timeout checked", "sessionID", sessionID, "expired", expired)
	return expired, nil
}

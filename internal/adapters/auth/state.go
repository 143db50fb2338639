package auth

import (
	"context"
	"log/slog"

	"github.com/samirrijal/walkies/internal/core/ports"
)

// State implements ports.AuthState from request claims. When the token
// carries no role, the stored profile role is used.
type State struct {
	profiles ports.ProfileRepository
}

// NewState creates a State. profiles may be nil.
func NewState(profiles ports.ProfileRepository) *State {
	return &State{profiles: profiles}
}

func (s *State) IsAuthenticated(ctx context.Context) bool {
	_, ok := FromContext(ctx)
	return ok
}

func (s *State) CurrentRole(ctx context.Context) (string, bool) {
	claims, ok := FromContext(ctx)
	if !ok {
		return "", false
	}
	if claims.Role != "" {
		return claims.Role, true
	}
	if s.profiles == nil {
		return "", false
	}
	role, err := s.profiles.RoleOf(ctx, claims.Subject)
	if err != nil {
		slog.Warn("lookup profile role", "user_id", claims.Subject, "error", err)
		return "", false
	}
	return role, role != ""
}

// UserID returns the authenticated subject, if any.
func UserID(ctx context.Context) (string, bool) {
	claims, ok := FromContext(ctx)
	if !ok {
		return "", false
	}
	return claims.Subject, true
}

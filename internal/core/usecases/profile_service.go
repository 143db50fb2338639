package usecases

import (
	"context"
	"fmt"

	"github.com/samirrijal/walkies/internal/core/domain"
	"github.com/samirrijal/walkies/internal/core/ports"
)

// ProfileService manages role selection and push-token sync.
type ProfileService struct {
	profiles ports.ProfileRepository
}

// NewProfileService creates a new ProfileService.
func NewProfileService(profiles ports.ProfileRepository) *ProfileService {
	return &ProfileService{profiles: profiles}
}

// SelectRole records the user's role.
func (s *ProfileService) SelectRole(ctx context.Context, userID, role string) error {
	if role != domain.RoleOwner && role != domain.RoleSitter {
		return &domain.ValidationError{Field: "role", Reason: fmt.Sprintf("must be %q or %q", domain.RoleOwner, domain.RoleSitter)}
	}
	if err := s.profiles.SetRole(ctx, userID, role); err != nil {
		return fmt.Errorf("set role: %w", err)
	}
	return nil
}

// RoleOf returns the user's role, or "" when none has been selected.
func (s *ProfileService) RoleOf(ctx context.Context, userID string) (string, error) {
	return s.profiles.RoleOf(ctx, userID)
}

// SyncPushToken stores a freshly issued push token on the profile matching the
// user's role. Users without a role get it on both profiles.
func (s *ProfileService) SyncPushToken(ctx context.Context, userID, token string) error {
	if token == "" {
		return &domain.ValidationError{Field: "token", Reason: "must not be empty"}
	}
	role, err := s.profiles.RoleOf(ctx, userID)
	if err != nil {
		return fmt.Errorf("lookup role: %w", err)
	}

	saveOwner := role != domain.RoleSitter
	saveSitter := role != domain.RoleOwner
	if saveOwner {
		if err := s.profiles.SaveOwnerPushToken(ctx, userID, token); err != nil {
			return fmt.Errorf("save owner token: %w", err)
		}
	}
	if saveSitter {
		if err := s.profiles.SaveSitterPushToken(ctx, userID, token); err != nil {
			return fmt.Errorf("save sitter token: %w", err)
		}
	}
	return nil
}

package usecases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/samirrijal/walkies/internal/core/domain"
	"github.com/samirrijal/walkies/internal/core/usecases"
)

// --- Mock ProfileRepository ---

type mockProfileRepo struct {
	role         string
	roleErr      error
	ownerTokens  []string
	sitterTokens []string
	setRoleFn    func(ctx context.Context, userID, role string) error
}

func (m *mockProfileRepo) RoleOf(ctx context.Context, userID string) (string, error) {
	return m.role, m.roleErr
}

func (m *mockProfileRepo) SetRole(ctx context.Context, userID, role string) error {
	if m.setRoleFn != nil {
		return m.setRoleFn(ctx, userID, role)
	}
	m.role = role
	return nil
}

func (m *mockProfileRepo) SaveOwnerPushToken(ctx context.Context, userID, token string) error {
	m.ownerTokens = append(m.ownerTokens, token)
	return nil
}

func (m *mockProfileRepo) SaveSitterPushToken(ctx context.Context, userID, token string) error {
	m.sitterTokens = append(m.sitterTokens, token)
	return nil
}

func TestSyncPushToken_ByRole(t *testing.T) {
	tests := []struct {
		role               string
		wantOwner, wantSit int
	}{
		{domain.RoleOwner, 1, 0},
		{domain.RoleSitter, 0, 1},
		{"", 1, 1},
	}
	for _, tt := range tests {
		repo := &mockProfileRepo{role: tt.role}
		svc := usecases.NewProfileService(repo)
		if err := svc.SyncPushToken(context.Background(), "user-1", "tok"); err != nil {
			t.Fatalf("role %q: unexpected error: %v", tt.role, err)
		}
		if len(repo.ownerTokens) != tt.wantOwner || len(repo.sitterTokens) != tt.wantSit {
			t.Errorf("role %q: owner=%d sitter=%d, want %d/%d",
				tt.role, len(repo.ownerTokens), len(repo.sitterTokens), tt.wantOwner, tt.wantSit)
		}
	}
}

func TestSyncPushToken_EmptyToken(t *testing.T) {
	svc := usecases.NewProfileService(&mockProfileRepo{})
	if err := svc.SyncPushToken(context.Background(), "user-1", ""); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ValidationError, got %v", err)
	}
}

func TestSyncPushToken_LookupFailure(t *testing.T) {
	repo := &mockProfileRepo{roleErr: errors.New("db down")}
	svc := usecases.NewProfileService(repo)
	if err := svc.SyncPushToken(context.Background(), "user-1", "tok"); err == nil {
		t.Fatal("expected error")
	}
	if len(repo.ownerTokens)+len(repo.sitterTokens) != 0 {
		t.Error("no token should be written when the role lookup fails")
	}
}

func TestSelectRole(t *testing.T) {
	repo := &mockProfileRepo{}
	svc := usecases.NewProfileService(repo)
	if err := svc.SelectRole(context.Background(), "user-1", "admin"); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ValidationError, got %v", err)
	}
	if err := svc.SelectRole(context.Background(), "user-1", domain.RoleSitter); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.role != domain.RoleSitter {
		t.Errorf("expected role petsitter, got %q", repo.role)
	}
}

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ProfileRepo implements ports.ProfileRepository with pgx.
type ProfileRepo struct {
	q Querier
}

// NewProfileRepo creates a new ProfileRepo.
func NewProfileRepo(q Querier) *ProfileRepo {
	return &ProfileRepo{q: q}
}

// RoleOf returns the user's role, or "" if the user has no profile or no role yet.
func (r *ProfileRepo) RoleOf(ctx context.Context, userID string) (string, error) {
	var role string
	err := r.q.QueryRow(ctx, `SELECT COALESCE(role, '') FROM profiles WHERE user_id = $1`, userID).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("select role: %w", err)
	}
	return role, nil
}

func (r *ProfileRepo) SetRole(ctx context.Context, userID, role string) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO profiles (user_id, role) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET role = EXCLUDED.role, updated_at = now()
	`, userID, role)
	return err
}

func (r *ProfileRepo) SaveOwnerPushToken(ctx context.Context, userID, token string) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO profiles (user_id, owner_push_token) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET owner_push_token = EXCLUDED.owner_push_token, updated_at = now()
	`, userID, token)
	return err
}

func (r *ProfileRepo) SaveSitterPushToken(ctx context.Context, userID, token string) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO profiles (user_id, sitter_push_token) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET sitter_push_token = EXCLUDED.sitter_push_token, updated_at = now()
	`, userID, token)
	return err
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/samirrijal/walkies/internal/core/domain"
	"github.com/samirrijal/walkies/internal/core/ports"
	"github.com/samirrijal/walkies/internal/pkg/geospatial"
)

const (
	pgUniqueViolation = "23505"
	pgInvalidText     = "22P02"
)

const sessionColumns = `id::text, owner_id, COALESCE(sitter_id, ''), pet_ids, lat, lng, duration, status, created_at, updated_at`

// WalkSessionRepo implements ports.WalkSessionRepository with pgx.
type WalkSessionRepo struct {
	q Querier
}

// NewWalkSessionRepo creates a new WalkSessionRepo.
func NewWalkSessionRepo(q Querier) *WalkSessionRepo {
	return &WalkSessionRepo{q: q}
}

// Create inserts a session and fills in its id and timestamps. The partial
// unique index on active sessions turns a concurrent second create into an
// InvalidTransitionError.
func (r *WalkSessionRepo) Create(ctx context.Context, s *domain.WalkSession) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO walk_sessions (owner_id, pet_ids, lat, lng, duration, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id::text, created_at, updated_at
	`, s.OwnerID, s.PetIDs, s.Location.Lat, s.Location.Lng, s.Duration, string(s.Status),
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		ite := &domain.InvalidTransitionError{Op: "create"}
		if active, ferr := r.FindActiveByOwner(ctx, s.OwnerID); ferr == nil && active != nil {
			ite.SessionID, ite.From = active.ID, active.Status
		}
		return ite
	}
	return fmt.Errorf("insert walk session: %w", err)
}

// GetByID returns a session by id.
func (r *WalkSessionRepo) GetByID(ctx context.Context, id string) (*domain.WalkSession, error) {
	s, err := scanSession(r.q.QueryRow(ctx, `SELECT `+sessionColumns+` FROM walk_sessions WHERE id = $1`, id))
	if err != nil {
		if isMissing(err) {
			return nil, &domain.NotFoundError{SessionID: id}
		}
		return nil, fmt.Errorf("get walk session: %w", err)
	}
	return s, nil
}

// FindActiveByOwner returns the owner's active session, or nil when there is none.
func (r *WalkSessionRepo) FindActiveByOwner(ctx context.Context, ownerID string) (*domain.WalkSession, error) {
	s, err := scanSession(r.q.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM walk_sessions
		WHERE owner_id = $1 AND status = ANY($2)
		ORDER BY created_at DESC, seq DESC
		LIMIT 1
	`, ownerID, statusStrings(domain.ActiveStatuses)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active walk session: %w", err)
	}
	return s, nil
}

// ListResolvedByOwner returns the owner's finished sessions in creation order.
func (r *WalkSessionRepo) ListResolvedByOwner(ctx context.Context, ownerID string) ([]domain.WalkSession, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+sessionColumns+`
		FROM walk_sessions
		WHERE owner_id = $1 AND NOT (status = ANY($2))
		ORDER BY created_at ASC, seq ASC
	`, ownerID, statusStrings(domain.ActiveStatuses))
	if err != nil {
		return nil, fmt.Errorf("list walk history: %w", err)
	}
	return collectSessions(rows)
}

// ListOpenNearby returns MATCHING sessions within radiusMeters, nearest first.
// A bounding box narrows the scan and candidates come back ordered by an
// equirectangular approximation, so the scan cap drops the farthest ones.
// The exact distance is checked in Go.
func (r *WalkSessionRepo) ListOpenNearby(ctx context.Context, near domain.WalkLocation, radiusMeters float64, limit int) ([]domain.WalkSession, error) {
	minLat, minLng, maxLat, maxLng := geospatial.BoundingBox(near.Lat, near.Lng, radiusMeters)
	rows, err := r.q.Query(ctx, `
		SELECT `+sessionColumns+`
		FROM walk_sessions
		WHERE status = $1
		  AND lat BETWEEN $2 AND $3
		  AND lng BETWEEN $4 AND $5
		ORDER BY power(lat - $6, 2) + power(least(abs(lng - $7), 360 - abs(lng - $7)) * $8, 2), created_at ASC
		LIMIT 500
	`, string(domain.StatusMatching), minLat, maxLat, minLng, maxLng, near.Lat, near.Lng, geospatial.LngScale(near.Lat))
	if err != nil {
		return nil, fmt.Errorf("list open walk sessions: %w", err)
	}
	all, err := collectSessions(rows)
	if err != nil {
		return nil, err
	}

	out := all[:0]
	for _, s := range all {
		if geospatial.IsWithinRange(near, s.Location, radiusMeters) {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return geospatial.DistanceMeters(near, out[i].Location) < geospatial.DistanceMeters(near, out[j].Location)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Transition applies a conditional status update in a single statement.
// When nothing matches, a follow-up read tells a missing row from a failed
// precondition.
func (r *WalkSessionRepo) Transition(ctx context.Context, id string, t ports.StatusTransition) (*domain.WalkSession, error) {
	s, err := scanSession(r.q.QueryRow(ctx, `
		UPDATE walk_sessions
		SET status = $2,
		    sitter_id = COALESCE(NULLIF($3, ''), sitter_id),
		    updated_at = now()
		WHERE id = $1 AND status = ANY($4)
		RETURNING `+sessionColumns,
		id, string(t.To), t.SitterID, statusStrings(t.From)))
	if err == nil {
		return s, nil
	}
	if !isMissing(err) {
		return nil, fmt.Errorf("update walk session status: %w", err)
	}

	var current string
	err = r.q.QueryRow(ctx, `SELECT status FROM walk_sessions WHERE id = $1`, id).Scan(&current)
	if isMissing(err) {
		return nil, &domain.NotFoundError{SessionID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("read walk session status: %w", err)
	}
	return nil, &domain.InvalidTransitionError{SessionID: id, From: domain.WalkStatus(current)}
}

func scanSession(row pgx.Row) (*domain.WalkSession, error) {
	var s domain.WalkSession
	var status string
	if err := row.Scan(
		&s.ID, &s.OwnerID, &s.SitterID, &s.PetIDs,
		&s.Location.Lat, &s.Location.Lng,
		&s.Duration, &status, &s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	s.Status = domain.WalkStatus(status)
	return &s, nil
}

func collectSessions(rows pgx.Rows) ([]domain.WalkSession, error) {
	defer rows.Close()
	var out []domain.WalkSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan walk session: %w", err)
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate walk sessions: %w", err)
	}
	return out, nil
}

// isMissing treats malformed uuids like absent rows.
func isMissing(err error) bool {
	if errors.Is(err, pgx.ErrNoRows) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgInvalidText
}

func statusStrings(ss []domain.WalkStatus) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = string(s)
	}
	return out
}

package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/walkies/internal/core/domain"
	"github.com/samirrijal/walkies/internal/core/ports"
	"github.com/samirrijal/walkies/internal/pkg/geospatial"
	"github.com/samirrijal/walkies/internal/pkg/metrics"
	"github.com/samirrijal/walkies/internal/pkg/telemetry"
)

// ActiveSessionView is one emission of ObserveActiveSession. A nil Session
// means the owner currently has no active walk.
type ActiveSessionView struct {
	Session *domain.WalkSession `json:"session"`
}

// WalkLifecycleService drives walk sessions through their states. It keeps no
// session state of its own: every operation reads and writes through the store.
type WalkLifecycleService struct {
	sessions  ports.WalkSessionRepository
	feed      ports.SessionFeed
	scheduler ports.MatchScheduler
	radius    float64
}

// NewWalkLifecycleService creates a new WalkLifecycleService. A non-positive
// completionRadius falls back to geospatial.DefaultProximityMeters.
func NewWalkLifecycleService(
	sessions ports.WalkSessionRepository,
	feed ports.SessionFeed,
	completionRadius float64,
) *WalkLifecycleService {
	if completionRadius <= 0 {
		completionRadius = geospatial.DefaultProximityMeters
	}
	return &WalkLifecycleService{sessions: sessions, feed: feed, radius: completionRadius}
}

// WithMatchScheduler enables match timeouts for newly created sessions.
func (s *WalkLifecycleService) WithMatchScheduler(m ports.MatchScheduler) *WalkLifecycleService {
	s.scheduler = m
	return s
}

// CompletionRadius returns the proximity threshold in meters.
func (s *WalkLifecycleService) CompletionRadius() float64 {
	return s.radius
}

// CreateSession stores a new PENDING session and returns its id.
func (s *WalkLifecycleService) CreateSession(ctx context.Context, ownerID string, petIDs []string, durationText string, location domain.WalkLocation) (string, error) {
	if ownerID == "" {
		return "", &domain.ValidationError{Field: "owner_id", Reason: "must not be empty"}
	}
	pets, err := normalizePetIDs(petIDs)
	if err != nil {
		return "", err
	}
	if err := location.Validate(); err != nil {
		return "", err
	}

	active, err := s.sessions.FindActiveByOwner(ctx, ownerID)
	if err != nil {
		return "", fmt.Errorf("find active session: %w", err)
	}
	if active != nil {
		metrics.WalkTransitionRejections.WithLabelValues("create").Inc()
		return "", &domain.InvalidTransitionError{SessionID: active.ID, Op: "create", From: active.Status}
	}

	session := &domain.WalkSession{
		OwnerID:  ownerID,
		PetIDs:   pets,
		Location: location,
		Duration: durationText,
		Status:   domain.StatusPending,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		var ite *domain.InvalidTransitionError
		if errors.As(err, &ite) {
			ite.Op = "create"
			metrics.WalkTransitionRejections.WithLabelValues("create").Inc()
			return "", ite
		}
		return "", fmt.Errorf("create session: %w", err)
	}
	metrics.WalkTransitions.WithLabelValues("create", string(domain.StatusPending)).Inc()
	s.publish(ctx, session)

	if s.scheduler != nil {
		if err := s.scheduler.ScheduleMatchTimeout(ctx, session.ID); err != nil {
			slog.Warn("schedule match timeout", "session_id", session.ID, "error", err)
		}
	}
	return session.ID, nil
}

// GetSession returns a session by id.
func (s *WalkLifecycleService) GetSession(ctx context.Context, id string) (*domain.WalkSession, error) {
	return s.sessions.GetByID(ctx, id)
}

// MatchSession moves a PENDING session into MATCHING.
func (s *WalkLifecycleService) MatchSession(ctx context.Context, id string) (*domain.WalkSession, error) {
	return s.transition(ctx, id, "match", ports.StatusTransition{
		From: domain.SourcesOf(domain.StatusMatching),
		To:   domain.StatusMatching,
	})
}

// AcceptSession assigns a sitter to a MATCHING session and starts the walk.
func (s *WalkLifecycleService) AcceptSession(ctx context.Context, id, sitterID string) (*domain.WalkSession, error) {
	if sitterID == "" {
		return nil, &domain.ValidationError{Field: "sitter_id", Reason: "must not be empty"}
	}
	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	// Owner id never changes, so checking before the conditional update is safe.
	if session.OwnerID == sitterID {
		metrics.WalkTransitionRejections.WithLabelValues("accept").Inc()
		return nil, &domain.ValidationError{Field: "sitter_id", Reason: "owners cannot walk their own request"}
	}
	return s.transition(ctx, id, "accept", ports.StatusTransition{
		From:     domain.SourcesOf(domain.StatusInProgress),
		To:       domain.StatusInProgress,
		SitterID: sitterID,
	})
}

// CancelSession cancels a PENDING, MATCHING or IN_PROGRESS session.
func (s *WalkLifecycleService) CancelSession(ctx context.Context, id string) (*domain.WalkSession, error) {
	return s.transition(ctx, id, "cancel", ports.StatusTransition{
		From: domain.SourcesOf(domain.StatusCancelled),
		To:   domain.StatusCancelled,
	})
}

// FailSession marks an active session as FAILED.
func (s *WalkLifecycleService) FailSession(ctx context.Context, id string) (*domain.WalkSession, error) {
	return s.transition(ctx, id, "fail", ports.StatusTransition{
		From: domain.SourcesOf(domain.StatusFailed),
		To:   domain.StatusFailed,
	})
}

// ExpireUnmatched fails a session that never got a sitter. It reports false,
// without error, when the session has already moved past matching.
func (s *WalkLifecycleService) ExpireUnmatched(ctx context.Context, id string) (bool, error) {
	_, err := s.transition(ctx, id, "expire", ports.StatusTransition{
		From: []domain.WalkStatus{domain.StatusPending, domain.StatusMatching},
		To:   domain.StatusFailed,
	})
	if errors.Is(err, domain.ErrInvalidTransition) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// DismissSession acknowledges a FAILED session. Any other status, PENDING
// included, is rejected.
func (s *WalkLifecycleService) DismissSession(ctx context.Context, id string) (*domain.WalkSession, error) {
	return s.transition(ctx, id, "dismiss", ports.StatusTransition{
		From: domain.SourcesOf(domain.StatusDismissed),
		To:   domain.StatusDismissed,
	})
}

// ReportLocation completes an IN_PROGRESS session once the reported position
// is within the completion radius of its destination. Reports that miss, or
// arrive for a session that is not in progress, leave it unchanged.
func (s *WalkLifecycleService) ReportLocation(ctx context.Context, id string, current domain.WalkLocation) (*domain.LocationOutcome, error) {
	if err := current.Validate(); err != nil {
		return nil, err
	}
	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	dist := geospatial.DistanceMeters(current, session.Location)
	out := &domain.LocationOutcome{
		SessionID:      id,
		DistanceMeters: dist,
		WithinRange:    dist <= s.radius,
		Status:         session.Status,
	}

	switch {
	case session.Status != domain.StatusInProgress:
		metrics.LocationReports.WithLabelValues("ignored").Inc()
		return out, nil
	case !out.WithinRange:
		metrics.LocationReports.WithLabelValues("out_of_range").Inc()
		return out, nil
	}

	updated, err := s.transition(ctx, id, "complete", ports.StatusTransition{
		From: domain.SourcesOf(domain.StatusCompleted),
		To:   domain.StatusCompleted,
	})
	var ite *domain.InvalidTransitionError
	if errors.As(err, &ite) {
		// Another writer got there first; a stale report is not an error.
		metrics.LocationReports.WithLabelValues("stale").Inc()
		out.Status = ite.From
		return out, nil
	}
	if err != nil {
		return nil, err
	}

	metrics.LocationReports.WithLabelValues("completed").Inc()
	out.Completed = true
	out.Status = updated.Status
	return out, nil
}

// ActiveSession returns the owner's active session, or nil when there is none.
func (s *WalkLifecycleService) ActiveSession(ctx context.Context, ownerID string) (*domain.WalkSession, error) {
	return s.sessions.FindActiveByOwner(ctx, ownerID)
}

// History returns the owner's resolved sessions, oldest first.
func (s *WalkLifecycleService) History(ctx context.Context, ownerID string) ([]domain.WalkSession, error) {
	return s.sessions.ListResolvedByOwner(ctx, ownerID)
}

// ListOpenNearby returns MATCHING sessions within radiusMeters of near, for sitters.
func (s *WalkLifecycleService) ListOpenNearby(ctx context.Context, near domain.WalkLocation, radiusMeters float64, limit int) ([]domain.WalkSession, error) {
	if err := near.Validate(); err != nil {
		return nil, err
	}
	if radiusMeters <= 0 {
		radiusMeters = 2000
	}
	switch {
	case limit <= 0:
		limit = 20
	case limit > 100:
		limit = 100
	}
	return s.sessions.ListOpenNearby(ctx, near, radiusMeters, limit)
}

// ObserveActiveSession streams the owner's active session. The current value
// is sent first, then one value per change. The channel is closed when ctx ends.
func (s *WalkLifecycleService) ObserveActiveSession(ctx context.Context, ownerID string) (<-chan ActiveSessionView, error) {
	return observe(ctx, s.feed, ownerID, "active", func(ctx context.Context) (ActiveSessionView, error) {
		session, err := s.ActiveSession(ctx, ownerID)
		return ActiveSessionView{Session: session}, err
	})
}

// ObserveHistory streams the owner's resolved sessions, oldest first.
func (s *WalkLifecycleService) ObserveHistory(ctx context.Context, ownerID string) (<-chan []domain.WalkSession, error) {
	return observe(ctx, s.feed, ownerID, "history", func(ctx context.Context) ([]domain.WalkSession, error) {
		return s.History(ctx, ownerID)
	})
}

func (s *WalkLifecycleService) transition(ctx context.Context, id, op string, t ports.StatusTransition) (*domain.WalkSession, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "walk."+op, trace.WithAttributes(
		attribute.String("walk.session_id", id),
		attribute.String("walk.to", string(t.To)),
	))
	defer span.End()

	updated, err := s.sessions.Transition(ctx, id, t)
	if err != nil {
		span.RecordError(err)
		var ite *domain.InvalidTransitionError
		var nfe *domain.NotFoundError
		switch {
		case errors.As(err, &ite):
			ite.Op = op
			metrics.WalkTransitionRejections.WithLabelValues(op).Inc()
			return nil, ite
		case errors.As(err, &nfe):
			return nil, nfe
		}
		return nil, fmt.Errorf("%s session: %w", op, err)
	}
	metrics.WalkTransitions.WithLabelValues(op, string(t.To)).Inc()
	s.publish(ctx, updated)
	return updated, nil
}

// publish is best-effort: the store already holds the new state, and
// observers resynchronise from it on the next change.
func (s *WalkLifecycleService) publish(ctx context.Context, session *domain.WalkSession) {
	if err := s.feed.Publish(ctx, session); err != nil {
		slog.Warn("publish session change", "session_id", session.ID, "owner_id", session.OwnerID, "error", err)
	}
}

// normalizePetIDs rejects blank ids and drops repeats, keeping first-seen order.
func normalizePetIDs(petIDs []string) ([]string, error) {
	out := make([]string, 0, len(petIDs))
	seen := make(map[string]struct{}, len(petIDs))
	for _, id := range petIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, &domain.ValidationError{Field: "pet_ids", Reason: "pet ids must not be blank"}
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	if len(out) == 0 {
		return nil, &domain.ValidationError{Field: "pet_ids", Reason: "at least one pet is required"}
	}
	return out, nil
}

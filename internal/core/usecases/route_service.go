package usecases

import (
	"context"
	"fmt"

	"github.com/samirrijal/walkies/internal/core/domain"
	"github.com/samirrijal/walkies/internal/core/ports"
)

// RouteService computes walking routes for sessions.
type RouteService struct {
	sessions   ports.WalkSessionRepository
	directions ports.DirectionsProvider
}

// NewRouteService creates a new RouteService.
func NewRouteService(sessions ports.WalkSessionRepository, directions ports.DirectionsProvider) *RouteService {
	return &RouteService{sessions: sessions, directions: directions}
}

// Route returns the walking route between two points.
func (s *RouteService) Route(ctx context.Context, from, to domain.WalkLocation) (*domain.RouteInfo, error) {
	if err := from.Validate(); err != nil {
		return nil, err
	}
	if err := to.Validate(); err != nil {
		return nil, err
	}
	return s.directions.Route(ctx, from, to)
}

// RouteToSession returns the walking route from a position to the session's destination.
func (s *RouteService) RouteToSession(ctx context.Context, sessionID string, from domain.WalkLocation) (*domain.RouteInfo, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.Status.IsActive() {
		return nil, &domain.InvalidTransitionError{SessionID: sessionID, Op: "route", From: session.Status}
	}
	route, err := s.Route(ctx, from, session.Location)
	if err != nil {
		return nil, fmt.Errorf("route to session %s: %w", sessionID, err)
	}
	return route, nil
}

package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/samirrijal/walkies/internal/core/domain"
	"github.com/samirrijal/walkies/internal/core/ports"
	"github.com/samirrijal/walkies/internal/pkg/geospatial"
)

// SessionStore is a WalkSessionRepository held in memory. Transition is a
// compare-and-set under a single mutex.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.WalkSession
	seq      map[string]uint64
	next     uint64
	now      func() time.Time
}

// NewSessionStore creates an empty store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: map[string]*domain.WalkSession{}, seq: map[string]uint64{}, now: time.Now}
}

// Create assigns an id and timestamps and stores the session. A second active
// session for the same owner is rejected.
func (s *SessionStore) Create(_ context.Context, session *domain.WalkSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session.Status.IsActive() {
		for _, existing := range s.sessions {
			if existing.OwnerID == session.OwnerID && existing.Status.IsActive() {
				return &domain.InvalidTransitionError{SessionID: existing.ID, From: existing.Status}
			}
		}
	}

	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := s.now()
	session.CreatedAt = now
	session.UpdatedAt = now
	s.insert(session)
	return nil
}

// Put stores a session as-is, replacing any existing one with the same id.
func (s *SessionStore) Put(session domain.WalkSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = s.now()
	}
	s.insert(&session)
}

func (s *SessionStore) insert(session *domain.WalkSession) {
	if _, ok := s.seq[session.ID]; !ok {
		s.next++
		s.seq[session.ID] = s.next
	}
	s.sessions[session.ID] = clone(session)
}

func (s *SessionStore) GetByID(_ context.Context, id string) (*domain.WalkSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, &domain.NotFoundError{SessionID: id}
	}
	return clone(session), nil
}

func (s *SessionStore) FindActiveByOwner(_ context.Context, ownerID string) (*domain.WalkSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, session := range s.sessions {
		if session.OwnerID == ownerID && session.Status.IsActive() {
			return clone(session), nil
		}
	}
	return nil, nil
}

func (s *SessionStore) ListResolvedByOwner(_ context.Context, ownerID string) ([]domain.WalkSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.WalkSession
	for _, session := range s.sessions {
		if session.OwnerID == ownerID && session.Status.IsTerminal() {
			out = append(out, *clone(session))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return s.seq[out[i].ID] < s.seq[out[j].ID]
	})
	return out, nil
}

func (s *SessionStore) ListOpenNearby(_ context.Context, near domain.WalkLocation, radiusMeters float64, limit int) ([]domain.WalkSession, error) {
	s.mu.RLock()
	var out []domain.WalkSession
	for _, session := range s.sessions {
		if session.Status == domain.StatusMatching && geospatial.IsWithinRange(near, session.Location, radiusMeters) {
			out = append(out, *clone(session))
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return geospatial.DistanceMeters(near, out[i].Location) < geospatial.DistanceMeters(near, out[j].Location)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *SessionStore) Transition(_ context.Context, id string, t ports.StatusTransition) (*domain.WalkSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, &domain.NotFoundError{SessionID: id}
	}
	if !slices.Contains(t.From, session.Status) {
		return nil, &domain.InvalidTransitionError{SessionID: id, From: session.Status}
	}

	session.Status = t.To
	if t.SitterID != "" {
		session.SitterID = t.SitterID
	}
	session.UpdatedAt = s.now()
	return clone(session), nil
}

func clone(s *domain.WalkSession) *domain.WalkSession {
	c := *s
	c.PetIDs = append([]string(nil), s.PetIDs...)
	return &c
}

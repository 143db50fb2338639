package memory

import (
	"context"
	"sync"
)

type profile struct {
	role        string
	ownerToken  string
	sitterToken string
}

// ProfileStore is a ProfileRepository held in memory.
type ProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]*profile
}

// NewProfileStore creates an empty store.
func NewProfileStore() *ProfileStore {
	return &ProfileStore{profiles: map[string]*profile{}}
}

func (s *ProfileStore) RoleOf(_ context.Context, userID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.profiles[userID]; ok {
		return p.role, nil
	}
	return "", nil
}

func (s *ProfileStore) SetRole(_ context.Context, userID, role string) error {
	s.update(userID, func(p *profile) { p.role = role })
	return nil
}

func (s *ProfileStore) SaveOwnerPushToken(_ context.Context, userID, token string) error {
	s.update(userID, func(p *profile) { p.ownerToken = token })
	return nil
}

func (s *ProfileStore) SaveSitterPushToken(_ context.Context, userID, token string) error {
	s.update(userID, func(p *profile) { p.sitterToken = token })
	return nil
}

// PushTokens returns the stored owner and sitter tokens for a user.
func (s *ProfileStore) PushTokens(userID string) (owner, sitter string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.profiles[userID]; ok {
		return p.ownerToken, p.sitterToken
	}
	return "", ""
}

func (s *ProfileStore) update(userID string, fn func(*profile)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		p = &profile{}
		s.profiles[userID] = p
	}
	fn(p)
}

package valkey

import (
	"context"
	"log/slog"

	"github.com/samirrijal/walkies/internal/core/ports"
)

// roleNone is cached for users without a role so they are not re-queried.
const roleNone = "-"

// CachedProfiles wraps a ProfileRepository with a read-through role cache.
type CachedProfiles struct {
	ports.ProfileRepository
	cache ports.CacheService
	ttl   int
}

// NewCachedProfiles creates a CachedProfiles caching roles for ttlSeconds.
func NewCachedProfiles(next ports.ProfileRepository, cache ports.CacheService, ttlSeconds int) *CachedProfiles {
	return &CachedProfiles{ProfileRepository: next, cache: cache, ttl: ttlSeconds}
}

func (p *CachedProfiles) RoleOf(ctx context.Context, userID string) (string, error) {
	key := "role:" + userID
	if b, err := p.cache.Get(ctx, key); err == nil {
		if string(b) == roleNone {
			return "", nil
		}
		return string(b), nil
	}

	role, err := p.ProfileRepository.RoleOf(ctx, userID)
	if err != nil {
		return "", err
	}
	stored := role
	if stored == "" {
		stored = roleNone
	}
	if err := p.cache.Set(ctx, key, []byte(stored), p.ttl); err != nil {
		slog.Warn("cache role", "user_id", userID, "error", err)
	}
	return role, nil
}

func (p *CachedProfiles) SetRole(ctx context.Context, userID, role string) error {
	if err := p.ProfileRepository.SetRole(ctx, userID, role); err != nil {
		return err
	}
	if err := p.cache.Delete(ctx, "role:"+userID); err != nil {
		slog.Warn("invalidate cached role", "user_id", userID, "error", err)
	}
	return nil
}

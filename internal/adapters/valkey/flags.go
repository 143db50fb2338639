package valkey

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/samirrijal/walkies/internal/core/ports"
)

const (
	ownerPathFlag  = "flags:owner_path"
	sitterPathFlag = "flags:sitter_path"
)

// Flags implements ports.FeatureFlags from keys in a cache. A missing or
// unreadable key falls back to the configured default.
type Flags struct {
	cache         ports.CacheService
	ownerDefault  bool
	sitterDefault bool
}

// NewFlags creates Flags with static defaults.
func NewFlags(cache ports.CacheService, ownerDefault, sitterDefault bool) *Flags {
	return &Flags{cache: cache, ownerDefault: ownerDefault, sitterDefault: sitterDefault}
}

func (f *Flags) OwnerPathEnabled(ctx context.Context) bool {
	return f.lookup(ctx, ownerPathFlag, f.ownerDefault)
}

func (f *Flags) SitterPathEnabled(ctx context.Context) bool {
	return f.lookup(ctx, sitterPathFlag, f.sitterDefault)
}

// SetOwnerPath overrides the owner-path flag.
func (f *Flags) SetOwnerPath(ctx context.Context, enabled bool) error {
	return f.cache.Set(ctx, ownerPathFlag, []byte(strconv.FormatBool(enabled)), 0)
}

// SetSitterPath overrides the sitter-path flag.
func (f *Flags) SetSitterPath(ctx context.Context, enabled bool) error {
	return f.cache.Set(ctx, sitterPathFlag, []byte(strconv.FormatBool(enabled)), 0)
}

func (f *Flags) lookup(ctx context.Context, key string, def bool) bool {
	raw, err := f.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			slog.Warn("read feature flag", "flag", key, "error", err)
		}
		return def
	}
	v, ok := parseFlag(string(raw))
	if !ok {
		slog.Warn("unparsable feature flag", "flag", key, "value", string(raw))
		return def
	}
	return v
}

func parseFlag(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "on", "yes", "enabled":
		return true, true
	case "0", "false", "off", "no", "disabled":
		return false, true
	}
	return false, false
}

// StaticFlags is a fixed ports.FeatureFlags used when no cache is configured.
type StaticFlags struct {
	Owner, Sitter bool
}

func (s StaticFlags) OwnerPathEnabled(context.Context) bool  { return s.Owner }
func (s StaticFlags) SitterPathEnabled(context.Context) bool { return s.Sitter }

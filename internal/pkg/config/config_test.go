package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("WALKIES_AUTH_JWT_SECRET", "s3cret")

	cfg, err := Load("walkies-test")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Walk.CompletionRadiusMeters != 100 {
		t.Errorf("expected 100 m completion radius, got %v", cfg.Walk.CompletionRadiusMeters)
	}
	if cfg.Directions.ConnectTimeout != 10*time.Second || cfg.Directions.ReadTimeout != 10*time.Second {
		t.Errorf("unexpected directions timeouts: %+v", cfg.Directions)
	}
	if cfg.Telemetry.ServiceName != "walkies-test" {
		t.Errorf("expected service name walkies-test, got %s", cfg.Telemetry.ServiceName)
	}
	if !cfg.Flags.OwnerPath || !cfg.Flags.SitterPath {
		t.Errorf("flags should default on: %+v", cfg.Flags)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("WALKIES_AUTH_JWT_SECRET", "s3cret")
	t.Setenv("WALKIES_WALK_COMPLETION_RADIUS_METERS", "250")
	t.Setenv("WALKIES_DIRECTIONS_READ_TIMEOUT", "3s")
	t.Setenv("WALKIES_FLAGS_SITTER_PATH", "false")

	cfg, err := Load("walkies-test")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Walk.CompletionRadiusMeters != 250 {
		t.Errorf("expected 250, got %v", cfg.Walk.CompletionRadiusMeters)
	}
	if cfg.Directions.ReadTimeout != 3*time.Second {
		t.Errorf("expected 3s, got %v", cfg.Directions.ReadTimeout)
	}
	if cfg.Flags.SitterPath {
		t.Error("expected sitter path disabled")
	}
}

func TestValidate_CollectsErrors(t *testing.T) {
	cfg := &Config{
		Server:   ServerConfig{Port: 0, ReadTimeout: 1, WriteTimeout: 1},
		Database: DatabaseConfig{Enabled: true},
		Walk:     WalkConfig{CompletionRadiusMeters: -1, MatchTimeout: time.Minute},
		Directions: DirectionsConfig{
			BaseURL: "http://x", ConnectTimeout: time.Second, ReadTimeout: time.Second,
		},
	}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"server.port", "database.host", "completion_radius_meters", "auth.jwt_secret"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q: %v", want, err)
		}
	}
}

func TestValidate_DisabledBackendsSkipChecks(t *testing.T) {
	cfg := &Config{
		Server:     ServerConfig{Port: 8080, ReadTimeout: 1, WriteTimeout: 1},
		Directions: DirectionsConfig{BaseURL: "http://x", ConnectTimeout: time.Second, ReadTimeout: time.Second},
		Walk:       WalkConfig{CompletionRadiusMeters: 100, MatchTimeout: time.Minute},
		Auth:       AuthConfig{JWTSecret: "x"},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

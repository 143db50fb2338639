package http

import (
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/walkies/internal/adapters/auth"
	"github.com/samirrijal/walkies/internal/adapters/postgres"
	"github.com/samirrijal/walkies/internal/adapters/valkey"
	"github.com/samirrijal/walkies/internal/core/ports"
	"github.com/samirrijal/walkies/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Walks    *usecases.WalkLifecycleService
	Guard    *usecases.RouteAccessGuard
	Routes   *usecases.RouteService
	Profiles *usecases.ProfileService
	Auth     auth.Config

	// Locations queues sitter reports for the tracker. When nil, reports
	// are applied inline.
	Locations ports.LocationPublisher

	// RateLimit is requests per minute per IP. Zero means 120.
	RateLimit int

	NATS  *nats.Conn
	DB    *postgres.DB
	Cache *valkey.Cache
}

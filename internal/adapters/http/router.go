package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/etag"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/walkies/internal/pkg/metrics"
)

const requestTimeout = 15 * time.Second

// Version is reported by the health endpoint and the X-API-Version header.
var Version = "dev"

func withTimeout(h fiber.Handler) fiber.Handler {
	return timeout.NewWithContext(h, requestTimeout)
}

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	rate := deps.RateLimit
	if rate <= 0 {
		rate = 120
	}
	app.Use(limiter.New(limiter.Config{
		Max:        rate,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
	}))

	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", Version)
		return c.Next()
	})
	app.Use(etag.New(etag.Config{Weak: true}))
	app.Use(CachingMiddleware())

	app.Get("/v1/health", HealthHandler(Version))
	app.Get("/v1/ready", ReadyHandler(deps))

	authed := RequireAuth(deps.Auth)
	optional := OptionalAuth(deps.Auth)
	ownerFlow := RequireFlow(deps.Guard.CheckOwnerRoute)
	sitterFlow := RequireFlow(deps.Guard.CheckSitterRoute)

	v1 := app.Group("/v1")

	// Access checks answer for anonymous callers too.
	v1.Get("/access/owner", optional, AccessCheckHandler(deps.Guard.CheckOwnerRoute))
	v1.Get("/access/sitter", optional, AccessCheckHandler(deps.Guard.CheckSitterRoute))
	v1.Get("/distance", withTimeout(DistanceHandler(deps)))

	v1.Get("/me", authed, withTimeout(MeHandler(deps)))
	v1.Put("/me/role", authed, withTimeout(SelectRoleHandler(deps)))
	v1.Put("/me/push-token", authed, withTimeout(PushTokenHandler(deps)))

	// Owner flow
	v1.Post("/walks", authed, ownerFlow, withTimeout(CreateWalkHandler(deps)))
	v1.Get("/walks/active", authed, ownerFlow, withTimeout(ActiveWalkHandler(deps)))
	v1.Get("/walks/history", authed, ownerFlow, withTimeout(WalkHistoryHandler(deps)))
	v1.Post("/walks/:id/match", authed, ownerFlow, withTimeout(OwnerTransitionHandler(deps, deps.Walks.MatchSession)))
	v1.Post("/walks/:id/cancel", authed, ownerFlow, withTimeout(OwnerTransitionHandler(deps, deps.Walks.CancelSession)))
	v1.Post("/walks/:id/dismiss", authed, ownerFlow, withTimeout(OwnerTransitionHandler(deps, deps.Walks.DismissSession)))

	// Sitter flow
	v1.Get("/walks/open", authed, sitterFlow, withTimeout(OpenWalksHandler(deps)))
	v1.Post("/walks/:id/accept", authed, sitterFlow, withTimeout(AcceptWalkHandler(deps)))
	v1.Post("/walks/:id/location", authed, sitterFlow, withTimeout(ReportLocationHandler(deps)))
	v1.Get("/walks/:id/route", authed, sitterFlow, withTimeout(WalkRouteHandler(deps)))
	v1.Get("/routes", authed, sitterFlow, withTimeout(RouteHandler(deps)))

	// Either side of a walk
	v1.Get("/walks/:id", authed, withTimeout(GetWalkHandler(deps)))
	v1.Post("/walks/:id/fail", authed, withTimeout(ParticipantTransitionHandler(deps, deps.Walks.FailSession)))

	app.Post("/graphql", optional, GraphQLHandler(deps))

	SetupDocs(app)

	app.Get("/ws/walks/active", WebSocketAuth(deps.Auth), websocket.New(ActiveWalkSocket(deps)))
	app.Get("/ws/walks/history", WebSocketAuth(deps.Auth), websocket.New(WalkHistorySocket(deps)))
}

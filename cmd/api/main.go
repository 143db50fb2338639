package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/nats-io/nats.go"
	"go.temporal.io/sdk/client"

	"github.com/samirrijal/walkies/internal/adapters/auth"
	"github.com/samirrijal/walkies/internal/adapters/directions"
	"github.com/samirrijal/walkies/internal/adapters/http"
	"github.com/samirrijal/walkies/internal/adapters/memory"
	natsadapter "github.com/samirrijal/walkies/internal/adapters/nats"
	"github.com/samirrijal/walkies/internal/adapters/postgres"
	"github.com/samirrijal/walkies/internal/adapters/valkey"
	"github.com/samirrijal/walkies/internal/core/ports"
	"github.com/samirrijal/walkies/internal/core/usecases"
	"github.com/samirrijal/walkies/internal/pkg/config"
	"github.com/samirrijal/walkies/internal/pkg/logging"
	"github.com/samirrijal/walkies/internal/pkg/metrics"
	"github.com/samirrijal/walkies/internal/pkg/telemetry"
	"github.com/samirrijal/walkies/internal/workflows"
)

func main() {
	cfg, err := config.Load("walkies-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format, cfg.Telemetry.ServiceName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown(context.Background())
		}
	}

	// Storage: postgres, or in-process when the database is disabled.
	var (
		db       *postgres.DB
		sessions ports.WalkSessionRepository
		profiles ports.ProfileRepository
	)
	if cfg.Database.Enabled {
		db, err = postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer db.Close()
		sessions = postgres.NewWalkSessionRepo(db.Pool)
		profiles = postgres.NewProfileRepo(db.Pool)
		go reportPoolStats(ctx, db)
	} else {
		slog.Warn("database disabled, walk sessions are kept in memory")
		sessions = memory.NewSessionStore()
		profiles = memory.NewProfileStore()
	}

	// Flags and the role cache live in valkey when it is reachable.
	var flags ports.FeatureFlags = valkey.StaticFlags{Owner: cfg.Flags.OwnerPath, Sitter: cfg.Flags.SitterPath}
	var cache *valkey.Cache
	if cfg.Valkey.Enabled {
		cache, err = valkey.New(cfg.Valkey.Addr)
		if err != nil {
			slog.Warn("valkey unavailable", "error", err)
			cache = nil
		} else {
			defer cache.Close()
			flags = valkey.NewFlags(cache, cfg.Flags.OwnerPath, cfg.Flags.SitterPath)
			profiles = valkey.NewCachedProfiles(profiles, cache, cfg.Valkey.RoleTTLSecs)
		}
	}

	// Session feed and location queue.
	var (
		feed      ports.SessionFeed = memory.NewFeed()
		locations ports.LocationPublisher
		natsConn  *nats.Conn
	)
	if cfg.NATS.Enabled {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable, using in-process feed", "error", err)
		} else {
			defer pub.Close()
			feed = natsadapter.NewSessionFeed(pub)
			locations = pub
			natsConn = pub.Conn()
		}
	}

	walks := usecases.NewWalkLifecycleService(sessions, feed, cfg.Walk.CompletionRadiusMeters)
	if cfg.Temporal.Enabled {
		tc, err := client.Dial(client.Options{
			HostPort:  cfg.Temporal.HostPort,
			Namespace: cfg.Temporal.Namespace,
		})
		if err != nil {
			slog.Warn("temporal unavailable, match timeouts disabled", "error", err)
		} else {
			defer tc.Close()
			walks.WithMatchScheduler(workflows.NewScheduler(tc, cfg.Temporal.TaskQueue, cfg.Walk.MatchTimeout))
		}
	}

	dirs := directions.NewClient(directions.Config{
		BaseURL:        cfg.Directions.BaseURL,
		AccessToken:    cfg.Directions.AccessToken,
		ConnectTimeout: cfg.Directions.ConnectTimeout,
		ReadTimeout:    cfg.Directions.ReadTimeout,
	})

	deps := &http.Dependencies{
		Walks:     walks,
		Guard:     usecases.NewRouteAccessGuard(auth.NewState(profiles), flags),
		Routes:    usecases.NewRouteService(sessions, dirs),
		Profiles:  usecases.NewProfileService(profiles),
		Auth:      auth.Config{Secret: cfg.Auth.JWTSecret, Issuer: cfg.Auth.Issuer},
		Locations: locations,
		RateLimit: cfg.Server.RateLimit,
		NATS:      natsConn,
		DB:        db,
		Cache:     cache,
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    256 * 1024,
		AppName:      "Walkies API",
	})
	app.Use(recover.New())
	if cfg.Log.Format == "text" {
		app.Use(logger.New())
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.CORSOrigins,
		AllowMethods: "GET,POST,PUT,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		MaxAge:       3600,
	}))

	http.SetupRoutes(app, deps)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections", "signal", sig.String())
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}
	slog.Info("server stopped")
}

func reportPoolStats(ctx context.Context, db *postgres.DB) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			metrics.UpdateDBPoolMetrics(db.Pool.Stat())
		case <-ctx.Done():
			return
		}
	}
}

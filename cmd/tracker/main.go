package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	natsadapter "github.com/samirrijal/walkies/internal/adapters/nats"
	"github.com/samirrijal/walkies/internal/adapters/postgres"
	"github.com/samirrijal/walkies/internal/core/domain"
	"github.com/samirrijal/walkies/internal/core/ports"
	"github.com/samirrijal/walkies/internal/core/usecases"
	"github.com/samirrijal/walkies/internal/pkg/config"
	"github.com/samirrijal/walkies/internal/pkg/logging"
	"github.com/samirrijal/walkies/internal/pkg/telemetry"
)

// The tracker consumes queued sitter location reports and completes walks
// whose sitter has reached the meeting point.
func main() {
	cfg, err := config.Load("walkies-tracker")
	if err != nil {
		log.Fatalf("config: %v", err)
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

	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats publisher: %v", err)
	}
	defer pub.Close()

	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats subscriber: %v", err)
	}
	defer sub.Close()

	walks := usecases.NewWalkLifecycleService(
		postgres.NewWalkSessionRepo(db.Pool),
		natsadapter.NewSessionFeed(pub),
		cfg.Walk.CompletionRadiusMeters,
	)

	if err := sub.SubscribeLocations(ctx, handleReport(walks)); err != nil {
		log.Fatalf("subscribe locations: %v", err)
	}
	slog.Info("tracker started", "completion_radius_meters", walks.CompletionRadius())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutting down tracker", "signal", sig.String())
}

// handleReport applies one report. Reports naming the wrong sitter are
// dropped as invalid so they are not redelivered.
func handleReport(walks *usecases.WalkLifecycleService) func(context.Context, *ports.LocationReport) error {
	return func(ctx context.Context, r *ports.LocationReport) error {
		if r.SessionID == "" {
			return &domain.ValidationError{Field: "session_id", Reason: "must not be empty"}
		}
		if r.SitterID != "" {
			s, err := walks.GetSession(ctx, r.SessionID)
			if err != nil {
				return err
			}
			if s.SitterID != r.SitterID {
				return &domain.ValidationError{Field: "sitter_id", Reason: "not the sitter of this walk"}
			}
		}

		outcome, err := walks.ReportLocation(ctx, r.SessionID, r.Location)
		if err != nil {
			if !errors.Is(err, domain.ErrValidation) && !errors.Is(err, domain.ErrNotFound) {
				slog.Error("apply location report", "session_id", r.SessionID, "error", err)
			}
			return err
		}
		if outcome.Completed {
			slog.Info("walk completed", "session_id", r.SessionID, "distance_meters", outcome.DistanceMeters)
		}
		return nil
	}
}

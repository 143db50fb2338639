package main

import (
	"context"
	"log"
	"log/slog"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/samirrijal/walkies/internal/adapters/memory"
	natsadapter "github.com/samirrijal/walkies/internal/adapters/nats"
	"github.com/samirrijal/walkies/internal/adapters/postgres"
	"github.com/samirrijal/walkies/internal/core/ports"
	"github.com/samirrijal/walkies/internal/core/usecases"
	"github.com/samirrijal/walkies/internal/pkg/config"
	"github.com/samirrijal/walkies/internal/pkg/logging"
	"github.com/samirrijal/walkies/internal/workflows"
)

func main() {
	cfg, err := config.Load("walkies-matcher")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format, cfg.Telemetry.ServiceName)

	ctx := context.Background()
	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Without NATS, expiries still land in the store; live views catch up on
	// their next change.
	var feed ports.SessionFeed = memory.NewFeed()
	if cfg.NATS.Enabled {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable, expiries will not be announced", "error", err)
		} else {
			defer pub.Close()
			feed = natsadapter.NewSessionFeed(pub)
		}
	}
	walks := usecases.NewWalkLifecycleService(postgres.NewWalkSessionRepo(db.Pool), feed, cfg.Walk.CompletionRadiusMeters)

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.MatchTimeoutWorkflow)
	w.RegisterActivity(&workflows.MatchActivities{Sessions: walks})

	slog.Info("matcher worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}

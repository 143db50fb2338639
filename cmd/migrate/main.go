package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/samirrijal/walkies/internal/adapters/postgres"
	"github.com/samirrijal/walkies/internal/pkg/config"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: migrate <up|list>")
	}

	cfg, err := config.Load("walkies-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	switch os.Args[1] {
	case "list":
		names, err := postgres.Migrations()
		if err != nil {
			log.Fatalf("list: %v", err)
		}
		for _, n := range names {
			fmt.Println(n)
		}
	case "up":
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		db, err := postgres.New(ctx, cfg.Database.DSN(), 1)
		if err != nil {
			log.Fatalf("db: %v", err)
		}
		defer db.Close()

		if err := postgres.Migrate(ctx, db.Pool, func(name string) {
			fmt.Printf("OK  %s\n", name)
		}); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		log.Println("all migrations applied")
	default:
		log.Fatalf("unknown command: %s", os.Args[1])
	}
}

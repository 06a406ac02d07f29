package main

import (
	"flag"
	"log"

	"github.com/ledgerline/ledgerline/internal/config"
	"github.com/ledgerline/ledgerline/internal/logger"
	"github.com/ledgerline/ledgerline/internal/migrations"
	"github.com/ledgerline/ledgerline/internal/postgres"
	_ "github.com/lib/pq"
)

func main() {
	down := flag.Bool("down", false, "Roll back the most recent migration instead of applying pending ones")
	flag.Parse()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logger.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	logger.Infow("Connecting to database", "host", cfg.Postgres.Host)
	db, err := postgres.NewDB(cfg, logger)
	if err != nil {
		logger.Fatalw("Failed to connect to postgres", "error", err)
	}
	defer db.Close()

	if *down {
		logger.Info("Rolling back most recent migration...")
		if err := migrations.Down(db); err != nil {
			logger.Fatalw("Failed to roll back migration", "error", err)
		}
	} else {
		logger.Info("Running database migrations...")
		if err := migrations.Up(db); err != nil {
			logger.Fatalw("Failed to apply migrations", "error", err)
		}
	}

	logger.Info("Migration completed successfully")
}

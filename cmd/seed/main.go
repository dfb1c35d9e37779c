package main

import (
	"context"
	"flag"
	"log"

	"github.com/saradorri/cardgame/internal/config"
	"github.com/saradorri/cardgame/internal/infrastructure/database"
	"github.com/saradorri/cardgame/internal/infrastructure/logger"
	"github.com/saradorri/cardgame/internal/infrastructure/repository"
	"github.com/saradorri/cardgame/internal/infrastructure/seeder"
	"github.com/saradorri/cardgame/internal/infrastructure/validation"
)

func main() {
	var (
		configPath = flag.String("config", "./config", "Path to config directory")
		configFile = flag.String("env", "development", "Environment")
		username   = flag.String("user", "gandalf", "Username of the seeded player")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath, *configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	newLogger := logger.NewLogger(*configFile, cfg.Log.Level)
	defer func() { _ = newLogger.Sync() }()

	db, err := database.NewDatabase(database.NewConfig(cfg), newLogger)
	if err != nil {
		newLogger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.Sync(ctx, database.SyncOptions{}); err != nil {
		newLogger.WithError(err).Fatal("Failed to sync schema")
	}

	validator := validation.New()
	assoc, err := repository.NewAssociations(db, newLogger)
	if err != nil {
		newLogger.WithError(err).Fatal("Failed to build associations")
	}

	newSeeder := seeder.NewSeeder(
		repository.NewUserRepository(db, validator, newLogger),
		repository.NewDeckRepository(db, validator, newLogger),
		repository.NewCardRepository(db, validator, newLogger),
		repository.NewAttackRepository(db, validator, newLogger),
		assoc,
		newLogger,
	)

	newLogger.Info("Starting database seeding...")
	if err := newSeeder.Seed(ctx, *username); err != nil {
		newLogger.WithError(err).Fatal("Failed to seed database")
	}
	newLogger.Info("Database seeding completed successfully")
}

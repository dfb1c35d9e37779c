package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/saradorri/cardgame/internal/config"
	"github.com/saradorri/cardgame/internal/infrastructure/database"
	"github.com/saradorri/cardgame/internal/infrastructure/logger"
)

func main() {
	var (
		configPath = flag.String("config", "./config", "Path to config directory")
		configFile = flag.String("env", "development", "Environment (development, production)")
		action     = flag.String("action", "sync", "Schema action: sync, reset")
		force      = flag.Bool("force", false, "Same as -action reset")
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
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	var opts database.SyncOptions
	switch *action {
	case "sync":
		opts.Force = *force
	case "reset":
		opts.Force = true
	default:
		log.Fatalf("Unknown action: %s. Valid actions: sync, reset", *action)
	}

	if err := db.Sync(context.Background(), opts); err != nil {
		log.Fatalf("Failed to sync schema: %v", err)
	}
	if opts.Force {
		fmt.Println("Successfully reset schema")
		return
	}
	fmt.Println("Successfully synced schema")
}

package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"trailhead/db"
	"trailhead/internal/config"
	server "trailhead/internal/http"
	"trailhead/internal/importer"
	"trailhead/internal/store"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	role := flag.String("role", "all", "process role: api|importer|all")
	flag.Parse()

	cfg := config.Load(*configPath)

	// Apply embedded migrations on a short-lived connection
	if err := db.Migrate(cfg.Database.DSN); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	// Create a shared *sql.DB with pooling for the Store
	database, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		log.Fatalf("open db failed: %v", err)
	}
	database.SetMaxOpenConns(20)
	database.SetMaxIdleConns(10)
	database.SetConnMaxLifetime(30 * time.Minute)

	st := store.New(database)

	// Ensure initial admin API key if configured
	if cfg.Auth.Enabled && cfg.Auth.InitialAdminKey != "" {
		if _, err := st.EnsureAdminAPIKey(context.Background(), cfg.Auth.InitialAdminKey, "initial-admin"); err != nil {
			log.Fatalf("ensure admin api key failed: %v", err)
		}
	}

	// Set up logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{}))

	rootCtx := context.Background()

	startImporter := func() {
		if !cfg.Importer.Enabled {
			return
		}
		im := importer.New(cfg, st, logger)
		go func() {
			if err := im.Start(rootCtx); err != nil && err != context.Canceled {
				log.Fatalf("importer failed: %v", err)
			}
		}()
	}

	switch *role {
	case "api":
		// API-only: do not start the drop-directory importer.
		s := server.NewServer(cfg, st, logger)
		if err := s.Listen(); err != nil {
			log.Fatalf("server failed: %v", err)
		}
	case "importer":
		// Importer-only: watch the drop directory and block.
		startImporter()
		select {}
	case "all":
		// Default: run both API and importer in one process.
		startImporter()
		s := server.NewServer(cfg, st, logger)
		if err := s.Listen(); err != nil {
			log.Fatalf("server failed: %v", err)
		}
	default:
		log.Fatalf("invalid role: %s (expected api|importer|all)", *role)
	}
}

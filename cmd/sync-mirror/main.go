// cmd/sync-mirror/main.go
// Copies events, posts and their owners from the backend into the Postgres mirror
// used by BACKEND_DRIVER=postgres.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/we-be/vibe-chuck/internal/baas"
	"github.com/we-be/vibe-chuck/internal/config"
	"github.com/we-be/vibe-chuck/internal/db/postgres"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to YAML config file")
	interval := flag.Duration("interval", 0, "repeat the sync at this interval instead of exiting")
	token := flag.String("token", os.Getenv("BACKEND_TOKEN"), "auth token to read collections hidden from anonymous viewers")
	flag.Parse()

	if err := config.LoadDotEnv(".env.local", ".env"); err != nil {
		log.Fatalf("Failed to load env files: %v", err)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("Connecting to database...")
	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	backendURL, source := cfg.ResolveBackendURL()
	client, err := baas.NewHTTPClient(backendURL, cfg.Backend.Timeout)
	if err != nil {
		log.Fatalf("Failed to create backend client: %v", err)
	}
	log.Printf("Syncing from %s (from %s)", backendURL, source)

	syncCtx := baas.WithToken(ctx, *token)
	runOnce := func() error {
		start := time.Now()
		stats, err := postgres.Sync(syncCtx, db, client)
		if err != nil {
			return err
		}
		log.Printf("✓ Mirrored %d events, %d posts, %d users (%d removed) in %v",
			stats.Events, stats.Posts, stats.Users, stats.Removed, time.Since(start).Round(time.Millisecond))
		return nil
	}

	if *interval <= 0 {
		if err := runOnce(); err != nil {
			log.Fatalf("Sync failed: %v", err)
		}
		return
	}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		if err := runOnce(); err != nil {
			log.Printf("Warning: sync failed: %v", err)
		}
		select {
		case <-ctx.Done():
			log.Printf("Stopping sync")
			return
		case <-ticker.C:
		}
	}
}

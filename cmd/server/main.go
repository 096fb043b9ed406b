package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/we-be/vibe-chuck/internal/api/middleware"
	"github.com/we-be/vibe-chuck/internal/api/routes"
	"github.com/we-be/vibe-chuck/internal/baas"
	"github.com/we-be/vibe-chuck/internal/config"
	"github.com/we-be/vibe-chuck/internal/core/events"
	"github.com/we-be/vibe-chuck/internal/core/posts"
	"github.com/we-be/vibe-chuck/internal/db/postgres"
	"github.com/we-be/vibe-chuck/internal/web"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to YAML config file")
	flag.Parse()

	if err := config.LoadDotEnv(".env.local", ".env"); err != nil {
		log.Fatal("Failed to load env files:", err)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("Invalid configuration:", err)
	}

	logger, err := cfg.Log.NewLogger(os.Stderr)
	if err != nil {
		log.Fatal("Invalid log configuration:", err)
	}
	slog.SetDefault(logger)

	backendURL, source := cfg.ResolveBackendURL()
	slog.Info("backend configured", "url", backendURL, "source", source, "driver", cfg.Backend.Driver)

	// Password auth and edits always go to the live backend.
	client, err := baas.NewHTTPClient(backendURL, cfg.Backend.Timeout)
	if err != nil {
		log.Fatal("Failed to create backend client:", err)
	}

	// Reads go through one lazily created handle; the mirror database is only
	// opened on the first page view that needs it, and again on the next one
	// if that attempt failed.
	var mirrorDB atomic.Pointer[sql.DB]
	backend := baas.NewLazy(func() (baas.Backend, error) {
		if cfg.Backend.Driver != config.DriverPostgres {
			return client, nil
		}
		db, err := postgres.Open(context.Background(), cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		mirrorDB.Store(db)
		slog.Info("serving reads from the postgres mirror")
		return postgres.NewMirror(db, backendURL), nil
	})

	eventService := events.NewEventService(backend)
	postService := posts.NewPostService(backend, client, eventService, posts.Config{
		EventPerPage:     cfg.Pages.EventPerPage,
		UserPerPage:      cfg.Pages.UserPerPage,
		TopPostsLimit:    cfg.Pages.TopPostsLimit,
		TopPostsPerEvent: cfg.Pages.TopPostsPerEvent,
	})

	secret := cfg.Session.Secret
	if secret == "" {
		secret = randomSecret()
		slog.Warn("SESSION_SECRET not set, using a random secret; sessions will not survive restarts")
	}
	store, err := middleware.NewCookieStore(secret, cfg.Session.Secure)
	if err != nil {
		log.Fatal("Failed to create session store:", err)
	}
	sessions := middleware.NewSessionMiddleware(store, cfg.Session.Name)

	templates, err := web.NewTemplates()
	if err != nil {
		log.Fatal("Failed to load web templates:", err)
	}
	handlers := web.NewHandlers(templates, postService, eventService, client, sessions)

	r := chi.NewRouter()

	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)

	// Rate limiting: per signed-in user, else per IP
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	defer rateLimiter.Stop()

	routes.RegisterWebRoutes(r, handlers, sessions, rateLimiter)

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed:", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
	}
	if db := mirrorDB.Load(); db != nil {
		if err := db.Close(); err != nil {
			slog.Error("failed to close mirror database", "error", err)
		}
	}
}

func randomSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		log.Fatal("Failed to generate session secret:", err)
	}
	return hex.EncodeToString(buf)
}

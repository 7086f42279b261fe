package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/eduportal-backend/internal/config"
	"github.com/stemsi/eduportal-backend/internal/database"
	"github.com/stemsi/eduportal-backend/internal/handler"
	"github.com/stemsi/eduportal-backend/internal/logger"
	"github.com/stemsi/eduportal-backend/internal/middleware"
	"github.com/stemsi/eduportal-backend/internal/permission"
	"github.com/stemsi/eduportal-backend/internal/repository"
	"github.com/stemsi/eduportal-backend/internal/router"
	"github.com/stemsi/eduportal-backend/internal/service"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting EduPortal Backend")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	facts := repository.NewFacts(pool)

	// ─── Build Permission Registry ─────────────────────────────────────
	registry, err := permission.BuildRegistry(permission.NewPredicates(facts), cfg.PermissionOverridesFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid permission registry")
	}
	log.Info().
		Int("entries", registry.Len()).
		Str("overrides", cfg.PermissionOverridesFile).
		Msg("Permission registry loaded")

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, rdb)
	roleService := service.NewRoleService(facts.Roles, rdb, cfg.RoleCacheTTL, log)
	resolver := permission.NewResolver(registry)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Account: handler.NewAccountHandler(roleService, facts.Users, registry),
		Health: handler.NewHealthHandler(map[string]handler.Pinger{
			"postgres": handler.PingFunc(pool.Ping),
			"redis": handler.PingFunc(func(ctx context.Context) error {
				return rdb.Ping(ctx).Err()
			}),
		}),
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(cfg, log, middleware.AccessConfig{
		Sessions:         authService,
		Roles:            roleService,
		Resolver:         resolver,
		ExcludedPrefixes: cfg.ExcludedPrefixes,
	}, handlers)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}

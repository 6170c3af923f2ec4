package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"billiard/internal/backend"
	"billiard/internal/cache"
	"billiard/internal/cli"
	"billiard/internal/config"
	"billiard/internal/core"
	apphttp "billiard/internal/http"
	"billiard/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger("billiard")

	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).Validate)

	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger, "Invalid backend configuration", err)
	}

	factory := backend.NewFactory(logger.Logger)
	result, err := factory.CreateBackend(context.Background(), backendConfig)
	if err != nil {
		cli.Fatal(logger, "Failed to create backend", err, "backend", cfg.DataBackend)
	}

	summaries := cache.NewLRUCache[core.MonthSummary](cfg.SummaryCacheSize, cfg.SummaryCacheTTL)
	svc := services.NewSessionService(result.Store, result.Publisher, summaries)

	srv := apphttp.NewServer(":"+cfg.Port, svc,
		apphttp.WithLogger(logger),
		apphttp.WithAdminToken(cfg.AdminToken),
		apphttp.WithReadiness(result.Ready),
	)

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", "error", err)
			}
		}
	})

	if cfg.AdminToken == "" {
		logger.Warn("ADMIN_TOKEN not set, destructive endpoints accept the isAdmin query flag")
	}

	logger.Info("Starting billiard server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"events_enabled", result.Publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		cli.Fatal(logger, "Server error", err, "port", cfg.Port)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}

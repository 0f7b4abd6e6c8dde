package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"legalintel/internal/backend"
	"legalintel/internal/cli"
	"legalintel/internal/config"
	apphttp "legalintel/internal/http"
	"legalintel/internal/log"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).Validate)

	if cfg.AMQPURL != "" && !cfg.UsesAMQP() {
		logger.Warn("AMQP_URL is ignored: queued ingest needs the sqlite backend", "backend", cfg.DataBackend)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger, "Invalid backend configuration", err)
	}
	if err := backendCfg.Validate(); err != nil {
		cli.Fatal(logger, "Invalid backend configuration", err, "backend", cfg.DataBackend)
	}

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	data, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend)).CreateBackend(startCtx, backendCfg)
	cancelStart()
	if err != nil {
		cli.Fatal(logger, "Failed to initialize data backend", err, "backend", cfg.DataBackend)
	}

	srv, err := apphttp.NewServer(apphttp.Config{
		Addr:               ":" + cfg.Port,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		CacheSize:          cfg.CacheSize,
		CacheTTL:           cfg.CacheTTL,
		SourceTimeout:      cfg.SourceTimeout,
	}, logger, data)
	if err != nil {
		_ = data.Close()
		cli.Fatal(logger, "Failed to create HTTP server", err)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if err := data.Close(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	})

	logger.Info("Starting legalintel server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"amqp_enabled", data.Publisher != nil,
		"cache_ttl", cfg.CacheTTL.String())

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		cli.Fatal(logger, "Server error", err, "port", cfg.Port)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}

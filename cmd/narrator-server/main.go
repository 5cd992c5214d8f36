package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	appcfg "github.com/park285/chess-narrator/internal/config"
	"github.com/park285/chess-narrator/internal/httpapi"
	"github.com/park285/chess-narrator/internal/narratorbuilder"
	"github.com/park285/chess-narrator/internal/obslog"
	"go.uber.org/zap"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := narratorbuilder.NewServer(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("narrator init error", zap.Error(err))
	}
	defer func() { _ = deps.Close() }()

	app, err := httpapi.NewApp(httpapi.Deps{
		Runner:          deps.Pipeline,
		Recordings:      deps.Recordings,
		Games:           deps.Games,
		Audio:           deps.Audio,
		Metrics:         deps.Metrics,
		Logger:          obslog.Named("http"),
		AllowedOrigins:  cfg.AllowedOrigins,
		MaxConcurrent:   cfg.MaxConcurrentPipelines,
		PipelineTimeout: cfg.PipelineTimeout(),
		RateLimitPerMin: cfg.RateLimitPerMin,
	})
	if err != nil {
		logger.Fatal("http init error", zap.Error(err))
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("narrator server listening", zap.String("addr", cfg.HTTPAddr), zap.String("public_url", cfg.PublicBaseURL))
		errCh <- app.Listen(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		if err != nil {
			logger.Error("http server stopped", zap.Error(err))
		}
	}
	if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	os.Exit(0)
}

// Command devserver serves the contact relay over plain HTTP for local
// front-end development. Requests go through the same handler as Lambda.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"portfolio-contact/internal/app"
	"portfolio-contact/internal/config"
	"portfolio-contact/internal/logging"
)

func main() {
	cfg, err := config.Load(".env.development", ".env")
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}

	logger, closer, err := logging.NewWithFile(cfg.LogLevel, logging.FileOptions{Path: cfg.LogFile})
	if err != nil {
		slog.Error("failed to open log file", "path", cfg.LogFile, "err", err)
		os.Exit(1)
	}
	defer func() { _ = closer.Close() }()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h, err := app.Build(ctx, cfg, logger, nil)
	if err != nil {
		logger.Error("failed to build handler", "err", err)
		os.Exit(1)
	}

	gin.SetMode(gin.ReleaseMode)
	engine := newEngine(h, rateLimitConfig{RPS: cfg.DevRateRPS, Burst: cfg.DevRateBurst}, logger)

	srv := &http.Server{
		Addr:              cfg.DevAddr,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("dev server listening", "addr", cfg.DevAddr, "origins", cfg.AllowedOrigins)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("dev server stopped", "err", err)
		os.Exit(1)
	}
}

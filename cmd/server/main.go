package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vrwarp/locus/internal/app"
	healthhandler "github.com/vrwarp/locus/internal/health/handler"
	"github.com/vrwarp/locus/internal/platform/config"
	"github.com/vrwarp/locus/internal/platform/httpserver"
	"github.com/vrwarp/locus/internal/platform/logger"
	"github.com/vrwarp/locus/internal/platform/metrics"
	reviewhandler "github.com/vrwarp/locus/internal/review/handler"
	httptransport "github.com/vrwarp/locus/internal/transport/http"
	"github.com/vrwarp/locus/pkg/platform/middleware/auth"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log, app.WithMetrics())
	if err != nil {
		log.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	validator, err := auth.NewHS256Validator(cfg.JWTSigningKey)
	if err != nil {
		log.Error("invalid jwt configuration", "error", err)
		os.Exit(1)
	}

	checks := make(map[string]httptransport.HealthCheck)
	for name, check := range a.Checks() {
		checks[name] = check
	}
	router := httptransport.NewRouter(httptransport.Config{
		AllowedOrigins: cfg.AllowedOrigins,
		Metrics:        metrics.New(),
		Logger:         log,
		Checks:         checks,
	},
		healthhandler.New(a.Health, a.AuditConfig, log,
			healthhandler.WithRunLimit(a.RunLimit.Limit("audit_run")),
		),
		reviewhandler.New(a.Review, validator, log),
	)

	go a.RunRelay(ctx)

	srv := httpserver.New(cfg.Addr, router)
	go func() {
		log.Info("starting locus", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	log.Info("locus stopped")
}

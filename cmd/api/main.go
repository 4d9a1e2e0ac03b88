package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/3ngin33r0d1y/API-Monitoring/internal/app/migrate"
	"github.com/3ngin33r0d1y/API-Monitoring/internal/compliance"
	httpx "github.com/3ngin33r0d1y/API-Monitoring/internal/http"
	"github.com/3ngin33r0d1y/API-Monitoring/internal/repository/postgres"
	"github.com/3ngin33r0d1y/API-Monitoring/internal/service/ingest"
	"github.com/3ngin33r0d1y/API-Monitoring/internal/service/monitor"
	"github.com/3ngin33r0d1y/API-Monitoring/internal/service/snapshot"
	"github.com/3ngin33r0d1y/API-Monitoring/internal/ws"
	"github.com/3ngin33r0d1y/API-Monitoring/pkg/config"
	"github.com/3ngin33r0d1y/API-Monitoring/pkg/logger"
)

func main() {
	cfg := config.LoadAPIConfig()
	log := logger.New("api", logger.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	runner, err := migrate.New(pool, cfg.DatabaseURL, cfg.MigrationsDir, log)
	if err != nil {
		log.Error("failed to configure migrations", "error", err)
		os.Exit(1)
	}
	defer runner.Close()
	if err := runner.Ping(ctx); err != nil {
		log.Error("database ping failed", "error", err)
		os.Exit(1)
	}
	if err := runner.Ensure(ctx); err != nil {
		log.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	repo := postgres.New(pool)
	hub := ws.NewHub()

	engine := compliance.NewEngine(compliance.RuleConfig{
		IncludeMissingUATWarning: cfg.IncludeMissingUATWarning,
	})
	snapshotSvc := snapshot.New(repo, repo, engine, log)
	ingestSvc := ingest.New(repo, repo, log)
	monitorSvc := monitor.New(snapshotSvc, hub, log, cfg.RefreshInterval)
	go monitorSvc.Run(ctx)
	go pruneLoop(ctx, ingestSvc, cfg.RecordTTL, log)

	limiter := httpx.NewMemoryRateLimiter()
	if addr := strings.TrimSpace(cfg.RateLimitRedisAddr); addr != "" {
		redisLimiter, err := httpx.NewRedisRateLimiter(addr, cfg.RateLimitRedisPass, cfg.RateLimitRedisDB, log)
		if err != nil {
			log.Warn("redis rate limiter unavailable", "error", err)
		} else {
			limiter = redisLimiter
		}
	}

	router := httpx.NewRouter(log, monitorSvc, ingestSvc, hub, limiter, cfg.CollectorToken, pool.Ping)
	defer router.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errorCh := make(chan error, 1)
	go func() {
		log.Info("api server starting", "addr", cfg.Addr)
		errorCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		log.Info("api server stopped")
	case err := <-errorCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}

// pruneLoop evicts records collectors stopped refreshing so dead services
// eventually drop out of the fleet score.
func pruneLoop(ctx context.Context, ingestSvc ingest.Service, ttl time.Duration, log *slog.Logger) {
	if ttl <= 0 {
		return
	}
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if _, err := ingestSvc.Prune(ctx, ttl); err != nil {
				log.Error("record pruning failed", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/pageturn/session-service/config"
	"github.com/pageturn/session-service/internal/cache"
	"github.com/pageturn/session-service/internal/postgres"
	"github.com/pageturn/session-service/internal/queue"
	"github.com/pageturn/session-service/internal/service"
	httpx "github.com/pageturn/session-service/internal/transport/http"
	"github.com/pageturn/session-service/pkg/logger"
)

func main() {
	// --- config ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(logger.Config{
		Env:       logger.Env(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	slog.Info("starting session-service",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- postgres ---
	if cfg.Postgres.Migrate {
		if err := postgres.MigrateUp(cfg.Postgres.DSN, cfg.Postgres.MigrationsPath); err != nil {
			log.Fatalf("migrate: %v", err)
		}
	}
	pool, err := postgres.NewPool(ctx, postgres.Config{
		DSN:             cfg.Postgres.DSN,
		MaxConns:        cfg.Postgres.MaxConns,
		MinConns:        cfg.Postgres.MinConns,
		ApplicationName: cfg.Logging.Service,
	})
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	// --- redis ---
	redisCache, err := cache.NewRedis(ctx, cfg.Redis.URL)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer redisCache.Close()
	invalidator := cache.NewInvalidator(redisCache)

	// --- queue ---
	queueClient, err := queue.NewClient(cfg.Redis.URL)
	if err != nil {
		log.Fatalf("asynq client: %v", err)
	}
	defer queueClient.Close()

	// --- repos ---
	sessionRepo := postgres.NewSessionRepository(pool)
	membershipRepo := postgres.NewMembershipRepository(pool)

	// --- services ---
	memberSvc := service.NewMemberService(membershipRepo, invalidator, queueClient)
	memberSvc.SetRetryPolicy(cfg.Admission.RetryAttempts, cfg.RetryBackoff())
	sessionSvc := service.NewSessionService(sessionRepo, memberSvc, redisCache, invalidator, queueClient)
	sessionSvc.SetViewTTL(cfg.ViewTTL())

	// --- HTTP ---
	handler := httpx.NewHandler(sessionSvc, memberSvc)
	router := httpx.NewRouter(handler)
	httpSrv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 2)

	go func() {
		slog.Info("http listen", "addr", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// --- invalidation worker ---
	if cfg.Worker.Enabled {
		worker, err := queue.NewWorker(cfg.Redis.URL, cfg.Worker.Concurrency, invalidator)
		if err != nil {
			log.Fatalf("asynq worker: %v", err)
		}
		go func() {
			slog.Info("invalidation worker started", "concurrency", cfg.Worker.Concurrency)
			if err := worker.Run(ctx); err != nil {
				errCh <- err
			}
		}()
	}

	// --- graceful shutdown ---
	select {
	case <-ctx.Done():
		slog.Info("shutdown signal")
	case err := <-errCh:
		slog.Error("server error", "err", err)
	}

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpSrv.Shutdown(ctxShutdown)
	slog.Info("stopped")
}

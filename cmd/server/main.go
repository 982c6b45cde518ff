package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/planforge/sprint-planner/internal/config"
	"github.com/planforge/sprint-planner/internal/handler"
	"github.com/planforge/sprint-planner/internal/infrastructure/postgres"
	"github.com/planforge/sprint-planner/internal/usecase/capacity"
	"github.com/planforge/sprint-planner/internal/usecase/sprint"
	"github.com/planforge/sprint-planner/pkg/logger"
)

func main() {
	cfg := config.Load()
	logger := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.DBURL)
	if err != nil {
		log.Fatalf("failed to connect db: %v", err)
	}
	defer pool.Close()

	if cfg.Migrate {
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
		logger.Info("migrations completed")
	}

	repo := postgres.NewPostgresRepository(pool, logger)
	sprintUC := sprint.New(repo, logger)
	defaults := capacity.Options{
		SprintDurationDays: cfg.SprintDurationDays,
		BufferPercentage:   cfg.BufferPercentage,
	}
	h := handler.New(sprintUC, repo, cfg.APIToken, defaults, logger)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: h.Router(),
	}

	go func() {
		logger.Info("server listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

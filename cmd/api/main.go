package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"finsight/internal/config"
	"finsight/internal/database"
	"finsight/internal/llm"
	"finsight/internal/logger"
	"finsight/internal/router"
	"finsight/internal/services"
	"finsight/internal/task"
	"finsight/internal/validator"
)

// @title           Finsight API
// @version         1.0
// @description     Finsight records personal transactions, summarizes spending and produces AI-assisted budgeting insights and advisor chat.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

const shutdownTimeout = 15 * time.Second

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	dbManager, err := database.NewManager(database.ConfigFrom(cfg))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer dbManager.Close()

	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	validator.Register()

	var completer llm.Completer
	if cfg.LLMConfigured() {
		completer = llm.FromConfig(cfg)
		log.Infow("completion API configured", "provider", cfg.LLMProvider)
	} else {
		log.Warnw("no completion API key configured; insights and chat run offline")
	}

	insightCache, err := services.NewInsightCache(cfg.InsightCacheTTL)
	if err != nil {
		return fmt.Errorf("failed to create insight cache: %w", err)
	}
	defer insightCache.Close()

	pool := task.NewPool(cfg.WorkerPoolSize)

	engine := router.New(router.Deps{
		Config:       cfg,
		DB:           dbManager.DB(),
		Completer:    completer,
		Pool:         pool,
		InsightCache: insightCache,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting Finsight server on port %s", cfg.Port)
		log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	// Hijacked WebSocket connections are not tracked by Shutdown, so give
	// their outstanding completions what is left of the deadline.
	drained := make(chan struct{})
	go func() {
		pool.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-shutdownCtx.Done():
		log.Warnw("abandoning in-flight completions")
	}
	return nil
}

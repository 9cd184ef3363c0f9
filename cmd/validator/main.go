package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/checkmesh/arbiter/internal/api"
	"github.com/checkmesh/arbiter/internal/catalog"
	"github.com/checkmesh/arbiter/internal/config"
	"github.com/checkmesh/arbiter/internal/ledger"
	"github.com/checkmesh/arbiter/internal/llm"
	"github.com/checkmesh/arbiter/internal/registry"
	"github.com/checkmesh/arbiter/internal/service"
	"github.com/checkmesh/arbiter/internal/store"
	"github.com/checkmesh/arbiter/internal/transport"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	if err := config.Load(); err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	dbURL := config.DatabaseURL()
	if dbURL == "" {
		logger.Fatal("DATABASE_URL is required")
	}

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatal("failed to ping database", zap.Error(err))
	}
	logger.Info("connected to database")

	itemStore := store.NewItemStore(pool)
	predictionStore := store.NewPredictionStore(pool)

	analyzer, err := llm.NewAnalyzer(config.AnalyzerProvider(), config.AnalyzerAPIKey(), logger)
	if err != nil {
		logger.Fatal("analyzer initialization failed",
			zap.String("provider", config.AnalyzerProvider()), zap.Error(err))
	}
	logger.Info("analyzer initialized", zap.String("provider", config.AnalyzerProvider()))

	catalogClient := catalog.NewClient(config.CatalogBaseURL(), itemStore, logger)
	catalogClient.SetRate(config.CatalogRPS(), 4)

	scorer := service.NewCompositeScorer(analyzer, logger)
	engine := service.NewEngine(scorer, logger)
	engine.SetConcurrency(config.ScoreConcurrency())

	orchestrator := service.NewOrchestrator(
		catalogClient,
		transport.NewHTTPDispatcher(logger),
		registry.NewClient(config.RegistryBaseURL()),
		ledger.NewClient(config.LedgerBaseURL()),
		itemStore,
		predictionStore,
		service.NewDuplicateFilter(logger),
		engine,
		logger,
	)
	orchestrator.SetInterval(config.RoundInterval())
	orchestrator.SetDispatchTimeout(config.DispatchTimeout())
	orchestrator.SetCacheSize(config.PredictionCacheSize())

	orchestrator.Start()

	app := api.NewApp(orchestrator, itemStore, predictionStore, logger)
	addr := config.ServerAddr()
	srv := &http.Server{
		Addr:    addr,
		Handler: app.Router,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("ops server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("shutting down")

	orchestrator.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("validator stopped")
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/atendimento-webhook-go/internal/app"
	"github.com/boddenberg/atendimento-webhook-go/internal/config"
	"github.com/boddenberg/atendimento-webhook-go/internal/domain"
	"github.com/boddenberg/atendimento-webhook-go/internal/handler"
	"github.com/boddenberg/atendimento-webhook-go/internal/infra/cache"
	"github.com/boddenberg/atendimento-webhook-go/internal/infra/observability"
	"github.com/boddenberg/atendimento-webhook-go/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel, zap.String("service", "atendimento-webhook"))
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("store_backend", cfg.StoreBackend),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Duration("dedupe_ttl", cfg.DedupeTTL),
		zap.Bool("redis_dedupe", cfg.RedisURL != ""),
		zap.Bool("strict_validation", cfg.StrictValidation),
		zap.String("end_time_policy", cfg.EndTimePolicy),
		zap.String("display_timezone", cfg.DisplayTimezone),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "atendimento-webhook")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	ctx := context.Background()

	// --- Row store ---
	store, err := app.OpenStore(ctx, cfg, metrics, logger)
	if err != nil {
		logger.Fatal("failed to open row store", zap.Error(err))
	}
	defer store.Close()

	// --- De-duplication window ---
	guard, err := app.OpenGuard(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open delivery guard", zap.Error(err))
	}
	defer guard.Close()

	// --- Normalization ---
	engagements, visits, err := app.Assemblers(cfg)
	if err != nil {
		logger.Fatal("failed to load provider paths", zap.Error(err))
	}

	// --- Cache ---
	summaryCache := cache.New[*domain.DashboardSummary](cfg.SummaryTTL)
	defer summaryCache.Close()

	// --- Services ---
	ingestSvc := service.NewIngestion(
		store,
		guard.DeliveryGuard,
		engagements,
		visits,
		metrics,
		logger,
	)
	dashSvc := service.NewDashboard(store, summaryCache, logger)

	// --- Router ---
	router := handler.NewRouter(ingestSvc, dashSvc, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

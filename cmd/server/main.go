package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cardnetsim/processing/internal/adapters/postgres"
	"github.com/cardnetsim/processing/internal/adapters/zaplog"
	"github.com/cardnetsim/processing/internal/config"
	"github.com/cardnetsim/processing/internal/domain/ports"
	"github.com/cardnetsim/processing/internal/handlers/processing"
	"github.com/cardnetsim/processing/internal/services/authorization"
	"github.com/cardnetsim/processing/internal/services/cards"
	"github.com/cardnetsim/processing/internal/services/fees"
	"github.com/cardnetsim/processing/internal/services/fraud"
	"github.com/cardnetsim/processing/internal/services/reporting"
	"github.com/cardnetsim/processing/internal/services/settlement"
	"github.com/cardnetsim/processing/pkg/middleware"
	"github.com/cardnetsim/processing/pkg/observability"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	zapLogger := initLogger(cfg.Logger)
	defer zapLogger.Sync()

	zapLogger.Info("Starting card processing core",
		zap.String("version", "0.1.0"),
	)

	ctx := context.Background()

	pool, err := initDatabase(ctx, cfg)
	if err != nil {
		zapLogger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer pool.Close()

	zapLogger.Info("Database connection established",
		zap.String("database", cfg.Database.Database),
	)

	logger := zaplog.New(zapLogger)
	db := postgres.NewDBExecutor(pool)

	// Repositories
	cardRepo := postgres.NewCardRepository(db)
	cardholderRepo := postgres.NewCardholderRepository(db)
	bankRepo := postgres.NewBankRepository(db)
	merchantRepo := postgres.NewMerchantRepository(db)
	txRepo := postgres.NewTransactionRepository(db)
	authRepo := postgres.NewAuthorizationRepository(db)
	feeRepo := postgres.NewFeeRepository(db)
	settlementRepo := postgres.NewSettlementRepository(db)
	reportRepo := postgres.NewReportingRepository(db)
	statusLog := postgres.NewCardStatusLogRepository(db)

	// The fraud sink is optional; without it detection still runs
	var fraudSink ports.FraudSink
	if cfg.Processing.FraudSinkEnabled {
		fraudSink = postgres.NewFraudMonitoringSink(db)
	}

	// Services
	feeService := fees.NewService(feeRepo, logger)
	authService := authorization.NewService(db, cardRepo, merchantRepo, txRepo, authRepo, feeService, logger)
	settlementService := settlement.NewService(db, merchantRepo, txRepo, settlementRepo, logger)
	fraudDetector := fraud.NewDetector(cardRepo, txRepo, fraudSink, logger)
	reportingService := reporting.NewService(db, reportRepo, logger)
	cardService := cards.NewService(db, cardRepo, cardholderRepo, bankRepo, statusLog, logger)

	fraudDefaults := processing.FraudDefaults{
		WindowHours: cfg.Processing.FraudWindowHours,
		Threshold:   cfg.Processing.FraudThreshold,
	}
	handler := processing.NewHandler(authService, settlementService, fraudDetector, reportingService, cardService, feeService, fraudDefaults, logger)

	// HTTP surface
	rateLimiter := middleware.NewRateLimiter(cfg.Processing.RateLimitPerSecond, cfg.Processing.RateLimitBurst)
	defer rateLimiter.Shutdown()

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.Recoverer)
	router.Use(observability.HTTPMetricsMiddleware)
	router.Use(rateLimiter.Middleware)
	router.Route("/api/v1", handler.Routes)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	healthChecker := observability.NewHealthChecker(pool)
	metricsServer := observability.StartMetricsServer(fmt.Sprintf("%d", cfg.Server.MetricsPort), healthChecker)

	go func() {
		zapLogger.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	zapLogger.Info("Shutting down", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("HTTP server shutdown", zap.Error(err))
	}
	if err := observability.ShutdownMetricsServer(metricsServer); err != nil {
		zapLogger.Error("Metrics server shutdown", zap.Error(err))
	}
}

func initLogger(cfg config.LoggerConfig) *zap.Logger {
	var zapCfg zap.Config
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapCfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

func initDatabase(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.MaxConns = cfg.Database.MaxConns
	poolConfig.MinConns = cfg.Database.MinConns

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/tonscope/tokenrisk/internal/auth"
	"github.com/tonscope/tokenrisk/internal/config"
	"github.com/tonscope/tokenrisk/internal/database"
	"github.com/tonscope/tokenrisk/internal/marketdata"
	"github.com/tonscope/tokenrisk/internal/risk"
	"github.com/tonscope/tokenrisk/internal/server"
	"github.com/tonscope/tokenrisk/pkg/logger"
	"github.com/tonscope/tokenrisk/pkg/metrics"
	"github.com/tonscope/tokenrisk/pkg/models"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	// Create logger
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	zapLogger, err := logger.NewLogger(logLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		zapLogger.Fatal("Failed to load configuration", zap.Error(err))
	}
	if cfg.Database.DSN == "" {
		zapLogger.Fatal("DATABASE_URL is not set")
	}
	if cfg.Auth.JWTSecret == "" {
		zapLogger.Fatal("JWT_SECRET is not set")
	}

	// Connect to PostgreSQL
	db, err := database.NewPostgresDB(cfg.Database.DSN, cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime)
	if err != nil {
		zapLogger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	if err := db.AutoMigrate(&models.TokenRisk{}); err != nil {
		zapLogger.Fatal("Failed to migrate database", zap.Error(err))
	}

	// Schedule DB pool metrics collection every 30s
	tickerDB := time.NewTicker(30 * time.Second)
	defer tickerDB.Stop()
	go func() {
		for range tickerDB.C {
			if sqlDB, err := db.DB(); err == nil {
				stats := sqlDB.Stats()
				metrics.DBOpenConns.WithLabelValues("postgres").Set(float64(stats.OpenConnections))
				metrics.DBIdleConns.WithLabelValues("postgres").Set(float64(stats.Idle))
				metrics.DBInUseConns.WithLabelValues("postgres").Set(float64(stats.InUse))
			}
		}
	}()

	// Create services
	authSvc, err := auth.NewService(zapLogger, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.NonceTTL)
	if err != nil {
		zapLogger.Fatal("Failed to create auth service", zap.Error(err))
	}

	provider := marketdata.NewMockProvider(zapLogger)
	engine := risk.NewEngine(risk.ScoringConfig{
		VolatilityCeilingPct:  cfg.Risk.VolatilityCeilingPct,
		LiquidityAmplePct:     cfg.Risk.LiquidityAmplePct,
		LiquidityThinPct:      cfg.Risk.LiquidityThinPct,
		NeutralSafetyScore:    cfg.Risk.NeutralSafetyScore,
		NeutralSentimentScore: cfg.Risk.NeutralSentimentScore,
	})
	store := risk.NewStore(db)

	riskSvc, err := risk.NewService(zapLogger, store, provider, engine,
		cfg.Risk.StalenessWindow, cfg.Risk.RecomputeTimeout, cfg.Risk.HistoryDays)
	if err != nil {
		zapLogger.Fatal("Failed to create risk service", zap.Error(err))
	}

	// Start the bulk refresh sweeper
	sweeper := risk.NewSweeper(zapLogger, store, riskSvc, cfg.Risk.SweepInterval)
	if err := sweeper.Start(); err != nil {
		zapLogger.Fatal("Failed to start risk sweeper", zap.Error(err))
	}

	// Create API server
	apiServer := server.NewServer(zapLogger, authSvc, riskSvc)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      apiServer.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		zapLogger.Info("HTTP server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("Shutting down...")

	if err := sweeper.Stop(); err != nil {
		zapLogger.Warn("Failed to stop risk sweeper", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		zapLogger.Error("HTTP server shutdown failed", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

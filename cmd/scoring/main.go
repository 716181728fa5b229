package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sony/gobreaker"

	"github.com/finwatch/fraud-platform/internal/api/scoring"
	"github.com/finwatch/fraud-platform/internal/config"
	"github.com/finwatch/fraud-platform/internal/fraud"
	"github.com/finwatch/fraud-platform/internal/kv"
	"github.com/finwatch/fraud-platform/internal/store/postgres"
	"github.com/finwatch/fraud-platform/pkg/health"
	"github.com/finwatch/fraud-platform/pkg/logger"
	"github.com/finwatch/fraud-platform/pkg/version"
)

func main() {
	version.ServiceName = "scoring-service"

	cfg, err := config.Load()
	if err != nil {
		println("failed to load configuration:", err.Error())
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel, cfg.Environment)
	defer log.Sync()

	db, err := postgres.Connect(cfg.Database)
	if err != nil {
		log.Fatal("failed to connect to database", "error", err)
	}
	defer db.Close()

	if err := postgres.RunMigrations(cfg.Database.URL, "internal/store/migrations"); err != nil {
		log.Fatal("failed to run migrations", "error", err)
	}

	kvClient, err := kv.NewRedisClient(kv.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err != nil {
		log.Fatal("failed to connect to redis", "error", err)
	}
	defer kvClient.Close()

	zapLogger := log.Zap()

	transactionStore := postgres.NewTransactionRepository(db, zapLogger)
	ibanStore := postgres.NewIBANRepository(db, zapLogger)
	vendorStore := postgres.NewVendorRepository(db, zapLogger)

	engine := fraud.NewEngine(kvClient, transactionStore, ibanStore, vendorStore, zapLogger)

	healthChecker := health.NewHealthChecker(5 * time.Second)
	healthChecker.Register(health.NewDatabaseChecker(db.DB, 3*time.Second))
	healthChecker.Register(health.NewRedisChecker(kvClient.Underlying(), 3*time.Second))
	healthChecker.Register(health.NewCircuitBreakerChecker("durable-store-fallback",
		func() string {
			switch engine.Breaker().State() {
			case gobreaker.StateOpen:
				return "open"
			case gobreaker.StateHalfOpen:
				return "half-open"
			default:
				return "closed"
			}
		},
		func() map[string]interface{} {
			counts := engine.Breaker().Counts()
			return map[string]interface{}{
				"requests":             counts.Requests,
				"total_failures":       counts.TotalFailures,
				"consecutive_failures": counts.ConsecutiveFailures,
			}
		},
	))

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	scoring.SetupRoutes(router, scoring.Deps{
		Invoices: scoring.NewInvoiceHandler(engine),
		Health:   scoring.NewHealthHandler(healthChecker),
		APIKey:   cfg.Scoring.APIKey,
		Logger:   log,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Infow("scoring service listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("scoring server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down scoring service")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("scoring server forced to shut down", "error", err)
	}
}

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/finwatch/fraud-platform/internal/api/edge"
	"github.com/finwatch/fraud-platform/internal/audit"
	"github.com/finwatch/fraud-platform/internal/authn"
	"github.com/finwatch/fraud-platform/internal/config"
	"github.com/finwatch/fraud-platform/internal/domain/entities"
	"github.com/finwatch/fraud-platform/internal/jwtauth"
	"github.com/finwatch/fraud-platform/internal/kv"
	"github.com/finwatch/fraud-platform/internal/store/postgres"
	"github.com/finwatch/fraud-platform/pkg/crypto"
	"github.com/finwatch/fraud-platform/pkg/health"
	"github.com/finwatch/fraud-platform/pkg/logger"
	"github.com/finwatch/fraud-platform/pkg/ratelimit"
	"github.com/finwatch/fraud-platform/pkg/version"
)

// defaultAdminUsername/Password are the credentials seedDefaultAdmin
// seeds when --seed-admin is passed against a non-production environment.
const (
	defaultAdminUsername = "admin"
	defaultAdminPassword = "ChangeMe123!"
)

func main() {
	version.ServiceName = "edge-service"

	seedAdmin := flag.Bool("seed-admin", false, "seed a default admin user on boot (refused outside non-production environments)")
	flag.Parse()

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

	userStore := postgres.NewUserRepository(db, zapLogger)
	tokenStore := postgres.NewTokenRepository(db, zapLogger)
	auditStore := postgres.NewAuditRepository(db, zapLogger)

	if *seedAdmin {
		seedDefaultAdmin(context.Background(), userStore, cfg.Environment, zapLogger)
	}

	tokens, err := jwtauth.New(jwtauth.Config{
		Secret:     cfg.JWT.Secret,
		AccessTTL:  time.Duration(cfg.JWT.AccessTTL) * time.Second,
		RefreshTTL: time.Duration(cfg.JWT.RefreshTTL) * time.Second,
		Issuer:     cfg.JWT.Issuer,
	}, kvClient, tokenStore, zapLogger)
	if err != nil {
		log.Fatal("failed to initialize token subsystem", "error", err)
	}

	sink := audit.New(auditStore, zapLogger)
	ctx, cancelAudit := context.WithCancel(context.Background())
	sink.Start(ctx)
	defer cancelAudit()

	authService := authn.New(userStore, tokens, sink, zapLogger)
	scoringClient := edge.NewScoringClient(cfg.Scoring.BaseURL, cfg.Scoring.APIKey)

	loginLimiter := ratelimit.PerIPLimiter(kvClient.Underlying(), 5, time.Minute, zapLogger)

	healthChecker := health.NewHealthChecker(5 * time.Second)
	healthChecker.Register(health.NewDatabaseChecker(db.DB, 3*time.Second))
	healthChecker.Register(health.NewRedisChecker(kvClient.Underlying(), 3*time.Second))
	healthChecker.Register(health.NewWorkerChecker("audit-sink",
		func() bool { return true },
		func() map[string]interface{} { return map[string]interface{}{"queue_depth": sink.QueueDepth()} },
	))

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	edge.SetupRoutes(router, edge.Deps{
		Auth:        edge.NewAuthHandler(authService),
		Invoices:    edge.NewInvoiceHandler(scoringClient, sink),
		Health:      edge.NewHealthHandler(healthChecker),
		Tokens:      tokens,
		Logger:      log,
		CORSOrigins:  cfg.Server.AllowedOrigins,
		RateLimit:    cfg.Server.RateLimitPerMin,
		LoginLimiter: loginLimiter,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Infow("edge service listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("edge server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down edge service")
	cancelAudit()
	sink.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("edge server forced to shut down", "error", err)
	}
}

// seedDefaultAdmin creates a default admin account on first boot, refusing
// to run outside non-production environments so the well-known password
// never reaches a live deployment.
func seedDefaultAdmin(ctx context.Context, users *postgres.UserRepository, environment string, zapLogger *zap.Logger) {
	if environment == "production" {
		zapLogger.Warn("--seed-admin ignored in production environment")
		return
	}

	hash, err := crypto.HashPassword(defaultAdminPassword)
	if err != nil {
		zapLogger.Error("failed to hash default admin password", zap.Error(err))
		return
	}

	created, err := users.Create(ctx, &entities.User{
		Username:     defaultAdminUsername,
		Email:        "admin@local",
		PasswordHash: hash,
		DisplayName:  "Administrator",
	})
	if err != nil {
		zapLogger.Error("failed to seed default admin user", zap.Error(err))
		return
	}
	if created {
		zapLogger.Warn("seeded default admin user", zap.String("username", defaultAdminUsername))
	} else {
		zapLogger.Info("default admin user already exists, skipping seed")
	}
}

package edge

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/finwatch/fraud-platform/internal/api/middleware"
	"github.com/finwatch/fraud-platform/internal/jwtauth"
	"github.com/finwatch/fraud-platform/pkg/logger"
	"github.com/finwatch/fraud-platform/pkg/ratelimit"
	"github.com/finwatch/fraud-platform/pkg/tracing"
)

// Deps bundles everything SetupRoutes needs to wire the edge service's
// routes.
type Deps struct {
	Auth         *AuthHandler
	Invoices     *InvoiceHandler
	Health       *HealthHandler
	Tokens       *jwtauth.Service
	Logger       *logger.Logger
	CORSOrigins  []string
	RateLimit    int
	LoginLimiter ratelimit.Limiter
}

// SetupRoutes wires the edge service's full route table onto router.
func SetupRoutes(router *gin.Engine, deps Deps) {
	router.Use(
		middleware.RequestID(),
		tracing.HTTPMiddleware(),
		middleware.Logger(deps.Logger),
		middleware.Recovery(deps.Logger),
		middleware.CORS(deps.CORSOrigins),
		middleware.SecurityHeaders(),
		middleware.GzipCompression(),
	)

	router.GET("/actuator/health", deps.Health.Liveness)
	router.GET("/api/v1/invoices/health", deps.Health.InvoiceHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := router.Group("/api/auth")
	auth.Use(middleware.RateLimit(deps.RateLimit))
	{
		auth.POST("/login", middleware.LoginThrottle(deps.LoginLimiter), deps.Auth.Login)
		auth.POST("/logout", middleware.Authentication(deps.Tokens), deps.Auth.Logout)
		auth.POST("/refresh", deps.Auth.Refresh)
	}

	invoices := router.Group("/api/v1/invoices")
	invoices.Use(middleware.Authentication(deps.Tokens))
	{
		invoices.POST("/validate", deps.Invoices.Validate)
	}
}

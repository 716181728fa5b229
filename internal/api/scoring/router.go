package scoring

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/finwatch/fraud-platform/internal/api/middleware"
	"github.com/finwatch/fraud-platform/pkg/logger"
	"github.com/finwatch/fraud-platform/pkg/tracing"
)

// Deps bundles everything SetupRoutes needs to wire the scoring service's
// routes.
type Deps struct {
	Invoices *InvoiceHandler
	Health   *HealthHandler
	APIKey   string
	Logger   *logger.Logger
}

// SetupRoutes wires the scoring service's route table onto router.
func SetupRoutes(router *gin.Engine, deps Deps) {
	router.Use(
		middleware.RequestID(),
		tracing.HTTPMiddleware(),
		middleware.Logger(deps.Logger),
		middleware.Recovery(deps.Logger),
		middleware.SecurityHeaders(),
	)

	router.GET("/actuator/health", deps.Health.Liveness)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	invoices := router.Group("/api/v1/invoices")
	invoices.Use(middleware.ValidateAPIKey(deps.APIKey))
	{
		invoices.POST("/validate", deps.Invoices.Validate)
	}
}

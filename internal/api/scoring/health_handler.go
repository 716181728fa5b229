package scoring

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/finwatch/fraud-platform/pkg/health"
	"github.com/finwatch/fraud-platform/pkg/version"
)

// HealthHandler exposes the scoring service's unauthenticated liveness
// endpoint.
type HealthHandler struct {
	checker *health.HealthChecker
}

func NewHealthHandler(checker *health.HealthChecker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

// Liveness handles GET /actuator/health.
func (h *HealthHandler) Liveness(c *gin.Context) {
	status, checks := h.checker.Check(c.Request.Context())
	code := http.StatusOK
	if status == health.StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, health.HealthResponse{
		Status:  status,
		Service: version.ServiceName,
		Version: version.Version,
		Checks:  checks,
	})
}

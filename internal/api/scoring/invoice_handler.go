// Package scoring implements the internal-facing HTTP surface the fraud
// engine runs behind: a single pre-shared-key-gated validation endpoint
// plus a liveness probe.
package scoring

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/finwatch/fraud-platform/internal/domain/entities"
	"github.com/finwatch/fraud-platform/internal/fraud"
	apperrors "github.com/finwatch/fraud-platform/pkg/errors"
)

// InvoiceHandler runs every validation request through the fraud engine.
type InvoiceHandler struct {
	engine *fraud.Engine
}

func NewInvoiceHandler(engine *fraud.Engine) *InvoiceHandler {
	return &InvoiceHandler{engine: engine}
}

// Validate handles POST /api/v1/invoices/validate.
func (h *InvoiceHandler) Validate(c *gin.Context) {
	var req entities.ValidationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":    "error",
			"error":     apperrors.KindInputInvalid,
			"message":   "request validation failed",
			"details":   map[string]string{"request": err.Error()},
			"timestamp": time.Now(),
		})
		return
	}
	if req.Amount.Sign() <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":    "error",
			"error":     apperrors.KindInputInvalid,
			"message":   "request validation failed",
			"details":   map[string]string{"amount": "must be greater than 0"},
			"timestamp": time.Now(),
		})
		return
	}
	if req.VendorID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":    "error",
			"error":     apperrors.KindInputInvalid,
			"message":   "request validation failed",
			"details":   map[string]string{"vendorId": "must be positive"},
			"timestamp": time.Now(),
		})
		return
	}

	resp := h.engine.Check(c.Request.Context(), req)
	c.JSON(http.StatusOK, resp)
}

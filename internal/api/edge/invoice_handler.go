package edge

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/finwatch/fraud-platform/internal/audit"
	"github.com/finwatch/fraud-platform/internal/domain/entities"
	apperrors "github.com/finwatch/fraud-platform/pkg/errors"
)

// InvoiceHandler proxies the validation request of a caller already
// authenticated by middleware.Authentication to the scoring service.
type InvoiceHandler struct {
	scoring *ScoringClient
	sink    *audit.Sink
}

func NewInvoiceHandler(scoring *ScoringClient, sink *audit.Sink) *InvoiceHandler {
	return &InvoiceHandler{scoring: scoring, sink: sink}
}

// Validate handles POST /api/v1/invoices/validate.
func (h *InvoiceHandler) Validate(c *gin.Context) {
	var req entities.ValidationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		appErr := apperrors.InputInvalid("request validation failed")
		c.JSON(http.StatusBadRequest, gin.H{
			"status":    "error",
			"error":     appErr.Kind,
			"message":   appErr.Message,
			"details":   fieldErrors(err),
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

	resp, err := h.scoring.Validate(c.Request.Context(), req)
	if err != nil {
		writeAppError(c, err)
		return
	}

	userID, _ := c.Get("user_id")
	var uid *int64
	if id, ok := userID.(int64); ok {
		uid = &id
	}
	meta := requestMeta(c)
	h.sink.Emit(c.Request.Context(), uid, entities.AuditActionInvoiceValidate, "invoice",
		meta.IPAddress, meta.UserAgent, map[string]interface{}{
			"invoiceNumber": req.InvoiceNumber,
			"iban":          req.IBAN,
			"amount":        req.Amount.String(),
			"vendorId":      req.VendorID,
			"decision":      resp.Decision,
			"fraudScore":    resp.FraudScore,
		})

	c.JSON(http.StatusOK, resp)
}

// fieldErrors builds a minimal per-field message map from a gin binding
// error; good enough for the generic "required field missing" case this
// endpoint's request shape produces.
func fieldErrors(err error) map[string]string {
	return map[string]string{"request": err.Error()}
}

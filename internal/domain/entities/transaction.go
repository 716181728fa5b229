package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Decision is the tiered outcome of a fraud check.
type Decision string

const (
	DecisionAllow  Decision = "ALLOW"
	DecisionReview Decision = "REVIEW"
	DecisionBlock  Decision = "BLOCK"
)

// Transaction is the immutable record of one invoice-validation request,
// written once the scoring engine has reached a decision. FraudScore is
// always in [0,100]; RiskFactors preserves rule order (1..5), not completion
// order.
type Transaction struct {
	ID                int64           `db:"id" json:"id"`
	CorrelationID     uuid.UUID       `db:"correlation_id" json:"correlationId"`
	IBAN              string          `db:"iban" json:"iban"`
	Amount            decimal.Decimal `db:"amount" json:"amount"`
	VendorID          *int64          `db:"vendor_id" json:"vendorId,omitempty"`
	InvoiceNumber     string          `db:"invoice_number" json:"invoiceNumber"`
	FraudScore        int             `db:"fraud_score" json:"fraudScore"`
	Decision          Decision        `db:"decision" json:"decision"`
	RiskFactors       []string        `db:"risk_factors" json:"riskFactors"`
	CreatedAt         time.Time       `db:"created_at" json:"createdAt"`
}

// ValidationRequest is the inbound request shape shared by the edge proxy
// and the scoring service's own HTTP surface.
type ValidationRequest struct {
	IBAN          string          `json:"iban" binding:"required"`
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	VendorID      int64           `json:"vendorId" binding:"required,gt=0"`
	InvoiceNumber string          `json:"invoiceNumber" binding:"required"`
}

// ValidationResponse is the scoring outcome returned to the caller.
type ValidationResponse struct {
	Decision    Decision `json:"decision"`
	FraudScore  int      `json:"fraudScore"`
	RiskFactors []string `json:"riskFactors"`
}

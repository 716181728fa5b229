package fraud

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ruleIndex fixes the canonical ordering risk factors are composed in,
// independent of completion order.
type ruleIndex int

const (
	ruleDuplicateInvoice ruleIndex = iota
	ruleInvalidIBAN
	ruleRiskyIBAN
	ruleAmountManipulation
	ruleVelocityAnomaly
	ruleCount
)

var ruleNames = map[ruleIndex]string{
	ruleDuplicateInvoice:   "duplicate_invoice",
	ruleInvalidIBAN:        "invalid_iban",
	ruleRiskyIBAN:          "risky_iban",
	ruleAmountManipulation: "amount_manipulation",
	ruleVelocityAnomaly:    "velocity_anomaly",
}

// ruleOutcome is what a rule reports back to the engine: points contributed
// and, if triggered, a human-readable risk factor message.
type ruleOutcome struct {
	points int
	factor string
}

// amountThresholds are the named constants the amount-manipulation rule
// tests amounts against, per the single-window decision: a ∈ [T−50, T+1].
var amountThresholds = []int64{999, 1999, 4999, 9999, 14999, 19999, 49999}

const amountMarginLower = 50
const amountMarginUpper = 1

// checkAmountManipulation triggers when amount falls within 50 below or 1
// above any named threshold, using exact decimal comparison.
func checkAmountManipulation(amount decimal.Decimal) ruleOutcome {
	for _, t := range amountThresholds {
		threshold := decimal.NewFromInt(t)
		lower := threshold.Sub(decimal.NewFromInt(amountMarginLower))
		upper := threshold.Add(decimal.NewFromInt(amountMarginUpper))
		if amount.Cmp(lower) >= 0 && amount.Cmp(upper) <= 0 {
			return ruleOutcome{points: 30, factor: "Amount suspiciously close to common threshold"}
		}
	}
	return ruleOutcome{}
}

// ruleDuplicateInvoiceOutcome uses the KV set-if-absent primitive as the
// sole mutator and linearization point: exactly one request within the 24h
// window observes "first". On any KV error the invoice is treated as
// not-duplicate (false-negative preferred over false-positive).
func (e *Engine) ruleDuplicateInvoiceOutcome(ctx context.Context, invoiceNumber string) ruleOutcome {
	key := "fraud:duplicate:" + invoiceNumber
	wrote, err := e.kv.SetNX(ctx, key, "1", 24*time.Hour)
	if err != nil {
		return ruleOutcome{}
	}
	if wrote {
		// First time seeing this invoice within the window — not a duplicate.
		return ruleOutcome{}
	}
	return ruleOutcome{points: 50, factor: "Duplicate invoice detected within 24 hours"}
}

func (e *Engine) ruleInvalidIBANOutcome(ctx context.Context, iban string) ruleOutcome {
	valid, reason := ValidateIBAN(ctx, e.kv, e.logger, iban)
	if valid {
		return ruleOutcome{}
	}
	return ruleOutcome{points: 50, factor: fmt.Sprintf("Invalid IBAN: %s", reason)}
}

func (e *Engine) ruleRiskyIBANOutcome(ctx context.Context, iban string) ruleOutcome {
	risky, err := e.lookupRiskyIBAN(ctx, iban)
	if err != nil {
		return ruleOutcome{}
	}
	if !risky {
		return ruleOutcome{}
	}
	return ruleOutcome{points: 40, factor: "IBAN flagged as high risk"}
}

func (e *Engine) ruleAmountManipulationOutcome(amount decimal.Decimal) ruleOutcome {
	return checkAmountManipulation(amount)
}

func (e *Engine) ruleVelocityAnomalyOutcome(ctx context.Context, iban string, vendorID int64) ruleOutcome {
	ibanCount, err1 := e.velocityCount(ctx, "fraud:velocity:iban:"+iban, "iban", iban)
	vendorCount, err2 := e.velocityCount(ctx, fmt.Sprintf("fraud:velocity:vendor:%d", vendorID), "vendor", fmt.Sprintf("%d", vendorID))

	if err1 == nil && ibanCount >= 5 {
		return ruleOutcome{points: 15, factor: "Unusual transaction velocity detected"}
	}
	if err2 == nil && vendorCount >= 10 {
		return ruleOutcome{points: 15, factor: "Unusual transaction velocity detected"}
	}
	return ruleOutcome{}
}

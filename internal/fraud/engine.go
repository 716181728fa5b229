package fraud

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/finwatch/fraud-platform/internal/domain/entities"
	"github.com/finwatch/fraud-platform/internal/kv"
	"github.com/finwatch/fraud-platform/internal/store"
	"github.com/finwatch/fraud-platform/pkg/circuitbreaker"
	"github.com/finwatch/fraud-platform/pkg/metrics"
)

// ruleDeadline is the hard wall-clock budget for the rule fan-out join.
// Any rule not reported by this point contributes 0 points; the engine
// prefers to under-score rather than stall.
const ruleDeadline = 150 * time.Millisecond

// velocityWindow is the sliding window both the IBAN and vendor velocity
// counters use.
const velocityWindow = 15 * time.Minute

// Engine executes the five fraud rules concurrently, aggregates score,
// decides, and persists the resulting transaction record.
type Engine struct {
	kv           kv.Client
	transactions store.TransactionStore
	ibans        store.IBANStore
	vendors      store.VendorStore
	logger       *zap.Logger
	breaker      *gobreaker.CircuitBreaker
}

func NewEngine(kvClient kv.Client, transactions store.TransactionStore, ibans store.IBANStore, vendors store.VendorStore, logger *zap.Logger) *Engine {
	return &Engine{
		kv:           kvClient,
		transactions: transactions,
		ibans:        ibans,
		vendors:      vendors,
		logger:       logger,
		breaker:      circuitbreaker.New("durable-store-fallback", circuitbreaker.DefaultConfig(), logger),
	}
}

// Check runs the public contract: evaluate all five rules, aggregate,
// decide, then persist the transaction and record velocity markers.
func (e *Engine) Check(ctx context.Context, req entities.ValidationRequest) entities.ValidationResponse {
	outcomes := e.runRules(ctx, req)

	score := 0
	factors := []string{}
	for i := ruleIndex(0); i < ruleCount; i++ {
		score += outcomes[i].points
		if outcomes[i].factor != "" {
			factors = append(factors, outcomes[i].factor)
			metrics.FraudRuleTriggeredTotal.WithLabelValues(ruleNames[i]).Inc()
		}
	}
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}

	decision := decide(score)
	metrics.RecordFraudCheck(string(decision), score)

	// Velocity markers and persistence happen after the join, never inside
	// a rule task, so a deadline-expired rule can never mutate state.
	e.recordVelocity(ctx, req.IBAN, req.VendorID, req.InvoiceNumber)
	e.persist(ctx, req, score, decision, factors)

	if err := e.vendors.IncrementCounts(ctx, req.VendorID, decision != entities.DecisionAllow); err != nil {
		e.logger.Warn("failed to update vendor counts", zap.Error(err), zap.Int64("vendor_id", req.VendorID))
	}

	return entities.ValidationResponse{
		Decision:    decision,
		FraudScore:  score,
		RiskFactors: factors,
	}
}

// Breaker exposes the durable-store-fallback circuit breaker for health
// reporting; the engine itself is the only caller that trips or resets it.
func (e *Engine) Breaker() *gobreaker.CircuitBreaker {
	return e.breaker
}

func decide(score int) entities.Decision {
	switch {
	case score <= 30:
		return entities.DecisionAllow
	case score <= 70:
		return entities.DecisionReview
	default:
		return entities.DecisionBlock
	}
}

// runRules fans the five rules out onto goroutines and joins them with a
// hard deadline via errgroup + context.WithTimeout. A rule that misses the
// deadline contributes the zero outcome; it may run to completion but its
// result is discarded.
func (e *Engine) runRules(ctx context.Context, req entities.ValidationRequest) [ruleCount]ruleOutcome {
	deadlineCtx, cancel := context.WithTimeout(ctx, ruleDeadline)
	defer cancel()

	results := make([]chan ruleOutcome, ruleCount)
	for i := range results {
		results[i] = make(chan ruleOutcome, 1)
	}

	// Rule tasks run to completion even past the join deadline — only their
	// results are discarded — so they're given a context detached from the
	// deadline that still carries the request's values but none of its
	// cancellation.
	g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))

	g.Go(func() error {
		results[ruleDuplicateInvoice] <- e.ruleDuplicateInvoiceOutcome(gctx, req.InvoiceNumber)
		return nil
	})
	g.Go(func() error {
		results[ruleInvalidIBAN] <- e.ruleInvalidIBANOutcome(gctx, req.IBAN)
		return nil
	})
	g.Go(func() error {
		results[ruleRiskyIBAN] <- e.ruleRiskyIBANOutcome(gctx, req.IBAN)
		return nil
	})
	g.Go(func() error {
		results[ruleAmountManipulation] <- e.ruleAmountManipulationOutcome(req.Amount)
		return nil
	})
	g.Go(func() error {
		results[ruleVelocityAnomaly] <- e.ruleVelocityAnomalyOutcome(gctx, req.IBAN, req.VendorID)
		return nil
	})

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()

	var outcomes [ruleCount]ruleOutcome
	select {
	case <-done:
	case <-deadlineCtx.Done():
	}

	for i := ruleIndex(0); i < ruleCount; i++ {
		select {
		case o := <-results[i]:
			outcomes[i] = o
		default:
			metrics.FraudRuleDeadlineExceededTotal.WithLabelValues(ruleNames[i]).Inc()
			outcomes[i] = ruleOutcome{}
		}
	}

	return outcomes
}

// lookupRiskyIBAN checks the `fraud:risky:iban:<iban>` cache first, then
// falls back to the durable registry through a circuit breaker.
func (e *Engine) lookupRiskyIBAN(ctx context.Context, iban string) (bool, error) {
	cacheKey := "fraud:risky:iban:" + iban
	if cached, found, err := e.kv.Get(ctx, cacheKey); err == nil && found {
		return cached == "true", nil
	}

	result, err := e.breaker.Execute(func() (interface{}, error) {
		record, err := e.ibans.Lookup(ctx, iban)
		if err != nil {
			return false, err
		}
		if record == nil {
			return false, nil
		}
		return record.Risky, nil
	})
	if err != nil {
		return false, err
	}

	risky := result.(bool)
	val := "false"
	if risky {
		val = "true"
	}
	_ = e.kv.Set(ctx, cacheKey, val, 4*time.Hour)

	return risky, nil
}

// velocityCount reads the sliding-window count from KV; on any KV error it
// falls back to a durable COUNT(*) query through the circuit breaker. The
// two sources need not agree — minor drift is an accepted availability
// trade per the design.
func (e *Engine) velocityCount(ctx context.Context, key, kind, value string) (int64, error) {
	now := time.Now()
	windowStart := now.Add(-velocityWindow)

	count, err := e.kv.ZCount(ctx, key, float64(windowStart.UnixMilli()), float64(now.UnixMilli()))
	if err == nil {
		return count, nil
	}

	field := store.CountFieldIBAN
	if kind == "vendor" {
		field = store.CountFieldVendorID
	}

	result, breakerErr := e.breaker.Execute(func() (interface{}, error) {
		return e.transactions.CountSince(ctx, field, value, windowStart)
	})
	if breakerErr != nil {
		return 0, breakerErr
	}
	return result.(int64), nil
}

// recordVelocity appends the current (invoiceNumber, now) marker to both
// the IBAN and vendor ordered sets and resets each key's TTL to the window
// length, regardless of the decision reached.
func (e *Engine) recordVelocity(ctx context.Context, iban string, vendorID int64, invoiceNumber string) {
	now := float64(time.Now().UnixMilli())

	ibanKey := "fraud:velocity:iban:" + iban
	if err := e.kv.ZAdd(ctx, ibanKey, now, invoiceNumber); err != nil {
		e.logger.Warn("failed to record iban velocity marker", zap.Error(err), zap.String("iban", iban))
	} else if err := e.kv.Expire(ctx, ibanKey, velocityWindow); err != nil {
		e.logger.Warn("failed to reset iban velocity ttl", zap.Error(err))
	}

	vendorKey := fmt.Sprintf("fraud:velocity:vendor:%d", vendorID)
	if err := e.kv.ZAdd(ctx, vendorKey, now, invoiceNumber); err != nil {
		e.logger.Warn("failed to record vendor velocity marker", zap.Error(err), zap.Int64("vendor_id", vendorID))
	} else if err := e.kv.Expire(ctx, vendorKey, velocityWindow); err != nil {
		e.logger.Warn("failed to reset vendor velocity ttl", zap.Error(err))
	}
}

// persist writes the immutable transaction record. Failure is logged but
// never changes the response already computed.
func (e *Engine) persist(ctx context.Context, req entities.ValidationRequest, score int, decision entities.Decision, factors []string) {
	tx := &entities.Transaction{
		CorrelationID: uuid.New(),
		IBAN:          req.IBAN,
		Amount:        req.Amount,
		VendorID:      &req.VendorID,
		InvoiceNumber: req.InvoiceNumber,
		FraudScore:    score,
		Decision:      decision,
		RiskFactors:   factors,
		CreatedAt:     time.Now(),
	}

	if err := e.transactions.Create(ctx, tx); err != nil {
		e.logger.Error("failed to persist transaction record", zap.Error(err),
			zap.String("correlation_id", tx.CorrelationID.String()))
	}
}

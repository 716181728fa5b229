package fraud

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/finwatch/fraud-platform/internal/domain/entities"
)

func TestCheckAmountManipulation_WithinLowerMargin(t *testing.T) {
	outcome := checkAmountManipulation(decimal.NewFromInt(1960)) // 1999 - 39

	assert.Equal(t, 30, outcome.points)
	assert.NotEmpty(t, outcome.factor)
}

func TestCheckAmountManipulation_AtUpperMargin(t *testing.T) {
	outcome := checkAmountManipulation(decimal.NewFromInt(2000)) // 1999 + 1

	assert.Equal(t, 30, outcome.points)
}

func TestCheckAmountManipulation_JustOutsideLowerMargin(t *testing.T) {
	outcome := checkAmountManipulation(decimal.NewFromInt(1948)) // 1999 - 51

	assert.Equal(t, ruleOutcome{}, outcome)
}

func TestCheckAmountManipulation_JustOutsideUpperMargin(t *testing.T) {
	outcome := checkAmountManipulation(decimal.NewFromInt(2001)) // 1999 + 2

	assert.Equal(t, ruleOutcome{}, outcome)
}

func TestCheckAmountManipulation_OrdinaryAmountNotFlagged(t *testing.T) {
	outcome := checkAmountManipulation(decimal.NewFromInt(500))

	assert.Equal(t, ruleOutcome{}, outcome)
}

func TestCheckAmountManipulation_ExactThreshold(t *testing.T) {
	outcome := checkAmountManipulation(decimal.NewFromInt(999))

	assert.Equal(t, 30, outcome.points)
}

func TestCheckAmountManipulation_FractionalAmountInMargin(t *testing.T) {
	outcome := checkAmountManipulation(decimal.NewFromFloat(9998.50))

	assert.Equal(t, 30, outcome.points)
}

func TestDecide_AllowUpToAndIncludingThirty(t *testing.T) {
	assert.Equal(t, entities.DecisionAllow, decide(30))
}

func TestDecide_ReviewJustAboveAllowBoundary(t *testing.T) {
	assert.Equal(t, entities.DecisionReview, decide(31))
}

func TestDecide_ReviewUpToAndIncludingSeventy(t *testing.T) {
	assert.Equal(t, entities.DecisionReview, decide(70))
}

func TestDecide_BlockJustAboveReviewBoundary(t *testing.T) {
	assert.Equal(t, entities.DecisionBlock, decide(71))
}

func TestRuleVelocityAnomalyOutcome_FourIBANEntriesDoesNotTrigger(t *testing.T) {
	ctx := context.Background()
	kvClient := &mockKVClient{}
	engine := newTestEngine(t, kvClient, &mockTransactionStore{}, &mockIBANStore{}, &mockVendorStore{})

	kvClient.On("ZCount", ctx, "fraud:velocity:iban:"+validBulgarianIBAN, mock.Anything, mock.Anything).Return(int64(4), nil)
	kvClient.On("ZCount", ctx, "fraud:velocity:vendor:7", mock.Anything, mock.Anything).Return(int64(0), nil)

	outcome := engine.ruleVelocityAnomalyOutcome(ctx, validBulgarianIBAN, 7)

	assert.Equal(t, ruleOutcome{}, outcome)
}

func TestRuleVelocityAnomalyOutcome_FiveIBANEntriesTriggers(t *testing.T) {
	ctx := context.Background()
	kvClient := &mockKVClient{}
	engine := newTestEngine(t, kvClient, &mockTransactionStore{}, &mockIBANStore{}, &mockVendorStore{})

	kvClient.On("ZCount", ctx, "fraud:velocity:iban:"+validBulgarianIBAN, mock.Anything, mock.Anything).Return(int64(5), nil)
	kvClient.On("ZCount", ctx, "fraud:velocity:vendor:7", mock.Anything, mock.Anything).Return(int64(0), nil)

	outcome := engine.ruleVelocityAnomalyOutcome(ctx, validBulgarianIBAN, 7)

	assert.Equal(t, 15, outcome.points)
}

func TestRuleVelocityAnomalyOutcome_NineVendorEntriesDoesNotTrigger(t *testing.T) {
	ctx := context.Background()
	kvClient := &mockKVClient{}
	engine := newTestEngine(t, kvClient, &mockTransactionStore{}, &mockIBANStore{}, &mockVendorStore{})

	kvClient.On("ZCount", ctx, "fraud:velocity:iban:"+validBulgarianIBAN, mock.Anything, mock.Anything).Return(int64(0), nil)
	kvClient.On("ZCount", ctx, "fraud:velocity:vendor:7", mock.Anything, mock.Anything).Return(int64(9), nil)

	outcome := engine.ruleVelocityAnomalyOutcome(ctx, validBulgarianIBAN, 7)

	assert.Equal(t, ruleOutcome{}, outcome)
}

func TestRuleVelocityAnomalyOutcome_TenVendorEntriesTriggers(t *testing.T) {
	ctx := context.Background()
	kvClient := &mockKVClient{}
	engine := newTestEngine(t, kvClient, &mockTransactionStore{}, &mockIBANStore{}, &mockVendorStore{})

	kvClient.On("ZCount", ctx, "fraud:velocity:iban:"+validBulgarianIBAN, mock.Anything, mock.Anything).Return(int64(0), nil)
	kvClient.On("ZCount", ctx, "fraud:velocity:vendor:7", mock.Anything, mock.Anything).Return(int64(10), nil)

	outcome := engine.ruleVelocityAnomalyOutcome(ctx, validBulgarianIBAN, 7)

	assert.Equal(t, 15, outcome.points)
}

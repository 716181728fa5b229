package fraud

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap/zaptest"

	"github.com/finwatch/fraud-platform/internal/domain/entities"
	"github.com/finwatch/fraud-platform/internal/store"
)

type mockTransactionStore struct {
	mock.Mock
}

func (m *mockTransactionStore) Create(ctx context.Context, tx *entities.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *mockTransactionStore) CountSince(ctx context.Context, field store.CountField, value string, since time.Time) (int64, error) {
	args := m.Called(ctx, field, value, since)
	return args.Get(0).(int64), args.Error(1)
}

type mockIBANStore struct {
	mock.Mock
}

func (m *mockIBANStore) Lookup(ctx context.Context, iban string) (*entities.IBANRecord, error) {
	args := m.Called(ctx, iban)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.IBANRecord), args.Error(1)
}

type mockVendorStore struct {
	mock.Mock
}

func (m *mockVendorStore) GetByID(ctx context.Context, id int64) (*entities.Vendor, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Vendor), args.Error(1)
}

func (m *mockVendorStore) IncrementCounts(ctx context.Context, vendorID int64, flagged bool) error {
	args := m.Called(ctx, vendorID, flagged)
	return args.Error(0)
}

// validRequest returns a request with a syntactically and checksum-valid
// IBAN, an amount far from any manipulation threshold, and a fresh
// invoice number, so only whichever rule a test cares about can trigger.
func validRequest(invoiceNumber string) entities.ValidationRequest {
	return entities.ValidationRequest{
		IBAN:          validBulgarianIBAN,
		Amount:        decimal.NewFromInt(250),
		VendorID:      7,
		InvoiceNumber: invoiceNumber,
	}
}

func newTestEngine(t *testing.T, kvClient *mockKVClient, transactions *mockTransactionStore, ibans *mockIBANStore, vendors *mockVendorStore) *Engine {
	return NewEngine(kvClient, transactions, ibans, vendors, zaptest.NewLogger(t))
}

func TestEngine_Check_AllowsCleanInvoice(t *testing.T) {
	ctx := context.Background()
	kvClient := &mockKVClient{}
	transactions := &mockTransactionStore{}
	ibans := &mockIBANStore{}
	vendors := &mockVendorStore{}

	req := validRequest("INV-CLEAN-1")

	kvClient.On("SetNX", mock.Anything, "fraud:duplicate:"+req.InvoiceNumber, "1", 24*time.Hour).Return(true, nil)
	kvClient.On("Get", mock.Anything, mock.Anything).Return("", false, nil)
	kvClient.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	kvClient.On("ZCount", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(int64(0), nil)
	kvClient.On("ZAdd", ctx, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	kvClient.On("Expire", ctx, mock.Anything, mock.Anything).Return(nil)
	ibans.On("Lookup", mock.Anything, req.IBAN).Return((*entities.IBANRecord)(nil), nil)
	transactions.On("Create", ctx, mock.AnythingOfType("*entities.Transaction")).Return(nil)
	vendors.On("IncrementCounts", ctx, req.VendorID, false).Return(nil)

	engine := newTestEngine(t, kvClient, transactions, ibans, vendors)
	resp := engine.Check(ctx, req)

	assert.Equal(t, entities.DecisionAllow, resp.Decision)
	assert.Equal(t, 0, resp.FraudScore)
	assert.Empty(t, resp.RiskFactors)
	vendors.AssertCalled(t, "IncrementCounts", ctx, req.VendorID, false)
}

func TestEngine_Check_BlocksDuplicateAndInvalidIBAN(t *testing.T) {
	ctx := context.Background()
	kvClient := &mockKVClient{}
	transactions := &mockTransactionStore{}
	ibans := &mockIBANStore{}
	vendors := &mockVendorStore{}

	req := entities.ValidationRequest{
		IBAN:          "DE80BNBG96611020345678", // wrong country prefix, invalid
		Amount:        decimal.NewFromInt(250),
		VendorID:      7,
		InvoiceNumber: "INV-DUP-1",
	}

	kvClient.On("SetNX", mock.Anything, "fraud:duplicate:"+req.InvoiceNumber, "1", 24*time.Hour).Return(false, nil)
	kvClient.On("Get", mock.Anything, mock.Anything).Return("", false, nil)
	kvClient.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	kvClient.On("ZCount", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(int64(0), nil)
	kvClient.On("ZAdd", ctx, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	kvClient.On("Expire", ctx, mock.Anything, mock.Anything).Return(nil)
	ibans.On("Lookup", mock.Anything, req.IBAN).Return((*entities.IBANRecord)(nil), nil)
	transactions.On("Create", ctx, mock.AnythingOfType("*entities.Transaction")).Return(nil)
	vendors.On("IncrementCounts", ctx, req.VendorID, true).Return(nil)

	engine := newTestEngine(t, kvClient, transactions, ibans, vendors)
	resp := engine.Check(ctx, req)

	// duplicate invoice (50) + invalid IBAN (50) = 100, clamped, BLOCK.
	assert.Equal(t, entities.DecisionBlock, resp.Decision)
	assert.Equal(t, 100, resp.FraudScore)
	assert.Len(t, resp.RiskFactors, 2)
	vendors.AssertCalled(t, "IncrementCounts", ctx, req.VendorID, true)
}

func TestEngine_Check_RiskyIBANContributesReview(t *testing.T) {
	ctx := context.Background()
	kvClient := &mockKVClient{}
	transactions := &mockTransactionStore{}
	ibans := &mockIBANStore{}
	vendors := &mockVendorStore{}

	req := validRequest("INV-RISKY-1")

	kvClient.On("SetNX", mock.Anything, "fraud:duplicate:"+req.InvoiceNumber, "1", 24*time.Hour).Return(true, nil)
	kvClient.On("Get", mock.Anything, "iban:valid:"+req.IBAN).Return("", false, nil)
	kvClient.On("Get", mock.Anything, "fraud:risky:iban:"+req.IBAN).Return("", false, nil)
	kvClient.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	kvClient.On("ZCount", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(int64(0), nil)
	kvClient.On("ZAdd", ctx, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	kvClient.On("Expire", ctx, mock.Anything, mock.Anything).Return(nil)
	ibans.On("Lookup", mock.Anything, req.IBAN).Return(&entities.IBANRecord{IBAN: req.IBAN, Risky: true}, nil)
	transactions.On("Create", ctx, mock.AnythingOfType("*entities.Transaction")).Return(nil)
	vendors.On("IncrementCounts", ctx, req.VendorID, true).Return(nil)

	engine := newTestEngine(t, kvClient, transactions, ibans, vendors)
	resp := engine.Check(ctx, req)

	assert.Equal(t, entities.DecisionReview, resp.Decision)
	assert.Equal(t, 40, resp.FraudScore)
	assert.Equal(t, []string{"IBAN flagged as high risk"}, resp.RiskFactors)
}

func TestEngine_Check_StalledRuleContributesZeroWithinDeadline(t *testing.T) {
	ctx := context.Background()
	kvClient := &mockKVClient{}
	transactions := &mockTransactionStore{}
	ibans := &mockIBANStore{}
	vendors := &mockVendorStore{}

	req := validRequest("INV-STALL-1")

	kvClient.On("SetNX", mock.Anything, "fraud:duplicate:"+req.InvoiceNumber, "1", 24*time.Hour).Return(true, nil)
	kvClient.On("Get", mock.Anything, mock.Anything).Return("", false, nil)
	kvClient.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	kvClient.On("ZCount", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(int64(0), nil)
	kvClient.On("ZAdd", ctx, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	kvClient.On("Expire", ctx, mock.Anything, mock.Anything).Return(nil)
	// The risky-IBAN lookup stalls for 1s, well past the rule join deadline;
	// the engine must not wait for it.
	ibans.On("Lookup", mock.Anything, req.IBAN).Run(func(args mock.Arguments) {
		time.Sleep(time.Second)
	}).Return((*entities.IBANRecord)(nil), nil)
	transactions.On("Create", ctx, mock.AnythingOfType("*entities.Transaction")).Return(nil)
	vendors.On("IncrementCounts", ctx, req.VendorID, false).Return(nil)

	engine := newTestEngine(t, kvClient, transactions, ibans, vendors)

	start := time.Now()
	resp := engine.Check(ctx, req)
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 500*time.Millisecond, "engine should return near the rule deadline, not wait for the stalled rule")
	assert.Equal(t, entities.DecisionAllow, resp.Decision)
	assert.Equal(t, 0, resp.FraudScore)
}

func TestEngine_Check_PersistFailureStillReturnsComputedResponse(t *testing.T) {
	ctx := context.Background()
	kvClient := &mockKVClient{}
	transactions := &mockTransactionStore{}
	ibans := &mockIBANStore{}
	vendors := &mockVendorStore{}

	req := validRequest("INV-PERSIST-FAIL-1")

	kvClient.On("SetNX", mock.Anything, "fraud:duplicate:"+req.InvoiceNumber, "1", 24*time.Hour).Return(true, nil)
	kvClient.On("Get", mock.Anything, mock.Anything).Return("", false, nil)
	kvClient.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	kvClient.On("ZCount", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(int64(0), nil)
	kvClient.On("ZAdd", ctx, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	kvClient.On("Expire", ctx, mock.Anything, mock.Anything).Return(nil)
	ibans.On("Lookup", mock.Anything, req.IBAN).Return((*entities.IBANRecord)(nil), nil)
	transactions.On("Create", ctx, mock.AnythingOfType("*entities.Transaction")).Return(assert.AnError)
	vendors.On("IncrementCounts", ctx, req.VendorID, false).Return(nil)

	engine := newTestEngine(t, kvClient, transactions, ibans, vendors)
	resp := engine.Check(ctx, req)

	assert.Equal(t, entities.DecisionAllow, resp.Decision)
	assert.Equal(t, 0, resp.FraudScore)
}

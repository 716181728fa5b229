package fraud

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap/zaptest"
)

type mockKVClient struct {
	mock.Mock
}

func (m *mockKVClient) Get(ctx context.Context, key string) (string, bool, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *mockKVClient) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *mockKVClient) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, value, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *mockKVClient) Del(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *mockKVClient) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *mockKVClient) Expire(ctx context.Context, key string, ttl time.Duration) error {
	args := m.Called(ctx, key, ttl)
	return args.Error(0)
}

func (m *mockKVClient) ZAdd(ctx context.Context, key string, score float64, member string) error {
	args := m.Called(ctx, key, score, member)
	return args.Error(0)
}

func (m *mockKVClient) ZCount(ctx context.Context, key string, min, max float64) (int64, error) {
	args := m.Called(ctx, key, min, max)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockKVClient) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockKVClient) Close() error {
	args := m.Called()
	return args.Error(0)
}

const validBulgarianIBAN = "BG80BNBG96611020345678"

func TestValidateIBAN_ValidChecksum(t *testing.T) {
	ctx := context.Background()
	kv := &mockKVClient{}
	kv.On("Get", ctx, mock.Anything).Return("", false, nil)
	kv.On("Set", ctx, mock.Anything, "true", ibanCacheTTL).Return(nil)

	valid, reason := ValidateIBAN(ctx, kv, zaptest.NewLogger(t), validBulgarianIBAN)

	assert.True(t, valid)
	assert.Empty(t, reason)
}

func TestValidateIBAN_NormalizesWhitespaceAndCase(t *testing.T) {
	ctx := context.Background()
	kv := &mockKVClient{}
	kv.On("Get", ctx, mock.Anything).Return("", false, nil)
	kv.On("Set", ctx, mock.Anything, "true", ibanCacheTTL).Return(nil)

	spaced := "bg80 bnbg 9661 1020 3456 78"
	valid, _ := ValidateIBAN(ctx, kv, zaptest.NewLogger(t), spaced)

	assert.True(t, valid)
}

func TestValidateIBAN_BadChecksumFails(t *testing.T) {
	ctx := context.Background()
	kv := &mockKVClient{}
	kv.On("Get", ctx, mock.Anything).Return("", false, nil)
	kv.On("Set", ctx, mock.Anything, "false", ibanCacheTTL).Return(nil)

	tampered := "BG80BNBG96611020345679" // last digit flipped
	valid, reason := ValidateIBAN(ctx, kv, zaptest.NewLogger(t), tampered)

	assert.False(t, valid)
	assert.Equal(t, "Invalid IBAN checksum", reason)
}

func TestValidateIBAN_WrongPrefixRejected(t *testing.T) {
	ctx := context.Background()
	kv := &mockKVClient{}
	kv.On("Get", ctx, mock.Anything).Return("", false, nil)
	kv.On("Set", ctx, mock.Anything, "false", ibanCacheTTL).Return(nil)

	valid, reason := ValidateIBAN(ctx, kv, zaptest.NewLogger(t), "DE80BNBG96611020345678")

	assert.False(t, valid)
	assert.Equal(t, "must start with BG", reason)
}

func TestValidateIBAN_WrongLengthRejected(t *testing.T) {
	ctx := context.Background()
	kv := &mockKVClient{}
	kv.On("Get", ctx, mock.Anything).Return("", false, nil)
	kv.On("Set", ctx, mock.Anything, "false", ibanCacheTTL).Return(nil)

	valid, reason := ValidateIBAN(ctx, kv, zaptest.NewLogger(t), "BG80BNBG9661")

	assert.False(t, valid)
	assert.Equal(t, "must be exactly 22 characters", reason)
}

func TestValidateIBAN_EmptyRejected(t *testing.T) {
	ctx := context.Background()
	kv := &mockKVClient{}
	kv.On("Get", ctx, mock.Anything).Return("", false, nil)
	kv.On("Set", ctx, mock.Anything, "false", ibanCacheTTL).Return(nil)

	valid, reason := ValidateIBAN(ctx, kv, zaptest.NewLogger(t), "")

	assert.False(t, valid)
	assert.Equal(t, "null or empty", reason)
}

func TestValidateIBAN_CacheHitSkipsRecompute(t *testing.T) {
	ctx := context.Background()
	kv := &mockKVClient{}
	kv.On("Get", ctx, mock.Anything).Return("true", true, nil)

	valid, reason := ValidateIBAN(ctx, kv, zaptest.NewLogger(t), validBulgarianIBAN)

	assert.True(t, valid)
	assert.Empty(t, reason)
	kv.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestValidateIBAN_NilKVClientSkipsCache(t *testing.T) {
	valid, reason := ValidateIBAN(context.Background(), nil, zaptest.NewLogger(t), validBulgarianIBAN)

	assert.True(t, valid)
	assert.Empty(t, reason)
}

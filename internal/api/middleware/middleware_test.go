package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap/zaptest"

	"github.com/finwatch/fraud-platform/internal/domain/entities"
	"github.com/finwatch/fraud-platform/internal/jwtauth"
)

type mockTokenStore struct {
	mock.Mock
}

func (m *mockTokenStore) Create(ctx context.Context, record *entities.TokenRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *mockTokenStore) Get(ctx context.Context, userID int64, token string) (*entities.TokenRecord, error) {
	args := m.Called(ctx, userID, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.TokenRecord), args.Error(1)
}

func (m *mockTokenStore) Revoke(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *mockTokenStore) Delete(ctx context.Context, userID int64, token string) error {
	args := m.Called(ctx, userID, token)
	return args.Error(0)
}

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

type mockLimiter struct {
	mock.Mock
}

func (m *mockLimiter) Allow(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *mockLimiter) AllowN(ctx context.Context, key string, n int) (bool, error) {
	args := m.Called(ctx, key, n)
	return args.Bool(0), args.Error(1)
}

func (m *mockLimiter) Reset(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *mockLimiter) GetRemaining(ctx context.Context, key string) (int64, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(int64), args.Error(1)
}

func init() {
	gin.SetMode(gin.TestMode)
}

func TestAuthentication_RejectsMissingHeader(t *testing.T) {
	kvClient := &mockKVClient{}
	tokens := &mockTokenStore{}
	svc, err := jwtauth.New(jwtauth.Config{Secret: "a-secret-at-least-32-bytes-long!"}, kvClient, tokens, zaptest.NewLogger(t))
	assert.NoError(t, err)

	router := gin.New()
	router.Use(Authentication(svc))
	router.GET("/protected", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthentication_RejectsMalformedHeader(t *testing.T) {
	kvClient := &mockKVClient{}
	tokens := &mockTokenStore{}
	svc, err := jwtauth.New(jwtauth.Config{Secret: "a-secret-at-least-32-bytes-long!"}, kvClient, tokens, zaptest.NewLogger(t))
	assert.NoError(t, err)

	router := gin.New()
	router.Use(Authentication(svc))
	router.GET("/protected", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthentication_AcceptsValidBearerToken(t *testing.T) {
	ctx := context.Background()
	kvClient := &mockKVClient{}
	tokens := &mockTokenStore{}
	svc, err := jwtauth.New(jwtauth.Config{Secret: "a-secret-at-least-32-bytes-long!"}, kvClient, tokens, zaptest.NewLogger(t))
	assert.NoError(t, err)

	user := &entities.User{ID: 1, Username: "alice"}
	tokens.On("Create", ctx, mock.AnythingOfType("*entities.TokenRecord")).Return(nil)
	kvClient.On("Set", mock.Anything, mock.Anything, "1", mock.Anything).Return(nil)
	token, _, err := svc.Issue(ctx, user, entities.TokenKindAccess)
	assert.NoError(t, err)

	kvClient.On("Exists", mock.Anything, mock.Anything).Return(false, nil)
	kvClient.On("Get", mock.Anything, mock.Anything).Return("1", true, nil)

	router := gin.New()
	router.Use(Authentication(svc))
	router.GET("/protected", func(c *gin.Context) {
		assert.Equal(t, int64(1), c.GetInt64("user_id"))
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestValidateAPIKey_RejectsWrongKey(t *testing.T) {
	router := gin.New()
	router.Use(ValidateAPIKey("correct-key"))
	router.GET("/internal", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/internal", nil)
	req.Header.Set("X-API-KEY", "wrong-key")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestValidateAPIKey_AcceptsCorrectKey(t *testing.T) {
	router := gin.New()
	router.Use(ValidateAPIKey("correct-key"))
	router.GET("/internal", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/internal", nil)
	req.Header.Set("X-API-KEY", "correct-key")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestClientIP_PrefersForwardedForFirstHop(t *testing.T) {
	router := gin.New()
	var seen string
	router.Use(func(c *gin.Context) { seen = ClientIP(c); c.Next() })
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "203.0.113.5", seen)
}

func TestClientIP_FallsBackToRealIPThenPeerAddr(t *testing.T) {
	router := gin.New()
	var seen string
	router.Use(func(c *gin.Context) { seen = ClientIP(c); c.Next() })
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Real-IP", "198.51.100.7")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "198.51.100.7", seen)

	// No forwarding headers: the peer address of the connection is used.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "192.0.2.1", seen)
}

func TestLoginThrottle_BlocksWhenLimiterDenies(t *testing.T) {
	limiter := &mockLimiter{}
	limiter.On("Allow", mock.Anything, mock.Anything).Return(false, nil)

	router := gin.New()
	router.Use(LoginThrottle(limiter))
	router.POST("/login", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestLoginThrottle_FailsOpenOnLimiterError(t *testing.T) {
	limiter := &mockLimiter{}
	limiter.On("Allow", mock.Anything, mock.Anything).Return(false, assert.AnError)

	router := gin.New()
	router.Use(LoginThrottle(limiter))
	router.POST("/login", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginThrottle_AllowsWithinLimit(t *testing.T) {
	limiter := &mockLimiter{}
	limiter.On("Allow", mock.Anything, mock.Anything).Return(true, nil)

	router := gin.New()
	router.Use(LoginThrottle(limiter))
	router.POST("/login", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

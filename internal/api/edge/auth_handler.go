// Package edge implements the public-facing HTTP surface: login/logout/
// refresh and the authenticated invoice-validation proxy to the scoring
// service.
package edge

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/finwatch/fraud-platform/internal/api/middleware"
	"github.com/finwatch/fraud-platform/internal/authn"
	apperrors "github.com/finwatch/fraud-platform/pkg/errors"
	"github.com/finwatch/fraud-platform/pkg/sanitize"
)

// AuthHandler exposes the login/logout/refresh endpoints.
type AuthHandler struct {
	auth *authn.Service
}

func NewAuthHandler(auth *authn.Service) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int64  `json:"expiresIn"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

func requestMeta(c *gin.Context) authn.RequestMeta {
	return authn.RequestMeta{
		IPAddress: middleware.ClientIP(c),
		UserAgent: sanitize.LogString(c.Request.UserAgent()),
	}
}

func writeAppError(c *gin.Context, err error) {
	c.JSON(apperrors.StatusCodeOf(err), gin.H{
		"status":    "error",
		"error":     apperrors.KindOf(err),
		"message":   err.Error(),
		"timestamp": time.Now(),
	})
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":    "error",
			"error":     apperrors.KindInputInvalid,
			"message":   "username and password are required",
			"timestamp": time.Now(),
		})
		return
	}

	pair, err := h.auth.Login(c.Request.Context(), sanitize.String(req.Username), req.Password, requestMeta(c))
	if err != nil {
		writeAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    pair.ExpiresIn,
	})
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":    "error",
			"error":     apperrors.KindInputInvalid,
			"message":   "authorization header required",
			"timestamp": time.Now(),
		})
		return
	}

	token, ok := bearerFromHeader(authHeader)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":    "error",
			"error":     apperrors.KindInputInvalid,
			"message":   "malformed authorization header",
			"timestamp": time.Now(),
		})
		return
	}

	if err := h.auth.Logout(c.Request.Context(), token, requestMeta(c)); err != nil {
		writeAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "logged out",
	})
}

// Refresh handles POST /api/auth/refresh.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":    "error",
			"error":     apperrors.KindInputInvalid,
			"message":   "refreshToken is required",
			"timestamp": time.Now(),
		})
		return
	}

	pair, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken, requestMeta(c))
	if err != nil {
		writeAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    pair.ExpiresIn,
	})
}

func bearerFromHeader(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
		return "", false
	}
	return header[len(prefix):], true
}

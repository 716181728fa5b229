// Package authn orchestrates the login/logout/refresh flows on top of the
// jwtauth token subsystem: credential verification, lockout/inactive
// checks, and audit emission.
package authn

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/finwatch/fraud-platform/internal/audit"
	"github.com/finwatch/fraud-platform/internal/domain/entities"
	"github.com/finwatch/fraud-platform/internal/jwtauth"
	"github.com/finwatch/fraud-platform/internal/store"
	"github.com/finwatch/fraud-platform/pkg/crypto"
	apperrors "github.com/finwatch/fraud-platform/pkg/errors"
	"github.com/finwatch/fraud-platform/pkg/metrics"
)

// TokenPair is returned by Login and Refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64 // access token lifetime in milliseconds
}

// RequestMeta carries the request-scoped detail audit events need.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

type Service struct {
	users  store.UserStore
	tokens *jwtauth.Service
	sink   *audit.Sink
	logger *zap.Logger
}

func New(users store.UserStore, tokens *jwtauth.Service, sink *audit.Sink, logger *zap.Logger) *Service {
	return &Service{users: users, tokens: tokens, sink: sink, logger: logger}
}

// Login implements the four-step flow from the public contract: resolve
// user, check active/locked, verify password, issue both tokens.
func (s *Service) Login(ctx context.Context, username, password string, meta RequestMeta) (*TokenPair, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		s.sink.EmitAnonymous(ctx, entities.AuditActionLoginFailure, "user", meta.IPAddress, meta.UserAgent,
			map[string]interface{}{"username": username, "reason": "user_not_found"})
		metrics.RecordAuthenticationAttempt("invalid_credentials")
		return nil, apperrors.AuthCredentialsInvalid("invalid username or password")
	}

	if !user.Active {
		s.sink.Emit(ctx, &user.ID, entities.AuditActionLoginFailure, "user", meta.IPAddress, meta.UserAgent,
			map[string]interface{}{"reason": "account_inactive"})
		metrics.RecordAuthenticationAttempt("account_inactive")
		return nil, apperrors.AccountInactive("account is inactive")
	}
	if user.Locked {
		s.sink.Emit(ctx, &user.ID, entities.AuditActionLoginFailure, "user", meta.IPAddress, meta.UserAgent,
			map[string]interface{}{"reason": "account_locked"})
		metrics.RecordAuthenticationAttempt("account_locked")
		return nil, apperrors.AccountLocked("account is locked")
	}

	if !crypto.ValidatePassword(password, user.PasswordHash) {
		if err := s.users.RecordLoginFailure(ctx, user.ID); err != nil {
			s.logger.Warn("failed to record login failure", zap.Error(err), zap.Int64("user_id", user.ID))
		}
		s.sink.Emit(ctx, &user.ID, entities.AuditActionLoginFailure, "user", meta.IPAddress, meta.UserAgent,
			map[string]interface{}{"reason": "invalid_password", "failed_attempts": user.FailedAttempts + 1})
		metrics.RecordAuthenticationAttempt("invalid_credentials")
		return nil, apperrors.AuthCredentialsInvalid("invalid username or password")
	}

	pair, err := s.issuePair(ctx, user)
	if err != nil {
		return nil, err
	}

	if err := s.users.RecordLoginSuccess(ctx, user.ID, time.Now()); err != nil {
		s.logger.Warn("failed to record login success", zap.Error(err), zap.Int64("user_id", user.ID))
	}
	s.sink.Emit(ctx, &user.ID, entities.AuditActionLoginSuccess, "user", meta.IPAddress, meta.UserAgent, nil)
	metrics.RecordAuthenticationAttempt("success")

	return pair, nil
}

// Logout revokes the given access token. The token must validate before
// being revoked — an invalid or expired token is rejected rather than
// treated as an implicit no-op logout. Audit is best-effort from the
// caller's perspective but still emitted here.
func (s *Service) Logout(ctx context.Context, token string, meta RequestMeta) error {
	claims, err := s.tokens.Validate(ctx, token)
	if err != nil {
		return apperrors.TokenInvalid("invalid or expired token")
	}

	if err := s.tokens.Revoke(ctx, token); err != nil {
		return err
	}
	s.sink.EmitAnonymous(ctx, entities.AuditActionLogout, "token", meta.IPAddress, meta.UserAgent,
		map[string]interface{}{"subject": claims.Subject})
	return nil
}

// Refresh validates the given refresh token and issues a new access token.
// The refresh token itself is returned unchanged — it is never rotated.
func (s *Service) Refresh(ctx context.Context, refreshToken string, meta RequestMeta) (*TokenPair, error) {
	claims, err := s.tokens.Validate(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if claims.Type != entities.TokenKindRefresh {
		return nil, apperrors.TokenInvalid("not a refresh token")
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, apperrors.AuthCredentialsInvalid("account no longer active")
	}
	if !user.Active || user.Locked {
		return nil, apperrors.AuthCredentialsInvalid("account no longer active")
	}

	access, expiresAt, err := s.tokens.Issue(ctx, user, entities.TokenKindAccess)
	if err != nil {
		return nil, err
	}

	s.sink.Emit(ctx, &user.ID, entities.AuditActionTokenRefresh, "token", meta.IPAddress, meta.UserAgent, nil)

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refreshToken,
		ExpiresIn:    time.Until(expiresAt).Milliseconds(),
	}, nil
}

func (s *Service) issuePair(ctx context.Context, user *entities.User) (*TokenPair, error) {
	access, expiresAt, err := s.tokens.Issue(ctx, user, entities.TokenKindAccess)
	if err != nil {
		return nil, err
	}
	refresh, _, err := s.tokens.Issue(ctx, user, entities.TokenKindRefresh)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    time.Until(expiresAt).Milliseconds(),
	}, nil
}

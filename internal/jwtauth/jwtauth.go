// Package jwtauth implements the stateful token subsystem: issuance,
// layered validation, and revocation over dual storage (KV fast path +
// durable record store) with a blacklist overlay for instant revocation.
package jwtauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/finwatch/fraud-platform/internal/domain/entities"
	"github.com/finwatch/fraud-platform/internal/kv"
	"github.com/finwatch/fraud-platform/internal/store"
	apperrors "github.com/finwatch/fraud-platform/pkg/errors"
	"github.com/finwatch/fraud-platform/pkg/metrics"
)

// minSecretBytes enforces the ≥256-bit MAC key length the default
// algorithm requires.
const minSecretBytes = 32

// Claims is the JWT claim set this subsystem issues and parses. Subject is
// the user's login name, not a numeric id — extractSubject callers (the
// refresh flow, audit logging) read it before full validation.
type Claims struct {
	jwt.RegisteredClaims
	Type   entities.TokenKind `json:"type"`
	UserID int64              `json:"uid"`
}

// Config carries the signing secret and the two default token lifetimes.
type Config struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Issuer     string
}

// Service issues, validates, and revokes tokens against dual storage.
type Service struct {
	cfg    Config
	kv     kv.Client
	tokens store.TokenStore
	logger *zap.Logger
}

func New(cfg Config, kvClient kv.Client, tokens store.TokenStore, logger *zap.Logger) (*Service, error) {
	if len(cfg.Secret) < minSecretBytes {
		return nil, fmt.Errorf("jwt secret must be at least %d bytes", minSecretBytes)
	}
	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL == 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	return &Service{cfg: cfg, kv: kvClient, tokens: tokens, logger: logger}, nil
}

func (s *Service) ttlFor(kind entities.TokenKind) time.Duration {
	if kind == entities.TokenKindRefresh {
		return s.cfg.RefreshTTL
	}
	return s.cfg.AccessTTL
}

// Issue signs a new token for the given user and writes it to both the KV
// fast path and the durable store in a single logical step. Failure of the
// durable write fails issuance — the cache alone is never authoritative.
func (s *Service) Issue(ctx context.Context, user *entities.User, kind entities.TokenKind) (string, time.Time, error) {
	now := time.Now()
	ttl := s.ttlFor(kind)
	expiresAt := now.Add(ttl)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Username,
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Type:   kind,
		UserID: user.ID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", time.Time{}, apperrors.InternalError("failed to sign token")
	}

	record := &entities.TokenRecord{
		Token:     signed,
		UserID:    user.ID,
		Kind:      kind,
		IssuedAt:  now,
		ExpiresAt: expiresAt,
	}
	if err := s.tokens.Create(ctx, record); err != nil {
		s.logger.Error("failed to persist token record", zap.Error(err), zap.Int64("user_id", user.ID))
		return "", time.Time{}, apperrors.UpstreamUnavailable("authentication temporarily unavailable")
	}

	if err := s.kv.Set(ctx, kvTokenKey(signed), fmt.Sprintf("%d", user.ID), ttl); err != nil {
		s.logger.Warn("failed to cache issued token in KV", zap.Error(err), zap.Int64("user_id", user.ID))
	}

	return signed, expiresAt, nil
}

// Validate runs the layered check from the public contract: blacklist
// first (fail-closed on read error), then signature/expiry, then the
// KV fast path, then durable-store fallback with KV repopulation.
func (s *Service) Validate(ctx context.Context, token string) (*Claims, error) {
	blacklisted, err := s.kv.Exists(ctx, kvBlacklistKey(token))
	if err != nil {
		metrics.JWTValidateTotal.WithLabelValues("blacklist_read_error").Inc()
		return nil, apperrors.TokenInvalid("unable to verify revocation status")
	}
	if blacklisted {
		metrics.JWTValidateTotal.WithLabelValues("blacklisted").Inc()
		return nil, apperrors.TokenRevoked("token has been revoked")
	}

	claims, err := s.parse(token)
	if err != nil {
		metrics.JWTValidateTotal.WithLabelValues("malformed_or_expired").Inc()
		return nil, err
	}

	cached, found, err := s.kv.Get(ctx, kvTokenKey(token))
	if err == nil && found {
		_ = cached
		metrics.JWTValidateTotal.WithLabelValues("accepted").Inc()
		return claims, nil
	}

	record, err := s.tokens.Get(ctx, claims.UserID, token)
	if err != nil {
		metrics.JWTValidateTotal.WithLabelValues("durable_error").Inc()
		return nil, apperrors.TokenInvalid("unable to verify token")
	}
	if record == nil {
		metrics.JWTValidateTotal.WithLabelValues("rejected").Inc()
		return nil, apperrors.TokenInvalid("token not recognized")
	}

	remaining := time.Until(record.ExpiresAt)
	if remaining > 0 {
		if err := s.kv.Set(ctx, kvTokenKey(token), fmt.Sprintf("%d", claims.UserID), remaining); err != nil {
			s.logger.Warn("failed to repopulate KV after durable-store fallback", zap.Error(err))
		}
	}

	metrics.JWTValidateTotal.WithLabelValues("fallback_durable").Inc()
	return claims, nil
}

// Revoke parses the token's claims to recover the owning user and the
// remaining TTL, then writes the blacklist entry (authoritative) before
// best-effort cleanup of the KV cache and durable record.
func (s *Service) Revoke(ctx context.Context, token string) error {
	claims, err := s.parse(token)
	if err != nil {
		return err
	}

	remaining := time.Until(claims.ExpiresAt.Time)
	if remaining > 0 {
		if err := s.kv.Set(ctx, kvBlacklistKey(token), "1", remaining); err != nil {
			s.logger.Error("failed to write blacklist entry", zap.Error(err), zap.Int64("user_id", claims.UserID))
			return apperrors.InternalError("failed to revoke token")
		}
	}

	if err := s.kv.Del(ctx, kvTokenKey(token)); err != nil {
		s.logger.Warn("failed to delete cached token on revoke", zap.Error(err))
	}
	if err := s.tokens.Delete(ctx, claims.UserID, token); err != nil {
		s.logger.Warn("failed to delete durable token record on revoke", zap.Error(err))
	}

	return nil
}

// ExtractSubject parses claims without semantic validation — used for
// logging and by the refresh flow before full validation runs.
func (s *Service) ExtractSubject(token string) (string, error) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	claims := &Claims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return "", apperrors.TokenInvalid("malformed token")
	}
	return claims.Subject, nil
}

func (s *Service) parse(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.TokenExpired("token has expired")
		}
		return nil, apperrors.TokenInvalid("token is malformed or signature is invalid")
	}
	if !token.Valid {
		return nil, apperrors.TokenInvalid("token is invalid")
	}
	return claims, nil
}

func kvTokenKey(token string) string     { return "jwt:token:" + token }
func kvBlacklistKey(token string) string { return "jwt:blacklist:" + token }

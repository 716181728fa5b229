package entities

import "time"

// TokenKind distinguishes access tokens from refresh tokens.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "ACCESS"
	TokenKindRefresh TokenKind = "REFRESH"
)

// TokenRecord is the durable row backing a signed JWT. A given Token string
// appears at most once in the store; revocation sets RevokedAt instead of
// deleting the row until logout removes it outright.
type TokenRecord struct {
	Token     string     `db:"token" json:"-"`
	UserID    int64      `db:"user_id" json:"userId"`
	Kind      TokenKind  `db:"kind" json:"kind"`
	IssuedAt  time.Time  `db:"issued_at" json:"issuedAt"`
	ExpiresAt time.Time  `db:"expires_at" json:"expiresAt"`
	Revoked   bool       `db:"revoked" json:"revoked"`
	RevokedAt *time.Time `db:"revoked_at" json:"revokedAt,omitempty"`
}

package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pistigreen/pistigreen-backend/internal/shared"
)

// Token types carried in the token_type claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var (
	// ErrInvalidToken indicates a malformed, expired or wrongly typed token.
	ErrInvalidToken = fmt.Errorf("auth: invalid token: %w", shared.ErrUnauthorized)
	// ErrTokenRevoked indicates a refresh token that was blacklisted.
	ErrTokenRevoked = fmt.Errorf("auth: token revoked: %w", shared.ErrUnauthorized)
)

// Claims holds the registered claims plus the account id and token type.
type Claims struct {
	jwt.RegisteredClaims
	TokenType string `json:"token_type"`
	UserID    int64  `json:"user_id"`
}

// TokenPair is returned on login.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// TokenConfig controls token lifetimes and rotation.
type TokenConfig struct {
	Secret          []byte
	AccessLifetime  time.Duration
	RefreshLifetime time.Duration
	RotateRefresh   bool
}

package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/pistigreen/pistigreen-backend/internal/account"
	"github.com/pistigreen/pistigreen-backend/internal/shared"
)

// AccountFinder is the slice of the account store that authentication needs.
type AccountFinder interface {
	FindByEmail(ctx context.Context, email string) (*account.Account, error)
	FindByID(ctx context.Context, id int64) (*account.Account, error)
}

// Service wraps authentication business rules.
type Service struct {
	accounts  AccountFinder
	tokens    *TokenManager
	blacklist Blacklist
}

// NewService constructs a new Service.
func NewService(accounts AccountFinder, tokens *TokenManager, blacklist Blacklist) *Service {
	return &Service{accounts: accounts, tokens: tokens, blacklist: blacklist}
}

// Login validates email/password credentials and issues a token pair.
// Accounts that were never activated cannot log in.
func (s *Service) Login(ctx context.Context, email, password string) (TokenPair, error) {
	user, err := s.accounts.FindByEmail(ctx, account.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			return TokenPair{}, shared.ErrInvalidCredentials
		}
		return TokenPair{}, err
	}
	if !user.IsActive {
		return TokenPair{}, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return TokenPair{}, shared.ErrInvalidCredentials
	}
	return s.tokens.Issue(user.ID)
}

// Refresh exchanges a refresh token for a new access token. With rotation
// enabled the old refresh token is revoked and a new one returned.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := s.checkRefresh(ctx, refreshToken)
	if err != nil {
		return TokenPair{}, err
	}

	user, err := s.accounts.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			return TokenPair{}, ErrInvalidToken
		}
		return TokenPair{}, err
	}
	if !user.IsActive {
		return TokenPair{}, ErrInvalidToken
	}

	access, err := s.tokens.IssueAccess(user.ID)
	if err != nil {
		return TokenPair{}, err
	}
	pair := TokenPair{Access: access}
	if s.tokens.RotateRefresh() {
		if err := s.revoke(ctx, claims); err != nil {
			return TokenPair{}, err
		}
		if pair.Refresh, err = s.tokens.IssueRefresh(user.ID); err != nil {
			return TokenPair{}, err
		}
	}
	return pair, nil
}

// Logout revokes the refresh token.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.checkRefresh(ctx, refreshToken)
	if err != nil {
		return err
	}
	return s.revoke(ctx, claims)
}

// Authenticate verifies an access token and returns its claims.
func (s *Service) Authenticate(accessToken string) (*Claims, error) {
	return s.tokens.Parse(accessToken, TokenTypeAccess)
}

// CurrentAccount loads the account behind an authenticated request.
func (s *Service) CurrentAccount(ctx context.Context, id int64) (*account.Account, error) {
	return s.accounts.FindByID(ctx, id)
}

func (s *Service) checkRefresh(ctx context.Context, refreshToken string) (*Claims, error) {
	claims, err := s.tokens.Parse(refreshToken, TokenTypeRefresh)
	if err != nil {
		return nil, err
	}
	if s.blacklist == nil {
		return claims, nil
	}
	revoked, err := s.blacklist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("auth: check blacklist: %w", err)
	}
	if revoked {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

func (s *Service) revoke(ctx context.Context, claims *Claims) error {
	if s.blacklist == nil {
		return nil
	}
	if err := s.blacklist.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("auth: revoke refresh token: %w", err)
	}
	return nil
}

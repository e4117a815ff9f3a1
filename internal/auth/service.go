package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/getsentry/sentry-go"
)

var (
	ErrInvalidCredentials = errors.New("incorrect username or password")
	ErrUserGone           = errors.New("user no longer exists")
)

// CredentialStore is the admin-credential lookup the login and refresh
// flows depend on. Not-found is reported as sql.ErrNoRows.
type CredentialStore interface {
	GetByUsername(ctx context.Context, username string) (Admin, error)
}

type Service struct {
	store   CredentialStore
	tokens  *TokenService
	limiter *LoginRateLimiter
}

func NewService(store CredentialStore, tokens *TokenService, limiter *LoginRateLimiter) *Service {
	return &Service{store: store, tokens: tokens, limiter: limiter}
}

// Login runs the rate-limit check, the credential lookup, and the hash
// verification, and issues a token pair on success. An unknown username,
// a wrong password, and a store failure are indistinguishable to the
// caller so usernames cannot be enumerated.
func (s *Service) Login(ctx context.Context, username, password, clientIP string) (TokenPair, error) {
	username = strings.TrimSpace(username)

	if err := s.limiter.CheckAllowed(username, clientIP); err != nil {
		return TokenPair{}, err
	}

	admin, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			sentry.CaptureException(err)
		}
		s.limiter.RecordFailure(username, clientIP)
		return TokenPair{}, ErrInvalidCredentials
	}

	if !VerifyPassword(password, admin.PasswordHash) {
		s.limiter.RecordFailure(username, clientIP)
		return TokenPair{}, ErrInvalidCredentials
	}

	s.limiter.ClearOnSuccess(username, clientIP)

	return s.tokens.IssueTokenPair(admin.Username)
}

// Refresh verifies a refresh token, confirms its subject still exists, and
// re-issues a full token pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := s.tokens.Verify(refreshToken, TokenKindRefresh)
	if err != nil {
		return TokenPair{}, err
	}

	if _, err := s.store.GetByUsername(ctx, claims.Subject); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			sentry.CaptureException(err)
		}
		return TokenPair{}, ErrUserGone
	}

	return s.tokens.IssueTokenPair(claims.Subject)
}

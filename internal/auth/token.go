package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	TokenKindAccess  = "access"
	TokenKindRefresh = "refresh"

	defaultAccessTTL  = 30 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrWrongTokenKind = errors.New("invalid token type")
)

// TokenService issues and verifies HS256-signed bearer tokens. Tokens are
// self-contained: there is no revocation list, so a stolen token stays valid
// until it expires.
type TokenService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewTokenService(secret string, accessTTL, refreshTTL time.Duration) (*TokenService, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("jwt secret must be set")
	}
	if accessTTL <= 0 {
		accessTTL = defaultAccessTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = defaultRefreshTTL
	}

	return &TokenService{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}, nil
}

func (s *TokenService) IssueAccessToken(subject string) (string, error) {
	return s.issue(subject, TokenKindAccess, s.accessTTL)
}

func (s *TokenService) IssueRefreshToken(subject string) (string, error) {
	return s.issue(subject, TokenKindRefresh, s.refreshTTL)
}

func (s *TokenService) IssueTokenPair(subject string) (TokenPair, error) {
	access, err := s.IssueAccessToken(subject)
	if err != nil {
		return TokenPair{}, err
	}

	refresh, err := s.IssueRefreshToken(subject)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
	}, nil
}

func (s *TokenService) issue(subject, kind string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub": subject,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
		"typ": kind,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	encoded, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}

	return encoded, nil
}

// Verify checks the signature and expiry and decodes the claims. A bad
// signature, expired token, or missing subject fails with ErrInvalidToken;
// a kind mismatch fails with ErrWrongTokenKind so the refresh endpoint can
// report it distinctly.
func (s *TokenService) Verify(tokenStr, expectedKind string) (Claims, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return Claims{}, ErrInvalidToken
	}

	subject, _ := claims["sub"].(string)
	if subject == "" {
		return Claims{}, ErrInvalidToken
	}

	if kind, _ := claims["typ"].(string); kind != expectedKind {
		return Claims{}, ErrWrongTokenKind
	}

	expires, err := claims.GetExpirationTime()
	if err != nil || expires == nil {
		return Claims{}, ErrInvalidToken
	}

	return Claims{
		Subject:   subject,
		ExpiresAt: expires.Time,
		Kind:      expectedKind,
	}, nil
}

package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-0123456789abcdef"

func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()

	service, err := NewTokenService(testSecret, 30*time.Minute, 7*24*time.Hour)
	require.NoError(t, err)
	return service
}

func TestNewTokenServiceRequiresSecret(t *testing.T) {
	_, err := NewTokenService("", time.Minute, time.Hour)
	assert.Error(t, err)

	_, err = NewTokenService("   ", time.Minute, time.Hour)
	assert.Error(t, err)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	service := newTestTokenService(t)

	token, err := service.IssueAccessToken("alice")
	require.NoError(t, err)

	claims, err := service.Verify(token, TokenKindAccess)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, TokenKindAccess, claims.Kind)
	assert.True(t, claims.ExpiresAt.After(time.Now()))
}

func TestTokenKindIsolation(t *testing.T) {
	service := newTestTokenService(t)

	access, err := service.IssueAccessToken("alice")
	require.NoError(t, err)
	refresh, err := service.IssueRefreshToken("alice")
	require.NoError(t, err)

	_, err = service.Verify(access, TokenKindRefresh)
	assert.ErrorIs(t, err, ErrWrongTokenKind)

	_, err = service.Verify(refresh, TokenKindAccess)
	assert.ErrorIs(t, err, ErrWrongTokenKind)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	service := newTestTokenService(t)

	expired := signTestToken(t, jwt.MapClaims{
		"sub": "alice",
		"iat": time.Now().Add(-2 * time.Hour).Unix(),
		"exp": time.Now().Add(-time.Hour).Unix(),
		"typ": TokenKindAccess,
	}, testSecret)

	_, err := service.Verify(expired, TokenKindAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsWrongSignature(t *testing.T) {
	service := newTestTokenService(t)

	forged := signTestToken(t, jwt.MapClaims{
		"sub": "alice",
		"exp": time.Now().Add(time.Hour).Unix(),
		"typ": TokenKindAccess,
	}, "some-other-secret")

	_, err := service.Verify(forged, TokenKindAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsMissingSubject(t *testing.T) {
	service := newTestTokenService(t)

	token := signTestToken(t, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
		"typ": TokenKindAccess,
	}, testSecret)

	_, err := service.Verify(token, TokenKindAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsMissingExpiry(t *testing.T) {
	service := newTestTokenService(t)

	token := signTestToken(t, jwt.MapClaims{
		"sub": "alice",
		"typ": TokenKindAccess,
	}, testSecret)

	_, err := service.Verify(token, TokenKindAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	service := newTestTokenService(t)

	_, err := service.Verify("not.a.token", TokenKindAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = service.Verify("", TokenKindRefresh)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssueTokenPair(t *testing.T) {
	service := newTestTokenService(t)

	pair, err := service.IssueTokenPair("alice")
	require.NoError(t, err)

	assert.Equal(t, "bearer", pair.TokenType)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	accessClaims, err := service.Verify(pair.AccessToken, TokenKindAccess)
	require.NoError(t, err)
	assert.Equal(t, "alice", accessClaims.Subject)

	refreshClaims, err := service.Verify(pair.RefreshToken, TokenKindRefresh)
	require.NoError(t, err)
	assert.Equal(t, "alice", refreshClaims.Subject)
	assert.True(t, refreshClaims.ExpiresAt.After(accessClaims.ExpiresAt))
}

func signTestToken(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

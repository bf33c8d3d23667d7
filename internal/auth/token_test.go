package auth

import (
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GeneralMarshal/postgres-auth/internal/domain"
)

const testSecret = "test-signing-secret"

func newTestTokenManager(t *testing.T) *TokenManager {
	t.Helper()
	tm, err := NewTokenManager(testSecret, 60)
	require.NoError(t, err)
	return tm
}

func TestNewTokenManagerRequiresSecret(t *testing.T) {
	_, err := NewTokenManager("", 60)
	require.Error(t, err)
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	tm := newTestTokenManager(t)
	role := domain.RoleUser

	token, tokenID, expiresAt, err := tm.Issue("u1", "a@b.com", "Alice", &role)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.NotEmpty(t, tokenID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := tm.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "a@b.com", claims.Email)
	assert.Equal(t, "Alice", claims.Name)
	require.NotNil(t, claims.Role)
	assert.Equal(t, domain.RoleUser, *claims.Role)
	assert.Equal(t, tokenID, claims.TokenID())
}

func TestIssueWithoutRole(t *testing.T) {
	tm := newTestTokenManager(t)

	token, _, _, err := tm.Issue("u1", "a@b.com", "", nil)
	require.NoError(t, err)

	claims, err := tm.Verify(token)
	require.NoError(t, err)
	assert.Nil(t, claims.Role)
}

func TestTokenIDUnique(t *testing.T) {
	tm := newTestTokenManager(t)

	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		_, tokenID, _, err := tm.Issue("u1", "a@b.com", "", nil)
		require.NoError(t, err)
		_, dup := seen[tokenID]
		require.False(t, dup, "duplicate tokenID after %d issuances", i)
		seen[tokenID] = struct{}{}
	}
}

func TestVerifyExpired(t *testing.T) {
	tm := newTestTokenManager(t)

	claims := &Claims{
		Email: "a@b.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			ID:        "jti-1",
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = tm.Verify(expired)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyBadSignature(t *testing.T) {
	tm := newTestTokenManager(t)

	other, err := NewTokenManager("a-different-secret", 60)
	require.NoError(t, err)
	forged, _, _, err := other.Issue("u1", "a@b.com", "", nil)
	require.NoError(t, err)

	_, err = tm.Verify(forged)
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestVerifyTampered(t *testing.T) {
	tm := newTestTokenManager(t)

	token, _, _, err := tm.Issue("u1", "a@b.com", "", nil)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + ".AAAA" + parts[2][4:]

	_, err = tm.Verify(tampered)
	require.Error(t, err)
}

func TestVerifyMalformed(t *testing.T) {
	tm := newTestTokenManager(t)

	for _, input := range []string{"", "garbage", "a.b", "a.b.c"} {
		_, err := tm.Verify(input)
		assert.ErrorIs(t, err, ErrTokenMalformed, "input %q", input)
	}
}

func TestVerifyRejectsUnexpectedAlgorithm(t *testing.T) {
	tm := newTestTokenManager(t)

	claims := jwt.RegisteredClaims{
		Subject:   "u1",
		ID:        "jti-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = tm.Verify(unsigned)
	require.Error(t, err)
}

func TestVerifySucceedsWithoutTokenID(t *testing.T) {
	// Verify only checks signature and expiry; rejecting a missing jti is
	// the guard's job.
	tm := newTestTokenManager(t)

	claims := &Claims{
		Email: "a@b.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	verified, err := tm.Verify(token)
	require.NoError(t, err)
	assert.Empty(t, verified.TokenID())
}

package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/GeneralMarshal/postgres-auth/internal/domain"
)

// Verification failures. Clients see a uniform rejection; these exist so
// the guard can log and count the actual cause.
var (
	ErrBadSignature   = errors.New("token signature invalid")
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenMalformed = errors.New("token malformed")
)

// TokenManager issues and verifies signed bearer tokens. It is stateless:
// the only state is the signing secret and expiry policy fixed at
// construction.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager builds a new manager. An empty secret is a configuration
// error and must abort startup; tokens signed with a guessable default
// would be forgeable.
func NewTokenManager(secret string, ttlMinutes int) (*TokenManager, error) {
	if secret == "" {
		return nil, errors.New("token manager: signing secret not configured")
	}
	if ttlMinutes <= 0 {
		ttlMinutes = 60
	}
	return &TokenManager{secret: []byte(secret), ttl: time.Duration(ttlMinutes) * time.Minute}, nil
}

// Claims describes the JWT payload. TokenID (jti) is the join key to the
// server-side session record.
type Claims struct {
	Email string       `json:"email"`
	Name  string       `json:"name,omitempty"`
	Role  *domain.Role `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// TokenID returns the jti claim.
func (c *Claims) TokenID() string {
	return c.ID
}

// Issue builds and signs a token for the subject. The returned tokenID is
// a fresh random identifier also embedded as jti; callers use it to create
// the paired session record without re-parsing the token. Two issuances
// never share a tokenID.
func (tm *TokenManager) Issue(userID, email, name string, role *domain.Role) (token, tokenID string, expiresAt time.Time, err error) {
	now := time.Now()
	expiresAt = now.Add(tm.ttl)
	tokenID = uuid.NewString()

	claims := &Claims{
		Email: email,
		Name:  name,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        tokenID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.secret)
	if err != nil {
		return "", "", time.Time{}, err
	}
	return signed, tokenID, expiresAt, nil
}

// Verify checks signature and expiry and returns the claims. Failures are
// reported as values, never panics, and are classified as ErrTokenExpired,
// ErrBadSignature or ErrTokenMalformed. Session liveness is not checked
// here; that is the guard's job.
func (tm *TokenManager) Verify(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, ErrBadSignature
		}
		return tm.secret, nil
	})
	if err != nil {
		return nil, classifyParseError(err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}

func classifyParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, ErrBadSignature):
		return ErrBadSignature
	default:
		return ErrTokenMalformed
	}
}

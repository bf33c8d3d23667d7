package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/GeneralMarshal/postgres-auth/internal/domain"
	"github.com/GeneralMarshal/postgres-auth/internal/observability"
	"github.com/GeneralMarshal/postgres-auth/internal/session"
	apperrors "github.com/GeneralMarshal/postgres-auth/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller, resolved fresh per
// request and never persisted.
type Principal struct {
	UserID  string
	Email   string
	Name    string
	Role    *domain.Role
	TokenID string
}

// Middleware is the single enforcement point turning a request with an
// Authorization header into a request with a trusted Principal. A token
// passes only when its signature and expiry verify AND a live session
// record exists for its jti; either check alone is not enough.
type Middleware struct {
	tokens     *TokenManager
	sessions   *session.Manager
	logger     *zap.Logger
	metrics    *observability.Metrics
	sliding    bool
	slidingTTL time.Duration
}

// NewMiddleware constructs the authentication guard.
func NewMiddleware(tokens *TokenManager, sessions *session.Manager, logger *zap.Logger, metrics *observability.Metrics) *Middleware {
	return &Middleware{tokens: tokens, sessions: sessions, logger: logger, metrics: metrics}
}

// EnableSlidingExpiration makes the guard extend the session TTL after
// each successful liveness check.
func (m *Middleware) EnableSlidingExpiration(ttl time.Duration) {
	m.sliding = true
	m.slidingTTL = ttl
}

// Handle enforces authentication for protected routes. The chain runs in
// order and short-circuits at the first failure: bearer extraction,
// signature/expiry verification, jti presence, session liveness. All
// failures map to the same client-facing response; the cause is only
// logged and counted.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	token, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
	if !ok {
		return m.reject(c, "missing_header", nil)
	}

	claims, err := m.tokens.Verify(token)
	if err != nil {
		return m.reject(c, verifyFailureKind(err), err)
	}

	// A signature-valid token without a jti can never be correlated to a
	// session, so it is never trusted.
	if claims.TokenID() == "" {
		return m.reject(c, "missing_jti", nil)
	}

	alive, err := m.sessions.Exists(c.UserContext(), claims.TokenID())
	if err != nil {
		// Fail closed on store outage or timeout.
		return m.reject(c, "store_unavailable", err)
	}
	if !alive {
		return m.reject(c, "session_revoked", nil)
	}

	if m.sliding {
		if err := m.sessions.Refresh(c.UserContext(), claims.TokenID(), m.slidingTTL); err != nil {
			m.logger.Warn("session refresh failed", zap.Error(err))
		}
	}

	c.Locals(principalKey, &Principal{
		UserID:  claims.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
		Role:    claims.Role,
		TokenID: claims.TokenID(),
	})
	return c.Next()
}

// RequireRole gates a route to principals holding one of the given roles.
// Being a method on the authentication middleware makes the ordering
// structural: the authorization guard cannot exist without an upstream
// authenticator.
//
// With no roles listed, any authenticated principal passes. A principal
// without a role never satisfies a non-empty requirement. A role mismatch
// is forbidden, never conflated with unauthenticated.
func (m *Middleware) RequireRole(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			// Defensive: only reachable when the pipeline is miswired.
			return apperrors.NewUnauthenticated()
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if principal.Role == nil {
			return apperrors.NewForbidden("role required")
		}
		if _, exists := allowedSet[*principal.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// PrincipalFromContext retrieves the authenticated caller.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}

func (m *Middleware) reject(c *fiber.Ctx, kind string, cause error) error {
	if m.metrics != nil {
		m.metrics.RecordAuthRejection(kind)
	}
	fields := []zap.Field{
		zap.String("kind", kind),
		zap.String("path", c.Path()),
	}
	if cause != nil {
		fields = append(fields, zap.Error(cause))
	}
	if kind == "store_unavailable" {
		m.logger.Error("authentication rejected", fields...)
	} else {
		m.logger.Info("authentication rejected", fields...)
	}
	return apperrors.NewUnauthenticated()
}

func verifyFailureKind(err error) string {
	switch {
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrBadSignature):
		return "bad_signature"
	default:
		return "malformed"
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

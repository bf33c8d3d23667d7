package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/GeneralMarshal/postgres-auth/internal/auth"
	"github.com/GeneralMarshal/postgres-auth/internal/config"
	"github.com/GeneralMarshal/postgres-auth/internal/domain"
	"github.com/GeneralMarshal/postgres-auth/internal/events"
	"github.com/GeneralMarshal/postgres-auth/internal/repository"
	"github.com/GeneralMarshal/postgres-auth/internal/session"
)

// ErrInvalidCredentials covers unknown email, wrong password and
// suspended accounts alike. Handlers map it to the uniform
// unauthenticated response.
var ErrInvalidCredentials = errors.New("invalid credentials")

// LoginResult is what a successful registration or login yields. The
// caller receives the opaque access token, never the bare token id.
type LoginResult struct {
	User        *domain.User
	AccessToken string
	TokenID     string
	ExpiresAt   time.Time
}

// AuthService coordinates registration, login and logout flows.
type AuthService struct {
	users      repository.UserRepository
	sessions   *session.Manager
	tokenMgr   *auth.TokenManager
	dispatcher events.Dispatcher
	bcryptCost int
}

// AuthDependencies encapsulates collaborator requirements for the service.
type AuthDependencies struct {
	UserRepo   repository.UserRepository
	Sessions   *session.Manager
	Dispatcher events.Dispatcher
}

// NewAuthService builds the service. It fails when no signing secret is
// configured; that must abort startup, never surface per request.
func NewAuthService(cfg config.Config, deps AuthDependencies) (*AuthService, error) {
	tokenMgr, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	if err != nil {
		return nil, err
	}
	return &AuthService{
		users:      deps.UserRepo,
		sessions:   deps.Sessions,
		tokenMgr:   tokenMgr,
		dispatcher: deps.Dispatcher,
		bcryptCost: cfg.Auth.BcryptCost,
	}, nil
}

// Register creates a new account and logs it in.
func (s *AuthService) Register(ctx context.Context, name, email, password string, role domain.Role) (*LoginResult, error) {
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, errors.New("email already registered")
	} else if err != nil && err != pgx.ErrNoRows {
		return nil, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Status:       domain.UserStatusActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	result, err := s.startSession(ctx, user)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.Event{
		Type:   events.EventUserRegistered,
		UserID: user.ID,
		Email:  user.Email,
	})
	return result, nil
}

// Login authenticates by email and password and establishes a session.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if err == pgx.ErrNoRows {
			s.publishLoginFailed(ctx, email, "unknown email")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		s.publishLoginFailed(ctx, email, "wrong password")
		return nil, ErrInvalidCredentials
	}
	if user.Status != domain.UserStatusActive {
		s.publishLoginFailed(ctx, email, "account suspended")
		return nil, ErrInvalidCredentials
	}

	result, err := s.startSession(ctx, user)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.Event{
		Type:    events.EventLoginSucceeded,
		UserID:  user.ID,
		Email:   user.Email,
		Payload: events.LoginSucceededPayload{TokenID: result.TokenID, Role: string(user.Role)},
	})
	return result, nil
}

// Logout deletes the session paired with the token, revoking it
// immediately regardless of remaining signature lifetime. Deleting an
// already-absent session succeeds.
func (s *AuthService) Logout(ctx context.Context, principal *auth.Principal) error {
	if err := s.sessions.Delete(ctx, principal.TokenID); err != nil {
		return err
	}
	s.publish(ctx, events.Event{
		Type:    events.EventLogout,
		UserID:  principal.UserID,
		Email:   principal.Email,
		Payload: events.LogoutPayload{TokenID: principal.TokenID},
	})
	return nil
}

// ChangePassword verifies the current password before storing a new hash.
// Existing sessions stay live; only future logins use the new password.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := auth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		return ErrInvalidCredentials
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	return s.users.Update(ctx, user)
}

// startSession issues a token and creates the paired session record.
// These are two calls against two systems, not a transaction; if the
// session write fails the token is discarded and the login fails, which
// is indistinguishable from never having logged in.
func (s *AuthService) startSession(ctx context.Context, user *domain.User) (*LoginResult, error) {
	var role *domain.Role
	if user.Role != "" {
		role = &user.Role
	}

	token, tokenID, expiresAt, err := s.tokenMgr.Issue(user.ID, user.Email, user.Name, role)
	if err != nil {
		return nil, err
	}

	data := domain.SessionData{
		UserID:    user.ID,
		Email:     user.Email,
		Role:      role,
		CreatedAt: time.Now(),
	}
	// Session lifetime mirrors the token's remaining validity window.
	if err := s.sessions.Create(ctx, tokenID, data, time.Until(expiresAt)); err != nil {
		return nil, err
	}

	return &LoginResult{User: user, AccessToken: token, TokenID: tokenID, ExpiresAt: expiresAt}, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Timestamp = time.Now()
	_ = s.dispatcher.Publish(ctx, event)
}

func (s *AuthService) publishLoginFailed(ctx context.Context, email, reason string) {
	s.publish(ctx, events.Event{
		Type:    events.EventLoginFailed,
		Email:   email,
		Payload: events.LoginFailedPayload{Reason: reason},
	})
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"loadtracker.app/internal/obs"
)

// Service implements the authentication flows: login, token refresh,
// password reset and password change. Administrative user/role/grant
// management lives in admin.go.
type Service struct {
	store  Store
	tokens *TokenIssuer
	mailer Mailer
	now    func() time.Time

	resetURL string
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithMailer wires the outbound mailer. Without one, welcome and reset
// emails are silently skipped.
func WithMailer(m Mailer) ServiceOption {
	return func(s *Service) { s.mailer = m }
}

// WithResetURL sets the page the password-reset email links to; the reset
// token is appended as a query parameter.
func WithResetURL(u string) ServiceOption {
	return func(s *Service) { s.resetURL = strings.TrimSpace(u) }
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the auth service.
func NewService(store Store, tokens *TokenIssuer, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth: store is required")
	}
	if tokens == nil {
		return nil, errors.New("auth: token issuer is required")
	}
	s := &Service{store: store, tokens: tokens, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// EnsureBuiltins makes sure the permission catalog exists.
func (s *Service) EnsureBuiltins(ctx context.Context) error {
	return s.store.EnsurePermissions(ctx, BuiltinPermissions)
}

// Login authenticates credentials and issues a token pair. Unknown email,
// inactive account and wrong password all return ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string, rememberMe bool) (TokenPair, Principal, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return TokenPair{}, Principal{}, ErrInvalidCredentials
	}
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return TokenPair{}, Principal{}, ErrInvalidCredentials
		}
		return TokenPair{}, Principal{}, err
	}
	if user.Status != UserStatusActive {
		return TokenPair{}, Principal{}, ErrInvalidCredentials
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return TokenPair{}, Principal{}, ErrInvalidCredentials
	}
	principal, err := s.principal(ctx, user)
	if err != nil {
		return TokenPair{}, Principal{}, err
	}
	pair, err := s.tokens.Issue(user, rememberMe)
	if err != nil {
		return TokenPair{}, Principal{}, err
	}
	return pair, principal, nil
}

// Refresh verifies a refresh token and issues a fresh pair for its subject.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, Principal, error) {
	userID, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return TokenPair{}, Principal{}, ErrInvalidToken
	}
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return TokenPair{}, Principal{}, ErrInvalidToken
		}
		return TokenPair{}, Principal{}, err
	}
	if user.Status != UserStatusActive {
		return TokenPair{}, Principal{}, ErrInvalidToken
	}
	principal, err := s.principal(ctx, user)
	if err != nil {
		return TokenPair{}, Principal{}, err
	}
	pair, err := s.tokens.Issue(user, false)
	if err != nil {
		return TokenPair{}, Principal{}, err
	}
	return pair, principal, nil
}

// Authenticate verifies an access token and loads the current principal.
// The user record is re-read on every request so deactivation takes effect
// before the token expires.
func (s *Service) Authenticate(ctx context.Context, token string) (Principal, error) {
	claims, err := s.tokens.VerifyAccess(token)
	if err != nil {
		return Principal{}, ErrInvalidToken
	}
	user, err := s.store.GetUser(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Principal{}, ErrInvalidToken
		}
		return Principal{}, err
	}
	if user.Status != UserStatusActive {
		return Principal{}, ErrInvalidToken
	}
	return s.principal(ctx, user)
}

// Principal resolves a user id to a principal with its permission set.
func (s *Service) Principal(ctx context.Context, userID string) (Principal, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return Principal{}, err
	}
	return s.principal(ctx, user)
}

func (s *Service) principal(ctx context.Context, user User) (Principal, error) {
	var perms []string
	if user.RoleName != "" {
		var err error
		perms, err = s.store.RolePermissions(ctx, user.RoleName)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return Principal{}, err
		}
	}
	return NewPrincipal(user, perms), nil
}

// ForgotPassword sends a reset email when the address belongs to an active
// account. It reports success either way so responses cannot be used to
// probe for accounts.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil
	}
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	if user.Status != UserStatusActive {
		return nil
	}
	token, err := s.tokens.IssueReset(user.ID)
	if err != nil {
		return err
	}
	if s.mailer == nil {
		return nil
	}
	if err := s.mailer.SendPasswordReset(ctx, user.Email, s.resetLink(token)); err != nil {
		obs.Error("password reset email failed", map[string]any{
			"user_id": user.ID,
			"error":   err.Error(),
		})
	}
	return nil
}

func (s *Service) resetLink(token string) string {
	base := s.resetURL
	if base == "" {
		base = "/reset-password"
	}
	return base + "?token=" + url.QueryEscape(token)
}

// ResetPassword consumes a reset token and stores the new password hash.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	userID, err := s.tokens.VerifyReset(token)
	if err != nil {
		return ErrInvalidToken
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}
	if err := s.store.UpdatePassword(ctx, userID, hash); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrInvalidToken
		}
		return err
	}
	return nil
}

// ChangePassword verifies the current password before storing a new one.
func (s *Service) ChangePassword(ctx context.Context, userID, current, next string) error {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := VerifyPassword(user.PasswordHash, current); err != nil {
		return ErrInvalidCredentials
	}
	hash, err := HashPassword(next)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}
	return s.store.UpdatePassword(ctx, userID, hash)
}

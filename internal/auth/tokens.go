package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"loadtracker.app/internal/ids"
)

const (
	tokenTypeRefresh = "refresh"
	tokenTypeReset   = "reset"
)

// AccessClaims is the payload of an access token.
type AccessClaims struct {
	Email     string   `json:"email"`
	Role      string   `json:"role"`
	ClientIDs []string `json:"client_ids,omitempty"`
	jwt.RegisteredClaims
}

// scopedClaims is the payload of refresh and password-reset tokens; they
// carry only the subject and a type marker.
type scopedClaims struct {
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenPair is what login and refresh hand back to clients.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// TokenConfig holds signing material and lifetimes. Access and refresh
// tokens are signed with independent secrets.
type TokenConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	Issuer        string
	Audience      string
	AccessTTL     time.Duration
	RememberTTL   time.Duration
	RefreshTTL    time.Duration
	ResetTTL      time.Duration
}

// TokenIssuer signs and verifies the three token kinds the service uses.
// Tokens are self-contained: validity is a function of signature and expiry
// only, nothing is persisted server-side.
type TokenIssuer struct {
	cfg TokenConfig
	now func() time.Time
}

// NewTokenIssuer validates the config and returns an issuer.
func NewTokenIssuer(cfg TokenConfig, now func() time.Time) (*TokenIssuer, error) {
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("auth: token secrets are required")
	}
	if cfg.Issuer == "" || cfg.Audience == "" {
		return nil, errors.New("auth: token issuer and audience are required")
	}
	if cfg.AccessTTL <= 0 || cfg.RememberTTL <= 0 || cfg.RefreshTTL <= 0 || cfg.ResetTTL <= 0 {
		return nil, errors.New("auth: token lifetimes must be positive")
	}
	if now == nil {
		now = time.Now
	}
	return &TokenIssuer{cfg: cfg, now: now}, nil
}

// Issue produces an access/refresh pair for the user. rememberMe stretches
// the access lifetime; the refresh lifetime is fixed.
func (t *TokenIssuer) Issue(user User, rememberMe bool) (TokenPair, error) {
	now := t.now().UTC()

	accessTTL := t.cfg.AccessTTL
	if rememberMe {
		accessTTL = t.cfg.RememberTTL
	}
	accessExp := now.Add(accessTTL)
	access := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessClaims{
		Email:     user.Email,
		Role:      user.RoleName,
		ClientIDs: user.ClientIDs,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.cfg.Issuer,
			Audience:  jwt.ClaimStrings{t.cfg.Audience},
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(accessExp),
			ID:        ids.New(),
		},
	})
	accessSigned, err := access.SignedString(t.cfg.AccessSecret)
	if err != nil {
		return TokenPair{}, err
	}

	refreshExp := now.Add(t.cfg.RefreshTTL)
	refreshSigned, err := t.signScoped(user.ID, tokenTypeRefresh, now, refreshExp)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:      accessSigned,
		RefreshToken:     refreshSigned,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// IssueReset produces a short-lived password-reset token for the user.
func (t *TokenIssuer) IssueReset(userID string) (string, error) {
	now := t.now().UTC()
	return t.signScoped(userID, tokenTypeReset, now, now.Add(t.cfg.ResetTTL))
}

func (t *TokenIssuer) signScoped(userID, tokenType string, now, exp time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, scopedClaims{
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.cfg.Issuer,
			Audience:  jwt.ClaimStrings{t.cfg.Audience},
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        ids.New(),
		},
	})
	return token.SignedString(t.cfg.RefreshSecret)
}

// VerifyAccess checks signature, issuer, audience and expiry. All failure
// modes collapse into ErrInvalidToken.
func (t *TokenIssuer) VerifyAccess(token string) (*AccessClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &AccessClaims{},
		func(tok *jwt.Token) (any, error) { return t.cfg.AccessSecret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.cfg.Issuer),
		jwt.WithAudience(t.cfg.Audience),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok || !parsed.Valid || strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// VerifyRefresh returns the subject of a valid refresh token.
func (t *TokenIssuer) VerifyRefresh(token string) (string, error) {
	return t.verifyScoped(token, tokenTypeRefresh)
}

// VerifyReset returns the subject of a valid password-reset token.
func (t *TokenIssuer) VerifyReset(token string) (string, error) {
	return t.verifyScoped(token, tokenTypeReset)
}

func (t *TokenIssuer) verifyScoped(token, wantType string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &scopedClaims{},
		func(tok *jwt.Token) (any, error) { return t.cfg.RefreshSecret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.cfg.Issuer),
		jwt.WithAudience(t.cfg.Audience),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return "", ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*scopedClaims)
	if !ok || !parsed.Valid || claims.TokenType != wantType {
		return "", ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

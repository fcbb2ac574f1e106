package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/platform/apperr"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// ErrInvalidToken is returned for tokens that fail verification, have the
// wrong type, or were revoked.
var ErrInvalidToken = fmt.Errorf("%w: invalid token", apperr.ErrUnauthenticated)

// Claims is the JWT payload issued by TokenIssuer.
type Claims struct {
	jwt.RegisteredClaims
	Username  string `json:"username"`
	Role      Role   `json:"role"`
	TokenType string `json:"token_type"`
}

// TokenPair is returned by login and refresh.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	TokenType        string    `json:"token_type"`
	ExpiresIn        int       `json:"expires_in"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// ActorLookup resolves the current state of a user during refresh, so role
// changes and deactivations take effect on the next rotation.
type ActorLookup interface {
	LookupActor(ctx context.Context, userID string) (*Actor, error)
}

// TokenConfig configures a TokenIssuer.
type TokenConfig struct {
	SigningKey []byte
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// TokenIssuer signs and verifies HS256 access and refresh tokens.
type TokenIssuer struct {
	cfg     TokenConfig
	revoked *TokenRevocationStore
	logger  zerolog.Logger
	now     func() time.Time
}

// NewTokenIssuer creates an issuer. revoked may be nil to disable
// revocation checks.
func NewTokenIssuer(cfg TokenConfig, revoked *TokenRevocationStore, logger zerolog.Logger) *TokenIssuer {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	return &TokenIssuer{cfg: cfg, revoked: revoked, logger: logger, now: time.Now}
}

// Issue creates a fresh access/refresh pair for actor.
func (t *TokenIssuer) Issue(actor *Actor) (*TokenPair, error) {
	if actor == nil {
		return nil, apperr.ErrUnauthenticated
	}
	now := t.now()
	accessExp := now.Add(t.cfg.AccessTTL)
	refreshExp := now.Add(t.cfg.RefreshTTL)

	access, err := t.sign(actor, TokenTypeAccess, now, accessExp)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := t.sign(actor, TokenTypeRefresh, now, refreshExp)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	t.logger.Debug().Str("user_id", actor.ID).Str("role", string(actor.Role)).Msg("token pair issued")

	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		TokenType:        "Bearer",
		ExpiresIn:        int(t.cfg.AccessTTL.Seconds()),
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (t *TokenIssuer) sign(actor *Actor, tokenType string, now, exp time.Time) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   actor.ID,
			Issuer:    t.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Username:  actor.Username,
		Role:      actor.Role,
		TokenType: tokenType,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.cfg.SigningKey)
}

// Parse verifies tokenStr and checks it is of the expected type and not
// revoked.
func (t *TokenIssuer) Parse(tokenStr, tokenType string) (*Claims, error) {
	claims := &Claims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	}
	if t.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.cfg.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return t.cfg.SigningKey, nil
	}, opts...)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != tokenType {
		return nil, ErrInvalidToken
	}
	if t.revoked != nil && t.revoked.IsRevoked(claims.ID) {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Refresh rotates a refresh token: the presented token is revoked and a new
// pair is issued for the user's current role. Only one of several concurrent
// refreshes of the same token succeeds. The token is consumed even when the
// user lookup fails.
func (t *TokenIssuer) Refresh(ctx context.Context, refreshToken string, users ActorLookup) (*TokenPair, error) {
	claims, err := t.Parse(refreshToken, TokenTypeRefresh)
	if err != nil {
		return nil, err
	}
	if !t.consume(claims) {
		return nil, ErrInvalidToken
	}

	actor, err := users.LookupActor(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return t.Issue(actor)
}

// Revoke invalidates a refresh token. Revoking an already invalid token is
// an error so clients can tell a stale logout apart.
func (t *TokenIssuer) Revoke(refreshToken string) error {
	claims, err := t.Parse(refreshToken, TokenTypeRefresh)
	if err != nil {
		return err
	}
	if !t.consume(claims) {
		return ErrInvalidToken
	}
	return nil
}

// consume revokes the token's jti and reports whether this call was the
// one that did it. Without a store every token can be used again.
func (t *TokenIssuer) consume(claims *Claims) bool {
	if t.revoked == nil {
		return true
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return t.revoked.Revoke(claims.ID, claims.Subject, claims.ExpiresAt.Time)
}

// ActorFromClaims builds the request actor from verified access claims.
func ActorFromClaims(claims *Claims) *Actor {
	return NewActor(claims.Subject, claims.Username, claims.Role)
}

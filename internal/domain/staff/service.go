package staff

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/platform/apperr"
	"github.com/hms/hms/internal/platform/auth"
)

// ErrInvalidCredentials is returned for unknown users, wrong passwords and
// deactivated accounts alike.
var ErrInvalidCredentials = fmt.Errorf("%w: invalid username or password", apperr.ErrUnauthenticated)

type Service struct {
	users  UserRepository
	tokens *auth.TokenIssuer
	logger zerolog.Logger
}

func NewService(users UserRepository, tokens *auth.TokenIssuer, logger zerolog.Logger) *Service {
	return &Service{users: users, tokens: tokens, logger: logger}
}

// Login checks credentials and issues a token pair.
func (s *Service) Login(ctx context.Context, username, password string) (*auth.TokenPair, error) {
	if username == "" || password == "" {
		return nil, apperr.Validation("username and password are required")
	}
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			s.logger.Warn().Str("username", username).Msg("login failed: unknown user")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(u.Password), []byte(password)) != 1 {
		s.logger.Warn().Str("username", username).Msg("login failed: bad password")
		return nil, ErrInvalidCredentials
	}
	if !u.Active {
		s.logger.Warn().Str("username", username).Msg("login failed: inactive user")
		return nil, ErrInvalidCredentials
	}

	pair, err := s.tokens.Issue(u.Actor())
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("user_id", u.ID.String()).Str("role", string(u.Role)).Msg("user logged in")
	return pair, nil
}

// Refresh rotates a refresh token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	if refreshToken == "" {
		return nil, apperr.Validation("refresh_token is required")
	}
	return s.tokens.Refresh(ctx, refreshToken, s)
}

// Logout revokes a refresh token.
func (s *Service) Logout(_ context.Context, refreshToken string) error {
	if refreshToken == "" {
		return apperr.Validation("refresh_token is required")
	}
	return s.tokens.Revoke(refreshToken)
}

// LookupActor implements auth.ActorLookup. Deactivated users are reported
// as not found so their refresh tokens stop working.
func (s *Service) LookupActor(ctx context.Context, userID string) (*auth.Actor, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, apperr.NotFound("user")
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !u.Active {
		return nil, apperr.NotFound("user")
	}
	return u.Actor(), nil
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.users.GetByID(ctx, id)
}

// GetUserByUsername returns an active user by username.
func (s *Service) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if !u.Active {
		return nil, apperr.NotFound("user")
	}
	return u, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]*User, error) {
	return s.users.List(ctx)
}

// SetRole changes a user's role. The change reaches the user's tokens on
// their next refresh.
func (s *Service) SetRole(ctx context.Context, id uuid.UUID, role auth.Role) (*User, error) {
	if !role.Valid() {
		return nil, apperr.Validation("unknown role %q", role)
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	prev := u.Role
	u.Role = role
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Info().Str("user_id", id.String()).Str("from", string(prev)).Str("to", string(role)).Msg("role changed")
	return u, nil
}

// Describe reports actor with its effective permissions.
func Describe(actor *auth.Actor) *Me {
	return &Me{
		ID:          actor.ID,
		Username:    actor.Username,
		Role:        actor.Role,
		Permissions: actor.Permissions.List(),
	}
}

package users

import (
	"context"
	"errors"

	dto "github.com/dropDatabas3/potatoreg/internal/http/dto/users"
	"github.com/dropDatabas3/potatoreg/internal/observability/logger"
	"github.com/dropDatabas3/potatoreg/internal/security/password"
	"github.com/dropDatabas3/potatoreg/internal/security/token"
	"github.com/dropDatabas3/potatoreg/internal/store/core"
)

// TokenService issues opaque long-lived tokens for accounts without a
// local password (service accounts, SSO-managed users using pip/twine).
type TokenService interface {
	Generate(ctx context.Context, targetID string, actor *core.User) (*dto.GeneratedTokenResponse, error)
}

// TokenDeps contains dependencies for the token service.
type TokenDeps struct {
	Users core.UserRepository
}

type tokenService struct {
	deps TokenDeps
}

func NewTokenService(deps TokenDeps) TokenService {
	return &tokenService{deps: deps}
}

// Token errors (sentinel)
var (
	ErrTokenNotAllowed = errors.New("account cannot hold an opaque token")
	ErrTokenForbidden  = errors.New("not allowed to generate a token for this account")
)

// Generate mints a fresh opaque token for targetID and stores only its hash.
// The plaintext leaves the process exactly once, in the response.
func (s *tokenService) Generate(ctx context.Context, targetID string, actor *core.User) (*dto.GeneratedTokenResponse, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("users.token"),
		logger.Op("Generate"),
	)

	if actor == nil || (actor.ID != targetID && !actor.Superuser) {
		return nil, ErrTokenForbidden
	}

	u, err := s.deps.Users.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if !u.CanHoldToken() {
		return nil, ErrTokenNotAllowed
	}

	plain, err := token.GenerateOpaque(32)
	if err != nil {
		return nil, err
	}
	hash, err := password.HashDefault(plain)
	if err != nil {
		return nil, err
	}
	u.PasswordHash = hash
	if err := s.deps.Users.Update(ctx, u); err != nil {
		return nil, err
	}

	log.Info("opaque token rotated", logger.Username(u.Username))
	return &dto.GeneratedTokenResponse{Token: plain}, nil
}

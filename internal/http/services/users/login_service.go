package users

import (
	"context"
	"errors"
	"time"

	"github.com/dropDatabas3/potatoreg/internal/auth"
	dto "github.com/dropDatabas3/potatoreg/internal/http/dto/users"
	jwtx "github.com/dropDatabas3/potatoreg/internal/jwt"
	"github.com/dropDatabas3/potatoreg/internal/observability/logger"
	"github.com/dropDatabas3/potatoreg/internal/store/core"
)

// LoginService exchanges local credentials for a session token.
type LoginService interface {
	Login(ctx context.Context, in dto.TokenRequest) (*dto.TokenResponse, error)
}

// LoginDeps contains dependencies for the login service.
type LoginDeps struct {
	Resolver *auth.Resolver
	Issuer   *jwtx.Issuer
	Users    core.UserRepository

	// LocalEnabled gates password login entirely (SSO-only deployments).
	LocalEnabled bool
}

type loginService struct {
	deps LoginDeps
}

func NewLoginService(deps LoginDeps) LoginService {
	return &loginService{deps: deps}
}

// Login errors (sentinel)
var (
	ErrLocalAuthDisabled = errors.New("local authentication is disabled")
	ErrBadCredentials    = errors.New("invalid username or password")
	ErrAccountDisabled   = errors.New("account is disabled")
)

func (s *loginService) Login(ctx context.Context, in dto.TokenRequest) (*dto.TokenResponse, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("users.login"),
		logger.Op("Login"),
	)

	if !s.deps.LocalEnabled {
		return nil, ErrLocalAuthDisabled
	}
	if in.Username == "" || in.Password == "" {
		return nil, ErrBadCredentials
	}

	u, err := s.deps.Resolver.ResolveBasic(ctx, in.Username, in.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrAccountDisabled):
			return nil, ErrAccountDisabled
		case errors.Is(err, auth.ErrNoIdentity):
			return nil, ErrBadCredentials
		default:
			return nil, err
		}
	}

	token, exp, err := s.deps.Issuer.Issue(u.Username, 0)
	if err != nil {
		return nil, err
	}
	if err := s.deps.Users.TouchLastLogin(ctx, u.ID, time.Now().UTC()); err != nil {
		// login already succeeded, only the timestamp is lost
		log.Warn("touch last_login failed", logger.Err(err))
	}

	log.Info("local login", logger.Username(u.Username))
	return &dto.TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   exp.Unix(),
	}, nil
}

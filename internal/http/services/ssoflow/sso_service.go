package ssoflow

import (
	"context"
	"errors"
	"time"

	usersdto "github.com/dropDatabas3/potatoreg/internal/http/dto/users"
	jwtx "github.com/dropDatabas3/potatoreg/internal/jwt"
	"github.com/dropDatabas3/potatoreg/internal/observability/logger"
	"github.com/dropDatabas3/potatoreg/internal/oidc"
	"github.com/dropDatabas3/potatoreg/internal/sso"
	"github.com/dropDatabas3/potatoreg/internal/store/core"
)

// Service drives the browser SSO flow: Start issues the CSRF state and
// builds the provider redirect, Callback verifies everything and exchanges
// the federated identity for a local session token.
type Service interface {
	Start(ctx context.Context) (redirectURL string, err error)
	Callback(ctx context.Context, code, state string) (*usersdto.TokenResponse, error)
}

// Deps contains dependencies for the SSO flow service.
type Deps struct {
	Enabled     bool
	Provider    *oidc.Provider
	States      *oidc.StateStore
	Provisioner *sso.Provisioner
	Issuer      *jwtx.Issuer
	Users       core.UserRepository
}

type service struct {
	deps Deps
}

func New(deps Deps) Service {
	return &service{deps: deps}
}

// SSO flow errors (sentinel)
var (
	ErrDisabled     = errors.New("sso is not enabled")
	ErrStateInvalid = errors.New("state parameter is invalid or already used")
	ErrStateExpired = errors.New("state parameter has expired")
	ErrMissingCode  = errors.New("code parameter is required")
)

func (s *service) Start(ctx context.Context) (string, error) {
	if !s.deps.Enabled {
		return "", ErrDisabled
	}
	state, err := s.deps.States.Issue()
	if err != nil {
		return "", err
	}
	return s.deps.Provider.AuthURL(ctx, state)
}

func (s *service) Callback(ctx context.Context, code, state string) (*usersdto.TokenResponse, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("ssoflow"),
		logger.Op("Callback"),
	)

	if !s.deps.Enabled {
		return nil, ErrDisabled
	}

	// The state is consumed before anything else: even a request that will
	// fail later burns it, so replays always land on Invalid.
	switch s.deps.States.Consume(state) {
	case oidc.StateInvalid:
		return nil, ErrStateInvalid
	case oidc.StateExpired:
		return nil, ErrStateExpired
	}

	if code == "" {
		return nil, ErrMissingCode
	}

	idToken, err := s.deps.Provider.ExchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}
	identity, err := s.deps.Provider.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, err
	}

	u, err := s.deps.Provisioner.Provision(ctx, identity.Username, identity.Email)
	if err != nil {
		return nil, err
	}

	token, exp, err := s.deps.Issuer.Issue(u.Username, 0)
	if err != nil {
		return nil, err
	}
	if err := s.deps.Users.TouchLastLogin(ctx, u.ID, time.Now().UTC()); err != nil {
		log.Warn("touch last_login failed", logger.Err(err))
	}

	log.Info("sso login", logger.Username(u.Username))
	return &usersdto.TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   exp.Unix(),
	}, nil
}

package users

import (
	"context"
	"errors"
	"strings"

	dto "github.com/dropDatabas3/potatoreg/internal/http/dto/users"
	"github.com/dropDatabas3/potatoreg/internal/observability/logger"
	"github.com/dropDatabas3/potatoreg/internal/security/password"
	"github.com/dropDatabas3/potatoreg/internal/store/core"
)

// CrudService manages local accounts.
type CrudService interface {
	Create(ctx context.Context, in dto.CreateUserRequest) (*dto.UserResponse, error)
	List(ctx context.Context) ([]dto.UserResponse, error)
	Get(ctx context.Context, id string) (*dto.UserResponse, error)
	Update(ctx context.Context, id string, in dto.UpdateUserRequest) (*dto.UserResponse, error)
	Delete(ctx context.Context, id string) error
}

// CrudDeps contains dependencies for the user CRUD service.
type CrudDeps struct {
	Users core.UserRepository
}

type crudService struct {
	deps CrudDeps
}

func NewCrudService(deps CrudDeps) CrudService {
	return &crudService{deps: deps}
}

// CRUD errors (sentinel)
var (
	ErrMissingFields = errors.New("missing required fields")
	ErrUsernameTaken = errors.New("username already taken")
	ErrUserNotFound  = errors.New("user not found")
)

func toResponse(u *core.User) *dto.UserResponse {
	return &dto.UserResponse{
		ID:             u.ID,
		Username:       u.Username,
		Email:          u.Email,
		Active:         u.Active,
		Superuser:      u.Superuser,
		ServiceAccount: u.ServiceAccount,
		SSOManaged:     u.SSOManaged,
		CreatedAt:      u.CreatedAt,
		LastLoginAt:    u.LastLoginAt,
	}
}

func (s *crudService) Create(ctx context.Context, in dto.CreateUserRequest) (*dto.UserResponse, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("users.crud"),
		logger.Op("Create"),
	)

	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	if in.Username == "" {
		return nil, ErrMissingFields
	}
	// Service accounts get their secret via generate-token, not here.
	if in.Password == "" && !in.ServiceAccount {
		return nil, ErrMissingFields
	}

	u := &core.User{
		Username:       in.Username,
		Email:          in.Email,
		Active:         true,
		Superuser:      in.Superuser,
		ServiceAccount: in.ServiceAccount,
	}
	if in.Password != "" {
		hash, err := password.HashDefault(in.Password)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = hash
	}

	if err := s.deps.Users.Create(ctx, u); err != nil {
		if errors.Is(err, core.ErrConflict) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}

	log.Info("user created", logger.Username(u.Username))
	return toResponse(u), nil
}

func (s *crudService) List(ctx context.Context) ([]dto.UserResponse, error) {
	all, err := s.deps.Users.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.UserResponse, 0, len(all))
	for i := range all {
		out = append(out, *toResponse(&all[i]))
	}
	return out, nil
}

func (s *crudService) Get(ctx context.Context, id string) (*dto.UserResponse, error) {
	u, err := s.deps.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return toResponse(u), nil
}

func (s *crudService) Update(ctx context.Context, id string, in dto.UpdateUserRequest) (*dto.UserResponse, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("users.crud"),
		logger.Op("Update"),
	)

	u, err := s.deps.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if in.Email != nil {
		u.Email = strings.TrimSpace(strings.ToLower(*in.Email))
	}
	if in.Active != nil {
		u.Active = *in.Active
	}
	if in.Superuser != nil {
		u.Superuser = *in.Superuser
	}
	if in.Password != nil && *in.Password != "" {
		hash, err := password.HashDefault(*in.Password)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = hash
	}

	if err := s.deps.Users.Update(ctx, u); err != nil {
		if errors.Is(err, core.ErrConflict) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}

	log.Info("user updated", logger.Username(u.Username))
	return toResponse(u), nil
}

func (s *crudService) Delete(ctx context.Context, id string) error {
	if err := s.deps.Users.Delete(ctx, id); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

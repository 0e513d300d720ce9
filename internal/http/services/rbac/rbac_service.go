package rbac

import (
	"context"
	"errors"
	"strings"

	dto "github.com/dropDatabas3/potatoreg/internal/http/dto/rbac"
	"github.com/dropDatabas3/potatoreg/internal/http/services/registry"
	"github.com/dropDatabas3/potatoreg/internal/observability/logger"
	"github.com/dropDatabas3/potatoreg/internal/store/core"
)

// Service manages roles, role assignments and package labels.
type Service interface {
	CreateRole(ctx context.Context, in dto.CreateRoleRequest) (*dto.RoleResponse, error)
	ListRoles(ctx context.Context) ([]dto.RoleResponse, error)
	AssignRoles(ctx context.Context, userID string, roleIDs []string) error
	SetPackageLabels(ctx context.Context, name string, labels []string) error
}

// Deps contains dependencies for the RBAC service.
type Deps struct {
	Users    core.UserRepository
	Roles    core.RoleRepository
	Packages core.PackageRepository
}

type service struct {
	deps Deps
}

func New(deps Deps) Service {
	return &service{deps: deps}
}

// RBAC errors (sentinel)
var (
	ErrRoleNameRequired = errors.New("role name is required")
	ErrRoleNameTaken    = errors.New("role name already taken")
	ErrUserNotFound     = errors.New("user not found")
	ErrUnknownRole      = errors.New("unknown role id")
	ErrPackageNotFound  = errors.New("package not found")
)

func (s *service) CreateRole(ctx context.Context, in dto.CreateRoleRequest) (*dto.RoleResponse, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, ErrRoleNameRequired
	}
	role := &core.Role{Name: in.Name, AllowedLabels: in.AllowedLabels}
	if err := s.deps.Roles.Create(ctx, role); err != nil {
		if errors.Is(err, core.ErrConflict) {
			return nil, ErrRoleNameTaken
		}
		return nil, err
	}
	logger.From(ctx).Info("role created",
		logger.Layer("service"),
		logger.String("role", role.Name),
	)
	return &dto.RoleResponse{ID: role.ID, Name: role.Name, AllowedLabels: role.AllowedLabels}, nil
}

func (s *service) ListRoles(ctx context.Context) ([]dto.RoleResponse, error) {
	roles, err := s.deps.Roles.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.RoleResponse, 0, len(roles))
	for _, r := range roles {
		out = append(out, dto.RoleResponse{ID: r.ID, Name: r.Name, AllowedLabels: r.AllowedLabels})
	}
	return out, nil
}

func (s *service) AssignRoles(ctx context.Context, userID string, roleIDs []string) error {
	if _, err := s.deps.Users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	// every referenced role must exist before the swap
	found, err := s.deps.Roles.GetByIDs(ctx, roleIDs)
	if err != nil {
		return err
	}
	if len(found) != len(roleIDs) {
		return ErrUnknownRole
	}
	return s.deps.Users.SetRoles(ctx, userID, roleIDs)
}

func (s *service) SetPackageLabels(ctx context.Context, name string, labels []string) error {
	err := s.deps.Packages.SetLabels(ctx, registry.Normalize(name), labels)
	if errors.Is(err, core.ErrNotFound) {
		return ErrPackageNotFound
	}
	return err
}

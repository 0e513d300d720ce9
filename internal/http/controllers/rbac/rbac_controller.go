package rbac

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	dto "github.com/dropDatabas3/potatoreg/internal/http/dto/rbac"
	httperrors "github.com/dropDatabas3/potatoreg/internal/http/errors"
	"github.com/dropDatabas3/potatoreg/internal/http/helpers"
	svc "github.com/dropDatabas3/potatoreg/internal/http/services/rbac"
	"github.com/dropDatabas3/potatoreg/internal/observability/logger"
	"go.uber.org/zap"
)

// Controller handles the /api/rbac admin surface.
type Controller struct {
	service svc.Service
}

func New(service svc.Service) *Controller {
	return &Controller{service: service}
}

// CreateRole handles POST /api/rbac/roles
func (c *Controller) CreateRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("rbac.CreateRole"))

	var in dto.CreateRoleRequest
	if !helpers.ReadJSON(w, r, &in) {
		return
	}
	result, err := c.service.CreateRole(ctx, in)
	if err != nil {
		c.handleError(w, err, log)
		return
	}
	helpers.WriteJSON(w, http.StatusCreated, result)
}

// ListRoles handles GET /api/rbac/roles
func (c *Controller) ListRoles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("rbac.ListRoles"))

	result, err := c.service.ListRoles(ctx)
	if err != nil {
		c.handleError(w, err, log)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, result)
}

// AssignRoles handles POST /api/rbac/users/{id}/roles
func (c *Controller) AssignRoles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("rbac.AssignRoles"))

	var in dto.AssignRolesRequest
	if !helpers.ReadJSON(w, r, &in) {
		return
	}
	if err := c.service.AssignRoles(ctx, chi.URLParam(r, "id"), in.RoleIDs); err != nil {
		c.handleError(w, err, log)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetLabels handles PUT /api/rbac/packages/{name}/labels
func (c *Controller) SetLabels(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("rbac.SetLabels"))

	var in dto.SetLabelsRequest
	if !helpers.ReadJSON(w, r, &in) {
		return
	}
	if err := c.service.SetPackageLabels(ctx, chi.URLParam(r, "name"), in.Labels); err != nil {
		c.handleError(w, err, log)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleError maps service errors to HTTP responses.
func (c *Controller) handleError(w http.ResponseWriter, err error, log *zap.Logger) {
	switch err {
	case svc.ErrRoleNameRequired:
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("role name is required"))
	case svc.ErrRoleNameTaken:
		httperrors.WriteError(w, httperrors.ErrAlreadyExists.WithDetail("role name already taken"))
	case svc.ErrUserNotFound:
		httperrors.WriteError(w, httperrors.ErrNotFound.WithDetail("user not found"))
	case svc.ErrUnknownRole:
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("unknown role id"))
	case svc.ErrPackageNotFound:
		httperrors.WriteError(w, httperrors.ErrNotFound.WithDetail("package not found"))
	default:
		log.Error("unexpected rbac error", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternalServerError)
	}
}

package users

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	dto "github.com/dropDatabas3/potatoreg/internal/http/dto/users"
	httperrors "github.com/dropDatabas3/potatoreg/internal/http/errors"
	"github.com/dropDatabas3/potatoreg/internal/http/helpers"
	svc "github.com/dropDatabas3/potatoreg/internal/http/services/users"
	"github.com/dropDatabas3/potatoreg/internal/observability/logger"
	"go.uber.org/zap"
)

// UsersController handles the /api/users CRUD plus token generation.
type UsersController struct {
	crud   svc.CrudService
	tokens svc.TokenService
}

func NewUsersController(crud svc.CrudService, tokens svc.TokenService) *UsersController {
	return &UsersController{crud: crud, tokens: tokens}
}

// Create handles POST /api/users
func (c *UsersController) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("UsersController.Create"))

	var in dto.CreateUserRequest
	if !helpers.ReadJSON(w, r, &in) {
		return
	}
	result, err := c.crud.Create(ctx, in)
	if err != nil {
		c.handleError(w, err, log)
		return
	}
	helpers.WriteJSON(w, http.StatusCreated, result)
}

// List handles GET /api/users
func (c *UsersController) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("UsersController.List"))

	result, err := c.crud.List(ctx)
	if err != nil {
		c.handleError(w, err, log)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, result)
}

// Get handles GET /api/users/{id}
func (c *UsersController) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("UsersController.Get"))

	result, err := c.crud.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		c.handleError(w, err, log)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, result)
}

// Me handles GET /api/users/me
func (c *UsersController) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("UsersController.Me"))

	u := helpers.Identity(ctx)
	if u == nil {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}
	result, err := c.crud.Get(ctx, u.ID)
	if err != nil {
		c.handleError(w, err, log)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, result)
}

// Update handles PUT /api/users/{id}
func (c *UsersController) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("UsersController.Update"))

	var in dto.UpdateUserRequest
	if !helpers.ReadJSON(w, r, &in) {
		return
	}
	result, err := c.crud.Update(ctx, chi.URLParam(r, "id"), in)
	if err != nil {
		c.handleError(w, err, log)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, result)
}

// Delete handles DELETE /api/users/{id}
func (c *UsersController) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("UsersController.Delete"))

	if err := c.crud.Delete(ctx, chi.URLParam(r, "id")); err != nil {
		c.handleError(w, err, log)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GenerateToken handles POST /api/users/{id}/generate-token
func (c *UsersController) GenerateToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("UsersController.GenerateToken"))

	result, err := c.tokens.Generate(ctx, chi.URLParam(r, "id"), helpers.Identity(ctx))
	if err != nil {
		switch err {
		case svc.ErrTokenForbidden:
			httperrors.WriteError(w, httperrors.ErrForbidden)
		case svc.ErrTokenNotAllowed:
			httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("account cannot hold an opaque token"))
		case svc.ErrUserNotFound:
			httperrors.WriteError(w, httperrors.ErrNotFound.WithDetail("user not found"))
		default:
			log.Error("unexpected token error", logger.Err(err))
			httperrors.WriteError(w, httperrors.ErrInternalServerError)
		}
		return
	}
	helpers.WriteJSON(w, http.StatusOK, result)
}

// handleError maps service errors to HTTP responses.
func (c *UsersController) handleError(w http.ResponseWriter, err error, log *zap.Logger) {
	switch err {
	case svc.ErrMissingFields:
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("missing required fields"))
	case svc.ErrUsernameTaken:
		httperrors.WriteError(w, httperrors.ErrAlreadyExists.WithDetail("username already taken"))
	case svc.ErrUserNotFound:
		httperrors.WriteError(w, httperrors.ErrNotFound.WithDetail("user not found"))
	default:
		log.Error("unexpected users error", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternalServerError)
	}
}

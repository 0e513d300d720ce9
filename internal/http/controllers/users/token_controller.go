package users

import (
	"net/http"

	dto "github.com/dropDatabas3/potatoreg/internal/http/dto/users"
	httperrors "github.com/dropDatabas3/potatoreg/internal/http/errors"
	"github.com/dropDatabas3/potatoreg/internal/http/helpers"
	svc "github.com/dropDatabas3/potatoreg/internal/http/services/users"
	"github.com/dropDatabas3/potatoreg/internal/observability/logger"
)

// TokenController handles POST /api/users/token (local login).
type TokenController struct {
	service svc.LoginService
}

func NewTokenController(service svc.LoginService) *TokenController {
	return &TokenController{service: service}
}

// Issue handles the local login request.
// POST /api/users/token
func (c *TokenController) Issue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("TokenController.Issue"))

	var in dto.TokenRequest
	if !helpers.ReadJSON(w, r, &in) {
		return
	}

	result, err := c.service.Login(ctx, in)
	if err != nil {
		switch err {
		case svc.ErrLocalAuthDisabled:
			httperrors.WriteError(w, httperrors.ErrForbidden.WithDetail("local login disabled"))
		case svc.ErrBadCredentials:
			w.Header().Set("WWW-Authenticate", `Bearer realm="potatoreg"`)
			httperrors.WriteError(w, httperrors.ErrInvalidCredentials)
		case svc.ErrAccountDisabled:
			httperrors.WriteError(w, httperrors.ErrAccountDisabled)
		default:
			log.Error("unexpected login error", logger.Err(err))
			httperrors.WriteError(w, httperrors.ErrInternalServerError)
		}
		return
	}

	helpers.WriteJSON(w, http.StatusOK, result)
}

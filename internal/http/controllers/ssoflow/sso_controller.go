package ssoflow

import (
	"errors"
	"net/http"

	httperrors "github.com/dropDatabas3/potatoreg/internal/http/errors"
	"github.com/dropDatabas3/potatoreg/internal/http/helpers"
	svc "github.com/dropDatabas3/potatoreg/internal/http/services/ssoflow"
	"github.com/dropDatabas3/potatoreg/internal/observability/logger"
	"github.com/dropDatabas3/potatoreg/internal/oidc"
	"github.com/dropDatabas3/potatoreg/internal/sso"
	"go.uber.org/zap"
)

// Controller handles the /sso browser flow.
type Controller struct {
	service svc.Service
}

func New(service svc.Service) *Controller {
	return &Controller{service: service}
}

// Login handles GET /sso/login: issues state and redirects to the provider.
func (c *Controller) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("sso.Login"))

	url, err := c.service.Start(ctx)
	if err != nil {
		c.handleError(w, err, log)
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

// Callback handles GET /sso/callback?code=...&state=...
func (c *Controller) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("sso.Callback"))

	q := r.URL.Query()
	result, err := c.service.Callback(ctx, q.Get("code"), q.Get("state"))
	if err != nil {
		c.handleError(w, err, log)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, result)
}

// handleError maps flow errors to HTTP responses. Protocol failures with the
// provider surface as 401 with the detail kept server-side.
func (c *Controller) handleError(w http.ResponseWriter, err error, log *zap.Logger) {
	switch {
	case errors.Is(err, svc.ErrDisabled):
		httperrors.WriteError(w, &httperrors.AppError{
			Code:       "SSO_DISABLED",
			Message:    "SSO no está habilitado en este registry.",
			HTTPStatus: http.StatusServiceUnavailable,
		})
	case errors.Is(err, svc.ErrStateInvalid):
		httperrors.WriteError(w, httperrors.ErrInvalidState)
	case errors.Is(err, svc.ErrStateExpired):
		httperrors.WriteError(w, httperrors.ErrExpiredState)
	case errors.Is(err, svc.ErrMissingCode):
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("code es requerido"))
	case errors.Is(err, sso.ErrMissingClaims):
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("el id_token no trae username/email"))
	case errors.Is(err, sso.ErrIdentityCollision):
		httperrors.WriteError(w, httperrors.ErrForbidden.WithDetail("la identidad federada colisiona con una cuenta local"))
	case errors.Is(err, oidc.ErrProviderUnavailable):
		log.Warn("identity provider unreachable", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrProviderUnavailable)
	case errors.Is(err, oidc.ErrProviderProtocol), errors.Is(err, oidc.ErrKeyNotFound):
		log.Error("identity provider protocol error", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrUnauthorized.WithDetail("no se pudo verificar la identidad federada"))
	default:
		log.Error("unexpected sso error", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternalServerError)
	}
}

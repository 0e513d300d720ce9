package registry

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	dto "github.com/dropDatabas3/potatoreg/internal/http/dto/registry"
	httperrors "github.com/dropDatabas3/potatoreg/internal/http/errors"
	"github.com/dropDatabas3/potatoreg/internal/http/helpers"
	svc "github.com/dropDatabas3/potatoreg/internal/http/services/registry"
	"github.com/dropDatabas3/potatoreg/internal/observability/logger"
	"go.uber.org/zap"
)

// PackagesController handles the /api/packages management surface.
type PackagesController struct {
	service svc.PackageService
}

func NewPackagesController(service svc.PackageService) *PackagesController {
	return &PackagesController{service: service}
}

// List handles GET /api/packages/
func (c *PackagesController) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("PackagesController.List"))

	result, err := c.service.List(ctx, helpers.Identity(ctx))
	if err != nil {
		c.handleError(w, err, log)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, result)
}

// Get handles GET /api/packages/{name}
func (c *PackagesController) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("PackagesController.Get"))

	result, err := c.service.Get(ctx, helpers.Identity(ctx), chi.URLParam(r, "name"))
	if err != nil {
		c.handleError(w, err, log)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, result)
}

// Delete handles DELETE /api/packages/{name}
func (c *PackagesController) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("PackagesController.Delete"))

	if err := c.service.Delete(ctx, chi.URLParam(r, "name")); err != nil {
		c.handleError(w, err, log)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Yank handles PUT /api/packages/{name}/yank/{version}
func (c *PackagesController) Yank(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("PackagesController.Yank"))

	var in dto.YankRequest
	if r.ContentLength > 0 && !helpers.ReadJSON(w, r, &in) {
		return
	}
	err := c.service.Yank(ctx, chi.URLParam(r, "name"), chi.URLParam(r, "version"), in.Reason)
	if err != nil {
		c.handleError(w, err, log)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleError maps service errors to HTTP responses.
func (c *PackagesController) handleError(w http.ResponseWriter, err error, log *zap.Logger) {
	switch err {
	case svc.ErrPackageNotFound:
		httperrors.WriteError(w, httperrors.ErrNotFound.WithDetail("package not found"))
	case svc.ErrVersionNotFound:
		httperrors.WriteError(w, httperrors.ErrNotFound.WithDetail("version not found"))
	default:
		log.Error("unexpected packages error", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternalServerError)
	}
}

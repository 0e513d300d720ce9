package registry

import (
	"net/http"

	httperrors "github.com/dropDatabas3/potatoreg/internal/http/errors"
	"github.com/dropDatabas3/potatoreg/internal/http/helpers"
	svc "github.com/dropDatabas3/potatoreg/internal/http/services/registry"
	"github.com/dropDatabas3/potatoreg/internal/observability/logger"
)

// maxUploadBytes limita el tamaño de un artefacto (128MB).
const maxUploadBytes = 128 << 20

// UploadController handles POST /upload/ (multipart artifact ingestion).
type UploadController struct {
	service svc.UploadService
	metrics func(result string)
}

func NewUploadController(service svc.UploadService, metrics func(result string)) *UploadController {
	if metrics == nil {
		metrics = func(string) {}
	}
	return &UploadController{service: service, metrics: metrics}
}

// Upload handles the multipart upload request.
// POST /upload/  fields: name, version, content (file)
func (c *UploadController) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("UploadController.Upload"))

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		c.metrics("rejected")
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("multipart form esperado"))
		return
	}

	name := r.FormValue("name")
	version := r.FormValue("version")
	file, header, err := r.FormFile("content")
	if err != nil {
		c.metrics("rejected")
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("campo content requerido"))
		return
	}
	defer file.Close()

	result, err := c.service.Upload(ctx, helpers.Identity(ctx), name, version, header.Filename, file)
	if err != nil {
		switch err {
		case svc.ErrUploadMissingFields:
			c.metrics("rejected")
			httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("name, version y content son requeridos"))
		case svc.ErrDuplicateFile:
			c.metrics("duplicate")
			httperrors.WriteError(w, httperrors.ErrAlreadyExists.WithDetail("el archivo ya existe"))
		default:
			c.metrics("rejected")
			log.Error("upload failed", logger.Err(err))
			httperrors.WriteError(w, httperrors.ErrInternalServerError)
		}
		return
	}

	c.metrics("accepted")
	helpers.WriteJSON(w, http.StatusCreated, result)
}

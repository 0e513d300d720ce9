package simple

import (
	"fmt"
	"html"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	httperrors "github.com/dropDatabas3/potatoreg/internal/http/errors"
	"github.com/dropDatabas3/potatoreg/internal/http/helpers"
	svc "github.com/dropDatabas3/potatoreg/internal/http/services/registry"
	"github.com/dropDatabas3/potatoreg/internal/observability/logger"
)

// Controller serves the PEP-503 simple index consumed by pip.
type Controller struct {
	service svc.IndexService
}

func New(service svc.IndexService) *Controller {
	return &Controller{service: service}
}

func writeHTML(w http.ResponseWriter, title string, links [][2]string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head><title>")
	b.WriteString(html.EscapeString(title))
	b.WriteString("</title></head>\n<body>\n")
	for _, l := range links {
		fmt.Fprintf(&b, "<a href=%q>%s</a><br/>\n", l[0], html.EscapeString(l[1]))
	}
	b.WriteString("</body>\n</html>\n")
	_, _ = w.Write([]byte(b.String()))
}

// Index handles GET /simple/
func (c *Controller) Index(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("simple.Index"))

	names, err := c.service.ListVisible(ctx, helpers.Identity(ctx))
	if err != nil {
		log.Error("index listing failed", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternalServerError)
		return
	}

	links := make([][2]string, 0, len(names))
	for _, n := range names {
		links = append(links, [2]string{"/simple/" + n + "/", n})
	}
	writeHTML(w, "Simple index", links)
}

// Package handles GET /simple/{package}/
func (c *Controller) Package(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("simple.Package"))

	name := chi.URLParam(r, "package")
	files, err := c.service.PackageFiles(ctx, helpers.Identity(ctx), name)
	if err != nil {
		if err == svc.ErrPackageNotFound {
			httperrors.WriteError(w, httperrors.ErrNotFound)
			return
		}
		log.Error("package listing failed", logger.Err(err), logger.PackageName(name))
		httperrors.WriteError(w, httperrors.ErrInternalServerError)
		return
	}

	links := make([][2]string, 0, len(files))
	for _, f := range files {
		links = append(links, [2]string{"/simple/" + svc.Normalize(name) + "/" + f, f})
	}
	writeHTML(w, "Links for "+svc.Normalize(name), links)
}

// Download handles GET /simple/{package}/{filename}
func (c *Controller) Download(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("simple.Download"))

	name := chi.URLParam(r, "package")
	filename := chi.URLParam(r, "filename")

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	rc, _, err := c.service.Download(ctx, helpers.Identity(ctx), name, filename, r.UserAgent(), ip)
	if err != nil {
		switch err {
		case svc.ErrPackageNotFound, svc.ErrFileNotFound:
			httperrors.WriteError(w, httperrors.ErrNotFound)
		default:
			log.Error("download failed", logger.Err(err), logger.Filename(filename))
			httperrors.WriteError(w, httperrors.ErrInternalServerError)
		}
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	http.ServeContent(w, r, filename, time.Time{}, rc)
}

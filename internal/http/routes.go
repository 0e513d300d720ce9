package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/potatoreg/internal/auth"
	healthctl "github.com/dropDatabas3/potatoreg/internal/http/controllers/health"
	rbacctl "github.com/dropDatabas3/potatoreg/internal/http/controllers/rbac"
	registryctl "github.com/dropDatabas3/potatoreg/internal/http/controllers/registry"
	simplectl "github.com/dropDatabas3/potatoreg/internal/http/controllers/simple"
	ssoctl "github.com/dropDatabas3/potatoreg/internal/http/controllers/ssoflow"
	usersctl "github.com/dropDatabas3/potatoreg/internal/http/controllers/users"
	httperrors "github.com/dropDatabas3/potatoreg/internal/http/errors"
)

// RouterDeps agrupa los controllers ya construidos y el resolver de identidad.
type RouterDeps struct {
	Resolver *auth.Resolver

	Health   *healthctl.Controller
	Token    *usersctl.TokenController
	Users    *usersctl.UsersController
	Simple   *simplectl.Controller
	Upload   *registryctl.UploadController
	Packages *registryctl.PackagesController
	RBAC     *rbacctl.Controller
	SSO      *ssoctl.Controller

	Metrics http.Handler
}

// NewRouter arma el router completo con las políticas de auth por grupo:
//   - /simple y /upload: Basic-o-Bearer (compatibilidad pip/twine)
//   - /api/packages lectura: Bearer
//   - administración (/api/users, /api/rbac, deletes): Bearer + superuser
func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
	})

	bearer := func(h http.HandlerFunc) http.Handler { return WithBearer(h, d.Resolver) }
	admin := func(h http.HandlerFunc) http.Handler { return WithSuperuser(h, d.Resolver) }
	hybrid := func(h http.HandlerFunc) http.Handler { return WithBasicOrBearer(h, d.Resolver) }
	noStore := func(h http.HandlerFunc) http.Handler { return WithNoStore(h) }

	// Infra
	r.Get("/health", d.Health.Health)
	r.Get("/readyz", d.Health.Ready)
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	// Sesiones
	r.Method(http.MethodPost, "/api/users/token", noStore(d.Token.Issue))
	r.Method(http.MethodGet, "/sso/login", noStore(d.SSO.Login))
	r.Method(http.MethodGet, "/sso/callback", noStore(d.SSO.Callback))

	// Cuentas
	r.Route("/api/users", func(r chi.Router) {
		r.Method(http.MethodGet, "/me", bearer(d.Users.Me))
		r.Method(http.MethodGet, "/", admin(d.Users.List))
		r.Method(http.MethodPost, "/", admin(d.Users.Create))
		r.Method(http.MethodGet, "/{id}", admin(d.Users.Get))
		r.Method(http.MethodPut, "/{id}", admin(d.Users.Update))
		r.Method(http.MethodDelete, "/{id}", admin(d.Users.Delete))
		// self-o-admin se valida en el service
		r.Method(http.MethodPost, "/{id}/generate-token", bearer(d.Users.GenerateToken))
	})

	// Índice simple + descargas (pip)
	r.Route("/simple", func(r chi.Router) {
		r.Method(http.MethodGet, "/", hybrid(d.Simple.Index))
		r.Method(http.MethodGet, "/{package}/", hybrid(d.Simple.Package))
		r.Method(http.MethodGet, "/{package}/{filename}", hybrid(d.Simple.Download))
	})

	// Uploads (twine)
	r.Method(http.MethodPost, "/upload/", hybrid(d.Upload.Upload))

	// Gestión de paquetes
	r.Route("/api/packages", func(r chi.Router) {
		r.Method(http.MethodGet, "/", bearer(d.Packages.List))
		r.Method(http.MethodGet, "/{name}", bearer(d.Packages.Get))
		r.Method(http.MethodDelete, "/{name}", admin(d.Packages.Delete))
		r.Method(http.MethodPut, "/{name}/yank/{version}", admin(d.Packages.Yank))
	})

	// RBAC
	r.Route("/api/rbac", func(r chi.Router) {
		r.Method(http.MethodPost, "/roles", admin(d.RBAC.CreateRole))
		r.Method(http.MethodGet, "/roles", admin(d.RBAC.ListRoles))
		r.Method(http.MethodPost, "/users/{id}/roles", admin(d.RBAC.AssignRoles))
		r.Method(http.MethodPut, "/packages/{name}/labels", admin(d.RBAC.SetLabels))
	})

	// Cadena exterior
	var h http.Handler = r
	h = WithSecurityHeaders(h)
	h = WithLogging(h)
	h = WithMetrics(h)
	h = WithRecover(h)
	h = WithRequestID(h)
	return h
}

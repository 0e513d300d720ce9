package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dropDatabas3/potatoreg/internal/auth"
	httperrors "github.com/dropDatabas3/potatoreg/internal/http/errors"
	"github.com/dropDatabas3/potatoreg/internal/http/helpers"
	"github.com/dropDatabas3/potatoreg/internal/observability/logger"
)

// Políticas de autenticación componibles. Cada una deja la cuenta resuelta
// en el contexto (helpers.Identity) o corta el request con 401/403. El hint
// de WWW-Authenticate refleja los esquemas que la política realmente intentó.

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// WithBearer exige un bearer token de sesión válido.
func WithBearer(next http.Handler, resolver *auth.Resolver) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := bearerToken(r)
		if tok == "" {
			w.Header().Set("WWW-Authenticate", `Bearer realm="potatoreg"`)
			httperrors.WriteError(w, httperrors.ErrUnauthorized)
			return
		}
		u, err := resolver.ResolveBearer(r.Context(), tok)
		if err != nil {
			if !errors.Is(err, auth.ErrNoIdentity) {
				logger.From(r.Context()).Error("bearer resolution failed", logger.Err(err))
				httperrors.WriteError(w, httperrors.ErrInternalServerError)
				return
			}
			w.Header().Set("WWW-Authenticate", `Bearer realm="potatoreg"`)
			httperrors.WriteError(w, httperrors.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, helpers.WithIdentity(r, u))
	})
}

// WithSuperuser exige bearer válido Y flag de superuser.
func WithSuperuser(next http.Handler, resolver *auth.Resolver) http.Handler {
	return WithBearer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u := helpers.Identity(r.Context())
		if u == nil || !u.Superuser {
			httperrors.WriteError(w, httperrors.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	}), resolver)
}

// WithBasicOrBearer acepta Basic o Bearer, prefiriendo Basic si viene.
// Es el esquema compatible con pip/twine: credenciales en Basic, o el
// token de sesión como bearer.
func WithBasicOrBearer(next http.Handler, resolver *auth.Resolver) http.Handler {
	const hint = `Basic realm="potatoreg", Bearer realm="potatoreg"`
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if username, pass, ok := r.BasicAuth(); ok {
			u, err := resolver.ResolveBasic(r.Context(), username, pass)
			switch {
			case err == nil:
				next.ServeHTTP(w, helpers.WithIdentity(r, u))
			case errors.Is(err, auth.ErrAccountDisabled):
				httperrors.WriteError(w, httperrors.ErrAccountDisabled)
			case errors.Is(err, auth.ErrNoIdentity):
				w.Header().Set("WWW-Authenticate", hint)
				httperrors.WriteError(w, httperrors.ErrInvalidCredentials)
			default:
				logger.From(r.Context()).Error("basic resolution failed", logger.Err(err))
				httperrors.WriteError(w, httperrors.ErrInternalServerError)
			}
			return
		}

		if tok := bearerToken(r); tok != "" {
			u, err := resolver.ResolveBearer(r.Context(), tok)
			if err == nil {
				next.ServeHTTP(w, helpers.WithIdentity(r, u))
				return
			}
			if !errors.Is(err, auth.ErrNoIdentity) {
				logger.From(r.Context()).Error("bearer resolution failed", logger.Err(err))
				httperrors.WriteError(w, httperrors.ErrInternalServerError)
				return
			}
		}

		w.Header().Set("WWW-Authenticate", hint)
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
	})
}

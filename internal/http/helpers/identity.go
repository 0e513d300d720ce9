package helpers

import (
	"context"
	"net/http"

	"github.com/dropDatabas3/potatoreg/internal/store/core"
)

type ctxKey int

const identityKey ctxKey = iota

// WithIdentity cuelga la cuenta autenticada del contexto del request.
func WithIdentity(r *http.Request, u *core.User) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), identityKey, u))
}

// Identity devuelve la cuenta autenticada, o nil si el request es anónimo.
func Identity(ctx context.Context) *core.User {
	u, _ := ctx.Value(identityKey).(*core.User)
	return u
}

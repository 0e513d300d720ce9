package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey struct{}

// ToContext cuelga un logger del contexto. El middleware de requests lo usa
// para propagar el logger ya anotado con el request_id.
func ToContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From recupera el logger del contexto, o el raíz si no hay ninguno (jobs
// fuera del ciclo HTTP, como el log asíncrono de descargas).
func From(ctx context.Context) *zap.Logger {
	if ctx == nil {
		return L()
	}
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok {
		return l
	}
	return L()
}

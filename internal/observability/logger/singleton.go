package logger

import (
	"sync"

	"go.uber.org/zap"
)

var (
	once sync.Once
	root *zap.Logger
)

// Init construye el logger raíz del registry. Idempotente: la primera
// llamada (en main, antes de armar el router) gana y el resto no hace nada.
func Init(cfg Config) {
	once.Do(func() {
		root = build(cfg)
	})
}

// L retorna el logger raíz. Fuera del ciclo de un request (bootstrap,
// shutdown, migraciones) se loguea con L(); dentro de un request se usa
// From(ctx). Si nadie llamó Init, cae a un logger dev.
func L() *zap.Logger {
	if root == nil {
		Init(Config{Env: "dev", Level: "info"})
	}
	return root
}

// Sync flushea los buffers pendientes. Va en un defer de main.
func Sync() error {
	if root != nil {
		return root.Sync()
	}
	return nil
}

// Package cache provee un KV efímero con TTL y soporte multi-backend.
//
// Soporta:
//   - Memory (in-process, para desarrollo/testing)
//   - Redis (distribuido, para producción)
//
// Lo usan los caches OIDC (discovery, JWKS) y el store de state anti-CSRF.
package cache

import (
	"fmt"
	"time"
)

// Cache define las operaciones mínimas que necesitan los componentes SSO.
type Cache interface {
	// Get obtiene un valor. ok=false si no existe o expiró.
	Get(k string) ([]byte, bool)

	// Set guarda un valor con TTL. Si ttl es 0, usa el default del backend.
	Set(k string, v []byte, ttl time.Duration)

	// Delete elimina una key (no-op si no existe).
	Delete(k string)

	// Take obtiene y elimina una key en un solo paso atómico.
	// Dos llamadas concurrentes con la misma key nunca ven ambas ok=true.
	Take(k string) ([]byte, bool)
}

// Config selecciona e inicializa un backend.
type Config struct {
	Kind   string // "memory" | "redis"
	Prefix string

	RedisAddr     string
	RedisDB       int
	RedisPassword string

	MemoryDefaultTTL time.Duration
}

// New crea un cache según la configuración.
func New(cfg Config) (Cache, error) {
	switch cfg.Kind {
	case "redis":
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("cache: redis addr required")
		}
		return NewRedis(cfg.RedisAddr, cfg.RedisDB, cfg.RedisPassword, cfg.Prefix), nil
	case "memory", "":
		ttl := cfg.MemoryDefaultTTL
		if ttl <= 0 {
			ttl = 5 * time.Minute
		}
		return NewMemory(ttl, cfg.Prefix), nil
	default:
		return nil, fmt.Errorf("cache: unknown kind %q", cfg.Kind)
	}
}

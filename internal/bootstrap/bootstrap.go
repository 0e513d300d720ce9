// Package bootstrap siembra el estado mínimo para que el registry sea
// usable en el primer arranque.
package bootstrap

import (
	"context"
	"errors"

	"github.com/dropDatabas3/potatoreg/internal/observability/logger"
	"github.com/dropDatabas3/potatoreg/internal/security/password"
	"github.com/dropDatabas3/potatoreg/internal/store/core"
)

// EnsureAdmin crea la cuenta admin inicial si no existe. Idempotente: si el
// username ya está, no toca nada (ni siquiera el password).
func EnsureAdmin(ctx context.Context, users core.UserRepository, username, plainPassword, email string) error {
	if username == "" || plainPassword == "" {
		return nil
	}
	log := logger.L().With(logger.Component("bootstrap"))

	if _, err := users.GetByUsername(ctx, username); err == nil {
		return nil
	} else if !errors.Is(err, core.ErrNotFound) {
		return err
	}

	hash, err := password.HashDefault(plainPassword)
	if err != nil {
		return err
	}
	u := &core.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Active:       true,
		Superuser:    true,
	}
	if err := users.Create(ctx, u); err != nil {
		if errors.Is(err, core.ErrConflict) {
			// carrera con otra réplica arrancando: alguien ya lo creó
			return nil
		}
		return err
	}
	log.Info("initial admin created", logger.Username(username))
	return nil
}

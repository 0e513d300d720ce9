// Package auth resuelve la identidad de un request a partir de credenciales
// Basic o de un bearer token de sesión. No sabe de HTTP: los policies que
// montan esto como middleware viven en la capa http.
package auth

import (
	"context"
	"errors"

	"github.com/dropDatabas3/potatoreg/internal/jwt"
	"github.com/dropDatabas3/potatoreg/internal/security/password"
	"github.com/dropDatabas3/potatoreg/internal/store/core"
)

var (
	// ErrNoIdentity colapsa "usuario desconocido" y "password incorrecto" en
	// una sola señal: la respuesta no debe permitir enumerar usernames.
	ErrNoIdentity = errors.New("auth: no identity")

	// ErrAccountDisabled es deliberadamente distinguible: la cuenta existe y
	// las credenciales son correctas, pero está desactivada.
	ErrAccountDisabled = errors.New("auth: account disabled")
)

type Resolver struct {
	users    core.UserRepository
	sessions *jwt.Issuer
}

func NewResolver(users core.UserRepository, sessions *jwt.Issuer) *Resolver {
	return &Resolver{users: users, sessions: sessions}
}

// ResolveBasic valida username+password. Para service accounts el "password"
// es el token opaco: el hash almacenado lo cubre igual.
func (r *Resolver) ResolveBasic(ctx context.Context, username, plainPassword string) (*core.User, error) {
	u, err := r.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, ErrNoIdentity
		}
		return nil, err
	}
	if !u.Active {
		return nil, ErrAccountDisabled
	}
	if !password.Verify(plainPassword, u.PasswordHash) {
		return nil, ErrNoIdentity
	}
	return u, nil
}

// ResolveBearer valida un token de sesión y carga la cuenta del claim sub.
// Cualquier fallo (token inválido, cuenta ausente o inactiva) es ErrNoIdentity.
func (r *Resolver) ResolveBearer(ctx context.Context, token string) (*core.User, error) {
	sub, err := r.sessions.Verify(token)
	if err != nil {
		return nil, ErrNoIdentity
	}
	u, err := r.users.GetByUsername(ctx, sub)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, ErrNoIdentity
		}
		return nil, err
	}
	if !u.Active {
		return nil, ErrNoIdentity
	}
	return u, nil
}

// Package sso materializa identidades federadas como cuentas locales.
package sso

import (
	"context"
	"errors"
	"fmt"

	"github.com/dropDatabas3/potatoreg/internal/store/core"
)

var (
	// ErrMissingClaims: el id_token no trae username o email. BadRequest.
	ErrMissingClaims = errors.New("sso: id_token missing required claims")

	// ErrIdentityCollision: la identidad federada choca con una cuenta local
	// y el linking está deshabilitado. Forbidden, nunca takeover silencioso.
	ErrIdentityCollision = errors.New("sso: identity collides with local account")
)

// Provisioner decide qué cuenta local corresponde a una identidad federada
// verificada. El orden de precedencia es fijo: primero match por username,
// después match por email, por último creación. Corre entero dentro de una
// transacción: o la cuenta queda en su estado final o no se toca nada.
type Provisioner struct {
	store     core.Store
	linkingOn bool
}

func NewProvisioner(store core.Store, allowAccountLinking bool) *Provisioner {
	return &Provisioner{store: store, linkingOn: allowAccountLinking}
}

// Provision ejecuta la máquina de estados y devuelve la cuenta resultante.
func (p *Provisioner) Provision(ctx context.Context, username, email string) (*core.User, error) {
	if username == "" || email == "" {
		return nil, ErrMissingClaims
	}

	out, err := p.provision(ctx, username, email)
	if errors.Is(err, core.ErrConflict) {
		// Dos primeros logins simultáneos de la misma identidad: los dos ven
		// NotFound adentro de su tx y el índice único frena al segundo INSERT.
		// El perdedor reintenta en una tx nueva y encuentra la cuenta que
		// comiteó el ganador.
		out, err = p.provision(ctx, username, email)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Provisioner) provision(ctx context.Context, username, email string) (*core.User, error) {
	var out *core.User
	err := p.store.WithTx(ctx, func(tx core.Store) error {
		u, err := p.provisionTx(ctx, tx, username, email)
		if err != nil {
			return err
		}
		out = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Provisioner) provisionTx(ctx context.Context, tx core.Store, username, email string) (*core.User, error) {
	users := tx.Users()

	byName, err := users.GetByUsername(ctx, username)
	switch {
	case err == nil:
		if byName.SSOManaged {
			// re-login: solo refrescar el email que reclama el provider
			byName.Email = email
			if err := users.Update(ctx, byName); err != nil {
				return nil, err
			}
			return byName, nil
		}
		if !p.linkingOn {
			return nil, fmt.Errorf("%w: username %q", ErrIdentityCollision, username)
		}
		// link implícito por username
		byName.SSOManaged = true
		byName.Email = email
		if err := users.Update(ctx, byName); err != nil {
			return nil, err
		}
		return byName, nil

	case !errors.Is(err, core.ErrNotFound):
		return nil, err
	}

	byEmail, err := users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if !p.linkingOn {
			return nil, fmt.Errorf("%w: email already registered", ErrIdentityCollision)
		}
		// Link por email: renombrar al username federado y marcar SSO-managed.
		// El password hash existente se preserva para que Basic auth (tokens
		// de CI, por ejemplo) siga funcionando después del link.
		byEmail.Username = username
		byEmail.SSOManaged = true
		if err := users.Update(ctx, byEmail); err != nil {
			return nil, err
		}
		return byEmail, nil

	case !errors.Is(err, core.ErrNotFound):
		return nil, err
	}

	u := &core.User{
		Username:   username,
		Email:      email,
		Active:     true,
		SSOManaged: true,
	}
	if err := users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

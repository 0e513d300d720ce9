package sso

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/potatoreg/internal/store/core"
	"github.com/dropDatabas3/potatoreg/internal/store/memory"
)

func seed(t *testing.T, st core.Store, u core.User) *core.User {
	t.Helper()
	require.NoError(t, st.Users().Create(context.Background(), &u))
	return &u
}

func TestProvision_CreatesFreshAccount(t *testing.T) {
	st := memory.New()
	p := NewProvisioner(st, false)

	u, err := p.Provision(context.Background(), "ana", "ana@corp.example")
	require.NoError(t, err)
	require.True(t, u.SSOManaged)
	require.True(t, u.Active)
	require.Equal(t, "ana", u.Username)
	require.Equal(t, "ana@corp.example", u.Email)
	require.NotEmpty(t, u.ID)
}

func TestProvision_ReloginRefreshesEmail(t *testing.T) {
	st := memory.New()
	p := NewProvisioner(st, false)
	seed(t, st, core.User{Username: "ana", Email: "old@corp.example", Active: true, SSOManaged: true})

	u, err := p.Provision(context.Background(), "ana", "new@corp.example")
	require.NoError(t, err)
	require.Equal(t, "new@corp.example", u.Email)
	require.True(t, u.SSOManaged)
}

func TestProvision_UsernameCollision_LinkingOff(t *testing.T) {
	st := memory.New()
	p := NewProvisioner(st, false)
	seed(t, st, core.User{Username: "ana", Active: true})

	_, err := p.Provision(context.Background(), "ana", "ana@corp.example")
	require.ErrorIs(t, err, ErrIdentityCollision)

	// la cuenta local no se tocó
	got, err := st.Users().GetByUsername(context.Background(), "ana")
	require.NoError(t, err)
	require.False(t, got.SSOManaged)
}

func TestProvision_UsernameLink_LinkingOn(t *testing.T) {
	st := memory.New()
	p := NewProvisioner(st, true)
	seed(t, st, core.User{Username: "ana", Email: "x@y", Active: true})

	u, err := p.Provision(context.Background(), "ana", "ana@corp.example")
	require.NoError(t, err)
	require.True(t, u.SSOManaged)
	require.Equal(t, "ana@corp.example", u.Email)
}

func TestProvision_EmailCollision_LinkingOff(t *testing.T) {
	st := memory.New()
	p := NewProvisioner(st, false)
	seed(t, st, core.User{Username: "local-ana", Email: "ana@corp.example", Active: true})

	_, err := p.Provision(context.Background(), "ana", "ana@corp.example")
	require.ErrorIs(t, err, ErrIdentityCollision)
}

func TestProvision_EmailLink_PreservesPasswordHash(t *testing.T) {
	st := memory.New()
	p := NewProvisioner(st, true)
	seed(t, st, core.User{
		Username: "local-ana", Email: "ana@corp.example",
		PasswordHash: "$argon2id$keep-me", Active: true,
	})

	u, err := p.Provision(context.Background(), "ana", "ana@corp.example")
	require.NoError(t, err)
	require.Equal(t, "ana", u.Username, "account renamed to the federated username")
	require.True(t, u.SSOManaged)
	require.Equal(t, "$argon2id$keep-me", u.PasswordHash, "existing credentials must survive the link")
}

func TestProvision_MissingClaims(t *testing.T) {
	st := memory.New()
	p := NewProvisioner(st, true)

	_, err := p.Provision(context.Background(), "", "ana@corp.example")
	require.ErrorIs(t, err, ErrMissingClaims)
	_, err = p.Provision(context.Background(), "ana", "")
	require.ErrorIs(t, err, ErrMissingClaims)
}

func TestProvision_Idempotent(t *testing.T) {
	st := memory.New()
	p := NewProvisioner(st, false)

	first, err := p.Provision(context.Background(), "ana", "ana@corp.example")
	require.NoError(t, err)
	second, err := p.Provision(context.Background(), "ana", "ana@corp.example")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID, "re-login must resolve to the same account")

	all, err := st.Users().List(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
}

// raceStore simula perder la carrera de un primer login: el primer Create
// choca con el índice único porque "otro nodo" ya comiteó la misma cuenta.
type raceStore struct {
	core.Store
	users *raceUsers
}

func (s *raceStore) Users() core.UserRepository { return s.users }

func (s *raceStore) WithTx(ctx context.Context, fn func(core.Store) error) error {
	return fn(s)
}

type raceUsers struct {
	core.UserRepository
	winner *core.User
}

func (u *raceUsers) Create(ctx context.Context, usr *core.User) error {
	if u.winner == nil {
		w := *usr
		if err := u.UserRepository.Create(ctx, &w); err != nil {
			return err
		}
		u.winner = &w
		return core.ErrConflict
	}
	return u.UserRepository.Create(ctx, usr)
}

func TestProvision_FirstLoginRaceLoserRetries(t *testing.T) {
	mem := memory.New()
	st := &raceStore{Store: mem, users: &raceUsers{UserRepository: mem.Users()}}
	p := NewProvisioner(st, false)

	u, err := p.Provision(context.Background(), "ana", "ana@corp.example")
	require.NoError(t, err)
	require.Equal(t, st.users.winner.ID, u.ID, "the loser must resolve to the winner's account")

	all, err := mem.Users().List(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestProvision_UsernameWinsOverEmail(t *testing.T) {
	// precedencia: si hay match por username Y por email en cuentas distintas,
	// gana el username
	st := memory.New()
	p := NewProvisioner(st, true)
	byName := seed(t, st, core.User{Username: "ana", Email: "other@x", Active: true, SSOManaged: true})
	seed(t, st, core.User{Username: "someone", Email: "ana@corp.example", Active: true})

	u, err := p.Provision(context.Background(), "ana", "ana@corp.example")
	require.NoError(t, err)
	require.Equal(t, byName.ID, u.ID)
}

package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/dropDatabas3/potatoreg/internal/store/core"
)

func TestUsers_CRUD(t *testing.T) {
	ctx := context.Background()
	st := New()
	users := st.Users()

	u := &core.User{Username: "ana", Email: "ana@x", Active: true}
	if err := users.Create(ctx, u); err != nil {
		t.Fatalf("Create err: %v", err)
	}
	if u.ID == "" {
		t.Fatal("Create must assign an ID")
	}

	if err := users.Create(ctx, &core.User{Username: "ana"}); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("duplicate username: err = %v, want ErrConflict", err)
	}

	got, err := users.GetByUsername(ctx, "ana")
	if err != nil || got.ID != u.ID {
		t.Fatalf("GetByUsername = %v, %v", got, err)
	}
	if _, err := users.GetByID(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("GetByID(missing) = %v, want ErrNotFound", err)
	}

	got.Email = "new@x"
	if err := users.Update(ctx, got); err != nil {
		t.Fatalf("Update err: %v", err)
	}
	again, _ := users.GetByID(ctx, u.ID)
	if again.Email != "new@x" {
		t.Fatalf("update lost: %+v", again)
	}

	if err := users.Delete(ctx, u.ID); err != nil {
		t.Fatalf("Delete err: %v", err)
	}
	if _, err := users.GetByID(ctx, u.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatal("user still present after Delete")
	}
}

func TestUsers_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	st := New()
	users := st.Users()
	u := &core.User{Username: "ana", Active: true}
	_ = users.Create(ctx, u)

	got, _ := users.GetByUsername(ctx, "ana")
	got.Username = "mutated"

	fresh, _ := users.GetByID(ctx, u.ID)
	if fresh.Username != "ana" {
		t.Fatal("store state mutated through a returned copy")
	}
}

func TestRolesOfAndSetRoles(t *testing.T) {
	ctx := context.Background()
	st := New()
	u := &core.User{Username: "ana", Active: true}
	_ = st.Users().Create(ctx, u)

	r1 := &core.Role{Name: "a", AllowedLabels: []string{"x"}}
	r2 := &core.Role{Name: "b", AllowedLabels: []string{"y"}}
	_ = st.Roles().Create(ctx, r1)
	_ = st.Roles().Create(ctx, r2)

	if err := st.Users().SetRoles(ctx, u.ID, []string{r1.ID, r2.ID}); err != nil {
		t.Fatalf("SetRoles err: %v", err)
	}
	roles, err := st.Users().RolesOf(ctx, u.ID)
	if err != nil || len(roles) != 2 {
		t.Fatalf("RolesOf = %v, %v", roles, err)
	}

	// reemplazo completo
	_ = st.Users().SetRoles(ctx, u.ID, []string{r2.ID})
	roles, _ = st.Users().RolesOf(ctx, u.ID)
	if len(roles) != 1 || roles[0].Name != "b" {
		t.Fatalf("RolesOf after replace = %v", roles)
	}
}

func TestPackages_VersionAndFileLifecycle(t *testing.T) {
	ctx := context.Background()
	st := New()
	pkgs := st.Packages()

	p, created, err := pkgs.GetOrCreate(ctx, "demo")
	if err != nil || !created {
		t.Fatalf("GetOrCreate = %v, created=%v", err, created)
	}
	_, created, _ = pkgs.GetOrCreate(ctx, "demo")
	if created {
		t.Fatal("second GetOrCreate must not create")
	}

	v, created, err := pkgs.GetOrCreateVersion(ctx, p.ID, "1.0.0", nil)
	if err != nil || !created {
		t.Fatalf("GetOrCreateVersion = %v, created=%v", err, created)
	}

	if _, err := pkgs.AddFile(ctx, v.ID, "demo-1.0.0.whl"); err != nil {
		t.Fatalf("AddFile err: %v", err)
	}
	// filename globalmente único
	if _, err := pkgs.AddFile(ctx, v.ID, "demo-1.0.0.whl"); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("duplicate file: err = %v, want ErrConflict", err)
	}

	f, ver, pk, err := pkgs.GetFile(ctx, "demo-1.0.0.whl")
	if err != nil {
		t.Fatalf("GetFile err: %v", err)
	}
	if ver.ID != v.ID || pk.ID != p.ID || f.Filename != "demo-1.0.0.whl" {
		t.Fatalf("GetFile chain mismatch: %+v %+v %+v", f, ver, pk)
	}

	// yank saca los archivos del listado por paquete
	if err := pkgs.YankVersion(ctx, p.ID, "1.0.0", "oops"); err != nil {
		t.Fatalf("YankVersion err: %v", err)
	}
	files, _ := pkgs.ListFilesByPackage(ctx, p.ID)
	if len(files) != 0 {
		t.Fatalf("yanked files still listed: %v", files)
	}
	// pero siguen listados por versión (vista de gestión)
	files, _ = pkgs.ListFilesByVersion(ctx, v.ID)
	if len(files) != 1 {
		t.Fatalf("ListFilesByVersion = %v", files)
	}
}

func TestPackages_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	st := New()
	pkgs := st.Packages()

	p, _, _ := pkgs.GetOrCreate(ctx, "demo")
	v, _, _ := pkgs.GetOrCreateVersion(ctx, p.ID, "1.0.0", nil)
	_, _ = pkgs.AddFile(ctx, v.ID, "demo-1.0.0.whl")

	if err := pkgs.Delete(ctx, "demo"); err != nil {
		t.Fatalf("Delete err: %v", err)
	}
	if _, _, _, err := pkgs.GetFile(ctx, "demo-1.0.0.whl"); !errors.Is(err, core.ErrNotFound) {
		t.Fatal("file survived package delete")
	}
	if _, err := pkgs.GetByName(ctx, "demo"); !errors.Is(err, core.ErrNotFound) {
		t.Fatal("package survived delete")
	}
}

func TestDownloadCounts(t *testing.T) {
	ctx := context.Background()
	st := New()
	pkgs := st.Packages()

	p, _, _ := pkgs.GetOrCreate(ctx, "demo")
	v, _, _ := pkgs.GetOrCreateVersion(ctx, p.ID, "1.0.0", nil)
	f, _ := pkgs.AddFile(ctx, v.ID, "demo-1.0.0.whl")

	for i := 0; i < 3; i++ {
		if err := pkgs.LogDownload(ctx, f.ID, "pip/24.0", "10.0.0.1"); err != nil {
			t.Fatalf("LogDownload err: %v", err)
		}
	}
	counts, err := pkgs.DownloadCounts(ctx, p.ID)
	if err != nil {
		t.Fatalf("DownloadCounts err: %v", err)
	}
	if counts[v.ID] != 3 {
		t.Fatalf("counts = %v, want 3 for version", counts)
	}
}

func TestWithTx_SeesAndPersistsChanges(t *testing.T) {
	ctx := context.Background()
	st := New()

	err := st.WithTx(ctx, func(tx core.Store) error {
		if err := tx.Users().Create(ctx, &core.User{Username: "ana", Active: true}); err != nil {
			return err
		}
		// lectura dentro de la misma tx ve el write
		u, err := tx.Users().GetByUsername(ctx, "ana")
		if err != nil {
			return err
		}
		u.Email = "ana@x"
		return tx.Users().Update(ctx, u)
	})
	if err != nil {
		t.Fatalf("WithTx err: %v", err)
	}

	u, err := st.Users().GetByUsername(ctx, "ana")
	if err != nil || u.Email != "ana@x" {
		t.Fatalf("tx changes lost: %v, %v", u, err)
	}
}

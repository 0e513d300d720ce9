// Package memory implementa core.Store sobre maps en memoria.
// Pensado para tests y para correr sin base de datos en desarrollo.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/potatoreg/internal/store/core"
)

type Store struct {
	mu sync.Mutex

	users     map[string]*core.User // id -> user
	roles     map[string]*core.Role
	userRoles map[string][]string // userID -> roleIDs

	packages map[string]*core.Package        // id -> pkg
	versions map[string]*core.PackageVersion // id -> version
	files    map[string]*core.PackageFile    // id -> file
	logs     []core.DownloadLog

	// inTx evita re-lockear cuando los repos se usan dentro de WithTx.
	inTx bool
}

func New() *Store {
	return &Store{
		users:     map[string]*core.User{},
		roles:     map[string]*core.Role{},
		userRoles: map[string][]string{},
		packages:  map[string]*core.Package{},
		versions:  map[string]*core.PackageVersion{},
		files:     map[string]*core.PackageFile{},
	}
}

func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) Users() core.UserRepository       { return &usersRepo{s} }
func (s *Store) Roles() core.RoleRepository       { return &rolesRepo{s} }
func (s *Store) Packages() core.PackageRepository { return &packagesRepo{s} }

// WithTx serializa con el mutex global: suficiente como frontera
// read-modify-write para un store en memoria. Sin rollback real.
func (s *Store) WithTx(ctx context.Context, fn func(core.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	txView := &Store{
		users: s.users, roles: s.roles, userRoles: s.userRoles,
		packages: s.packages, versions: s.versions, files: s.files,
		inTx: true,
	}
	txView.logs = s.logs
	err := fn(txView)
	s.logs = txView.logs
	return err
}

func (s *Store) Ping(ctx context.Context) error { return nil }
func (s *Store) Close()                         {}

// ---------------------------------------------------------------------------
// users

type usersRepo struct{ s *Store }

func (r *usersRepo) Create(ctx context.Context, u *core.User) error {
	defer r.s.lock()()
	for _, ex := range r.s.users {
		if ex.Username == u.Username {
			return core.ErrConflict
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt, u.ModifiedAt = now, now
	cp := *u
	r.s.users[u.ID] = &cp
	return nil
}

func (r *usersRepo) GetByID(ctx context.Context, id string) (*core.User, error) {
	defer r.s.lock()()
	if u, ok := r.s.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, core.ErrNotFound
}

func (r *usersRepo) GetByUsername(ctx context.Context, username string) (*core.User, error) {
	defer r.s.lock()()
	for _, u := range r.s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (r *usersRepo) GetByEmail(ctx context.Context, email string) (*core.User, error) {
	defer r.s.lock()()
	if email == "" {
		return nil, core.ErrNotFound
	}
	for _, u := range r.s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (r *usersRepo) List(ctx context.Context) ([]core.User, error) {
	defer r.s.lock()()
	out := make([]core.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (r *usersRepo) Update(ctx context.Context, u *core.User) error {
	defer r.s.lock()()
	if _, ok := r.s.users[u.ID]; !ok {
		return core.ErrNotFound
	}
	for _, ex := range r.s.users {
		if ex.ID != u.ID && ex.Username == u.Username {
			return core.ErrConflict
		}
	}
	u.ModifiedAt = time.Now().UTC()
	cp := *u
	r.s.users[u.ID] = &cp
	return nil
}

func (r *usersRepo) Delete(ctx context.Context, id string) error {
	defer r.s.lock()()
	if _, ok := r.s.users[id]; !ok {
		return core.ErrNotFound
	}
	delete(r.s.users, id)
	delete(r.s.userRoles, id)
	return nil
}

func (r *usersRepo) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	defer r.s.lock()()
	if u, ok := r.s.users[id]; ok {
		t := at
		u.LastLoginAt = &t
	}
	return nil
}

func (r *usersRepo) RolesOf(ctx context.Context, userID string) ([]core.Role, error) {
	defer r.s.lock()()
	var out []core.Role
	for _, rid := range r.s.userRoles[userID] {
		if role, ok := r.s.roles[rid]; ok {
			out = append(out, *role)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *usersRepo) SetRoles(ctx context.Context, userID string, roleIDs []string) error {
	defer r.s.lock()()
	r.s.userRoles[userID] = append([]string(nil), roleIDs...)
	return nil
}

// ---------------------------------------------------------------------------
// roles

type rolesRepo struct{ s *Store }

func (r *rolesRepo) Create(ctx context.Context, role *core.Role) error {
	defer r.s.lock()()
	for _, ex := range r.s.roles {
		if ex.Name == role.Name {
			return core.ErrConflict
		}
	}
	if role.ID == "" {
		role.ID = uuid.NewString()
	}
	if role.AllowedLabels == nil {
		role.AllowedLabels = []string{}
	}
	cp := *role
	r.s.roles[role.ID] = &cp
	return nil
}

func (r *rolesRepo) List(ctx context.Context) ([]core.Role, error) {
	defer r.s.lock()()
	out := make([]core.Role, 0, len(r.s.roles))
	for _, role := range r.s.roles {
		out = append(out, *role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *rolesRepo) GetByIDs(ctx context.Context, ids []string) ([]core.Role, error) {
	defer r.s.lock()()
	var out []core.Role
	for _, id := range ids {
		if role, ok := r.s.roles[id]; ok {
			out = append(out, *role)
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// packages

type packagesRepo struct{ s *Store }

func (r *packagesRepo) GetOrCreate(ctx context.Context, name string) (*core.Package, bool, error) {
	defer r.s.lock()()
	for _, p := range r.s.packages {
		if p.Name == name {
			cp := *p
			return &cp, false, nil
		}
	}
	now := time.Now().UTC()
	p := &core.Package{ID: uuid.NewString(), Name: name, Labels: []string{}, CreatedAt: now, UpdatedAt: now}
	r.s.packages[p.ID] = p
	cp := *p
	return &cp, true, nil
}

func (r *packagesRepo) GetByName(ctx context.Context, name string) (*core.Package, error) {
	defer r.s.lock()()
	for _, p := range r.s.packages {
		if p.Name == name {
			cp := *p
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (r *packagesRepo) List(ctx context.Context) ([]core.Package, error) {
	defer r.s.lock()()
	out := make([]core.Package, 0, len(r.s.packages))
	for _, p := range r.s.packages {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *packagesRepo) Delete(ctx context.Context, name string) error {
	defer r.s.lock()()
	var pkg *core.Package
	for _, p := range r.s.packages {
		if p.Name == name {
			pkg = p
			break
		}
	}
	if pkg == nil {
		return core.ErrNotFound
	}
	delete(r.s.packages, pkg.ID)
	for vid, v := range r.s.versions {
		if v.PackageID == pkg.ID {
			delete(r.s.versions, vid)
			for fid, f := range r.s.files {
				if f.VersionID == vid {
					delete(r.s.files, fid)
				}
			}
		}
	}
	return nil
}

func (r *packagesRepo) SetLabels(ctx context.Context, name string, labels []string) error {
	defer r.s.lock()()
	for _, p := range r.s.packages {
		if p.Name == name {
			if labels == nil {
				labels = []string{}
			}
			p.Labels = append([]string(nil), labels...)
			p.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return core.ErrNotFound
}

func (r *packagesRepo) GetOrCreateVersion(ctx context.Context, packageID, version string, uploaderID *string) (*core.PackageVersion, bool, error) {
	defer r.s.lock()()
	for _, v := range r.s.versions {
		if v.PackageID == packageID && v.Version == version {
			cp := *v
			return &cp, false, nil
		}
	}
	v := &core.PackageVersion{
		ID:        uuid.NewString(),
		PackageID: packageID,
		Version:   version,
		CreatedAt: time.Now().UTC(),
	}
	if uploaderID != nil {
		id := *uploaderID
		v.UploaderID = &id
	}
	r.s.versions[v.ID] = v
	cp := *v
	return &cp, true, nil
}

func (r *packagesRepo) ListVersions(ctx context.Context, packageID string) ([]core.PackageVersion, error) {
	defer r.s.lock()()
	var out []core.PackageVersion
	for _, v := range r.s.versions {
		if v.PackageID == packageID {
			out = append(out, *v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *packagesRepo) YankVersion(ctx context.Context, packageID, version, reason string) error {
	defer r.s.lock()()
	for _, v := range r.s.versions {
		if v.PackageID == packageID && v.Version == version {
			v.Yanked = true
			v.YankedReason = reason
			return nil
		}
	}
	return core.ErrNotFound
}

func (r *packagesRepo) AddFile(ctx context.Context, versionID, filename string) (*core.PackageFile, error) {
	defer r.s.lock()()
	for _, f := range r.s.files {
		if f.Filename == filename {
			return nil, core.ErrConflict
		}
	}
	f := &core.PackageFile{ID: uuid.NewString(), VersionID: versionID, Filename: filename, CreatedAt: time.Now().UTC()}
	r.s.files[f.ID] = f
	cp := *f
	return &cp, nil
}

func (r *packagesRepo) FileExists(ctx context.Context, versionID, filename string) (bool, error) {
	defer r.s.lock()()
	for _, f := range r.s.files {
		if f.VersionID == versionID && f.Filename == filename {
			return true, nil
		}
	}
	return false, nil
}

func (r *packagesRepo) ListFilesByVersion(ctx context.Context, versionID string) ([]core.PackageFile, error) {
	defer r.s.lock()()
	var out []core.PackageFile
	for _, f := range r.s.files {
		if f.VersionID == versionID {
			out = append(out, *f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Filename < out[j].Filename })
	return out, nil
}

func (r *packagesRepo) ListFilesByPackage(ctx context.Context, packageID string) ([]core.PackageFile, error) {
	defer r.s.lock()()
	var out []core.PackageFile
	for _, f := range r.s.files {
		v, ok := r.s.versions[f.VersionID]
		if ok && v.PackageID == packageID && !v.Yanked {
			out = append(out, *f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Filename < out[j].Filename })
	return out, nil
}

func (r *packagesRepo) GetFile(ctx context.Context, filename string) (*core.PackageFile, *core.PackageVersion, *core.Package, error) {
	defer r.s.lock()()
	for _, f := range r.s.files {
		if f.Filename != filename {
			continue
		}
		v, ok := r.s.versions[f.VersionID]
		if !ok {
			return nil, nil, nil, core.ErrNotFound
		}
		p, ok := r.s.packages[v.PackageID]
		if !ok {
			return nil, nil, nil, core.ErrNotFound
		}
		fc, vc, pc := *f, *v, *p
		return &fc, &vc, &pc, nil
	}
	return nil, nil, nil, core.ErrNotFound
}

func (r *packagesRepo) LogDownload(ctx context.Context, fileID, userAgent, ip string) error {
	defer r.s.lock()()
	r.s.logs = append(r.s.logs, core.DownloadLog{
		ID: uuid.NewString(), FileID: fileID, Timestamp: time.Now().UTC(),
		UserAgent: userAgent, IP: ip,
	})
	return nil
}

func (r *packagesRepo) DownloadCounts(ctx context.Context, packageID string) (map[string]int64, error) {
	defer r.s.lock()()
	out := make(map[string]int64)
	for _, v := range r.s.versions {
		if v.PackageID == packageID {
			out[v.ID] = 0
		}
	}
	for _, l := range r.s.logs {
		f, ok := r.s.files[l.FileID]
		if !ok {
			continue
		}
		v, ok := r.s.versions[f.VersionID]
		if !ok || v.PackageID != packageID {
			continue
		}
		out[v.ID]++
	}
	return out, nil
}

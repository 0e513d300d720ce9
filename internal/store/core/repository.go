package core

import (
	"context"
	"time"
)

// UserRepository persiste cuentas y su asignación de roles.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	// GetByUsername es la clave de identidad del resolver. Case-sensitive.
	GetByUsername(ctx context.Context, username string) (*User, error)
	// GetByEmail es clave secundaria, solo para el linking SSO.
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]User, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id string) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error

	RolesOf(ctx context.Context, userID string) ([]Role, error)
	SetRoles(ctx context.Context, userID string, roleIDs []string) error
}

// RoleRepository persiste roles RBAC.
type RoleRepository interface {
	Create(ctx context.Context, r *Role) error
	List(ctx context.Context) ([]Role, error)
	GetByIDs(ctx context.Context, ids []string) ([]Role, error)
}

// PackageRepository persiste paquetes, versiones, archivos y logs de descarga.
type PackageRepository interface {
	GetOrCreate(ctx context.Context, name string) (*Package, bool, error)
	GetByName(ctx context.Context, name string) (*Package, error)
	List(ctx context.Context) ([]Package, error)
	Delete(ctx context.Context, name string) error
	SetLabels(ctx context.Context, name string, labels []string) error

	GetOrCreateVersion(ctx context.Context, packageID, version string, uploaderID *string) (*PackageVersion, bool, error)
	ListVersions(ctx context.Context, packageID string) ([]PackageVersion, error)
	YankVersion(ctx context.Context, packageID, version, reason string) error

	AddFile(ctx context.Context, versionID, filename string) (*PackageFile, error)
	FileExists(ctx context.Context, versionID, filename string) (bool, error)
	ListFilesByVersion(ctx context.Context, versionID string) ([]PackageFile, error)
	ListFilesByPackage(ctx context.Context, packageID string) ([]PackageFile, error)
	// GetFile resuelve filename → (file, version, package) para el download.
	GetFile(ctx context.Context, filename string) (*PackageFile, *PackageVersion, *Package, error)

	LogDownload(ctx context.Context, fileID, userAgent, ip string) error
	// DownloadCounts devuelve descargas por version_id para un paquete.
	DownloadCounts(ctx context.Context, packageID string) (map[string]int64, error)
}

// Store agrupa los repositorios y la frontera transaccional.
type Store interface {
	Users() UserRepository
	Roles() RoleRepository
	Packages() PackageRepository

	// WithTx ejecuta fn dentro de una transacción. El Store que recibe fn
	// opera sobre la tx; rollback automático si fn devuelve error.
	// El provisioning SSO depende de esto para el read-modify-write atómico.
	WithTx(ctx context.Context, fn func(Store) error) error

	Ping(ctx context.Context) error
	Close()
}

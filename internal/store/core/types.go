package core

import "time"

// User es una cuenta local del registry. PasswordHash es opcional: las
// cuentas SSO puras no tienen secreto local, y para service accounts el
// campo guarda el hash del token opaco.
type User struct {
	ID             string
	Username       string // único, case-sensitive
	Email          string
	PasswordHash   string // PHC argon2id, vacío si no hay secreto local
	Active         bool
	Superuser      bool
	ServiceAccount bool
	SSOManaged     bool
	CreatedAt      time.Time
	ModifiedAt     time.Time
	LastLoginAt    *time.Time
}

// CanHoldToken indica si la cuenta puede recibir un token opaco
// (invariante: service_account ∨ sso_managed).
func (u *User) CanHoldToken() bool {
	return u.ServiceAccount || u.SSOManaged
}

// Role agrupa labels permitidos. Un usuario ve los paquetes cuyos labels
// intersectan la unión de los allowed_labels de sus roles.
type Role struct {
	ID            string
	Name          string
	AllowedLabels []string
}

type Package struct {
	ID        string
	Name      string // único, normalizado (lowercase, guiones)
	Labels    []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type PackageVersion struct {
	ID           string
	PackageID    string
	Version      string
	UploaderID   *string
	Yanked       bool
	YankedReason string
	CreatedAt    time.Time
}

type PackageFile struct {
	ID        string
	VersionID string
	Filename  string // único global (convención del índice simple)
	CreatedAt time.Time
}

// DownloadLog es una fila de stats de descarga (alta volumetría).
type DownloadLog struct {
	ID        string
	FileID    string
	Timestamp time.Time
	UserAgent string
	IP        string
}

package pg

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/potatoreg/internal/store/core"
)

type packagesRepo struct{ q querier }

const pkgCols = `id, name, labels, created_at, updated_at`

func scanPackage(row interface{ Scan(...any) error }) (*core.Package, error) {
	var p core.Package
	if err := row.Scan(&p.ID, &p.Name, &p.Labels, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

// GetOrCreate usa upsert para ser seguro bajo uploads concurrentes del
// mismo paquete nuevo.
func (r *packagesRepo) GetOrCreate(ctx context.Context, name string) (*core.Package, bool, error) {
	if p, err := r.GetByName(ctx, name); err == nil {
		return p, false, nil
	} else if err != core.ErrNotFound {
		return nil, false, err
	}

	now := time.Now().UTC()
	row := r.q.QueryRow(ctx, `
		INSERT INTO packages (id, name, labels, created_at, updated_at)
		VALUES ($1,$2,'{}',$3,$3)
		ON CONFLICT (name) DO UPDATE SET updated_at = packages.updated_at
		RETURNING `+pkgCols,
		uuid.NewString(), name, now)
	p, err := scanPackage(row)
	if err != nil {
		return nil, false, err
	}
	return p, p.CreatedAt.Equal(now), nil
}

func (r *packagesRepo) GetByName(ctx context.Context, name string) (*core.Package, error) {
	return scanPackage(r.q.QueryRow(ctx, `SELECT `+pkgCols+` FROM packages WHERE name = $1`, name))
}

func (r *packagesRepo) List(ctx context.Context) ([]core.Package, error) {
	rows, err := r.q.Query(ctx, `SELECT `+pkgCols+` FROM packages ORDER BY name`)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []core.Package
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// Delete borra el paquete; versiones, archivos y logs caen por cascade.
func (r *packagesRepo) Delete(ctx context.Context, name string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM packages WHERE name=$1`, name)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *packagesRepo) SetLabels(ctx context.Context, name string, labels []string) error {
	if labels == nil {
		labels = []string{}
	}
	tag, err := r.q.Exec(ctx,
		`UPDATE packages SET labels=$2, updated_at=$3 WHERE name=$1`,
		name, labels, time.Now().UTC())
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

const verCols = `id, package_id, version, uploader_id, yanked, yanked_reason, created_at`

func scanVersion(row interface{ Scan(...any) error }) (*core.PackageVersion, error) {
	var v core.PackageVersion
	if err := row.Scan(&v.ID, &v.PackageID, &v.Version, &v.UploaderID, &v.Yanked, &v.YankedReason, &v.CreatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &v, nil
}

func (r *packagesRepo) GetOrCreateVersion(ctx context.Context, packageID, version string, uploaderID *string) (*core.PackageVersion, bool, error) {
	row := r.q.QueryRow(ctx,
		`SELECT `+verCols+` FROM package_versions WHERE package_id=$1 AND version=$2`,
		packageID, version)
	if v, err := scanVersion(row); err == nil {
		return v, false, nil
	} else if err != core.ErrNotFound {
		return nil, false, err
	}

	v := &core.PackageVersion{
		ID:        uuid.NewString(),
		PackageID: packageID,
		Version:   version,
		CreatedAt: time.Now().UTC(),
	}
	if uploaderID != nil {
		v.UploaderID = uploaderID
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO package_versions (id, package_id, version, uploader_id, yanked, yanked_reason, created_at)
		VALUES ($1,$2,$3,$4,false,'',$5)`,
		v.ID, v.PackageID, v.Version, v.UploaderID, v.CreatedAt)
	if err != nil {
		return nil, false, mapErr(err)
	}
	return v, true, nil
}

func (r *packagesRepo) ListVersions(ctx context.Context, packageID string) ([]core.PackageVersion, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+verCols+` FROM package_versions WHERE package_id=$1 ORDER BY created_at DESC`,
		packageID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []core.PackageVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

func (r *packagesRepo) YankVersion(ctx context.Context, packageID, version, reason string) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE package_versions SET yanked=true, yanked_reason=$3 WHERE package_id=$1 AND version=$2`,
		packageID, version, reason)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *packagesRepo) AddFile(ctx context.Context, versionID, filename string) (*core.PackageFile, error) {
	f := &core.PackageFile{
		ID:        uuid.NewString(),
		VersionID: versionID,
		Filename:  filename,
		CreatedAt: time.Now().UTC(),
	}
	_, err := r.q.Exec(ctx,
		`INSERT INTO package_files (id, version_id, filename, created_at) VALUES ($1,$2,$3,$4)`,
		f.ID, f.VersionID, f.Filename, f.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return f, nil
}

func (r *packagesRepo) FileExists(ctx context.Context, versionID, filename string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM package_files WHERE version_id=$1 AND filename=$2)`,
		versionID, filename).Scan(&exists)
	return exists, mapErr(err)
}

func (r *packagesRepo) ListFilesByVersion(ctx context.Context, versionID string) ([]core.PackageFile, error) {
	return r.listFiles(ctx,
		`SELECT id, version_id, filename, created_at FROM package_files WHERE version_id=$1 ORDER BY filename`,
		versionID)
}

func (r *packagesRepo) ListFilesByPackage(ctx context.Context, packageID string) ([]core.PackageFile, error) {
	return r.listFiles(ctx, `
		SELECT f.id, f.version_id, f.filename, f.created_at
		FROM package_files f
		JOIN package_versions v ON v.id = f.version_id
		WHERE v.package_id = $1 AND NOT v.yanked
		ORDER BY f.filename`, packageID)
}

func (r *packagesRepo) listFiles(ctx context.Context, q string, args ...any) ([]core.PackageFile, error) {
	rows, err := r.q.Query(ctx, q, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []core.PackageFile
	for rows.Next() {
		var f core.PackageFile
		if err := rows.Scan(&f.ID, &f.VersionID, &f.Filename, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *packagesRepo) GetFile(ctx context.Context, filename string) (*core.PackageFile, *core.PackageVersion, *core.Package, error) {
	row := r.q.QueryRow(ctx, `
		SELECT f.id, f.version_id, f.filename, f.created_at,
		       v.id, v.package_id, v.version, v.uploader_id, v.yanked, v.yanked_reason, v.created_at,
		       p.id, p.name, p.labels, p.created_at, p.updated_at
		FROM package_files f
		JOIN package_versions v ON v.id = f.version_id
		JOIN packages p ON p.id = v.package_id
		WHERE f.filename = $1`, filename)

	var f core.PackageFile
	var v core.PackageVersion
	var p core.Package
	err := row.Scan(&f.ID, &f.VersionID, &f.Filename, &f.CreatedAt,
		&v.ID, &v.PackageID, &v.Version, &v.UploaderID, &v.Yanked, &v.YankedReason, &v.CreatedAt,
		&p.ID, &p.Name, &p.Labels, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, nil, nil, mapErr(err)
	}
	return &f, &v, &p, nil
}

func (r *packagesRepo) LogDownload(ctx context.Context, fileID, userAgent, ip string) error {
	if len(userAgent) > 255 {
		userAgent = userAgent[:255]
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO download_logs (id, file_id, ts, user_agent, ip)
		VALUES ($1,$2,$3,$4,$5)`,
		uuid.NewString(), fileID, time.Now().UTC(), userAgent, ip)
	return mapErr(err)
}

func (r *packagesRepo) DownloadCounts(ctx context.Context, packageID string) (map[string]int64, error) {
	rows, err := r.q.Query(ctx, `
		SELECT v.id, COUNT(d.id)
		FROM package_versions v
		LEFT JOIN package_files f ON f.version_id = v.id
		LEFT JOIN download_logs d ON d.file_id = f.id
		WHERE v.package_id = $1
		GROUP BY v.id`, packageID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var id string
		var n int64
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		out[id] = n
	}
	return out, rows.Err()
}

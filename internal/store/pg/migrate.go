package pg

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"
)

// Las migraciones se embeben en el binario con formato {version}_{name}.sql
// (ej: 0001_init.sql). Solo hay dialecto postgres.

// Migration representa una migración individual.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// MigrationResult resume una corrida de migraciones.
type MigrationResult struct {
	Applied  []int
	Skipped  []int
	Duration time.Duration
}

var migrationFilePattern = regexp.MustCompile(`^(\d+)_(.+)\.sql$`)

// Migrator aplica migraciones SQL embebidas sobre el pool del Store.
type Migrator struct {
	migrationsFS fs.FS
}

// NewMigrator crea un Migrator sobre un FS embebido.
func NewMigrator(migrationsFS embed.FS) *Migrator {
	return &Migrator{migrationsFS: migrationsFS}
}

// ParseMigrations lee y ordena las migraciones disponibles.
func (m *Migrator) ParseMigrations() ([]Migration, error) {
	var migrations []Migration

	err := fs.WalkDir(m.migrationsFS, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		matches := migrationFilePattern.FindStringSubmatch(filepath.Base(path))
		if matches == nil {
			return nil
		}
		version, _ := strconv.Atoi(matches[1])
		content, err := fs.ReadFile(m.migrationsFS, path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		migrations = append(migrations, Migration{
			Version: version,
			Name:    matches[2],
			SQL:     string(content),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// Run aplica las migraciones pendientes en orden de versión.
func (m *Migrator) Run(ctx context.Context, s *Store) (*MigrationResult, error) {
	start := time.Now()
	result := &MigrationResult{}

	if err := m.ensureMigrationsTable(ctx, s.q); err != nil {
		return nil, fmt.Errorf("creating migrations table: %w", err)
	}

	applied, err := m.appliedVersions(ctx, s.q)
	if err != nil {
		return nil, fmt.Errorf("getting applied migrations: %w", err)
	}

	migrations, err := m.ParseMigrations()
	if err != nil {
		return nil, fmt.Errorf("parsing migrations: %w", err)
	}

	for _, mig := range migrations {
		if applied[mig.Version] {
			result.Skipped = append(result.Skipped, mig.Version)
			continue
		}
		if err := m.apply(ctx, s, mig); err != nil {
			return nil, fmt.Errorf("applying migration %d_%s: %w", mig.Version, mig.Name, err)
		}
		result.Applied = append(result.Applied, mig.Version)
	}

	result.Duration = time.Since(start)
	return result, nil
}

// HasPending indica si quedan migraciones sin aplicar.
func (m *Migrator) HasPending(ctx context.Context, s *Store) (bool, error) {
	var exists bool
	err := s.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = '_migrations')`,
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	if !exists {
		return true, nil
	}

	applied, err := m.appliedVersions(ctx, s.q)
	if err != nil {
		return false, err
	}
	migrations, err := m.ParseMigrations()
	if err != nil {
		return false, err
	}
	for _, mig := range migrations {
		if !applied[mig.Version] {
			return true, nil
		}
	}
	return false, nil
}

func (m *Migrator) ensureMigrationsTable(ctx context.Context, q querier) error {
	_, err := q.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS _migrations (
			version INT PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			applied_at TIMESTAMPTZ DEFAULT NOW()
		)`)
	return err
}

func (m *Migrator) appliedVersions(ctx context.Context, q querier) (map[int]bool, error) {
	rows, err := q.Query(ctx, "SELECT version FROM _migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

// apply corre la migración y su registro dentro de una misma transacción.
func (m *Migrator) apply(ctx context.Context, s *Store, mig Migration) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, mig.SQL); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if _, err := tx.Exec(ctx,
		"INSERT INTO _migrations (version, name) VALUES ($1, $2)",
		mig.Version, mig.Name,
	); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

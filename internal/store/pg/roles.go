package pg

import (
	"context"

	"github.com/google/uuid"

	"github.com/dropDatabas3/potatoreg/internal/store/core"
)

type rolesRepo struct{ q querier }

func (r *rolesRepo) Create(ctx context.Context, role *core.Role) error {
	if role.ID == "" {
		role.ID = uuid.NewString()
	}
	if role.AllowedLabels == nil {
		role.AllowedLabels = []string{}
	}
	_, err := r.q.Exec(ctx,
		`INSERT INTO roles (id, name, allowed_labels) VALUES ($1,$2,$3)`,
		role.ID, role.Name, role.AllowedLabels)
	return mapErr(err)
}

func (r *rolesRepo) List(ctx context.Context) ([]core.Role, error) {
	rows, err := r.q.Query(ctx, `SELECT id, name, allowed_labels FROM roles ORDER BY name`)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []core.Role
	for rows.Next() {
		var role core.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.AllowedLabels); err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	return out, rows.Err()
}

func (r *rolesRepo) GetByIDs(ctx context.Context, ids []string) ([]core.Role, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.q.Query(ctx,
		`SELECT id, name, allowed_labels FROM roles WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []core.Role
	for rows.Next() {
		var role core.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.AllowedLabels); err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	return out, rows.Err()
}

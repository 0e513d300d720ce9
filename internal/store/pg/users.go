package pg

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/potatoreg/internal/store/core"
)

type usersRepo struct{ q querier }

const userCols = `id, username, email, password_hash, active, superuser, service_account, sso_managed, created_at, modified_at, last_login_at`

func scanUser(row interface{ Scan(...any) error }) (*core.User, error) {
	var u core.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Active,
		&u.Superuser, &u.ServiceAccount, &u.SSOManaged,
		&u.CreatedAt, &u.ModifiedAt, &u.LastLoginAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

func (r *usersRepo) Create(ctx context.Context, u *core.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt, u.ModifiedAt = now, now
	_, err := r.q.Exec(ctx, `
		INSERT INTO users (id, username, email, password_hash, active, superuser, service_account, sso_managed, created_at, modified_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.Active,
		u.Superuser, u.ServiceAccount, u.SSOManaged, u.CreatedAt, u.ModifiedAt)
	return mapErr(err)
}

func (r *usersRepo) GetByID(ctx context.Context, id string) (*core.User, error) {
	return scanUser(r.q.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id))
}

func (r *usersRepo) GetByUsername(ctx context.Context, username string) (*core.User, error) {
	return scanUser(r.q.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE username = $1`, username))
}

func (r *usersRepo) GetByEmail(ctx context.Context, email string) (*core.User, error) {
	return scanUser(r.q.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE email = $1 LIMIT 1`, email))
}

func (r *usersRepo) List(ctx context.Context) ([]core.User, error) {
	rows, err := r.q.Query(ctx, `SELECT `+userCols+` FROM users ORDER BY username`)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []core.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func (r *usersRepo) Update(ctx context.Context, u *core.User) error {
	u.ModifiedAt = time.Now().UTC()
	tag, err := r.q.Exec(ctx, `
		UPDATE users
		SET username=$2, email=$3, password_hash=$4, active=$5, superuser=$6,
		    service_account=$7, sso_managed=$8, modified_at=$9
		WHERE id=$1`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.Active,
		u.Superuser, u.ServiceAccount, u.SSOManaged, u.ModifiedAt)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *usersRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *usersRepo) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	_, err := r.q.Exec(ctx, `UPDATE users SET last_login_at=$2 WHERE id=$1`, id, at)
	return mapErr(err)
}

func (r *usersRepo) RolesOf(ctx context.Context, userID string) ([]core.Role, error) {
	rows, err := r.q.Query(ctx, `
		SELECT r.id, r.name, r.allowed_labels
		FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1
		ORDER BY r.name`, userID)
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

// SetRoles reemplaza la asignación completa (clear + add, como el admin UI).
func (r *usersRepo) SetRoles(ctx context.Context, userID string, roleIDs []string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM user_roles WHERE user_id=$1`, userID); err != nil {
		return mapErr(err)
	}
	for _, rid := range roleIDs {
		if _, err := r.q.Exec(ctx,
			`INSERT INTO user_roles (user_id, role_id) VALUES ($1,$2) ON CONFLICT DO NOTHING`,
			userID, rid); err != nil {
			return mapErr(err)
		}
	}
	return nil
}

package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	intconfig "kocrou/internal/config"
	intdb "kocrou/internal/db"
	"kocrou/internal/domain"
	"kocrou/internal/domain/models"
)

const userColumns = `id, name, email, password_hash, is_admin, created_at, updated_at`

type UserRepository struct {
	DB *sql.DB
}

func (r UserRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

func scanUser(row rowScanner) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (r UserRepository) Insert(ctx context.Context, u *models.User) error {
	res, err := r.db().ExecContext(ctx, `
		INSERT INTO users (name, email, password_hash, is_admin) VALUES (?, ?, ?, ?)
	`, u.Name, u.Email, u.PasswordHash, u.IsAdmin)
	if err != nil {
		if intdb.IsDuplicateKey(err, "") {
			return domain.ConflictError{Resource: "utilisateur", Err: domain.ErrEmailTaken}
		}
		return fmt.Errorf("insert user: %w", err)
	}
	u.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("user id: %w", err)
	}
	return nil
}

func (r UserRepository) GetByID(ctx context.Context, id int64) (models.User, error) {
	return r.getOne(ctx, `WHERE id=?`, id)
}

func (r UserRepository) GetByEmail(ctx context.Context, email string) (models.User, error) {
	return r.getOne(ctx, `WHERE email=?`, strings.ToLower(strings.TrimSpace(email)))
}

func (r UserRepository) getOne(ctx context.Context, where string, args ...any) (models.User, error) {
	u, err := scanUser(r.db().QueryRowContext(ctx, `SELECT `+userColumns+` FROM users `+where+` LIMIT 1`, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, domain.NotFoundError{Resource: "utilisateur", Err: domain.ErrUserNotFound}
		}
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r UserRepository) List(ctx context.Context) ([]models.User, error) {
	rows, err := r.db().QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	out := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r UserRepository) SetAdmin(ctx context.Context, id int64, admin bool) error {
	res, err := r.db().ExecContext(ctx, `UPDATE users SET is_admin=? WHERE id=?`, admin, id)
	if err != nil {
		return fmt.Errorf("set admin: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// MySQL reports 0 when the value is unchanged; confirm the row exists.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (r UserRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db().ExecContext(ctx, `DELETE FROM users WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFoundError{Resource: "utilisateur", Err: domain.ErrUserNotFound}
	}
	return nil
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/garnizeh/ats/internal/models"
)

const userColumns = `id, username, email, password_hash, company_name, created`

func (r *SQLiteRepo) CreateUser(ctx context.Context, u *models.User) (int64, error) {
	if u == nil {
		return 0, fmt.Errorf("user is nil")
	}

	res, err := r.conn.Exec(ctx, `INSERT INTO users (username, email, password_hash, company_name, created) VALUES (?, ?, ?, ?, ?)`,
		u.Username, u.Email, u.PasswordHash, u.CompanyName, now())
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (r *SQLiteRepo) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
}

// GetUserByEmail matches case-insensitively.
func (r *SQLiteRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower(?) ORDER BY id LIMIT 1`, email)
}

func (r *SQLiteRepo) getUser(ctx context.Context, q string, arg any) (*models.User, error) {
	var u models.User
	if err := r.conn.QueryRow(ctx, q, arg).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CompanyName, &u.Created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

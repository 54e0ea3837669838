package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/garnizeh/ats/internal/models"
)

func (r *SQLiteRepo) LoadSession(ctx context.Context) (*models.Session, error) {
	var s models.Session
	var userJSON string
	err := r.conn.QueryRow(ctx, `SELECT token, user_json, updated FROM session WHERE id = 1`).Scan(&s.Token, &userJSON, &s.Updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	if err := json.Unmarshal([]byte(userJSON), &s.User); err != nil {
		// a corrupt user blob is treated like no session
		r.logger.Warn("session: discarding unreadable user", "err", err)
		return nil, nil
	}
	return &s, nil
}

func (r *SQLiteRepo) SaveSession(ctx context.Context, s *models.Session) error {
	if s == nil {
		return fmt.Errorf("session is nil")
	}
	b, err := json.Marshal(s.User)
	if err != nil {
		return fmt.Errorf("encode session user: %w", err)
	}

	_, err = r.conn.Exec(ctx, `INSERT INTO session (id, token, user_json, updated) VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET token = excluded.token, user_json = excluded.user_json, updated = excluded.updated`,
		s.Token, string(b), now())
	return err
}

func (r *SQLiteRepo) ClearSession(ctx context.Context) error {
	_, err := r.conn.Exec(ctx, `DELETE FROM session`)
	return err
}

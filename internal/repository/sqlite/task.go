package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/garnizeh/ats/internal/models"
)

// Enqueue inserts a task and returns the new ID
func (r *SQLiteRepo) Enqueue(ctx context.Context, t *models.Task) (int64, error) {
	if t.MaxAttempts == 0 {
		t.MaxAttempts = 5
	}
	if t.ScheduledAt.IsZero() {
		t.ScheduledAt = time.Now()
	}
	ts := now()
	q := `INSERT INTO tasks(type, payload, status, attempts, max_attempts, priority, scheduled_at, created, updated) VALUES(?,?,?,?,?,?,?,?,?)`
	res, err := r.conn.Exec(ctx, q, t.Type, string(t.Payload), "queued", t.Attempts, t.MaxAttempts, t.Priority, t.ScheduledAt.UTC().Unix(), ts, ts)
	if err != nil {
		return 0, fmt.Errorf("enqueue failed: %w", err)
	}

	return res.LastInsertId()
}

// ClaimNext marks the next due task as running and returns it, or nil when
// nothing is due. Claiming is a single statement so two workers never get
// the same task.
func (r *SQLiteRepo) ClaimNext(ctx context.Context) (*models.Task, error) {
	q := `UPDATE tasks SET status = 'running', updated = ?
		WHERE id = (SELECT id FROM tasks
			WHERE (status = 'queued' OR status = 'retry') AND (next_try_at IS NULL OR next_try_at <= ?) AND scheduled_at <= ?
			ORDER BY priority ASC, scheduled_at ASC, id ASC LIMIT 1)
		RETURNING id, type, payload, status, attempts, max_attempts, priority, scheduled_at, next_try_at, last_error, created, updated`
	nowSec := time.Now().UTC().Unix()
	row := r.conn.QueryRow(ctx, q, now(), nowSec, nowSec)

	var (
		t           models.Task
		payload     sql.NullString
		scheduledAt int64
		nextTry     sql.NullInt64
		lastError   sql.NullString
		created     int64
		updated     int64
	)
	if err := row.Scan(&t.ID, &t.Type, &payload, &t.Status, &t.Attempts, &t.MaxAttempts, &t.Priority, &scheduledAt, &nextTry, &lastError, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("claim next task: %w", err)
	}

	t.ScheduledAt = time.Unix(scheduledAt, 0)
	t.Created = fromMillis(created)
	t.Updated = fromMillis(updated)
	if payload.Valid {
		t.Payload = json.RawMessage(payload.String)
	}
	if nextTry.Valid {
		nt := time.Unix(nextTry.Int64, 0)
		t.NextTryAt = &nt
	}
	if lastError.Valid {
		t.LastError = lastError.String
	}
	return &t, nil
}

// UpdateTask updates attempts, status, next_try_at, last_error
func (r *SQLiteRepo) UpdateTask(ctx context.Context, t *models.Task) error {
	var nextTry any
	if t.NextTryAt != nil {
		nextTry = t.NextTryAt.Unix()
	}
	q := `UPDATE tasks SET status = ?, attempts = ?, next_try_at = ?, last_error = ?, updated = ? WHERE id = ?`
	_, err := r.conn.Exec(ctx, q, t.Status, t.Attempts, nextTry, t.LastError, now(), t.ID)
	return err
}

// MoveToDeadLetter moves a task to dead_letter_tasks and deletes the original
func (r *SQLiteRepo) MoveToDeadLetter(ctx context.Context, t *models.Task) error {
	return r.conn.WithTx(ctx, func(tx *sql.Tx) error {
		insert := `INSERT INTO dead_letter_tasks(task_id, type, payload, attempts, last_error, failed_at) VALUES(?,?,?,?,?,?)`
		if _, err := tx.ExecContext(ctx, insert, t.ID, t.Type, string(t.Payload), t.Attempts, t.LastError, time.Now().UTC().Unix()); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, t.ID)
		return err
	})
}

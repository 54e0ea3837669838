package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	pub "github.com/garnizeh/ats/pkg/models"
)

const jobSelect = `SELECT j.id, j.title, j.description, j.requirements, j.location, j.salary_range, j.is_active, j.created, j.updated,
	(SELECT COUNT(1) FROM applicants a WHERE a.job_id = j.id),
	(SELECT COUNT(1) FROM applicants a WHERE a.job_id = j.id AND a.status = 'new')
	FROM jobs j`

func (r *SQLiteRepo) CreateJob(ctx context.Context, in pub.JobInput) (int64, error) {
	ts := now()
	res, err := r.conn.Exec(ctx, `INSERT INTO jobs (title, description, requirements, location, salary_range, is_active, created, updated) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		in.Title, in.Description, in.Requirements, in.Location, in.SalaryRange, in.IsActive, ts, ts)
	if err != nil {
		return 0, fmt.Errorf("create job: %w", err)
	}
	return res.LastInsertId()
}

func (r *SQLiteRepo) GetJob(ctx context.Context, id int64) (*pub.Job, error) {
	row := r.conn.QueryRow(ctx, jobSelect+` WHERE j.id = ?`, id)
	j, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return j, nil
}

// ListJobs returns jobs newest first.
func (r *SQLiteRepo) ListJobs(ctx context.Context, activeOnly bool) ([]pub.Job, error) {
	q := jobSelect
	if activeOnly {
		q += ` WHERE j.is_active = 1`
	}
	q += ` ORDER BY j.created DESC, j.id DESC`

	rows, err := r.conn.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	out := []pub.Job{}
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *j)
	}
	return out, rows.Err()
}

func (r *SQLiteRepo) UpdateJob(ctx context.Context, id int64, in pub.JobInput) error {
	_, err := r.conn.Exec(ctx, `UPDATE jobs SET title = ?, description = ?, requirements = ?, location = ?, salary_range = ?, is_active = ?, updated = ? WHERE id = ?`,
		in.Title, in.Description, in.Requirements, in.Location, in.SalaryRange, in.IsActive, now(), id)
	return err
}

// DeleteJob removes the job; its applicants go with it.
func (r *SQLiteRepo) DeleteJob(ctx context.Context, id int64) error {
	return r.conn.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM applicants WHERE job_id = ?`, id); err != nil {
			return fmt.Errorf("delete job applicants: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete job: %w", err)
		}
		return nil
	})
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(s scanner) (*pub.Job, error) {
	var j pub.Job
	var created, updated int64
	if err := s.Scan(&j.ID, &j.Title, &j.Description, &j.Requirements, &j.Location, &j.SalaryRange, &j.IsActive, &created, &updated,
		&j.ApplicationCount, &j.NewApplicationsCount); err != nil {
		return nil, err
	}
	j.CreatedAt = fromMillis(created)
	j.UpdatedAt = fromMillis(updated)
	return &j, nil
}

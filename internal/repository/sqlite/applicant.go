package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/garnizeh/ats/internal/models"
	pub "github.com/garnizeh/ats/pkg/models"
)

const applicantSelect = `SELECT a.id, a.job_id, j.title, a.name, a.email, a.phone, a.resume_path, a.cover_letter, a.status, a.notes, a.keywords, a.match_score, a.created, a.updated
	FROM applicants a JOIN jobs j ON j.id = a.job_id`

var orderings = map[string]string{
	"created_at":   "a.created ASC, a.id ASC",
	"-created_at":  "a.created DESC, a.id DESC",
	"updated_at":   "a.updated ASC, a.id ASC",
	"-updated_at":  "a.updated DESC, a.id DESC",
	"match_score":  "a.match_score ASC, a.id ASC",
	"-match_score": "a.match_score DESC, a.id DESC",
	"name":         "a.name COLLATE NOCASE ASC, a.id ASC",
	"-name":        "a.name COLLATE NOCASE DESC, a.id DESC",
}

func (r *SQLiteRepo) CreateApplicant(ctx context.Context, a *models.ApplicantRecord) (int64, error) {
	if a == nil {
		return 0, fmt.Errorf("applicant is nil")
	}
	status := a.Status
	if status == "" {
		status = pub.StatusNew
	}

	ts := now()
	res, err := r.conn.Exec(ctx, `INSERT INTO applicants (job_id, name, email, phone, resume_path, cover_letter, status, notes, keywords, match_score, created, updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.Job, a.Name, a.Email, a.Phone, a.ResumePath, a.CoverLetter, string(status), a.Notes, a.Keywords, a.MatchScore, ts, ts)
	if err != nil {
		return 0, fmt.Errorf("create applicant: %w", err)
	}
	return res.LastInsertId()
}

func (r *SQLiteRepo) GetApplicant(ctx context.Context, id int64) (*models.ApplicantRecord, error) {
	a, err := scanApplicant(r.conn.QueryRow(ctx, applicantSelect+` WHERE a.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

// ListApplicants applies q; the default ordering is newest first.
func (r *SQLiteRepo) ListApplicants(ctx context.Context, q models.ApplicantQuery) ([]models.ApplicantRecord, error) {
	var where []string
	var args []any

	if q.Job != 0 {
		where = append(where, "a.job_id = ?")
		args = append(args, q.Job)
	}
	if q.Status != "" {
		where = append(where, "a.status = ?")
		args = append(args, string(q.Status))
	}
	if q.DateFrom != nil {
		where = append(where, "a.created >= ?")
		args = append(args, q.DateFrom.UTC().UnixMilli())
	}
	if q.DateTo != nil {
		where = append(where, "a.created <= ?")
		args = append(args, q.DateTo.UTC().UnixMilli())
	}
	if q.MinScore != nil {
		where = append(where, "a.match_score >= ?")
		args = append(args, *q.MinScore)
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		like := "%" + s + "%"
		where = append(where, "(a.name LIKE ? OR a.email LIKE ? OR a.cover_letter LIKE ? OR a.keywords LIKE ?)")
		args = append(args, like, like, like, like)
	}

	stmt := applicantSelect
	if len(where) > 0 {
		stmt += " WHERE " + strings.Join(where, " AND ")
	}
	order, ok := orderings[q.Ordering]
	if !ok {
		order = orderings["-created_at"]
	}
	stmt += " ORDER BY " + order

	rows, err := r.conn.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list applicants: %w", err)
	}
	defer rows.Close()

	out := []models.ApplicantRecord{}
	for rows.Next() {
		a, err := scanApplicant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (r *SQLiteRepo) ApplicationExists(ctx context.Context, email string, jobID int64) (bool, error) {
	var n int
	if err := r.conn.QueryRow(ctx, `SELECT COUNT(1) FROM applicants WHERE email = ? AND job_id = ?`, email, jobID).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// UpdateApplicantStatus sets the status and, when notes is non-nil, the notes.
func (r *SQLiteRepo) UpdateApplicantStatus(ctx context.Context, id int64, status pub.Status, notes *string) error {
	if notes != nil {
		_, err := r.conn.Exec(ctx, `UPDATE applicants SET status = ?, notes = ?, updated = ? WHERE id = ?`, string(status), *notes, now(), id)
		return err
	}
	_, err := r.conn.Exec(ctx, `UPDATE applicants SET status = ?, updated = ? WHERE id = ?`, string(status), now(), id)
	return err
}

// BulkUpdateStatus updates every existing id in one transaction and returns
// how many distinct rows changed. Unknown ids are ignored. Non-empty notes
// replace the notes of every updated row.
func (r *SQLiteRepo) BulkUpdateStatus(ctx context.Context, ids []int64, status pub.Status, notes string) (int, error) {
	ids = distinct(ids)
	if len(ids) == 0 {
		return 0, nil
	}

	var updated int
	err := r.conn.WithTx(ctx, func(tx *sql.Tx) error {
		ts := now()
		for _, id := range ids {
			res, err := tx.ExecContext(ctx, `UPDATE applicants SET status = ?, updated = ? WHERE id = ?`, string(status), ts, id)
			if err != nil {
				return fmt.Errorf("bulk update %d: %w", id, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			updated += int(n)
			if notes == "" || n == 0 {
				continue
			}
			if _, err := tx.ExecContext(ctx, `UPDATE applicants SET notes = ? WHERE id = ?`, notes, id); err != nil {
				return fmt.Errorf("bulk notes %d: %w", id, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

func distinct(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func (r *SQLiteRepo) UpdateNotes(ctx context.Context, id int64, notes string) error {
	_, err := r.conn.Exec(ctx, `UPDATE applicants SET notes = ?, updated = ? WHERE id = ?`, notes, now(), id)
	return err
}

func (r *SQLiteRepo) UpdateScore(ctx context.Context, id int64, keywords string, score int) error {
	_, err := r.conn.Exec(ctx, `UPDATE applicants SET keywords = ?, match_score = ?, updated = ? WHERE id = ?`, keywords, score, now(), id)
	return err
}

func (r *SQLiteRepo) DeleteApplicant(ctx context.Context, id int64) error {
	_, err := r.conn.Exec(ctx, `DELETE FROM applicants WHERE id = ?`, id)
	return err
}

// DashboardStats aggregates counts and lists up to recentLimit applicants
// created at or after recentSince (unix millis), newest first.
func (r *SQLiteRepo) DashboardStats(ctx context.Context, recentSince int64, recentLimit int) (pub.DashboardStats, error) {
	var s pub.DashboardStats
	if err := r.conn.QueryRow(ctx, `SELECT COUNT(1) FROM applicants`).Scan(&s.TotalApplicants); err != nil {
		return s, err
	}
	if err := r.conn.QueryRow(ctx, `SELECT COUNT(1) FROM jobs`).Scan(&s.TotalJobs); err != nil {
		return s, err
	}

	rows, err := r.conn.Query(ctx, `SELECT status, COUNT(1) FROM applicants GROUP BY status`)
	if err != nil {
		return s, err
	}
	counts := map[pub.Status]int{}
	for rows.Next() {
		var st string
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			rows.Close()
			return s, err
		}
		counts[pub.Status(st)] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return s, err
	}
	s.NewApplicants = counts[pub.StatusNew]
	s.ReviewedApplicants = counts[pub.StatusReviewed]
	s.ShortlistedApplicants = counts[pub.StatusShortlisted]
	s.RejectedApplicants = counts[pub.StatusRejected]
	s.HiredApplicants = counts[pub.StatusHired]

	recent, err := r.conn.Query(ctx, applicantSelect+` WHERE a.created >= ? ORDER BY a.created DESC, a.id DESC LIMIT ?`, recentSince, recentLimit)
	if err != nil {
		return s, err
	}
	defer recent.Close()
	s.RecentApplicants = []pub.Applicant{}
	for recent.Next() {
		a, err := scanApplicant(recent)
		if err != nil {
			return s, err
		}
		s.RecentApplicants = append(s.RecentApplicants, a.Applicant)
	}
	return s, recent.Err()
}

func scanApplicant(s scanner) (*models.ApplicantRecord, error) {
	var a models.ApplicantRecord
	var status string
	var created, updated int64
	if err := s.Scan(&a.ID, &a.Job, &a.JobTitle, &a.Name, &a.Email, &a.Phone, &a.ResumePath, &a.CoverLetter, &status, &a.Notes, &a.Keywords, &a.MatchScore, &created, &updated); err != nil {
		return nil, err
	}
	a.Status = pub.Status(status)
	a.CreatedAt = fromMillis(created)
	a.UpdatedAt = fromMillis(updated)
	if a.ResumePath != "" {
		a.Resume = a.ResumePath
		a.ResumeFilename = path.Base(a.ResumePath)
	}
	return &a, nil
}

package models

import (
	"encoding/json"
	"time"

	pub "github.com/garnizeh/ats/pkg/models"
)

// Storage-side records. Wire types live in pkg/models.

type User struct {
	ID           int64  `json:"id" db:"id"`
	Username     string `json:"username" db:"username"`
	Email        string `json:"email" db:"email"`
	PasswordHash string `json:"-" db:"password_hash"`
	CompanyName  string `json:"company_name" db:"company_name"`
	Created      int64  `json:"created" db:"created"`
}

func (u User) Public() pub.User {
	return pub.User{ID: u.ID, Username: u.Username, Email: u.Email}
}

// Session is the persisted client login.
type Session struct {
	Token   string   `json:"token"`
	User    pub.User `json:"user"`
	Updated int64    `json:"updated"`
}

// ApplicantRecord is an applicant row; ResumePath is relative to the
// sandbox resume directory.
type ApplicantRecord struct {
	pub.Applicant
	ResumePath string `db:"resume_path"`
}

// ApplicantQuery narrows a listing. Zero fields do not filter.
type ApplicantQuery struct {
	Job      int64
	Status   pub.Status
	Search   string
	DateFrom *time.Time
	DateTo   *time.Time
	MinScore *int
	Ordering string
}

// Task is a unit of background work handled by the worker pool.
type Task struct {
	ID          int64           `json:"id"`
	Type        string          `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	Status      string          `json:"status"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"max_attempts"`
	Priority    int             `json:"priority"`
	ScheduledAt time.Time       `json:"scheduled_at"`
	NextTryAt   *time.Time      `json:"next_try_at,omitempty"`
	LastError   string          `json:"last_error,omitempty"`
	Created     time.Time       `json:"created"`
	Updated     time.Time       `json:"updated"`
}

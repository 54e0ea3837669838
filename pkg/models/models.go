package models

import (
	"fmt"
	"strings"
	"time"
)

// Wire models exchanged with the ATS REST API. JSON names follow the
// collaborator's field names.

// Status is the pipeline position of an applicant.
type Status string

const (
	StatusNew         Status = "new"
	StatusReviewed    Status = "reviewed"
	StatusShortlisted Status = "shortlisted"
	StatusRejected    Status = "rejected"
	StatusHired       Status = "hired"
)

var statuses = []Status{StatusNew, StatusReviewed, StatusShortlisted, StatusRejected, StatusHired}

// AllStatuses returns the fixed status enumeration in pipeline order.
func AllStatuses() []Status {
	out := make([]Status, len(statuses))
	copy(out, statuses)
	return out
}

func (s Status) Valid() bool {
	for _, v := range statuses {
		if s == v {
			return true
		}
	}
	return false
}

// Label is the display name, e.g. "Shortlisted".
func (s Status) Label() string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

// ParseStatus accepts any casing and surrounding blanks.
func ParseStatus(v string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(v)))
	if !s.Valid() {
		return "", fmt.Errorf("invalid status %q", v)
	}
	return s, nil
}

type Applicant struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone"`
	Resume         string    `json:"resume"`
	ResumeURL      string    `json:"resume_url"`
	ResumeFilename string    `json:"resume_filename"`
	CoverLetter    string    `json:"cover_letter"`
	Job            int64     `json:"job"`
	JobTitle       string    `json:"job_title"`
	Status         Status    `json:"status"`
	Notes          string    `json:"notes"`
	Keywords       string    `json:"keywords"`
	MatchScore     int       `json:"match_score"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// KeywordList splits the display keyword string. It is not structured data.
func (a Applicant) KeywordList() []string {
	var out []string
	for _, k := range strings.Split(a.Keywords, ",") {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

type Job struct {
	ID                   int64     `json:"id"`
	Title                string    `json:"title"`
	Description          string    `json:"description"`
	Requirements         string    `json:"requirements"`
	Location             string    `json:"location"`
	SalaryRange          string    `json:"salary_range"`
	IsActive             bool      `json:"is_active"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
	ApplicationCount     int       `json:"application_count,omitempty"`
	NewApplicationsCount int       `json:"new_applications_count,omitempty"`
}

// JobInput is the writable part of a Job, sent on create and update.
type JobInput struct {
	Title        string `json:"title" validate:"required"`
	Description  string `json:"description" validate:"required"`
	Requirements string `json:"requirements"`
	Location     string `json:"location" validate:"required"`
	SalaryRange  string `json:"salary_range"`
	IsActive     bool   `json:"is_active"`
}

// Input returns the writable fields of j.
func (j Job) Input() JobInput {
	return JobInput{
		Title:        j.Title,
		Description:  j.Description,
		Requirements: j.Requirements,
		Location:     j.Location,
		SalaryRange:  j.SalaryRange,
		IsActive:     j.IsActive,
	}
}

// DashboardStats is a server-computed snapshot; clients never derive it.
type DashboardStats struct {
	TotalApplicants       int         `json:"total_applicants"`
	TotalJobs             int         `json:"total_jobs"`
	NewApplicants         int         `json:"new_applicants"`
	ReviewedApplicants    int         `json:"reviewed_applicants"`
	ShortlistedApplicants int         `json:"shortlisted_applicants"`
	RejectedApplicants    int         `json:"rejected_applicants"`
	HiredApplicants       int         `json:"hired_applicants"`
	RecentApplicants      []Applicant `json:"recent_applicants"`
}

// Count returns the per-status count carried in the snapshot.
func (d DashboardStats) Count(s Status) int {
	switch s {
	case StatusNew:
		return d.NewApplicants
	case StatusReviewed:
		return d.ReviewedApplicants
	case StatusShortlisted:
		return d.ShortlistedApplicants
	case StatusRejected:
		return d.RejectedApplicants
	case StatusHired:
		return d.HiredApplicants
	}
	return 0
}

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResult is returned by login and register.
type AuthResult struct {
	Token    string `json:"token"`
	UserID   int64  `json:"user_id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

func (r AuthResult) User() User {
	return User{ID: r.UserID, Username: r.Username, Email: r.Email}
}

type StatusUpdate struct {
	Status Status `json:"status"`
	Notes  string `json:"notes,omitempty"`
}

type BulkStatusUpdate struct {
	ApplicantIDs []int64 `json:"applicant_ids"`
	Status       Status  `json:"status"`
	Notes        string  `json:"notes,omitempty"`
}

type BulkResult struct {
	Message      string `json:"message"`
	UpdatedCount int    `json:"updated_count"`
}

// File is an in-memory upload such as a resume.
type File struct {
	Name string
	Data []byte
}

func (f *File) Size() int64 {
	if f == nil {
		return 0
	}
	return int64(len(f.Data))
}

// ApplicationForm is submitted by candidates on the public surface and by
// recruiters through the upload flow.
type ApplicationForm struct {
	Name        string
	Email       string
	Phone       string
	Job         int64
	JobTitle    string
	CoverLetter string
	Resume      *File
	ParseResume bool
}

// SubmissionResult is the public application acknowledgement.
type SubmissionResult struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	ApplicationID int64  `json:"application_id"`
}

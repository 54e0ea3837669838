package repository

import (
	"context"

	"github.com/garnizeh/ats/internal/models"
	pub "github.com/garnizeh/ats/pkg/models"
)

// Repository interfaces for the client session store and the sandbox
// collaborator. Getters return (nil, nil) when nothing matches; concrete
// implementations live under internal/.

type SessionRepo interface {
	LoadSession(ctx context.Context) (*models.Session, error)
	SaveSession(ctx context.Context, s *models.Session) error
	ClearSession(ctx context.Context) error
}

type UserRepo interface {
	CreateUser(ctx context.Context, u *models.User) (int64, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

type JobRepo interface {
	CreateJob(ctx context.Context, in pub.JobInput) (int64, error)
	GetJob(ctx context.Context, id int64) (*pub.Job, error)
	ListJobs(ctx context.Context, activeOnly bool) ([]pub.Job, error)
	UpdateJob(ctx context.Context, id int64, in pub.JobInput) error
	DeleteJob(ctx context.Context, id int64) error
}

type ApplicantRepo interface {
	CreateApplicant(ctx context.Context, a *models.ApplicantRecord) (int64, error)
	GetApplicant(ctx context.Context, id int64) (*models.ApplicantRecord, error)
	ListApplicants(ctx context.Context, q models.ApplicantQuery) ([]models.ApplicantRecord, error)
	ApplicationExists(ctx context.Context, email string, jobID int64) (bool, error)
	UpdateApplicantStatus(ctx context.Context, id int64, status pub.Status, notes *string) error
	BulkUpdateStatus(ctx context.Context, ids []int64, status pub.Status, notes string) (int, error)
	UpdateNotes(ctx context.Context, id int64, notes string) error
	UpdateScore(ctx context.Context, id int64, keywords string, score int) error
	DeleteApplicant(ctx context.Context, id int64) error
	DashboardStats(ctx context.Context, recentSince int64, recentLimit int) (pub.DashboardStats, error)
}

type TaskRepo interface {
	Enqueue(ctx context.Context, t *models.Task) (int64, error)
	ClaimNext(ctx context.Context) (*models.Task, error)
	UpdateTask(ctx context.Context, t *models.Task) error
	MoveToDeadLetter(ctx context.Context, t *models.Task) error
}

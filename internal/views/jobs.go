package views

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/garnizeh/ats/internal/validate"
	"github.com/garnizeh/ats/internal/workflow"
	"github.com/garnizeh/ats/pkg/models"
)

// JobAPI is the recruiter job endpoint set.
type JobAPI interface {
	ListJobs(ctx context.Context) ([]models.Job, error)
	CreateJob(ctx context.Context, in models.JobInput) (models.Job, error)
	UpdateJob(ctx context.Context, id int64, in models.JobInput) (models.Job, error)
	DeleteJob(ctx context.Context, id int64) error
}

// Jobs is the job postings page. Unlike the applicant views it patches its
// list in place from the server's response.
type Jobs struct {
	api     JobAPI
	confirm workflow.Confirmer
	notify  workflow.Notifier
	logger  *slog.Logger

	mu        sync.RWMutex
	jobs      []models.Job
	err       error
	dependent []workflow.Refresher
}

func NewJobs(api JobAPI, confirm workflow.Confirmer, notify workflow.Notifier, logger *slog.Logger) *Jobs {
	if confirm == nil {
		confirm = workflow.AlwaysConfirm
	}
	if notify == nil {
		notify = silent{}
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Jobs{api: api, confirm: confirm, notify: notify, logger: logger, jobs: []models.Job{}}
}

// Register adds views that show applicants; they are refetched after a
// job deletion removes its applicants.
func (j *Jobs) Register(r ...workflow.Refresher) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.dependent = append(j.dependent, r...)
}

func (j *Jobs) Load(ctx context.Context) error {
	jobs, err := j.api.ListJobs(ctx)
	j.mu.Lock()
	defer j.mu.Unlock()
	if err != nil {
		j.jobs = []models.Job{}
		j.err = err
		j.logger.Error("load jobs", "err", err)
		j.notify.Failure("Failed to load jobs. Please try again.")
		return fmt.Errorf("load jobs: %w", err)
	}
	j.jobs = jobs
	j.err = nil
	return nil
}

func (j *Jobs) Refresh(ctx context.Context) error { return j.Load(ctx) }

func (j *Jobs) Items() []models.Job {
	j.mu.RLock()
	defer j.mu.RUnlock()
	out := make([]models.Job, len(j.jobs))
	copy(out, j.jobs)
	return out
}

func (j *Jobs) Err() error {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.err
}

func (j *Jobs) Create(ctx context.Context, in models.JobInput) (models.Job, error) {
	if err := validate.JobForm(in); err != nil {
		return models.Job{}, err
	}
	job, err := j.api.CreateJob(ctx, in)
	if err != nil {
		j.logger.Error("create job", "err", err)
		j.notify.Failure("Failed to create job. Please try again.")
		return models.Job{}, fmt.Errorf("create job: %w", err)
	}
	j.mu.Lock()
	j.jobs = append([]models.Job{job}, j.jobs...)
	j.mu.Unlock()
	j.notify.Success("Job created successfully.")
	return job, nil
}

func (j *Jobs) Update(ctx context.Context, id int64, in models.JobInput) (models.Job, error) {
	if err := validate.JobForm(in); err != nil {
		return models.Job{}, err
	}
	job, err := j.api.UpdateJob(ctx, id, in)
	if err != nil {
		j.logger.Error("update job", "job", id, "err", err)
		j.notify.Failure("Failed to update job. Please try again.")
		return models.Job{}, fmt.Errorf("update job %d: %w", id, err)
	}
	j.replace(job)
	j.notify.Success("Job updated successfully.")
	return job, nil
}

// Delete removes a job and, on the collaborator, its applicants.
func (j *Jobs) Delete(ctx context.Context, job models.Job) error {
	msg := fmt.Sprintf("Delete %q? This action cannot be undone.", job.Title)
	if job.ApplicationCount > 0 {
		msg += fmt.Sprintf(" This job has %d applicant(s).", job.ApplicationCount)
	}
	ok, err := j.confirm.Confirm(ctx, workflow.Prompt{Title: "Are you sure?", Message: msg, IDs: []int64{job.ID}})
	if err != nil {
		return fmt.Errorf("confirm: %w", err)
	}
	if !ok {
		return workflow.ErrCancelled
	}

	if err := j.api.DeleteJob(ctx, job.ID); err != nil {
		j.logger.Error("delete job", "job", job.ID, "err", err)
		j.notify.Failure("Failed to delete job. Please try again.")
		return fmt.Errorf("delete job %d: %w", job.ID, err)
	}

	j.mu.Lock()
	kept := make([]models.Job, 0, len(j.jobs))
	for _, x := range j.jobs {
		if x.ID != job.ID {
			kept = append(kept, x)
		}
	}
	j.jobs = kept
	deps := make([]workflow.Refresher, len(j.dependent))
	copy(deps, j.dependent)
	j.mu.Unlock()

	j.notify.Success("Job has been deleted.")
	for _, r := range deps {
		if err := r.Refresh(ctx); err != nil {
			j.logger.Warn("refetch after job deletion", "err", err)
		}
	}
	return nil
}

// ToggleActive flips whether the job is accepting applications.
func (j *Jobs) ToggleActive(ctx context.Context, job models.Job) (models.Job, error) {
	verb, done := "Activate", "activated"
	if job.IsActive {
		verb, done = "Deactivate", "deactivated"
	}
	ok, err := j.confirm.Confirm(ctx, workflow.Prompt{
		Title:   "Change Status",
		Message: fmt.Sprintf("%s %q?", verb, job.Title),
		IDs:     []int64{job.ID},
	})
	if err != nil {
		return job, fmt.Errorf("confirm: %w", err)
	}
	if !ok {
		return job, workflow.ErrCancelled
	}

	in := job.Input()
	in.IsActive = !job.IsActive
	updated, err := j.api.UpdateJob(ctx, job.ID, in)
	if err != nil {
		j.logger.Error("toggle job", "job", job.ID, "err", err)
		j.notify.Failure("Failed to update job status. Please try again.")
		return job, fmt.Errorf("toggle job %d: %w", job.ID, err)
	}
	j.replace(updated)
	j.notify.Success(fmt.Sprintf("Job %s successfully.", done))
	return updated, nil
}

func (j *Jobs) replace(job models.Job) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for i := range j.jobs {
		if j.jobs[i].ID == job.ID {
			j.jobs[i] = job
			return
		}
	}
}

type silent struct{}

func (silent) Success(string) {}
func (silent) Failure(string) {}

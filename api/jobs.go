package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/garnizeh/ats/internal/models"
	pub "github.com/garnizeh/ats/pkg/models"
	"github.com/garnizeh/ats/pkg/repository"
)

// ResumeRemover deletes stored resumes.
type ResumeRemover interface {
	Remove(stored string) error
}

type JobsHandler struct {
	jobRepo       repository.JobRepo
	applicantRepo repository.ApplicantRepo
	resumes       ResumeRemover
}

func NewJobsHandler(jr repository.JobRepo, ar repository.ApplicantRepo, resumes ResumeRemover) *JobsHandler {
	return &JobsHandler{jobRepo: jr, applicantRepo: ar, resumes: resumes}
}

type jobPage struct {
	Count   int       `json:"count"`
	Results []pub.Job `json:"results"`
}

// ListJobs returns every job, newest first, as a page. ?is_active narrows
// the list.
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	var active *bool
	if v := r.URL.Query().Get("is_active"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeFields(w, map[string][]string{"is_active": {"Enter a valid boolean."}})
			return
		}
		active = &b
	}

	jobs, err := h.jobRepo.ListJobs(r.Context(), active != nil && *active)
	if err != nil {
		internalError(w, "list jobs", err)
		return
	}
	if active != nil && !*active {
		inactive := jobs[:0:0]
		for _, j := range jobs {
			if !j.IsActive {
				inactive = append(inactive, j)
			}
		}
		jobs = inactive
	}
	writeJSON(w, jobPage{Count: len(jobs), Results: jobs}, http.StatusOK)
}

func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	job, ok := h.loadJob(w, r)
	if !ok {
		return
	}
	writeJSON(w, job, http.StatusOK)
}

func (h *JobsHandler) CreateJob(w http.ResponseWriter, r *http.Request) {
	in := pub.JobInput{IsActive: true}
	fields, err := decodeBody(r.Context(), r, jobSchema, &in)
	if err != nil || fields != nil {
		badBody(w, fields, err)
		return
	}
	if fields := blankJobFields(&in); fields != nil {
		writeFields(w, fields)
		return
	}

	id, err := h.jobRepo.CreateJob(r.Context(), in)
	if err != nil {
		internalError(w, "create job", err)
		return
	}
	job, err := h.jobRepo.GetJob(r.Context(), id)
	if err != nil || job == nil {
		internalError(w, "reload job", err)
		return
	}
	logger.Info("job created", slog.Int64("job_id", id), slog.String("title", job.Title))
	writeJSON(w, job, http.StatusCreated)
}

// UpdateJob replaces the writable fields. Optional fields left out of the
// body keep their current value.
func (h *JobsHandler) UpdateJob(w http.ResponseWriter, r *http.Request) {
	current, ok := h.loadJob(w, r)
	if !ok {
		return
	}

	in := current.Input()
	fields, err := decodeBody(r.Context(), r, jobSchema, &in)
	if err != nil || fields != nil {
		badBody(w, fields, err)
		return
	}
	if fields := blankJobFields(&in); fields != nil {
		writeFields(w, fields)
		return
	}

	if err := h.jobRepo.UpdateJob(r.Context(), current.ID, in); err != nil {
		internalError(w, "update job", err)
		return
	}
	job, err := h.jobRepo.GetJob(r.Context(), current.ID)
	if err != nil || job == nil {
		internalError(w, "reload job", err)
		return
	}
	writeJSON(w, job, http.StatusOK)
}

// DeleteJob removes the job, its applicants and their resume files.
func (h *JobsHandler) DeleteJob(w http.ResponseWriter, r *http.Request) {
	job, ok := h.loadJob(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	applicants, err := h.applicantRepo.ListApplicants(ctx, models.ApplicantQuery{Job: job.ID})
	if err != nil {
		internalError(w, "list job applicants", err)
		return
	}
	if err := h.jobRepo.DeleteJob(ctx, job.ID); err != nil {
		internalError(w, "delete job", err)
		return
	}
	for _, a := range applicants {
		if a.ResumePath == "" {
			continue
		}
		if err := h.resumes.Remove(a.ResumePath); err != nil {
			logger.Warn("remove resume", slog.String("path", a.ResumePath), slog.Any("err", err))
		}
	}
	logger.Info("job deleted", slog.Int64("job_id", job.ID), slog.Int("applicants", len(applicants)))
	w.WriteHeader(http.StatusNoContent)
}

// PublicJobs lists the active jobs for candidates.
func (h *JobsHandler) PublicJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.jobRepo.ListJobs(r.Context(), true)
	if err != nil {
		internalError(w, "list public jobs", err)
		return
	}
	for i := range jobs {
		jobs[i] = publicJob(jobs[i])
	}
	writeJSON(w, jobs, http.StatusOK)
}

func (h *JobsHandler) PublicJob(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Job not found or inactive")
		return
	}
	job, err := h.jobRepo.GetJob(r.Context(), id)
	if err != nil {
		internalError(w, "get public job", err)
		return
	}
	if job == nil || !job.IsActive {
		writeError(w, http.StatusNotFound, "Job not found or inactive")
		return
	}
	writeJSON(w, publicJob(*job), http.StatusOK)
}

func (h *JobsHandler) loadJob(w http.ResponseWriter, r *http.Request) (*pub.Job, bool) {
	id, ok := pathID(r)
	if !ok {
		notFound(w)
		return nil, false
	}
	job, err := h.jobRepo.GetJob(r.Context(), id)
	if err != nil {
		internalError(w, "get job", err)
		return nil, false
	}
	if job == nil {
		notFound(w)
		return nil, false
	}
	return job, true
}

// publicJob hides the recruiter-only counters.
func publicJob(j pub.Job) pub.Job {
	j.ApplicationCount = 0
	j.NewApplicationsCount = 0
	return j
}

func blankJobFields(in *pub.JobInput) map[string][]string {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Location = strings.TrimSpace(in.Location)

	fields := map[string][]string{}
	for name, v := range map[string]string{"title": in.Title, "description": in.Description, "location": in.Location} {
		if v == "" {
			fields[name] = []string{"This field may not be blank."}
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

package api

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/garnizeh/ats/internal/models"
	"github.com/garnizeh/ats/internal/scoring"
	"github.com/garnizeh/ats/internal/tasks"
	"github.com/garnizeh/ats/internal/validate"
	pub "github.com/garnizeh/ats/pkg/models"
	"github.com/garnizeh/ats/pkg/repository"
)

const (
	msgTooLarge      = "File too large. Maximum size is 10MB."
	recentWindow     = 7 * 24 * time.Hour
	recentLimit      = 10
	excerptLength    = 100
	csvTimeLayout    = "2006-01-02 15:04"
	scorePriority    = 10
	scoreMaxAttempts = 3
	multipartMemory  = 32 << 20
)

var csvHeader = []string{"Name", "Email", "Phone", "Job", "Status", "Cover Letter Excerpt", "Created At", "Match Score"}

// ResumeStore keeps uploaded resume files.
type ResumeStore interface {
	Save(name string, data []byte) (string, error)
	Remove(stored string) error
}

// Enqueuer schedules background work; *tasks.WorkerPool satisfies it.
type Enqueuer interface {
	Enqueue(ctx context.Context, typ string, payload any, priority int, maxAttempts int) (int64, error)
}

type ApplicantsHandler struct {
	applicantRepo repository.ApplicantRepo
	jobRepo       repository.JobRepo
	resumes       ResumeStore
	queue         Enqueuer
	now           func() time.Time
}

func NewApplicantsHandler(ar repository.ApplicantRepo, jr repository.JobRepo, resumes ResumeStore, queue Enqueuer) *ApplicantsHandler {
	return &ApplicantsHandler{applicantRepo: ar, jobRepo: jr, resumes: resumes, queue: queue, now: time.Now}
}

type statusRequest struct {
	Status pub.Status `json:"status"`
	Notes  *string    `json:"notes"`
}

type patchRequest struct {
	Status *pub.Status `json:"status"`
	Notes  *string     `json:"notes"`
}

func (h *ApplicantsHandler) ListApplicants(w http.ResponseWriter, r *http.Request) {
	q, fields := applicantQuery(r)
	if fields != nil {
		writeFields(w, fields)
		return
	}
	recs, err := h.applicantRepo.ListApplicants(r.Context(), q)
	if err != nil {
		internalError(w, "list applicants", err)
		return
	}
	out := make([]pub.Applicant, len(recs))
	for i := range recs {
		out[i] = withResumeURL(r, recs[i])
	}
	writeJSON(w, out, http.StatusOK)
}

func (h *ApplicantsHandler) GetApplicant(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.loadApplicant(w, r)
	if !ok {
		return
	}
	writeJSON(w, withResumeURL(r, *rec), http.StatusOK)
}

// UploadApplicant creates an applicant from a recruiter's multipart upload
// and schedules scoring unless parse_resume is false.
func (h *ApplicantsHandler) UploadApplicant(w http.ResponseWriter, r *http.Request) {
	form, ok := readApplicationForm(w, r)
	if !ok {
		return
	}
	form.ParseResume = true
	if v := r.FormValue("parse_resume"); v != "" {
		form.ParseResume, _ = strconv.ParseBool(v)
	}

	if err := validate.RecruiterUpload(form); err != nil {
		var verrs validate.Errors
		if errors.As(err, &verrs) {
			writeError(w, http.StatusBadRequest, verrs.Error())
			return
		}
		internalError(w, "validate upload", err)
		return
	}

	ctx := r.Context()
	job, err := h.jobRepo.GetJob(ctx, form.Job)
	if err != nil {
		internalError(w, "get job", err)
		return
	}
	if job == nil {
		writeFields(w, map[string][]string{"job": {fmt.Sprintf("Invalid pk %q - object does not exist.", strconv.FormatInt(form.Job, 10))}})
		return
	}

	rec, err := h.create(ctx, form, form.ParseResume)
	if err != nil {
		internalError(w, "create applicant", err)
		return
	}
	writeJSON(w, withResumeURL(r, *rec), http.StatusCreated)
}

// UpdateStatus sets the status and, when present, the notes of one applicant.
func (h *ApplicantsHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.loadApplicant(w, r)
	if !ok {
		return
	}
	var req statusRequest
	fields, err := decodeBody(r.Context(), r, statusUpdateSchema, &req)
	if err != nil || fields != nil {
		badBody(w, fields, err)
		return
	}

	if err := h.applicantRepo.UpdateApplicantStatus(r.Context(), rec.ID, req.Status, req.Notes); err != nil {
		internalError(w, "update status", err)
		return
	}
	logger.Info("applicant status updated", slog.Int64("applicant_id", rec.ID), slog.String("from", string(rec.Status)), slog.String("to", string(req.Status)))
	h.respondFresh(w, r, rec.ID)
}

// BulkUpdateStatus moves every listed applicant to one status at once.
func (h *ApplicantsHandler) BulkUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req pub.BulkStatusUpdate
	fields, err := decodeBody(r.Context(), r, bulkUpdateSchema, &req)
	if err != nil || fields != nil {
		badBody(w, fields, err)
		return
	}

	n, err := h.applicantRepo.BulkUpdateStatus(r.Context(), req.ApplicantIDs, req.Status, strings.TrimSpace(req.Notes))
	if err != nil {
		internalError(w, "bulk update status", err)
		return
	}
	writeJSON(w, pub.BulkResult{
		Message:      fmt.Sprintf("Updated %d applicants to %s status", n, req.Status),
		UpdatedCount: n,
	}, http.StatusOK)
}

// PatchApplicant edits notes and, optionally, the status.
func (h *ApplicantsHandler) PatchApplicant(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.loadApplicant(w, r)
	if !ok {
		return
	}
	var req patchRequest
	fields, err := decodeBody(r.Context(), r, applicantPatchSchema, &req)
	if err != nil || fields != nil {
		badBody(w, fields, err)
		return
	}

	ctx := r.Context()
	if req.Status != nil {
		if err := h.applicantRepo.UpdateApplicantStatus(ctx, rec.ID, *req.Status, req.Notes); err != nil {
			internalError(w, "patch status", err)
			return
		}
	} else if req.Notes != nil {
		if err := h.applicantRepo.UpdateNotes(ctx, rec.ID, *req.Notes); err != nil {
			internalError(w, "patch notes", err)
			return
		}
	}
	h.respondFresh(w, r, rec.ID)
}

func (h *ApplicantsHandler) DeleteApplicant(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.loadApplicant(w, r)
	if !ok {
		return
	}
	if err := h.applicantRepo.DeleteApplicant(r.Context(), rec.ID); err != nil {
		internalError(w, "delete applicant", err)
		return
	}
	if rec.ResumePath != "" {
		if err := h.resumes.Remove(rec.ResumePath); err != nil {
			logger.Warn("remove resume", slog.String("path", rec.ResumePath), slog.Any("err", err))
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportCSV writes the filtered applicants as a CSV attachment.
func (h *ApplicantsHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	q, fields := applicantQuery(r)
	if fields != nil {
		writeFields(w, fields)
		return
	}
	recs, err := h.applicantRepo.ListApplicants(r.Context(), q)
	if err != nil {
		internalError(w, "export applicants", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="applicants.csv"`)
	w.WriteHeader(http.StatusOK)
	if err := writeCSV(w, recs); err != nil {
		logger.Error("write csv", slog.Any("err", err))
	}
}

func writeCSV(out io.Writer, recs []models.ApplicantRecord) error {
	cw := csv.NewWriter(out)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, a := range recs {
		row := []string{
			a.Name,
			a.Email,
			a.Phone,
			a.JobTitle,
			a.Status.Label(),
			excerpt(a.CoverLetter),
			a.CreatedAt.Format(csvTimeLayout),
			strconv.Itoa(a.MatchScore),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func excerpt(s string) string {
	runes := []rune(s)
	if len(runes) <= excerptLength {
		return s
	}
	return string(runes[:excerptLength]) + "..."
}

// DashboardStats reports counts by status and the newest applicants of the
// last seven days.
func (h *ApplicantsHandler) DashboardStats(w http.ResponseWriter, r *http.Request) {
	since := h.now().Add(-recentWindow).UnixMilli()
	stats, err := h.applicantRepo.DashboardStats(r.Context(), since, recentLimit)
	if err != nil {
		internalError(w, "dashboard stats", err)
		return
	}
	for i := range stats.RecentApplicants {
		stats.RecentApplicants[i] = withResumeURL(r, models.ApplicantRecord{Applicant: stats.RecentApplicants[i], ResumePath: stats.RecentApplicants[i].Resume})
	}
	writeJSON(w, stats, http.StatusOK)
}

// SubmitApplication is the unauthenticated candidate application.
func (h *ApplicantsHandler) SubmitApplication(w http.ResponseWriter, r *http.Request) {
	form, ok := readApplicationForm(w, r)
	if !ok {
		return
	}
	form.JobTitle = strings.TrimSpace(r.FormValue("job_title"))

	required := []struct {
		field string
		empty bool
	}{
		{"name", form.Name == ""},
		{"email", form.Email == ""},
		{"job", r.FormValue("job") == ""},
		{"resume", form.Resume == nil},
	}
	for _, f := range required {
		if f.empty {
			writeError(w, http.StatusBadRequest, f.field+" is required")
			return
		}
	}

	ctx := r.Context()
	job, err := h.jobRepo.GetJob(ctx, form.Job)
	if err != nil {
		internalError(w, "get job", err)
		return
	}
	if job == nil || !job.IsActive {
		writeError(w, http.StatusNotFound, "Job not found or inactive")
		return
	}
	if form.JobTitle == "" {
		form.JobTitle = job.Title
	}
	if !validate.Email(form.Email) {
		writeError(w, http.StatusBadRequest, "Invalid email format")
		return
	}
	exists, err := h.applicantRepo.ApplicationExists(ctx, form.Email, job.ID)
	if err != nil {
		internalError(w, "check duplicate", err)
		return
	}
	if exists {
		writeError(w, http.StatusBadRequest, "You have already applied for this position")
		return
	}

	rec, err := h.create(ctx, form, true)
	if err != nil {
		internalError(w, "submit application", err)
		return
	}
	logger.Info("application received", slog.Int64("applicant_id", rec.ID), slog.Int64("job_id", job.ID), slog.String("job_title", form.JobTitle))
	writeJSON(w, pub.SubmissionResult{
		Success:       true,
		Message:       "Application submitted successfully!",
		ApplicationID: rec.ID,
	}, http.StatusCreated)
}

// create stores the resume and the applicant, then optionally queues scoring.
// A failed enqueue leaves the applicant unscored.
func (h *ApplicantsHandler) create(ctx context.Context, form pub.ApplicationForm, score bool) (*models.ApplicantRecord, error) {
	stored, err := h.resumes.Save(form.Resume.Name, form.Resume.Data)
	if err != nil {
		return nil, fmt.Errorf("save resume: %w", err)
	}

	rec := &models.ApplicantRecord{ResumePath: stored}
	rec.Name = form.Name
	rec.Email = form.Email
	rec.Phone = form.Phone
	rec.Job = form.Job
	rec.CoverLetter = form.CoverLetter
	rec.Status = pub.StatusNew

	id, err := h.applicantRepo.CreateApplicant(ctx, rec)
	if err != nil {
		if rerr := h.resumes.Remove(stored); rerr != nil {
			logger.Warn("remove orphaned resume", slog.String("path", stored), slog.Any("err", rerr))
		}
		return nil, err
	}

	if score && h.queue != nil {
		if _, err := h.queue.Enqueue(ctx, tasks.TypeScoreApplicant, scoring.Payload{ApplicantID: id}, scorePriority, scoreMaxAttempts); err != nil {
			logger.Error("enqueue scoring", slog.Int64("applicant_id", id), slog.Any("err", err))
		}
	}

	saved, err := h.applicantRepo.GetApplicant(ctx, id)
	if err != nil {
		return nil, err
	}
	if saved == nil {
		return nil, fmt.Errorf("applicant %d vanished after insert", id)
	}
	return saved, nil
}

func (h *ApplicantsHandler) loadApplicant(w http.ResponseWriter, r *http.Request) (*models.ApplicantRecord, bool) {
	id, ok := pathID(r)
	if !ok {
		notFound(w)
		return nil, false
	}
	rec, err := h.applicantRepo.GetApplicant(r.Context(), id)
	if err != nil {
		internalError(w, "get applicant", err)
		return nil, false
	}
	if rec == nil {
		notFound(w)
		return nil, false
	}
	return rec, true
}

func (h *ApplicantsHandler) respondFresh(w http.ResponseWriter, r *http.Request, id int64) {
	rec, err := h.applicantRepo.GetApplicant(r.Context(), id)
	if err != nil || rec == nil {
		internalError(w, "reload applicant", err)
		return
	}
	writeJSON(w, withResumeURL(r, *rec), http.StatusOK)
}

// readApplicationForm parses the multipart fields shared by the public and
// recruiter flows. It answers 413 for an oversized resume.
func readApplicationForm(w http.ResponseWriter, r *http.Request) (pub.ApplicationForm, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, validate.MaxResumeSize+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, msgTooLarge)
			return pub.ApplicationForm{}, false
		}
		writeDetail(w, http.StatusBadRequest, "Multipart form parse error.")
		return pub.ApplicationForm{}, false
	}

	form := pub.ApplicationForm{
		Name:        strings.TrimSpace(r.FormValue("name")),
		Email:       strings.TrimSpace(r.FormValue("email")),
		Phone:       strings.TrimSpace(r.FormValue("phone")),
		CoverLetter: r.FormValue("cover_letter"),
	}
	if v := r.FormValue("job"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeFields(w, map[string][]string{"job": {"Incorrect type. Expected pk value."}})
			return pub.ApplicationForm{}, false
		}
		form.Job = id
	}

	file, hdr, err := r.FormFile("resume")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		writeDetail(w, http.StatusBadRequest, "Multipart form parse error.")
		return pub.ApplicationForm{}, false
	default:
		defer file.Close()
		if hdr.Size > validate.MaxResumeSize {
			writeError(w, http.StatusRequestEntityTooLarge, msgTooLarge)
			return pub.ApplicationForm{}, false
		}
		data, err := readPart(file)
		if err != nil {
			writeDetail(w, http.StatusBadRequest, "Multipart form parse error.")
			return pub.ApplicationForm{}, false
		}
		form.Resume = &pub.File{Name: hdr.Filename, Data: data}
	}
	return form, true
}

func readPart(f multipart.File) ([]byte, error) {
	return io.ReadAll(io.LimitReader(f, validate.MaxResumeSize+1))
}

// applicantQuery reads the list and export filters.
func applicantQuery(r *http.Request) (models.ApplicantQuery, map[string][]string) {
	v := r.URL.Query()
	q := models.ApplicantQuery{
		Search:   strings.TrimSpace(v.Get("search")),
		Ordering: v.Get("ordering"),
	}
	fields := map[string][]string{}

	if s := v.Get("job"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			fields["job"] = append(fields["job"], "Select a valid choice.")
		}
		q.Job = id
	}
	if s := v.Get("status"); s != "" {
		st, err := pub.ParseStatus(s)
		if err != nil {
			fields["status"] = append(fields["status"], fmt.Sprintf("Select a valid choice. %s is not one of the available choices.", s))
		}
		q.Status = st
	}
	if s := v.Get("date_from"); s != "" {
		t, err := time.ParseInLocation(time.DateOnly, s, time.Local)
		if err != nil {
			fields["date_from"] = append(fields["date_from"], "Enter a valid date.")
		} else {
			q.DateFrom = &t
		}
	}
	if s := v.Get("date_to"); s != "" {
		t, err := time.ParseInLocation(time.DateOnly, s, time.Local)
		if err != nil {
			fields["date_to"] = append(fields["date_to"], "Enter a valid date.")
		} else {
			end := t.AddDate(0, 0, 1).Add(-time.Millisecond)
			q.DateTo = &end
		}
	}
	if s := v.Get("min_score"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			fields["min_score"] = append(fields["min_score"], "Enter a number.")
		} else {
			q.MinScore = &n
		}
	}

	if len(fields) > 0 {
		return q, fields
	}
	return q, nil
}

// withResumeURL fills the absolute media URL of the resume.
func withResumeURL(r *http.Request, rec models.ApplicantRecord) pub.Applicant {
	a := rec.Applicant
	if rec.ResumePath == "" {
		return a
	}
	scheme := "http"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	a.ResumeURL = scheme + "://" + r.Host + "/media/" + rec.ResumePath
	return a
}

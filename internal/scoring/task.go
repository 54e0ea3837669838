package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/garnizeh/ats/internal/models"
	"github.com/garnizeh/ats/pkg/repository"
)

// ResumeReader loads a stored resume.
type ResumeReader interface {
	Read(stored string) ([]byte, error)
}

// Payload identifies the applicant a scoring task is for.
type Payload struct {
	ApplicantID int64 `json:"applicant_id"`
}

// NewTaskHandler returns a worker handler that scores the applicant named in
// the task payload and stores keywords and match score. An unreadable resume
// is scored on the cover letter alone.
func NewTaskHandler(applicants repository.ApplicantRepo, jobs repository.JobRepo, resumes ResumeReader, logger *slog.Logger) func(ctx context.Context, t *models.Task) error {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, t *models.Task) error {
		var p Payload
		if err := json.Unmarshal(t.Payload, &p); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}

		a, err := applicants.GetApplicant(ctx, p.ApplicantID)
		if err != nil {
			return fmt.Errorf("get applicant %d: %w", p.ApplicantID, err)
		}
		if a == nil {
			// deleted with its job before the task ran
			return nil
		}
		job, err := jobs.GetJob(ctx, a.Job)
		if err != nil {
			return fmt.Errorf("get job %d: %w", a.Job, err)
		}
		if job == nil {
			return nil
		}

		var text string
		if a.ResumePath != "" {
			data, err := resumes.Read(a.ResumePath)
			if err == nil {
				text, err = ExtractText(a.ResumePath, data)
			}
			if err != nil && !errors.Is(err, ErrUnsupported) {
				logger.Warn("resume text extraction failed", "applicant", a.ID, "err", err)
			}
		}

		res := Score(text, a.CoverLetter, job.Description, job.Requirements)
		if err := applicants.UpdateScore(ctx, a.ID, res.KeywordString(), res.MatchScore()); err != nil {
			return fmt.Errorf("store score for %d: %w", a.ID, err)
		}
		logger.Info("applicant scored", "applicant", a.ID, "score", res.MatchScore(), "keyword_score", res.KeywordScore, "skill_score", res.SkillScore)
		return nil
	}
}

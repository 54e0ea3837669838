package tasks

import (
	"context"
	"time"

	"github.com/garnizeh/ats/internal/models"
)

// TypeScoreApplicant recomputes keywords and match score for an applicant.
const TypeScoreApplicant = "score_applicant"

// Handler processes one task.
type Handler func(ctx context.Context, t *models.Task) error

// BackoffDuration returns the exponential retry delay for attempt n.
func BackoffDuration(attempt int) time.Duration {
	if attempt <= 0 {
		return time.Second
	}
	d := time.Duration(1<<uint(attempt)) * time.Second
	if limit := 5 * time.Minute; d > limit {
		return limit
	}
	return d
}

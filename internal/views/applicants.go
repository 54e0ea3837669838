package views

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"sync"

	"github.com/garnizeh/ats/internal/projection"
	"github.com/garnizeh/ats/internal/workflow"
	"github.com/garnizeh/ats/pkg/models"
)

// ApplicantLister is the list endpoint of the collaborator.
type ApplicantLister interface {
	ListApplicants(ctx context.Context, q url.Values) ([]models.Applicant, error)
}

// ApplicantList is the filtered, sorted applicant table. Filtering happens on
// the collaborator; sorting is local.
type ApplicantList struct {
	api    ApplicantLister
	logger *slog.Logger
	sel    *workflow.Selection

	mu     sync.RWMutex
	filter projection.Filter
	sort   projection.Sort
	raw    []models.Applicant
	items  []models.Applicant
	err    error
	seq    uint64
}

func NewApplicantList(api ApplicantLister, logger *slog.Logger) *ApplicantList {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &ApplicantList{
		api:    api,
		logger: logger,
		sel:    workflow.NewSelection(),
		sort:   projection.DefaultSort,
		items:  []models.Applicant{},
	}
}

func (l *ApplicantList) Selection() *workflow.Selection { return l.sel }

func (l *ApplicantList) Filter() projection.Filter {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.filter
}

// SetFilter validates f, stores it and refetches.
func (l *ApplicantList) SetFilter(ctx context.Context, f projection.Filter) error {
	if err := f.Validate(); err != nil {
		return err
	}
	l.mu.Lock()
	l.filter = f
	l.mu.Unlock()
	return l.Reload(ctx)
}

// ClearFilters resets every criterion and refetches.
func (l *ApplicantList) ClearFilters(ctx context.Context) error {
	return l.SetFilter(ctx, projection.Filter{})
}

func (l *ApplicantList) Sort() projection.Sort {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.sort
}

// Click applies a column-header click and re-sorts without refetching.
func (l *ApplicantList) Click(key projection.SortKey) projection.Sort {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sort = l.sort.Click(key)
	l.items = l.sort.Apply(l.raw)
	return l.sort
}

func (l *ApplicantList) SetSort(s projection.Sort) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sort = s
	l.items = l.sort.Apply(l.raw)
}

// Reload fetches the list for the current filter. On failure the table is
// emptied and the error kept for display; it is not retried. A response
// that arrives after a newer one is dropped.
func (l *ApplicantList) Reload(ctx context.Context) error {
	l.mu.Lock()
	l.seq++
	seq := l.seq
	q := l.filter.Values()
	l.mu.Unlock()

	list, err := l.api.ListApplicants(ctx, q)

	l.mu.Lock()
	defer l.mu.Unlock()
	if seq != l.seq {
		return err
	}
	if err != nil {
		l.logger.Error("load applicants", "err", err)
		l.raw = nil
		l.items = []models.Applicant{}
		l.err = err
		return fmt.Errorf("load applicants: %w", err)
	}
	l.raw = list
	l.items = l.sort.Apply(list)
	l.err = nil

	ids := make([]int64, len(list))
	for i, a := range list {
		ids[i] = a.ID
	}
	l.sel.Retain(ids)
	return nil
}

// Refresh satisfies workflow.Refresher.
func (l *ApplicantList) Refresh(ctx context.Context) error { return l.Reload(ctx) }

// Items returns the visible rows in display order.
func (l *ApplicantList) Items() []models.Applicant {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.Applicant, len(l.items))
	copy(out, l.items)
	return out
}

func (l *ApplicantList) Err() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.err
}

// Applicant returns the visible row with the given id.
func (l *ApplicantList) Applicant(id int64) (models.Applicant, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, a := range l.raw {
		if a.ID == id {
			return a, true
		}
	}
	return models.Applicant{}, false
}

// StatusOf reports the status of a visible row.
func (l *ApplicantList) StatusOf(id int64) (models.Status, bool) {
	a, ok := l.Applicant(id)
	return a.Status, ok
}

// VisibleIDs lists the visible rows in display order, for select-all.
func (l *ApplicantList) VisibleIDs() []int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := make([]int64, len(l.items))
	for i, a := range l.items {
		ids[i] = a.ID
	}
	return ids
}

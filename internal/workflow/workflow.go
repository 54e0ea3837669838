package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/garnizeh/ats/pkg/models"
)

var (
	ErrInvalidStatus = errors.New("invalid status")
	ErrSameStatus    = errors.New("applicant already has that status")
	ErrInFlight      = errors.New("a status update for this applicant is already in progress")
	ErrCancelled     = errors.New("status change cancelled")
)

// FailureMessage is shown for any failed status mutation, single or bulk.
const FailureMessage = "Failed to update status. Please try again."

// StatusAPI is the part of the gateway client the workflow mutates through.
type StatusAPI interface {
	UpdateStatus(ctx context.Context, id int64, status models.Status, notes string) (models.Applicant, error)
	BulkUpdateStatus(ctx context.Context, ids []int64, status models.Status) (models.BulkResult, error)
	UpdateNotes(ctx context.Context, id int64, notes string) (models.Applicant, error)
}

// Prompt is what the user is asked to confirm.
type Prompt struct {
	Title   string
	Message string
	Target  models.Status
	IDs     []int64
}

type Confirmer interface {
	Confirm(ctx context.Context, p Prompt) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, p Prompt) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, p Prompt) (bool, error) { return f(ctx, p) }

// AlwaysConfirm approves every prompt.
var AlwaysConfirm = ConfirmFunc(func(context.Context, Prompt) (bool, error) { return true, nil })

// Notifier receives the acknowledgement of a finished mutation.
type Notifier interface {
	Success(msg string)
	Failure(msg string)
}

// Refresher reloads some view of the applicant data.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Workflow runs status transitions: guard, confirm, request, acknowledge,
// then refetch every registered view. Nothing is patched locally, so a
// failure leaves nothing to revert.
type Workflow struct {
	api     StatusAPI
	confirm Confirmer
	notify  Notifier
	logger  *slog.Logger

	mu         sync.Mutex
	inflight   map[int64]struct{}
	refreshers []Refresher
}

func New(api StatusAPI, confirm Confirmer, notify Notifier, logger *slog.Logger) *Workflow {
	if confirm == nil {
		confirm = AlwaysConfirm
	}
	if notify == nil {
		notify = nopNotifier{}
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Workflow{api: api, confirm: confirm, notify: notify, logger: logger, inflight: map[int64]struct{}{}}
}

// Register adds views to refetch after every successful mutation.
func (w *Workflow) Register(r ...Refresher) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.refreshers = append(w.refreshers, r...)
}

// CanTransition reports whether moving from current to target is offered.
func CanTransition(current, target models.Status) bool {
	return target.Valid() && target != current
}

// Busy reports whether a mutation for id is in flight.
func (w *Workflow) Busy(id int64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.inflight[id]
	return ok
}

// claim marks every id in flight, or none if any already is.
func (w *Workflow) claim(ids []int64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, id := range ids {
		if _, ok := w.inflight[id]; ok {
			return false
		}
	}
	for _, id := range ids {
		w.inflight[id] = struct{}{}
	}
	return true
}

func (w *Workflow) release(ids []int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, id := range ids {
		delete(w.inflight, id)
	}
}

// UpdateStatus moves a single applicant to target. Non-empty notes replace
// the recruiter notes in the same request.
func (w *Workflow) UpdateStatus(ctx context.Context, a models.Applicant, target models.Status, notes string) (models.Applicant, error) {
	if !target.Valid() {
		return a, fmt.Errorf("%w: %q", ErrInvalidStatus, target)
	}
	if a.Status == target {
		return a, ErrSameStatus
	}

	ids := []int64{a.ID}
	if !w.claim(ids) {
		return a, ErrInFlight
	}
	defer w.release(ids)

	ok, err := w.confirm.Confirm(ctx, Prompt{
		Title:   "Update Status",
		Message: fmt.Sprintf("Change status for %s to %s?", a.Name, strings.ToUpper(string(target))),
		Target:  target,
		IDs:     ids,
	})
	if err != nil {
		return a, fmt.Errorf("confirm: %w", err)
	}
	if !ok {
		return a, ErrCancelled
	}

	updated, err := w.api.UpdateStatus(ctx, a.ID, target, notes)
	if ctx.Err() != nil {
		// the caller went away; it must not be acknowledged or refreshed
		if err != nil {
			return a, err
		}
		return updated, nil
	}
	if err != nil {
		w.logger.Error("update status", "applicant", a.ID, "target", target, "err", err)
		w.notify.Failure(FailureMessage)
		return a, fmt.Errorf("update status of %d: %w", a.ID, err)
	}

	w.notify.Success(fmt.Sprintf("Status updated to %s.", target))
	w.refresh(ctx)
	return updated, nil
}

// BulkUpdate moves every selected applicant to target in one request.
// statusOf reports the known status of an id and is used to refuse a no-op
// bulk change; it may be nil. The selection is cleared on success.
func (w *Workflow) BulkUpdate(ctx context.Context, sel *Selection, target models.Status, statusOf func(int64) (models.Status, bool)) (models.BulkResult, error) {
	ids := sel.IDs()
	if len(ids) == 0 {
		return models.BulkResult{}, nil
	}
	if !target.Valid() {
		return models.BulkResult{}, fmt.Errorf("%w: %q", ErrInvalidStatus, target)
	}
	if statusOf != nil && allAt(ids, target, statusOf) {
		return models.BulkResult{}, ErrSameStatus
	}

	if !w.claim(ids) {
		return models.BulkResult{}, ErrInFlight
	}
	defer w.release(ids)

	ok, err := w.confirm.Confirm(ctx, Prompt{
		Title:   "Bulk Update Status",
		Message: fmt.Sprintf("Update status for %d applicant(s) to %s?", len(ids), strings.ToUpper(string(target))),
		Target:  target,
		IDs:     ids,
	})
	if err != nil {
		return models.BulkResult{}, fmt.Errorf("confirm: %w", err)
	}
	if !ok {
		return models.BulkResult{}, ErrCancelled
	}

	res, err := w.api.BulkUpdateStatus(ctx, ids, target)
	if ctx.Err() != nil {
		if err != nil {
			return models.BulkResult{}, err
		}
		return res, nil
	}
	if err != nil {
		w.logger.Error("bulk update status", "count", len(ids), "target", target, "err", err)
		w.notify.Failure(FailureMessage)
		return models.BulkResult{}, fmt.Errorf("bulk update of %d applicant(s): %w", len(ids), err)
	}

	w.notify.Success(fmt.Sprintf("%d applicant(s) updated to %s.", len(ids), target))
	sel.Clear()
	w.refresh(ctx)
	return res, nil
}

// SaveNotes replaces the recruiter notes of an applicant.
func (w *Workflow) SaveNotes(ctx context.Context, id int64, notes string) (models.Applicant, error) {
	ids := []int64{id}
	if !w.claim(ids) {
		return models.Applicant{}, ErrInFlight
	}
	defer w.release(ids)

	updated, err := w.api.UpdateNotes(ctx, id, notes)
	if ctx.Err() != nil {
		return updated, err
	}
	if err != nil {
		w.logger.Error("save notes", "applicant", id, "err", err)
		w.notify.Failure("Failed to save notes. Please try again.")
		return models.Applicant{}, fmt.Errorf("save notes of %d: %w", id, err)
	}

	w.notify.Success("Notes saved.")
	w.refresh(ctx)
	return updated, nil
}

func allAt(ids []int64, target models.Status, statusOf func(int64) (models.Status, bool)) bool {
	for _, id := range ids {
		s, ok := statusOf(id)
		if !ok || s != target {
			return false
		}
	}
	return true
}

// refresh refetches every registered view. Failures are logged; each view
// keeps its own error state.
func (w *Workflow) refresh(ctx context.Context) {
	w.mu.Lock()
	rs := make([]Refresher, len(w.refreshers))
	copy(rs, w.refreshers)
	w.mu.Unlock()

	for _, r := range rs {
		if err := r.Refresh(ctx); err != nil {
			w.logger.Warn("refetch after mutation", "err", err)
		}
	}
}

type nopNotifier struct{}

func (nopNotifier) Success(string) {}
func (nopNotifier) Failure(string) {}

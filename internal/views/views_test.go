package views_test

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/garnizeh/ats/internal/projection"
	"github.com/garnizeh/ats/internal/store"
	"github.com/garnizeh/ats/internal/validate"
	"github.com/garnizeh/ats/internal/views"
	"github.com/garnizeh/ats/internal/workflow"
	"github.com/garnizeh/ats/pkg/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var day = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type listAPI struct {
	mu      sync.Mutex
	queries []url.Values
	list    []models.Applicant
	err     error
}

func (f *listAPI) ListApplicants(_ context.Context, q url.Values) ([]models.Applicant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, f.err
	}
	return f.list, nil
}

func sample() []models.Applicant {
	return []models.Applicant{
		{ID: 1, Name: "Carla", Status: models.StatusNew, MatchScore: 40, CreatedAt: day},
		{ID: 2, Name: "ana", Status: models.StatusReviewed, MatchScore: 90, CreatedAt: day.Add(time.Hour)},
		{ID: 3, Name: "Bruno", Status: models.StatusNew, MatchScore: 65, CreatedAt: day.Add(-time.Hour)},
	}
}

func ids(list []models.Applicant) []int64 {
	out := make([]int64, len(list))
	for i, a := range list {
		out[i] = a.ID
	}
	return out
}

func equal(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestApplicantList_ReloadSortsNewestFirst(t *testing.T) {
	api := &listAPI{list: sample()}
	l := views.NewApplicantList(api, nil)

	if err := l.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if got := ids(l.Items()); !equal(got, []int64{2, 1, 3}) {
		t.Fatalf("default order should be newest first, got %v", got)
	}

	if s := l.Click(projection.SortName); s.Direction != projection.Asc {
		t.Fatalf("a new column starts ascending, got %v", s)
	}
	if got := ids(l.Items()); !equal(got, []int64{2, 3, 1}) {
		t.Fatalf("name sort mismatch, got %v", got)
	}
	l.Click(projection.SortName)
	if got := ids(l.Items()); !equal(got, []int64{1, 3, 2}) {
		t.Fatalf("second click reverses, got %v", got)
	}
	if len(api.queries) != 1 {
		t.Fatalf("sorting must not refetch, got %d requests", len(api.queries))
	}
}

func TestApplicantList_FilterIsSentToCollaborator(t *testing.T) {
	api := &listAPI{list: sample()}
	l := views.NewApplicantList(api, nil)

	err := l.SetFilter(context.Background(), projection.Filter{Status: "new", MinScore: "50", Search: "  "})
	if err != nil {
		t.Fatalf("SetFilter: %v", err)
	}
	q := api.queries[0]
	if q.Get("status") != "new" || q.Get("min_score") != "50" || q.Has("search") {
		t.Fatalf("unexpected query %v", q)
	}

	if err := l.SetFilter(context.Background(), projection.Filter{MinScore: "101"}); err == nil {
		t.Fatalf("expected validation error")
	}
	if len(api.queries) != 1 {
		t.Fatalf("an invalid filter must not be sent")
	}

	if err := l.ClearFilters(context.Background()); err != nil {
		t.Fatalf("ClearFilters: %v", err)
	}
	if len(api.queries[1]) != 0 {
		t.Fatalf("cleared filter should send no params, got %v", api.queries[1])
	}
}

func TestApplicantList_FailureDegradesToEmpty(t *testing.T) {
	api := &listAPI{list: sample()}
	l := views.NewApplicantList(api, nil)
	if err := l.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	l.Selection().Add(1, 2)

	api.err = errors.New("502")
	if err := l.Reload(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if len(l.Items()) != 0 || l.Err() == nil {
		t.Fatalf("expected empty list with an error")
	}

	api.err = nil
	api.list = sample()[:1]
	if err := l.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if l.Err() != nil {
		t.Fatalf("error should clear on success")
	}
	if got := l.Selection().IDs(); !equal(got, []int64{1}) {
		t.Fatalf("selection should only keep visible rows, got %v", got)
	}
	if s, ok := l.StatusOf(1); !ok || s != models.StatusNew {
		t.Fatalf("StatusOf mismatch")
	}
}

func TestApplicantList_WorkflowRefetchesList(t *testing.T) {
	api := &listAPI{list: sample()}
	l := views.NewApplicantList(api, nil)
	if err := l.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	status := &statusAPI{}
	w := workflow.New(status, nil, nil, nil)
	w.Register(l)

	l.Selection().SelectAll(l.VisibleIDs())
	if _, err := w.BulkUpdate(context.Background(), l.Selection(), models.StatusRejected, l.StatusOf); err != nil {
		t.Fatalf("BulkUpdate: %v", err)
	}
	if len(api.queries) != 2 {
		t.Fatalf("expected a refetch after the bulk update, got %d requests", len(api.queries))
	}
	if l.Selection().Len() != 0 {
		t.Fatalf("selection should be cleared")
	}
}

type statusAPI struct{}

func (statusAPI) UpdateStatus(_ context.Context, id int64, s models.Status, _ string) (models.Applicant, error) {
	return models.Applicant{ID: id, Status: s}, nil
}

func (statusAPI) BulkUpdateStatus(_ context.Context, ids []int64, _ models.Status) (models.BulkResult, error) {
	return models.BulkResult{UpdatedCount: len(ids)}, nil
}

func (statusAPI) UpdateNotes(_ context.Context, id int64, notes string) (models.Applicant, error) {
	return models.Applicant{ID: id, Notes: notes}, nil
}

func TestDeriveBadge(t *testing.T) {
	var list []models.Applicant
	for i := 1; i <= 8; i++ {
		s := models.StatusNew
		if i%4 == 0 {
			s = models.StatusHired
		}
		list = append(list, models.Applicant{ID: int64(i), Status: s})
	}
	b := views.DeriveBadge(list)
	if b.Count != 6 {
		t.Fatalf("expected 6 new applicants, got %d", b.Count)
	}
	if got := ids(b.Preview); !equal(got, []int64{1, 2, 3, 5, 6}) {
		t.Fatalf("preview should keep the first five in order, got %v", got)
	}

	if b := views.DeriveBadge(nil); b.Count != 0 || b.Preview == nil {
		t.Fatalf("empty input should give a zero badge with an empty preview")
	}
}

func TestNotifications_FollowStore(t *testing.T) {
	api := &listAPI{list: sample()}
	s := store.New(api, nil)

	n := views.NewNotifications(s)
	changed := make(chan views.Badge, 4)
	n.OnChange(func(b views.Badge) { changed <- b })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- n.Run(ctx) }()

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	select {
	case b := <-changed:
		if b.Count != 2 {
			t.Fatalf("expected 2 new applicants, got %d", b.Count)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("badge was not updated")
	}
	if n.Badge().Count != 2 {
		t.Fatalf("Badge() out of step")
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	s.Close()
}

func TestNotifications_StopsWhenStoreCloses(t *testing.T) {
	s := store.New(&listAPI{}, nil)
	n := views.NewNotifications(s)
	done := make(chan error, 1)
	go func() { done <- n.Run(context.Background()) }()

	// give Run time to subscribe before closing
	time.Sleep(10 * time.Millisecond)
	s.Close()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil on store close, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after Close")
	}
}

type statsAPI struct {
	stats models.DashboardStats
	err   error
}

func (f *statsAPI) DashboardStats(context.Context) (models.DashboardStats, error) {
	return f.stats, f.err
}

func TestDashboard(t *testing.T) {
	api := &statsAPI{stats: models.DashboardStats{TotalApplicants: 4, NewApplicants: 3, RecentApplicants: []models.Applicant{{ID: 1}}}}
	d := views.NewDashboard(api)
	if err := d.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if d.Stats().Count(models.StatusNew) != 3 {
		t.Fatalf("unexpected stats %#v", d.Stats())
	}

	api.err = errors.New("down")
	if err := d.Refresh(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if d.Stats().TotalApplicants != 0 || d.Stats().RecentApplicants == nil || d.Err() == nil {
		t.Fatalf("failure should leave an empty dashboard, got %#v", d.Stats())
	}
}

type jobAPI struct {
	jobs    []models.Job
	deleted []int64
	updates []models.JobInput
	err     error
}

func (f *jobAPI) ListJobs(context.Context) ([]models.Job, error) { return f.jobs, f.err }

func (f *jobAPI) CreateJob(_ context.Context, in models.JobInput) (models.Job, error) {
	if f.err != nil {
		return models.Job{}, f.err
	}
	return models.Job{ID: 99, Title: in.Title, IsActive: in.IsActive}, nil
}

func (f *jobAPI) UpdateJob(_ context.Context, id int64, in models.JobInput) (models.Job, error) {
	if f.err != nil {
		return models.Job{}, f.err
	}
	f.updates = append(f.updates, in)
	return models.Job{ID: id, Title: in.Title, IsActive: in.IsActive}, nil
}

func (f *jobAPI) DeleteJob(_ context.Context, id int64) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type notes struct {
	ok, failed []string
}

func (n *notes) Success(m string) { n.ok = append(n.ok, m) }
func (n *notes) Failure(m string) { n.failed = append(n.failed, m) }

type refresher struct{ n int }

func (r *refresher) Refresh(context.Context) error { r.n++; return nil }

func TestJobs_DeleteConfirmsAndRefreshesApplicants(t *testing.T) {
	api := &jobAPI{jobs: []models.Job{{ID: 1, Title: "Go Engineer", ApplicationCount: 2}, {ID: 2, Title: "SRE"}}}
	var prompt string
	confirm := workflow.ConfirmFunc(func(_ context.Context, p workflow.Prompt) (bool, error) {
		prompt = p.Message
		return true, nil
	})
	n := &notes{}
	r := &refresher{}
	j := views.NewJobs(api, confirm, n, nil)
	j.Register(r)
	if err := j.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if err := j.Delete(context.Background(), j.Items()[0]); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if prompt != `Delete "Go Engineer"? This action cannot be undone. This job has 2 applicant(s).` {
		t.Fatalf("unexpected prompt %q", prompt)
	}
	if len(j.Items()) != 1 || j.Items()[0].ID != 2 {
		t.Fatalf("deleted job still listed: %v", j.Items())
	}
	if r.n != 1 || len(n.ok) != 1 || n.ok[0] != "Job has been deleted." {
		t.Fatalf("expected ack and applicant refetch, got %v / %d", n.ok, r.n)
	}
}

func TestJobs_DeclinedDeleteDoesNothing(t *testing.T) {
	api := &jobAPI{jobs: []models.Job{{ID: 1, Title: "Go Engineer"}}}
	decline := workflow.ConfirmFunc(func(context.Context, workflow.Prompt) (bool, error) { return false, nil })
	j := views.NewJobs(api, decline, nil, nil)
	if err := j.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := j.Delete(context.Background(), j.Items()[0]); !errors.Is(err, workflow.ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if len(api.deleted) != 0 {
		t.Fatalf("no request expected")
	}
}

func TestJobs_ToggleAndCreate(t *testing.T) {
	api := &jobAPI{jobs: []models.Job{{ID: 1, Title: "Go Engineer", Description: "d", Location: "Remote", IsActive: true}}}
	n := &notes{}
	j := views.NewJobs(api, nil, n, nil)
	if err := j.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	updated, err := j.ToggleActive(context.Background(), j.Items()[0])
	if err != nil {
		t.Fatalf("ToggleActive: %v", err)
	}
	if updated.IsActive || api.updates[0].Description != "d" {
		t.Fatalf("toggle must send the full job with the flag flipped, got %#v", api.updates[0])
	}
	if n.ok[0] != "Job deactivated successfully." {
		t.Fatalf("unexpected ack %v", n.ok)
	}

	if _, err := j.Create(context.Background(), models.JobInput{Title: "x"}); err == nil {
		t.Fatalf("expected validation error")
	} else {
		var errs validate.Errors
		if !errors.As(err, &errs) {
			t.Fatalf("expected validate.Errors, got %T", err)
		}
	}

	job, err := j.Create(context.Background(), models.JobInput{Title: "SRE", Description: "keep it up", Location: "Lisbon", IsActive: true})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if j.Items()[0].ID != job.ID {
		t.Fatalf("new job should be listed first")
	}

	api.err = errors.New("500")
	if _, err := j.Update(context.Background(), job.ID, models.JobInput{Title: "SRE", Description: "d", Location: "Porto"}); err == nil {
		t.Fatalf("expected error")
	}
	if n.failed[len(n.failed)-1] != "Failed to update job. Please try again." {
		t.Fatalf("unexpected failure ack %v", n.failed)
	}
}

package sqlite_test

import (
	"context"
	"testing"
	"time"

	dbfs "github.com/garnizeh/ats/db"
	dbpkg "github.com/garnizeh/ats/internal/db"
	"github.com/garnizeh/ats/internal/models"
	sqlite "github.com/garnizeh/ats/internal/repository/sqlite"
	pub "github.com/garnizeh/ats/pkg/models"
)

func setupRepo(t *testing.T) (*sqlite.SQLiteRepo, func()) {
	t.Helper()
	ctx := context.Background()
	d, err := dbpkg.New(ctx, ":memory:")
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}

	for _, dir := range []string{dbfs.ClientMigrations, dbfs.SandboxMigrations} {
		if err := dbpkg.Migrate(ctx, d, dbfs.Migrations, dir); err != nil {
			d.Close()
			t.Fatalf("failed to migrate %s: %v", dir, err)
		}
	}

	repo := sqlite.New(d, nil)
	return repo, func() { d.Close() }
}

func mustJob(t *testing.T, repo *sqlite.SQLiteRepo, title string, active bool) int64 {
	t.Helper()
	id, err := repo.CreateJob(context.Background(), pub.JobInput{Title: title, Description: "d", Location: "Remote", IsActive: active})
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	return id
}

func mustApplicant(t *testing.T, repo *sqlite.SQLiteRepo, job int64, name, email string, score int) int64 {
	t.Helper()
	a := &models.ApplicantRecord{ResumePath: "resumes/" + name + ".pdf"}
	a.Job, a.Name, a.Email, a.MatchScore = job, name, email, score
	id, err := repo.CreateApplicant(context.Background(), a)
	if err != nil {
		t.Fatalf("CreateApplicant: %v", err)
	}
	return id
}

func TestSessionRoundTrip(t *testing.T) {
	repo, cleanup := setupRepo(t)
	defer cleanup()
	ctx := context.Background()

	got, err := repo.LoadSession(ctx)
	if err != nil || got != nil {
		t.Fatalf("expected no session, got %#v, %v", got, err)
	}

	if err := repo.SaveSession(ctx, nil); err == nil {
		t.Fatalf("expected error saving nil session")
	}

	s := &models.Session{Token: "t1", User: pub.User{ID: 3, Username: "rita", Email: "rita@example.com"}}
	if err := repo.SaveSession(ctx, s); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	s.Token = "t2"
	if err := repo.SaveSession(ctx, s); err != nil {
		t.Fatalf("SaveSession overwrite: %v", err)
	}

	got, err = repo.LoadSession(ctx)
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if got == nil || got.Token != "t2" || got.User.Username != "rita" {
		t.Fatalf("unexpected session %#v", got)
	}

	if err := repo.ClearSession(ctx); err != nil {
		t.Fatalf("ClearSession: %v", err)
	}
	if got, _ := repo.LoadSession(ctx); got != nil {
		t.Fatalf("expected cleared session, got %#v", got)
	}
}

func TestUserLookup(t *testing.T) {
	repo, cleanup := setupRepo(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := repo.CreateUser(ctx, nil); err == nil {
		t.Fatalf("expected error when creating nil user")
	}

	id, err := repo.CreateUser(ctx, &models.User{Username: "rita", Email: "Rita@Example.com", PasswordHash: "h"})
	if err != nil || id == 0 {
		t.Fatalf("CreateUser: %d, %v", id, err)
	}
	if _, err := repo.CreateUser(ctx, &models.User{Username: "rita", Email: "x@example.com", PasswordHash: "h"}); err == nil {
		t.Fatalf("expected unique username violation")
	}

	u, err := repo.GetUserByEmail(ctx, "rita@example.com")
	if err != nil || u == nil || u.ID != id {
		t.Fatalf("GetUserByEmail: %#v, %v", u, err)
	}
	u, err = repo.GetUserByUsername(ctx, "rita")
	if err != nil || u == nil || u.PasswordHash != "h" {
		t.Fatalf("GetUserByUsername: %#v, %v", u, err)
	}
	u, err = repo.GetUserByID(ctx, 999)
	if err != nil || u != nil {
		t.Fatalf("expected nil, nil for unknown id, got %#v, %v", u, err)
	}
}

func TestJobsWithCountsAndCascade(t *testing.T) {
	repo, cleanup := setupRepo(t)
	defer cleanup()
	ctx := context.Background()

	active := mustJob(t, repo, "Go developer", true)
	mustJob(t, repo, "Closed role", false)
	a1 := mustApplicant(t, repo, active, "ada", "ada@example.com", 80)
	mustApplicant(t, repo, active, "bob", "bob@example.com", 40)
	if err := repo.UpdateApplicantStatus(ctx, a1, pub.StatusReviewed, nil); err != nil {
		t.Fatalf("UpdateApplicantStatus: %v", err)
	}

	all, err := repo.ListJobs(ctx, false)
	if err != nil || len(all) != 2 {
		t.Fatalf("ListJobs: %v, %v", all, err)
	}
	public, err := repo.ListJobs(ctx, true)
	if err != nil || len(public) != 1 || public[0].ID != active {
		t.Fatalf("ListJobs(activeOnly): %v, %v", public, err)
	}
	if public[0].ApplicationCount != 2 || public[0].NewApplicationsCount != 1 {
		t.Fatalf("unexpected counts %d/%d", public[0].ApplicationCount, public[0].NewApplicationsCount)
	}

	if err := repo.UpdateJob(ctx, active, pub.JobInput{Title: "Senior Go developer", Description: "d", IsActive: false}); err != nil {
		t.Fatalf("UpdateJob: %v", err)
	}
	j, err := repo.GetJob(ctx, active)
	if err != nil || j == nil || j.Title != "Senior Go developer" || j.IsActive {
		t.Fatalf("GetJob after update: %#v, %v", j, err)
	}

	if err := repo.DeleteJob(ctx, active); err != nil {
		t.Fatalf("DeleteJob: %v", err)
	}
	if j, _ := repo.GetJob(ctx, active); j != nil {
		t.Fatalf("expected job gone")
	}
	list, err := repo.ListApplicants(ctx, models.ApplicantQuery{})
	if err != nil || len(list) != 0 {
		t.Fatalf("expected applicants cascaded away, got %d, %v", len(list), err)
	}
}

func TestListApplicantsFilters(t *testing.T) {
	repo, cleanup := setupRepo(t)
	defer cleanup()
	ctx := context.Background()

	j1 := mustJob(t, repo, "Go developer", true)
	j2 := mustJob(t, repo, "Designer", true)
	ada := mustApplicant(t, repo, j1, "ada", "ada@example.com", 80)
	mustApplicant(t, repo, j1, "bob", "bob@example.com", 40)
	mustApplicant(t, repo, j2, "cy", "cy@example.com", 95)
	if err := repo.UpdateScore(ctx, ada, "golang, kubernetes", 80); err != nil {
		t.Fatalf("UpdateScore: %v", err)
	}

	minScore := 50
	future := time.Now().Add(time.Hour)
	cases := []struct {
		name string
		q    models.ApplicantQuery
		want int
	}{
		{"all", models.ApplicantQuery{}, 3},
		{"job", models.ApplicantQuery{Job: j1}, 2},
		{"status", models.ApplicantQuery{Status: pub.StatusNew}, 3},
		{"min score", models.ApplicantQuery{MinScore: &minScore}, 2},
		{"search keywords", models.ApplicantQuery{Search: "KUBERNETES"}, 1},
		{"search email", models.ApplicantQuery{Search: "bob@"}, 1},
		{"date from future", models.ApplicantQuery{DateFrom: &future}, 0},
		{"date to future", models.ApplicantQuery{DateTo: &future}, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := repo.ListApplicants(ctx, tc.q)
			if err != nil {
				t.Fatalf("ListApplicants: %v", err)
			}
			if len(got) != tc.want {
				t.Fatalf("got %d applicants want %d", len(got), tc.want)
			}
		})
	}

	got, err := repo.ListApplicants(ctx, models.ApplicantQuery{Ordering: "-match_score"})
	if err != nil || len(got) != 3 || got[0].Name != "cy" || got[2].Name != "bob" {
		t.Fatalf("unexpected ordering %v, %v", got, err)
	}
	if got[1].JobTitle != "Go developer" || got[1].ResumeFilename != "ada.pdf" {
		t.Fatalf("unexpected joined fields %#v", got[1])
	}

	exists, err := repo.ApplicationExists(ctx, "ada@example.com", j1)
	if err != nil || !exists {
		t.Fatalf("ApplicationExists: %v, %v", exists, err)
	}
	exists, _ = repo.ApplicationExists(ctx, "ada@example.com", j2)
	if exists {
		t.Fatalf("ada did not apply to j2")
	}
}

func TestStatusUpdatesAndDashboard(t *testing.T) {
	repo, cleanup := setupRepo(t)
	defer cleanup()
	ctx := context.Background()

	j := mustJob(t, repo, "Go developer", true)
	a := mustApplicant(t, repo, j, "ada", "ada@example.com", 10)
	b := mustApplicant(t, repo, j, "bob", "bob@example.com", 20)
	c := mustApplicant(t, repo, j, "cy", "cy@example.com", 30)

	notes := "strong systems background"
	if err := repo.UpdateApplicantStatus(ctx, a, pub.StatusShortlisted, &notes); err != nil {
		t.Fatalf("UpdateApplicantStatus: %v", err)
	}
	got, err := repo.GetApplicant(ctx, a)
	if err != nil || got.Status != pub.StatusShortlisted || got.Notes != notes {
		t.Fatalf("unexpected applicant %#v, %v", got, err)
	}

	n, err := repo.BulkUpdateStatus(ctx, []int64{b, c, c, 999}, pub.StatusRejected, "position filled")
	if err != nil || n != 2 {
		t.Fatalf("BulkUpdateStatus: %d, %v", n, err)
	}
	if got, _ := repo.GetApplicant(ctx, c); got.Notes != "position filled" {
		t.Fatalf("bulk notes not applied: %q", got.Notes)
	}
	if got, _ := repo.GetApplicant(ctx, a); got.Notes != notes {
		t.Fatalf("bulk notes leaked to an unselected applicant: %q", got.Notes)
	}
	if n, err := repo.BulkUpdateStatus(ctx, nil, pub.StatusRejected, ""); err != nil || n != 0 {
		t.Fatalf("empty bulk: %d, %v", n, err)
	}

	if err := repo.UpdateNotes(ctx, b, "no visa"); err != nil {
		t.Fatalf("UpdateNotes: %v", err)
	}

	stats, err := repo.DashboardStats(ctx, time.Now().Add(-time.Hour).UnixMilli(), 2)
	if err != nil {
		t.Fatalf("DashboardStats: %v", err)
	}
	if stats.TotalApplicants != 3 || stats.TotalJobs != 1 || stats.ShortlistedApplicants != 1 || stats.RejectedApplicants != 2 || stats.NewApplicants != 0 {
		t.Fatalf("unexpected stats %#v", stats)
	}
	if len(stats.RecentApplicants) != 2 || stats.RecentApplicants[0].Name != "cy" {
		t.Fatalf("unexpected recent applicants %#v", stats.RecentApplicants)
	}

	if _, err := repo.BulkUpdateStatus(ctx, []int64{a}, pub.Status("archived"), ""); err == nil {
		t.Fatalf("expected CHECK constraint to reject unknown status")
	}
	got, _ = repo.GetApplicant(ctx, a)
	if got.Status != pub.StatusShortlisted {
		t.Fatalf("failed bulk update must not change status, got %s", got.Status)
	}
}

func TestTaskQueue(t *testing.T) {
	repo, cleanup := setupRepo(t)
	defer cleanup()
	ctx := context.Background()

	if task, err := repo.ClaimNext(ctx); err != nil || task != nil {
		t.Fatalf("expected empty queue, got %#v, %v", task, err)
	}

	id, err := repo.Enqueue(ctx, &models.Task{Type: "applicant.score", Payload: []byte(`{"applicant_id":1}`)})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	task, err := repo.ClaimNext(ctx)
	if err != nil || task == nil || task.ID != id || task.Status != "running" || task.MaxAttempts != 5 {
		t.Fatalf("ClaimNext: %#v, %v", task, err)
	}
	if again, _ := repo.ClaimNext(ctx); again != nil {
		t.Fatalf("a running task must not be claimed twice")
	}

	next := time.Now().Add(-time.Second)
	task.Status, task.Attempts, task.NextTryAt, task.LastError = "retry", 1, &next, "boom"
	if err := repo.UpdateTask(ctx, task); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	task, err = repo.ClaimNext(ctx)
	if err != nil || task == nil || task.Attempts != 1 || task.LastError != "boom" {
		t.Fatalf("reclaim: %#v, %v", task, err)
	}

	if err := repo.MoveToDeadLetter(ctx, task); err != nil {
		t.Fatalf("MoveToDeadLetter: %v", err)
	}
	if task, _ := repo.ClaimNext(ctx); task != nil {
		t.Fatalf("dead-lettered task must be gone")
	}
}

package api_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/garnizeh/ats/internal/config"
	"github.com/garnizeh/ats/internal/export"
	"github.com/garnizeh/ats/internal/projection"
	"github.com/garnizeh/ats/internal/session"
	"github.com/garnizeh/ats/pkg/atsapi"
	"github.com/garnizeh/ats/pkg/models"
	"github.com/garnizeh/ats/pkg/repository/mock"
)

// The recruiter client end to end against the sandbox collaborator.
func TestClientAgainstSandbox(t *testing.T) {
	s := newSandbox(t)
	ctx := context.Background()

	sess, err := session.Open(ctx, &mock.SessionRepo{})
	if err != nil {
		t.Fatalf("session.Open: %v", err)
	}
	cfg := config.ClientConfig{BaseURL: s.srv.URL + "/api", Timeout: 5 * time.Second, Backoff: time.Millisecond}
	client, err := atsapi.NewClient(cfg, s.srv.Client(), sess)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	if _, err := sess.Register(ctx, client, models.Registration{Username: "rita", Password: "pw", Email: "rita@example.com"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	me, err := client.CurrentUser(ctx)
	if err != nil || me.Username != "rita" {
		t.Fatalf("current user: %+v %v", me, err)
	}

	job, err := client.CreateJob(ctx, models.JobInput{Title: "Backend", Description: "Go services", Location: "Remote", IsActive: true})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	jobs, err := client.ListJobs(ctx)
	if err != nil || len(jobs) != 1 || jobs[0].ID != job.ID {
		t.Fatalf("list jobs from a page: %+v %v", jobs, err)
	}

	form := models.ApplicationForm{
		Name:     "Ada",
		Email:    "ada@example.com",
		Job:      job.ID,
		JobTitle: job.Title,
		Resume:   &models.File{Name: "ada.txt", Data: []byte("Go and Docker")},
	}
	res, err := client.SubmitApplication(ctx, form)
	if err != nil || !res.Success {
		t.Fatalf("submit: %+v %v", res, err)
	}
	if _, err := client.SubmitApplication(ctx, form); !errors.Is(err, atsapi.ErrAlreadyApplied) {
		t.Fatalf("expected ErrAlreadyApplied, got %v", err)
	}

	a, err := client.UpdateStatus(ctx, res.ApplicationID, models.StatusReviewed, "")
	if err != nil || a.Status != models.StatusReviewed {
		t.Fatalf("update status: %+v %v", a, err)
	}

	dir := t.TempDir()
	path, _, err := export.Export(ctx, client, dir, projection.Filter{Status: "reviewed"})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer f.Close()
	if n, err := export.CountRows(f); err != nil || n != 1 {
		t.Fatalf("exported rows = %d, %v", n, err)
	}

	if _, err := client.GetApplicant(ctx, 999); !errors.Is(err, atsapi.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// a token the server rejects ends the session
	if err := sess.Establish(ctx, models.AuthResult{Token: "forged", UserID: 1, Username: "rita"}); err != nil {
		t.Fatalf("establish: %v", err)
	}
	if _, err := client.ListApplicants(ctx, nil); !errors.Is(err, atsapi.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if sess.Authenticated() {
		t.Fatalf("session should be torn down after a 401")
	}
}

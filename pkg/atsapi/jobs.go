package atsapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/garnizeh/ats/pkg/models"
)

func (c *Client) ListJobs(ctx context.Context) ([]models.Job, error) {
	return getList[models.Job](ctx, c, "jobs/", nil, true)
}

func (c *Client) GetJob(ctx context.Context, id int64) (models.Job, error) {
	var j models.Job
	err := c.call(ctx, request{method: http.MethodGet, path: jobPath(id), auth: true}, &j)
	return j, err
}

func (c *Client) CreateJob(ctx context.Context, in models.JobInput) (models.Job, error) {
	r, err := jsonRequest(http.MethodPost, "jobs/", in, true)
	if err != nil {
		return models.Job{}, err
	}
	var j models.Job
	err = c.call(ctx, r, &j)
	return j, err
}

func (c *Client) UpdateJob(ctx context.Context, id int64, in models.JobInput) (models.Job, error) {
	r, err := jsonRequest(http.MethodPut, jobPath(id), in, true)
	if err != nil {
		return models.Job{}, err
	}
	var j models.Job
	err = c.call(ctx, r, &j)
	return j, err
}

func (c *Client) DeleteJob(ctx context.Context, id int64) error {
	return c.call(ctx, request{method: http.MethodDelete, path: jobPath(id), auth: true}, nil)
}

// PublicJobs lists active jobs without authentication.
func (c *Client) PublicJobs(ctx context.Context) ([]models.Job, error) {
	return getList[models.Job](ctx, c, "public/jobs/", nil, false)
}

func (c *Client) PublicJob(ctx context.Context, id int64) (models.Job, error) {
	var j models.Job
	err := c.call(ctx, request{method: http.MethodGet, path: "public/jobs/" + strconv.FormatInt(id, 10) + "/"}, &j)
	return j, err
}

// SubmitApplication posts a candidate application. A duplicate application
// yields an error matching ErrAlreadyApplied.
func (c *Client) SubmitApplication(ctx context.Context, form models.ApplicationForm) (models.SubmissionResult, error) {
	r, err := multipartRequest("public/applications/", form, false)
	if err != nil {
		return models.SubmissionResult{}, err
	}
	var res models.SubmissionResult
	err = c.call(ctx, r, &res)
	return res, err
}

func jobPath(id int64) string {
	return "jobs/" + strconv.FormatInt(id, 10) + "/"
}

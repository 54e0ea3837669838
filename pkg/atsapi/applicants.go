package atsapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"github.com/garnizeh/ats/pkg/models"
)

// ListApplicants fetches applicants matching q. Only non-empty filter values
// should be present in q.
func (c *Client) ListApplicants(ctx context.Context, q url.Values) ([]models.Applicant, error) {
	return getList[models.Applicant](ctx, c, "applicants/", q, true)
}

func (c *Client) GetApplicant(ctx context.Context, id int64) (models.Applicant, error) {
	var a models.Applicant
	err := c.call(ctx, request{method: http.MethodGet, path: applicantPath(id), auth: true}, &a)
	return a, err
}

// UploadApplicant creates an applicant on behalf of a recruiter.
func (c *Client) UploadApplicant(ctx context.Context, form models.ApplicationForm) (models.Applicant, error) {
	r, err := multipartRequest("applicants/", form, true)
	if err != nil {
		return models.Applicant{}, err
	}
	r.auth = true

	var a models.Applicant
	err = c.call(ctx, r, &a)
	return a, err
}

// UpdateStatus moves one applicant to status. notes is sent only when non-empty.
func (c *Client) UpdateStatus(ctx context.Context, id int64, status models.Status, notes string) (models.Applicant, error) {
	r, err := jsonRequest(http.MethodPost, applicantPath(id)+"update_status/", models.StatusUpdate{Status: status, Notes: notes}, true)
	if err != nil {
		return models.Applicant{}, err
	}

	var a models.Applicant
	err = c.call(ctx, r, &a)
	return a, err
}

// BulkUpdateStatus moves every listed applicant to status in one request.
func (c *Client) BulkUpdateStatus(ctx context.Context, ids []int64, status models.Status) (models.BulkResult, error) {
	r, err := jsonRequest(http.MethodPost, "applicants/bulk_update_status/", models.BulkStatusUpdate{ApplicantIDs: ids, Status: status}, true)
	if err != nil {
		return models.BulkResult{}, err
	}

	var res models.BulkResult
	err = c.call(ctx, r, &res)
	return res, err
}

func (c *Client) UpdateNotes(ctx context.Context, id int64, notes string) (models.Applicant, error) {
	r, err := jsonRequest(http.MethodPatch, applicantPath(id), map[string]string{"notes": notes}, true)
	if err != nil {
		return models.Applicant{}, err
	}

	var a models.Applicant
	err = c.call(ctx, r, &a)
	return a, err
}

// ExportCSV streams the CSV export for q into w and returns the bytes written.
func (c *Client) ExportCSV(ctx context.Context, q url.Values, w io.Writer) (int64, error) {
	resp, release, err := c.send(ctx, request{method: http.MethodGet, path: "applicants/export_csv/", query: q, auth: true})
	if err != nil {
		return 0, err
	}
	defer release()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("export csv: %w", err)
	}
	return n, nil
}

func (c *Client) DashboardStats(ctx context.Context) (models.DashboardStats, error) {
	var s models.DashboardStats
	err := c.call(ctx, request{method: http.MethodGet, path: "applicants/dashboard_stats/", auth: true}, &s)
	if s.RecentApplicants == nil {
		s.RecentApplicants = []models.Applicant{}
	}
	return s, err
}

func applicantPath(id int64) string {
	return "applicants/" + strconv.FormatInt(id, 10) + "/"
}

// multipartRequest encodes an application form. recruiter adds the
// parse_resume flag of the upload flow; candidates send the job title.
func multipartRequest(path string, form models.ApplicationForm, recruiter bool) (request, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"name", form.Name},
		{"email", form.Email},
		{"job", strconv.FormatInt(form.Job, 10)},
	}
	if !recruiter && form.JobTitle != "" {
		fields = append(fields, [2]string{"job_title", form.JobTitle})
	}
	if form.Phone != "" {
		fields = append(fields, [2]string{"phone", form.Phone})
	}
	if form.CoverLetter != "" {
		fields = append(fields, [2]string{"cover_letter", form.CoverLetter})
	}
	if recruiter {
		fields = append(fields, [2]string{"parse_resume", strconv.FormatBool(form.ParseResume)})
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return request{}, err
		}
	}

	if form.Resume != nil {
		fw, err := mw.CreateFormFile("resume", form.Resume.Name)
		if err != nil {
			return request{}, err
		}
		if _, err := fw.Write(form.Resume.Data); err != nil {
			return request{}, err
		}
	}
	if err := mw.Close(); err != nil {
		return request{}, err
	}

	return request{
		method:      http.MethodPost,
		path:        path,
		body:        buf.Bytes(),
		contentType: mw.FormDataContentType(),
	}, nil
}

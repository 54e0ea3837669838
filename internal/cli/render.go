package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/garnizeh/ats/pkg/models"
)

const dateLayout = "2006-01-02 15:04"

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func row(w io.Writer, cols ...string) {
	fmt.Fprintln(w, strings.Join(cols, "\t"))
}

func date(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(dateLayout)
}

func dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func id(n int64) string { return strconv.FormatInt(n, 10) }

func active(b bool) string {
	if b {
		return "active"
	}
	return "inactive"
}

func renderJobs(w io.Writer, jobs []models.Job, counts bool) error {
	if len(jobs) == 0 {
		_, err := fmt.Fprintln(w, "No jobs found.")
		return err
	}
	t := newTable(w)
	if counts {
		row(t, "ID", "TITLE", "LOCATION", "SALARY", "STATUS", "APPLICANTS", "NEW", "CREATED")
	} else {
		row(t, "ID", "TITLE", "LOCATION", "SALARY", "POSTED")
	}
	for _, j := range jobs {
		if counts {
			row(t, id(j.ID), j.Title, j.Location, dash(j.SalaryRange), active(j.IsActive),
				strconv.Itoa(j.ApplicationCount), strconv.Itoa(j.NewApplicationsCount), date(j.CreatedAt))
			continue
		}
		row(t, id(j.ID), j.Title, j.Location, dash(j.SalaryRange), date(j.CreatedAt))
	}
	return t.Flush()
}

func renderJob(w io.Writer, j models.Job) error {
	t := newTable(w)
	row(t, "ID:", id(j.ID))
	row(t, "Title:", j.Title)
	row(t, "Location:", j.Location)
	row(t, "Salary:", dash(j.SalaryRange))
	row(t, "Status:", active(j.IsActive))
	row(t, "Posted:", date(j.CreatedAt))
	if err := t.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\nDescription:\n%s\n", j.Description)
	if strings.TrimSpace(j.Requirements) != "" {
		fmt.Fprintf(w, "\nRequirements:\n%s\n", j.Requirements)
	}
	return nil
}

func renderApplicants(w io.Writer, list []models.Applicant) error {
	if len(list) == 0 {
		_, err := fmt.Fprintln(w, "No applicants found.")
		return err
	}
	t := newTable(w)
	row(t, "ID", "NAME", "EMAIL", "JOB", "STATUS", "SCORE", "APPLIED")
	for _, a := range list {
		row(t, id(a.ID), a.Name, a.Email, dash(a.JobTitle), a.Status.Label(),
			strconv.Itoa(a.MatchScore)+"%", date(a.CreatedAt))
	}
	return t.Flush()
}

func renderApplicant(w io.Writer, a models.Applicant) error {
	t := newTable(w)
	row(t, "ID:", id(a.ID))
	row(t, "Name:", a.Name)
	row(t, "Email:", a.Email)
	row(t, "Phone:", dash(a.Phone))
	row(t, "Job:", fmt.Sprintf("%s (#%d)", dash(a.JobTitle), a.Job))
	row(t, "Status:", a.Status.Label())
	row(t, "Match score:", strconv.Itoa(a.MatchScore)+"%")
	row(t, "Keywords:", dash(strings.Join(a.KeywordList(), ", ")))
	row(t, "Resume:", dash(a.ResumeURL))
	row(t, "Applied:", date(a.CreatedAt))
	row(t, "Updated:", date(a.UpdatedAt))
	if err := t.Flush(); err != nil {
		return err
	}
	if strings.TrimSpace(a.CoverLetter) != "" {
		fmt.Fprintf(w, "\nCover letter:\n%s\n", a.CoverLetter)
	}
	if strings.TrimSpace(a.Notes) != "" {
		fmt.Fprintf(w, "\nNotes:\n%s\n", a.Notes)
	}
	return nil
}

func renderStats(w io.Writer, s models.DashboardStats) error {
	t := newTable(w)
	row(t, "Total applicants:", strconv.Itoa(s.TotalApplicants))
	row(t, "Jobs:", strconv.Itoa(s.TotalJobs))
	for _, st := range models.AllStatuses() {
		row(t, st.Label()+":", strconv.Itoa(s.Count(st)))
	}
	if err := t.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(w, "\nRecent applicants:")
	return renderApplicants(w, s.RecentApplicants)
}

package cli

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/garnizeh/ats/internal/validate"
	"github.com/garnizeh/ats/pkg/atsapi"
	"github.com/garnizeh/ats/pkg/models"
)

// careers is the candidate side of the API and needs no login.
func newCareersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "careers",
		Short: "Browse open positions and apply as a candidate",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "jobs",
			Short: "List open positions",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				jobs, err := a.client.PublicJobs(cmd.Context())
				if err != nil {
					return err
				}
				return renderJobs(a.io.Out, jobs, false)
			},
		},
		&cobra.Command{
			Use:   "show ID",
			Short: "Show an open position",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				jobID, err := parseID(args[0])
				if err != nil {
					return err
				}
				job, err := a.client.PublicJob(cmd.Context(), jobID)
				if err != nil {
					return err
				}
				return renderJob(a.io.Out, job)
			},
		},
		newCareersApplyCmd(a),
	)
	return cmd
}

func newCareersApplyCmd(a *app) *cobra.Command {
	var form models.ApplicationForm
	cmd := &cobra.Command{
		Use:   "apply JOB_ID RESUME",
		Short: "Apply for a position with a resume file (PDF, DOC, DOCX, RTF or TXT)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobID, err := parseID(args[0])
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			job, err := a.client.PublicJob(cmd.Context(), jobID)
			if err != nil {
				return err
			}
			form.Job = jobID
			form.JobTitle = job.Title
			form.Resume = &models.File{Name: filepath.Base(args[1]), Data: data}
			if err := validate.PublicApplication(form); err != nil {
				return err
			}
			res, err := a.client.SubmitApplication(cmd.Context(), form)
			if errors.Is(err, atsapi.ErrAlreadyApplied) {
				a.printf("%s\n", atsapi.MsgAlreadyApplied)
				return nil
			}
			if err != nil {
				return err
			}
			a.printf("%s (application #%d)\n", res.Message, res.ApplicationID)
			return nil
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&form.Name, "name", "", "Your full name (required)")
	fs.StringVar(&form.Email, "email", "", "Your email (required)")
	fs.StringVar(&form.Phone, "phone", "", "Your phone number")
	fs.StringVar(&form.CoverLetter, "cover-letter", "", "Cover letter text")
	return cmd
}

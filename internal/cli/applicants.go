package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/garnizeh/ats/internal/export"
	"github.com/garnizeh/ats/internal/projection"
	"github.com/garnizeh/ats/internal/validate"
	"github.com/garnizeh/ats/internal/views"
	"github.com/garnizeh/ats/internal/workflow"
	"github.com/garnizeh/ats/pkg/models"
)

func newApplicantsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "applicants",
		Aliases: []string{"app"},
		Short:   "Review applicants and move them through the pipeline",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd.Context()); err != nil {
				return err
			}
			return a.requireLogin()
		},
	}
	cmd.AddCommand(
		newApplicantsListCmd(a),
		newApplicantsShowCmd(a),
		newApplicantsStatusCmd(a),
		newApplicantsBulkCmd(a),
		newApplicantsNotesCmd(a),
		newApplicantsUploadCmd(a),
		newApplicantsExportCmd(a),
	)
	return cmd
}

func filterFlags(fs *pflag.FlagSet, f *projection.Filter) {
	fs.StringVar(&f.Job, "job", "", "Only applicants for this job id")
	fs.StringVar(&f.Status, "status", "", "Only applicants with this status")
	fs.StringVar(&f.Search, "search", "", "Match name, email or keywords")
	fs.StringVar(&f.DateFrom, "from", "", "Applied on or after this date (YYYY-MM-DD)")
	fs.StringVar(&f.DateTo, "to", "", "Applied on or before this date (YYYY-MM-DD)")
	fs.StringVar(&f.MinScore, "min-score", "", "Minimum match score, 0 to 100")
}

// statusFlow returns a workflow that refetches the shared store and the
// given views after every successful mutation.
func (a *app) statusFlow(refreshers ...workflow.Refresher) *workflow.Workflow {
	wf := workflow.New(a.client, a, a, a.logger)
	wf.Register(a.sharedStore())
	wf.Register(refreshers...)
	return wf
}

// showRefreshed prints the refetched list and the new-applicant badge.
func (a *app) showRefreshed(list *views.ApplicantList) error {
	if err := renderApplicants(a.io.Out, list.Items()); err != nil {
		return err
	}
	return a.printBadge(views.DeriveBadge(a.sharedStore().Snapshot().Applicants))
}

func newApplicantsListCmd(a *app) *cobra.Command {
	var (
		f       projection.Filter
		sortArg string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List applicants matching the filters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := projection.ParseSort(sortArg)
			if err != nil {
				return err
			}
			list := views.NewApplicantList(a.client, a.logger)
			list.SetSort(s)
			if err := list.SetFilter(cmd.Context(), f); err != nil {
				return err
			}
			return renderApplicants(a.io.Out, list.Items())
		},
	}
	filterFlags(cmd.Flags(), &f)
	cmd.Flags().StringVar(&sortArg, "sort", projection.DefaultSort.String(), "Sort as key:direction, key one of date, score, name")
	return cmd
}

func newApplicantsShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show one applicant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appID, err := parseID(args[0])
			if err != nil {
				return err
			}
			ap, err := a.client.GetApplicant(cmd.Context(), appID)
			if err != nil {
				return err
			}
			return renderApplicant(a.io.Out, ap)
		},
	}
}

func newApplicantsStatusCmd(a *app) *cobra.Command {
	var notes string
	cmd := &cobra.Command{
		Use:   "status ID STATUS",
		Short: "Move an applicant to a new status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			appID, err := parseID(args[0])
			if err != nil {
				return err
			}
			target, err := models.ParseStatus(args[1])
			if err != nil {
				return err
			}
			ap, err := a.client.GetApplicant(cmd.Context(), appID)
			if err != nil {
				return err
			}

			// the applicants of the same job, refetched after the change
			list := views.NewApplicantList(a.client, a.logger)
			if err := list.SetFilter(cmd.Context(), projection.Filter{Job: id(ap.Job)}); err != nil {
				return err
			}
			if _, err := a.statusFlow(list).UpdateStatus(cmd.Context(), ap, target, notes); err != nil {
				return cancelled(err)
			}
			return a.showRefreshed(list)
		},
	}
	cmd.Flags().StringVar(&notes, "notes", "", "Replace the recruiter notes in the same request")
	return cmd
}

func newApplicantsBulkCmd(a *app) *cobra.Command {
	var (
		f   projection.Filter
		all bool
	)
	cmd := &cobra.Command{
		Use:   "bulk STATUS [ID...]",
		Short: "Move several applicants to a status at once",
		Long: `Move the given applicants, or with --all every applicant matching the
filters, to STATUS in a single request.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := models.ParseStatus(args[0])
			if err != nil {
				return err
			}
			if all == (len(args) > 1) {
				return fmt.Errorf("give either applicant ids or --all")
			}

			list := views.NewApplicantList(a.client, a.logger)
			if err := list.SetFilter(cmd.Context(), f); err != nil {
				return err
			}
			sel := list.Selection()
			if all {
				sel.SelectAll(list.VisibleIDs())
			} else {
				for _, arg := range args[1:] {
					appID, err := parseID(arg)
					if err != nil {
						return err
					}
					sel.Add(appID)
				}
			}
			if sel.Len() == 0 {
				a.printf("No applicants selected.\n")
				return nil
			}

			if _, err := a.statusFlow(list).BulkUpdate(cmd.Context(), sel, target, list.StatusOf); err != nil {
				return cancelled(err)
			}
			return a.showRefreshed(list)
		},
	}
	filterFlags(cmd.Flags(), &f)
	cmd.Flags().BoolVar(&all, "all", false, "Select every applicant matching the filters")
	return cmd
}

func newApplicantsNotesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "notes ID TEXT",
		Short: "Replace the recruiter notes of an applicant",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			appID, err := parseID(args[0])
			if err != nil {
				return err
			}
			_, err = a.statusFlow().SaveNotes(cmd.Context(), appID, args[1])
			return err
		},
	}
}

func newApplicantsUploadCmd(a *app) *cobra.Command {
	var (
		form    models.ApplicationForm
		noParse bool
	)
	cmd := &cobra.Command{
		Use:   "upload FILE",
		Short: "Add an applicant from a resume file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			form.Resume = &models.File{Name: filepath.Base(args[0]), Data: data}
			if form.Name == "" {
				form.Name = validate.NameFromFilename(args[0])
			}
			form.ParseResume = !noParse
			if err := validate.RecruiterUpload(form); err != nil {
				return err
			}
			ap, err := a.client.UploadApplicant(cmd.Context(), form)
			if err != nil {
				return err
			}
			a.printf("Applicant #%d %s added to %s.\n", ap.ID, ap.Name, dash(ap.JobTitle))
			return nil
		},
	}
	fs := cmd.Flags()
	fs.Int64Var(&form.Job, "job", 0, "Job id (required)")
	fs.StringVar(&form.Name, "name", "", "Candidate name, guessed from the file name when omitted")
	fs.StringVar(&form.Email, "email", "", "Candidate email (required)")
	fs.StringVar(&form.Phone, "phone", "", "Candidate phone")
	fs.StringVar(&form.CoverLetter, "cover-letter", "", "Cover letter text")
	fs.BoolVar(&noParse, "no-parse", false, "Store the resume without extracting its text")
	return cmd
}

func newApplicantsExportCmd(a *app) *cobra.Command {
	var (
		f   projection.Filter
		dir string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Download matching applicants as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, n, err := export.Export(cmd.Context(), a.client, dir, f)
			if err != nil {
				return err
			}
			a.printf("Wrote %d bytes to %s.\n", n, path)
			return nil
		},
	}
	filterFlags(cmd.Flags(), &f)
	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "Directory to write "+export.FileName+" into")
	return cmd
}

package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/garnizeh/ats/internal/views"
	"github.com/garnizeh/ats/internal/workflow"
	"github.com/garnizeh/ats/pkg/models"
)

func newJobsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Manage job postings",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd.Context()); err != nil {
				return err
			}
			return a.requireLogin()
		},
	}
	cmd.AddCommand(
		newJobsListCmd(a),
		newJobsShowCmd(a),
		newJobsCreateCmd(a),
		newJobsUpdateCmd(a),
		newJobsDeleteCmd(a),
		newJobsToggleCmd(a),
	)
	return cmd
}

func (a *app) jobsView() *views.Jobs {
	return views.NewJobs(a.client, a, a, a.logger)
}

func newJobsListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every job posting with its applicant counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := a.jobsView()
			if err := v.Load(cmd.Context()); err != nil {
				return err
			}
			return renderJobs(a.io.Out, v.Items(), true)
		},
	}
}

func newJobsShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show one job posting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobID, err := parseID(args[0])
			if err != nil {
				return err
			}
			job, err := a.client.GetJob(cmd.Context(), jobID)
			if err != nil {
				return err
			}
			return renderJob(a.io.Out, job)
		},
	}
}

func jobFlags(fs *pflag.FlagSet, in *models.JobInput) {
	fs.StringVar(&in.Title, "title", "", "Job title")
	fs.StringVar(&in.Description, "description", "", "Job description")
	fs.StringVar(&in.Requirements, "requirements", "", "Requirements")
	fs.StringVar(&in.Location, "location", "", "Location")
	fs.StringVar(&in.SalaryRange, "salary", "", "Salary range, free text")
	fs.BoolVar(&in.IsActive, "active", true, "Accept applications")
}

func newJobsCreateCmd(a *app) *cobra.Command {
	var in models.JobInput
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Post a new job",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := a.jobsView().Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			a.printf("Job #%d %q created.\n", job.ID, job.Title)
			return nil
		},
	}
	jobFlags(cmd.Flags(), &in)
	return cmd
}

func newJobsUpdateCmd(a *app) *cobra.Command {
	var in models.JobInput
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Change a job posting; omitted flags keep their value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobID, err := parseID(args[0])
			if err != nil {
				return err
			}
			job, err := a.client.GetJob(cmd.Context(), jobID)
			if err != nil {
				return err
			}
			merged := job.Input()
			fs := cmd.Flags()
			for name, set := range map[string]func(){
				"title":        func() { merged.Title = in.Title },
				"description":  func() { merged.Description = in.Description },
				"requirements": func() { merged.Requirements = in.Requirements },
				"location":     func() { merged.Location = in.Location },
				"salary":       func() { merged.SalaryRange = in.SalaryRange },
				"active":       func() { merged.IsActive = in.IsActive },
			} {
				if fs.Changed(name) {
					set()
				}
			}
			if _, err := a.jobsView().Update(cmd.Context(), jobID, merged); err != nil {
				return err
			}
			return nil
		},
	}
	jobFlags(cmd.Flags(), &in)
	return cmd
}

func newJobsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a job posting and its applicants",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobID, err := parseID(args[0])
			if err != nil {
				return err
			}
			job, err := a.client.GetJob(cmd.Context(), jobID)
			if err != nil {
				return err
			}
			// counts only come with the list
			v := a.jobsView()
			if err := v.Load(cmd.Context()); err == nil {
				for _, j := range v.Items() {
					if j.ID == jobID {
						job = j
					}
				}
			}
			return cancelled(v.Delete(cmd.Context(), job))
		},
	}
}

func newJobsToggleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle ID",
		Short: "Activate or deactivate a job posting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobID, err := parseID(args[0])
			if err != nil {
				return err
			}
			job, err := a.client.GetJob(cmd.Context(), jobID)
			if err != nil {
				return err
			}
			_, err = a.jobsView().ToggleActive(cmd.Context(), job)
			return cancelled(err)
		},
	}
}

func parseID(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return n, nil
}

// cancelled turns a declined confirmation into a quiet no-op.
func cancelled(err error) error {
	if errors.Is(err, workflow.ErrCancelled) {
		return nil
	}
	return err
}

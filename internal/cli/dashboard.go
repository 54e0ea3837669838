package cli

import (
	"github.com/spf13/cobra"

	"github.com/garnizeh/ats/internal/views"
)

func newDashboardCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show pipeline statistics and the latest applicants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			d := views.NewDashboard(a.client)
			if err := d.Load(cmd.Context()); err != nil {
				return err
			}
			return renderStats(a.io.Out, d.Stats())
		},
	}
}

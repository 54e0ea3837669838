package cli

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/garnizeh/ats/internal/poller"
	"github.com/garnizeh/ats/internal/session"
	"github.com/garnizeh/ats/internal/store"
	"github.com/garnizeh/ats/internal/views"
)

func newWatchCmd(a *app) *cobra.Command {
	var (
		interval time.Duration
		once     bool
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Report new applicants as they arrive",
		Long: `watch polls the applicant list and prints the new-applicant badge whenever
it changes. It stops on interrupt or when the session expires.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			if !cmd.Flags().Changed("interval") {
				interval = a.cfg.Client.PollInterval
			}

			st := a.sharedStore()

			if once {
				if err := st.Refresh(cmd.Context()); err != nil {
					return err
				}
				return a.printBadge(views.DeriveBadge(st.Snapshot().Applicants))
			}
			return a.watch(cmd.Context(), st, interval)
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", poller.DefaultInterval, "Time between polls")
	cmd.Flags().BoolVar(&once, "once", false, "Poll once, print the badge and exit")
	return cmd
}

func (a *app) watch(parent context.Context, st *store.Store, interval time.Duration) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	stop := context.AfterFunc(a.session.Context(), cancel)
	defer stop()

	notif := views.NewNotifications(st)
	var last views.Badge
	first := true
	notif.OnChange(func(b views.Badge) {
		if !first && sameBadge(last, b) {
			return
		}
		first = false
		last = b
		if err := a.printBadge(b); err != nil {
			a.logger.Warn("print badge", "err", err)
		}
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return notif.Run(gctx) })

	p := poller.New(st, interval, a.logger)
	p.Start(gctx)
	defer p.Stop()

	err := g.Wait()
	if a.session.Context().Err() != nil {
		return fmt.Errorf("%w: session expired", session.ErrNotLoggedIn)
	}
	if parent.Err() != nil || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func sameBadge(x, y views.Badge) bool {
	ids := func(b views.Badge) []int64 {
		out := make([]int64, len(b.Preview))
		for i, ap := range b.Preview {
			out[i] = ap.ID
		}
		return out
	}
	return x.Count == y.Count && slices.Equal(ids(x), ids(y))
}

func (a *app) printBadge(b views.Badge) error {
	if b.Count == 0 {
		_, err := fmt.Fprintf(a.io.Out, "[%s] No new applicants.\n", time.Now().Format(time.TimeOnly))
		return err
	}
	fmt.Fprintf(a.io.Out, "[%s] %d new applicant(s)\n", time.Now().Format(time.TimeOnly), b.Count)
	t := newTable(a.io.Out)
	for _, ap := range b.Preview {
		row(t, "  #"+id(ap.ID), ap.Name, dash(ap.JobTitle), date(ap.CreatedAt))
	}
	return t.Flush()
}

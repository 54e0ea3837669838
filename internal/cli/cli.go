// Package cli implements the ats recruiter command line client.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	dbfs "github.com/garnizeh/ats/db"
	"github.com/garnizeh/ats/internal/config"
	"github.com/garnizeh/ats/internal/db"
	"github.com/garnizeh/ats/internal/repository/sqlite"
	"github.com/garnizeh/ats/internal/session"
	"github.com/garnizeh/ats/internal/store"
	"github.com/garnizeh/ats/internal/workflow"
	"github.com/garnizeh/ats/pkg/atsapi"
)

// IO bundles the streams commands read from and write to.
type IO struct {
	In     io.Reader
	Out    io.Writer
	ErrOut io.Writer
}

type app struct {
	io IO
	in *bufio.Reader

	configPath  string
	baseURL     string
	sessionPath string
	logLevel    string
	yes         bool

	cfg     *config.Config
	logger  *slog.Logger
	conn    *db.DB
	session *session.Session
	client  *atsapi.Client
	store   *store.Store
}

// Execute runs the ats command tree with args. Whatever the command opened
// is closed before it returns, whether or not the command failed.
func Execute(ctx context.Context, streams IO, args []string) (err error) {
	a := &app{io: streams, in: bufio.NewReader(streams.In)}
	defer func() {
		if cerr := a.close(); err == nil {
			err = cerr
		}
	}()
	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

func newRootCmd(a *app) *cobra.Command {
	streams := a.io
	cmd := &cobra.Command{
		Use:   "ats",
		Short: "Recruiter client for the ATS REST API",
		Long: `ats talks to an ATS REST collaborator: manage job postings, review and move
applicants through the pipeline, export them as CSV and watch for new arrivals.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.Context())
		},
	}
	cmd.SetIn(streams.In)
	cmd.SetOut(streams.Out)
	cmd.SetErr(streams.ErrOut)

	pf := cmd.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "Path to config YAML file")
	pf.StringVar(&a.baseURL, "base-url", "", "ATS API base URL (overrides config)")
	pf.StringVar(&a.sessionPath, "session", "", "Session store path (overrides config)")
	pf.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	pf.BoolVarP(&a.yes, "yes", "y", false, "Answer yes to every confirmation")

	cmd.AddCommand(
		newLoginCmd(a),
		newRegisterCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newJobsCmd(a),
		newApplicantsCmd(a),
		newDashboardCmd(a),
		newWatchCmd(a),
		newCareersCmd(a),
	)
	return cmd
}

func (a *app) setup(ctx context.Context) error {
	if a.client != nil {
		return nil
	}
	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.baseURL != "" {
		cfg.Client.BaseURL = a.baseURL
	}
	if a.sessionPath != "" {
		cfg.Client.SessionPath = a.sessionPath
	}
	if a.logLevel != "" {
		cfg.Client.LogLevel = a.logLevel
	}
	if err := cfg.Client.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	a.cfg = cfg

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Client.LogLevel)); err != nil {
		level = slog.LevelWarn
	}
	a.logger = slog.New(slog.NewTextHandler(a.io.ErrOut, &slog.HandlerOptions{Level: level}))
	atsapi.SetLogger(a.logger)

	a.conn, err = db.New(ctx, cfg.Client.SessionPath)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	if err := db.Migrate(ctx, a.conn, dbfs.Migrations, dbfs.ClientMigrations); err != nil {
		return fmt.Errorf("migrate session store: %w", err)
	}

	a.session, err = session.Open(ctx, sqlite.New(a.conn, a.logger), session.WithLogger(a.logger))
	if err != nil {
		return err
	}
	a.client, err = atsapi.NewDefaultClient(cfg.Client, a.session)
	if err != nil {
		return err
	}
	return nil
}

// sharedStore is the process-wide unfiltered applicant list. Workflows
// refresh it after every mutation and watch polls it.
func (a *app) sharedStore() *store.Store {
	if a.store == nil {
		a.store = store.New(a.client, a.logger)
	}
	return a.store
}

func (a *app) close() error {
	if a.store != nil {
		a.store.Close()
		a.store = nil
	}
	var errs []error
	if a.client != nil {
		errs = append(errs, a.client.Close())
		a.client = nil
	}
	if a.conn != nil {
		errs = append(errs, a.conn.Close())
		a.conn = nil
	}
	return errors.Join(errs...)
}

// requireLogin fails commands that need a token when there is none.
func (a *app) requireLogin() error {
	if !a.session.Authenticated() {
		return fmt.Errorf("%w: run `ats login` first", session.ErrNotLoggedIn)
	}
	return nil
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.io.Out, format, args...)
}

// readLine prompts on ErrOut and reads one line of input.
func (a *app) readLine(prompt string) (string, error) {
	fmt.Fprint(a.io.ErrOut, prompt)
	line, err := a.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Confirm asks on the terminal unless --yes was given.
func (a *app) Confirm(ctx context.Context, p workflow.Prompt) (bool, error) {
	if a.yes {
		return true, nil
	}
	answer, err := a.readLine(fmt.Sprintf("%s: %s [y/N] ", p.Title, p.Message))
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func (a *app) Success(msg string) { fmt.Fprintln(a.io.Out, msg) }
func (a *app) Failure(msg string) { fmt.Fprintln(a.io.ErrOut, msg) }

package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/garnizeh/ats/pkg/models"
)

func newLoginCmd(a *app) *cobra.Command {
	var creds models.Credentials
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in as a recruiter and keep the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.ask(&creds.Username, "Username or email: "); err != nil {
				return err
			}
			if err := a.ask(&creds.Password, "Password: "); err != nil {
				return err
			}
			user, err := a.session.Login(cmd.Context(), a.client, creds)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			a.printf("Logged in as %s.\n", user.Username)
			return nil
		},
	}
	cmd.Flags().StringVarP(&creds.Username, "username", "u", "", "Username or email")
	cmd.Flags().StringVarP(&creds.Password, "password", "p", "", "Password (prompted when omitted)")
	return cmd
}

func newRegisterCmd(a *app) *cobra.Command {
	var reg models.Registration
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a recruiter account and log in with it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.ask(&reg.Username, "Username: "); err != nil {
				return err
			}
			if err := a.ask(&reg.Password, "Password: "); err != nil {
				return err
			}
			user, err := a.session.Register(cmd.Context(), a.client, reg)
			if err != nil {
				return fmt.Errorf("registration failed: %w", err)
			}
			a.printf("Account %s created. You are logged in.\n", user.Username)
			return nil
		},
	}
	cmd.Flags().StringVarP(&reg.Username, "username", "u", "", "Username")
	cmd.Flags().StringVarP(&reg.Email, "email", "e", "", "Email address (optional)")
	cmd.Flags().StringVarP(&reg.Password, "password", "p", "", "Password (prompted when omitted)")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.session.Logout(cmd.Context()); err != nil {
				return err
			}
			a.printf("Logged out.\n")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	var remote bool
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in recruiter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			user, _ := a.session.User()
			if remote {
				var err error
				if user, err = a.client.CurrentUser(cmd.Context()); err != nil {
					return err
				}
			}
			a.printf("%s (id %d)", user.Username, user.ID)
			if user.Email != "" {
				a.printf(" <%s>", user.Email)
			}
			a.printf("\n")
			return nil
		},
	}
	cmd.Flags().BoolVar(&remote, "remote", false, "Ask the server instead of the stored session")
	return cmd
}

// ask fills *dst from the terminal when the flag left it empty.
func (a *app) ask(dst *string, prompt string) error {
	if *dst != "" {
		return nil
	}
	v, err := a.readLine(prompt)
	if err != nil {
		return err
	}
	if v == "" {
		return errors.New("a value is required")
	}
	*dst = v
	return nil
}

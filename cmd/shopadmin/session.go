package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shopadmin/internal/apiclient"
	"github.com/shopadmin/internal/config"
	"github.com/shopadmin/internal/gate"
	"github.com/shopadmin/internal/model"
	"github.com/shopadmin/internal/service"
)

// passwordFrom returns the flag value, then $SHOPADMIN_PASSWORD, then a
// line read from stdin.
func passwordFrom(flag string, in io.Reader) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if env := os.Getenv("SHOPADMIN_PASSWORD"); env != "" {
		return env, nil
	}
	fmt.Fprint(os.Stderr, "Password: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// failure turns a classified error into the line shown to the user.
func failure(err error, fallback string) error {
	return errors.New(apiclient.Message(err, fallback))
}

// requireTier refuses a command before any network call when the stored
// session does not satisfy tier.
func (c *cli) requireTier(tier gate.Tier) error {
	snap := c.app.session.Snapshot()
	d := tier.Check(snap)
	if d.Allowed() {
		return nil
	}
	if !snap.IsAuthenticated() {
		return fmt.Errorf("not signed in; run `%s login` first", appName)
	}
	return fmt.Errorf("admin role required (signed in as %s)", snap.User.Email)
}

func loginCmd(c *cli) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := passwordFrom(password, cmd.InOrStdin())
			if err != nil {
				return err
			}
			user, err := c.app.session.Login(cmd.Context(), model.LoginRequest{Email: email, Password: pw})
			if err != nil {
				return failure(err, "Login failed. Please try again.")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", user.DisplayName(), user.Role)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password (default: $SHOPADMIN_PASSWORD or prompt)")
	cmd.MarkFlagRequired("email")
	return cmd
}

func registerCmd(c *cli) *cobra.Command {
	var form model.RegisterForm
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			if form.Password == "" {
				pw, err := passwordFrom("", cmd.InOrStdin())
				if err != nil {
					return err
				}
				form.Password = pw
			}
			if form.ConfirmPassword == "" {
				form.ConfirmPassword = form.Password
			}
			if err := form.Validate(); err != nil {
				return err
			}
			user, err := c.app.session.Register(cmd.Context(), form.RegisterRequest)
			if err != nil {
				return failure(err, "Registration failed. Please try again.")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered and signed in as %s\n", user.DisplayName())
			return nil
		},
	}
	cmd.Flags().StringVarP(&form.Email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&form.Password, "password", "p", "", "Account password")
	cmd.Flags().StringVar(&form.ConfirmPassword, "confirm", "", "Repeat the password (defaults to --password)")
	cmd.Flags().StringVar(&form.FirstName, "first-name", "", "First name")
	cmd.Flags().StringVar(&form.LastName, "last-name", "", "Last name")
	cmd.MarkFlagRequired("email")
	return cmd
}

func logoutCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored token",
		RunE: func(cmd *cobra.Command, args []string) error {
			c.app.session.Logout()
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func whoamiCmd(c *cli) *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireTier(gate.TierAuthenticated); err != nil {
				return err
			}
			if refresh {
				if _, err := c.app.session.Refresh(cmd.Context()); err != nil {
					return failure(err, "Failed to load profile")
				}
			}
			return printJSON(cmd.OutOrStdout(), c.app.session.Snapshot())
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Re-read the account from the server")
	return cmd
}

func callbackCmd(c *cli) *cobra.Command {
	var token, oauthErr string
	var printURL bool
	cmd := &cobra.Command{
		Use:   "callback",
		Short: "Complete a federated sign-in with the token from the callback URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			if printURL {
				fmt.Fprintln(cmd.OutOrStdout(), service.GoogleSignInURL(c.app.cfg.API.BaseURL))
				return nil
			}
			target, err := c.app.session.HandleCallback(token, oauthErr)
			if err != nil {
				return fmt.Errorf("%s (next: %s)", apiclient.Message(err, "Sign-in failed"), target)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", c.app.session.Snapshot().User.DisplayName())
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "Token query parameter of the callback")
	cmd.Flags().StringVar(&oauthErr, "error", "", "Error query parameter of the callback")
	cmd.Flags().BoolVar(&printURL, "url", false, "Print the URL that starts federated sign-in")
	return cmd
}

func statsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show dashboard figures",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireTier(gate.TierAuthenticated); err != nil {
				return err
			}
			stats, err := c.app.dashboard.Stats(cmd.Context())
			if err != nil {
				return failure(err, "Failed to load dashboard stats")
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Users:    %d\n", stats.Users.Int())
			fmt.Fprintf(out, "Orders:   %d\n", stats.Orders.Int())
			fmt.Fprintf(out, "Products: %d\n", stats.Products.Int())
			fmt.Fprintf(out, "Revenue:  %s\n", model.FormatMoney("$", stats.Revenue))
			return nil
		},
	}
}

func migrateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the credential tables of the postgres store",
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.app.cfg.Store.Backend != config.StorePostgres {
				return fmt.Errorf("store backend is %q; migrations only apply to %q", c.app.cfg.Store.Backend, config.StorePostgres)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
			return nil
		},
	}
}

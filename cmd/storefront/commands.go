package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/storefront/internal/storefront/app"
	"github.com/aussiebroadwan/storefront/pkg/authsdk"
	"github.com/aussiebroadwan/storefront/pkg/slogx"
)

var errNotLoggedIn = errors.New("not logged in (run: storefront login <username>)")

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "storefront",
		Short: "Storefront API client with a persistent login",
		Long: `storefront signs in to a storefront API and keeps the session alive
between runs. Configuration comes from the environment (or a .env file),
see STOREFRONT_API_URL and friends.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newLoginCommand(),
		newRegisterCommand(),
		newLogoutCommand(),
		newWhoamiCommand(),
		newGetCommand(),
		newRefreshCommand(),
	)
	return root
}

// withApp builds the application for one command and always closes it.
// restore runs Init first so a stored session is picked up.
func withApp(restore bool, run func(ctx context.Context, a *app.Application) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		if cmd.Context() == nil {
			cmd.SetContext(context.Background())
		}

		a, err := app.New(app.LoadConfig())
		if err != nil {
			return err
		}
		defer func() {
			if err := a.Close(); err != nil {
				a.Logger().Warn("shutdown failed", "error", err)
			}
		}()

		ctx := slogx.With(slogx.WithContext(cmd.Context(), a.Logger()), "command", cmd.Name())
		if restore {
			if err := a.Init(ctx); err != nil {
				return err
			}
		}
		return run(ctx, a)
	}
}

func newLoginCommand() *cobra.Command {
	var passwordFile string

	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Sign in and store the session",
		Long: `Sign in with a username and password. The password is read from
--password-file, or prompted for on the terminal if the flag is omitted
or "-".`,
		Args: cobra.ExactArgs(1),
	}
	cmd.Flags().StringVar(&passwordFile, "password-file", "", "path to a file containing the password, or - to prompt")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		password, err := readPassword(passwordFile)
		if err != nil {
			return err
		}

		return withApp(false, func(ctx context.Context, a *app.Application) error {
			user, err := a.Session().Login(ctx, args[0], password)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", user.Username)
			return nil
		})(cmd, args)
	}
	return cmd
}

func newRegisterCommand() *cobra.Command {
	var (
		req          authsdk.RegisterRequest
		passwordFile string
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account (does not sign in)",
		Args:  cobra.NoArgs,
	}
	flags := cmd.Flags()
	flags.StringVar(&req.Email, "email", "", "email address")
	flags.StringVar(&req.FirstName, "first-name", "", "first name")
	flags.StringVar(&req.LastName, "last-name", "", "last name")
	flags.StringVar(&req.Gender, "gender", "", "gender")
	flags.StringVar(&req.PhoneNumber, "phone", "", "phone number")
	flags.StringVar(&passwordFile, "password-file", "", "path to a file containing the password, or - to prompt")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		password, err := readPassword(passwordFile)
		if err != nil {
			return err
		}
		req.Password = password

		if errs := req.Validate(); errs != nil {
			for field, reason := range errs {
				fmt.Fprintf(cmd.ErrOrStderr(), "  %s: %s\n", field, reason)
			}
			return errors.New("invalid registration details")
		}

		return withApp(false, func(ctx context.Context, a *app.Application) error {
			user, err := a.Session().Register(ctx, req)
			if err != nil {
				return fmt.Errorf("registration failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s, log in with: storefront login %s\n", user.Email, user.Username)
			return nil
		})(cmd, args)
	}
	return cmd
}

func newLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and revoke the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(false, func(ctx context.Context, a *app.Application) error {
				// Restore so there is a renewal token to revoke. A broken
				// stored session is still cleared by Logout.
				if err := a.Init(ctx); err != nil {
					slogx.FromContext(ctx).Debug("stored session unusable", "error", err)
				}
				if err := a.Session().Logout(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
				return nil
			})(cmd, args)
		},
	}
}

func newWhoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Print the signed-in user's profile as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(true, func(ctx context.Context, a *app.Application) error {
				user := a.Session().User()
				if user == nil {
					return errNotLoggedIn
				}

				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(user)
			})(cmd, args)
		},
	}
}

func newGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <path>",
		Short: "GET an API path with the stored session and print the body",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(true, func(ctx context.Context, a *app.Application) error {
				req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.URL(args[0]), nil)
				if err != nil {
					return err
				}
				req.Header.Set("Accept", "application/json")

				resp, err := a.Session().HTTPClient().Do(req)
				if err != nil {
					return err
				}
				defer resp.Body.Close()

				if _, err := io.Copy(cmd.OutOrStdout(), resp.Body); err != nil {
					return err
				}
				if resp.StatusCode >= 300 {
					return fmt.Errorf("%s: HTTP %d", args[0], resp.StatusCode)
				}
				return nil
			})(cmd, args)
		},
	}
}

func newRefreshCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Exchange the renewal token for a new access token now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(true, func(ctx context.Context, a *app.Application) error {
				if !a.Session().Authenticated() {
					return errNotLoggedIn
				}
				if _, err := a.Session().Refresh(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Access token refreshed")
				return nil
			})(cmd, args)
		},
	}
}

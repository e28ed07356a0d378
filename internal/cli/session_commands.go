package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/drivemanager/drivectl/internal/config"
	"github.com/drivemanager/drivectl/internal/session"
)

// newLoginCmd creates the 'login' command.
func newLoginCmd() *cobra.Command {
	var token string
	var tokenFile string
	var username string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Long: `Sign in to the drive server.

With --username the password is prompted for (no echo on terminals) and
exchanged for a token. With --token, --token-file or DRIVE_TOKEN an existing
token is stored as-is. Without any of these, username and password are
prompted for.

Examples:
  drivectl login --username alice
  drivectl login --token-file ~/.drive-token
  DRIVE_TOKEN=eyJ... drivectl login`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := GetLogger()
			out := cmd.OutOrStdout()

			env, err := getAPIClient(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			if username == "" {
				resolved, source, err := config.ResolveLoginToken(token, tokenFile)
				if err != nil {
					return err
				}
				if resolved != "" {
					if err := env.store.Login(resolved); err != nil {
						return fmt.Errorf("failed to save session: %w", err)
					}
					logger.Info().Str("source", source).Msg("Session stored")
					fmt.Fprintf(out, "✓ Logged in (token from %s)\n", source)
					return nil
				}
			}

			p := newPrompter(cmd)
			if username == "" {
				if username, err = p.readRequired("Username: "); err != nil {
					return err
				}
			}
			password, err := p.readPassword("Password: ")
			if err != nil {
				return err
			}

			logger.Debug().Str("username", username).Msg("Logging in")
			resp, err := env.client.Login(GetContext(), username, password)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}

			name := username
			if resp.User != nil && resp.User.Username != "" {
				name = resp.User.Username
			}
			fmt.Fprintf(out, "✓ Logged in as %s\n", name)
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "Store this bearer token instead of signing in")
	cmd.Flags().StringVar(&tokenFile, "token-file", "", "Read the bearer token from a file")
	cmd.Flags().StringVarP(&username, "username", "u", "", "Username to sign in with")
	cmd.MarkFlagsMutuallyExclusive("token", "token-file", "username")

	return cmd
}

// newLogoutCmd creates the 'logout' command.
func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, closer, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer closer.Close()

			if err := store.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✓ Logged out")
			return nil
		},
	}
}

// newStatusCmd creates the 'status' command.
func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current session",
		Long: `Show whether a session is stored and, for JWT tokens, the claims it carries.

Claims are decoded for display only. The server decides whether the token is
still accepted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, store, closer, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer closer.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Server:  %s\n", cfg.APIBaseURL)
			fmt.Fprintf(out, "Backend: %s\n", cfg.SessionBackend)

			claims, err := store.Claims()
			switch {
			case errors.Is(err, session.ErrEmptyToken):
				fmt.Fprintln(out, "Session: not logged in")
				return nil
			case errors.Is(err, session.ErrNotJWT):
				fmt.Fprintln(out, "Session: logged in (opaque token)")
				return nil
			case err != nil:
				return err
			}

			fmt.Fprintln(out, "Session: logged in")
			if claims.Username != "" {
				fmt.Fprintf(out, "  User:    %s\n", claims.Username)
			}
			if claims.UserID != "" {
				fmt.Fprintf(out, "  User ID: %s\n", claims.UserID)
			} else if claims.Subject != "" {
				fmt.Fprintf(out, "  Subject: %s\n", claims.Subject)
			}
			if !claims.IssuedAt.IsZero() {
				fmt.Fprintf(out, "  Issued:  %s\n", claims.IssuedAt.Local().Format(time.RFC3339))
			}
			if !claims.ExpiresAt.IsZero() {
				state := ""
				if claims.Expired(time.Now()) {
					state = " (expired)"
				}
				fmt.Fprintf(out, "  Expires: %s%s\n", claims.ExpiresAt.Local().Format(time.RFC3339), state)
			}
			return nil
		},
	}
}

// newRegisterCmd creates the 'register' command.
func newRegisterCmd() *cobra.Command {
	var username string
	var email string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Long: `Create an account on the drive server. Missing values are prompted for.
If the server returns a token the new session is stored right away.

Example:
  drivectl register --username alice --email alice@example.com`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := getAPIClient(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			p := newPrompter(cmd)
			if username == "" {
				if username, err = p.readRequired("Username: "); err != nil {
					return err
				}
			}
			if email == "" {
				if email, err = p.readRequired("Email: "); err != nil {
					return err
				}
			}
			password, err := p.readPassword("Password: ")
			if err != nil {
				return err
			}
			confirmPassword, err := p.readPassword("Confirm password: ")
			if err != nil {
				return err
			}
			if password != confirmPassword {
				return fmt.Errorf("passwords do not match")
			}

			if _, err := env.client.Register(GetContext(), username, email, password); err != nil {
				return fmt.Errorf("registration failed: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✓ Account %s created\n", username)
			if !env.store.IsLoggedIn() {
				fmt.Fprintln(out, "Run 'drivectl login' to sign in.")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Username")
	cmd.Flags().StringVar(&email, "email", "", "Email address")

	return cmd
}

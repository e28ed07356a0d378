package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/drivemanager/drivectl/internal/api"
	"github.com/drivemanager/drivectl/internal/config"
	"github.com/drivemanager/drivectl/internal/constants"
)

// newConfigCmd creates the 'config' command group.
func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage drivectl configuration",
		Long: `Configuration management commands for drivectl.

Commands:
  init  - Interactive configuration setup
  show  - Display current configuration
  test  - Test the connection to the server
  path  - Show configuration file path`,
	}

	configCmd.AddCommand(newConfigInitCmd())
	configCmd.AddCommand(newConfigShowCmd())
	configCmd.AddCommand(newConfigTestCmd())
	configCmd.AddCommand(newConfigPathCmd())

	return configCmd
}

func configPathFromFlags() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultConfigPath()
}

// newConfigInitCmd creates the 'config init' command.
func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration interactively",
		Long: `Interactive configuration setup for drivectl.

The configuration is saved to ` + config.DefaultConfigPath() + `
(or the --config path). Use --force to overwrite an existing file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := GetLogger()
			out := cmd.OutOrStdout()
			configPath := configPathFromFlags()

			if !force {
				if _, err := os.Stat(configPath); err == nil {
					fmt.Fprintf(out, "Configuration already exists at: %s\n", configPath)
					fmt.Fprintln(out, "Use --force to overwrite or run 'config show' to view current config.")
					return nil
				}
			}

			fmt.Fprintln(out, "drivectl Configuration Setup")
			fmt.Fprintln(out, "============================")

			p := newPrompter(cmd)
			cfg := config.DefaultConfig()

			answer, err := p.readLine(fmt.Sprintf("API base URL [%s]: ", cfg.APIBaseURL))
			if err != nil {
				return err
			}
			if answer != "" {
				cfg.APIBaseURL = strings.TrimSuffix(answer, "/")
			}

			answer, err = p.readLine(fmt.Sprintf("Session backend (file, bolt, memory) [%s]: ", cfg.SessionBackend))
			if err != nil {
				return err
			}
			if answer != "" {
				cfg.SessionBackend = strings.ToLower(answer)
			}

			answer, err = p.readLine(fmt.Sprintf("Requests per second [%g]: ", cfg.RequestsPerSecond))
			if err != nil {
				return err
			}
			if answer != "" {
				if v, err := strconv.ParseFloat(answer, 64); err == nil && v > 0 {
					cfg.RequestsPerSecond = v
				}
			}

			useProxy, err := p.confirm("Configure proxy?")
			if err != nil {
				return err
			}
			if useProxy {
				fmt.Fprintln(out, "Proxy modes: no-proxy, system, basic, ntlm")
				answer, err = p.readLine("Proxy mode [system]: ")
				if err != nil {
					return err
				}
				cfg.ProxyMode = "system"
				if answer != "" {
					cfg.ProxyMode = answer
				}

				if cfg.ProxyMode == "basic" || cfg.ProxyMode == "ntlm" {
					if cfg.ProxyHost, err = p.readRequired("Proxy host: "); err != nil {
						return err
					}
					answer, err = p.readLine("Proxy port [8080]: ")
					if err != nil {
						return err
					}
					cfg.ProxyPort = 8080
					if v, err := strconv.Atoi(answer); err == nil && v > 0 {
						cfg.ProxyPort = v
					}
					if cfg.ProxyUser, err = p.readLine("Proxy user (blank for none): "); err != nil {
						return err
					}
					if cfg.NoProxy, err = p.readLine("Hosts that bypass the proxy (comma-separated): "); err != nil {
						return err
					}
				}
			}

			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			if err := config.SaveConfigFile(cfg, configPath); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}
			logger.Info().Str("path", configPath).Msg("Configuration saved")

			fmt.Fprintf(out, "✓ Configuration saved to: %s\n", configPath)
			fmt.Fprintln(out, "Sign in with: drivectl login")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing configuration")

	return cmd
}

// newConfigShowCmd creates the 'config show' command.
func newConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display current configuration",
		Long: `Display the effective configuration.

Sources, highest priority first:
  1. Command-line flags (--api-url, --session-backend)
  2. Environment (DRIVE_API_BASE_URL, VITE_API_BASE_URL, also from ./.env)
  3. Configuration file
  4. Defaults`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := configPathFromFlags()

			if err := config.LoadDotEnv(""); err != nil {
				return err
			}
			cfg, err := config.LoadConfigFile(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			cfg.MergeWithFlags(apiBaseURL, sessionBackend)

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Current Configuration")
			fmt.Fprintln(out, "=====================")
			fmt.Fprintln(out)

			fmt.Fprintln(out, "API Settings:")
			fmt.Fprintf(out, "  API Base URL:        %s\n", cfg.APIBaseURL)
			fmt.Fprintf(out, "  Timeout:             %s\n", cfg.Timeout)
			fmt.Fprintf(out, "  Requests per second: %g (burst %d)\n", cfg.RequestsPerSecond, cfg.Burst)
			fmt.Fprintf(out, "  Session backend:     %s\n", cfg.SessionBackend)
			fmt.Fprintln(out)

			fmt.Fprintln(out, "Proxy Settings:")
			fmt.Fprintf(out, "  Proxy Mode: %s\n", cfg.ProxyMode)
			if cfg.ProxyHost != "" {
				fmt.Fprintf(out, "  Proxy Host: %s\n", cfg.ProxyHost)
				fmt.Fprintf(out, "  Proxy Port: %d\n", cfg.ProxyPort)
			}
			if cfg.ProxyUser != "" {
				fmt.Fprintf(out, "  Proxy User: %s\n", cfg.ProxyUser)
			}
			if cfg.NoProxy != "" {
				fmt.Fprintf(out, "  No Proxy:   %s\n", cfg.NoProxy)
			}
			fmt.Fprintln(out)

			fmt.Fprintf(out, "Configuration file: %s\n", configPath)
			if _, err := os.Stat(configPath); os.IsNotExist(err) {
				fmt.Fprintln(out, "  (file does not exist - using defaults)")
			}

			if err := cfg.Validate(); err != nil {
				fmt.Fprintf(out, "\n✗ Configuration is not usable: %v\n", err)
			}
			return nil
		},
	}

	return cmd
}

// newConfigTestCmd creates the 'config test' command.
func newConfigTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Test the connection to the server",
		Long: `Test the connection with the current configuration by listing the root
folders. Requires a stored session; without one only reachability is checked.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := GetLogger()

			env, err := getAPIClient(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "API URL: %s\n", env.cfg.APIBaseURL)

			ctx, cancel := context.WithTimeout(GetContext(), constants.HTTPRequestTimeout/2)
			defer cancel()

			start := time.Now()
			folders, err := env.client.ListRootFolders(ctx)
			elapsed := time.Since(start).Round(time.Millisecond)

			switch api.Classify(err) {
			case api.OutcomeSuccess:
				logger.Info().Dur("elapsed", elapsed).Msg("Connection test successful")
				fmt.Fprintf(out, "✓ Connection SUCCESSFUL (%s, %d root folder(s))\n", elapsed, len(folders))
				return nil
			case api.OutcomeAuthRejected:
				fmt.Fprintln(out, "✓ Server reachable")
				fmt.Fprintln(out, "✗ Not signed in. Run 'drivectl login'.")
				return nil
			default:
				logger.Error().Err(err).Msg("Connection test failed")
				fmt.Fprintln(out, "✗ Connection FAILED")
				fmt.Fprintf(out, "  Error: %v\n", err)
				return fmt.Errorf("connection test failed")
			}
		},
	}

	return cmd
}

// newConfigPathCmd creates the 'config path' command.
func newConfigPathCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			configPath := configPathFromFlags()
			fmt.Fprintf(out, "%s\n", configPath)

			if info, err := os.Stat(configPath); err == nil {
				fmt.Fprintf(out, "Status:   ✓ File exists (%d bytes, modified %s)\n", info.Size(), info.ModTime().Format("2006-01-02 15:04:05"))
			} else {
				fmt.Fprintln(out, "Status:   File does not exist")
				fmt.Fprintln(out, "Create a configuration file with: drivectl config init")
			}
			return nil
		},
	}

	return cmd
}

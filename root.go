package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/magicapi/magicapi-go/internal/config"
	"github.com/magicapi/magicapi-go/internal/magicapi"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagBaseURL    string
	flagUsername   string
	flagPassword   string
	flagTimeout    string
	flagJSON       bool
	flagVerbose    bool
	flagQuiet      bool
)

// resolvedCfg holds the effective configuration loaded by PersistentPreRunE.
// It is available to all subcommands after the root pre-run phase completes.
var resolvedCfg *config.Resolved

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "magicapi-go",
		Short:   "Magic-API backend CLI client",
		Long:    "A CLI client for Magic-API low-code backends: browse the resource tree, manage groups and endpoints, and stream script logs.",
		Version: version,
		// Silence Cobra's default error/usage printing — we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadConfig(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&flagBaseURL, "base-url", "", "backend base URL (e.g. http://127.0.0.1:10712)")
	cmd.PersistentFlags().StringVar(&flagUsername, "username", "", "backend login username")
	cmd.PersistentFlags().StringVar(&flagPassword, "password", "", "backend login password")
	cmd.PersistentFlags().StringVar(&flagTimeout, "timeout", "", "HTTP request timeout (e.g. 30s)")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	// Register subcommands.
	cmd.AddCommand(newTreeCmd())
	cmd.AddCommand(newEndpointsCmd())
	cmd.AddCommand(newGroupCmd())
	cmd.AddCommand(newAPICmd())
	cmd.AddCommand(newResourceCmd())
	cmd.AddCommand(newClassesCmd())
	cmd.AddCommand(newBackupCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newTodoCmd())
	cmd.AddCommand(newCallCmd())
	cmd.AddCommand(newListenCmd())

	return cmd
}

// loadConfig resolves the effective configuration from the four-layer
// override chain and stores the result in resolvedCfg for subcommands.
func loadConfig(cmd *cobra.Command) error {
	cli := config.CLIOverrides{
		ConfigPath: flagConfigPath,
		BaseURL:    flagBaseURL,
		Username:   flagUsername,
		Password:   flagPassword,
		Timeout:    flagTimeout,
	}

	// Only pass --json to the resolver if the user explicitly set it.
	if cmd.Flags().Changed("json") {
		cli.JSON = &flagJSON
	}

	env := config.ReadEnvOverrides()

	resolved, err := config.Resolve(env, cli)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	resolvedCfg = resolved

	return nil
}

// buildLogger creates an slog.Logger configured by the resolved config and
// CLI flags. Config-file log level provides the baseline; --verbose and
// --quiet override it because CLI flags always win. The "auto" format picks
// text on a terminal and JSON otherwise.
func buildLogger() *slog.Logger {
	level := slog.LevelInfo
	format := "auto"

	if resolvedCfg != nil {
		switch resolvedCfg.Logging.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}

		format = resolvedCfg.Logging.LogFormat
	}

	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if format == "json" || (format == "auto" && !isatty.IsTerminal(os.Stderr.Fd())) {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}

	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// newSession creates an authenticated session from the resolved config.
func newSession(logger *slog.Logger) *magicapi.Session {
	var creds *magicapi.Credentials
	if resolvedCfg.Username != "" {
		creds = &magicapi.Credentials{
			Username: resolvedCfg.Username,
			Password: resolvedCfg.Password,
		}
	}

	httpClient := &http.Client{Timeout: resolvedCfg.Timeout}

	return magicapi.NewSession(resolvedCfg.BaseURL, creds, httpClient, logger)
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"mercator-hq/arbiter/pkg/cli"
	"mercator-hq/arbiter/pkg/config"
	"mercator-hq/arbiter/pkg/security/secrets"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "arbiter",
	Short: "Arbiter - governance decisions and audit ledger for AI agents",
	Long: `Arbiter decides whether an AI agent may perform an intended action and
keeps an immutable ledger of what it then did.

  - Tenant-scoped policies matched by use case, environment, agent, intent,
    risk level, data sensitivity and model
  - Traces with model calls, agent calls and audit events
  - Usage overviews per tenant, environment and use case
  - Policy bundles from a local directory or a Git repository`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		cli.Failure(os.Stderr, "%v", err)
		return cli.ExitCode(err)
	}
	return cli.ExitOK
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", os.Getenv("ARBITER_CONFIG"), "config file path (defaults plus ARBITER_* overrides when empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")
}

// loadConfig builds the configuration holder for a command, resolves its
// secret references and applies the global flag overrides.
func loadConfig() (*config.Holder, error) {
	holder, err := config.NewHolder(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError("", err.Error())
	}
	cfg := holder.Get()

	sm, err := secrets.NewManager(cfg.Secrets, nil)
	if err != nil {
		return nil, cli.NewConfigError("secrets.dir", err.Error())
	}
	if err := sm.ResolveConfig(context.Background(), cfg); err != nil {
		return nil, cli.NewConfigError("", err.Error())
	}
	holder.OnReload(func(c *config.Config) {
		sm.Refresh()
		if err := sm.ResolveConfig(context.Background(), c); err != nil {
			slog.Error("failed to resolve secrets in reloaded configuration", "error", err)
		}
	})

	if logLevel != "" {
		cfg.Telemetry.Logging.Level = logLevel
	}
	return holder, nil
}

func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}

// commandContext returns the command's context, or Background when the
// command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// openApp loads the configuration and opens the store for a one-shot
// command. Logs go to stderr.
func openApp(cmd *cobra.Command) (*app, error) {
	holder, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return newApp(commandContext(cmd), holder.Get(), true, cmd.ErrOrStderr())
}

// textOrJSON parses a --format value for results that have no CSV form.
func textOrJSON(s string) (cli.OutputFormat, error) {
	format, err := cli.ParseFormat(s)
	if err != nil {
		return "", err
	}
	if format == cli.FormatCSV {
		return "", fmt.Errorf("CSV output is not supported by this command")
	}
	return format, nil
}

// writeOutput formats v to w.
func writeOutput(w io.Writer, format cli.OutputFormat, v any) error {
	f, err := cli.NewFormatter(format)
	if err != nil {
		return err
	}
	return f.FormatTo(w, v)
}

package main

import (
	"mercator-hq/arbiter/pkg/cli"
	"mercator-hq/arbiter/pkg/store"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the database schema",
	Long: `Apply pending schema migrations to the configured store.

Migrations are idempotent; running the command against an up-to-date
database does nothing.

Examples:
  arbiter migrate --config /etc/arbiter/config.yaml`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	holder, err := loadConfig()
	if err != nil {
		return err
	}
	cfg := holder.Get()

	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	st, err := store.Open(ctx, cfg.Storage, logger.Logger)
	if err != nil {
		return cli.NewCommandError("migrate", err)
	}
	defer st.Close()

	version, err := st.Migrate(ctx)
	if err != nil {
		return cli.NewCommandError("migrate", err)
	}
	cli.Success(cmd.OutOrStdout(), "%s schema at version %d", st.Backend(), version)
	return nil
}

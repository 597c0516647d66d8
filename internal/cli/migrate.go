package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kihaltung/attitude/internal/config"
	"github.com/kihaltung/attitude/internal/db"
	"github.com/kihaltung/attitude/internal/logger"
)

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Long: `Apply the embedded (or db.migrations_dir) migrations that have not run yet.
For SQLite an exclusive lock on <db>.lock is held while migrating.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if cfg.DB.Driver == config.DriverMemory {
				return fmt.Errorf("nothing to migrate for driver %q", cfg.DB.Driver)
			}
			log := logger.New(cmd.ErrOrStderr(), logger.ParseLevel(cfg.Log.Level))
			conn, err := db.Open(cmd.Context(), cfg.DB.Driver, cfg.DB.DSN)
			if err != nil {
				return err
			}
			defer conn.Close()

			applied, err := migrateLocked(cmd.Context(), cfg, conn, log)
			for _, name := range applied {
				fmt.Fprintf(out, "%s %s\n", color.GreenString("applied"), name)
			}
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(out, color.New(color.Faint).Sprint("database is up to date"))
			}
			return nil
		},
	}
}

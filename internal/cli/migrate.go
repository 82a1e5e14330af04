package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smartticket/ticket-api/internal/persistence"
)

var migrationsDir string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the SQL migrations to Postgres",
	Long: `Apply every *.sql file in the migrations directory in lexical order.
Migrations are written to be re-runnable.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.close()

		dir := migrationsDir
		if dir == "" {
			dir = rt.cfg.Postgres.MigrationsDir
		}
		applied, err := persistence.RunMigrations(cmd.Context(), rt.pg.PoolHandle(), dir, rt.logger)
		if err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s) from %s\n", applied, dir)
		return nil
	},
}

func init() {
	migrateCmd.Flags().StringVar(&migrationsDir, "dir", "", "migrations directory (defaults to POSTGRES_MIGRATIONS_DIR)")
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/corpola/bulkmail/internal/database"
)

var migrateDryRun bool

// newMigrateCmd creates the migrate command.
func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Long: `Apply the database schema for the catalog, directory and ledger.

Use --dry-run to print the statements without executing them.`,
		Example: `  bulkmail migrate
  bulkmail migrate --dry-run`,
		RunE: runMigrate,
	}

	cmd.Flags().BoolVar(&migrateDryRun, "dry-run", false, "print statements without applying")

	return cmd
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	stmts := schemaStatements(cfg.DBDriver)

	if migrateDryRun {
		for _, stmt := range stmts {
			fmt.Fprintln(cmd.OutOrStdout(), stmt+";")
		}
		return nil
	}

	db, _, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(db, stmts); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "schema applied")
	return nil
}

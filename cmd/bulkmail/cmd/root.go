// Package cmd provides the CLI commands for the bulkmail service.
package cmd

import (
	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "bulkmail",
	Short: "Bulk notification mail service",
	Long: `bulkmail dispatches templated bulk mailings to company recipients.

Submissions are accepted over HTTP, staged to disk, and delivered
asynchronously by queue workers. Every per-recipient outcome is recorded
in an append-only delivery ledger.`,
	SilenceUsage: true,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(newAPICmd())
	rootCmd.AddCommand(newWorkerCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newVersionCmd())
}

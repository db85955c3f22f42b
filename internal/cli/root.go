package cli

import (
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "solution-gateway",
	Short: "Solution Gateway - a remote workspace solution cache for language services",
	Long: `Solution Gateway materializes checksum-identified workspace solution
snapshots on a remote compute host and serves them to concurrent feature
operations over JSON-RPC.

Snapshots are fetched from the client host's asset service, built once per
checksum no matter how many requests race for it, and kept alive by
reference counting so short-gap repeat requests reuse the same
materialized state.`,
	// Don't show usage when there's an error
	SilenceUsage: true,
	// Don't show errors (we'll handle them ourselves)
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

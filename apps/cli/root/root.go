package root

import (
	"github.com/spf13/cobra"
)

// rootCmd is the base command for the shopboard operator CLI. Subcommands
// (board, move) are attached here.
var rootCmd = &cobra.Command{
	Use:           "shopboard",
	Short:         "Shopboard operator CLI",
	Long:          "Operator utilities for the appointment status board (view columns, move cards).",
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

// Root returns the mutable root command for wiring from subpackages.
func Root() *cobra.Command {
	return rootCmd
}

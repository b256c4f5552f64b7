// Package cmd contains the CLI commands for alertctl.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// defaultDBPath is where the server creates its database by default.
const defaultDBPath = "data/alertdesk.db"

var (
	// Used for flags
	verbose bool
	output  string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "alertctl",
	Short: "AlertDesk administration CLI",
	Long: `alertctl manages an AlertDesk installation directly through its
database file. It is intended for system administrators bootstrapping
or repairing an installation outside of the HTTP API.

Examples:
  # List all users
  alertctl user list

  # Create the first admin user
  alertctl user create --username admin --email admin@example.com --role admin`,
	Run: func(cmd *cobra.Command, args []string) {
		// Show help by default
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "output format (table, json)")
}

// GetOutput returns the output format.
func GetOutput() string {
	return output
}

// PrintVerbose prints a message only if verbose mode is enabled.
func PrintVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Printf(format+"\n", args...)
	}
}

// Package cmd implements the kollab command line interface.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd is the base command. Run without a subcommand it starts the API
// server, equivalent to "kollab serve".
var rootCmd = &cobra.Command{
	Use:   "kollab",
	Short: "Kollab collaboration backend",
	Long: `kollab is the multi-tenant collaboration backend: workspaces, documents,
tasks, projects and teams behind a session-authenticated HTTP API with a
shared cache for membership resolution, listings and rate limiting.

Configuration comes from the environment; see "kollab serve --help" for the
required variables.`,
	SilenceUsage: true,
}

// SetVersion injects the build version into the root command.
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute runs the CLI. Called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "kollab version %s\n" .Version}}`)

	// Default to serve when invoked bare.
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newVersionCmd())
}

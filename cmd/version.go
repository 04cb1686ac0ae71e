package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newVersionCmd creates the command printing the build version.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of kollab",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "kollab version %s\n", rootCmd.Version)
		},
	}
}

package cmd

import (
	"fmt"

	"github.com/crytic/medusa-statecache/version"
	"github.com/spf13/cobra"
)

// versionCmd represents the version command that displays build information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and build information",
	Long:  `Print the version, git commit, build time and Go version of the statecache binary.`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprint(cmd.OutOrStdout(), version.GetInfo().String())
	},
}

func init() {
	rootCmd.Version = version.GetInfo().Short()
	rootCmd.AddCommand(versionCmd)
}

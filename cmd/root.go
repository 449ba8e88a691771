package cmd

import (
	"github.com/crytic/medusa-statecache/logging"
	"github.com/crytic/medusa-statecache/logging/colors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// cmdLogger is the logger that will be used for the cmd package
var cmdLogger = logging.NewLogger(zerolog.InfoLevel, true).NewSubLogger(logging.SERVICE_KEY, logging.CLI_SERVICE)

var rootCmd = &cobra.Command{
	Use:   "statecache",
	Short: "Fetch, cache and snapshot Ethereum state from an RPC endpoint",
	Long: "statecache reads account, storage and block hash state from a JSON-RPC endpoint through an observing proxy,\n" +
		"caches it in memory and saves the cache to a JSON snapshot that can be inspected or reused later",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor, err := cmd.Flags().GetBool("no-color"); err == nil && noColor {
			colors.DisableColor()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored console output")
}

// Execute runs the root command, dispatching to whichever sub-command the arguments name.
func Execute() error {
	return rootCmd.Execute()
}

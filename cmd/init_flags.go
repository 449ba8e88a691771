package cmd

import (
	"github.com/crytic/medusa-statecache/config"
	"github.com/spf13/cobra"
)

// addInitFlags adds the various flags for the init command
func addInitFlags() error {
	// Output path for configuration
	initCmd.Flags().String("out", "", "output path for the new project configuration file")

	// RPC url
	initCmd.Flags().String("rpc-url", "", "JSON-RPC endpoint to fetch state from")

	// Overwrite without prompting
	initCmd.Flags().Bool("force", false, "overwrite an existing configuration file without prompting")

	return nil
}

// updateProjectConfigWithInitFlags will update the given projectConfig with any CLI arguments that were provided to the init command
func updateProjectConfigWithInitFlags(cmd *cobra.Command, projectConfig *config.ProjectConfig) error {
	if cmd.Flags().Changed("rpc-url") {
		rpcUrl, err := cmd.Flags().GetString("rpc-url")
		if err != nil {
			return err
		}
		projectConfig.Fetch.RpcUrl = rpcUrl
	}
	return nil
}

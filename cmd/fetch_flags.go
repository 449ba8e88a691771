package cmd

import (
	"fmt"

	"github.com/crytic/medusa-statecache/config"
	"github.com/crytic/medusa-statecache/utils"
	"github.com/spf13/cobra"
)

// addFetchFlags adds the various flags for the fetch command
func addFetchFlags() error {
	defaultConfig := config.GetDefaultProjectConfig()

	// Prevent alphabetical sorting of usage message
	fetchCmd.Flags().SortFlags = false

	// Config file
	fetchCmd.Flags().String("config", "", "path to config file")

	// RPC endpoint
	fetchCmd.Flags().String("rpc-url", "", "JSON-RPC endpoint to fetch state from")

	// Block height
	fetchCmd.Flags().Uint64("rpc-block", 0,
		fmt.Sprintf("block height state is fetched at (unless a config file is provided, default is %d)", defaultConfig.Fetch.RpcBlock))

	// Pool size
	fetchCmd.Flags().Uint("pool-size", 0,
		fmt.Sprintf("number of concurrent rpc clients (unless a config file is provided, default is %d)", defaultConfig.Fetch.PoolSize))

	// Persistent cache directory
	fetchCmd.Flags().String("cache-dir", "", "directory to persist fetched rpc state in across runs")

	// Accounts
	fetchCmd.Flags().StringSlice("address", []string{}, "account address(es) to fetch")

	// Storage slots
	fetchCmd.Flags().StringSlice("slot", []string{}, "storage slot(s) to fetch, in the form address:slot")

	// Block hashes
	fetchCmd.Flags().UintSlice("block", []uint{}, "block number(s) whose hash to fetch")

	// Snapshot input
	fetchCmd.Flags().String("in", "", "snapshot to warm the cache from before fetching")

	// Snapshot output
	fetchCmd.Flags().String("out", "",
		fmt.Sprintf("path the snapshot is saved to (unless a config file is provided, default is %q)", defaultConfig.Snapshot.OutputPath))

	return nil
}

// updateProjectConfigWithFetchFlags will update the given projectConfig with any CLI arguments that were provided to
// the fetch command. Addresses, slots and blocks given on the command line are added to those in the config.
func updateProjectConfigWithFetchFlags(cmd *cobra.Command, projectConfig *config.ProjectConfig) error {
	var err error

	if cmd.Flags().Changed("rpc-url") {
		projectConfig.Fetch.RpcUrl, err = cmd.Flags().GetString("rpc-url")
		if err != nil {
			return err
		}
	}

	if cmd.Flags().Changed("rpc-block") {
		projectConfig.Fetch.RpcBlock, err = cmd.Flags().GetUint64("rpc-block")
		if err != nil {
			return err
		}
	}

	if cmd.Flags().Changed("pool-size") {
		projectConfig.Fetch.PoolSize, err = cmd.Flags().GetUint("pool-size")
		if err != nil {
			return err
		}
	}

	if cmd.Flags().Changed("cache-dir") {
		projectConfig.Fetch.CacheDirectory, err = cmd.Flags().GetString("cache-dir")
		if err != nil {
			return err
		}
	}

	if cmd.Flags().Changed("address") {
		addresses, err := cmd.Flags().GetStringSlice("address")
		if err != nil {
			return err
		}
		projectConfig.Fetch.Addresses = append(projectConfig.Fetch.Addresses, addresses...)
	}

	if cmd.Flags().Changed("slot") {
		slots, err := cmd.Flags().GetStringSlice("slot")
		if err != nil {
			return err
		}
		if projectConfig.Fetch.StorageSlots == nil {
			projectConfig.Fetch.StorageSlots = make(map[string][]string)
		}
		for _, slot := range slots {
			address, index, err := utils.ParseStorageSlotReference(slot)
			if err != nil {
				return err
			}
			key := address.Hex()
			projectConfig.Fetch.StorageSlots[key] = append(projectConfig.Fetch.StorageSlots[key], index.Hex())
		}
	}

	if cmd.Flags().Changed("block") {
		blocks, err := cmd.Flags().GetUintSlice("block")
		if err != nil {
			return err
		}
		for _, block := range blocks {
			projectConfig.Fetch.BlockNumbers = append(projectConfig.Fetch.BlockNumbers, uint64(block))
		}
	}

	if cmd.Flags().Changed("in") {
		projectConfig.Snapshot.InputPath, err = cmd.Flags().GetString("in")
		if err != nil {
			return err
		}
	}

	if cmd.Flags().Changed("out") {
		projectConfig.Snapshot.OutputPath, err = cmd.Flags().GetString("out")
		if err != nil {
			return err
		}
	}

	return nil
}

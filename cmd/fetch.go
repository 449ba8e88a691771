package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/crytic/medusa-statecache/chain/state"
	"github.com/crytic/medusa-statecache/chain/state/cache"
	"github.com/crytic/medusa-statecache/chain/types"
	"github.com/crytic/medusa-statecache/cmd/exitcodes"
	"github.com/crytic/medusa-statecache/config"
	"github.com/crytic/medusa-statecache/logging"
	"github.com/crytic/medusa-statecache/logging/colors"
	"github.com/crytic/medusa-statecache/utils"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// fetchCmd represents the command provider for fetching state
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetches state from an RPC endpoint and saves it to a snapshot",
	Long: `Fetches the configured accounts, storage slots and block hashes from an RPC endpoint through an in-memory
cache, logging every account and storage read the endpoint served, and saves the cache to a JSON snapshot`,
	Args:              cmdValidateFetchArgs,
	ValidArgsFunction: cmdValidFetchArgs,
	RunE:              cmdRunFetch,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func init() {
	err := addFetchFlags()
	if err != nil {
		cmdLogger.Panic("Failed to initialize the fetch command", err)
	}

	rootCmd.AddCommand(fetchCmd)
}

// cmdValidFetchArgs will return which flags are valid for dynamic completion for the fetch command
func cmdValidFetchArgs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	// Suggest only the flags that have not been set yet
	var unusedFlags []string
	cmd.Flags().VisitAll(func(flag *pflag.Flag) {
		if !flag.Changed {
			unusedFlags = append(unusedFlags, "--"+flag.Name)
		}
	})
	return unusedFlags, cobra.ShellCompDirectiveNoFileComp
}

// cmdValidateFetchArgs makes sure that there are no positional arguments provided to the fetch command
func cmdValidateFetchArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.NoArgs(cmd, args); err != nil {
		err = errors.Errorf("fetch does not accept any positional arguments, only flags and their associated values")
		cmdLogger.Error("Failed to validate args to the fetch command", err)
		return err
	}
	return nil
}

// cmdRunFetch executes the CLI fetch command
func cmdRunFetch(cmd *cobra.Command, args []string) error {
	projectConfig, err := loadProjectConfig(cmd)
	if err != nil {
		cmdLogger.Error("Failed to run the fetch command", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}

	err = updateProjectConfigWithFetchFlags(cmd, projectConfig)
	if err == nil {
		err = projectConfig.Validate()
	}
	if err != nil {
		cmdLogger.Error("Failed to run the fetch command", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}

	closeLogs, err := setupGlobalLogger(projectConfig.Logging)
	if err != nil {
		cmdLogger.Error("Failed to run the fetch command", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}
	defer closeLogs()

	// Stop fetching on keyboard interrupts
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	summary, err := fetchState(ctx, projectConfig)
	if err != nil {
		cmdLogger.Error("Failed to run the fetch command", err)
		if cache.IsSnapshotErrorKind(err, cache.SnapshotErrorIO) ||
			cache.IsSnapshotErrorKind(err, cache.SnapshotErrorDecode) ||
			cache.IsSnapshotErrorKind(err, cache.SnapshotErrorEncode) {
			return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeSnapshotError)
		}
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}

	cmdLogger.Info(
		"Fetched ", colors.Bold, summary.BasicFetches, colors.Reset, " account(s) and ",
		colors.Bold, summary.StorageFetches, colors.Reset, " storage slot(s) from the rpc endpoint, ",
		colors.Bold, summary.AbsentAccounts, colors.Reset, " requested account(s) do not exist",
		logging.StructuredLogInfo{
			"basicFetches":   summary.BasicFetches,
			"storageFetches": summary.StorageFetches,
			"absentAccounts": summary.AbsentAccounts,
			"blockHashes":    summary.BlockHashes,
		},
	)
	cmdLogger.Info("Snapshot successfully output to: ", colors.Bold, projectConfig.Snapshot.OutputPath, colors.Reset)
	return nil
}

// fetchSummary describes the outcome of a fetchState call.
type fetchSummary struct {
	// BasicFetches describes the number of account reads the rpc endpoint served.
	BasicFetches int
	// StorageFetches describes the number of storage reads the rpc endpoint served.
	StorageFetches int
	// AbsentAccounts describes the number of requested accounts that do not exist.
	AbsentAccounts int
	// BlockHashes describes the number of block hashes read.
	BlockHashes int
}

/*
fetchState reads the state named by the project config through a cache backed by an observing proxy over the rpc
endpoint, logging every notification the proxy emits, and saves the cache to the configured snapshot output path.
If a snapshot input path is configured and exists, the cache is warmed from it first, so state it already holds is
not fetched again.
*/
func fetchState(ctx context.Context, projectConfig *config.ProjectConfig) (*fetchSummary, error) {
	stateLogger := logging.GlobalLogger.NewSubLogger(logging.SERVICE_KEY, logging.STATE_SERVICE)
	fetchConfig := projectConfig.Fetch

	rpcDatabase, err := state.NewRPCDatabase(ctx, fetchConfig.RpcUrl, fetchConfig.RpcBlock, fetchConfig.PoolSize, fetchConfig.CacheDirectory)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rpcDatabase.Close(); err != nil {
			stateLogger.Warn("Failed to close the rpc database", err)
		}
	}()

	sender, receiver := types.NewFetchChannel()
	defer receiver.Close()
	proxy := state.NewProxyDatabase(rpcDatabase).WithSender(sender)

	var cacheDB *cache.CacheDB
	inputPath := projectConfig.Snapshot.InputPath
	if inputPath != "" && utils.FileExists(inputPath) {
		stateLogger.Info("Warming the cache from snapshot: ", colors.Bold, inputPath, colors.Reset)
		cacheDB, err = cache.LoadCacheFromFile(inputPath, proxy)
		if err != nil {
			sender.Close()
			return nil, err
		}
	} else {
		if inputPath != "" {
			stateLogger.Warn(fmt.Sprintf("Unable to find the snapshot at %v, starting with an empty cache", inputPath))
		}
		cacheDB = cache.NewCacheDB(proxy)
	}

	summary := &fetchSummary{}
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for {
			fetch, err := receiver.Recv(ctx)
			if err != nil {
				return
			}
			switch f := fetch.(type) {
			case *types.BasicFetch:
				summary.BasicFetches++
				stateLogger.Debug("Fetched account ", colors.Cyan, f.Address.Hex(), colors.Reset, " ", f.String())
			case *types.StorageFetch:
				summary.StorageFetches++
				stateLogger.Debug("Fetched storage of ", colors.Cyan, f.Address.Hex(), colors.Reset, " ", f.String())
			}
		}
	}()

	err = readState(ctx, cacheDB, fetchConfig, summary)
	sender.Close()
	<-drained
	if err != nil {
		return nil, err
	}

	err = cache.SaveCacheToFile(projectConfig.Snapshot.OutputPath, cacheDB)
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// readState performs every read named by the fetch config against the cache, stopping early if the context is done.
func readState(ctx context.Context, cacheDB *cache.CacheDB, fetchConfig config.FetchConfig, summary *fetchSummary) error {
	addresses, err := utils.HexStringsToAddresses(fetchConfig.Addresses)
	if err != nil {
		return err
	}
	for _, address := range addresses {
		if utils.CheckContextDone(ctx) {
			return ctx.Err()
		}
		info, err := cacheDB.Basic(address)
		if err != nil {
			return errors.Wrapf(err, "could not fetch account %s", address.Hex())
		}
		if info == nil {
			summary.AbsentAccounts++
		}
	}

	for addressString, slots := range fetchConfig.StorageSlots {
		address, err := utils.HexStringToAddress(addressString)
		if err != nil {
			return err
		}
		for _, slot := range slots {
			if utils.CheckContextDone(ctx) {
				return ctx.Err()
			}
			index, err := utils.ParseStorageSlot(slot)
			if err != nil {
				return err
			}
			if _, err = cacheDB.Storage(address, index); err != nil {
				return errors.Wrapf(err, "could not fetch storage slot %s of %s", index.Hex(), address.Hex())
			}
		}
	}

	for _, number := range fetchConfig.BlockNumbers {
		if utils.CheckContextDone(ctx) {
			return ctx.Err()
		}
		if _, err = cacheDB.BlockHash(number); err != nil {
			return errors.Wrapf(err, "could not fetch the hash of block %d", number)
		}
		summary.BlockHashes++
	}
	return nil
}

package cmd

import (
	"fmt"

	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-statecache/chain/state"
	"github.com/crytic/medusa-statecache/chain/state/cache"
	"github.com/crytic/medusa-statecache/chain/types"
	"github.com/crytic/medusa-statecache/cmd/exitcodes"
	"github.com/crytic/medusa-statecache/logging"
	"github.com/crytic/medusa-statecache/logging/colors"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/exp/slices"
)

// weiDecimals is the number of decimal places between wei and ether.
const weiDecimals = 18

// snapshotCmd represents the parent command for working with cache snapshots
var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Works with cache snapshots",
	Long:  `Works with the JSON cache snapshots written by the fetch command`,
}

// snapshotInspectCmd represents the command provider for inspecting a snapshot
var snapshotInspectCmd = &cobra.Command{
	Use:           "inspect <snapshot>",
	Short:         "Prints the accounts and contracts held by a snapshot",
	Long:          `Prints the accounts (with ether balances and storage slot counts) and contracts (with solc metadata) held by a snapshot`,
	Args:          cmdValidateSnapshotInspectArgs,
	RunE:          cmdRunSnapshotInspect,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	snapshotCmd.AddCommand(snapshotInspectCmd)
	rootCmd.AddCommand(snapshotCmd)
}

// cmdValidateSnapshotInspectArgs makes sure exactly one snapshot path is provided
func cmdValidateSnapshotInspectArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.ExactArgs(1)(cmd, args); err != nil {
		err = errors.Errorf("snapshot inspect requires exactly one snapshot path")
		cmdLogger.Error("Failed to validate args to the snapshot inspect command", err)
		return err
	}
	return nil
}

// cmdRunSnapshotInspect executes the CLI snapshot inspect command
func cmdRunSnapshotInspect(cmd *cobra.Command, args []string) error {
	// Nothing is fetched while inspecting, so reads the snapshot cannot answer resolve to empty state
	cacheDB, err := cache.LoadCacheFromFile(args[0], state.EmptyDatabase{})
	if err != nil {
		cmdLogger.Error("Failed to run the snapshot inspect command", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeSnapshotError)
	}

	cmdLogger.Info(buildSnapshotReport(args[0], cacheDB))
	return nil
}

// buildSnapshotReport describes every account and contract of the cache, ordered by address and code hash.
func buildSnapshotReport(path string, cacheDB *cache.CacheDB) *logging.LogBuffer {
	codeHashes := make([]common.Hash, 0, len(cacheDB.Contracts))
	for codeHash, code := range cacheDB.Contracts {
		if len(code) > 0 {
			codeHashes = append(codeHashes, codeHash)
		}
	}
	slices.SortFunc(codeHashes, func(a, b common.Hash) int {
		return a.Cmp(b)
	})

	buffer := logging.NewLogBuffer()
	buffer.Append("Snapshot ", colors.Bold, path, colors.Reset, fmt.Sprintf(": %d account(s), %d contract(s)", len(cacheDB.Accounts), len(codeHashes)))

	addresses := make([]common.Address, 0, len(cacheDB.Accounts))
	for address := range cacheDB.Accounts {
		addresses = append(addresses, address)
	}
	slices.SortFunc(addresses, func(a, b common.Address) int {
		return a.Cmp(b)
	})
	for _, address := range addresses {
		account := cacheDB.Accounts[address]
		buffer.Append("\n", colors.Cyan, address.Hex(), colors.Reset, " [", account.AccountState, "]")
		if account.AccountState == cache.AccountStateNotExisting {
			buffer.Append(" does not exist")
			continue
		}
		buffer.Append(
			fmt.Sprintf(" balance %s ETH, nonce %d, %d storage slot(s)",
				formatEther(account.Info.Balance), account.Info.Nonce, len(account.Storage)),
		)
		if account.Info.HasCode() {
			buffer.Append(", code hash ", colors.DarkGray, account.Info.CodeHash.Hex(), colors.Reset)
		}
	}

	for _, codeHash := range codeHashes {
		code := cacheDB.Contracts[codeHash]
		buffer.Append("\n", colors.DarkGray, codeHash.Hex(), colors.Reset, fmt.Sprintf(" %d byte(s)", len(code)))
		buffer.Append(describeMetadata(code.Metadata()))
	}
	return buffer
}

// describeMetadata summarizes the solc metadata embedded in a contract's bytecode.
func describeMetadata(metadata types.ContractMetadata) string {
	if metadata == nil {
		return ", no solc metadata"
	}
	keys := make([]string, 0, len(metadata))
	for key := range metadata {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	description := fmt.Sprintf(", metadata keys %v", keys)
	if compilerVersion := metadata.CompilerVersion(); compilerVersion != "" {
		description += ", solc " + compilerVersion
	}
	return description
}

// formatEther formats a wei amount in ether, without trailing zeros.
func formatEther(wei *uint256.Int) string {
	if wei == nil {
		return "0"
	}
	return decimal.NewFromBigInt(wei.ToBig(), -weiDecimals).String()
}

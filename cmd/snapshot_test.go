package cmd

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-statecache/chain/state"
	"github.com/crytic/medusa-statecache/chain/state/cache"
	"github.com/crytic/medusa-statecache/chain/types"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFormatEther verifies wei amounts are rendered in ether without trailing zeros.
func TestFormatEther(t *testing.T) {
	oneEther, err := uint256.FromDecimal("1000000000000000000")
	require.NoError(t, err)
	oneAndAHalfEther, err := uint256.FromDecimal("1500000000000000000")
	require.NoError(t, err)

	assert.Equal(t, "0", formatEther(nil))
	assert.Equal(t, "0", formatEther(uint256.NewInt(0)))
	assert.Equal(t, "0.000000000000000001", formatEther(uint256.NewInt(1)))
	assert.Equal(t, "1", formatEther(oneEther))
	assert.Equal(t, "1.5", formatEther(oneAndAHalfEther))
}

// TestDescribeMetadata verifies solc metadata is summarized by its keys and compiler version.
func TestDescribeMetadata(t *testing.T) {
	assert.Equal(t, ", no solc metadata", describeMetadata(nil))
	assert.Equal(t, ", metadata keys [ipfs solc], solc 0.8.19", describeMetadata(types.ContractMetadata{
		"ipfs": []byte{0x12, 0x20},
		"solc": []byte{0, 8, 19},
	}))
	assert.Equal(t, ", metadata keys [bzzr0]", describeMetadata(types.ContractMetadata{
		"bzzr0": []byte{0x01},
	}))
}

// TestBuildSnapshotReport verifies the report lists every account in address order, followed by the contracts.
func TestBuildSnapshotReport(t *testing.T) {
	cacheDB := cache.NewCacheDB(state.EmptyDatabase{})

	contractAddress := common.HexToAddress("0x0000000000000000000000000000000000000001")
	contract := types.NewAccountInfo(uint256.NewInt(2), 4, types.Bytecode{0x60, 0x80, 0x60, 0x40})
	cacheDB.InsertAccountInfo(contractAddress, *contract)
	require.NoError(t, cacheDB.InsertAccountStorage(contractAddress, *uint256.NewInt(1), *uint256.NewInt(9)))

	absentAddress := common.HexToAddress("0x0000000000000000000000000000000000000002")
	info, err := cacheDB.Basic(absentAddress)
	require.NoError(t, err)
	require.Nil(t, info)

	report := buildSnapshotReport("snapshot.json", cacheDB).String()
	assert.True(t, strings.HasPrefix(report, "Snapshot snapshot.json: 2 account(s), 1 contract(s)"))
	assert.Contains(t, report, contractAddress.Hex()+" [none] balance 0.000000000000000002 ETH, nonce 4, 1 storage slot(s), code hash "+contract.CodeHash.Hex())
	assert.Contains(t, report, absentAddress.Hex()+" [not_existing] does not exist")
	assert.Less(t, strings.Index(report, contractAddress.Hex()), strings.Index(report, absentAddress.Hex()))
	assert.Contains(t, report, contract.CodeHash.Hex()+" 4 byte(s), no solc metadata")
}

// TestBuildSnapshotReportFromFile verifies a saved snapshot reports the same content as the cache it was saved from.
func TestBuildSnapshotReportFromFile(t *testing.T) {
	cacheDB := cache.NewCacheDB(state.EmptyDatabase{})
	cacheDB.InsertAccountInfo(common.HexToAddress("0x03"), *types.NewAccountInfo(uint256.NewInt(7), 1, nil))

	path := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, cache.SaveCacheToFile(path, cacheDB))
	loaded, err := cache.LoadCacheFromFile(path, state.EmptyDatabase{})
	require.NoError(t, err)

	assert.Equal(t, buildSnapshotReport(path, cacheDB).String(), buildSnapshotReport(path, loaded).String())
}

package cmd

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/common/hexutil"
	"github.com/crytic/medusa-statecache/chain/state"
	"github.com/crytic/medusa-statecache/chain/state/cache"
	"github.com/crytic/medusa-statecache/config"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testContractAddress = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testAbsentAddress   = common.HexToAddress("0x2222222222222222222222222222222222222222")
	testBlockHash       = common.HexToHash("0xabcdef")
)

// testNode is a JSON-RPC server holding a single contract with one populated storage slot and a single block.
type testNode struct {
	server *httptest.Server

	lock    sync.Mutex
	calls   map[string]int
	failing bool
}

func newTestNode(t *testing.T) *testNode {
	node := &testNode{calls: make(map[string]int)}
	node.server = httptest.NewServer(http.HandlerFunc(node.serveHTTP))
	t.Cleanup(node.server.Close)
	return node
}

func (n *testNode) callCount(method string) int {
	n.lock.Lock()
	defer n.lock.Unlock()
	return n.calls[method]
}

func (n *testNode) serveHTTP(w http.ResponseWriter, r *http.Request) {
	var request struct {
		ID     json.RawMessage   `json:"id"`
		Method string            `json:"method"`
		Params []json.RawMessage `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	n.lock.Lock()
	n.calls[request.Method]++
	failing := n.failing
	n.lock.Unlock()

	response := map[string]interface{}{"jsonrpc": "2.0", "id": request.ID}
	if failing {
		response["error"] = map[string]interface{}{"code": -32000, "message": "node offline"}
	} else {
		response["result"] = n.result(request.Method, request.Params)
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(response)
}

func (n *testNode) result(method string, params []json.RawMessage) interface{} {
	if method == "eth_getBlockByNumber" {
		var number hexutil.Uint64
		_ = json.Unmarshal(params[0], &number)
		if number != 7 {
			return nil
		}
		return map[string]interface{}{"number": number, "hash": testBlockHash}
	}

	var addr common.Address
	_ = json.Unmarshal(params[0], &addr)
	exists := addr == testContractAddress

	switch method {
	case "eth_getBalance":
		if !exists {
			return "0x0"
		}
		return "0x14d1120d7b160000" // 1.5 ether
	case "eth_getTransactionCount":
		if !exists {
			return "0x0"
		}
		return "0x1"
	case "eth_getCode":
		if !exists {
			return "0x"
		}
		return "0x60806040"
	case "eth_getStorageAt":
		var slot common.Hash
		_ = json.Unmarshal(params[1], &slot)
		if exists && slot == common.BigToHash(common.Big1) {
			return common.BigToHash(common.Big3)
		}
		return common.Hash{}
	}
	return nil
}

// newTestFetchConfig creates a project config fetching the test node's contract, an absent account, two slots and
// one block hash, with the snapshot written to a temporary directory.
func newTestFetchConfig(t *testing.T, node *testNode) *config.ProjectConfig {
	projectConfig := config.GetDefaultProjectConfig()
	projectConfig.Fetch.RpcUrl = node.server.URL
	projectConfig.Fetch.RpcBlock = 10
	projectConfig.Fetch.PoolSize = 2
	projectConfig.Fetch.Addresses = []string{testContractAddress.Hex(), testAbsentAddress.Hex()}
	projectConfig.Fetch.StorageSlots = map[string][]string{
		testContractAddress.Hex(): {"0x01", "2"},
	}
	projectConfig.Fetch.BlockNumbers = []uint64{7}
	projectConfig.Snapshot.OutputPath = filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, projectConfig.Validate())
	return projectConfig
}

// TestFetchState verifies the summary of a fetch and that the written snapshot holds the fetched state.
func TestFetchState(t *testing.T) {
	node := newTestNode(t)
	projectConfig := newTestFetchConfig(t, node)

	summary, err := fetchState(context.Background(), projectConfig)
	require.NoError(t, err)
	assert.Equal(t, &fetchSummary{
		BasicFetches:   1,
		StorageFetches: 2,
		AbsentAccounts: 1,
		BlockHashes:    1,
	}, summary)

	cacheDB, err := cache.LoadCacheFromFile(projectConfig.Snapshot.OutputPath, state.EmptyDatabase{})
	require.NoError(t, err)
	require.Len(t, cacheDB.Accounts, 2)
	assert.Equal(t, cache.AccountStateNotExisting, cacheDB.Accounts[testAbsentAddress].AccountState)

	contract := cacheDB.Accounts[testContractAddress]
	require.NotNil(t, contract)
	assert.EqualValues(t, 1, contract.Info.Nonce)
	assert.Equal(t, "1.5", formatEther(contract.Info.Balance))
	assert.Equal(t, *uint256.NewInt(3), contract.Storage[*uint256.NewInt(1)])
	unwritten, ok := contract.Storage[*uint256.NewInt(2)]
	assert.True(t, ok)
	assert.True(t, unwritten.IsZero())
	assert.Len(t, contract.Storage, 2)
	assert.Contains(t, cacheDB.Contracts, contract.Info.CodeHash)

	// block hashes are not persisted
	assert.Empty(t, cacheDB.BlockHashes)
}

// TestFetchStateWarmCache verifies state held by the input snapshot is not fetched again.
func TestFetchStateWarmCache(t *testing.T) {
	node := newTestNode(t)
	projectConfig := newTestFetchConfig(t, node)

	_, err := fetchState(context.Background(), projectConfig)
	require.NoError(t, err)
	balanceCalls := node.callCount("eth_getBalance")
	storageCalls := node.callCount("eth_getStorageAt")

	projectConfig.Snapshot.InputPath = projectConfig.Snapshot.OutputPath
	projectConfig.Snapshot.OutputPath = filepath.Join(t.TempDir(), "warm.json")
	summary, err := fetchState(context.Background(), projectConfig)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.BasicFetches)
	assert.Equal(t, 0, summary.StorageFetches)
	assert.Equal(t, 1, summary.AbsentAccounts)
	assert.Equal(t, 1, summary.BlockHashes)

	assert.Equal(t, balanceCalls, node.callCount("eth_getBalance"))
	assert.Equal(t, storageCalls, node.callCount("eth_getStorageAt"))
	assert.FileExists(t, projectConfig.Snapshot.OutputPath)
}

// TestFetchStateMissingInput verifies a configured input snapshot that does not exist starts a cold cache.
func TestFetchStateMissingInput(t *testing.T) {
	node := newTestNode(t)
	projectConfig := newTestFetchConfig(t, node)
	projectConfig.Snapshot.InputPath = filepath.Join(t.TempDir(), "missing.json")

	summary, err := fetchState(context.Background(), projectConfig)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.BasicFetches)
}

// TestFetchStateErrors verifies rpc and snapshot failures are returned and that no snapshot is written.
func TestFetchStateErrors(t *testing.T) {
	node := newTestNode(t)
	projectConfig := newTestFetchConfig(t, node)

	// A malformed input snapshot
	projectConfig.Snapshot.InputPath = filepath.Join(t.TempDir(), "malformed.json")
	require.NoError(t, os.WriteFile(projectConfig.Snapshot.InputPath, []byte("{"), 0644))
	_, err := fetchState(context.Background(), projectConfig)
	assert.True(t, cache.IsSnapshotErrorKind(err, cache.SnapshotErrorDecode))
	assert.NoFileExists(t, projectConfig.Snapshot.OutputPath)

	// An unreachable output directory
	projectConfig.Snapshot.InputPath = ""
	projectConfig.Snapshot.OutputPath = filepath.Join(t.TempDir(), "missing", "snapshot.json")
	_, err = fetchState(context.Background(), projectConfig)
	assert.True(t, cache.IsSnapshotErrorKind(err, cache.SnapshotErrorIO))

	// A failing node
	node.lock.Lock()
	node.failing = true
	node.lock.Unlock()
	projectConfig.Snapshot.OutputPath = filepath.Join(t.TempDir(), "snapshot.json")
	_, err = fetchState(context.Background(), projectConfig)
	assert.Error(t, err)
	assert.NoFileExists(t, projectConfig.Snapshot.OutputPath)
}

// TestFetchStateCancelled verifies fetching stops once the context is cancelled.
func TestFetchStateCancelled(t *testing.T) {
	node := newTestNode(t)
	projectConfig := newTestFetchConfig(t, node)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := fetchState(ctx, projectConfig)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, projectConfig.Snapshot.OutputPath)
}

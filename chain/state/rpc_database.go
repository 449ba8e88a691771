package state

import (
	"context"
	"sync"

	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/common/hexutil"
	"github.com/crytic/medusa-statecache/chain/state/cache"
	"github.com/crytic/medusa-statecache/chain/state/rpc"
	"github.com/crytic/medusa-statecache/chain/types"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

var _ types.DatabaseRef = (*RPCDatabase)(nil)

// ErrUnknownCodeHash is returned by RPCDatabase.CodeByHashRef for code hashes of accounts it has not fetched.
var ErrUnknownCodeHash = errors.New("code hash does not belong to any account fetched from the rpc endpoint")

/*
RPCDatabase defines a types.DatabaseRef for fetching state from a remote RPC server. It is locked to a single block
height, and caches data with no expiry, either in-memory or persisted to disk.
*/
type RPCDatabase struct {
	context    context.Context
	clientPool *rpc.ClientPool
	height     string

	cache cache.StateCache

	codeLock   sync.RWMutex
	codeByHash map[common.Hash]types.Bytecode
}

/*
NewRPCDatabase dials poolSize clients to the RPC server at url and returns an RPCDatabase reading state at the given
block height. If cacheDir is non-empty, fetched state is persisted to a cache file beneath it and reused by later
instances for the same url and height. The context bounds every request and closes the persistent cache when done.
*/
func NewRPCDatabase(
	ctx context.Context,
	url string,
	height uint64,
	poolSize uint,
	cacheDir string) (*RPCDatabase, error) {
	clientPool, err := rpc.NewClientPool(ctx, url, poolSize)
	if err != nil {
		return nil, err
	}

	var stateCache cache.StateCache
	if cacheDir != "" {
		stateCache, err = cache.NewPersistentCache(ctx, cacheDir, url, height)
		if err != nil {
			clientPool.Close()
			return nil, err
		}
	} else {
		stateCache = cache.NewNonPersistentCache()
	}

	return newRPCDatabase(ctx, clientPool, height, stateCache), nil
}

func newRPCDatabase(ctx context.Context, clientPool *rpc.ClientPool, height uint64, stateCache cache.StateCache) *RPCDatabase {
	return &RPCDatabase{
		context:    ctx,
		clientPool: clientPool,
		height:     hexutil.Uint64(height).String(),
		cache:      stateCache,
		codeByHash: make(map[common.Hash]types.Bytecode),
	}
}

/*
BasicRef returns the account stored in the remote RPC for the given address.
Note that the Ethereum RPC reports accounts that do not exist as having zero balance, zero nonce and no code, so such
accounts are reported as absent.
Errors may be network errors or a context cancelled error when the caller is shutting down.
*/
func (q *RPCDatabase) BasicRef(addr common.Address) (*types.AccountInfo, error) {
	obj, err := q.getStateObject(addr)
	if err != nil {
		return nil, err
	}
	if obj.Nonce == 0 && len(obj.Code) == 0 && (obj.Balance == nil || obj.Balance.IsZero()) {
		return nil, nil
	}

	var balance *uint256.Int
	if obj.Balance != nil {
		balance = new(uint256.Int).Set(obj.Balance)
	}
	info := types.NewAccountInfo(balance, obj.Nonce, obj.Code.Copy())
	if info.HasCode() {
		q.codeLock.Lock()
		q.codeByHash[info.CodeHash] = info.Code
		q.codeLock.Unlock()
	}
	return info, nil
}

// CodeByHashRef returns the code with the given hash, provided it belongs to an account previously fetched through
// BasicRef. The Ethereum RPC offers no lookup of code by hash.
func (q *RPCDatabase) CodeByHashRef(codeHash common.Hash) (types.Bytecode, error) {
	if codeHash == types.EmptyCodeHash || codeHash == (common.Hash{}) {
		return types.Bytecode{}, nil
	}

	q.codeLock.RLock()
	defer q.codeLock.RUnlock()
	if code, ok := q.codeByHash[codeHash]; ok {
		return code, nil
	}
	return nil, errors.Wrapf(ErrUnknownCodeHash, "code hash %s", codeHash.Hex())
}

/*
StorageRef returns data stored in the remote RPC for the given address/slot.
Note that Ethereum RPC will return zero for slots that have never been written to or are associated with undeployed
contracts.
*/
func (q *RPCDatabase) StorageRef(addr common.Address, index uint256.Int) (uint256.Int, error) {
	slot := common.Hash(index.Bytes32())
	data, err := q.cache.GetSlotData(addr, slot)
	if err != nil {
		var result hexutil.Bytes
		err = q.clientPool.ExecuteRequestBlocking(q.context, &result, "eth_getStorageAt", addr, slot, q.height)
		if err != nil {
			return uint256.Int{}, err
		}
		data = common.BytesToHash(result)
		if err = q.cache.WriteSlotData(addr, slot, data); err != nil {
			return uint256.Int{}, err
		}
	}

	var value uint256.Int
	value.SetBytes32(data[:])
	return value, nil
}

// blockHeader is the subset of an eth_getBlockByNumber result the database reads.
type blockHeader struct {
	Hash common.Hash `json:"hash"`
}

// BlockHashRef returns the hash of the block with the given number from the remote RPC.
func (q *RPCDatabase) BlockHashRef(number uint64) (common.Hash, error) {
	hash, err := q.cache.GetBlockHash(number)
	if err == nil {
		return hash, nil
	}

	var header *blockHeader
	err = q.clientPool.ExecuteRequestBlocking(q.context, &header, "eth_getBlockByNumber", hexutil.Uint64(number), false)
	if err != nil {
		return common.Hash{}, err
	}
	if header == nil {
		return common.Hash{}, errors.Errorf("block %d was not found", number)
	}
	return header.Hash, q.cache.WriteBlockHash(number, header.Hash)
}

// getStateObject returns the raw balance, nonce and code of the account, querying all three concurrently on a cache
// miss.
func (q *RPCDatabase) getStateObject(addr common.Address) (*cache.StateObject, error) {
	obj, err := q.cache.GetStateObject(addr)
	if err == nil {
		return obj, nil
	}

	balance := hexutil.Big{}
	nonce := hexutil.Uint64(0)
	code := hexutil.Bytes{}

	pendingBalance, err := q.clientPool.ExecuteRequestAsync(q.context, "eth_getBalance", addr, q.height)
	if err != nil {
		return nil, err
	}
	pendingNonce, err := q.clientPool.ExecuteRequestAsync(q.context, "eth_getTransactionCount", addr, q.height)
	if err != nil {
		return nil, err
	}
	pendingCode, err := q.clientPool.ExecuteRequestAsync(q.context, "eth_getCode", addr, q.height)
	if err != nil {
		return nil, err
	}

	if err = pendingBalance.GetResultBlocking(&balance); err != nil {
		return nil, err
	}
	balanceTyped, overflow := uint256.FromBig(balance.ToInt())
	if overflow {
		return nil, errors.Errorf("balance of %s does not fit in 256 bits", addr.Hex())
	}
	if err = pendingNonce.GetResultBlocking(&nonce); err != nil {
		return nil, err
	}
	if err = pendingCode.GetResultBlocking(&code); err != nil {
		return nil, err
	}

	fetched := cache.StateObject{
		Balance: balanceTyped,
		Nonce:   uint64(nonce),
		Code:    types.Bytecode(code),
	}
	if err = q.cache.WriteStateObject(addr, fetched); err != nil {
		return nil, err
	}
	return &fetched, nil
}

// Close releases the RPC clients and the state cache.
func (q *RPCDatabase) Close() error {
	q.clientPool.Close()
	return q.cache.Close()
}

package cache

import (
	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-statecache/chain/types"
	"github.com/holiman/uint256"
)

// StateObject gives us a way to memoize the raw account values returned by a remote endpoint without deciding yet
// whether the account exists.
type StateObject struct {
	Balance *uint256.Int   `json:"balance"`
	Nonce   uint64         `json:"nonce"`
	Code    types.Bytecode `json:"code"`
}

// StateCache memoizes state fetched from a remote endpoint pinned to a single block height. Lookups which were never
// written return ErrCacheMiss.
type StateCache interface {
	GetStateObject(addr common.Address) (*StateObject, error)
	WriteStateObject(addr common.Address, data StateObject) error

	GetSlotData(addr common.Address, slot common.Hash) (common.Hash, error)
	WriteSlotData(addr common.Address, slot common.Hash, data common.Hash) error

	GetBlockHash(number uint64) (common.Hash, error)
	WriteBlockHash(number uint64, hash common.Hash) error

	// Close releases any resources held by the cache, flushing pending writes.
	Close() error
}

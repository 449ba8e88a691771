package types

import (
	"github.com/crytic/medusa-geth/common"
	"github.com/holiman/uint256"
)

// DatabaseRef defines a read-only source of account and storage state for EVM execution. Implementations may be backed
// by a remote RPC endpoint, an on-disk store, an in-memory cache or another DatabaseRef.
type DatabaseRef interface {
	// BasicRef returns the top-level account information for the given address. A nil AccountInfo with a nil error
	// indicates the account does not exist.
	BasicRef(addr common.Address) (*AccountInfo, error)

	// CodeByHashRef returns the bytecode with the given keccak256 hash.
	CodeByHashRef(codeHash common.Hash) (Bytecode, error)

	// StorageRef returns the value of the given storage slot for the given address. Slots which were never written
	// hold the zero value.
	StorageRef(addr common.Address, index uint256.Int) (uint256.Int, error)

	// BlockHashRef returns the hash of the block with the given number.
	BlockHashRef(number uint64) (common.Hash, error)
}

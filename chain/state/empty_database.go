package state

import (
	"strconv"

	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/crypto"
	"github.com/crytic/medusa-statecache/chain/types"
	"github.com/holiman/uint256"
)

var _ types.DatabaseRef = (*EmptyDatabase)(nil)

// EmptyDatabase is a types.DatabaseRef holding no state. Every account is absent, every slot is zero and every code
// hash resolves to empty bytecode. Block hashes are derived from the block number so they are stable but distinct.
type EmptyDatabase struct{}

func (d EmptyDatabase) BasicRef(addr common.Address) (*types.AccountInfo, error) {
	return nil, nil
}

func (d EmptyDatabase) CodeByHashRef(codeHash common.Hash) (types.Bytecode, error) {
	return types.Bytecode{}, nil
}

func (d EmptyDatabase) StorageRef(addr common.Address, index uint256.Int) (uint256.Int, error) {
	return uint256.Int{}, nil
}

// BlockHashRef returns the keccak256 hash of the decimal representation of the block number.
func (d EmptyDatabase) BlockHashRef(number uint64) (common.Hash, error) {
	return crypto.Keccak256Hash([]byte(strconv.FormatUint(number, 10))), nil
}

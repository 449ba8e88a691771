package cache

import (
	"errors"

	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-statecache/chain/types"
	"github.com/holiman/uint256"
)

/* This file is exclusively for test fixtures. */

var _ types.DatabaseRef = (*countingDatabase)(nil)

var errDatabaseUnavailable = errors.New("database unavailable")

// countingDatabase is an offline-only database that counts the reads made against it.
type countingDatabase struct {
	accounts    map[common.Address]*types.AccountInfo
	storage     map[common.Address]map[uint256.Int]uint256.Int
	contracts   map[common.Hash]types.Bytecode
	blockHashes map[uint64]common.Hash

	failing bool

	basicReads     int
	codeReads      int
	storageReads   int
	blockHashReads int
}

func newCountingDatabase() *countingDatabase {
	return &countingDatabase{
		accounts:    make(map[common.Address]*types.AccountInfo),
		storage:     make(map[common.Address]map[uint256.Int]uint256.Int),
		contracts:   make(map[common.Hash]types.Bytecode),
		blockHashes: make(map[uint64]common.Hash),
	}
}

func (d *countingDatabase) setAccount(addr common.Address, info *types.AccountInfo) {
	d.accounts[addr] = info
	if len(info.Code) > 0 {
		d.contracts[info.CodeHash] = info.Code
	}
}

func (d *countingDatabase) setStorage(addr common.Address, index uint64, value uint64) {
	if _, ok := d.storage[addr]; !ok {
		d.storage[addr] = make(map[uint256.Int]uint256.Int)
	}
	d.storage[addr][*uint256.NewInt(index)] = *uint256.NewInt(value)
}

func (d *countingDatabase) BasicRef(addr common.Address) (*types.AccountInfo, error) {
	d.basicReads++
	if d.failing {
		return nil, errDatabaseUnavailable
	}
	if info, ok := d.accounts[addr]; ok {
		return info.Copy(), nil
	}
	return nil, nil
}

func (d *countingDatabase) CodeByHashRef(codeHash common.Hash) (types.Bytecode, error) {
	d.codeReads++
	if d.failing {
		return nil, errDatabaseUnavailable
	}
	if code, ok := d.contracts[codeHash]; ok {
		return code, nil
	}
	return types.Bytecode{}, nil
}

func (d *countingDatabase) StorageRef(addr common.Address, index uint256.Int) (uint256.Int, error) {
	d.storageReads++
	if d.failing {
		return uint256.Int{}, errDatabaseUnavailable
	}
	if slots, ok := d.storage[addr]; ok {
		return slots[index], nil
	}
	return uint256.Int{}, nil
}

func (d *countingDatabase) BlockHashRef(number uint64) (common.Hash, error) {
	d.blockHashReads++
	if d.failing {
		return common.Hash{}, errDatabaseUnavailable
	}
	return d.blockHashes[number], nil
}

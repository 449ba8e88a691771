package state

import (
	"errors"

	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-statecache/chain/types"
	"github.com/holiman/uint256"
)

/* This file is exclusively for test fixtures. */

var _ types.DatabaseRef = (*prePopulatedDatabase)(nil)

var errDatabaseOffline = errors.New("database offline")

// prePopulatedDatabase is an offline-only database used for testing.
type prePopulatedDatabase struct {
	accounts    map[common.Address]*types.AccountInfo
	storage     map[common.Address]map[uint256.Int]uint256.Int
	blockHashes map[uint64]common.Hash

	// failing causes every read to return errDatabaseOffline.
	failing bool
}

func newPrePopulatedDatabase() *prePopulatedDatabase {
	return &prePopulatedDatabase{
		accounts:    make(map[common.Address]*types.AccountInfo),
		storage:     make(map[common.Address]map[uint256.Int]uint256.Int),
		blockHashes: make(map[uint64]common.Hash),
	}
}

func (p *prePopulatedDatabase) BasicRef(addr common.Address) (*types.AccountInfo, error) {
	if p.failing {
		return nil, errDatabaseOffline
	}
	if info, exists := p.accounts[addr]; exists {
		return info.Copy(), nil
	}
	return nil, nil
}

func (p *prePopulatedDatabase) CodeByHashRef(codeHash common.Hash) (types.Bytecode, error) {
	if p.failing {
		return nil, errDatabaseOffline
	}
	for _, info := range p.accounts {
		if info.CodeHash == codeHash {
			return info.Code.Copy(), nil
		}
	}
	return types.Bytecode{}, nil
}

func (p *prePopulatedDatabase) StorageRef(addr common.Address, index uint256.Int) (uint256.Int, error) {
	if p.failing {
		return uint256.Int{}, errDatabaseOffline
	}
	if slots, exists := p.storage[addr]; exists {
		return slots[index], nil
	}
	return uint256.Int{}, nil
}

func (p *prePopulatedDatabase) BlockHashRef(number uint64) (common.Hash, error) {
	if p.failing {
		return common.Hash{}, errDatabaseOffline
	}
	return p.blockHashes[number], nil
}

func (p *prePopulatedDatabase) setStorage(addr common.Address, index uint64, value uint64) {
	if _, exists := p.storage[addr]; !exists {
		p.storage[addr] = make(map[uint256.Int]uint256.Int)
	}
	p.storage[addr][*uint256.NewInt(index)] = *uint256.NewInt(value)
}

// prePopulatedDatabaseFixture is a test fixture for a pre-populated database
type prePopulatedDatabaseFixture struct {
	Database *prePopulatedDatabase

	ContractAddress common.Address
	Contract        *types.AccountInfo

	StorageSlotPopulatedKey  uint256.Int
	StorageSlotPopulatedData uint256.Int

	StorageSlotEmptyKey uint256.Int

	EOAAddress common.Address
	EOA        *types.AccountInfo

	AbsentAddress common.Address
}

func newPrePopulatedDatabaseFixture() *prePopulatedDatabaseFixture {
	db := newPrePopulatedDatabase()

	contractAddress := common.HexToAddress("0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
	contract := types.NewAccountInfo(uint256.NewInt(100), 1, types.Bytecode{0x60, 0x80, 0x60, 0x40})
	db.accounts[contractAddress] = contract
	db.setStorage(contractAddress, 5, 123)

	eoaAddress := common.HexToAddress("0xCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCC")
	eoa := types.NewAccountInfo(uint256.NewInt(5000), 3, nil)
	db.accounts[eoaAddress] = eoa

	db.blockHashes[1] = common.HexToHash("0x01")

	return &prePopulatedDatabaseFixture{
		Database:                 db,
		ContractAddress:          contractAddress,
		Contract:                 contract,
		StorageSlotPopulatedKey:  *uint256.NewInt(5),
		StorageSlotPopulatedData: *uint256.NewInt(123),
		StorageSlotEmptyKey:      *uint256.NewInt(6),
		EOAAddress:               eoaAddress,
		EOA:                      eoa,
		AbsentAddress:            common.HexToAddress("0xBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB"),
	}
}

// recordingSink is a types.FetchSink that records every fetch and optionally fails each send.
type recordingSink struct {
	fetches []types.Fetch
	err     error
}

func (r *recordingSink) Send(fetch types.Fetch) error {
	if r.err != nil {
		return r.err
	}
	r.fetches = append(r.fetches, fetch)
	return nil
}

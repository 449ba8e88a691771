package cache

import (
	"sync"

	"github.com/crytic/medusa-geth/common"
	gethtypes "github.com/crytic/medusa-geth/core/types"
	"github.com/crytic/medusa-statecache/chain/types"
	"github.com/holiman/uint256"
)

var _ types.DatabaseRef = (*CacheDB)(nil)

// CacheDB is an in-memory layer over a types.DatabaseRef. Accounts, storage, contract code and block hashes read
// through it are cached, and values can be inserted directly to override or warm the underlying database.
type CacheDB struct {
	// Accounts maps each cached address to its cached account state and storage.
	Accounts map[common.Address]*DbAccount

	// Contracts maps code hashes to bytecode. It always contains entries for EmptyCodeHash and the zero hash.
	Contracts map[common.Hash]types.Bytecode

	// Logs holds logs emitted during execution against this cache.
	Logs []*gethtypes.Log

	// BlockHashes maps block numbers to block hashes.
	BlockHashes map[uint64]common.Hash

	// Db is the underlying database that cache misses fall back to.
	Db types.DatabaseRef

	lock sync.RWMutex
}

// NewCacheDB creates an empty CacheDB over the provided database.
func NewCacheDB(db types.DatabaseRef) *CacheDB {
	return newCacheDB(db, make(map[common.Address]*DbAccount), newContracts())
}

func newCacheDB(db types.DatabaseRef, accounts map[common.Address]*DbAccount, contracts map[common.Hash]types.Bytecode) *CacheDB {
	return &CacheDB{
		Accounts:    accounts,
		Contracts:   contracts,
		Logs:        make([]*gethtypes.Log, 0),
		BlockHashes: make(map[uint64]common.Hash),
		Db:          db,
	}
}

func newContracts() map[common.Hash]types.Bytecode {
	return map[common.Hash]types.Bytecode{
		types.EmptyCodeHash: {},
		{}:                  {},
	}
}

// InsertContract records the account's code in the contract map, filling in the account's code hash if it was not
// set. Accounts without code only have empty code normalized to nil and a zero code hash to EmptyCodeHash.
func (c *CacheDB) InsertContract(info *types.AccountInfo) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.insertContract(info)
}

func (c *CacheDB) insertContract(info *types.AccountInfo) {
	// empty code is stored as nil, the form snapshots load it back as
	if len(info.Code) == 0 {
		info.Code = nil
	}
	if len(info.Code) > 0 {
		if info.CodeHash == types.EmptyCodeHash || info.CodeHash == (common.Hash{}) {
			info.CodeHash = info.Code.Hash()
		}
		if _, exists := c.Contracts[info.CodeHash]; !exists {
			c.Contracts[info.CodeHash] = info.Code.Copy()
		}
	}
	if info.CodeHash == (common.Hash{}) {
		info.CodeHash = types.EmptyCodeHash
	}
}

// InsertAccountInfo sets the account information for the given address, keeping any cached storage.
func (c *CacheDB) InsertAccountInfo(addr common.Address, info types.AccountInfo) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.insertContract(&info)
	account, exists := c.Accounts[addr]
	if !exists {
		account = &DbAccount{Storage: make(StorageSlots)}
		c.Accounts[addr] = account
	}
	account.Info = info
	if account.AccountState == AccountStateNotExisting {
		account.AccountState = AccountStateTouched
	}
}

// InsertAccountStorage sets the value of a single storage slot, loading the account from the underlying database
// first if it is not cached.
func (c *CacheDB) InsertAccountStorage(addr common.Address, index uint256.Int, value uint256.Int) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	account, err := c.loadAccount(addr)
	if err != nil {
		return err
	}
	account.Storage[index] = value
	return nil
}

// ReplaceAccountStorage replaces all storage of the given account. Slots not present in storage are considered zero
// from then on, without consulting the underlying database.
func (c *CacheDB) ReplaceAccountStorage(addr common.Address, storage map[uint256.Int]uint256.Int) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	account, err := c.loadAccount(addr)
	if err != nil {
		return err
	}
	account.AccountState = AccountStateStorageCleared
	account.Storage = make(StorageSlots, len(storage))
	for index, value := range storage {
		account.Storage[index] = value
	}
	return nil
}

// InsertBlockHash records the hash of the given block number.
func (c *CacheDB) InsertBlockHash(number uint64, hash common.Hash) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.BlockHashes[number] = hash
}

// AddLog records a log emitted during execution.
func (c *CacheDB) AddLog(log *gethtypes.Log) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.Logs = append(c.Logs, log)
}

// loadAccount returns the cached account for the address, fetching and caching it from the underlying database on a
// miss. The write lock must be held by the caller.
func (c *CacheDB) loadAccount(addr common.Address) (*DbAccount, error) {
	if account, ok := c.Accounts[addr]; ok {
		return account, nil
	}

	info, err := c.Db.BasicRef(addr)
	if err != nil {
		return nil, err
	}

	var account *DbAccount
	if info != nil {
		info = info.Copy()
		c.insertContract(info)
		account = newDbAccount(info)
	} else {
		account = newNotExistingDbAccount()
	}
	c.Accounts[addr] = account
	return account, nil
}

// Basic returns the account information for the address, caching the result of the underlying database on a miss.
func (c *CacheDB) Basic(addr common.Address) (*types.AccountInfo, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	account, err := c.loadAccount(addr)
	if err != nil {
		return nil, err
	}
	return account.AccountInfo(), nil
}

// CodeByHash returns the bytecode for the code hash, caching the result of the underlying database on a miss.
func (c *CacheDB) CodeByHash(codeHash common.Hash) (types.Bytecode, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if code, ok := c.Contracts[codeHash]; ok {
		return code, nil
	}
	code, err := c.Db.CodeByHashRef(codeHash)
	if err != nil {
		return nil, err
	}
	c.Contracts[codeHash] = code
	return code, nil
}

// Storage returns the value of the storage slot, caching the account and slot from the underlying database on a miss.
func (c *CacheDB) Storage(addr common.Address, index uint256.Int) (uint256.Int, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if account, ok := c.Accounts[addr]; ok {
		if value, ok := account.Storage[index]; ok {
			return value, nil
		}
		if account.AccountState == AccountStateStorageCleared || account.AccountState == AccountStateNotExisting {
			return uint256.Int{}, nil
		}
		value, err := c.Db.StorageRef(addr, index)
		if err != nil {
			return uint256.Int{}, err
		}
		account.Storage[index] = value
		return value, nil
	}

	// the account is not cached yet, so load it alongside the slot
	info, err := c.Db.BasicRef(addr)
	if err != nil {
		return uint256.Int{}, err
	}
	if info == nil {
		c.Accounts[addr] = newNotExistingDbAccount()
		return uint256.Int{}, nil
	}

	value, err := c.Db.StorageRef(addr, index)
	if err != nil {
		return uint256.Int{}, err
	}
	info = info.Copy()
	c.insertContract(info)
	account := newDbAccount(info)
	account.Storage[index] = value
	c.Accounts[addr] = account
	return value, nil
}

// BlockHash returns the hash of the block number, caching the result of the underlying database on a miss.
func (c *CacheDB) BlockHash(number uint64) (common.Hash, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if hash, ok := c.BlockHashes[number]; ok {
		return hash, nil
	}
	hash, err := c.Db.BlockHashRef(number)
	if err != nil {
		return common.Hash{}, err
	}
	c.BlockHashes[number] = hash
	return hash, nil
}

// BasicRef implements types.DatabaseRef. Unlike Basic, cache misses are not recorded.
func (c *CacheDB) BasicRef(addr common.Address) (*types.AccountInfo, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	if account, ok := c.Accounts[addr]; ok {
		return account.AccountInfo(), nil
	}
	return c.Db.BasicRef(addr)
}

// CodeByHashRef implements types.DatabaseRef. Unlike CodeByHash, cache misses are not recorded.
func (c *CacheDB) CodeByHashRef(codeHash common.Hash) (types.Bytecode, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	if code, ok := c.Contracts[codeHash]; ok {
		return code, nil
	}
	return c.Db.CodeByHashRef(codeHash)
}

// StorageRef implements types.DatabaseRef. Unlike Storage, cache misses are not recorded.
func (c *CacheDB) StorageRef(addr common.Address, index uint256.Int) (uint256.Int, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	if account, ok := c.Accounts[addr]; ok {
		if value, ok := account.Storage[index]; ok {
			return value, nil
		}
		if account.AccountState == AccountStateStorageCleared || account.AccountState == AccountStateNotExisting {
			return uint256.Int{}, nil
		}
	}
	return c.Db.StorageRef(addr, index)
}

// BlockHashRef implements types.DatabaseRef. Unlike BlockHash, cache misses are not recorded.
func (c *CacheDB) BlockHashRef(number uint64) (common.Hash, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	if hash, ok := c.BlockHashes[number]; ok {
		return hash, nil
	}
	return c.Db.BlockHashRef(number)
}

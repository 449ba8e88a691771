package cache

import (
	"sync"

	"github.com/crytic/medusa-geth/common"
)

// slotRef addresses a single storage slot of a single account.
type slotRef struct {
	addr common.Address
	slot common.Hash
}

// nonPersistentStateCache is a thread-safe StateCache that only lives in memory. It also backs persistentCache as its
// read-through layer.
type nonPersistentStateCache struct {
	lock sync.RWMutex

	stateObjects map[common.Address]StateObject
	slots        map[slotRef]common.Hash
	blockHashes  map[uint64]common.Hash
}

func newNonPersistentStateCache() *nonPersistentStateCache {
	return &nonPersistentStateCache{
		stateObjects: make(map[common.Address]StateObject),
		slots:        make(map[slotRef]common.Hash),
		blockHashes:  make(map[uint64]common.Hash),
	}
}

// GetStateObject returns the cached state object of the address, or ErrCacheMiss.
func (s *nonPersistentStateCache) GetStateObject(addr common.Address) (*StateObject, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	obj, ok := s.stateObjects[addr]
	if !ok {
		return nil, ErrCacheMiss
	}
	return &obj, nil
}

func (s *nonPersistentStateCache) WriteStateObject(addr common.Address, data StateObject) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.stateObjects[addr] = data
	return nil
}

// GetSlotData returns the cached value of the storage slot, or ErrCacheMiss.
func (s *nonPersistentStateCache) GetSlotData(addr common.Address, slot common.Hash) (common.Hash, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	data, ok := s.slots[slotRef{addr: addr, slot: slot}]
	if !ok {
		return common.Hash{}, ErrCacheMiss
	}
	return data, nil
}

func (s *nonPersistentStateCache) WriteSlotData(addr common.Address, slot common.Hash, data common.Hash) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.slots[slotRef{addr: addr, slot: slot}] = data
	return nil
}

// GetBlockHash returns the cached hash of the block number, or ErrCacheMiss.
func (s *nonPersistentStateCache) GetBlockHash(number uint64) (common.Hash, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	hash, ok := s.blockHashes[number]
	if !ok {
		return common.Hash{}, ErrCacheMiss
	}
	return hash, nil
}

func (s *nonPersistentStateCache) WriteBlockHash(number uint64, hash common.Hash) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.blockHashes[number] = hash
	return nil
}

// Close is a no-op, as nothing outlives the process.
func (s *nonPersistentStateCache) Close() error {
	return nil
}

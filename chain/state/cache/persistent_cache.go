package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-statecache/logging"
	"go.etcd.io/bbolt"
)

var (
	stateObjectBucket = []byte("objects")
	slotBucket        = []byte("slots")
	blockHashBucket   = []byte("blockhashes")
)

// cacheDirectoryName is the directory, relative to the working directory, that persistent cache files live in.
const cacheDirectoryName = ".statecache"

// persistentCache provides a thread-safe cache for storing objects/slots/block hashes that persists the cache to disk.
type persistentCache struct {
	memCache *nonPersistentStateCache
	db       *bbolt.DB

	pendingWriteMutex sync.Mutex
	pendingWrites     []pendingWrite
	flushThreshold    int

	closeOnce sync.Once
	closeErr  error
}

type pendingWrite struct {
	bucket []byte
	key    []byte
	value  []byte
}

func newPersistentCache(ctx context.Context, workingDir string, rpcAddr string, height uint64) (*persistentCache, error) {
	cacheDir, err := createCacheDirectory(workingDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	cacheFile := filepath.Join(cacheDir, getCacheFilename(rpcAddr, height))
	db, err := bbolt.Open(cacheFile, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("could not open db: %w", err)
	}

	// create the buckets if they don't exist
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range [][]byte{stateObjectBucket, slotBucket, blockHashBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	p := &persistentCache{
		memCache:          newNonPersistentStateCache(),
		db:                db,
		flushThreshold:    25,
		pendingWrites:     []pendingWrite{},
		pendingWriteMutex: sync.Mutex{},
	}

	// close db if context cancelled
	go func() {
		<-ctx.Done()
		err := p.Close()
		if err != nil {
			logging.GlobalLogger.Error("Failed to close the persistent state cache", err)
		}
	}()

	return p, nil
}

func (p *persistentCache) getFromPersist(bucket []byte, key []byte, value interface{}) (bool, error) {
	found := false
	err := p.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucket).Get(key)
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, value)
	})
	if err != nil {
		return false, fmt.Errorf("could not get value: %w", err)
	}
	return found, nil
}

func (p *persistentCache) writeToPersist(bucket []byte, key []byte, value interface{}) error {
	serialized, err := json.Marshal(value)
	if err != nil {
		return err
	}

	p.pendingWriteMutex.Lock()
	defer p.pendingWriteMutex.Unlock()

	p.pendingWrites = append(p.pendingWrites, pendingWrite{bucket: bucket, key: key, value: serialized})
	if len(p.pendingWrites) >= p.flushThreshold {
		return p.flushWrites()
	}
	return nil
}

// flushWrites commits all pending writes in a single transaction. The pending write mutex must be held by the caller.
func (p *persistentCache) flushWrites() error {
	if len(p.pendingWrites) == 0 {
		return nil
	}
	err := p.db.Update(func(tx *bbolt.Tx) error {
		for _, pw := range p.pendingWrites {
			err := tx.Bucket(pw.bucket).Put(pw.key, pw.value)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err == nil {
		p.pendingWrites = p.pendingWrites[:0]
	}
	return err
}

func (p *persistentCache) GetStateObject(addr common.Address) (*StateObject, error) {
	so, err := p.memCache.GetStateObject(addr)
	if !errors.Is(err, ErrCacheMiss) {
		return so, err
	}

	// check persistent cache
	s := StateObject{}
	exists, err := p.getFromPersist(stateObjectBucket, addr[:], &s)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrCacheMiss
	}
	err = p.memCache.WriteStateObject(addr, s)
	return &s, err
}

func (p *persistentCache) GetSlotData(addr common.Address, slot common.Hash) (common.Hash, error) {
	data, err := p.memCache.GetSlotData(addr, slot)
	if !errors.Is(err, ErrCacheMiss) {
		return data, err
	}

	// check persistent cache
	data = common.Hash{}
	exists, err := p.getFromPersist(slotBucket, slotKey(addr, slot), &data)
	if err != nil {
		return common.Hash{}, err
	}
	if !exists {
		return common.Hash{}, ErrCacheMiss
	}
	err = p.memCache.WriteSlotData(addr, slot, data)
	return data, err
}

func (p *persistentCache) GetBlockHash(number uint64) (common.Hash, error) {
	hash, err := p.memCache.GetBlockHash(number)
	if !errors.Is(err, ErrCacheMiss) {
		return hash, err
	}

	hash = common.Hash{}
	exists, err := p.getFromPersist(blockHashBucket, blockNumberKey(number), &hash)
	if err != nil {
		return common.Hash{}, err
	}
	if !exists {
		return common.Hash{}, ErrCacheMiss
	}
	err = p.memCache.WriteBlockHash(number, hash)
	return hash, err
}

func (p *persistentCache) WriteStateObject(addr common.Address, data StateObject) error {
	err := p.memCache.WriteStateObject(addr, data)
	if err != nil {
		return err
	}
	return p.writeToPersist(stateObjectBucket, addr.Bytes(), data)
}

func (p *persistentCache) WriteSlotData(addr common.Address, slot common.Hash, data common.Hash) error {
	err := p.memCache.WriteSlotData(addr, slot, data)
	if err != nil {
		return err
	}
	return p.writeToPersist(slotBucket, slotKey(addr, slot), data)
}

func (p *persistentCache) WriteBlockHash(number uint64, hash common.Hash) error {
	err := p.memCache.WriteBlockHash(number, hash)
	if err != nil {
		return err
	}
	return p.writeToPersist(blockHashBucket, blockNumberKey(number), hash)
}

// Close flushes any pending writes and closes the underlying database. Subsequent calls return the first result.
func (p *persistentCache) Close() error {
	p.closeOnce.Do(func() {
		p.pendingWriteMutex.Lock()
		err := p.flushWrites()
		p.pendingWriteMutex.Unlock()

		closeErr := p.db.Close()
		if err == nil {
			err = closeErr
		}
		p.closeErr = err
	})
	return p.closeErr
}

func slotKey(addr common.Address, slot common.Hash) []byte {
	key := make([]byte, 0, common.AddressLength+common.HashLength)
	key = append(key, addr[:]...)
	return append(key, slot[:]...)
}

func blockNumberKey(number uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, number)
	return key
}

func createCacheDirectory(workingDir string) (string, error) {
	cachePath := filepath.Join(workingDir, cacheDirectoryName)
	_, err := os.Stat(cachePath)
	if os.IsNotExist(err) {
		// Create directory with 0755 permissions if it doesn't exist
		err = os.MkdirAll(cachePath, 0755)
		if err != nil {
			return "", fmt.Errorf("failed to create cache directory: %w", err)
		}
	} else if err != nil {
		return "", fmt.Errorf("failed to check cache directory: %w", err)
	}
	return cachePath, nil
}

func getCacheFilename(rpcAddr string, height uint64) string {
	h := sha256.New()
	h.Write([]byte(rpcAddr))
	bs := h.Sum(nil)

	return fmt.Sprintf("%d-%x.dat", height, bs[0:10])
}

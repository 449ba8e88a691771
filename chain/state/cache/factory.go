package cache

import (
	"context"
	"errors"
)

var _ StateCache = (*nonPersistentStateCache)(nil)
var _ StateCache = (*persistentCache)(nil)

var ErrCacheMiss = errors.New("not found in cache")

// NewPersistentCache creates a state cache that persists its content to disk under workingDir. Each cache file is
// indexed by the RPC address (to separate network caches) and block height.
func NewPersistentCache(ctx context.Context, workingDir string, rpcAddr string, height uint64) (StateCache, error) {
	return newPersistentCache(ctx, workingDir, rpcAddr, height)
}

// NewNonPersistentCache creates a state cache that only lives in memory.
func NewNonPersistentCache() StateCache {
	return newNonPersistentStateCache()
}

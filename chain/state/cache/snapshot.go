package cache

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-statecache/chain/types"
	"github.com/pkg/errors"
)

// SnapshotErrorKind describes which stage of saving or loading a cache snapshot failed.
type SnapshotErrorKind int

const (
	// SnapshotErrorIO indicates the snapshot file could not be created, opened, read or written.
	SnapshotErrorIO SnapshotErrorKind = iota
	// SnapshotErrorEncode indicates the cache could not be encoded.
	SnapshotErrorEncode
	// SnapshotErrorDecode indicates the snapshot file contents are not a valid encoded cache.
	SnapshotErrorDecode
)

// String returns a short name for the error kind.
func (k SnapshotErrorKind) String() string {
	switch k {
	case SnapshotErrorIO:
		return "io"
	case SnapshotErrorEncode:
		return "encode"
	case SnapshotErrorDecode:
		return "decode"
	default:
		return fmt.Sprintf("SnapshotErrorKind(%d)", int(k))
	}
}

// SnapshotError is returned by SaveCacheToFile and LoadCacheFromFile.
type SnapshotError struct {
	Kind SnapshotErrorKind
	Path string
	Err  error
}

// Error implements the error interface.
func (e *SnapshotError) Error() string {
	return fmt.Sprintf("cache snapshot %s error for %s: %v", e.Kind, e.Path, e.Err)
}

// Unwrap returns the underlying cause.
func (e *SnapshotError) Unwrap() error {
	return e.Err
}

// IsSnapshotErrorKind indicates whether err is, or wraps, a SnapshotError of the given kind.
func IsSnapshotErrorKind(err error, kind SnapshotErrorKind) bool {
	var snapshotErr *SnapshotError
	if errors.As(err, &snapshotErr) {
		return snapshotErr.Kind == kind
	}
	return false
}

func newSnapshotError(kind SnapshotErrorKind, path string, err error) *SnapshotError {
	return &SnapshotError{Kind: kind, Path: path, Err: errors.WithStack(err)}
}

// cacheSnapshot is the persisted subset of a CacheDB. Pointers distinguish missing fields from empty ones.
type cacheSnapshot struct {
	Accounts  *map[common.Address]*DbAccount  `json:"accounts"`
	Contracts *map[common.Hash]types.Bytecode `json:"contracts"`
}

// SaveCacheToFile writes the accounts and contracts of the cache to path as JSON, creating or truncating the file.
// Logs and block hashes are not written.
func SaveCacheToFile(path string, cache *CacheDB) error {
	cache.lock.RLock()
	snapshot := cacheSnapshot{
		Accounts:  &cache.Accounts,
		Contracts: &cache.Contracts,
	}
	b, err := json.MarshalIndent(snapshot, "", "\t")
	cache.lock.RUnlock()
	if err != nil {
		return newSnapshotError(SnapshotErrorEncode, path, err)
	}

	err = os.WriteFile(path, b, 0644)
	if err != nil {
		return newSnapshotError(SnapshotErrorIO, path, err)
	}
	return nil
}

// LoadCacheFromFile reads a snapshot written by SaveCacheToFile and returns a new CacheDB holding its accounts and
// contracts, with no logs or block hashes, over the provided underlying database.
func LoadCacheFromFile(path string, db types.DatabaseRef) (*CacheDB, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, newSnapshotError(SnapshotErrorIO, path, err)
	}

	var snapshot cacheSnapshot
	err = json.Unmarshal(b, &snapshot)
	if err != nil {
		return nil, newSnapshotError(SnapshotErrorDecode, path, err)
	}
	if snapshot.Accounts == nil || *snapshot.Accounts == nil {
		return nil, newSnapshotError(SnapshotErrorDecode, path, errors.New("missing field \"accounts\""))
	}
	if snapshot.Contracts == nil || *snapshot.Contracts == nil {
		return nil, newSnapshotError(SnapshotErrorDecode, path, errors.New("missing field \"contracts\""))
	}

	// an account without a storage object is a malformed account rather than one with empty storage
	for addr, account := range *snapshot.Accounts {
		if account == nil || account.Storage == nil || account.Info.Balance == nil {
			return nil, newSnapshotError(SnapshotErrorDecode, path, errors.Errorf("malformed account %s", addr.Hex()))
		}
	}

	return newCacheDB(db, *snapshot.Accounts, *snapshot.Contracts), nil
}

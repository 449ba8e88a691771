package cache

import (
	"encoding/json"
	"fmt"

	"github.com/crytic/medusa-statecache/chain/types"
	"github.com/holiman/uint256"
)

// AccountState describes how a cached account relates to the state of the underlying database.
type AccountState uint8

const (
	// AccountStateNone indicates the account was loaded from the underlying database and has not been modified.
	AccountStateNone AccountState = iota
	// AccountStateNotExisting indicates the underlying database reported the account as absent. Its storage is
	// known to be empty.
	AccountStateNotExisting
	// AccountStateTouched indicates the account was modified in the cache.
	AccountStateTouched
	// AccountStateStorageCleared indicates the account storage was replaced in the cache, so slots missing from
	// the cache are known to be zero.
	AccountStateStorageCleared
)

var accountStateNames = map[AccountState]string{
	AccountStateNone:           "none",
	AccountStateNotExisting:    "not_existing",
	AccountStateTouched:        "touched",
	AccountStateStorageCleared: "storage_cleared",
}

// String returns the name of the account state.
func (s AccountState) String() string {
	if name, ok := accountStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("AccountState(%d)", uint8(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s AccountState) MarshalText() ([]byte, error) {
	name, ok := accountStateNames[s]
	if !ok {
		return nil, fmt.Errorf("unknown account state %d", uint8(s))
	}
	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *AccountState) UnmarshalText(text []byte) error {
	for state, name := range accountStateNames {
		if name == string(text) {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("unknown account state %q", string(text))
}

// StorageSlots maps storage slot indices of an account to their values.
type StorageSlots map[uint256.Int]uint256.Int

// MarshalJSON encodes the slots as an object of 0x-prefixed hex indices to 0x-prefixed hex values.
func (s StorageSlots) MarshalJSON() ([]byte, error) {
	encoded := make(map[string]string, len(s))
	for index, value := range s {
		encoded[index.Hex()] = value.Hex()
	}
	return json.Marshal(encoded)
}

// UnmarshalJSON decodes slots encoded by MarshalJSON.
func (s *StorageSlots) UnmarshalJSON(data []byte) error {
	var encoded map[string]string
	if err := json.Unmarshal(data, &encoded); err != nil {
		return err
	}
	if encoded == nil {
		*s = nil
		return nil
	}

	slots := make(StorageSlots, len(encoded))
	for rawIndex, rawValue := range encoded {
		index, err := uint256.FromHex(rawIndex)
		if err != nil {
			return fmt.Errorf("invalid storage index %q: %w", rawIndex, err)
		}
		value, err := uint256.FromHex(rawValue)
		if err != nil {
			return fmt.Errorf("invalid storage value %q for index %q: %w", rawValue, rawIndex, err)
		}
		slots[*index] = *value
	}
	*s = slots
	return nil
}

// DbAccount describes a cached account: its top-level information, how it relates to the underlying database, and the
// storage slots known for it.
type DbAccount struct {
	Info         types.AccountInfo `json:"info"`
	AccountState AccountState      `json:"account_state"`
	Storage      StorageSlots      `json:"storage"`
}

// newDbAccount creates a cached account from account information reported by the underlying database.
func newDbAccount(info *types.AccountInfo) *DbAccount {
	return &DbAccount{
		Info:         *info,
		AccountState: AccountStateNone,
		Storage:      make(StorageSlots),
	}
}

// newNotExistingDbAccount creates a cached account for an address the underlying database reported as absent.
func newNotExistingDbAccount() *DbAccount {
	return &DbAccount{
		Info:         *types.NewAccountInfo(nil, 0, nil),
		AccountState: AccountStateNotExisting,
		Storage:      make(StorageSlots),
	}
}

// AccountInfo returns a copy of the account information, or nil if the account does not exist.
func (a *DbAccount) AccountInfo() *types.AccountInfo {
	if a.AccountState == AccountStateNotExisting {
		return nil
	}
	return a.Info.Copy()
}

package types

import (
	"fmt"

	"github.com/crytic/medusa-geth/common"
	"github.com/holiman/uint256"
)

// Fetch describes a notification that a piece of state was read from a DatabaseRef. It is implemented only by
// BasicFetch and StorageFetch.
type Fetch interface {
	// FetchAddress returns the address of the account the fetched state belongs to.
	FetchAddress() common.Address

	isFetch()
}

// BasicFetch is emitted when a lookup of top-level account information returned an existing account.
type BasicFetch struct {
	Address     common.Address
	AccountInfo AccountInfo
}

// StorageFetch is emitted when a storage slot lookup succeeded, including when the slot held the zero value.
type StorageFetch struct {
	Address common.Address
	Index   uint256.Int
	Value   uint256.Int
}

// FetchAddress implements Fetch.
func (f *BasicFetch) FetchAddress() common.Address { return f.Address }

// FetchAddress implements Fetch.
func (f *StorageFetch) FetchAddress() common.Address { return f.Address }

func (f *BasicFetch) isFetch()   {}
func (f *StorageFetch) isFetch() {}

// String returns a human-readable description of the fetch.
func (f *BasicFetch) String() string {
	return fmt.Sprintf("basic(%s, balance=%v, nonce=%d, codeHash=%s)",
		f.Address.Hex(), f.AccountInfo.Balance, f.AccountInfo.Nonce, f.AccountInfo.CodeHash.Hex())
}

// String returns a human-readable description of the fetch.
func (f *StorageFetch) String() string {
	return fmt.Sprintf("storage(%s, index=%s, value=%s)", f.Address.Hex(), f.Index.Hex(), f.Value.Hex())
}

// FetchSink describes a send-only endpoint for Fetch notifications. Send must not block. A returned error indicates
// the notification was discarded.
type FetchSink interface {
	Send(fetch Fetch) error
}

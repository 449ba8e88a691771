package state

import (
	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-statecache/chain/types"
	"github.com/holiman/uint256"
)

var _ types.DatabaseRef = (*ProxyDatabase)(nil)

/*
ProxyDatabase wraps a types.DatabaseRef, forwarding every read to it unchanged. When a sender is attached, each
successful account lookup that found an account and each successful storage lookup is additionally reported to it as a
types.Fetch notification. Code and block hash lookups are never reported.

Notifications are best-effort: a sender that fails to deliver never affects the result of the read.
*/
type ProxyDatabase struct {
	db     types.DatabaseRef
	sender types.FetchSink
}

// NewProxyDatabase creates a ProxyDatabase over db with no sender attached.
func NewProxyDatabase(db types.DatabaseRef) *ProxyDatabase {
	return &ProxyDatabase{db: db}
}

// WithSender attaches the sink that fetch notifications are sent to and returns the proxy. Passing nil detaches the
// current sink. It must not be called concurrently with reads.
func (p *ProxyDatabase) WithSender(sender types.FetchSink) *ProxyDatabase {
	p.sender = sender
	return p
}

// Database returns the wrapped database.
func (p *ProxyDatabase) Database() types.DatabaseRef {
	return p.db
}

// BasicRef implements types.DatabaseRef.
func (p *ProxyDatabase) BasicRef(addr common.Address) (*types.AccountInfo, error) {
	info, err := p.db.BasicRef(addr)
	if err != nil {
		return info, err
	}
	if info != nil && p.sender != nil {
		_ = p.sender.Send(&types.BasicFetch{
			Address:     addr,
			AccountInfo: *info.Copy(),
		})
	}
	return info, nil
}

// CodeByHashRef implements types.DatabaseRef.
func (p *ProxyDatabase) CodeByHashRef(codeHash common.Hash) (types.Bytecode, error) {
	return p.db.CodeByHashRef(codeHash)
}

// StorageRef implements types.DatabaseRef. A notification is sent for every successful read, including slots that
// hold the zero value.
func (p *ProxyDatabase) StorageRef(addr common.Address, index uint256.Int) (uint256.Int, error) {
	value, err := p.db.StorageRef(addr, index)
	if err != nil {
		return value, err
	}
	if p.sender != nil {
		_ = p.sender.Send(&types.StorageFetch{
			Address: addr,
			Index:   index,
			Value:   value,
		})
	}
	return value, nil
}

// BlockHashRef implements types.DatabaseRef.
func (p *ProxyDatabase) BlockHashRef(number uint64) (common.Hash, error) {
	return p.db.BlockHashRef(number)
}

package types

import (
	"github.com/crytic/medusa-geth/common"
	"github.com/holiman/uint256"
)

// AccountInfo describes the top-level state of a single account: its balance, nonce, code hash and (optionally) the
// bytecode the code hash refers to.
type AccountInfo struct {
	// Balance describes the account balance in wei.
	Balance *uint256.Int `json:"balance"`

	// Nonce describes the account nonce.
	Nonce uint64 `json:"nonce"`

	// CodeHash describes the keccak256 hash of the account code. Accounts without code carry EmptyCodeHash.
	CodeHash common.Hash `json:"code_hash"`

	// Code describes the account bytecode. A nil value indicates the code was not loaded alongside the account and
	// must be resolved through CodeHash.
	Code Bytecode `json:"code,omitempty"`
}

// NewAccountInfo creates an AccountInfo with the provided values, deriving the code hash from the code.
func NewAccountInfo(balance *uint256.Int, nonce uint64, code Bytecode) *AccountInfo {
	if balance == nil {
		balance = new(uint256.Int)
	}
	info := &AccountInfo{
		Balance:  balance,
		Nonce:    nonce,
		CodeHash: EmptyCodeHash,
	}
	if len(code) > 0 {
		info.Code = code
		info.CodeHash = code.Hash()
	}
	return info
}

// IsEmpty indicates whether the account has a zero balance, a zero nonce and no code, as defined by EIP-161.
func (a *AccountInfo) IsEmpty() bool {
	codeEmpty := a.CodeHash == EmptyCodeHash || a.CodeHash == (common.Hash{})
	return codeEmpty && a.Nonce == 0 && (a.Balance == nil || a.Balance.IsZero())
}

// HasCode indicates whether the account has non-empty code associated with it.
func (a *AccountInfo) HasCode() bool {
	return a.CodeHash != EmptyCodeHash && a.CodeHash != (common.Hash{})
}

// Copy returns a deep copy of the AccountInfo.
func (a *AccountInfo) Copy() *AccountInfo {
	c := &AccountInfo{
		Nonce:    a.Nonce,
		CodeHash: a.CodeHash,
	}
	if a.Balance != nil {
		c.Balance = new(uint256.Int).Set(a.Balance)
	}
	if a.Code != nil {
		c.Code = a.Code.Copy()
	}
	return c
}

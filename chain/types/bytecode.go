package types

import (
	"bytes"
	"fmt"

	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/common/hexutil"
	"github.com/fxamacker/cbor"
	"golang.org/x/crypto/sha3"
)

// EmptyCodeHash is the keccak256 hash of empty bytecode.
var EmptyCodeHash = Bytecode{}.Hash()

// Bytecode describes raw EVM bytecode. It is encoded as a 0x-prefixed hex string.
type Bytecode []byte

// Hash returns the keccak256 hash of the bytecode.
func (b Bytecode) Hash() common.Hash {
	hasher := sha3.NewLegacyKeccak256()
	hasher.Write(b)
	return common.BytesToHash(hasher.Sum(nil))
}

// Copy returns a copy of the bytecode backed by a new array.
func (b Bytecode) Copy() Bytecode {
	if b == nil {
		return nil
	}
	c := make(Bytecode, len(b))
	copy(c, b)
	return c
}

// MarshalText implements encoding.TextMarshaler.
func (b Bytecode) MarshalText() ([]byte, error) {
	return hexutil.Bytes(b).MarshalText()
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *Bytecode) UnmarshalText(input []byte) error {
	return (*hexutil.Bytes)(b).UnmarshalText(input)
}

// String returns the 0x-prefixed hex representation of the bytecode.
func (b Bytecode) String() string {
	return hexutil.Encode(b)
}

// ContractMetadata is the CBOR-encoded structure the Solidity compiler appends to runtime bytecode (unless directed
// not to). Reference: https://docs.soliditylang.org/en/latest/metadata.html
type ContractMetadata map[string]any

// metadataHashPrefixes defines patterns used to locate CBOR-encoded contract metadata at the end of bytecode.
var metadataHashPrefixes = [][]byte{
	{0xa1, 0x65, 98, 122, 122, 114, 48, 0x58, 0x20},  // a1 65 "bzzr0" 0x58 0x20 (solc <= 0.5.8)
	{0xa2, 0x65, 98, 122, 122, 114, 48, 0x58, 0x20},  // a2 65 "bzzr0" 0x58 0x20 (solc >= 0.5.9)
	{0xa2, 0x65, 98, 122, 122, 114, 49, 0x58, 0x20},  // a2 65 "bzzr1" 0x58 0x20 (solc >= 0.5.11)
	{0xa2, 0x64, 0x69, 0x70, 0x66, 0x73, 0x58, 0x22}, // a2 64 "ipfs" 0x58 0x22 (solc >= 0.6.0)
}

// Metadata extracts the solc metadata embedded in the bytecode. Returns nil if none could be decoded.
func (b Bytecode) Metadata() ContractMetadata {
	for _, prefix := range metadataHashPrefixes {
		offset := bytes.LastIndex(b, prefix)
		if offset == -1 {
			continue
		}

		var metadata ContractMetadata
		if err := cbor.Unmarshal(b[offset:], &metadata); err != nil {
			continue
		}
		return metadata
	}
	return nil
}

// CompilerVersion returns the solc version recorded in the metadata, formatted as "major.minor.patch", or an empty
// string if the metadata does not record one.
func (m ContractMetadata) CompilerVersion() string {
	raw, ok := m["solc"].([]byte)
	if !ok || len(raw) != 3 {
		return ""
	}
	return fmt.Sprintf("%d.%d.%d", raw[0], raw[1], raw[2])
}

package utils

import (
	"strings"

	"github.com/crytic/medusa-geth/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// HexStringToAddress converts a hex string (with or without the "0x" prefix) to a common.Address. Returns the parsed
// address, or an error if the string is not a 20-byte hex value.
func HexStringToAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, errors.Errorf("malformed address '%s'", s)
	}
	return common.HexToAddress(s), nil
}

// HexStringsToAddresses converts hex strings (with or without the "0x" prefix) to common.Address objects. Returns the
// parsed addresses, or an error if any string is malformed.
func HexStringsToAddresses(addresses []string) ([]common.Address, error) {
	parsed := make([]common.Address, len(addresses))
	for i, s := range addresses {
		address, err := HexStringToAddress(s)
		if err != nil {
			return nil, err
		}
		parsed[i] = address
	}
	return parsed, nil
}

// ParseStorageSlot parses a storage slot index given either as a "0x"-prefixed hex string or as a decimal string.
func ParseStorageSlot(s string) (uint256.Int, error) {
	var (
		index *uint256.Int
		err   error
	)
	if s == "" || strings.EqualFold(s, "0x") {
		return uint256.Int{}, errors.Errorf("malformed storage slot '%s'", s)
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		// FromHex rejects leading zeros, which are common in slot indices
		trimmed := strings.TrimLeft(s[2:], "0")
		if trimmed == "" {
			trimmed = "0"
		}
		index, err = uint256.FromHex("0x" + trimmed)
	} else {
		index, err = uint256.FromDecimal(s)
	}
	if err != nil {
		return uint256.Int{}, errors.Wrapf(err, "malformed storage slot '%s'", s)
	}
	return *index, nil
}

// ParseStorageSlotReference parses a reference to a storage slot in the form "address:slot".
func ParseStorageSlotReference(s string) (common.Address, uint256.Int, error) {
	addressPart, slotPart, found := strings.Cut(s, ":")
	if !found {
		return common.Address{}, uint256.Int{}, errors.Errorf("storage slot reference '%s' must have the form address:slot", s)
	}
	address, err := HexStringToAddress(addressPart)
	if err != nil {
		return common.Address{}, uint256.Int{}, err
	}
	index, err := ParseStorageSlot(slotPart)
	if err != nil {
		return common.Address{}, uint256.Int{}, err
	}
	return address, index, nil
}

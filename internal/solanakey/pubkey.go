// Package solanakey validates the Solana addresses taken from request
// parameters before they reach the upstream API. Validation is purely
// structural; no on-chain lookup happens here.
package solanakey

import (
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// PubkeyLen is the byte length of a Solana public key.
const PubkeyLen = 32

// Decode parses a base58 address and returns its 32 raw bytes.
func Decode(address string) ([]byte, error) {
	if address == "" {
		return nil, fmt.Errorf("empty address")
	}
	raw, err := base58.Decode(address)
	if err != nil {
		return nil, fmt.Errorf("decode address %q: %w", address, err)
	}
	if len(raw) != PubkeyLen {
		return nil, fmt.Errorf("address %q: %d bytes, want %d", address, len(raw), PubkeyLen)
	}
	return raw, nil
}

// IsValid reports whether address is a well-formed 32-byte base58 key.
// Program Derived Addresses are off the ed25519 curve but still valid
// account addresses, so curve membership is not required here.
func IsValid(address string) bool {
	_, err := Decode(address)
	return err == nil
}

// IsOnCurve reports whether the address decodes to a point on the ed25519
// curve. Wallet keys are on-curve; PDAs are not.
func IsOnCurve(address string) bool {
	raw, err := Decode(address)
	if err != nil {
		return false
	}
	_, err = new(edwards25519.Point).SetBytes(raw)
	return err == nil
}

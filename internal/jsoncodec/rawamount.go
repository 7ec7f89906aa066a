// Package jsoncodec holds JSON codecs for types the standard encoder cannot
// represent safely. On-chain token amounts exceed float64 precision, so they
// cross the JSON boundary as decimal strings.
package jsoncodec

import (
	"fmt"
	"math/big"
)

// RawAmount is an integer token amount in base units (lamports for SOL).
// It marshals to a JSON decimal string and accepts either a string or a
// bare JSON number on input.
type RawAmount struct {
	big.Int
}

// NewRawAmount builds a RawAmount from an int64.
func NewRawAmount(v int64) RawAmount {
	var a RawAmount
	a.SetInt64(v)
	return a
}

// ParseRawAmount parses a base-10 amount string.
func ParseRawAmount(s string) (RawAmount, error) {
	var a RawAmount
	if _, ok := a.SetString(s, 10); !ok {
		return RawAmount{}, fmt.Errorf("invalid raw amount %q", s)
	}
	return a, nil
}

// MarshalJSON implements json.Marshaler.
func (a RawAmount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *RawAmount) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	if s == "null" || s == "" {
		a.SetInt64(0)
		return nil
	}
	if _, ok := a.SetString(s, 10); !ok {
		return fmt.Errorf("invalid raw amount %q", s)
	}
	return nil
}

// ToUI converts the raw amount to a display value given the token's
// decimals. Precision loss past float64 is acceptable for display.
func (a *RawAmount) ToUI(decimals int) float64 {
	f := new(big.Float).SetInt(&a.Int)
	scale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	out, _ := new(big.Float).Quo(f, scale).Float64()
	return out
}

// Package felt encodes values as Starknet field elements for the
// contract-call wire format. Field elements travel as 0x-prefixed hex
// strings in JSON-RPC payloads.
package felt

import (
	"crypto/sha256"
	"fmt"
	"math/big"
	"strings"
)

// selectorModulus bounds selectors to 251 bits so they fit in a felt.
var selectorModulus = new(big.Int).Lsh(big.NewInt(1), 251)

// Selector computes the entry point selector for a contract function name.
// Formula: SHA256(name) interpreted as a big-endian integer, mod 2^251.
// Deterministic: the same name always yields the same selector.
func Selector(functionName string) string {
	sum := sha256.Sum256([]byte(functionName))
	n := new(big.Int).SetBytes(sum[:])
	n.Mod(n, selectorModulus)
	return "0x" + n.Text(16)
}

// HashString maps an arbitrary string to a felt by hashing and truncating
// to 31 bytes, which always fits the field. Used to bind free text
// (e.g. a rationale) into calldata.
func HashString(s string) string {
	sum := sha256.Sum256([]byte(s))
	n := new(big.Int).SetBytes(sum[:31])
	return "0x" + n.Text(16)
}

// FromUint64 encodes an unsigned integer as a felt.
func FromUint64(v uint64) string {
	return fmt.Sprintf("0x%x", v)
}

// FromBig encodes a non-negative big integer as a felt.
func FromBig(n *big.Int) (string, error) {
	if n == nil || n.Sign() < 0 {
		return "", fmt.Errorf("felt: value must be non-negative")
	}
	return "0x" + n.Text(16), nil
}

// ToUint64 decodes a felt into a uint64. Returns an error if the value
// does not fit.
func ToUint64(felt string) (uint64, error) {
	n, err := ToBig(felt)
	if err != nil {
		return 0, err
	}
	if !n.IsUint64() {
		return 0, fmt.Errorf("felt: %s overflows uint64", felt)
	}
	return n.Uint64(), nil
}

// ToBig decodes a felt into a big integer.
func ToBig(felt string) (*big.Int, error) {
	s := strings.TrimPrefix(strings.TrimSpace(felt), "0x")
	if s == "" {
		return nil, fmt.Errorf("felt: empty value")
	}
	n, ok := new(big.Int).SetString(s, 16)
	if !ok {
		return nil, fmt.Errorf("felt: invalid hex %q", felt)
	}
	return n, nil
}

// Calldata is an ordered felt argument list for a contract call.
type Calldata []string

// AppendUint64 appends an unsigned integer argument.
func (c Calldata) AppendUint64(v uint64) Calldata {
	return append(c, FromUint64(v))
}

// AppendFelt appends an already-encoded felt argument.
func (c Calldata) AppendFelt(felt string) Calldata {
	return append(c, felt)
}

// AppendString appends a string argument as its felt hash.
func (c Calldata) AppendString(s string) Calldata {
	return append(c, HashString(s))
}

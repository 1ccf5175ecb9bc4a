package core

import (
	"fmt"
	"math/big"
)

// feltModulus is the Starknet field prime 2^251 + 17*2^192 + 1. All Felt
// values are canonically reduced modulo this prime.
var feltModulus = func() *big.Int {
	m := new(big.Int).Lsh(big.NewInt(1), 251)
	aux := new(big.Int).Lsh(big.NewInt(17), 192)
	m.Add(m, aux)
	m.Add(m, big.NewInt(1))
	return m
}()

// Felt is a 252-bit field element, the universal scalar used across the
// chain: addresses, class hashes, calldata, and storage values are all
// Felt-typed.
type Felt struct {
	v big.Int
}

// FeltZero is the additive identity.
func FeltZero() Felt { return Felt{} }

// FeltFromUint64 builds a Felt from a small unsigned integer.
func FeltFromUint64(n uint64) Felt {
	var f Felt
	f.v.SetUint64(n)
	return f
}

// FeltFromBigInt reduces b modulo the field prime and returns the result.
func FeltFromBigInt(b *big.Int) Felt {
	var f Felt
	f.v.Mod(b, feltModulus)
	return f
}

// FeltFromHex parses a "0x"-prefixed or bare hex string.
func FeltFromHex(s string) (Felt, error) {
	b, ok := new(big.Int).SetString(trimHexPrefix(s), 16)
	if !ok {
		return Felt{}, fmt.Errorf("felt: invalid hex literal %q", s)
	}
	if b.Sign() < 0 || b.Cmp(feltModulus) >= 0 {
		return FeltFromBigInt(b), nil
	}
	return Felt{v: *b}, nil
}

// FeltFromDecimal parses a base-10 string.
func FeltFromDecimal(s string) (Felt, error) {
	b, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Felt{}, fmt.Errorf("felt: invalid decimal literal %q", s)
	}
	return FeltFromBigInt(b), nil
}

// FeltFromHexOrDec accepts either a "0x..." hex literal or a base-10 decimal
// literal, matching the calldata shorthand codec's default item parsing.
func FeltFromHexOrDec(s string) (Felt, error) {
	if hasHexPrefix(s) {
		return FeltFromHex(s)
	}
	return FeltFromDecimal(s)
}

func hasHexPrefix(s string) bool {
	return len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

func trimHexPrefix(s string) string {
	if hasHexPrefix(s) {
		return s[2:]
	}
	return s
}

// Bytes32 returns the big-endian, zero-padded 32-byte representation.
func (f Felt) Bytes32() [32]byte {
	var out [32]byte
	b := f.v.Bytes()
	copy(out[32-len(b):], b)
	return out
}

// BigInt returns a copy of the underlying big.Int value.
func (f Felt) BigInt() *big.Int { return new(big.Int).Set(&f.v) }

// Hex renders the canonical "0x"-prefixed hex form.
func (f Felt) Hex() string { return fmt.Sprintf("0x%x", &f.v) }

// IsZero reports whether the value is the additive identity.
func (f Felt) IsZero() bool { return f.v.Sign() == 0 }

// Equal reports value equality.
func (f Felt) Equal(o Felt) bool { return f.v.Cmp(&o.v) == 0 }

// Add returns f+o reduced modulo the field prime.
func (f Felt) Add(o Felt) Felt {
	sum := new(big.Int).Add(&f.v, &o.v)
	return FeltFromBigInt(sum)
}

// Mul returns f*o reduced modulo the field prime.
func (f Felt) Mul(o Felt) Felt {
	prod := new(big.Int).Mul(&f.v, &o.v)
	return FeltFromBigInt(prod)
}

// FeltFromBytes32 reduces a big-endian 32-byte buffer into a Felt.
func FeltFromBytes32(b [32]byte) Felt {
	return FeltFromBigInt(new(big.Int).SetBytes(b[:]))
}

func (f Felt) String() string { return f.Hex() }

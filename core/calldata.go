package core

import (
	"fmt"
	"math/big"
	"strings"
)

// EncodeCalldata parses the comma-separated shorthand syntax §6 specifies
// into a flat Felt list ready to submit as transaction calldata.
func EncodeCalldata(input string) ([]Felt, error) {
	if strings.TrimSpace(input) == "" {
		return nil, nil
	}
	items := strings.Split(input, ",")
	var out []Felt
	for _, item := range items {
		felts, err := encodeCalldataItem(item)
		if err != nil {
			return nil, err
		}
		out = append(out, felts...)
	}
	return out, nil
}

func encodeCalldataItem(item string) ([]Felt, error) {
	switch {
	case strings.HasPrefix(item, "u256:"):
		return encodeU256(strings.TrimPrefix(item, "u256:"))
	case strings.HasPrefix(item, "str:"):
		return encodeByteArray(strings.TrimPrefix(item, "str:"))
	case strings.HasPrefix(item, "sstr:"):
		f, err := EncodeShortString(strings.TrimPrefix(item, "sstr:"))
		if err != nil {
			return nil, err
		}
		return []Felt{f}, nil
	default:
		f, err := FeltFromHexOrDec(item)
		if err != nil {
			return nil, err
		}
		return []Felt{f}, nil
	}
}

var u128Bound = new(big.Int).Lsh(big.NewInt(1), 128)

// encodeU256 splits a hex or decimal literal into [low, high] at the
// 128-bit boundary.
func encodeU256(s string) ([]Felt, error) {
	var b *big.Int
	var ok bool
	if hasHexPrefix(s) {
		b, ok = new(big.Int).SetString(trimHexPrefix(s), 16)
	} else {
		b, ok = new(big.Int).SetString(s, 10)
	}
	if !ok {
		return nil, fmt.Errorf("calldata: invalid u256 literal %q", s)
	}
	low := new(big.Int).Mod(b, u128Bound)
	high := new(big.Int).Rsh(b, 128)
	return []Felt{FeltFromBigInt(low), FeltFromBigInt(high)}, nil
}

// encodeByteArray serializes s as Cairo's ByteArray:
// [n_full_words, full_word_0, ..., pending_word, pending_word_len], words
// packing 31 ASCII bytes each.
func encodeByteArray(s string) ([]Felt, error) {
	for i := 0; i < len(s); i++ {
		if s[i] > 127 {
			return nil, ErrShortStringNonASCII
		}
	}

	nFull := len(s) / 31
	var out []Felt
	out = append(out, FeltFromUint64(uint64(nFull)))
	for i := 0; i < nFull; i++ {
		word, err := EncodeShortString(s[i*31 : i*31+31])
		if err != nil {
			return nil, err
		}
		out = append(out, word)
	}
	remainder := s[nFull*31:]
	pendingWord, err := EncodeShortString(remainder)
	if err != nil {
		return nil, err
	}
	out = append(out, pendingWord, FeltFromUint64(uint64(len(remainder))))
	return out, nil
}

// DecodeU256 is the inverse of a u256 item's encoding: it takes exactly the
// two felts (low, high) of one item. The wire encoding carries no item-type
// tags, so the caller picks each item's felts by its known width.
func DecodeU256(felts []Felt) (*big.Int, error) {
	if len(felts) != 2 {
		return nil, fmt.Errorf("calldata: u256 requires exactly 2 felts, got %d", len(felts))
	}
	high := new(big.Int).Lsh(felts[1].BigInt(), 128)
	return high.Add(high, felts[0].BigInt()), nil
}

// DecodeByteArray reconstructs the string a ByteArray-encoded felt sequence
// carries.
func DecodeByteArray(felts []Felt) (string, error) {
	if len(felts) < 2 {
		return "", fmt.Errorf("calldata: byte array too short")
	}
	nFull := int(felts[0].BigInt().Uint64())
	if len(felts) != nFull+3 {
		return "", fmt.Errorf("calldata: byte array length mismatch: want %d felts, got %d", nFull+3, len(felts))
	}
	var b strings.Builder
	for i := 0; i < nFull; i++ {
		word, err := DecodeShortString(felts[1+i])
		if err != nil {
			return "", err
		}
		b.WriteString(word)
	}
	pendingWord, err := DecodeShortString(felts[1+nFull])
	if err != nil {
		return "", err
	}
	pendingLen := int(felts[2+nFull].BigInt().Uint64())
	if pendingLen > len(pendingWord) {
		return "", fmt.Errorf("calldata: pending_word_len exceeds decoded word length")
	}
	b.WriteString(pendingWord[:pendingLen])
	return b.String(), nil
}

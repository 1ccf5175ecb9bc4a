package core

import "fmt"

// ErrShortStringTooLong is returned by EncodeShortString when the input
// exceeds the 31-byte bound.
var ErrShortStringTooLong = fmt.Errorf("shortstring: longer than 31 bytes")

// ErrShortStringNonASCII is returned when a byte outside the 0..127 range is
// encountered, on either encode or decode.
var ErrShortStringNonASCII = fmt.Errorf("shortstring: non-ASCII byte")

// ErrShortStringOverflow is returned by DecodeShortString when the felt's
// big-endian first byte is nonzero, meaning it cannot represent a string of
// at most 31 bytes.
var ErrShortStringOverflow = fmt.Errorf("shortstring: felt does not fit in 31 bytes")

// ErrShortStringEmbeddedNull is returned by DecodeShortString when a null
// byte follows the first non-null byte, including a trailing one.
var ErrShortStringEmbeddedNull = fmt.Errorf("shortstring: embedded null byte")

// EncodeShortString packs s, an ASCII string of at most 31 bytes, into a
// single Felt: big-endian, zero-padded to 32 bytes with the string occupying
// the low-order bytes.
func EncodeShortString(s string) (Felt, error) {
	if len(s) > 31 {
		return Felt{}, ErrShortStringTooLong
	}
	for i := 0; i < len(s); i++ {
		if s[i] > 127 {
			return Felt{}, ErrShortStringNonASCII
		}
	}
	var buf [32]byte
	copy(buf[32-len(s):], s)
	return FeltFromBytes32(buf), nil
}

// DecodeShortString recovers the ASCII string packed by EncodeShortString.
// It rejects felts whose big-endian form would need more than 31 bytes,
// values containing a null byte before the end of content, and non-ASCII
// bytes.
func DecodeShortString(f Felt) (string, error) {
	buf := f.Bytes32()
	if buf[0] != 0 {
		return "", ErrShortStringOverflow
	}
	// Find the start of the content: the first nonzero byte, or len(buf) if
	// the value is zero (empty string).
	start := 32
	for i := 1; i < 32; i++ {
		if buf[i] != 0 {
			start = i
			break
		}
	}
	if start == 32 {
		return "", nil
	}
	content := buf[start:]
	for i, b := range content {
		if b == 0 {
			return "", ErrShortStringEmbeddedNull
		}
		if b > 127 {
			_ = i
			return "", ErrShortStringNonASCII
		}
	}
	return string(content), nil
}

// canonicalChainTags maps historically-aliased chain-id spellings onto the
// tag Katana actually seeds at genesis, so "sepolia" and "SN_SEPOLIA" are
// interchangeable inputs that round-trip through the same Felt.
var canonicalChainTags = map[string]string{
	"sepolia":    "SN_SEPOLIA",
	"SN_SEPOLIA": "SN_SEPOLIA",
	"mainnet":    "SN_MAIN",
	"SN_MAIN":    "SN_MAIN",
	"goerli":     "SN_GOERLI",
	"SN_GOERLI":  "SN_GOERLI",
}

// CanonicalChainTag normalizes a chain-id alias to the short string Katana's
// init presets actually encode, or returns ok=false if the alias is unknown.
func CanonicalChainTag(alias string) (string, bool) {
	tag, ok := canonicalChainTags[alias]
	return tag, ok
}

package core

import (
	"math/big"
	"testing"
)

func TestEncodeCalldataU256Hex(t *testing.T) {
	felts, err := EncodeCalldata("u256:0x1")
	if err != nil {
		t.Fatalf("EncodeCalldata: %v", err)
	}
	if len(felts) != 2 || !felts[0].Equal(FeltFromUint64(1)) || !felts[1].Equal(FeltZero()) {
		t.Fatalf("expected [1, 0], got %v", felts)
	}
}

func TestEncodeCalldataU256Decimal(t *testing.T) {
	felts, err := EncodeCalldata("u256:12")
	if err != nil {
		t.Fatalf("EncodeCalldata: %v", err)
	}
	if len(felts) != 2 || !felts[0].Equal(FeltFromUint64(12)) || !felts[1].Equal(FeltZero()) {
		t.Fatalf("expected [12, 0], got %v", felts)
	}
}

func TestEncodeCalldataShortStr(t *testing.T) {
	felts, err := EncodeCalldata("sstr:hello")
	if err != nil {
		t.Fatalf("EncodeCalldata: %v", err)
	}
	want, _ := EncodeShortString("hello")
	if len(felts) != 1 || !felts[0].Equal(want) {
		t.Fatalf("expected [encode_short(hello)], got %v", felts)
	}
}

func TestEncodeCalldataStrShort(t *testing.T) {
	felts, err := EncodeCalldata("str:hello")
	if err != nil {
		t.Fatalf("EncodeCalldata: %v", err)
	}
	want, _ := EncodeShortString("hello")
	if len(felts) != 3 || !felts[0].Equal(FeltZero()) || !felts[1].Equal(want) || !felts[2].Equal(FeltFromUint64(5)) {
		t.Fatalf("expected [0, encode_short(hello), 5], got %v", felts)
	}
}

func TestEncodeCalldataStrLong(t *testing.T) {
	s := "hello with spaces and a long string longer than 31 chars"
	felts, err := EncodeCalldata("str:" + s)
	if err != nil {
		t.Fatalf("EncodeCalldata: %v", err)
	}
	firstWord, _ := EncodeShortString(s[:31])
	secondWord, _ := EncodeShortString(s[31:])
	if len(felts) != 4 {
		t.Fatalf("expected 4 felts, got %d: %v", len(felts), felts)
	}
	if !felts[0].Equal(FeltFromUint64(1)) {
		t.Fatalf("expected n_full_words=1, got %v", felts[0])
	}
	if !felts[1].Equal(firstWord) || !felts[2].Equal(secondWord) {
		t.Fatal("word mismatch")
	}
	if !felts[3].Equal(FeltFromUint64(uint64(len(s) - 31))) {
		t.Fatalf("expected pending_word_len=%d, got %v", len(s)-31, felts[3])
	}
}

func TestEncodeCalldataCombined(t *testing.T) {
	felts, err := EncodeCalldata("u256:0x64,str:world,987654,0x123")
	if err != nil {
		t.Fatalf("EncodeCalldata: %v", err)
	}
	worldWord, _ := EncodeShortString("world")
	want := []Felt{
		FeltFromUint64(0x64), FeltZero(),
		FeltZero(), worldWord, FeltFromUint64(5),
		FeltFromUint64(987654),
		FeltFromUint64(0x123),
	}
	if len(felts) != len(want) {
		t.Fatalf("expected %d felts, got %d", len(want), len(felts))
	}
	for i := range want {
		if !felts[i].Equal(want[i]) {
			t.Fatalf("felt %d mismatch: got %v want %v", i, felts[i], want[i])
		}
	}
}

func TestDecodeU256RoundTrip(t *testing.T) {
	felts, _ := EncodeCalldata("u256:0x1fffffffffffffffffffffffffffffff")
	got, err := DecodeU256(felts)
	if err != nil {
		t.Fatalf("DecodeU256: %v", err)
	}
	want, _ := new(big.Int).SetString("1fffffffffffffffffffffffffffffff", 16)
	if got.Cmp(want) != 0 {
		t.Fatalf("got %s want %s", got, want)
	}
}

func TestDecodeByteArrayRoundTrip(t *testing.T) {
	s := "hello with spaces and a long string longer than 31 chars"
	felts, err := encodeByteArray(s)
	if err != nil {
		t.Fatalf("encodeByteArray: %v", err)
	}
	got, err := DecodeByteArray(felts)
	if err != nil {
		t.Fatalf("DecodeByteArray: %v", err)
	}
	if got != s {
		t.Fatalf("round trip mismatch: got %q want %q", got, s)
	}
}

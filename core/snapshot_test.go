package core

import "testing"

func hashN(n byte) BlockHash {
	var buf [32]byte
	buf[31] = n
	return BlockHashFromFelt(FeltFromBytes32(buf))
}

func TestInMemoryBlockStatesShrinksUnderPressure(t *testing.T) {
	const k = 4
	s := NewInMemoryBlockStates(k, 1)

	var lastLimit = s.Limit()
	for n := 0; n < 10; n++ {
		s.Insert(hashN(byte(n)), n)
		if s.Limit() > lastLimit {
			t.Fatalf("limit increased from %d to %d", lastLimit, s.Limit())
		}
		lastLimit = s.Limit()
		want := n + 1
		if want > s.Limit() {
			want = s.Limit()
		}
		if s.Len() != want {
			t.Fatalf("after %d inserts: len=%d want=%d (limit=%d)", n+1, s.Len(), want, s.Limit())
		}
	}
	if s.Limit() < 1 {
		t.Fatalf("limit fell below floor: %d", s.Limit())
	}
}

func TestInMemoryBlockStatesGetMiss(t *testing.T) {
	s := NewInMemoryBlockStates(2, 1)
	if _, ok := s.Get(hashN(1)); ok {
		t.Fatal("expected miss on empty cache")
	}
	s.Insert(hashN(1), "a")
	if v, ok := s.Get(hashN(1)); !ok || v != "a" {
		t.Fatalf("expected hit with value 'a', got %v %v", v, ok)
	}
}

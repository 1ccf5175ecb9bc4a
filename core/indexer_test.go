package core

import (
	"context"
	"testing"
)

func TestEventKeySelectorMatchesFeltSelectorEncoding(t *testing.T) {
	// A processor registered under "ModelRegistered" must be reachable by
	// an event whose first key is the Felt an emitter would actually set:
	// keccak256(name) reduced into the field. feltSelector and
	// EventKeySelector must therefore encode to the same bytes.
	sel := EventKeySelector("ModelRegistered")
	asFelt := FeltFromBytes32([32]byte(sel))
	if feltSelector(asFelt) != sel {
		t.Fatalf("feltSelector/EventKeySelector round trip mismatch")
	}
}

func TestRegistryDispatchesBySelector(t *testing.T) {
	store, err := OpenStore(":memory:")
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer store.Close()

	registry := NewRegistry()
	proc := NewModelRegisteredProcessor(store, nil)
	registry.RegisterEventProcessor(proc)

	name, _ := encodeByteArray("Position")
	classHash := FeltFromUint64(42)
	prevClassHash := FeltZero()
	data := append(append([]Felt{}, name...), classHash, prevClassHash)

	selector := EventKeySelector("ModelRegistered")
	selectorFelt := FeltFromBytes32([32]byte(selector))

	block := &Block{
		Header: Header{PartialHeader: PartialHeader{Number: 1}},
		Body:   []Transaction{{Hash: TxHashFromFelt(FeltFromUint64(1))}},
		Outputs: []Receipt{{
			TxHash: TxHashFromFelt(FeltFromUint64(1)),
			Events: []Event{{Keys: []Felt{selectorFelt}, Data: data}},
		}},
	}

	ix := NewIndexer(store, registry, nil)
	if err := ix.ProcessBlock(context.Background(), block); err != nil {
		t.Fatalf("ProcessBlock: %v", err)
	}

	var count int
	if err := store.db.Get(&count, `SELECT COUNT(*) FROM models WHERE name = ?`, "Position"); err != nil {
		t.Fatalf("query models: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 registered model row, got %d", count)
	}
}

func TestRegistryFiltersByWorldAddress(t *testing.T) {
	store, err := OpenStore(":memory:")
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer store.Close()

	registry := NewRegistry()
	registry.WatchWorld(AddressFromFelt(FeltFromUint64(1)))
	registry.RegisterEventProcessor(NewModelRegisteredProcessor(store, nil))

	name, _ := encodeByteArray("Position")
	selector := EventKeySelector("ModelRegistered")
	selectorFelt := FeltFromBytes32([32]byte(selector))
	data := append(append([]Felt{}, name...), FeltFromUint64(1), FeltZero())

	block := &Block{
		Header: Header{PartialHeader: PartialHeader{Number: 1}},
		Body:   []Transaction{{Hash: TxHashFromFelt(FeltFromUint64(1))}},
		Outputs: []Receipt{{
			TxHash: TxHashFromFelt(FeltFromUint64(1)),
			Events: []Event{{
				From: AddressFromFelt(FeltFromUint64(2)),
				Keys: []Felt{selectorFelt},
				Data: data,
			}},
		}},
	}

	ix := NewIndexer(store, registry, nil)
	if err := ix.ProcessBlock(context.Background(), block); err != nil {
		t.Fatalf("ProcessBlock: %v", err)
	}

	var count int
	if err := store.db.Get(&count, `SELECT COUNT(*) FROM models`); err != nil {
		t.Fatalf("query models: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected event from non-watched emitter to be filtered, got %d rows", count)
	}
}

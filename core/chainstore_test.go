package core

import "testing"

func testChainSpec() ChainSpec {
	return ChainSpec{
		ChainID:          "SN_SEPOLIA",
		GasPrice:         1,
		Timestamp:        0,
		SequencerAddress: AddressFromFelt(FeltFromUint64(1)),
	}
}

// TestChainStoreGenesisAndAppend is scenario S2 from spec.md §8.
func TestChainStoreGenesisAndAppend(t *testing.T) {
	store := NewChainStore(8, 2, nil)
	spec := testChainSpec()

	genesis, err := store.NewGenesis(spec, "genesis-state")
	if err != nil {
		t.Fatalf("NewGenesis: %v", err)
	}
	if genesis.Header.Number != 0 {
		t.Fatalf("expected genesis number 0, got %d", genesis.Header.Number)
	}

	tx := Transaction{
		Variant: TxInvoke,
		Hash:    TxHashFromFelt(FeltFromUint64(42)),
	}
	block1 := &Block{
		Header: Header{
			PartialHeader: PartialHeader{
				ParentHash: genesis.Header.Hash,
				Number:     1,
				GasPrice:   1,
				Timestamp:  1,
			},
			StateRoot: FeltFromUint64(7),
		},
		Body:    []Transaction{tx},
		Outputs: []Receipt{{TxHash: tx.Hash}},
	}
	hash1 := BlockHashFromFelt(FeltFromUint64(1001))

	if err := block1.Valid(genesis); err != nil {
		t.Fatalf("block1.Valid: %v", err)
	}

	diff := NewStateDiff()
	if _, err := store.AppendBlock(hash1, block1, diff, "state-1"); err != nil {
		t.Fatalf("AppendBlock: %v", err)
	}

	num, ok := store.LatestNumber()
	if !ok || num != 1 {
		t.Fatalf("expected latest_number==1, got %d ok=%v", num, ok)
	}
	gotHash, ok := store.BlockHashOf(LatestBlockID())
	if !ok || !gotHash.Equal(hash1) {
		t.Fatalf("block_hash(Latest) mismatch: got %v want %v", gotHash, hash1)
	}
	kt, ok := store.Transaction(tx.Hash)
	if !ok || kt.State != KnownTxIncluded {
		t.Fatalf("expected tx Included, got state=%v ok=%v", kt.State, ok)
	}
	if !kt.BlockHash.Equal(hash1) {
		t.Fatalf("included tx block hash mismatch")
	}
}

func TestChainStoreRejectsNonContiguousAppend(t *testing.T) {
	store := NewChainStore(4, 1, nil)
	spec := testChainSpec()
	genesis, _ := store.NewGenesis(spec, "s0")

	skip := &Block{
		Header: Header{
			PartialHeader: PartialHeader{ParentHash: genesis.Header.Hash, Number: 5},
		},
	}
	if _, err := store.AppendBlock(BlockHashFromFelt(FeltFromUint64(2)), skip, NewStateDiff(), "s5"); err != ErrNonContiguousBlock {
		t.Fatalf("expected ErrNonContiguousBlock, got %v", err)
	}
}

func TestChainStoreForkedTipHasNoBody(t *testing.T) {
	store := NewChainStore(4, 1, nil)
	forkHash := BlockHashFromFelt(FeltFromUint64(500))
	store.NewForked(500, forkHash)

	num, ok := store.LatestNumber()
	if !ok || num != 500 {
		t.Fatalf("expected latest_number==500, got %d", num)
	}
	if _, err := store.Block(forkHash); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for forked tip body, got %v", err)
	}
}

func TestChainStoreUnknownBlockIsNotFound(t *testing.T) {
	store := NewChainStore(4, 1, nil)
	if _, err := store.Block(BlockHashFromFelt(FeltFromUint64(999))); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

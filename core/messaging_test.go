package core

import (
	"context"
	"testing"
)

type fakeL1Provider struct {
	tip  uint64
	logs []L1Log
}

func (f *fakeL1Provider) BlockNumber(ctx context.Context) (uint64, error) { return f.tip, nil }

func (f *fakeL1Provider) LogMessagesToL2(ctx context.Context, contract [20]byte, fromBlock, toBlock uint64) ([]L1Log, error) {
	var out []L1Log
	for _, l := range f.logs {
		if l.BlockNumber >= fromBlock && l.BlockNumber <= toBlock {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeL1Provider) AddMessageHashesFromL2(ctx context.Context, contract [20]byte, hashes [][32]byte) error {
	return nil
}

// TestGatherMessages is scenario S4 from spec.md §8.
func TestGatherMessages(t *testing.T) {
	from := AddressFromFelt(FeltFromUint64(0xA))
	to := AddressFromFelt(FeltFromUint64(0xB))
	selector := FeltFromUint64(0xBEEF)

	provider := &fakeL1Provider{
		tip: 100,
		logs: []L1Log{
			{
				BlockNumber: 10,
				LogIndex:    0,
				FromAddress: from,
				ToAddress:   to,
				Selector:    selector,
				Payload:     []Felt{FeltFromUint64(123)},
				Nonce:       FeltFromUint64(5),
				FeeOnL1:     1,
			},
		},
	}

	task := NewGatherTask(provider, [20]byte{}, 0, nil)
	_, txs, err := task.GatherMessages(context.Background(), 0, 100)
	if err != nil {
		t.Fatalf("GatherMessages: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("expected exactly 1 L1HandlerTx, got %d", len(txs))
	}
	tx := txs[0]
	if !tx.Nonce.Equal(FeltFromUint64(5)) {
		t.Fatalf("expected nonce=5, got %v", tx.Nonce)
	}
	if tx.PaidFeeOnL1 != 1 {
		t.Fatalf("expected paid_fee_on_l1=1, got %d", tx.PaidFeeOnL1)
	}
	if !tx.EntryPointSelector.Equal(selector) {
		t.Fatal("selector mismatch")
	}
	if len(tx.Calldata) != 2 || !tx.Calldata[0].Equal(from.Felt()) || !tx.Calldata[1].Equal(FeltFromUint64(123)) {
		t.Fatalf("expected calldata=[from, 123], got %v", tx.Calldata)
	}

	// Replay over an overlapping window must not produce duplicates.
	_, txs2, err := task.GatherMessages(context.Background(), 0, 100)
	if err != nil {
		t.Fatalf("GatherMessages replay: %v", err)
	}
	if len(txs2) != 0 {
		t.Fatalf("expected 0 new txs on replay, got %d", len(txs2))
	}
}

func TestSettleComputesKeccakHashes(t *testing.T) {
	provider := &fakeL1Provider{}
	task := NewSettleTask(provider, [20]byte{}, nil)

	msg := Message{From: AddressFromFelt(FeltFromUint64(1)), To: [20]byte{2}, Payload: []Felt{FeltFromUint64(3)}}
	results, eerr := task.Settle(context.Background(), []Message{msg})
	if eerr != nil {
		t.Fatalf("Settle: %v", eerr)
	}
	if len(results) != 1 || !results[0].Settled {
		t.Fatalf("expected 1 settled result, got %v", results)
	}
	want := L1MessageHash(msg.From, msg.To, msg.Payload)
	if results[0].Hash != want {
		t.Fatalf("hash mismatch: got %x want %x", results[0].Hash, want)
	}
}

func TestSettleEmptyIsNoop(t *testing.T) {
	task := NewSettleTask(&fakeL1Provider{}, [20]byte{}, nil)
	results, eerr := task.Settle(context.Background(), nil)
	if eerr != nil || results != nil {
		t.Fatalf("expected no-op for empty messages, got %v %v", results, eerr)
	}
}

package core

import (
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
)

// PendingState tags which phase of its lifecycle the pending block occupies.
type PendingState uint8

const (
	PendingOpen PendingState = iota
	PendingSealing
	PendingSealed
)

// PendingBlock is the single-owner, cooperatively-accessed tip block: it
// accumulates transactions against a shared cached state until sealed. It
// keeps the parent header and hash it was opened against plus a pointer to
// the ChainStore, and writes into the store only through MarkPending,
// MarkRejected and DropPending (on Reset); sealing into the chain is the
// caller's own AppendBlock call after GenerateBlock.
type PendingBlock struct {
	mu sync.Mutex

	state      PendingState
	parent     PartialHeader
	parentHash BlockHash
	txs        []Transaction
	outs       []Receipt

	executor ExternalExecutor
	cachedState StateRef
	store    *ChainStore
	logger   *log.Logger
}

// NewPendingBlock opens a pending block on top of parentState, which must be
// the post-state of the block identified by parentHeader/parentHash.
func NewPendingBlock(parentHeader PartialHeader, parentHash BlockHash, parentState StateRef, executor ExternalExecutor, store *ChainStore, logger *log.Logger) *PendingBlock {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &PendingBlock{
		state:       PendingOpen,
		parent:      parentHeader,
		parentHash:  parentHash,
		executor:    executor,
		cachedState: parentState,
		store:       store,
		logger:      logger,
	}
}

// AddTransaction executes tx against the shared cached state. On success the
// executed transaction and its receipt join the pending block's body and the
// chain store's tx index records it Pending. On failure a RejectionRecord is
// recorded in the store and the cached state is left untouched.
func (p *PendingBlock) AddTransaction(tx Transaction, ctx BlockContext) (*Receipt, *ExecError) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != PendingOpen {
		return nil, newExecError(ErrKindStoreIO, errPendingNotOpen)
	}

	info, eerr := execute(p.executor, tx, p.cachedState, ctx)
	if eerr != nil {
		p.store.MarkRejected(tx, eerr.Error())
		p.logger.WithFields(log.Fields{"tx_hash": tx.Hash.Hex(), "kind": eerr.Kind}).Warn("transaction rejected")
		return nil, eerr
	}

	receipt := BuildReceipt(tx.Hash, info, ctx.GasPrice)
	p.txs = append(p.txs, tx)
	p.outs = append(p.outs, receipt)
	p.store.MarkPending(tx, receipt)
	return &receipt, nil
}

// GenerateBlock snapshots the accumulated transactions into a Block with a
// PartialHeader chained off the pending block's parent. The caller is
// expected to follow with ChainStore.AppendBlock using the state diff it
// derived alongside execution; GenerateBlock only transitions this state
// machine to Sealed, it does not itself commit to storage.
func (p *PendingBlock) GenerateBlock(number BlockNumber, gasPrice uint64, timestamp int64, sequencer ContractAddress, stateRoot Felt) (*Block, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != PendingOpen {
		return nil, errPendingNotOpen
	}
	p.state = PendingSealing

	header := Header{
		PartialHeader: PartialHeader{
			ParentHash:       p.parentHash,
			Number:           number,
			GasPrice:         gasPrice,
			Timestamp:        timestamp,
			SequencerAddress: sequencer,
		},
		StateRoot: stateRoot,
	}
	block := &Block{
		Header:  header,
		Body:    append([]Transaction(nil), p.txs...),
		Outputs: append([]Receipt(nil), p.outs...),
	}
	p.state = PendingSealed
	p.logger.WithFields(log.Fields{"number": number, "txs": len(block.Body)}).Info("pending block generated")
	return block, nil
}

// Reset drops all accumulated transactions and outputs and rebinds the
// pending block to a new parent state, used on reorg and immediately after
// a successful seal to open the next pending block. Transactions still
// marked Pending in the store's tx index are dropped from the index too.
// Pending L1Handler transactions are not re-queued here; the messaging
// bridge re-ingests them from L1.
func (p *PendingBlock) Reset(newParent PartialHeader, newParentHash BlockHash, newParentState StateRef) {
	p.mu.Lock()
	defer p.mu.Unlock()

	hashes := make([]TxHash, len(p.txs))
	for i, tx := range p.txs {
		hashes[i] = tx.Hash
	}
	p.store.DropPending(hashes)

	p.parent = newParent
	p.parentHash = newParentHash
	p.cachedState = newParentState
	p.txs = nil
	p.outs = nil
	p.state = PendingOpen
}

// State reports the current lifecycle phase.
func (p *PendingBlock) State() PendingState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Len reports how many transactions are currently accumulated.
func (p *PendingBlock) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.txs)
}

var errPendingNotOpen = fmt.Errorf("pending block is not open")

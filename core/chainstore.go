package core

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// ChainStore is the authoritative, append-only record of sealed blocks plus
// the bounded LRU of post-state snapshots (InMemoryBlockStates). It is the
// root of the owning/borrowing split spec.md §9 calls for: the pending
// block (core/pending.go) holds a bare reference into it plus a lock, never
// a back-pointer owned by the store.
type ChainStore struct {
	mu sync.RWMutex

	blocks        map[BlockHash]*Block
	numbers       map[BlockNumber]BlockHash
	stateUpdates  map[BlockHash]StateUpdate
	transactions  map[TxHash]KnownTransaction

	latestHash   BlockHash
	latestNumber BlockNumber
	hasLatest    bool

	forked   bool
	forkBase BlockNumber

	states *InMemoryBlockStates
	logger *log.Logger
}

// NewChainStore constructs an empty store with the given snapshot cache
// bounds. Use NewGenesis or NewForked to seed it with a tip.
func NewChainStore(inMemoryLimit, minInMemoryLimit int, logger *log.Logger) *ChainStore {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &ChainStore{
		blocks:       make(map[BlockHash]*Block),
		numbers:      make(map[BlockNumber]BlockHash),
		stateUpdates: make(map[BlockHash]StateUpdate),
		transactions: make(map[TxHash]KnownTransaction),
		states:       NewInMemoryBlockStates(inMemoryLimit, minInMemoryLimit),
		logger:       logger,
	}
}

// NewGenesis constructs a genesis block from spec and registers it as
// latest. parent_hash is the zero felt and number is 0.
func (c *ChainStore) NewGenesis(spec ChainSpec, state StateRef) (*Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	header := Header{
		PartialHeader: PartialHeader{
			ParentHash:       BlockHash{},
			Number:           0,
			GasPrice:         spec.GasPrice,
			Timestamp:        spec.Timestamp,
			SequencerAddress: spec.SequencerAddress,
		},
	}
	genesisBody := []Transaction{}
	genesisOutputs := []Receipt{}
	hash := computeGenesisHash(spec)
	header.Hash = hash
	block := &Block{Header: header, Body: genesisBody, Outputs: genesisOutputs}

	c.blocks[hash] = block
	c.numbers[0] = hash
	c.latestHash = hash
	c.latestNumber = 0
	c.hasLatest = true
	c.states.Insert(hash, state)

	c.logger.WithFields(log.Fields{"hash": hash.Hex()}).Info("genesis block created")
	return block, nil
}

func computeGenesisHash(spec ChainSpec) BlockHash {
	chainID, _ := spec.ChainIDFelt()
	return BlockHashFromFelt(pedersenChain(
		FeltZero(),
		FeltFromUint64(0),
		chainID,
		FeltFromUint64(spec.GasPrice),
		FeltFromUint64(uint64(spec.Timestamp)),
		spec.SequencerAddress.Felt(),
	))
}

// NewForked records a forked tip without a body: block lookups below the
// fork point return "unknown" since this store never held that history.
func (c *ChainStore) NewForked(latestNumber BlockNumber, latestHash BlockHash) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.forked = true
	c.forkBase = latestNumber
	c.latestNumber = latestNumber
	c.latestHash = latestHash
	c.hasLatest = true
	c.numbers[latestNumber] = latestHash
}

// BlockHashOf resolves a BlockID to a hash. Pending is never resolvable
// here — it is only meaningful to the pending-block state machine.
func (c *ChainStore) BlockHashOf(id BlockID) (BlockHash, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	switch id.Kind {
	case BlockIDLatest:
		return c.latestHash, c.hasLatest
	case BlockIDHash:
		_, ok := c.blocks[id.Hash]
		if !ok && id.Hash.Equal(c.latestHash) && c.hasLatest {
			ok = true
		}
		return id.Hash, ok
	case BlockIDNumber:
		h, ok := c.numbers[id.Number]
		return h, ok
	default:
		return BlockHash{}, false
	}
}

// Block returns the sealed block for hash, or ErrNotFound. A forked store
// below its fork base never has bodies and always misses.
func (c *ChainStore) Block(hash BlockHash) (*Block, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.blocks[hash]
	if !ok {
		return nil, ErrNotFound
	}
	return b, nil
}

// AppendBlock seals block atomically: it must extend the current tip by
// exactly one, and its StateUpdate is derived and recorded alongside it.
// All transactions in block.Body are promoted to Included.
func (c *ChainStore) AppendBlock(hash BlockHash, block *Block, diff StateDiff, newState StateRef) (StateUpdate, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.hasLatest && block.Header.Number != c.latestNumber+1 {
		return StateUpdate{}, ErrNonContiguousBlock
	}
	if !c.hasLatest && block.Header.Number != 0 {
		return StateUpdate{}, ErrNonContiguousBlock
	}

	oldRoot := FeltZero()
	if prev, ok := c.blocks[c.latestHash]; ok {
		oldRoot = prev.Header.StateRoot
	}
	update := StateUpdate{
		BlockHash: hash,
		NewRoot:   block.Header.StateRoot,
		OldRoot:   oldRoot,
		Diff:      diff,
	}

	c.blocks[hash] = block
	c.numbers[block.Header.Number] = hash
	c.stateUpdates[hash] = update

	for i, tx := range block.Body {
		c.transactions[tx.Hash] = KnownTransaction{
			State:     KnownTxIncluded,
			Executed:  ExecutedTransaction{Raw: tx, Receipt: block.Outputs[i]},
			BlockHash: hash,
		}
	}

	c.latestHash = hash
	c.latestNumber = block.Header.Number
	c.hasLatest = true
	c.states.Insert(hash, newState)

	c.logger.WithFields(log.Fields{
		"number": block.Header.Number,
		"hash":   hash.Hex(),
		"txs":    len(block.Body),
	}).Info("block appended")
	return update, nil
}

// MarkRejected records a transaction that failed validation and was never
// included in any block.
func (c *ChainStore) MarkRejected(rawTx Transaction, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transactions[rawTx.Hash] = KnownTransaction{
		State:     KnownTxRejected,
		Rejection: RejectionRecord{Reason: reason, RawTx: rawTx},
	}
}

// MarkPending records a transaction accepted into the pending block but not
// yet sealed.
func (c *ChainStore) MarkPending(raw Transaction, receipt Receipt) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transactions[raw.Hash] = KnownTransaction{
		State:    KnownTxPending,
		Executed: ExecutedTransaction{Raw: raw, Receipt: receipt},
	}
}

// DropPending clears every currently-pending transaction's index entry,
// used by the pending block's reset on reorg.
func (c *ChainStore) DropPending(hashes []TxHash) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, h := range hashes {
		if kt, ok := c.transactions[h]; ok && kt.State == KnownTxPending {
			delete(c.transactions, h)
		}
	}
}

// Transaction looks up a transaction's known state by hash.
func (c *ChainStore) Transaction(hash TxHash) (KnownTransaction, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	kt, ok := c.transactions[hash]
	return kt, ok
}

// StateUpdateFor returns the state update recorded alongside a sealed
// block.
func (c *ChainStore) StateUpdateFor(hash BlockHash) (StateUpdate, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	u, ok := c.stateUpdates[hash]
	return u, ok
}

// LatestNumber/LatestHash expose the current tip.
func (c *ChainStore) LatestNumber() (BlockNumber, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.latestNumber, c.hasLatest
}

func (c *ChainStore) LatestHash() (BlockHash, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.latestHash, c.hasLatest
}

// StateAt returns the post-state snapshot for hash from the LRU, or false
// if it has been evicted / never retained.
func (c *ChainStore) StateAt(hash BlockHash) (StateRef, bool) {
	return c.states.Get(hash)
}

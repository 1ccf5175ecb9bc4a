package core

import (
	"context"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/jmoiron/sqlx"
	log "github.com/sirupsen/logrus"
)

// Selector is a 32-byte event-key hash, the dispatch key §4G's pre-built
// processor map is keyed by.
type Selector [32]byte

// EventKeySelector hashes a human-readable event key the same way Cairo
// derives a selector from its name: keccak256(name), then reduced into the
// field so it matches the Felt an emitted event actually carries as its
// first key.
func EventKeySelector(eventKey string) Selector {
	hash := crypto.Keccak256Hash([]byte(eventKey))
	return Selector(FeltFromBigInt(hash.Big()).Bytes32())
}

// BlockProcessor extracts canonical rows from a whole sealed block.
type BlockProcessor interface {
	ProcessBlock(ctx context.Context, tx *sqlx.Tx, block *Block) error
}

// TransactionProcessor extracts canonical rows from one transaction and its
// receipt.
type TransactionProcessor interface {
	ProcessTransaction(ctx context.Context, tx *sqlx.Tx, block *Block, txn Transaction, receipt Receipt) error
}

// EventProcessor handles one event kind, identified by its selector.
type EventProcessor interface {
	EventKey() string
	ProcessEvent(ctx context.Context, tx *sqlx.Tx, block *Block, receipt Receipt, event Event) error
}

// Registry is the three-set processor registration §4G describes, with the
// event processors pre-hashed into a Selector map for dispatch.
type Registry struct {
	blocks       []BlockProcessor
	transactions []TransactionProcessor
	events       map[Selector]EventProcessor
	worldAddress ContractAddress
	hasWorld     bool
}

// NewRegistry constructs an empty registry. If worldAddress is set via
// WatchWorld, events whose emitter does not match it are filtered upstream
// of dispatch, per §4G.
func NewRegistry() *Registry {
	return &Registry{events: make(map[Selector]EventProcessor)}
}

// WatchWorld restricts event processing to events emitted by addr.
func (r *Registry) WatchWorld(addr ContractAddress) {
	r.worldAddress = addr
	r.hasWorld = true
}

// RegisterBlockProcessor adds p to the block-level processor set.
func (r *Registry) RegisterBlockProcessor(p BlockProcessor) { r.blocks = append(r.blocks, p) }

// RegisterTransactionProcessor adds p to the transaction-level set.
func (r *Registry) RegisterTransactionProcessor(p TransactionProcessor) {
	r.transactions = append(r.transactions, p)
}

// RegisterEventProcessor indexes p under keccak(p.EventKey()).
func (r *Registry) RegisterEventProcessor(p EventProcessor) {
	r.events[EventKeySelector(p.EventKey())] = p
}

// Indexer drives a Registry against blocks read from a Store, one
// transaction per block.
type Indexer struct {
	store    *Store
	registry *Registry
	logger   *log.Logger
}

// NewIndexer constructs an indexer bound to store and registry.
func NewIndexer(store *Store, registry *Registry, logger *log.Logger) *Indexer {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Indexer{store: store, registry: registry, logger: logger}
}

// ProcessBlock runs every registered processor against block inside a
// single store transaction. A failing processor rolls back the whole
// block — partial writes are impossible.
func (ix *Indexer) ProcessBlock(ctx context.Context, block *Block) error {
	return ix.store.WithTx(ctx, func(tx *sqlx.Tx) error {
		for _, bp := range ix.registry.blocks {
			if err := bp.ProcessBlock(ctx, tx, block); err != nil {
				return NewKindedError(ErrKindStoreIO, err)
			}
		}

		for i, txn := range block.Body {
			receipt := block.Outputs[i]
			for _, tp := range ix.registry.transactions {
				if err := tp.ProcessTransaction(ctx, tx, block, txn, receipt); err != nil {
					return NewKindedError(ErrKindStoreIO, err)
				}
			}

			for _, ev := range receipt.Events {
				if ix.registry.hasWorld && !ev.From.Equal(ix.registry.worldAddress) {
					continue
				}
				if len(ev.Keys) == 0 {
					continue
				}
				selector := feltSelector(ev.Keys[0])
				proc, ok := ix.registry.events[selector]
				if !ok {
					continue
				}
				if err := proc.ProcessEvent(ctx, tx, block, receipt, ev); err != nil {
					return NewKindedError(ErrKindStoreIO, err)
				}
			}
		}
		return nil
	})
}

// feltSelector reinterprets an event's first key felt as a dispatch
// selector: keys are already the on-chain encoding of the event name hash.
func feltSelector(f Felt) Selector {
	return Selector(f.Bytes32())
}

package core

import (
	"fmt"
	"time"
)

// TxVariant tags which concrete transaction payload a Transaction carries.
type TxVariant uint8

const (
	TxInvoke TxVariant = iota
	TxDeclareV0
	TxDeclareV1
	TxDeclareV2
	TxDeclareV3
	TxDeployAccountV1
	TxDeployAccountV3
	TxL1Handler
)

// Transaction is a tagged variant over the concrete Starknet transaction
// kinds. Only the fields relevant to the variant in play are populated; the
// rest stay at zero value, matching how the teacher's Transaction struct
// aggregates every transaction shape behind one type rather than an
// interface hierarchy (see core/common_structs.go's Transaction in the
// teacher repo).
type Transaction struct {
	Variant TxVariant `json:"variant"`
	Hash    TxHash    `json:"hash"`

	SenderAddress ContractAddress `json:"sender_address"`
	Calldata      []Felt          `json:"calldata,omitempty"`
	MaxFee        Felt            `json:"max_fee"`
	Nonce         Felt            `json:"nonce"`
	Signature     []Felt          `json:"signature,omitempty"`
	Version       uint8           `json:"version"`

	// Declare-specific.
	ClassHash         ClassHash         `json:"class_hash,omitempty"`
	CompiledClassHash CompiledClassHash `json:"compiled_class_hash,omitempty"`
	SierraProgram     []byte            `json:"sierra_program,omitempty"`

	// DeployAccount-specific.
	ContractAddressSalt Felt   `json:"contract_address_salt,omitempty"`
	ConstructorCalldata []Felt `json:"constructor_calldata,omitempty"`

	// L1Handler-specific.
	ContractAddress     ContractAddress `json:"contract_address,omitempty"`
	EntryPointSelector  Felt            `json:"entry_point_selector,omitempty"`
	PaidFeeOnL1         uint64          `json:"paid_fee_on_l1,omitempty"`
}

// Message is an L2->L1 message recorded on a Receipt.
type Message struct {
	From    ContractAddress `json:"from"`
	To      [20]byte        `json:"to"`
	Payload []Felt          `json:"payload"`
}

// Event is a contract-emitted log entry.
type Event struct {
	From Address `json:"from_address"`
	Keys []Felt  `json:"keys"`
	Data []Felt  `json:"data"`
}

// Address aliases ContractAddress for event emitters, matching how events
// and state updates are keyed by the same 252-bit address space.
type Address = ContractAddress

// FeeInfo records what a transaction actually cost.
type FeeInfo struct {
	ActualFee Felt   `json:"actual_fee"`
	GasPrice  uint64 `json:"gas_price"`
	GasUsed   uint64 `json:"gas_used"`
}

// ResourcesUsed tracks VM resource counters surfaced by the executor.
type ResourcesUsed struct {
	Steps       uint64 `json:"steps"`
	MemoryHoles uint64 `json:"memory_holes"`
	Builtins    map[string]uint64 `json:"builtins,omitempty"`
}

// Receipt is produced for every transaction that reached execution
// (successfully or with a revert); a validation failure never produces one.
type Receipt struct {
	TxHash        TxHash        `json:"transaction_hash"`
	FeeInfo       FeeInfo       `json:"fee_info"`
	Events        []Event       `json:"events"`
	MessagesToL1  []Message     `json:"messages_to_l1"`
	RevertReason  *string       `json:"revert_reason,omitempty"`
	ResourcesUsed ResourcesUsed `json:"resources_used"`
}

// Reverted reports whether the invariant "revert_reason.is_some() iff the
// transaction executed and reverted" holds for this receipt.
func (r Receipt) Reverted() bool { return r.RevertReason != nil }

// RejectionRecord is produced instead of a Receipt when validation fails
// before execution ever begins.
type RejectionRecord struct {
	Reason string      `json:"reason"`
	RawTx  Transaction `json:"raw_tx"`
}

// PartialHeader carries the fields known before a block is sealed.
type PartialHeader struct {
	ParentHash       BlockHash       `json:"parent_hash"`
	Number           BlockNumber     `json:"number"`
	GasPrice         uint64          `json:"gas_price"`
	Timestamp        int64           `json:"timestamp"`
	SequencerAddress ContractAddress `json:"sequencer_address"`
}

// Header is a PartialHeader plus the fields only knowable once a block's
// transactions have all executed.
type Header struct {
	PartialHeader
	Hash      BlockHash `json:"hash"`
	StateRoot Felt      `json:"state_root"`
}

// Block is a sealed, immutable unit of the chain.
type Block struct {
	Header  Header        `json:"header"`
	Body    []Transaction `json:"body"`
	Outputs []Receipt     `json:"outputs"`
}

// Valid checks the structural invariants spec.md lists for a Block, given
// the previous block in the chain (nil for genesis).
func (b *Block) Valid(prev *Block) error {
	if len(b.Body) != len(b.Outputs) {
		return NewKindedError(ErrKindStoreIO, errLenMismatch)
	}
	if prev == nil {
		return nil
	}
	if !b.Header.ParentHash.Equal(prev.Header.Hash) {
		return NewKindedError(ErrKindStoreIO, errParentHashMismatch)
	}
	if b.Header.Number != prev.Header.Number+1 {
		return ErrNonContiguousBlock
	}
	return nil
}

var errLenMismatch = fmt.Errorf("body and outputs length mismatch")
var errParentHashMismatch = fmt.Errorf("parent_hash does not match previous block's hash")

// StateDiff is the set of mutations a block's transactions produced.
type StateDiff struct {
	StorageUpdates    map[ContractAddress]map[Felt]Felt          `json:"storage_updates"`
	NonceUpdates      map[ContractAddress]Felt                   `json:"nonce_updates"`
	DeclaredClasses   map[ClassHash]CompiledClassHash             `json:"declared_classes"`
	DeployedContracts map[ContractAddress]ClassHash               `json:"deployed_contracts"`
	ReplacedClasses   map[ContractAddress]ClassHash               `json:"replaced_classes"`
	DeprecatedDeclared map[ClassHash]struct{}                     `json:"deprecated_declared"`
}

// NewStateDiff returns a StateDiff with all maps initialized, ready for
// incremental population during execution.
func NewStateDiff() StateDiff {
	return StateDiff{
		StorageUpdates:     make(map[ContractAddress]map[Felt]Felt),
		NonceUpdates:       make(map[ContractAddress]Felt),
		DeclaredClasses:    make(map[ClassHash]CompiledClassHash),
		DeployedContracts:  make(map[ContractAddress]ClassHash),
		ReplacedClasses:    make(map[ContractAddress]ClassHash),
		DeprecatedDeclared: make(map[ClassHash]struct{}),
	}
}

// StateUpdate is the committed record of a block's effect on global state.
type StateUpdate struct {
	BlockHash BlockHash `json:"block_hash"`
	NewRoot   Felt      `json:"new_root"`
	OldRoot   Felt      `json:"old_root"`
	Diff      StateDiff `json:"state_diff"`
}

// KnownTxState tags which lifecycle stage a KnownTransaction occupies.
type KnownTxState uint8

const (
	KnownTxPending KnownTxState = iota
	KnownTxIncluded
	KnownTxRejected
)

// ExecutedTransaction bundles a transaction with its execution receipt,
// the shape both the pending block and chain storage index by hash.
type ExecutedTransaction struct {
	Raw     Transaction
	Receipt Receipt
}

// KnownTransaction is the tagged variant chain storage indexes transactions
// by hash under: pending (in the open block), included (sealed), or
// rejected (never included).
type KnownTransaction struct {
	State     KnownTxState
	Executed  ExecutedTransaction
	BlockHash BlockHash // valid only when State == KnownTxIncluded
	Rejection RejectionRecord // valid only when State == KnownTxRejected
}

// Now is the clock collaborator's narrow surface: a single function so
// components can be tested with a fixed or advancing fake.
type Clock interface {
	Now() time.Time
}

// SystemClock is the default Clock, delegating to time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

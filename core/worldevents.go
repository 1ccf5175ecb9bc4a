package core

import (
	"context"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ModelRegisteredProcessor persists ModelRegistered(name, class_hash,
// prev_class_hash) events into the models table under a fresh surrogate id,
// with the decoded name kept as a plain lookup column.
type ModelRegisteredProcessor struct {
	members func(name string) []ModelMember
	store   *Store
}

// NewModelRegisteredProcessor binds a member-layout lookup used to populate
// each model's dynamic external_<name> table on first registration.
func NewModelRegisteredProcessor(store *Store, members func(name string) []ModelMember) *ModelRegisteredProcessor {
	return &ModelRegisteredProcessor{store: store, members: members}
}

func (p *ModelRegisteredProcessor) EventKey() string { return "ModelRegistered" }

func (p *ModelRegisteredProcessor) ProcessEvent(ctx context.Context, tx *sqlx.Tx, block *Block, receipt Receipt, event Event) error {
	if len(event.Data) < 5 {
		return nil
	}
	name, classHash, err := decodeModelRegistered(event.Data)
	if err != nil {
		return err
	}
	var layout []ModelMember
	if p.members != nil {
		layout = p.members(name)
	}
	id := uuid.New().String()
	return p.store.RegisterModel(ctx, tx, id, name, classHash, len(layout), "", layout)
}

// decodeModelRegistered splits data into a pending-ByteArray-encoded name
// followed by class_hash and prev_class_hash, reflecting how a Cairo event
// serializes a ByteArray argument ahead of two plain felts.
func decodeModelRegistered(data []Felt) (string, ClassHash, error) {
	if len(data) < 5 {
		return "", ClassHash{}, errEventTooShort
	}
	nameFelts := data[:len(data)-2]
	name, err := DecodeByteArray(nameFelts)
	if err != nil {
		return "", ClassHash{}, err
	}
	classHash := ClassHashFromFelt(data[len(data)-2])
	return name, classHash, nil
}

var errEventTooShort = kindedEventError("ModelRegistered event data too short")

func kindedEventError(msg string) error { return NewKindedError(ErrKindStoreIO, strErr(msg)) }

type strErr string

func (e strErr) Error() string { return string(e) }

// ContractDeployedProcessor persists ContractDeployed(salt, class_hash,
// address) events as new entity rows keyed by the deployed address, so the
// indexer's view of deployed resources tracks the chain without a separate
// reconstruction pass.
type ContractDeployedProcessor struct {
	store *Store
	now   func() int64
}

func NewContractDeployedProcessor(store *Store, now func() int64) *ContractDeployedProcessor {
	return &ContractDeployedProcessor{store: store, now: now}
}

func (p *ContractDeployedProcessor) EventKey() string { return "ContractDeployed" }

func (p *ContractDeployedProcessor) ProcessEvent(ctx context.Context, tx *sqlx.Tx, block *Block, receipt Receipt, event Event) error {
	if len(event.Data) < 3 {
		return nil
	}
	salt, classHash, address := event.Data[0], event.Data[1], event.Data[2]
	id := address.Hex()
	keys := salt.Hex()
	return p.store.UpsertEntity(ctx, tx, id, keys, classHash.Hex(), eventID(receipt.TxHash, 0), p.timestamp())
}

func (p *ContractDeployedProcessor) timestamp() int64 {
	if p.now != nil {
		return p.now()
	}
	return 0
}

// ContractUpgradedProcessor tracks ContractUpgraded(class_hash, address):
// §4H's "retain only the latest (block_number, class_hash)" rule is a
// property of the world-diff resolver's remote reconstruction, not of
// indexing, so this processor simply overwrites the entity's recorded class
// hash on every occurrence — the upsert is idempotent and order-preserving
// because the indexer only ever replays blocks in ascending order.
type ContractUpgradedProcessor struct {
	store *Store
	now   func() int64
}

func NewContractUpgradedProcessor(store *Store, now func() int64) *ContractUpgradedProcessor {
	return &ContractUpgradedProcessor{store: store, now: now}
}

func (p *ContractUpgradedProcessor) EventKey() string { return "ContractUpgraded" }

func (p *ContractUpgradedProcessor) ProcessEvent(ctx context.Context, tx *sqlx.Tx, block *Block, receipt Receipt, event Event) error {
	if len(event.Data) < 2 {
		return nil
	}
	classHash, address := event.Data[0], event.Data[1]
	id := address.Hex()
	return p.store.UpsertEntity(ctx, tx, id, "", classHash.Hex(), eventID(receipt.TxHash, 0), p.timestamp())
}

func (p *ContractUpgradedProcessor) timestamp() int64 {
	if p.now != nil {
		return p.now()
	}
	return 0
}

func eventID(txHash TxHash, eventIdx int) string {
	var b strings.Builder
	b.WriteString(txHash.Hex())
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(eventIdx))
	return b.String()
}

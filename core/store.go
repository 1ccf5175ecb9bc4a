package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// Store is the relational persistence layer §6 names: a thin sqlx wrapper
// around a SQLite database holding the indexers/worlds/entities/models
// schema plus one dynamic external_<model> table per registered model.
type Store struct {
	db *sqlx.DB
}

const baseSchema = `
CREATE TABLE IF NOT EXISTS indexers (
	id TEXT PRIMARY KEY,
	head INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS worlds (
	id TEXT PRIMARY KEY,
	world_address TEXT NOT NULL,
	world_class_hash TEXT NOT NULL,
	executor_address TEXT,
	executor_class_hash TEXT
);
CREATE TABLE IF NOT EXISTS entities (
	id TEXT PRIMARY KEY,
	keys TEXT NOT NULL,
	model_names TEXT NOT NULL,
	event_id TEXT,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS models (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	class_hash TEXT NOT NULL,
	packed_size INTEGER,
	layout TEXT
);
CREATE TABLE IF NOT EXISTS model_members (
	model_id TEXT NOT NULL REFERENCES models(id),
	name TEXT NOT NULL,
	type TEXT NOT NULL,
	slot INTEGER NOT NULL,
	offset INTEGER NOT NULL,
	key BOOLEAN NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS entity_model (
	entity_id TEXT NOT NULL REFERENCES entities(id),
	model_id TEXT NOT NULL REFERENCES models(id),
	PRIMARY KEY (entity_id, model_id)
);
CREATE TABLE IF NOT EXISTS events_raw (
	tx_hash TEXT NOT NULL,
	event_idx INTEGER NOT NULL,
	data TEXT NOT NULL,
	keys TEXT NOT NULL,
	PRIMARY KEY (tx_hash, event_idx)
);
`

// OpenStore opens (creating if absent) a SQLite database at path and ensures
// the base schema exists.
func OpenStore(path string) (*Store, error) {
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, NewKindedError(ErrKindStoreIO, err)
	}
	if _, err := db.Exec(baseSchema); err != nil {
		return nil, NewKindedError(ErrKindStoreIO, err)
	}
	return &Store{db: db}, nil
}

// ModelMember describes one packed field of a registered model, used both
// to populate model_members and to generate the model's dynamic table.
type ModelMember struct {
	Name   string
	Type   string
	Slot   int
	Offset int
	Key    bool
}

// RegisterModel inserts the model row, its members, and creates (if absent)
// its dynamic external_<name> table with one column per member, matching
// §6's "one column per member prefixed external_" rule.
func (s *Store) RegisterModel(ctx context.Context, tx *sqlx.Tx, id, name string, classHash ClassHash, packedSize int, layout string, members []ModelMember) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO models (id, name, class_hash, packed_size, layout) VALUES (?, ?, ?, ?, ?)`,
		id, name, classHash.Hex(), packedSize, layout,
	); err != nil {
		return NewKindedError(ErrKindStoreIO, err)
	}

	for _, m := range members {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO model_members (model_id, name, type, slot, offset, key, created_at) VALUES (?, ?, ?, ?, ?, ?, strftime('%s','now'))`,
			id, m.Name, m.Type, m.Slot, m.Offset, m.Key,
		); err != nil {
			return NewKindedError(ErrKindStoreIO, err)
		}
	}

	ddl := dynamicModelTableDDL(name, members)
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return NewKindedError(ErrKindStoreIO, err)
	}
	return nil
}

// dynamicModelTableDDL builds the CREATE TABLE statement for a model's
// per-entity external table, grounded on manifest.rs's "every member of a
// registered model becomes a column prefixed external_" convention.
func dynamicModelTableDDL(modelName string, members []ModelMember) string {
	var cols []string
	for _, m := range members {
		cols = append(cols, fmt.Sprintf("external_%s %s", sanitizeIdent(m.Name), sqlTypeFor(m.Type)))
	}
	return fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS external_%s (entity_id TEXT PRIMARY KEY REFERENCES entities(id)%s%s)",
		sanitizeIdent(modelName),
		condComma(len(cols) > 0),
		strings.Join(cols, ", "),
	)
}

func condComma(nonEmpty bool) string {
	if nonEmpty {
		return ", "
	}
	return ""
}

func sqlTypeFor(memberType string) string {
	switch memberType {
	case "u8", "u16", "u32", "u64", "u128", "usize", "bool":
		return "INTEGER"
	case "felt252", "ContractAddress", "ClassHash":
		return "TEXT"
	default:
		return "TEXT"
	}
}

func sanitizeIdent(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

// UpsertEntity writes or refreshes an entity row plus its model membership.
// Uses INSERT OR IGNORE for the identity row and a plain UPDATE for mutable
// fields, the idempotence shape §4G requires.
func (s *Store) UpsertEntity(ctx context.Context, tx *sqlx.Tx, id, keys, modelNames, eventID string, now int64) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO entities (id, keys, model_names, event_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, keys, modelNames, eventID, now, now,
	); err != nil {
		return NewKindedError(ErrKindStoreIO, err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE entities SET model_names = ?, event_id = ?, updated_at = ? WHERE id = ?`,
		modelNames, eventID, now, id,
	); err != nil {
		return NewKindedError(ErrKindStoreIO, err)
	}
	return nil
}

// LinkEntityModel records that an entity carries a given model's data.
func (s *Store) LinkEntityModel(ctx context.Context, tx *sqlx.Tx, entityID, modelID string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO entity_model (entity_id, model_id) VALUES (?, ?)`,
		entityID, modelID,
	)
	if err != nil {
		return NewKindedError(ErrKindStoreIO, err)
	}
	return nil
}

// RecordRawEvent stores an event's raw data/keys for later reprocessing or
// debugging.
func (s *Store) RecordRawEvent(ctx context.Context, tx *sqlx.Tx, txHash string, eventIdx int, data, keys string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO events_raw (tx_hash, event_idx, data, keys) VALUES (?, ?, ?, ?)`,
		txHash, eventIdx, data, keys,
	)
	if err != nil {
		return NewKindedError(ErrKindStoreIO, err)
	}
	return nil
}

// Checkpoint implements CheckpointStore by reading the indexers.head column.
func (s *Store) Checkpoint(stageID string) (BlockNumber, error) {
	var head int64
	err := s.db.Get(&head, `SELECT head FROM indexers WHERE id = ?`, stageID)
	if err != nil {
		if _, insertErr := s.db.Exec(`INSERT OR IGNORE INTO indexers (id, head) VALUES (?, 0)`, stageID); insertErr != nil {
			return 0, NewKindedError(ErrKindStoreIO, insertErr)
		}
		return 0, nil
	}
	return BlockNumber(head), nil
}

// SetCheckpoint implements CheckpointStore by upserting indexers.head.
func (s *Store) SetCheckpoint(stageID string, tip BlockNumber) error {
	_, err := s.db.Exec(
		`INSERT INTO indexers (id, head) VALUES (?, ?) ON CONFLICT(id) DO UPDATE SET head = excluded.head`,
		stageID, int64(tip),
	)
	if err != nil {
		return NewKindedError(ErrKindStoreIO, err)
	}
	return nil
}

// WithTx runs fn inside a single transaction, committing on success and
// rolling back on any error — the "all writes for a single block go through
// a single transaction" guarantee §4G requires.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return NewKindedError(ErrKindStoreIO, err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return NewKindedError(ErrKindStoreIO, err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

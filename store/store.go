// Package store is the document-store boundary carver depends on. It is
// deliberately narrow and typed (spec.md treats the store itself as an
// external collaborator; this package is the one concrete driver
// carversyncd ships with) rather than exposing raw bson filters to
// callers, so carver's tests can swap in an in-memory fake.
package store

import (
	"context"

	"github.com/5G-Cash/bulwark-explorer/carvertypes"
)

type (
	// Block, Movement and Address alias the shared data model types so
	// store's interfaces read naturally while keeping a single
	// definition of the schema in package carvertypes.
	Block    = carvertypes.Block
	Movement = carvertypes.CarverMovement
	Address  = carvertypes.CarverAddress
)

// BlockStore persists Block records. height is unique; IsConfirmed and
// Height are indexed (spec.md §6).
type BlockStore interface {
	// Insert writes a single block. Called last within a height's
	// work: its success is the commit marker (spec.md §3).
	Insert(ctx context.Context, block *Block) error

	// Last returns the highest-height block stored, or nil if the
	// store is empty.
	Last(ctx context.Context) (*Block, error)

	// ByHeight returns the block at the given height, or nil if none
	// exists.
	ByHeight(ctx context.Context, height int64) (*Block, error)

	// FirstUnconfirmed returns the lowest-height block with
	// is_confirmed = false, or nil if every stored block is confirmed.
	FirstUnconfirmed(ctx context.Context) (*Block, error)

	// MarkConfirmed sets is_confirmed = true for the block at height.
	MarkConfirmed(ctx context.Context, height int64) error

	// DeleteFromHeight deletes every block with height >= height. This
	// is the Unwinder's dirty-state marker (spec.md §4.5 step 1): it
	// must run before any movement or address is touched.
	DeleteFromHeight(ctx context.Context, height int64) error
}

// MovementStore persists CarverMovement records. sequence, block_height,
// from, to, context_tx and context_address are indexed (spec.md §6).
type MovementStore interface {
	// InsertMany writes a batch of movements produced for a single
	// transaction, in a single call (spec.md §4.4 "Persistence order").
	InsertMany(ctx context.Context, movements []*Movement) error

	// FindDescendingBatch returns up to limit movements with
	// block_height >= height, sorted by sequence descending — the
	// Unwinder's per-batch fetch (spec.md §4.5 step 2).
	FindDescendingBatch(ctx context.Context, height int64, limit int) ([]*Movement, error)

	// DeleteFromSequence deletes every movement with sequence >=
	// sequence (spec.md §4.5 step 3).
	DeleteFromSequence(ctx context.Context, sequence int64) error

	// MaxSequence returns the highest sequence stored, or 0 if the
	// store has no movements.
	MaxSequence(ctx context.Context) (int64, error)
}

// AddressStore persists CarverAddress records, keyed uniquely by label.
// sequence and block_height are indexed (spec.md §6).
type AddressStore interface {
	// ByLabel returns the address with the given label, or nil if it
	// does not exist.
	ByLabel(ctx context.Context, label string) (*Address, error)

	// Upsert writes addr, creating it if its label is new.
	Upsert(ctx context.Context, addr *Address) error

	// UpsertMany writes a batch of independent addresses (spec.md
	// §4.4's "independent writes, order immaterial").
	UpsertMany(ctx context.Context, addrs []*Address) error

	// MaxSequence returns the highest sequence stored, or 0 if the
	// store has no addresses.
	MaxSequence(ctx context.Context) (int64, error)

	// DeleteFromBlockHeight deletes every address with block_height >=
	// height (spec.md §4.5 step 5).
	DeleteFromBlockHeight(ctx context.Context, height int64) error
}

// Store aggregates the three collections carversync needs plus
// lifecycle management.
type Store interface {
	Blocks() BlockStore
	Movements() MovementStore
	Addresses() AddressStore

	// EnsureIndexes creates (idempotently) the indexes spec.md §6
	// names. Called once at startup.
	EnsureIndexes(ctx context.Context) error

	// Close releases the underlying connection.
	Close(ctx context.Context) error
}

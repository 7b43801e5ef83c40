package carver

import (
	"context"

	"github.com/5G-Cash/bulwark-explorer/carvererr"
	"github.com/5G-Cash/bulwark-explorer/carvertypes"
	"github.com/5G-Cash/bulwark-explorer/store"
)

// unwindBatchSize is the default per-pass fetch size B from spec.md
// §4.5.
const unwindBatchSize = 1000

// Unwinder reverses movements at or after a given block height in
// strict descending sequence order, restoring the store to the state
// it would have had before that height was ever applied (spec.md
// §4.5). It is the sole mechanism both reorg recovery and crash
// recovery build on.
type Unwinder struct {
	blocks    store.BlockStore
	movements store.MovementStore
	addresses store.AddressStore
	cache     *AddressCache
}

// NewUnwinder creates an unwinder over the given store collections,
// keeping cache invalidated as it rolls back.
func NewUnwinder(blocks store.BlockStore, movements store.MovementStore, addresses store.AddressStore, cache *AddressCache) *Unwinder {
	return &Unwinder{blocks: blocks, movements: movements, addresses: addresses, cache: cache}
}

// Unwind reverses every movement with block_height >= height and
// deletes every block and address created at or after it.
func (u *Unwinder) Unwind(ctx context.Context, height int64) error {
	// Step 1: delete blocks first. Once gone, the remaining movements
	// and addresses at this height are known-dirty and must be cleaned
	// up before any new sync proceeds, even if this pass itself dies.
	if err := u.blocks.DeleteFromHeight(ctx, height); err != nil {
		return carvererr.Store(err, "deleting blocks from height %d", height)
	}
	u.cache.Clear()

	for {
		batch, err := u.movements.FindDescendingBatch(ctx, height, unwindBatchSize)
		if err != nil {
			return carvererr.Store(err, "fetching unwind batch at height %d", height)
		}
		if len(batch) == 0 {
			break
		}

		touched := make(map[string]*carvertypes.CarverAddress)
		minSeq := batch[0].Sequence

		for _, m := range batch {
			if m.Sequence < minSeq {
				minSeq = m.Sequence
			}
			if err := u.reverse(ctx, m, touched); err != nil {
				return err
			}
		}

		addrs := make([]*carvertypes.CarverAddress, 0, len(touched))
		for _, addr := range touched {
			addrs = append(addrs, addr)
		}
		if err := u.addresses.UpsertMany(ctx, addrs); err != nil {
			return carvererr.Store(err, "saving %d addresses while unwinding", len(addrs))
		}
		for _, addr := range addrs {
			u.cache.Put(addr)
		}

		if err := u.movements.DeleteFromSequence(ctx, minSeq); err != nil {
			return carvererr.Store(err, "deleting movements from sequence %d", minSeq)
		}
	}

	if err := u.addresses.DeleteFromBlockHeight(ctx, height); err != nil {
		return carvererr.Store(err, "deleting addresses from height %d", height)
	}
	u.cache.Clear()
	return nil
}

// reverse undoes one movement's effect on its endpoints, applying
// spec.md §4.5 step 2's partial-movement tolerance: an endpoint whose
// current sequence doesn't match the movement being reversed was
// already unwound in a prior pass (or never applied) and is skipped
// silently; an endpoint strictly ahead of the movement is impossible
// in a correct log and raises UnreconciliationError.
func (u *Unwinder) reverse(ctx context.Context, m *carvertypes.CarverMovement, touched map[string]*carvertypes.CarverAddress) error {
	from, err := u.loadTouched(ctx, m.From, touched)
	if err != nil {
		return err
	}
	to, err := u.loadTouched(ctx, m.To, touched)
	if err != nil {
		return err
	}

	if err := u.reverseEndpoint(from, m, m.Sequence, m.LastFromMovement, true); err != nil {
		return err
	}
	if to.Label != from.Label {
		if err := u.reverseEndpoint(to, m, m.Sequence, m.LastToMovement, false); err != nil {
			return err
		}
	}
	return nil
}

func (u *Unwinder) loadTouched(ctx context.Context, label string, touched map[string]*carvertypes.CarverAddress) (*carvertypes.CarverAddress, error) {
	if addr, ok := touched[label]; ok {
		return addr, nil
	}
	addr, err := u.cache.Get(ctx, label, carvertypes.KindUnknown)
	if err != nil {
		return nil, err
	}
	touched[label] = addr
	return addr, nil
}

// reverseEndpoint undoes m's effect on one side of the movement.
func (u *Unwinder) reverseEndpoint(addr *carvertypes.CarverAddress, m *carvertypes.CarverMovement, movementSeq, restoreLastMovement int64, isFrom bool) error {
	if addr.Sequence != movementSeq {
		if addr.Sequence > movementSeq {
			return carvererr.Unreconciliation("address %q at sequence %d is ahead of movement %d being unwound", addr.Label, addr.Sequence, movementSeq)
		}
		// addr.Sequence < movementSeq: already unwound in a prior pass,
		// or this movement never actually advanced it (shouldn't
		// happen for a correctly-applied log, but tolerated here per
		// the partial-movement rule).
		return nil
	}

	amount := m.Amount
	if isFrom {
		addr.Balance += amount
		addr.ValueOut -= amount
		addr.CountOut--
	} else {
		addr.Balance -= amount
		addr.ValueIn -= amount
		addr.CountIn--
		reverseCategoryCounters(addr, m.MovementType, amount)
	}

	if restoreLastMovement == 0 {
		addr.LastMovement = 0
		addr.Sequence = 0
	} else {
		addr.LastMovement = restoreLastMovement
		addr.Sequence = restoreLastMovement
	}
	return nil
}

func reverseCategoryCounters(addr *carvertypes.CarverAddress, mtype carvertypes.MovementType, amount int64) {
	switch mtype {
	case carvertypes.MovementPowAddressReward:
		addr.PowCountIn--
		addr.PowValueIn -= amount
	case carvertypes.MovementTxToPosAddress:
		addr.PosCountIn--
		addr.PosValueIn -= amount
	case carvertypes.MovementTxToMnAddress:
		addr.MnCountIn--
		addr.MnValueIn -= amount
	}
}

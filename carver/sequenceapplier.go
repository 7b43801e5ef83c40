package carver

import (
	"context"
	"time"

	"github.com/5G-Cash/bulwark-explorer/carvererr"
	"github.com/5G-Cash/bulwark-explorer/carvertypes"
	"github.com/5G-Cash/bulwark-explorer/store"
)

// SequenceApplier owns the monotonic sequence counter and applies
// parsed movements to addresses under it (spec.md §4.4). ApplyTransaction
// is the only place new sequence numbers are minted.
type SequenceApplier struct {
	movements store.MovementStore
	addresses store.AddressStore
	cache     *AddressCache
}

// NewSequenceApplier creates an applier writing through movements and
// addresses, and keeping cache coherent as it goes.
func NewSequenceApplier(movements store.MovementStore, addresses store.AddressStore, cache *AddressCache) *SequenceApplier {
	return &SequenceApplier{movements: movements, addresses: addresses, cache: cache}
}

// ApplyTransaction applies every parsed movement produced for one
// transaction, in order, advancing *sequence as it goes, and persists
// the result immediately: movements batch-inserted first, then every
// touched address, independently (spec.md §4.4's crash-critical
// persistence order — the caller writes the enclosing Block record
// only once every transaction in the height has gone through this
// path).
func (a *SequenceApplier) ApplyTransaction(ctx context.Context, parsed []carvertypes.ParsedMovement, sequence *int64, blockHeight int64, when time.Time) error {
	if len(parsed) == 0 {
		return nil
	}

	updated := make(map[string]*carvertypes.CarverAddress, len(parsed)*2)
	seed := func(label string, attached *carvertypes.CarverAddress) *carvertypes.CarverAddress {
		if addr, ok := updated[label]; ok {
			return addr
		}
		addr := attached.Clone()
		updated[label] = addr
		return addr
	}

	movements := make([]*carvertypes.CarverMovement, 0, len(parsed))

	for _, pm := range parsed {
		*sequence++
		seq := *sequence

		from := seed(pm.Required.FromLabel, pm.From)
		to := from
		if pm.Required.ToLabel != pm.Required.FromLabel {
			to = seed(pm.Required.ToLabel, pm.To)
		}

		if from.Sequence >= seq {
			return carvererr.Reconciliation("movement %d (%s): from %q already at sequence %d", seq, pm.Required.Type, from.Label, from.Sequence)
		}
		if to.Label != from.Label && to.Sequence >= seq {
			return carvererr.Reconciliation("movement %d (%s): to %q already at sequence %d", seq, pm.Required.Type, to.Label, to.Sequence)
		}

		amount := pm.Required.Amount
		fromBalanceBefore := from.Balance
		toBalanceBefore := to.Balance
		prevFromMovement := from.LastMovement
		prevToMovement := to.LastMovement

		from.Balance -= amount
		from.ValueOut += amount
		from.CountOut++

		to.Balance += amount
		to.ValueIn += amount
		to.CountIn++

		applyCategoryCounters(to, pm.Required.Type, amount)

		from.Sequence = seq
		from.LastMovement = seq
		from.BlockHeight = blockHeightOrExisting(from.BlockHeight, blockHeight)
		to.Sequence = seq
		to.LastMovement = seq
		to.BlockHeight = blockHeightOrExisting(to.BlockHeight, blockHeight)

		if pm.Required.Type == carvertypes.MovementTxToPosAddress {
			to.PosRewardMovement = seq
		}
		if pm.Required.Type == carvertypes.MovementTxToMnAddress {
			to.MnRewardMovement = seq
		}

		movement := &carvertypes.CarverMovement{
			Sequence:         seq,
			Label:            string(pm.Required.Type),
			Amount:           amount,
			Date:             when,
			BlockHeight:      blockHeight,
			From:             from.Label,
			To:               to.Label,
			DestAddress:      pm.Required.DestAddress,
			FromBalance:      fromBalanceBefore,
			ToBalance:        toBalanceBefore,
			MovementType:     pm.Required.Type,
			LastFromMovement: prevFromMovement,
			LastToMovement:   prevToMovement,
		}
		setContext(movement, from, to)

		if pm.Required.Type == carvertypes.MovementPosRewardToTx {
			movement.PosRewardAmount = amount
			movement.PosInputAmount = pm.Required.PosInputAmount
			movement.PosInputBlockHeightDiff = pm.Required.PosInputBlockHeightDiff
		}

		movements = append(movements, movement)
	}

	if err := a.movements.InsertMany(ctx, movements); err != nil {
		return carvererr.Store(err, "inserting %d movements at height %d", len(movements), blockHeight)
	}

	touched := make([]*carvertypes.CarverAddress, 0, len(updated))
	for _, addr := range updated {
		touched = append(touched, addr)
	}
	if err := a.addresses.UpsertMany(ctx, touched); err != nil {
		return carvererr.Store(err, "saving %d addresses at height %d", len(touched), blockHeight)
	}
	for _, addr := range touched {
		a.cache.Put(addr)
	}
	return nil
}

// blockHeightOrExisting preserves an address's original creation
// height: only a brand-new record (height 0, sequence not yet set)
// takes on the current block's height.
func blockHeightOrExisting(existing, current int64) int64 {
	if existing != 0 {
		return existing
	}
	return current
}

func applyCategoryCounters(to *carvertypes.CarverAddress, mtype carvertypes.MovementType, amount int64) {
	switch mtype {
	case carvertypes.MovementPowAddressReward:
		to.PowCountIn++
		to.PowValueIn += amount
	case carvertypes.MovementTxToPosAddress:
		to.PosCountIn++
		to.PosValueIn += amount
	case carvertypes.MovementTxToMnAddress:
		to.MnCountIn++
		to.MnValueIn += amount
	}
}

// setContext assigns context_tx/context_address: whichever endpoint is
// a Tx pseudo-address is the context tx, the other the context
// address (spec.md §3).
func setContext(m *carvertypes.CarverMovement, from, to *carvertypes.CarverAddress) {
	switch {
	case from.Kind == carvertypes.KindTx:
		m.ContextTx = from.Label
		m.ContextAddress = to.Label
	case to.Kind == carvertypes.KindTx:
		m.ContextTx = to.Label
		m.ContextAddress = from.Label
	}
}

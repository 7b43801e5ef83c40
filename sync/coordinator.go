// Package sync drives the carver engine end to end: startup, crash
// recovery, confirmation, and the per-height ingest loop (spec.md
// §4.7). It is the only package that knows how carver, store,
// rpcclient and lockmgr fit together.
package sync

import (
	"context"
	"math/rand"
	"time"

	"github.com/pkg/errors"

	"github.com/5G-Cash/bulwark-explorer/addressparser"
	"github.com/5G-Cash/bulwark-explorer/carver"
	"github.com/5G-Cash/bulwark-explorer/carvererr"
	"github.com/5G-Cash/bulwark-explorer/carvertypes"
	"github.com/5G-Cash/bulwark-explorer/healthserver"
	"github.com/5G-Cash/bulwark-explorer/logger"
	"github.com/5G-Cash/bulwark-explorer/rpcclient"
	"github.com/5G-Cash/bulwark-explorer/store"
)

var log = logger.Logger(logger.SubsystemTags.SYNC)

// blockLockName is the single named resource every engine instance on
// a chain contends for (spec.md §4.7 step 1).
const blockLockName = "block"

// Locker is the subset of lockmgr.Manager the coordinator needs.
type Locker interface {
	Lock(name string) error
	Unlock(name string) error
}

// Coordinator wires the carver engine's components together and owns
// the top-level sync sequence.
type Coordinator struct {
	store    store.Store
	node     carver.Node
	locker   Locker
	params   addressparser.Params
	reporter *healthserver.Reporter

	blockConfirmations int64
	addressCacheLimit  int

	// devRandomRollback, when non-zero, injects a rollback to a random
	// earlier height with the given probability after every block —
	// spec.md §9's self-test open question, wired only behind the
	// config.DevInjectRandomRollback flag (itself gated to dev builds).
	devRandomRollback float64
}

// Config collects everything the coordinator needs that isn't a
// collaborator object.
type Config struct {
	BlockConfirmations      int64
	AddressCacheLimit       int
	Params                  addressparser.Params
	DevInjectRandomRollback bool

	// Reporter, if non-nil, is updated after every height so
	// healthserver can answer /healthz without touching the store.
	Reporter *healthserver.Reporter
}

// New creates a Coordinator over store s, node n and lock manager l.
func New(s store.Store, n carver.Node, l Locker, cfg Config) *Coordinator {
	c := &Coordinator{
		store:              s,
		node:               n,
		locker:             l,
		params:             cfg.Params,
		reporter:           cfg.Reporter,
		blockConfirmations: cfg.BlockConfirmations,
		addressCacheLimit:  cfg.AddressCacheLimit,
	}
	if cfg.DevInjectRandomRollback {
		c.devRandomRollback = 0.05
	}
	return c
}

// Run executes the full startup sequence and, absent an admin-mode
// positional argument, the sync loop to the node's tip.
//
//   1. Acquire the named lock.
//   2. Optional admin mode: unwind to undoHeight, release lock, return.
//   3. Query the node tip (or use forceRPCHeight if set).
//   4. Run the Confirmer.
//   5. Crash recovery.
//   6. Sync loop.
//
// The lock is released on every exit path.
func (c *Coordinator) Run(ctx context.Context, undoHeight, forceRPCHeight *int64) error {
	if err := c.locker.Lock(blockLockName); err != nil {
		return errors.Wrap(err, "acquiring block lock")
	}
	defer func() {
		if err := c.locker.Unlock(blockLockName); err != nil {
			log.Warnf("releasing block lock: %s", err)
		}
	}()

	cache := carver.NewAddressCache(c.store.Addresses(), c.addressCacheLimit)
	unwinder := carver.NewUnwinder(c.store.Blocks(), c.store.Movements(), c.store.Addresses(), cache)

	if undoHeight != nil {
		log.Infof("admin mode: unwinding to height %d", *undoHeight)
		return unwinder.Unwind(ctx, *undoHeight)
	}

	tip, err := c.resolveTip(forceRPCHeight)
	if err != nil {
		return err
	}
	log.Infof("node tip is %d", tip)

	confirmer := carver.NewConfirmer(c.store.Blocks(), c.node, unwinder, c.blockConfirmations)
	if err := confirmer.Run(ctx); err != nil {
		return errors.Wrap(err, "confirming stored blocks")
	}

	sequence, err := c.recoverFromCrash(ctx, unwinder)
	if err != nil {
		return errors.Wrap(err, "crash recovery")
	}

	builder := carver.NewMovementBuilder(cache, c.params)
	applier := carver.NewSequenceApplier(c.store.Movements(), c.store.Addresses(), cache)

	dbTip, err := c.currentHeight(ctx)
	if err != nil {
		return err
	}

	for height := dbTip + 1; height <= tip; {
		next, err := c.syncHeight(ctx, height, &sequence, cache, builder, applier, unwinder)
		if err != nil {
			if c.reporter != nil {
				c.reporter.ReportError(err)
			}
			return err
		}
		if c.reporter != nil {
			c.reporter.ReportSynced(next - 1)
		}
		height = next
	}
	return nil
}

// resolveTip returns forceRPCHeight if set, otherwise queries the
// node's own tip.
func (c *Coordinator) resolveTip(forceRPCHeight *int64) (int64, error) {
	if forceRPCHeight != nil {
		return *forceRPCHeight, nil
	}
	info, err := c.node.GetInfo()
	if err != nil {
		return 0, carvererr.RPC(err, "querying node tip")
	}
	return info.Blocks, nil
}

// currentHeight returns the highest height stored, or 0 if empty.
func (c *Coordinator) currentHeight(ctx context.Context) (int64, error) {
	last, err := c.store.Blocks().Last(ctx)
	if err != nil {
		return 0, carvererr.Store(err, "loading last stored block")
	}
	if last == nil {
		return 0, nil
	}
	return last.Height, nil
}

// recoverFromCrash implements spec.md §4.7 step 5: if either the
// movement or address log has advanced past the last committed
// block's sequence_end, a prior run died mid-height; unwind it. It
// returns the sequence counter the sync loop should resume from.
func (c *Coordinator) recoverFromCrash(ctx context.Context, unwinder *carver.Unwinder) (int64, error) {
	last, err := c.store.Blocks().Last(ctx)
	if err != nil {
		return 0, carvererr.Store(err, "loading last stored block")
	}
	if last == nil {
		if err := unwinder.Unwind(ctx, 0); err != nil {
			return 0, err
		}
		return 0, nil
	}

	maxMovementSeq, err := c.store.Movements().MaxSequence(ctx)
	if err != nil {
		return 0, carvererr.Store(err, "loading max movement sequence")
	}
	maxAddressSeq, err := c.store.Addresses().MaxSequence(ctx)
	if err != nil {
		return 0, carvererr.Store(err, "loading max address sequence")
	}

	if maxMovementSeq > last.SequenceEnd || maxAddressSeq > last.SequenceEnd {
		log.Warnf("partial write detected past block %d (movements=%d addresses=%d sequence_end=%d); unwinding",
			last.Height, maxMovementSeq, maxAddressSeq, last.SequenceEnd)
		if err := unwinder.Unwind(ctx, last.Height+1); err != nil {
			return 0, err
		}
	}
	return last.SequenceEnd, nil
}

// syncHeight ingests a single height: fetch, resolve, build, apply,
// commit. It returns the height the caller should process next —
// ordinarily height+1, but one past whatever earlier height a dev
// self-test rollback landed on, so the loop never leaves a gap in the
// store's dense height sequence.
func (c *Coordinator) syncHeight(
	ctx context.Context,
	height int64,
	sequence *int64,
	cache *carver.AddressCache,
	builder *carver.MovementBuilder,
	applier *carver.SequenceApplier,
	unwinder *carver.Unwinder,
) (int64, error) {
	sequenceStart := *sequence

	hash, err := c.node.GetBlockHash(height)
	if err != nil {
		return 0, carvererr.RPC(err, "fetching hash for height %d", height)
	}
	block, err := c.node.GetBlock(hash)
	if err != nil {
		return 0, carvererr.RPC(err, "fetching block %d", height)
	}

	resolver := carver.NewUtxoResolver(c.node, c.params)
	txs := make([]*rpcclient.RawTransactionResult, 0, len(block.Tx))
	var vinsCount, voutsCount int

	for _, txID := range block.Tx {
		tx, err := c.node.GetRawTransaction(txID)
		if err != nil {
			return 0, carvererr.RPC(err, "fetching transaction %s", txID)
		}
		txs = append(txs, tx)
		vinsCount += len(tx.Vin)
		voutsCount += len(tx.Vout)
		resolver.IndexTransaction(tx, height)
	}

	for _, tx := range txs {
		resolved := make([]carver.ResolvedInput, 0, len(tx.Vin))
		for _, vin := range tx.Vin {
			out, err := resolver.Resolve(vin)
			if err != nil {
				return 0, err
			}
			resolved = append(resolved, carver.ResolvedInput{Vin: vin, Output: out})
		}

		required, err := builder.BuildRequired(tx, resolved, height)
		if err != nil {
			return 0, err
		}
		if len(required) == 0 {
			continue
		}

		parsed, err := builder.Parse(ctx, required)
		if err != nil {
			return 0, err
		}

		when := time.Unix(block.Time, 0).UTC()
		if err := applier.ApplyTransaction(ctx, parsed, sequence, height, when); err != nil {
			return 0, err
		}
	}

	blockRecord := &carvertypes.Block{
		Height:                height,
		Hash:                  block.Hash,
		PrevHash:              block.PreviousBlockHash,
		MerkleRoot:            block.MerkleRoot,
		Bits:                  parseBits(block.Bits),
		Nonce:                 block.Nonce,
		Difficulty:            block.Difficulty,
		Size:                  block.Size,
		Version:               block.Version,
		ConfirmationsAtIngest: block.Confirmations,
		CreatedAt:             time.Unix(block.Time, 0).UTC(),
		VinsCount:             vinsCount,
		VoutsCount:            voutsCount,
		SequenceStart:         sequenceStart,
		SequenceEnd:           *sequence,
		IsConfirmed:           false,
	}
	if err := c.store.Blocks().Insert(ctx, blockRecord); err != nil {
		return 0, carvererr.Store(err, "writing block %d", height)
	}

	if c.devRandomRollback > 0 && height > 1 && rand.Float64() < c.devRandomRollback {
		target := int64(1) + rand.Int63n(height-1)
		log.Warnf("dev self-test: injecting rollback to height %d", target)
		if err := unwinder.Unwind(ctx, target); err != nil {
			return 0, err
		}
		*sequence = sequenceBeforeHeight(ctx, c.store, target)
		return target, nil
	}
	return height + 1, nil
}

func sequenceBeforeHeight(ctx context.Context, s store.Store, height int64) int64 {
	prev, err := s.Blocks().ByHeight(ctx, height-1)
	if err != nil || prev == nil {
		return 0
	}
	return prev.SequenceEnd
}

func parseBits(bits string) uint32 {
	var v uint32
	for i := 0; i < len(bits); i++ {
		c := bits[i]
		var d uint32
		switch {
		case c >= '0' && c <= '9':
			d = uint32(c - '0')
		case c >= 'a' && c <= 'f':
			d = uint32(c-'a') + 10
		case c >= 'A' && c <= 'F':
			d = uint32(c-'A') + 10
		default:
			continue
		}
		v = v*16 + d
	}
	return v
}

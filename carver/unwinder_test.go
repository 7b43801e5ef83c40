package carver

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/5G-Cash/bulwark-explorer/addressparser"
	"github.com/5G-Cash/bulwark-explorer/carvertypes"
	"github.com/5G-Cash/bulwark-explorer/store"
	"github.com/5G-Cash/bulwark-explorer/store/storetest"
)

// applyCoinbaseHeight applies a one-movement-pair coinbase block at the
// given height, advancing sequence and inserting a Block record, the
// way sync.Coordinator.syncHeight would.
func applyCoinbaseHeight(ctx context.Context, t *testing.T, st store.Store, cache *AddressCache, applier *SequenceApplier, height int64, amount int64, payee string) {
	t.Helper()
	builder := NewMovementBuilder(cache, addressparser.MainNetParams)
	txLabel := TxLabel(fmt.Sprintf("%s-coinbase-%d", payee, height))
	required := []carvertypes.RequiredMovement{
		{FromLabel: carvertypes.LabelCoinbase, ToLabel: txLabel, Amount: amount, Type: carvertypes.MovementCoinbaseToTx},
		{FromLabel: txLabel, ToLabel: payee, Amount: amount, Type: carvertypes.MovementTxToAddress},
	}
	parsed, err := builder.Parse(ctx, required)
	if err != nil {
		t.Fatalf("Parse: %s", err)
	}

	sequenceBefore, err := st.Addresses().MaxSequence(ctx)
	if err != nil {
		t.Fatalf("MaxSequence: %s", err)
	}
	seq := sequenceBefore
	if err := applier.ApplyTransaction(ctx, parsed, &seq, height, time.Unix(0, 0)); err != nil {
		t.Fatalf("ApplyTransaction at height %d: %s", height, err)
	}

	if err := st.Blocks().Insert(ctx, &store.Block{
		Height:        height,
		Hash:          "hash",
		SequenceStart: sequenceBefore,
		SequenceEnd:   seq,
	}); err != nil {
		t.Fatalf("Insert block %d: %s", height, err)
	}
}

func TestUnwindReversesBalancesAndSequence(t *testing.T) {
	ctx := context.Background()
	st := storetest.New()
	cache := NewAddressCache(st.Addresses(), 0)
	applier := NewSequenceApplier(st.Movements(), st.Addresses(), cache)

	applyCoinbaseHeight(ctx, t, st, cache, applier, 1, 100, "BAlice")
	applyCoinbaseHeight(ctx, t, st, cache, applier, 2, 200, "BBob")

	unwinder := NewUnwinder(st.Blocks(), st.Movements(), st.Addresses(), cache)
	if err := unwinder.Unwind(ctx, 2); err != nil {
		t.Fatalf("Unwind: %s", err)
	}

	bob, err := st.Addresses().ByLabel(ctx, "BBob")
	if err != nil {
		t.Fatalf("ByLabel(BBob): %s", err)
	}
	if bob != nil && bob.Balance != 0 {
		t.Errorf("BBob.Balance = %d after unwind, want 0 (or record absent)", bob.Balance)
	}

	alice, err := st.Addresses().ByLabel(ctx, "BAlice")
	if err != nil || alice == nil {
		t.Fatalf("ByLabel(BAlice): %v, %v", alice, err)
	}
	if alice.Balance != 100 {
		t.Errorf("BAlice.Balance = %d after unwinding height 2, want 100 (untouched)", alice.Balance)
	}

	last, err := st.Blocks().Last(ctx)
	if err != nil {
		t.Fatalf("Last: %s", err)
	}
	if last == nil || last.Height != 1 {
		t.Fatalf("last stored block = %+v, want height 1", last)
	}

	maxMovementSeq, err := st.Movements().MaxSequence(ctx)
	if err != nil {
		t.Fatalf("MaxSequence: %s", err)
	}
	if maxMovementSeq != 2 {
		t.Errorf("max movement sequence after unwind = %d, want 2 (height 1's two movements)", maxMovementSeq)
	}
}

func TestUnwindToZeroClearsEverything(t *testing.T) {
	ctx := context.Background()
	st := storetest.New()
	cache := NewAddressCache(st.Addresses(), 0)
	applier := NewSequenceApplier(st.Movements(), st.Addresses(), cache)

	applyCoinbaseHeight(ctx, t, st, cache, applier, 1, 100, "BAlice")

	unwinder := NewUnwinder(st.Blocks(), st.Movements(), st.Addresses(), cache)
	if err := unwinder.Unwind(ctx, 0); err != nil {
		t.Fatalf("Unwind: %s", err)
	}

	last, err := st.Blocks().Last(ctx)
	if err != nil {
		t.Fatalf("Last: %s", err)
	}
	if last != nil {
		t.Errorf("expected no stored blocks after unwinding to 0, got %+v", last)
	}

	maxSeq, err := st.Movements().MaxSequence(ctx)
	if err != nil {
		t.Fatalf("MaxSequence: %s", err)
	}
	if maxSeq != 0 {
		t.Errorf("max movement sequence after full unwind = %d, want 0", maxSeq)
	}
}

func TestUnwindDeepBatchedRollback(t *testing.T) {
	ctx := context.Background()
	st := storetest.New()
	cache := NewAddressCache(st.Addresses(), 0)
	applier := NewSequenceApplier(st.Movements(), st.Addresses(), cache)

	const heights = 1200
	for h := int64(1); h <= heights; h++ {
		applyCoinbaseHeight(ctx, t, st, cache, applier, h, 10, "BMiner")
	}

	maxBefore, err := st.Movements().MaxSequence(ctx)
	if err != nil {
		t.Fatalf("MaxSequence: %s", err)
	}
	if maxBefore != heights*2 {
		t.Fatalf("max sequence before unwind = %d, want %d", maxBefore, heights*2)
	}

	unwinder := NewUnwinder(st.Blocks(), st.Movements(), st.Addresses(), cache)
	if err := unwinder.Unwind(ctx, 1); err != nil {
		t.Fatalf("Unwind: %s", err)
	}

	maxAfter, err := st.Movements().MaxSequence(ctx)
	if err != nil {
		t.Fatalf("MaxSequence: %s", err)
	}
	if maxAfter != 0 {
		t.Errorf("max sequence after unwinding every height = %d, want 0", maxAfter)
	}

	last, err := st.Blocks().Last(ctx)
	if err != nil {
		t.Fatalf("Last: %s", err)
	}
	if last != nil {
		t.Errorf("expected no stored blocks, got %+v", last)
	}
}

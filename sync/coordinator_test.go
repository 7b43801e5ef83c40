package sync

import (
	"context"
	"testing"

	"github.com/5G-Cash/bulwark-explorer/addressparser"
	"github.com/5G-Cash/bulwark-explorer/rpcclient"
	"github.com/5G-Cash/bulwark-explorer/store"
	"github.com/5G-Cash/bulwark-explorer/store/storetest"
)

// fakeLocker is an in-process Locker double; it never actually blocks,
// since no test in this package exercises cross-process contention.
type fakeLocker struct {
	locked map[string]bool
}

func newFakeLocker() *fakeLocker { return &fakeLocker{locked: make(map[string]bool)} }

func (l *fakeLocker) Lock(name string) error {
	if l.locked[name] {
		return errAlreadyLocked
	}
	l.locked[name] = true
	return nil
}

func (l *fakeLocker) Unlock(name string) error {
	delete(l.locked, name)
	return nil
}

type lockErr string

func (e lockErr) Error() string { return string(e) }

const errAlreadyLocked = lockErr("already locked")

// fakeNode is a scripted carver.Node double keyed by height, built from
// a small in-memory chain of blocks and their transactions.
type fakeNode struct {
	tip          int64
	hashByHeight map[int64]string
	blockByHash  map[string]*rpcclient.BlockResult
	txByID       map[string]*rpcclient.RawTransactionResult
}

func newFakeNode() *fakeNode {
	return &fakeNode{
		hashByHeight: make(map[int64]string),
		blockByHash:  make(map[string]*rpcclient.BlockResult),
		txByID:       make(map[string]*rpcclient.RawTransactionResult),
	}
}

// addCoinbaseBlock registers a height whose sole transaction is a
// coinbase paying amount (in whole coins) to address.
func (n *fakeNode) addCoinbaseBlock(height int64, hash string, address string, amount float64) {
	txID := hash + "-cb"
	n.hashByHeight[height] = hash
	n.blockByHash[hash] = &rpcclient.BlockResult{
		Height:     height,
		Hash:       hash,
		MerkleRoot: "root-" + hash,
		Tx:         []string{txID},
		Bits:       "1d00ffff",
	}
	n.txByID[txID] = &rpcclient.RawTransactionResult{
		TxID: txID,
		Vin:  []rpcclient.RawTransactionVin{{Coinbase: "01"}},
		Vout: []rpcclient.RawTransactionVout{{
			Value: amount,
			N:     0,
			ScriptPubKey: rpcclient.RawTransactionScriptPubKey{
				Type:      "pubkeyhash",
				Addresses: []string{address},
			},
		}},
	}
	if height > n.tip {
		n.tip = height
	}
}

func (n *fakeNode) GetInfo() (*rpcclient.GetInfoResult, error) {
	return &rpcclient.GetInfoResult{Blocks: n.tip}, nil
}

func (n *fakeNode) GetBlockHash(height int64) (string, error) {
	hash, ok := n.hashByHeight[height]
	if !ok {
		panic("unexpected GetBlockHash call for height")
	}
	return hash, nil
}

func (n *fakeNode) GetBlock(hash string) (*rpcclient.BlockResult, error) {
	b, ok := n.blockByHash[hash]
	if !ok {
		panic("unexpected GetBlock call for " + hash)
	}
	return b, nil
}

func (n *fakeNode) GetRawTransaction(txID string) (*rpcclient.RawTransactionResult, error) {
	tx, ok := n.txByID[txID]
	if !ok {
		panic("unexpected GetRawTransaction call for " + txID)
	}
	return tx, nil
}

func newTestCoordinator(st store.Store, node *fakeNode) *Coordinator {
	return New(st, node, newFakeLocker(), Config{
		BlockConfirmations: 1,
		AddressCacheLimit:  0,
		Params:             addressparser.MainNetParams,
	})
}

func TestRunSyncsEmptyChainToNoOp(t *testing.T) {
	ctx := context.Background()
	st := storetest.New()
	node := newFakeNode()

	c := newTestCoordinator(st, node)
	if err := c.Run(ctx, nil, nil); err != nil {
		t.Fatalf("Run: %s", err)
	}

	last, err := st.Blocks().Last(ctx)
	if err != nil {
		t.Fatalf("Last: %s", err)
	}
	if last != nil {
		t.Errorf("expected no stored blocks for an empty chain, got %+v", last)
	}
}

func TestRunSyncsSingleCoinbaseBlock(t *testing.T) {
	ctx := context.Background()
	st := storetest.New()
	node := newFakeNode()
	node.addCoinbaseBlock(1, "hash1", "BMiner", 50)

	c := newTestCoordinator(st, node)
	if err := c.Run(ctx, nil, nil); err != nil {
		t.Fatalf("Run: %s", err)
	}

	last, err := st.Blocks().Last(ctx)
	if err != nil {
		t.Fatalf("Last: %s", err)
	}
	if last == nil || last.Height != 1 {
		t.Fatalf("last stored block = %+v, want height 1", last)
	}

	miner, err := st.Addresses().ByLabel(ctx, "BMiner")
	if err != nil || miner == nil {
		t.Fatalf("ByLabel(BMiner): %v, %v", miner, err)
	}
	if miner.Balance != 5000000000 {
		t.Errorf("BMiner.Balance = %d, want 5000000000", miner.Balance)
	}
}

func TestRunAdminModeUnwindsAndReturns(t *testing.T) {
	ctx := context.Background()
	st := storetest.New()
	node := newFakeNode()
	node.addCoinbaseBlock(1, "hash1", "BMiner", 50)
	node.addCoinbaseBlock(2, "hash2", "BMiner", 50)

	c := newTestCoordinator(st, node)
	if err := c.Run(ctx, nil, nil); err != nil {
		t.Fatalf("initial Run: %s", err)
	}

	undo := int64(2)
	c2 := newTestCoordinator(st, node)
	if err := c2.Run(ctx, &undo, nil); err != nil {
		t.Fatalf("admin-mode Run: %s", err)
	}

	last, err := st.Blocks().Last(ctx)
	if err != nil {
		t.Fatalf("Last: %s", err)
	}
	if last == nil || last.Height != 1 {
		t.Fatalf("last stored block after undo to height 2 = %+v, want height 1 (only height 2 removed)", last)
	}
}

func TestRunRecoversFromPartialWriteCrash(t *testing.T) {
	ctx := context.Background()
	st := storetest.New()
	node := newFakeNode()
	node.addCoinbaseBlock(1, "hash1", "BMiner", 50)

	// Simulate a crash mid-height-2: movements/addresses advanced past
	// height 1's committed sequence_end, but no block 2 was ever
	// written.
	c := newTestCoordinator(st, node)
	if err := c.Run(ctx, nil, nil); err != nil {
		t.Fatalf("initial Run: %s", err)
	}

	if err := st.Addresses().Upsert(ctx, &store.Address{Label: "BDangling", Sequence: 99, BlockHeight: 2}); err != nil {
		t.Fatalf("Upsert dangling address: %s", err)
	}

	node.addCoinbaseBlock(2, "hash2", "BBob", 10)
	c2 := newTestCoordinator(st, node)
	if err := c2.Run(ctx, nil, nil); err != nil {
		t.Fatalf("recovery Run: %s", err)
	}

	dangling, err := st.Addresses().ByLabel(ctx, "BDangling")
	if err != nil {
		t.Fatalf("ByLabel(BDangling): %s", err)
	}
	if dangling != nil {
		t.Errorf("expected the dangling partial-write address to be unwound, got %+v", dangling)
	}

	last, err := st.Blocks().Last(ctx)
	if err != nil {
		t.Fatalf("Last: %s", err)
	}
	if last == nil || last.Height != 2 {
		t.Fatalf("last stored block after recovery+resync = %+v, want height 2", last)
	}
}

package carver

import (
	"testing"

	"github.com/5G-Cash/bulwark-explorer/addressparser"
	"github.com/5G-Cash/bulwark-explorer/carvertypes"
	"github.com/5G-Cash/bulwark-explorer/rpcclient"
)

// fakeNode is a minimal Node double for tests that only need
// GetRawTransaction; the other methods panic if called, so an
// accidental RPC in a resolver test fails loudly instead of silently
// returning a zero value.
type fakeNode struct {
	txsByID map[string]*rpcclient.RawTransactionResult
}

func newFakeNode() *fakeNode {
	return &fakeNode{txsByID: make(map[string]*rpcclient.RawTransactionResult)}
}

func (n *fakeNode) GetInfo() (*rpcclient.GetInfoResult, error) { panic("not implemented") }
func (n *fakeNode) GetBlockHash(height int64) (string, error)  { panic("not implemented") }
func (n *fakeNode) GetBlock(hash string) (*rpcclient.BlockResult, error) {
	panic("not implemented")
}

func (n *fakeNode) GetRawTransaction(txID string) (*rpcclient.RawTransactionResult, error) {
	tx, ok := n.txsByID[txID]
	if !ok {
		panic("unexpected GetRawTransaction call for " + txID)
	}
	return tx, nil
}

func pkhVout(n int, value float64, address string) rpcclient.RawTransactionVout {
	return rpcclient.RawTransactionVout{
		Value: value,
		N:     n,
		ScriptPubKey: rpcclient.RawTransactionScriptPubKey{
			Type:      "pubkeyhash",
			Addresses: []string{address},
		},
	}
}

func TestUtxoResolverCoinbaseInline(t *testing.T) {
	r := NewUtxoResolver(newFakeNode(), addressparser.MainNetParams)
	out, err := r.Resolve(rpcclient.RawTransactionVin{Coinbase: "01"})
	if err != nil {
		t.Fatalf("Resolve: %s", err)
	}
	if out.Label != carvertypes.LabelCoinbase || out.Kind != carvertypes.KindCoinbase {
		t.Errorf("got (%q, %q), want (%q, %q)", out.Label, out.Kind, carvertypes.LabelCoinbase, carvertypes.KindCoinbase)
	}
}

func TestUtxoResolverZerocoinSpendInline(t *testing.T) {
	r := NewUtxoResolver(newFakeNode(), addressparser.MainNetParams)
	out, err := r.Resolve(rpcclient.RawTransactionVin{ZeroCoinSpend: "deadbeef", Value: 1.5})
	if err != nil {
		t.Fatalf("Resolve: %s", err)
	}
	if out.Label != carvertypes.LabelZerocoin || out.Kind != carvertypes.KindZerocoin {
		t.Errorf("got (%q, %q), want (%q, %q)", out.Label, out.Kind, carvertypes.LabelZerocoin, carvertypes.KindZerocoin)
	}
	if out.Amount != 150000000 {
		t.Errorf("Amount = %d, want 150000000", out.Amount)
	}
}

func TestUtxoResolverResolvesFromSameBatch(t *testing.T) {
	r := NewUtxoResolver(newFakeNode(), addressparser.MainNetParams)
	tx := &rpcclient.RawTransactionResult{
		TxID: "prev",
		Vout: []rpcclient.RawTransactionVout{pkhVout(0, 1.0, "BAddr1")},
	}
	r.IndexTransaction(tx, 100)

	out, err := r.Resolve(rpcclient.RawTransactionVin{TxID: "prev", Vout: 0})
	if err != nil {
		t.Fatalf("Resolve: %s", err)
	}
	if out.Label != "BAddr1" || out.Amount != 100000000 || out.BlockHeight != 100 {
		t.Errorf("got %+v, want label BAddr1, amount 100000000, height 100", out)
	}
}

func TestUtxoResolverFallsBackToNode(t *testing.T) {
	node := newFakeNode()
	node.txsByID["prev"] = &rpcclient.RawTransactionResult{
		TxID:        "prev",
		BlockHeight: 42,
		Vout:        []rpcclient.RawTransactionVout{pkhVout(0, 2.0, "BAddr2")},
	}
	r := NewUtxoResolver(node, addressparser.MainNetParams)

	out, err := r.Resolve(rpcclient.RawTransactionVin{TxID: "prev", Vout: 0})
	if err != nil {
		t.Fatalf("Resolve: %s", err)
	}
	if out.Label != "BAddr2" || out.Amount != 200000000 || out.BlockHeight != 42 {
		t.Errorf("got %+v, want label BAddr2, amount 200000000, height 42", out)
	}
}

func TestUtxoResolverMissingOutputIsDecodeError(t *testing.T) {
	node := newFakeNode()
	node.txsByID["prev"] = &rpcclient.RawTransactionResult{TxID: "prev"}
	r := NewUtxoResolver(node, addressparser.MainNetParams)

	_, err := r.Resolve(rpcclient.RawTransactionVin{TxID: "prev", Vout: 3})
	if err == nil {
		t.Fatalf("expected an error for a vout the node reply doesn't have")
	}
}

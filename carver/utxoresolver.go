package carver

import (
	"github.com/5G-Cash/bulwark-explorer/addressparser"
	"github.com/5G-Cash/bulwark-explorer/carvererr"
	"github.com/5G-Cash/bulwark-explorer/carvertypes"
	"github.com/5G-Cash/bulwark-explorer/rpcclient"
)

// outpoint identifies one previous transaction output.
type outpoint struct {
	txID string
	vout uint32
}

// ResolvedOutput is what UtxoResolver hands back for a spent output:
// enough to classify and credit whoever produced it.
type ResolvedOutput struct {
	Label       string
	Kind        carvertypes.AddressKind
	Amount      int64
	BlockHeight int64
}

// UtxoResolver answers "who owned the value this input spends, and how
// much was it" (spec.md §4.2). It tries the current sync batch first —
// a transaction may spend an output created earlier in the very same
// block — and only falls back to the node when the spend crosses a
// batch boundary.
type UtxoResolver struct {
	node   Node
	params addressparser.Params
	batch  map[outpoint]*ResolvedOutput
}

// NewUtxoResolver creates a resolver bound to one sync batch. Callers
// must IndexTransaction every transaction as they encounter it, in
// block order, before resolving later transactions' inputs.
func NewUtxoResolver(node Node, params addressparser.Params) *UtxoResolver {
	return &UtxoResolver{
		node:   node,
		params: params,
		batch:  make(map[outpoint]*ResolvedOutput),
	}
}

// IndexTransaction registers tx's own outputs so later same-batch
// spends resolve without a round trip to the node.
func (r *UtxoResolver) IndexTransaction(tx *rpcclient.RawTransactionResult, blockHeight int64) {
	for _, vout := range tx.Vout {
		label, kind := addressparser.ClassifyOutput(toParserVout(vout), r.params)
		r.batch[outpoint{txID: tx.TxID, vout: uint32(vout.N)}] = &ResolvedOutput{
			Label:       label,
			Kind:        kind,
			Amount:      rpcclient.ToSatoshi(vout.Value),
			BlockHeight: blockHeight,
		}
	}
}

// Resolve answers what vin spends. Coinbase and zerocoin-spend inputs
// carry everything the resolver needs inline and never touch the
// store or the node.
func (r *UtxoResolver) Resolve(vin rpcclient.RawTransactionVin) (*ResolvedOutput, error) {
	if label, kind, ok := addressparser.ClassifyVin(addressparser.Vin{
		TxID: vin.TxID, Vout: vin.Vout, Coinbase: vin.Coinbase,
	}); ok {
		return &ResolvedOutput{Label: label, Kind: kind}, nil
	}
	if vin.ZeroCoinSpend != "" {
		return &ResolvedOutput{
			Label:  carvertypes.LabelZerocoin,
			Kind:   carvertypes.KindZerocoin,
			Amount: rpcclient.ToSatoshi(vin.Value),
		}, nil
	}

	key := outpoint{txID: vin.TxID, vout: vin.Vout}
	if out, ok := r.batch[key]; ok {
		return out, nil
	}

	prevTx, err := r.node.GetRawTransaction(vin.TxID)
	if err != nil {
		return nil, carvererr.RPC(err, "resolving prior output %s:%d", vin.TxID, vin.Vout)
	}
	for _, vout := range prevTx.Vout {
		if uint32(vout.N) != vin.Vout {
			continue
		}
		label, kind := addressparser.ClassifyOutput(toParserVout(vout), r.params)
		return &ResolvedOutput{
			Label:       label,
			Kind:        kind,
			Amount:      rpcclient.ToSatoshi(vout.Value),
			BlockHeight: prevTx.BlockHeight,
		}, nil
	}
	return nil, carvererr.Decode(nil, "prior output %s:%d not found in node reply", vin.TxID, vin.Vout)
}

func toParserVout(v rpcclient.RawTransactionVout) addressparser.Vout {
	return addressparser.Vout{
		Value:        rpcclient.ToSatoshi(v.Value),
		N:            v.N,
		ScriptPubKey: v.ScriptPubKey.Hex,
		Type:         v.ScriptPubKey.Type,
		Addresses:    v.ScriptPubKey.Addresses,
	}
}

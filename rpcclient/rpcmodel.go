package rpcclient

// GetInfoResult is the reply to getinfo, trimmed to the one field
// carversync needs: the node's current tip height (spec.md §6).
type GetInfoResult struct {
	Blocks int64 `json:"blocks"`
}

// BlockResult is the reply to getblock, trimmed to spec.md §6's field
// list.
type BlockResult struct {
	Height            int64    `json:"height"`
	Hash              string   `json:"hash"`
	PreviousBlockHash string   `json:"previousblockhash"`
	Time              int64    `json:"time"`
	Difficulty        float64  `json:"difficulty"`
	MerkleRoot        string   `json:"merkleroot"`
	Bits              string   `json:"bits"`
	Nonce             uint64   `json:"nonce"`
	Size              int64    `json:"size"`
	Version           int32    `json:"version"`
	Confirmations     int64    `json:"confirmations"`
	Tx                []string `json:"tx"`
}

// RawTransactionVin is one input of a getrawtransaction reply.
type RawTransactionVin struct {
	TxID     string `json:"txid"`
	Vout     uint32 `json:"vout"`
	Coinbase string `json:"coinbase"`

	// ZeroCoinSpend carries the spend's serial hex when this input
	// redeems a zerocoin mint rather than a prior transaction output;
	// the node has nothing to resolve it against, so Value is reported
	// directly instead.
	ZeroCoinSpend string  `json:"zerocoinspend,omitempty"`
	Value         float64 `json:"value,omitempty"`
}

// RawTransactionScriptPubKey is a vout's embedded script description.
type RawTransactionScriptPubKey struct {
	Hex       string   `json:"hex"`
	Type      string   `json:"type"`
	Addresses []string `json:"addresses"`
}

// RawTransactionVout is one output of a getrawtransaction reply.
type RawTransactionVout struct {
	Value        float64                    `json:"value"`
	N            int                        `json:"n"`
	ScriptPubKey RawTransactionScriptPubKey `json:"scriptPubKey"`
}

// RawTransactionResult is the reply to getrawtransaction with
// verbose=1, trimmed to spec.md §6's field list.
type RawTransactionResult struct {
	TxID string               `json:"txid"`
	Vin  []RawTransactionVin  `json:"vin"`
	Vout []RawTransactionVout `json:"vout"`

	// BlockHeight is not in spec.md §6's minimal field list but is
	// present on most btcd-family forks' verbose getrawtransaction
	// replies; the PoS reward calculation needs the staked input's
	// origin height to compute pos_input_block_height_diff, and there
	// is no other RPC that supplies it.
	BlockHeight int64 `json:"blockheight,omitempty"`
}

// Package addressparser turns a transaction's raw inputs and outputs
// into Carver labels and kinds. It is a pure function of its inputs —
// no I/O, no store, no RPC — per spec.md §1's delegation of address
// classification to "an address-parsing module".
//
// The node's getrawtransaction already does script-standardness
// detection (spec.md §6's vout.scriptPubKey.{addresses,type}), so this
// package trusts that classification where present. Zerocoin outputs
// and the PoS marker are recognized from the node's reported script
// type; the only raw-script decoding is for bare P2PKH scripts some
// older nodes leave without an address. Masternode payees are not
// recognized here.
package addressparser

import (
	"encoding/hex"

	"github.com/5G-Cash/bulwark-explorer/carvertypes"
)

// Vout is the subset of a node's getrawtransaction vout entry address
// classification needs.
type Vout struct {
	Value        int64
	N            int
	ScriptPubKey string // hex-encoded
	Type         string // node-reported standardness, e.g. "pubkeyhash"
	Addresses    []string
}

// Vin is the subset of a node's getrawtransaction vin entry address
// classification needs.
type Vin struct {
	TxID     string
	Vout     uint32
	Coinbase string // non-empty for a coinbase input
}

const (
	scriptTypePubKeyHash    = "pubkeyhash"
	scriptTypeScriptHash    = "scripthash"
	scriptTypePubKey        = "pubkey"
	scriptTypeZerocoinMint  = "zerocoinmint"
	scriptTypeZerocoinSpend = "zerocoinspend"
	scriptTypeNonStandard   = "nonstandard"
	scriptTypeNullData      = "nulldata"
)

// opcodes used by the P2PKH fallback decoder.
const (
	opDup         = 0x76
	opHash160     = 0xa9
	opEqualVerify = 0x88
	opCheckSig    = 0xac
	opPushData20  = 0x14
)

// ClassifyVin returns the label and kind for the address a transaction
// input spends from. A coinbase input always classifies to the
// COINBASE special label; every other input is classified by the
// caller from the UtxoResolver's resolved prior output instead (an
// input has no script of its own to classify — it spends one).
func ClassifyVin(vin Vin) (label string, kind carvertypes.AddressKind, isCoinbase bool) {
	if vin.Coinbase != "" {
		return carvertypes.LabelCoinbase, carvertypes.KindCoinbase, true
	}
	return "", "", false
}

// ClassifyOutput returns the Carver label and kind for a transaction
// output, given the node's own standardness annotation and the chain's
// address version bytes (used only for the fallback raw-script
// decoder).
func ClassifyOutput(vout Vout, params Params) (label string, kind carvertypes.AddressKind) {
	switch vout.Type {
	case scriptTypePubKeyHash, scriptTypePubKey, scriptTypeScriptHash:
		if len(vout.Addresses) > 0 {
			return vout.Addresses[0], carvertypes.KindAddress
		}
		if addr, ok := decodeP2PKHScript(vout.ScriptPubKey, params); ok {
			return addr, carvertypes.KindAddress
		}

	case scriptTypeZerocoinMint, scriptTypeZerocoinSpend:
		return carvertypes.LabelZerocoin, carvertypes.KindZerocoin

	case scriptTypeNullData, scriptTypeNonStandard:
		if vout.Value == 0 && vout.N == 0 {
			// Empty PoS coinbase marker: the first output of a stake
			// block's coinbase, value 0, carrying no payable script.
			// spec.md §4.3's empty-non-standard-transaction edge case
			// is this output's transaction in miniature: it produces
			// no movement of its own.
			return carvertypes.LabelPOS, carvertypes.KindProofOfStake
		}
	}

	if len(vout.Addresses) > 0 {
		return vout.Addresses[0], carvertypes.KindAddress
	}

	// spec.md §9's open question: classification coverage for
	// zerocoin and non-standard outputs is incomplete upstream too.
	// Never silently drop the value — tag it Unknown and let the
	// caller log the gap.
	return "Unknown:" + vout.Type, carvertypes.KindUnknown
}

// decodeP2PKHScript extracts a Base58Check address from a raw
// OP_DUP OP_HASH160 <20 bytes> OP_EQUALVERIFY OP_CHECKSIG script, for
// the rare node response that omits the addresses field.
func decodeP2PKHScript(scriptHex string, params Params) (string, bool) {
	script, err := hex.DecodeString(scriptHex)
	if err != nil || len(script) != 25 {
		return "", false
	}
	if script[0] != opDup || script[1] != opHash160 || script[2] != opPushData20 ||
		script[23] != opEqualVerify || script[24] != opCheckSig {
		return "", false
	}
	hash160 := script[3:23]
	return checkEncode(hash160, params.PubKeyHashAddrID), true
}

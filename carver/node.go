// Package carver implements the Carver2D movement engine: the subject
// of this repository. AddressCache, UtxoResolver, MovementBuilder,
// SequenceApplier, Unwinder and Confirmer (spec.md §4.1-§4.6) all live
// here; package sync drives them.
package carver

import "github.com/5G-Cash/bulwark-explorer/rpcclient"

// Node is the subset of a full node's JSON-RPC surface the carver
// engine needs (spec.md §6). rpcclient.Client satisfies it; tests
// satisfy it with an in-memory fake.
type Node interface {
	GetInfo() (*rpcclient.GetInfoResult, error)
	GetBlockHash(height int64) (string, error)
	GetBlock(hash string) (*rpcclient.BlockResult, error)
	GetRawTransaction(txID string) (*rpcclient.RawTransactionResult, error)
}

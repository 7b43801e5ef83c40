package carver

import (
	"context"

	"github.com/5G-Cash/bulwark-explorer/carvererr"
	"github.com/5G-Cash/bulwark-explorer/store"
)

// Confirmer walks unconfirmed blocks and compares the node's *current*
// hash at each height against what was stored, triggering a rollback
// through the Unwinder on mismatch (spec.md §4.6). Re-fetching by the
// stored hash would be a tautology — getblock(hash) is a pure function
// of that hash, so it can never disagree with itself — the only way to
// observe a reorg is to ask the node what it now reports at that height.
type Confirmer struct {
	blocks             store.BlockStore
	node               Node
	unwinder           *Unwinder
	blockConfirmations int64
}

// NewConfirmer creates a Confirmer requiring at least confirmations
// confirmations from the node before a block is considered final.
func NewConfirmer(blocks store.BlockStore, node Node, unwinder *Unwinder, confirmations int64) *Confirmer {
	return &Confirmer{blocks: blocks, node: node, unwinder: unwinder, blockConfirmations: confirmations}
}

// Run confirms every unconfirmed block it can, recursing into itself
// after any rollback a reorg triggers. The recursion always terminates
// because each unwind strictly decreases the height of the last stored
// block.
func (c *Confirmer) Run(ctx context.Context) error {
	for {
		first, err := c.blocks.FirstUnconfirmed(ctx)
		if err != nil {
			return carvererr.Store(err, "loading first unconfirmed block")
		}
		if first == nil {
			return nil
		}

		last, err := c.blocks.Last(ctx)
		if err != nil {
			return carvererr.Store(err, "loading last stored block")
		}

		reorged := false
		for h := first.Height; h <= last.Height; h++ {
			stored, err := c.blocks.ByHeight(ctx, h)
			if err != nil {
				return carvererr.Store(err, "loading block %d", h)
			}
			if stored == nil {
				break
			}

			currentHash, err := c.node.GetBlockHash(h)
			if err != nil {
				return carvererr.RPC(err, "fetching current hash for height %d", h)
			}
			nodeBlock, err := c.node.GetBlock(currentHash)
			if err != nil {
				return carvererr.RPC(err, "fetching node block %d", h)
			}

			if nodeBlock.Confirmations < c.blockConfirmations {
				return nil
			}
			if currentHash != stored.Hash || nodeBlock.MerkleRoot != stored.MerkleRoot {
				if err := c.unwinder.Unwind(ctx, last.Height); err != nil {
					return err
				}
				reorged = true
				break
			}

			if err := c.blocks.MarkConfirmed(ctx, h); err != nil {
				return carvererr.Store(err, "marking block %d confirmed", h)
			}
		}

		if reorged {
			continue
		}
		return nil
	}
}

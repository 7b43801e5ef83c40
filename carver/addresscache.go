package carver

import (
	"context"
	"sync"

	"github.com/5G-Cash/bulwark-explorer/carvererr"
	"github.com/5G-Cash/bulwark-explorer/carvertypes"
	"github.com/5G-Cash/bulwark-explorer/store"
)

// AddressCache is the two-tier cache spec.md §4.1 describes. The common
// tier holds the six special labels plus every transaction
// pseudo-address and is never evicted — a sync run touches a bounded
// number of distinct special labels and transaction addresses are
// short-lived but frequent, so unbounded here is cheap. The normal tier
// holds ordinary addresses and is capped at limit entries; once full it
// flushes completely rather than running an eviction policy, trading a
// burst of cache misses for a cache with no bookkeeping of its own.
type AddressCache struct {
	addresses store.AddressStore

	mu     sync.Mutex
	common map[string]*carvertypes.CarverAddress
	normal map[string]*carvertypes.CarverAddress
	limit  int
}

// NewAddressCache creates a cache backed by addresses, with the normal
// tier capped at limit entries (spec.md §6's address_cache_limit).
func NewAddressCache(addresses store.AddressStore, limit int) *AddressCache {
	if limit <= 0 {
		limit = 50000
	}
	return &AddressCache{
		addresses: addresses,
		common:    make(map[string]*carvertypes.CarverAddress),
		normal:    make(map[string]*carvertypes.CarverAddress),
		limit:     limit,
	}
}

// isCommonTier reports whether a label belongs in the unbounded common
// tier: the six special labels, or a transaction pseudo-address.
func isCommonTier(kind carvertypes.AddressKind) bool {
	return kind.IsSpecial() || kind == carvertypes.KindTx
}

// Get returns the address for label, creating a fresh zero-balance
// record of the given kind if none exists yet in cache or store. The
// returned pointer is a private clone: callers mutate it freely and
// hand it back via Put once the mutation should become visible to
// later lookups in the same batch.
func (c *AddressCache) Get(ctx context.Context, label string, kind carvertypes.AddressKind) (*carvertypes.CarverAddress, error) {
	c.mu.Lock()
	if addr, ok := c.common[label]; ok {
		c.mu.Unlock()
		return addr.Clone(), nil
	}
	if addr, ok := c.normal[label]; ok {
		c.mu.Unlock()
		return addr.Clone(), nil
	}
	c.mu.Unlock()

	addr, err := c.addresses.ByLabel(ctx, label)
	if err != nil {
		return nil, carvererr.Store(err, "loading address %q", label)
	}
	if addr == nil {
		addr = &carvertypes.CarverAddress{Label: label, Kind: kind}
	}

	c.Put(addr)
	return addr.Clone(), nil
}

// Put installs addr into the appropriate tier, flushing the normal tier
// first if it has reached its limit.
func (c *AddressCache) Put(addr *carvertypes.CarverAddress) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if isCommonTier(addr.Kind) {
		c.common[addr.Label] = addr.Clone()
		return
	}
	if len(c.normal) >= c.limit {
		c.normal = make(map[string]*carvertypes.CarverAddress, c.limit)
	}
	c.normal[addr.Label] = addr.Clone()
}

// Clear empties both tiers. Called on rollback: cached balances may
// reflect movements the unwinder is about to delete.
func (c *AddressCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.common = make(map[string]*carvertypes.CarverAddress)
	c.normal = make(map[string]*carvertypes.CarverAddress)
}

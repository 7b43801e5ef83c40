// Package storetest provides an in-memory store.Store for exercising
// carver and sync against, without a live MongoDB instance. It
// implements the same ordering/filtering contracts the mongo-backed
// store promises (spec.md §6), just over plain maps and slices guarded
// by a mutex, the way the teacher's own in-memory test fakes (e.g.
// blockdag's test harnesses) stand in for a real backing store.
package storetest

import (
	"context"
	"sort"
	"sync"

	"github.com/5G-Cash/bulwark-explorer/store"
)

type memStore struct {
	blocks    *memBlockStore
	movements *memMovementStore
	addresses *memAddressStore
}

// New returns a ready-to-use, empty in-memory Store.
func New() store.Store {
	return &memStore{
		blocks:    &memBlockStore{byHeight: make(map[int64]*store.Block)},
		movements: &memMovementStore{bySequence: make(map[int64]*store.Movement)},
		addresses: &memAddressStore{byLabel: make(map[string]*store.Address)},
	}
}

func (s *memStore) Blocks() store.BlockStore       { return s.blocks }
func (s *memStore) Movements() store.MovementStore { return s.movements }
func (s *memStore) Addresses() store.AddressStore  { return s.addresses }
func (s *memStore) EnsureIndexes(ctx context.Context) error { return nil }
func (s *memStore) Close(ctx context.Context) error         { return nil }

type memBlockStore struct {
	mu       sync.Mutex
	byHeight map[int64]*store.Block
}

func (s *memBlockStore) Insert(ctx context.Context, block *store.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *block
	s.byHeight[block.Height] = &cp
	return nil
}

func (s *memBlockStore) Last(ctx context.Context) (*store.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best *store.Block
	for _, b := range s.byHeight {
		if best == nil || b.Height > best.Height {
			best = b
		}
	}
	if best == nil {
		return nil, nil
	}
	cp := *best
	return &cp, nil
}

func (s *memBlockStore) ByHeight(ctx context.Context, height int64) (*store.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.byHeight[height]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (s *memBlockStore) FirstUnconfirmed(ctx context.Context) (*store.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best *store.Block
	for _, b := range s.byHeight {
		if b.IsConfirmed {
			continue
		}
		if best == nil || b.Height < best.Height {
			best = b
		}
	}
	if best == nil {
		return nil, nil
	}
	cp := *best
	return &cp, nil
}

func (s *memBlockStore) MarkConfirmed(ctx context.Context, height int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.byHeight[height]; ok {
		b.IsConfirmed = true
	}
	return nil
}

func (s *memBlockStore) DeleteFromHeight(ctx context.Context, height int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for h := range s.byHeight {
		if h >= height {
			delete(s.byHeight, h)
		}
	}
	return nil
}

type memMovementStore struct {
	mu         sync.Mutex
	bySequence map[int64]*store.Movement
}

func (s *memMovementStore) InsertMany(ctx context.Context, movements []*store.Movement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range movements {
		cp := *m
		s.bySequence[m.Sequence] = &cp
	}
	return nil
}

func (s *memMovementStore) FindDescendingBatch(ctx context.Context, height int64, limit int) ([]*store.Movement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []*store.Movement
	for _, m := range s.bySequence {
		if m.BlockHeight >= height {
			cp := *m
			matched = append(matched, &cp)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Sequence > matched[j].Sequence })
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *memMovementStore) DeleteFromSequence(ctx context.Context, sequence int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for seq := range s.bySequence {
		if seq >= sequence {
			delete(s.bySequence, seq)
		}
	}
	return nil
}

func (s *memMovementStore) MaxSequence(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var max int64
	for seq := range s.bySequence {
		if seq > max {
			max = seq
		}
	}
	return max, nil
}

type memAddressStore struct {
	mu      sync.Mutex
	byLabel map[string]*store.Address
}

func (s *memAddressStore) ByLabel(ctx context.Context, label string) (*store.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byLabel[label]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (s *memAddressStore) Upsert(ctx context.Context, addr *store.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *addr
	s.byLabel[addr.Label] = &cp
	return nil
}

func (s *memAddressStore) UpsertMany(ctx context.Context, addrs []*store.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range addrs {
		cp := *a
		s.byLabel[a.Label] = &cp
	}
	return nil
}

func (s *memAddressStore) MaxSequence(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var max int64
	for _, a := range s.byLabel {
		if a.Sequence > max {
			max = a.Sequence
		}
	}
	return max, nil
}

func (s *memAddressStore) DeleteFromBlockHeight(ctx context.Context, height int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for label, a := range s.byLabel {
		if a.BlockHeight >= height {
			delete(s.byLabel, label)
		}
	}
	return nil
}

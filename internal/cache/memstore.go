package cache

import (
	"github.com/domob1812/huntercore/internal/chainio"
	"github.com/domob1812/huntercore/internal/state"
)

// maxInMemory bounds the memory tier (spec §4.8); crossing it triggers
// a flush rather than an eviction, since the policy decides what to
// keep based on chain topology, not insertion order.
const maxInMemory = 100

// memStore is the in-memory tier: a plain map. Every access goes
// through Store's cacheLock, so memStore itself holds no lock of its
// own — one lock covers both the map and the eviction decision
// (spec §4.8), rather than layering a second lock beneath it.
type memStore struct {
	entries map[chainio.BlockHash]*state.GameState
}

func newMemStore() *memStore {
	return &memStore{entries: make(map[chainio.BlockHash]*state.GameState)}
}

func (m *memStore) get(h chainio.BlockHash) (*state.GameState, bool) {
	gs, ok := m.entries[h]
	return gs, ok
}

func (m *memStore) put(h chainio.BlockHash, gs *state.GameState) {
	m.entries[h] = gs
}

func (m *memStore) delete(h chainio.BlockHash) {
	delete(m.entries, h)
}

func (m *memStore) len() int {
	return len(m.entries)
}

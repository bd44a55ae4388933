// Package cache implements spec.md §4.8's block-hash-keyed game-state
// cache: a bounded in-memory tier backed by a persistent on-disk tier
// with keep-every-Nth retention, replaying through internal/engine on
// a miss.
//
// Grounded on a tick-loop's single mutex owned across an in-memory
// map, generalised here to a two-tier cache with a disk-store escape
// hatch (MJE43-stake-pf-replay-go's backend/internal/store/sqlite.go,
// hellsoul86-voxelcraft.ai's internal/persistence tree).
package cache

import (
	"context"
	"fmt"
	"sync"

	"github.com/domob1812/huntercore/internal/chainio"
	"github.com/domob1812/huntercore/internal/chainparams"
	"github.com/domob1812/huntercore/internal/engerr"
	"github.com/domob1812/huntercore/internal/engine"
	"github.com/domob1812/huntercore/internal/state"
	"github.com/domob1812/huntercore/internal/xlog"
)

const (
	// minInMemory is the tail of main-chain blocks a flush always keeps
	// resident, spec §4.8.
	minInMemory = 10
	// flushRetentionN is the on-disk every-Nth-block retention stride.
	flushRetentionN = 2000
	// replayPollInterval is how often a long replay checks for
	// cooperative cancellation, in blocks.
	replayPollInterval = 32
)

// Store is the facade spec §4.8 describes: Get/Store/Flush/SetKeepEverything
// over the memory and disk tiers, serialized by a single cacheLock.
type Store struct {
	cacheLock sync.Mutex
	mem       *memStore
	disk      *diskStore

	keepEverything bool

	index    chainio.BlockIndexService
	blocks   chainio.BlockStore
	treasure chainio.TreasureSource
	params   *chainparams.Params
}

// NewStore opens (creating if absent) the on-disk tier at diskPath and
// returns a Store ready to serve Get/Store against the given
// collaborators.
func NewStore(diskPath string, index chainio.BlockIndexService, blocks chainio.BlockStore, treasure chainio.TreasureSource, params *chainparams.Params) (*Store, error) {
	disk, err := newDiskStore(diskPath)
	if err != nil {
		return nil, err
	}
	return &Store{
		mem:      newMemStore(),
		disk:     disk,
		index:    index,
		blocks:   blocks,
		treasure: treasure,
		params:   params,
	}, nil
}

// Close releases the on-disk tier's handle.
func (s *Store) Close() error {
	return s.disk.close()
}

// Get returns the game state for hash: a cache hit in either tier
// short-circuits; a miss walks predecessors (via the block-index
// service) until a cached/stored state or genesis is found, replays
// the intervening blocks through engine.PerformStep, and stores the
// final result before returning it.
func (s *Store) Get(ctx context.Context, hash chainio.BlockHash) (*state.GameState, error) {
	s.cacheLock.Lock()
	if gs, ok := s.mem.get(hash); ok {
		s.cacheLock.Unlock()
		return gs, nil
	}
	s.cacheLock.Unlock()

	if gs, ok, err := s.disk.get(hash); err != nil {
		return nil, err
	} else if ok {
		s.cacheLock.Lock()
		s.mem.put(hash, gs)
		s.cacheLock.Unlock()
		return gs, nil
	}

	return s.replay(ctx, hash)
}

// replay walks predecessors of hash, outside the cache lock, until it
// finds an ancestor already cached (memory or disk) or genesis, then
// replays every intervening block through PerformStep in order.
func (s *Store) replay(ctx context.Context, hash chainio.BlockHash) (*state.GameState, error) {
	var chain []chainio.BlockHash
	cur := hash
	var base *state.GameState

	for {
		s.cacheLock.Lock()
		gs, ok := s.mem.get(cur)
		s.cacheLock.Unlock()
		if ok {
			base = gs
			break
		}
		if gs, ok, err := s.disk.get(cur); err != nil {
			return nil, err
		} else if ok {
			base = gs
			break
		}

		parent, hasParent := s.index.ParentHash(cur)
		if !hasParent {
			base = state.New()
			break
		}
		chain = append(chain, cur)
		cur = parent
	}

	// chain is ordered tip-to-base; replay oldest first.
	gs := base
	for i := len(chain) - 1; i >= 0; i-- {
		if i%replayPollInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, &engerr.Cancelled{Reason: "game-state replay aborted"}
			}
		}
		h := chain[i]
		block, err := s.blocks.ReadBlock(h)
		if err != nil {
			return nil, &engerr.StorageError{Reason: fmt.Sprintf("read block %x during replay", h), Err: err}
		}
		treasure := s.treasure.TreasureAt(block.Height)
		next, _, err := engine.PerformStep(gs, block, s.params, treasure)
		if err != nil {
			return nil, err
		}
		gs = next
	}

	s.cacheLock.Lock()
	s.mem.put(hash, gs)
	overflow := s.mem.len() > maxInMemory
	s.cacheLock.Unlock()

	xlog.L.WithField("hash", fmt.Sprintf("%x", hash)).WithField("blocks_replayed", len(chain)).Debug("game-state cache replay complete")

	if overflow {
		if err := s.Flush(false); err != nil {
			return nil, err
		}
	}
	return gs, nil
}

// Store records gs under hash directly, without going through replay;
// used by the block-acceptance path that already has the freshly
// computed state from PerformStep in hand.
func (s *Store) Store(hash chainio.BlockHash, gs *state.GameState) error {
	s.cacheLock.Lock()
	s.mem.put(hash, gs)
	overflow := s.mem.len() > maxInMemory
	s.cacheLock.Unlock()

	if overflow {
		return s.Flush(false)
	}
	return nil
}

// SetKeepEverything suppresses pruning during a deep reconnect;
// reverting to false triggers a flush, per spec §4.8.
func (s *Store) SetKeepEverything(keep bool) error {
	s.cacheLock.Lock()
	was := s.keepEverything
	s.keepEverything = keep
	s.cacheLock.Unlock()

	if was && !keep {
		return s.Flush(false)
	}
	return nil
}

// Flush implements spec §4.8's flush(save_all): every entry outside the
// last minInMemory main-chain blocks (and, when saveAll is set, every
// kept entry too) is evicted from memory; of those, kept entries and
// entries at an every-Nth height are written to disk first, the rest
// are dropped. The on-disk store is then pruned of anything that fails
// the retention policy and isn't in the kept set. While keepEverything
// is set, Flush(false) does nothing.
func (s *Store) Flush(saveAll bool) error {
	s.cacheLock.Lock()
	defer s.cacheLock.Unlock()

	if s.keepEverything && !saveAll {
		return nil
	}

	keep := s.keepInMemorySet()

	toWrite := make(map[chainio.BlockHash]*state.GameState)
	var toDrop []chainio.BlockHash

	for hash, gs := range s.mem.entries {
		_, kept := keep[hash]
		if !saveAll && kept {
			continue
		}
		if kept || gs.Height%flushRetentionN == 0 {
			toWrite[hash] = gs
		}
		toDrop = append(toDrop, hash)
	}

	if err := s.disk.putBatch(toWrite); err != nil {
		return err
	}
	for _, hash := range toDrop {
		s.mem.delete(hash)
	}

	return s.disk.pruneExcept(flushRetentionN, keep)
}

// keepInMemorySet walks back minInMemory blocks from the current
// main-chain tip. Caller must hold cacheLock.
func (s *Store) keepInMemorySet() map[chainio.BlockHash]struct{} {
	keep := make(map[chainio.BlockHash]struct{}, minInMemory)
	cur := s.index.HashOfMainChainTip()
	for i := 0; i < minInMemory; i++ {
		keep[cur] = struct{}{}
		parent, ok := s.index.ParentHash(cur)
		if !ok {
			break
		}
		cur = parent
	}
	return keep
}

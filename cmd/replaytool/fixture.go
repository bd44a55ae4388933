package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/domob1812/huntercore/internal/chainio"
	"github.com/domob1812/huntercore/internal/state"
)

// fixtureMove is a JSON-friendly chainio.RawMove.
type fixtureMove struct {
	Name      string          `json:"name"`
	Value     json.RawMessage `json:"value"`
	NewLocked state.Amount    `json:"new_locked"`
}

// fixtureBlock is a JSON-friendly chainio.Block: hashes are hex
// strings, and treasure (the 9x block subsidy a real node would
// compute from its reward schedule) is carried alongside it since
// there is no consensus layer behind this tool.
type fixtureBlock struct {
	Hash       string        `json:"hash"`
	ParentHash string        `json:"parent_hash"`
	Height     int32         `json:"height"`
	Treasure   state.Amount  `json:"treasure"`
	Moves      []fixtureMove `json:"moves"`
}

func parseHash(s string) (chainio.BlockHash, error) {
	var h chainio.BlockHash
	raw, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("decode hash %q: %w", s, err)
	}
	if len(raw) != len(h) {
		return h, fmt.Errorf("hash %q has %d bytes, want %d", s, len(raw), len(h))
	}
	copy(h[:], raw)
	return h, nil
}

// loadFixtures reads every *.json file in dir, decodes it as a
// fixtureBlock, and returns the blocks sorted by height.
func loadFixtures(dir string) ([]*chainio.Block, map[chainio.BlockHash]state.Amount, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("read fixtures dir: %w", err)
	}

	var blocks []*chainio.Block
	treasure := make(map[chainio.BlockHash]state.Amount)

	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, nil, fmt.Errorf("read fixture %s: %w", e.Name(), err)
		}
		var fb fixtureBlock
		if err := json.Unmarshal(raw, &fb); err != nil {
			return nil, nil, fmt.Errorf("parse fixture %s: %w", e.Name(), err)
		}
		hash, err := parseHash(fb.Hash)
		if err != nil {
			return nil, nil, fmt.Errorf("fixture %s: %w", e.Name(), err)
		}
		parent, err := parseHash(fb.ParentHash)
		if err != nil {
			return nil, nil, fmt.Errorf("fixture %s: %w", e.Name(), err)
		}
		moves := make([]chainio.RawMove, 0, len(fb.Moves))
		for _, m := range fb.Moves {
			moves = append(moves, chainio.RawMove{
				Name:      m.Name,
				Value:     []byte(m.Value),
				NewLocked: m.NewLocked,
			})
		}
		blocks = append(blocks, &chainio.Block{
			Hash:       hash,
			ParentHash: parent,
			Height:     fb.Height,
			Moves:      moves,
		})
		treasure[hash] = fb.Treasure
	}

	sort.Slice(blocks, func(i, j int) bool { return blocks[i].Height < blocks[j].Height })
	return blocks, treasure, nil
}

// fixtureIndex is a chainio.BlockIndexService over a fully-loaded,
// linear fixture chain: every loaded block is "main chain".
type fixtureIndex struct {
	parents map[chainio.BlockHash]chainio.BlockHash
	heights map[chainio.BlockHash]int32
	tip     chainio.BlockHash
}

func newFixtureIndex(blocks []*chainio.Block) *fixtureIndex {
	idx := &fixtureIndex{
		parents: make(map[chainio.BlockHash]chainio.BlockHash, len(blocks)),
		heights: make(map[chainio.BlockHash]int32, len(blocks)),
	}
	for _, b := range blocks {
		idx.parents[b.Hash] = b.ParentHash
		idx.heights[b.Hash] = b.Height
		idx.tip = b.Hash
	}
	return idx
}

func (f *fixtureIndex) ParentHash(h chainio.BlockHash) (chainio.BlockHash, bool) {
	p, ok := f.parents[h]
	return p, ok
}

func (f *fixtureIndex) HashOfMainChainTip() chainio.BlockHash { return f.tip }

func (f *fixtureIndex) Height(h chainio.BlockHash) (int32, bool) {
	height, ok := f.heights[h]
	return height, ok
}

func (f *fixtureIndex) MainChainContains(h chainio.BlockHash) bool {
	_, ok := f.heights[h]
	return ok
}

// fixtureBlockStore is a chainio.BlockStore over the same loaded chain.
type fixtureBlockStore map[chainio.BlockHash]*chainio.Block

func newFixtureBlockStore(blocks []*chainio.Block) fixtureBlockStore {
	store := make(fixtureBlockStore, len(blocks))
	for _, b := range blocks {
		store[b.Hash] = b
	}
	return store
}

func (f fixtureBlockStore) ReadBlock(h chainio.BlockHash) (*chainio.Block, error) {
	b, ok := f[h]
	if !ok {
		return nil, fmt.Errorf("no fixture block for hash %x", h)
	}
	return b, nil
}

// fixtureTreasureSource answers each block's 9x-subsidy treasure
// amount from the fixture file, by height (the loaded chain is linear,
// so height uniquely identifies a block).
type fixtureTreasureSource map[int32]state.Amount

func newFixtureTreasureSource(blocks []*chainio.Block, byHash map[chainio.BlockHash]state.Amount) fixtureTreasureSource {
	out := make(fixtureTreasureSource, len(blocks))
	for _, b := range blocks {
		out[b.Height] = byHash[b.Hash]
	}
	return out
}

func (f fixtureTreasureSource) TreasureAt(height int32) state.Amount { return f[height] }

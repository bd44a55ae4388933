// Package chainio declares the external-collaborator contracts spec.md
// §6 lists as interfaces the core consumes: block-chain navigation,
// block payload lookup, UTXO lookup for addressLock authorization, and
// name-database lookup for game-transaction construction. None of
// these are implemented here — the containing chain's node code
// supplies them; the engine only depends on the interface shape.
package chainio

import "github.com/domob1812/huntercore/internal/state"

// BlockHash is a 32-byte block hash, used as both an RNG seed and a
// game-state cache key.
type BlockHash = [32]byte

// BlockIndexService answers questions about chain topology without
// handing over full block payloads.
type BlockIndexService interface {
	ParentHash(h BlockHash) (BlockHash, bool)
	HashOfMainChainTip() BlockHash
	Height(h BlockHash) (int32, bool)
	MainChainContains(h BlockHash) bool
}

// Block is the subset of a block's payload the engine needs: its hash,
// its parent, and the ordered list of raw moves extracted from the
// block's name-operation outputs.
type Block struct {
	Hash       BlockHash
	ParentHash BlockHash
	Height     int32
	Moves      []RawMove
}

// RawMove is one name-operation output's move payload, not yet parsed.
type RawMove struct {
	Name      string
	Value     []byte // raw JSON
	NewLocked state.Amount
}

// BlockStore reads full block payloads by hash.
type BlockStore interface {
	ReadBlock(h BlockHash) (*Block, error)
}

// TxOut is the subset of a transaction output the engine needs to
// verify an addressLock signer.
type TxOut struct {
	Address string
}

// OutPoint identifies a transaction output.
type OutPoint struct {
	TxID  [32]byte
	Index uint32
}

// UtxoView resolves outpoints to their current unspent output, used
// only to verify addressLock for address-changing moves.
type UtxoView interface {
	GetCoin(op OutPoint) (TxOut, bool)
}

// NameData is the current on-chain state of a player's name, as seen
// by the name database.
type NameData struct {
	UpdateOutPoint OutPoint
	Address        string
}

// NameDb resolves a player name to its current name-database record,
// used by game-transaction construction to discover the current
// update-outpoint and payout address.
type NameDb interface {
	GetName(name state.PlayerId) (NameData, bool)
}

// TreasureSource reports the treasure amount (9x block subsidy, spec
// §4.5) for a block at the given height — a function of the
// containing chain's reward schedule, not of game state.
type TreasureSource interface {
	TreasureAt(height int32) state.Amount
}

// Package engine implements the per-block state-transition driver,
// spec.md §4.3-§4.7: movement, attack resolution (delegated to
// internal/combat), spawn-area bookkeeping, killed-character loot
// handling, banking, disasters, treasure drops, and the crown.
//
// Grounded on a Room.tick-style tick-loop structure — an ordered
// sequence of per-tick phases run over a mutable room snapshot —
// generalised from a wall-clock tick to a block-indexed step.
package engine

import "github.com/domob1812/huntercore/internal/state"

// Bounty is one payout the engine has decided to emit this block —
// either collected loot or a locked-coin refund (spec §4.6, §6).
type Bounty struct {
	Player              state.PlayerId
	CharacterIndex      int
	Amount              state.Amount
	Address             string
	IsRefund            bool
	LootFirstBlock      int32
	LootLastBlock       int32
	CollectedFirstBlock int32
	CollectedLastBlock  int32
	RefundHeight        int32
}

// PlayerKill records a whole player being killed this block (its
// general died, by any reason) — spec §4.5 step 7's deferred
// "finalise kills" pass.
type PlayerKill struct {
	Player state.PlayerId
	Info   state.KilledByInfo
}

// StepResult is everything PerformStep produces besides the new state:
// the inputs internal/gametx needs to build kill/bounty transactions,
// plus the raw money flow for the conservation audit and diagnostics.
type StepResult struct {
	Kills      []PlayerKill
	Bounties   []Bounty
	MoneyIn    state.Amount
	MoneyOut   state.Amount
	Treasure   state.Amount
	TaxCharged state.Amount
}

// Package combat implements the attack/defend resolver, spec §4.4:
// building a tile-indexed map of attackable characters, applying
// destruct moves within their radius, cancelling mutual attacks
// post-life-steal, drawing life, and distributing stolen life back to
// attackers.
//
// Structurally grounded on a World-interface-plus-free-functions
// shape, taking (w World, ...): the same shape reused here as a
// TileIndex value plus free functions taking
// (*TileIndex, *state.GameState, ...) — an engine-owned resolver
// acting over a snapshot, not a pluggable gameplay object.
package combat

import (
	"github.com/domob1812/huntercore/internal/chainparams"
	"github.com/domob1812/huntercore/internal/fork"
	"github.com/domob1812/huntercore/internal/mapdata"
	"github.com/domob1812/huntercore/internal/rng"
	"github.com/domob1812/huntercore/internal/state"
)

// AttackableCharacter is one tile-index entry: a character that can be
// targeted by a destruct this block.
type AttackableCharacter struct {
	ID        state.CharacterId
	Color     int
	Coord     state.Coord
	DrawnLife state.Amount
	Attackers []state.CharacterId // insertion order; consensus-critical
}

// TileIndex maps coordinates to the attackable characters standing on
// them, built fresh every block from the pre-combat state.
type TileIndex struct {
	tiles map[state.Coord][]*AttackableCharacter
	byID  map[state.CharacterId]*AttackableCharacter
}

// isSpawnProtected reports whether c is exempt from being targeted
// this block: post-timesave, a character still inside its initial
// spawn-area grace period (stay_in_spawn_area counter below the
// "normal" value of 6, spec §4.7) cannot be attacked.
func isSpawnProtected(p *chainparams.Params, height int32, c *state.CharacterState) bool {
	return fork.Active(p, fork.Timesave, height) && c.StayInSpawnArea < 6
}

// BuildTileIndex walks every living character of every player (in
// sorted order, spec §9) and indexes the ones eligible to be attacked
// this block.
func BuildTileIndex(gs *state.GameState, params *chainparams.Params, height int32) *TileIndex {
	t := &TileIndex{
		tiles: make(map[state.Coord][]*AttackableCharacter),
		byID:  make(map[state.CharacterId]*AttackableCharacter),
	}
	for _, pid := range gs.SortedPlayerIDs() {
		ps := gs.Players[pid]
		for _, idx := range ps.SortedCharacterIndices() {
			cs := ps.Characters[idx]
			if isSpawnProtected(params, height, cs) {
				continue
			}
			ac := &AttackableCharacter{
				ID:    state.CharacterId{Player: pid, Index: idx},
				Color: ps.Color,
				Coord: cs.Coord,
			}
			t.tiles[cs.Coord] = append(t.tiles[cs.Coord], ac)
			t.byID[ac.ID] = ac
		}
	}
	return t
}

// ByID looks up an indexed attackable by character id.
func (t *TileIndex) ByID(id state.CharacterId) (*AttackableCharacter, bool) {
	ac, ok := t.byID[id]
	return ac, ok
}

// All returns every indexed attackable, in no particular order; callers
// that need determinism should sort by ID themselves.
func (t *TileIndex) All() []*AttackableCharacter {
	out := make([]*AttackableCharacter, 0, len(t.byID))
	for _, ac := range t.byID {
		out = append(out, ac)
	}
	return out
}

// destructRadius implements spec §4.4 step 2's radius rule.
func destructRadius(params *chainparams.Params, height int32, isGeneral bool) int {
	if fork.Active(params, fork.LessHearts, height) {
		return 1
	}
	if isGeneral {
		return 2
	}
	return 1
}

// ApplyDestruct applies one destructing character's attack against the
// tile index: every attackable within its radius whose colour differs
// from the destructor's is attacked. The destructor itself is added as
// one of its own attackers pre-life-steal only; other same-colour
// characters are never attacked.
// destructorCoord/destructorColor describe the destructing character
// as of the pre-combat state (its own position is unaffected by
// combat, so these are read once by the caller).
func (t *TileIndex) ApplyDestruct(
	params *chainparams.Params,
	height int32,
	destructor state.CharacterId,
	destructorCoord state.Coord,
	destructorColor int,
	isGeneral bool,
) {
	r := destructRadius(params, height, isGeneral)
	lifeSteal := fork.Active(params, fork.LifeSteal, height)
	for y := destructorCoord.Y - r; y <= destructorCoord.Y+r; y++ {
		for x := destructorCoord.X - r; x <= destructorCoord.X+r; x++ {
			c := state.Coord{X: x, Y: y}
			if !mapdata.InMap(mapdata.Coord{X: c.X, Y: c.Y}) {
				continue
			}
			for _, ac := range t.tiles[c] {
				switch {
				case ac.ID == destructor:
					if !lifeSteal {
						ac.Attackers = append(ac.Attackers, destructor)
					}
				case ac.Color != destructorColor:
					ac.Attackers = append(ac.Attackers, destructor)
				}
			}
		}
	}
}

// CancelMutualAttacks implements spec §4.4 step 3: post-life-steal
// only, if A attacks B and B attacks A, both entries are removed from
// each other's attacker sets.
func CancelMutualAttacks(t *TileIndex, params *chainparams.Params, height int32) {
	if !fork.Active(params, fork.LifeSteal, height) {
		return
	}
	// Find every mutual pair against the uncancelled attacker lists
	// first, so removing one side cannot hide the pair from the other.
	mutual := make(map[*AttackableCharacter]map[state.CharacterId]bool)
	for _, b := range t.All() {
		for _, a := range b.Attackers {
			if attacksBack(t, a, b.ID) {
				if mutual[b] == nil {
					mutual[b] = make(map[state.CharacterId]bool)
				}
				mutual[b][a] = true
			}
		}
	}
	for b, drop := range mutual {
		kept := b.Attackers[:0:0]
		for _, a := range b.Attackers {
			if !drop[a] {
				kept = append(kept, a)
			}
		}
		b.Attackers = kept
	}
}

func attacksBack(t *TileIndex, a, b state.CharacterId) bool {
	ac, ok := t.byID[a]
	if !ok {
		return false
	}
	for _, attacker := range ac.Attackers {
		if attacker == b {
			return true
		}
	}
	return false
}

// KillRecord is one character killed by the draw-life step.
type KillRecord struct {
	Character state.CharacterId
	Info      state.KilledByInfo
}

// DrawLife implements spec §4.4 step 4. Pre-life-steal, every attacked
// character is killed outright by every attacker. Post-life-steal,
// damage is computed from NameCoinAmount(h) and the owning player's
// shared Value pool is decremented (Value lives on PlayerState, not
// per-character, so "the character's value" in the source material is
// modelled here as its player's pooled Value — see DESIGN.md).
func DrawLife(t *TileIndex, gs *state.GameState, params *chainparams.Params, height int32) []KillRecord {
	var kills []KillRecord
	lifeSteal := fork.Active(params, fork.LifeSteal, height)
	nameCoin := fork.NameCoinAmount(params, height)

	for _, ac := range sortedAttackables(t) {
		if len(ac.Attackers) == 0 {
			continue
		}
		ps := gs.Players[ac.ID.Player]
		if ps == nil {
			continue
		}
		if !lifeSteal {
			kills = append(kills, KillRecord{
				Character: ac.ID,
				Info:      state.KilledByInfo{Reason: state.KillReasonDestruct, Killers: killersExcludingSelf(ac)},
			})
			continue
		}

		damage := nameCoin * state.Amount(len(ac.Attackers))
		if damage > ps.Value {
			damage = ps.Value
		}
		ps.Value -= damage
		ac.DrawnLife += damage
		if ps.Value < nameCoin {
			ac.DrawnLife += ps.Value
			ps.Value = 0
			kills = append(kills, KillRecord{
				Character: ac.ID,
				Info:      state.KilledByInfo{Reason: state.KillReasonDestruct, Killers: killersExcludingSelf(ac)},
			})
		}
	}
	return kills
}

// killersExcludingSelf returns ac's attacker list for KilledByInfo
// purposes: a self-destruct attack makes the character lethally
// attackable pre-life-steal (and contributes to its own death), but a
// victim cannot be its own bounty-tx killer, so self is filtered out
// of the recorded Killers (spec scenario 2: two mutually destructing
// generals each list only the other as killer).
func killersExcludingSelf(ac *AttackableCharacter) []state.CharacterId {
	out := make([]state.CharacterId, 0, len(ac.Attackers))
	for _, a := range ac.Attackers {
		if a != ac.ID {
			out = append(out, a)
		}
	}
	return out
}

// DistributeDrawnLife implements spec §4.4 step 5: for each character
// with leftover drawn life, repeatedly pick a still-alive attacker via
// the block's RNG and credit it NameCoinAmount, removing the chosen
// index from the array without swapping (order-preserving, consensus-
// critical). Returns the total leftover credited to the game fund.
func DistributeDrawnLife(t *TileIndex, gs *state.GameState, params *chainparams.Params, height int32, r *rng.RNG) state.Amount {
	nameCoin := fork.NameCoinAmount(params, height)
	var toFund state.Amount

	for _, ac := range sortedAttackables(t) {
		if ac.DrawnLife <= 0 {
			continue
		}
		alive := aliveAttackers(gs, ac.Attackers)
		for ac.DrawnLife >= nameCoin && len(alive) > 0 {
			pick := int(r.NextInRange(uint64(len(alive))))
			winner := alive[pick]
			if wps := gs.Players[winner.Player]; wps != nil {
				wps.Value += nameCoin
			}
			ac.DrawnLife -= nameCoin
			alive = removeWithoutSwap(alive, pick)
		}
		toFund += ac.DrawnLife
		ac.DrawnLife = 0
	}
	return toFund
}

// removeWithoutSwap deletes index i from s, preserving the order of
// every remaining element (spec §4.4 step 5's explicit consensus rule
// — a swap-with-last removal would change which index the next
// rng.next_in_range draw selects).
func removeWithoutSwap(s []state.CharacterId, i int) []state.CharacterId {
	out := make([]state.CharacterId, 0, len(s)-1)
	out = append(out, s[:i]...)
	out = append(out, s[i+1:]...)
	return out
}

// aliveAttackers filters ids to the characters still present in gs.
func aliveAttackers(gs *state.GameState, ids []state.CharacterId) []state.CharacterId {
	out := make([]state.CharacterId, 0, len(ids))
	for _, id := range ids {
		ps := gs.Players[id.Player]
		if ps == nil {
			continue
		}
		if _, ok := ps.Characters[id.Index]; !ok {
			continue
		}
		out = append(out, id)
	}
	return out
}

// sortedAttackables orders by CharacterId so draw-life and distribute
// iterate deterministically regardless of Go's map order.
func sortedAttackables(t *TileIndex) []*AttackableCharacter {
	out := t.All()
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && less(out[j].ID, out[j-1].ID); j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

func less(a, b state.CharacterId) bool {
	if a.Player != b.Player {
		return a.Player < b.Player
	}
	return a.Index < b.Index
}

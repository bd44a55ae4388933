package engine

import (
	"github.com/domob1812/huntercore/internal/chainparams"
	"github.com/domob1812/huntercore/internal/fork"
	"github.com/domob1812/huntercore/internal/mapdata"
	"github.com/domob1812/huntercore/internal/state"
)

// ApplyKilledLoot implements spec §4.6 for one dying character:
// general-only refund eligibility, the 4% death tax (waived for
// SPAWN), and dropping the remainder on a tile or into the game fund
// depending on fork regime and whether the victim was poisoned at the
// instant of death. gs is mutated in place (GameFund, Loot); the
// character itself is not removed here — the caller erases it (or the
// whole player, for a general) once every character's loot has been
// resolved.
func ApplyKilledLoot(
	gs *state.GameState,
	params *chainparams.Params,
	height int32,
	id state.CharacterId,
	reason state.KillReason,
	poisonedAtKill bool,
) *Bounty {
	ps := gs.Players[id.Player]
	cs := ps.Characters[id.Index]

	var bounty *Bounty
	refunded := false
	if id.IsGeneral() {
		lessHearts := fork.Active(params, fork.LessHearts, height)
		lifeSteal := fork.Active(params, fork.LifeSteal, height)
		eligible := lessHearts && (!poisonedAtKill || lifeSteal)
		if eligible {
			bounty = &Bounty{
				Player:         id.Player,
				CharacterIndex: id.Index,
				IsRefund:       true,
				Amount:         ps.Value,
				RefundHeight:   height,
			}
			refunded = true
		}
	}

	amount := cs.Loot.Amount
	if id.IsGeneral() && !refunded {
		amount += ps.Value
	}
	if amount <= 0 {
		return bounty
	}

	hasDeathTax := reason != state.KillReasonSpawn
	if hasDeathTax {
		tax := amount * 4 / 100
		gs.GameFund += tax
		amount -= tax
	}
	if amount <= 0 {
		return bounty
	}

	if fork.Active(params, fork.LessHearts, height) && poisonedAtKill {
		gs.GameFund += amount
		return bounty
	}

	drop := dropTile(params, height, cs.Coord)
	if existing, ok := gs.Loot[drop]; ok {
		existing.Amount += amount
		existing.LastBlock = height
	} else {
		gs.Loot[drop] = &state.LootInfo{Amount: amount, FirstBlock: height, LastBlock: height}
	}
	return bounty
}

// dropTile implements spec §4.6's drop-tile rule: pre-life-steal, loot
// pushed one step out of the fixed spawn-area strips; post-life-steal,
// dropped exactly where the character died.
func dropTile(params *chainparams.Params, height int32, c state.Coord) state.Coord {
	if fork.Active(params, fork.LifeSteal, height) {
		return c
	}
	mc := mapdata.Coord{X: c.X, Y: c.Y}
	if !mapdata.InOriginalSpawnArea(mc) {
		return c
	}
	return pushTowardCenter(c)
}

// pushTowardCenter nudges c one tile toward the map centre, out of the
// spawn corner it sits in.
func pushTowardCenter(c state.Coord) state.Coord {
	cx, cy := mapdata.MapWidth/2, mapdata.MapHeight/2
	out := c
	switch {
	case c.X < cx:
		out.X++
	case c.X > cx:
		out.X--
	}
	switch {
	case c.Y < cy:
		out.Y++
	case c.Y > cy:
		out.Y--
	}
	return out
}

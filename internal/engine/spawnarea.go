package engine

import (
	"github.com/domob1812/huntercore/internal/chainparams"
	"github.com/domob1812/huntercore/internal/fork"
	"github.com/domob1812/huntercore/internal/mapdata"
	"github.com/domob1812/huntercore/internal/state"
)

// Spawn-area counter encoding (spec §4.7).
const (
	spawnCounterLogout        = 8
	spawnCounterSpectatorBase = 9
	spawnCounterSpectatorMax  = 9 + 14
)

// UpdateSpawnAreaCounter advances c.StayInSpawnArea by one block's
// worth of the timesave-regime rule, or the simpler pre-timesave
// bank-dwell counter. movedOutOfSpawn must be true when c's waypoint
// application this block steps it out of the spawn area (spec §4.7:
// "movement breaks protection").
func UpdateSpawnAreaCounter(p *chainparams.Params, height int32, c *state.CharacterState, onBank, onPlayerSpawnTile, movedOutOfSpawn bool) {
	if fork.Active(p, fork.Timesave, height) {
		switch {
		case onBank:
			c.StayInSpawnArea = spawnCounterLogout
		case onPlayerSpawnTile:
			if c.StayInSpawnArea == 5 {
				c.StayInSpawnArea = spawnCounterSpectatorBase
			} else if height%500 < 490 || c.StayInSpawnArea > 0 {
				c.StayInSpawnArea++
			}
		default:
			if c.StayInSpawnArea < 6 || c.StayInSpawnArea > 8 {
				c.StayInSpawnArea++
			}
		}
		if movedOutOfSpawn {
			c.StayInSpawnArea = 6
		}
		return
	}

	// Pre-timesave regime: a plain bank-dwell counter.
	if onBank {
		c.StayInSpawnArea++
	} else {
		c.StayInSpawnArea = 0
	}
}

// IsSpectator reports whether c is in post-timesave spectator mode
// (its waypoints are cleared so it cannot move, and its destruct is
// skipped).
func IsSpectator(c *state.CharacterState) bool {
	return c.StayInSpawnArea >= spawnCounterSpectatorBase
}

// ExemptFromSpawnDeath reports whether c's current counter value
// exempts it from spawn-death this block (spec §4.7: any value except
// logout, below the top of the spectator range).
func ExemptFromSpawnDeath(c *state.CharacterState) bool {
	return c.StayInSpawnArea != spawnCounterLogout && c.StayInSpawnArea < spawnCounterSpectatorMax+1
}

// MaxStayOnBank implements the pre-timesave MaxStayOnBank(h) schedule.
func MaxStayOnBank(p *chainparams.Params, height int32) int32 {
	if fork.Active(p, fork.LifeSteal, height) {
		return 2
	}
	if fork.Active(p, fork.CarryCap, height) {
		return -1
	}
	return 30
}

// classifyTile reports which of the three tile categories c's coord
// falls into, for the spawn-area counter update.
func classifyTile(gs *state.GameState, c state.Coord) (onBank, onPlayerSpawnTile bool) {
	if _, ok := gs.Banks[c]; ok {
		return true, false
	}
	mc := mapdata.Coord{X: c.X, Y: c.Y}
	if mapdata.IsDedicatedPlayerSpawnTile(mc) {
		return false, true
	}
	return false, false
}

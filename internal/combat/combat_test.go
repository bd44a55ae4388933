package combat

import (
	"testing"

	"github.com/domob1812/huntercore/internal/chainparams"
	"github.com/domob1812/huntercore/internal/rng"
	"github.com/domob1812/huntercore/internal/state"
)

func preLifeStealParams() *chainparams.Params {
	return &chainparams.Params{
		Forks: chainparams.ForkHeights{
			Poison: -1, LessHearts: -1, CarryCap: -1, LifeSteal: -1, Timesave: -1,
		},
	}
}

func lifeStealParams() *chainparams.Params {
	return &chainparams.Params{
		Forks: chainparams.ForkHeights{
			Poison: 0, LessHearts: 0, CarryCap: 0, LifeSteal: 0, Timesave: -1,
		},
	}
}

// scenario 2 from spec.md §8: two adjacent enemy generals mutually
// destruct pre-life-steal; both die.
func TestMutualDestructPreLifeSteal(t *testing.T) {
	gs := state.New()
	gs.Players["alice"] = &state.PlayerState{
		Color: 0,
		Characters: map[int]*state.CharacterState{
			0: {Coord: state.Coord{X: 10, Y: 10}},
		},
	}
	gs.Players["bob"] = &state.PlayerState{
		Color: 1,
		Characters: map[int]*state.CharacterState{
			0: {Coord: state.Coord{X: 11, Y: 10}},
		},
	}
	params := preLifeStealParams()
	idx := BuildTileIndex(gs, params, 1)

	aliceID := state.CharacterId{Player: "alice", Index: 0}
	bobID := state.CharacterId{Player: "bob", Index: 0}
	idx.ApplyDestruct(params, 1, aliceID, state.Coord{X: 10, Y: 10}, 0, true)
	idx.ApplyDestruct(params, 1, bobID, state.Coord{X: 11, Y: 10}, 1, true)
	CancelMutualAttacks(idx, params, 1) // no-op pre-life-steal

	kills := DrawLife(idx, gs, params, 1)
	if len(kills) != 2 {
		t.Fatalf("expected both generals killed, got %d kill records: %+v", len(kills), kills)
	}
	byChar := map[state.CharacterId]KillRecord{}
	for _, k := range kills {
		byChar[k.Character] = k
	}
	aliceKill, aliceOK := byChar[aliceID]
	bobKill, bobOK := byChar[bobID]
	if !aliceOK || !bobOK {
		t.Fatalf("expected alice and bob both killed, got %+v", kills)
	}
	if len(aliceKill.Info.Killers) != 1 || aliceKill.Info.Killers[0] != bobID {
		t.Fatalf("expected alice's killer to be bob only, got %+v", aliceKill.Info.Killers)
	}
	if len(bobKill.Info.Killers) != 1 || bobKill.Info.Killers[0] != aliceID {
		t.Fatalf("expected bob's killer to be alice only, got %+v", bobKill.Info.Killers)
	}
}

// scenario 4 from spec.md §8: post-life-steal drawn-life distribution.
// Each draw removes the picked attacker, so whatever the seeded RNG
// returns, A and B are each credited once and the rest goes to the fund.
func TestDrawnLifeDistributionScenario(t *testing.T) {
	gs := state.New()
	gs.Players["v"] = &state.PlayerState{
		Color: 0, Value: 500 * state.COIN,
		Characters: map[int]*state.CharacterState{0: {Coord: state.Coord{X: 20, Y: 20}}},
	}
	gs.Players["a"] = &state.PlayerState{
		Color: 1, Characters: map[int]*state.CharacterState{0: {Coord: state.Coord{X: 20, Y: 19}}},
	}
	gs.Players["b"] = &state.PlayerState{
		Color: 1, Characters: map[int]*state.CharacterState{0: {Coord: state.Coord{X: 20, Y: 21}}},
	}
	params := &chainparams.Params{
		Forks: chainparams.ForkHeights{Poison: 0, LessHearts: 0, CarryCap: 0, LifeSteal: 0, Timesave: -1},
	}
	height := int32(1)
	idx := BuildTileIndex(gs, params, height)

	vID := state.CharacterId{Player: "v", Index: 0}
	aID := state.CharacterId{Player: "a", Index: 0}
	bID := state.CharacterId{Player: "b", Index: 0}
	idx.ApplyDestruct(params, height, aID, state.Coord{X: 20, Y: 19}, 1, true)
	idx.ApplyDestruct(params, height, bID, state.Coord{X: 20, Y: 21}, 1, true)
	CancelMutualAttacks(idx, params, height)

	kills := DrawLife(idx, gs, params, height)
	if len(kills) != 1 || kills[0].Character != vID {
		t.Fatalf("expected v killed, got %+v", kills)
	}
	if gs.Players["v"].Value != 0 {
		t.Fatalf("expected v.Value drained to 0, got %d", gs.Players["v"].Value)
	}
	ac, _ := idx.ByID(vID)
	if ac.DrawnLife != 500*state.COIN {
		t.Fatalf("expected drawn_life 500 COIN, got %d", ac.DrawnLife)
	}

	// The engine removes the dead character from state between
	// DrawLife and DistributeDrawnLife in the real per-block sequence;
	// for this scenario both A and B remain alive attackers.
	r := rng.New([32]byte{1, 2, 3})
	toFund := DistributeDrawnLife(idx, gs, params, height, r)
	if gs.Players["a"].Value != 200*state.COIN || gs.Players["b"].Value != 200*state.COIN {
		t.Fatalf("expected both attackers credited 200 COIN, got a=%d b=%d",
			gs.Players["a"].Value, gs.Players["b"].Value)
	}
	if toFund != 100*state.COIN {
		t.Fatalf("expected 100 COIN leftover to game fund, got %d", toFund)
	}
}

func TestRemoveWithoutSwapPreservesOrder(t *testing.T) {
	ids := []state.CharacterId{
		{Player: "a", Index: 0},
		{Player: "b", Index: 0},
		{Player: "c", Index: 0},
	}
	got := removeWithoutSwap(ids, 1)
	want := []state.CharacterId{{Player: "a", Index: 0}, {Player: "c", Index: 0}}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("removeWithoutSwap = %+v, want %+v", got, want)
	}
}

package engine

import (
	"testing"

	"github.com/domob1812/huntercore/internal/chainio"
	"github.com/domob1812/huntercore/internal/chainparams"
	"github.com/domob1812/huntercore/internal/fork"
	"github.com/domob1812/huntercore/internal/mapdata"
	"github.com/domob1812/huntercore/internal/rng"
	"github.com/domob1812/huntercore/internal/state"
)

func noForksParams() *chainparams.Params {
	return &chainparams.Params{
		Forks: chainparams.ForkHeights{
			Poison: -1, LessHearts: -1, CarryCap: -1, LifeSteal: -1, Timesave: -1,
		},
	}
}

// spec.md §8 concrete scenario 1: spawn on production params at height 1.
func TestPerformStepSpawnScenario(t *testing.T) {
	prev := state.New()
	block := &chainio.Block{
		Hash:   [32]byte{7},
		Height: 1,
		Moves: []chainio.RawMove{
			{Name: "alice", Value: []byte(`{"color":0}`), NewLocked: state.COIN},
		},
	}
	gs, result, err := PerformStep(prev, block, &chainparams.MainNetParams, 0)
	if err != nil {
		t.Fatalf("PerformStep returned error: %v", err)
	}

	ps, ok := gs.Players["alice"]
	if !ok {
		t.Fatalf("expected player alice to be created")
	}
	if ps.Color != 0 {
		t.Fatalf("expected color 0, got %d", ps.Color)
	}
	if len(ps.Characters) != 3 {
		t.Fatalf("expected 3 characters, got %d", len(ps.Characters))
	}
	for _, idx := range []int{0, 1, 2} {
		cs, ok := ps.Characters[idx]
		if !ok {
			t.Fatalf("expected character index %d to exist", idx)
		}
		if cs.Coord.X < 0 || cs.Coord.X > 14 || cs.Coord.Y < 0 || cs.Coord.Y > 14 {
			t.Fatalf("character %d placed outside yellow corner strip: %+v", idx, cs.Coord)
		}
		if cs.Direction != 3 {
			t.Fatalf("expected inward direction 3 for colour 0, got %d", cs.Direction)
		}
	}
	if gs.GameFund != 0 {
		t.Fatalf("expected game_fund unchanged, got %d", gs.GameFund)
	}
	if result.MoneyIn != state.COIN {
		t.Fatalf("expected money_in = 1 COIN, got %d", result.MoneyIn)
	}
}

// spec.md §8 round-trip property: empty move set on state S yields
// height S.height+1, identical player identities, conservation holding
// with money_in = 0.
func TestPerformStepEmptyMoveSetRoundTrip(t *testing.T) {
	prev := state.New()
	prev.Height = 41
	prev.Players["alice"] = &state.PlayerState{
		Color: 0, LockedCoin: state.COIN, RemainingLife: -1,
		Characters: map[int]*state.CharacterState{
			0: {Coord: state.Coord{X: 50, Y: 50}, FromCoord: state.Coord{X: 50, Y: 50}},
		},
	}
	block := &chainio.Block{Hash: [32]byte{3}, Height: 42}
	gs, result, err := PerformStep(prev, block, noForksParams(), 0)
	if err != nil {
		t.Fatalf("PerformStep returned error: %v", err)
	}
	if gs.Height != prev.Height+1 {
		t.Fatalf("expected height %d, got %d", prev.Height+1, gs.Height)
	}
	if _, ok := gs.Players["alice"]; !ok {
		t.Fatalf("expected alice to survive an empty move set")
	}
	if result.MoneyIn != 0 {
		t.Fatalf("expected money_in = 0, got %d", result.MoneyIn)
	}
}

// spec.md §8 concrete scenario 2, exercised through the full PerformStep
// driver rather than the combat package alone: two adjacent enemy
// generals mutually destruct pre-life-steal.
func TestPerformStepMutualDestructScenario(t *testing.T) {
	prev := state.New()
	prev.Players["alice"] = &state.PlayerState{
		Color: 0, LockedCoin: state.COIN, RemainingLife: -1,
		Characters: map[int]*state.CharacterState{
			0: {Coord: state.Coord{X: 10, Y: 10}},
		},
	}
	prev.Players["bob"] = &state.PlayerState{
		Color: 1, LockedCoin: state.COIN, RemainingLife: -1,
		Characters: map[int]*state.CharacterState{
			0: {Coord: state.Coord{X: 11, Y: 10}},
		},
	}
	block := &chainio.Block{
		Hash:   [32]byte{5},
		Height: 1,
		Moves: []chainio.RawMove{
			{Name: "alice", Value: []byte(`{"0":{"destruct":true}}`), NewLocked: state.COIN},
			{Name: "bob", Value: []byte(`{"0":{"destruct":true}}`), NewLocked: state.COIN},
		},
	}
	gs, result, err := PerformStep(prev, block, noForksParams(), 0)
	if err != nil {
		t.Fatalf("PerformStep returned error: %v", err)
	}
	if _, ok := gs.Players["alice"]; ok {
		t.Fatalf("expected alice removed")
	}
	if _, ok := gs.Players["bob"]; ok {
		t.Fatalf("expected bob removed")
	}
	if len(result.Kills) != 2 {
		t.Fatalf("expected two player kills, got %d: %+v", len(result.Kills), result.Kills)
	}
	for _, k := range result.Kills {
		if k.Info.Reason != state.KillReasonDestruct {
			t.Fatalf("expected destruct kill reason, got %d", k.Info.Reason)
		}
	}
	// locked coin is bookkeeping, not part of the conserved total: with
	// zero value and no carried loot, neither general adds anything to
	// the game fund (pre-lesshearts, no refund eligibility either).
	if gs.GameFund != 0 {
		t.Fatalf("expected no locked coin moved into the game fund, got game_fund=%d", gs.GameFund)
	}
}

// spec.md §8 boundary behaviour: the disaster never triggers before
// height-disaster_height reaches 1440, and always triggers at 12*1440.
func TestCheckDisasterBoundaries(t *testing.T) {
	params := &chainparams.Params{Forks: chainparams.ForkHeights{Poison: 0, LessHearts: -1, CarryCap: -1, LifeSteal: -1, Timesave: -1}}

	gs := state.New()
	gs.Players["alice"] = &state.PlayerState{RemainingLife: -1, Characters: map[int]*state.CharacterState{}}
	gs.Height = disasterMinGap - 1
	gs.DisasterHeight = 0
	r := rng.New([32]byte{42})
	checkDisaster(gs, params, r)
	if gs.Players["alice"].RemainingLife != -1 {
		t.Fatalf("expected no disaster below min gap, got remaining_life=%d", gs.Players["alice"].RemainingLife)
	}

	gs2 := state.New()
	gs2.Players["alice"] = &state.PlayerState{RemainingLife: -1, Characters: map[int]*state.CharacterState{}}
	gs2.Height = disasterMaxGap
	gs2.DisasterHeight = 0
	r2 := rng.New([32]byte{42})
	checkDisaster(gs2, params, r2)
	rl := gs2.Players["alice"].RemainingLife
	if rl < 1 || rl > 50 {
		t.Fatalf("expected disaster to trigger unconditionally at max gap, remaining_life=%d", rl)
	}
	if gs2.DisasterHeight != gs2.Height {
		t.Fatalf("expected disaster_height updated, got %d", gs2.DisasterHeight)
	}
}

// original_source/src/game/move.cpp:229-254 (Move::ApplySpawn): a
// post-life-steal spawn's value is capped to the height's name-coin
// amount, not the move's full newLocked, and the overpay is credited
// to the game fund — driven through the real PerformStep pipeline
// (spawnNewPlayers), not a hand-built PlayerState.
func TestPerformStepSpawnSetsValuePostLifeSteal(t *testing.T) {
	params := &chainparams.Params{Forks: chainparams.ForkHeights{
		Poison: -1, LessHearts: -1, CarryCap: -1, LifeSteal: 0, Timesave: -1,
	}}
	prev := state.New()
	newLocked := 10 * state.COIN // comfortably above the post-life-steal spawn minimum (name-coin amount + 5 COIN).
	block := &chainio.Block{
		Hash:   [32]byte{21},
		Height: 1,
		Moves: []chainio.RawMove{
			{Name: "alice", Value: []byte(`{"color":0}`), NewLocked: newLocked},
		},
	}
	gs, _, err := PerformStep(prev, block, params, 0)
	if err != nil {
		t.Fatalf("PerformStep returned error: %v", err)
	}
	ps, ok := gs.Players["alice"]
	if !ok {
		t.Fatalf("expected alice to be spawned")
	}
	coinAmount := fork.NameCoinAmount(params, 1)
	if ps.Value != coinAmount {
		t.Fatalf("expected value capped to the name-coin amount %d, got %d", coinAmount, ps.Value)
	}
	if ps.LockedCoin != newLocked {
		t.Fatalf("expected locked coin to keep the full newLocked, got %d", ps.LockedCoin)
	}
	if gs.GameFund != newLocked-coinAmount {
		t.Fatalf("expected the overpay credited to the game fund, got game_fund=%d", gs.GameFund)
	}
}

// original_source/src/game/state.cpp:1763-1778 (PerformStep's fee-
// collection loop): a non-spawn move's locked-coin delta is paid into
// the game fund at the moment it is collected, not left inert in
// LockedCoin.
func TestPerformStepNonSpawnFeeCreditsGameFund(t *testing.T) {
	prev := state.New()
	prev.Players["alice"] = &state.PlayerState{
		Color: 0, LockedCoin: state.COIN, RemainingLife: -1,
		Characters: map[int]*state.CharacterState{
			0: {Coord: state.Coord{X: 50, Y: 50}, FromCoord: state.Coord{X: 50, Y: 50}},
		},
	}
	newLocked := 3 * state.COIN
	block := &chainio.Block{
		Hash:   [32]byte{22},
		Height: 1,
		Moves: []chainio.RawMove{
			{Name: "alice", Value: []byte(`{"0":{"destruct":false}}`), NewLocked: newLocked},
		},
	}
	gs, result, err := PerformStep(prev, block, noForksParams(), 0)
	if err != nil {
		t.Fatalf("PerformStep returned error: %v", err)
	}
	delta := newLocked - state.COIN
	if gs.GameFund != delta {
		t.Fatalf("expected the fee delta credited to the game fund, got game_fund=%d", gs.GameFund)
	}
	if gs.Players["alice"].LockedCoin != newLocked {
		t.Fatalf("expected locked coin updated to newLocked, got %d", gs.Players["alice"].LockedCoin)
	}
	if result.MoneyIn != delta {
		t.Fatalf("expected money_in = %d, got %d", delta, result.MoneyIn)
	}
}

// spec.md §8 concrete scenario 6: a conservation mismatch (a drop
// amount modified by +1 between money_in accumulation and the final
// compare) must be rejected, never silently persisted.
func TestAuditConservationTripwire(t *testing.T) {
	prev := state.New()
	prev.GameFund = 10 * state.COIN
	gs := state.New()
	gs.GameFund = 10 * state.COIN

	result := &StepResult{MoneyIn: 0} // nothing entered the game; the +1 below is unaccounted for.
	if err := auditConservation(prev, gs, result); err != nil {
		t.Fatalf("expected the conservation identity to hold before tampering: %v", err)
	}

	gs.GameFund += 1 // simulate a drop credited to the fund without matching money_in.
	if err := auditConservation(prev, gs, result); err == nil {
		t.Fatalf("expected an error once prev+treasure+money_in != after+money_out")
	}
}

// spec.md §8 invariant: every character's coordinate satisfies
// is_walkable after a spawn.
func TestPerformStepSpawnPlacesWalkableCharacters(t *testing.T) {
	prev := state.New()
	block := &chainio.Block{
		Hash:   [32]byte{9},
		Height: 1,
		Moves: []chainio.RawMove{
			{Name: "carol", Value: []byte(`{"color":1}`), NewLocked: state.COIN},
		},
	}
	gs, _, err := PerformStep(prev, block, &chainparams.MainNetParams, 0)
	if err != nil {
		t.Fatalf("PerformStep returned error: %v", err)
	}
	for idx, cs := range gs.Players["carol"].Characters {
		if !mapdata.IsWalkable(mapdata.Coord{X: cs.Coord.X, Y: cs.Coord.Y}) {
			t.Fatalf("character %d placed on non-walkable tile %+v", idx, cs.Coord)
		}
	}
}

// spec.md §8 invariant: post-life-steal, |banks| == 75 at every height.
func TestPerformStepBankCountAtLifeSteal(t *testing.T) {
	params := &chainparams.Params{Forks: chainparams.ForkHeights{
		Poison: -1, LessHearts: -1, CarryCap: -1, LifeSteal: 5, Timesave: -1,
	}}
	prev := state.New()
	prev.Height = 4
	block := &chainio.Block{Hash: [32]byte{11}, Height: 5}
	gs, _, err := PerformStep(prev, block, params, 0)
	if err != nil {
		t.Fatalf("PerformStep returned error: %v", err)
	}
	if len(gs.Banks) != bankCount {
		t.Fatalf("expected %d banks at the life-steal fork, got %d", bankCount, len(gs.Banks))
	}

	// Height 6: banks age by one and the board is replenished back up
	// to bankCount, so the invariant keeps holding one block later.
	block2 := &chainio.Block{Hash: [32]byte{12}, Height: 6}
	gs2, _, err := PerformStep(gs, block2, params, 0)
	if err != nil {
		t.Fatalf("PerformStep returned error: %v", err)
	}
	if len(gs2.Banks) != bankCount {
		t.Fatalf("expected %d banks one block after the fork, got %d", bankCount, len(gs2.Banks))
	}
}

// spec.md §8 invariant: a non-empty crown_holder always references an
// existing character.
func TestPerformStepCrownLivenessAfterHolderDeath(t *testing.T) {
	prev := state.New()
	prev.Players["alice"] = &state.PlayerState{
		Color: 0, LockedCoin: state.COIN, RemainingLife: -1,
		Characters: map[int]*state.CharacterState{
			0: {Coord: state.Coord{X: 10, Y: 10}},
		},
	}
	prev.Players["bob"] = &state.PlayerState{
		Color: 1, LockedCoin: state.COIN, RemainingLife: -1,
		Characters: map[int]*state.CharacterState{
			0: {Coord: state.Coord{X: 11, Y: 10}},
		},
	}
	prev.CrownCoord = state.Coord{X: 10, Y: 10}
	prev.CrownHolder = &state.CharacterId{Player: "alice", Index: 0}

	block := &chainio.Block{
		Hash:   [32]byte{13},
		Height: 1,
		Moves: []chainio.RawMove{
			{Name: "alice", Value: []byte(`{"0":{"destruct":true}}`), NewLocked: state.COIN},
			{Name: "bob", Value: []byte(`{"0":{"destruct":true}}`), NewLocked: state.COIN},
		},
	}
	gs, _, err := PerformStep(prev, block, noForksParams(), 0)
	if err != nil {
		t.Fatalf("PerformStep returned error: %v", err)
	}
	if gs.CrownHolder != nil {
		if _, ok := gs.Players[gs.CrownHolder.Player]; !ok {
			t.Fatalf("crown_holder %+v references a removed player", gs.CrownHolder)
		} else if _, ok := gs.Players[gs.CrownHolder.Player].Characters[gs.CrownHolder.Index]; !ok {
			t.Fatalf("crown_holder %+v references a removed character", gs.CrownHolder)
		}
	}
}

// spec.md §8 boundary behaviour: heart set becomes empty exactly at the
// life-steal fork height, and stays empty.
func TestPerformStepHeartsEmptyAtLifeStealFork(t *testing.T) {
	params := &chainparams.Params{Forks: chainparams.ForkHeights{
		Poison: -1, LessHearts: -1, CarryCap: -1, LifeSteal: 10, Timesave: -1,
	}}
	prev := state.New()
	prev.Height = 9
	prev.Hearts[state.Coord{X: 20, Y: 20}] = struct{}{}
	block := &chainio.Block{Hash: [32]byte{1}, Height: 10}
	gs, _, err := PerformStep(prev, block, params, 0)
	if err != nil {
		t.Fatalf("PerformStep returned error: %v", err)
	}
	if len(gs.Hearts) != 0 {
		t.Fatalf("expected hearts empty at life-steal fork height, got %+v", gs.Hearts)
	}
}

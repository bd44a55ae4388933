package engine

import (
	"github.com/domob1812/huntercore/internal/chainio"
	"github.com/domob1812/huntercore/internal/chainparams"
	"github.com/domob1812/huntercore/internal/combat"
	"github.com/domob1812/huntercore/internal/engerr"
	"github.com/domob1812/huntercore/internal/fork"
	"github.com/domob1812/huntercore/internal/mapdata"
	"github.com/domob1812/huntercore/internal/move"
	"github.com/domob1812/huntercore/internal/rng"
	"github.com/domob1812/huntercore/internal/state"
)

const (
	blocksPerDay    = 1440
	disasterMinGap  = blocksPerDay
	disasterMaxGap  = 12 * blocksPerDay
	maxSimultaneous = 20
	maxLifetime     = 1000
	minerTaxPct     = 10
	bankCount       = 75
	bankMinLifespan = 25
	bankMaxLifespan = 100
)

// initialCharacters implements spec §4.5 step 17's InitialCharacters(h).
func initialCharacters(p *chainparams.Params, height int32) int {
	if fork.Active(p, fork.Poison, height) {
		return 1
	}
	return 3
}

// PerformStep is the pure per-block state-transition function, spec
// §4.5. treasure is the caller-computed 9x block subsidy for this
// block. A zero block.Hash performs every step up to (not including)
// RNG-seeded behaviour and returns early, mirroring the chain's
// "compute tax with a provisional hash" calling convention (step 13).
//
// Note on ordering: steps 5 (spawn-area counter), 9 (apply waypoints)
// and 10 (movement) are evaluated together here rather than in their
// listed numeric order, because the spawn-area counter's "movement
// breaks protection" rule needs the post-movement coordinate — see
// DESIGN.md.
func PerformStep(prev *state.GameState, block *chainio.Block, params *chainparams.Params, treasure state.Amount) (*state.GameState, *StepResult, error) {
	parsed, err := parseAndValidateMoves(prev, block, params)
	if err != nil {
		return nil, nil, err
	}

	gs := prev.Clone()
	gs.Height = prev.Height + 1
	gs.BlockHash = block.Hash
	gs.DeadPlayersChat = nil
	preStepColor := make(map[state.PlayerId]int, len(prev.Players))
	for id, ps := range prev.Players {
		preStepColor[id] = ps.Color
	}

	result := &StepResult{Treasure: treasure}

	collectFees(gs, parsed, result)

	killedPlayers, tileIdx := resolveAttacks(gs, parsed, params, result)

	// steps 9+10: apply waypoints then move (reordered before step 5,
	// see doc comment above).
	applyWaypoints(gs, parsed)
	moveCharacters(gs, params)

	resolveSpawnAreaDeaths(gs, params, killedPlayers, result)
	resolvePoison(gs, killedPlayers)
	finalizeKills(gs, params, killedPlayers, result)

	if fork.ActivatesAt(params, fork.LifeSteal, gs.Height) {
		gs.Hearts = make(map[state.Coord]struct{})
		killAllHuntersAtLifeSteal(gs, params, result)
	}

	updateCrownHolder(gs)
	applyBanking(gs, params, result)

	if gs.BlockHash == ([32]byte{}) {
		return gs, result, nil
	}

	r := rng.New(gs.BlockHash)

	checkDisaster(gs, params, r)

	gs.GameFund += combat.DistributeDrawnLife(tileIdx, gs, params, gs.Height, r)

	spawnNewPlayers(gs, parsed, params, r)
	applyCommon(gs, parsed)
	refreshBountyAddresses(gs, result)
	colorDeadChat(gs, preStepColor)

	dropped := dropTreasure(gs, treasure, r)
	collectLoot(gs, params)
	bonus := crownBonusAmount(treasure)
	creditCrownBonus(gs, bonus)
	// spec §4.5 step 21's assertion (sum of drops + crown_bonus == T) only
	// holds up to the areas' integer-division rounding; any shortfall
	// stays in the in-game economy rather than vanishing from the audit.
	if leftover := treasure - dropped - bonus; leftover > 0 {
		gs.GameFund += leftover
	}
	updateBanks(gs, params, r)
	dropHeart(gs, params, r)
	collectHearts(gs, r)
	collectCrown(gs, r)

	if err := auditConservation(prev, gs, result); err != nil {
		return nil, nil, err
	}
	return gs, result, nil
}

func parseAndValidateMoves(prev *state.GameState, block *chainio.Block, params *chainparams.Params) ([]*move.Move, error) {
	parsed := make([]*move.Move, 0, len(block.Moves))
	seen := make(map[state.PlayerId]bool, len(block.Moves))
	for _, raw := range block.Moves {
		pid := state.PlayerId(raw.Name)
		if seen[pid] {
			return nil, &engerr.ParseError{Reason: "duplicate player name in block: " + raw.Name}
		}
		seen[pid] = true
		m, err := move.Parse(raw.Name, raw.Value, raw.NewLocked)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, m)
	}
	targetHeight := prev.Height + 1
	for _, m := range parsed {
		var oldLocked state.Amount
		if ps, ok := prev.Players[m.Player]; ok {
			oldLocked = ps.LockedCoin
		}
		if err := move.Validate(m, prev, targetHeight, params, oldLocked, nil); err != nil {
			return nil, err
		}
	}
	return parsed, nil
}

// collectFees implements spec §4.5 step 3: a non-spawn move's locked-
// coin delta is paid into the game fund immediately (a spawn's
// newLocked is credited separately, in spawnNewPlayers). LockedCoin is
// bookkeeping only — it is not part of the conserved total (see
// totalMoney) — so crediting GameFund here does not double-count it.
func collectFees(gs *state.GameState, parsed []*move.Move, result *StepResult) {
	for _, m := range parsed {
		if m.IsSpawn() {
			result.MoneyIn += m.NewLocked
			continue
		}
		ps := gs.Players[m.Player]
		delta := m.NewLocked - ps.LockedCoin
		result.MoneyIn += delta
		gs.GameFund += delta
		ps.LockedCoin = m.NewLocked
	}
}

// resolveAttacks implements spec §4.4 end-to-end (steps 1-4 of that
// section) plus §4.5 step 4: builds the tile index, applies every
// destruct move (skipping characters that no longer exist, the crown
// holder, or timesave spectators), cancels mutual attacks, draws life,
// and either records a player-kill (general) or immediately erases a
// killed hunter, crediting its loot.
func resolveAttacks(gs *state.GameState, parsed []*move.Move, params *chainparams.Params, result *StepResult) (map[state.PlayerId]state.KilledByInfo, *combat.TileIndex) {
	idx := combat.BuildTileIndex(gs, params, gs.Height)
	for _, m := range parsed {
		if m.IsSpawn() {
			continue
		}
		ps := gs.Players[m.Player]
		for cidx, cu := range m.Characters {
			if !cu.HasDestruct || !cu.Destruct {
				continue
			}
			cs, ok := ps.Characters[cidx]
			if !ok {
				continue
			}
			destructor := state.CharacterId{Player: m.Player, Index: cidx}
			if gs.CrownHolder != nil && *gs.CrownHolder == destructor {
				continue
			}
			if fork.Active(params, fork.Timesave, gs.Height) && IsSpectator(cs) {
				continue
			}
			idx.ApplyDestruct(params, gs.Height, destructor, cs.Coord, ps.Color, cidx == 0)
		}
	}
	combat.CancelMutualAttacks(idx, params, gs.Height)
	drawKills := combat.DrawLife(idx, gs, params, gs.Height)

	killedPlayers := make(map[state.PlayerId]state.KilledByInfo)
	for _, k := range drawKills {
		if k.Character.IsGeneral() {
			killedPlayers[k.Character.Player] = k.Info
			continue
		}
		ps := gs.Players[k.Character.Player]
		if ps == nil {
			continue
		}
		poisoned := ps.RemainingLife >= 0
		if b := ApplyKilledLoot(gs, params, gs.Height, k.Character, k.Info.Reason, poisoned); b != nil {
			result.Bounties = append(result.Bounties, *b)
			result.MoneyOut += b.Amount
		}
		delete(ps.Characters, k.Character.Index)
	}
	return killedPlayers, idx
}

// applyWaypoints implements spec §4.5 step 9.
func applyWaypoints(gs *state.GameState, parsed []*move.Move) {
	for _, m := range parsed {
		if m.IsSpawn() {
			continue
		}
		ps := gs.Players[m.Player]
		if ps == nil {
			continue
		}
		for idx, cu := range m.Characters {
			if !cu.HasWaypoints {
				continue
			}
			cs, ok := ps.Characters[idx]
			if !ok {
				continue
			}
			var prevFinal, newFinal state.Coord
			var hadPrev bool
			if len(cs.Waypoints) > 0 {
				prevFinal = cs.Waypoints[0]
				hadPrev = true
			}
			if len(cu.Waypoints) > 0 {
				newFinal = cu.Waypoints[0]
			}
			cs.Waypoints = cu.Waypoints
			if !hadPrev || prevFinal != newFinal {
				cs.FromCoord = cs.Coord
			}
		}
	}
}

// moveCharacters implements spec §4.5 step 10 and folds in the spec
// §4.7 spawn-area counter's movement-breaks-protection rule (see
// PerformStep's doc comment).
func moveCharacters(gs *state.GameState, params *chainparams.Params) {
	timesave := fork.Active(params, fork.Timesave, gs.Height)
	for _, pid := range gs.SortedPlayerIDs() {
		ps := gs.Players[pid]
		for _, idx := range ps.SortedCharacterIndices() {
			cs := ps.Characters[idx]
			if timesave && IsSpectator(cs) && len(cs.Waypoints) > 0 {
				cs.ClearWaypoints()
			}
			_, preSpawn := classifyTile(gs, cs.Coord)
			MoveTowardsWaypoint(cs)
			postBank, postSpawn := classifyTile(gs, cs.Coord)
			movedOut := preSpawn && !postSpawn
			UpdateSpawnAreaCounter(params, gs.Height, cs, postBank, postSpawn, movedOut)
		}
	}
}

// resolveSpawnAreaDeaths implements spec §4.5 step 5 / §4.7's death
// rule for the pre-timesave MaxStayOnBank overflow: a character whose
// bank-dwell counter exceeds MaxStayOnBank dies with reason SPAWN.
// Post-timesave it returns without killing anyone; no character dies
// of its spawn-area counter in that regime, and ExemptFromSpawnDeath
// is not consulted.
func resolveSpawnAreaDeaths(gs *state.GameState, params *chainparams.Params, killedPlayers map[state.PlayerId]state.KilledByInfo, result *StepResult) {
	if fork.Active(params, fork.Timesave, gs.Height) {
		return
	}
	maxStay := MaxStayOnBank(params, gs.Height)
	if maxStay < 0 {
		return
	}
	for _, pid := range gs.SortedPlayerIDs() {
		ps := gs.Players[pid]
		for _, idx := range ps.SortedCharacterIndices() {
			cs := ps.Characters[idx]
			if int32(cs.StayInSpawnArea) <= maxStay {
				continue
			}
			id := state.CharacterId{Player: pid, Index: idx}
			if id.IsGeneral() {
				killedPlayers[pid] = state.KilledByInfo{Reason: state.KillReasonSpawn}
				continue
			}
			poisoned := ps.RemainingLife >= 0
			if b := ApplyKilledLoot(gs, params, gs.Height, id, state.KillReasonSpawn, poisoned); b != nil {
				result.Bounties = append(result.Bounties, *b)
				result.MoneyOut += b.Amount
			}
			delete(ps.Characters, idx)
		}
	}
}

// resolvePoison implements spec §4.5 step 6: every player's poison
// countdown decrements; reaching zero kills the whole player.
func resolvePoison(gs *state.GameState, killedPlayers map[state.PlayerId]state.KilledByInfo) {
	for _, pid := range gs.SortedPlayerIDs() {
		ps := gs.Players[pid]
		if ps.RemainingLife <= 0 {
			continue
		}
		ps.RemainingLife--
		if ps.RemainingLife == 0 {
			killedPlayers[pid] = state.KilledByInfo{Reason: state.KillReasonPoison}
		}
	}
}

// finalizeKills implements spec §4.5 step 7: for every player killed
// this block (by any reason), drop loot for every remaining character,
// then erase the player.
func finalizeKills(gs *state.GameState, params *chainparams.Params, killedPlayers map[state.PlayerId]state.KilledByInfo, result *StepResult) {
	ids := make([]state.PlayerId, 0, len(killedPlayers))
	for pid := range killedPlayers {
		ids = append(ids, pid)
	}
	sortPlayerIDs(ids)
	for _, pid := range ids {
		ps, ok := gs.Players[pid]
		if !ok {
			continue
		}
		info := killedPlayers[pid]
		poisoned := ps.RemainingLife >= 0
		indices := ps.SortedCharacterIndices()
		for _, idx := range indices {
			id := state.CharacterId{Player: pid, Index: idx}
			if b := ApplyKilledLoot(gs, params, gs.Height, id, info.Reason, poisoned); b != nil {
				result.Bounties = append(result.Bounties, *b)
				result.MoneyOut += b.Amount
			}
		}
		result.Kills = append(result.Kills, PlayerKill{Player: pid, Info: info})
		delete(gs.Players, pid)
	}
}

func sortPlayerIDs(s []state.PlayerId) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// killAllHuntersAtLifeSteal implements spec §4.5 step 8: at the exact
// life-steal activation height, every non-general character is killed
// with reason POISON and no refund (refund never applies to a
// non-general anyway, so this is a plain erase+loot).
func killAllHuntersAtLifeSteal(gs *state.GameState, params *chainparams.Params, result *StepResult) {
	for _, pid := range gs.SortedPlayerIDs() {
		ps := gs.Players[pid]
		for _, idx := range ps.SortedCharacterIndices() {
			if idx == 0 {
				continue
			}
			id := state.CharacterId{Player: pid, Index: idx}
			poisoned := ps.RemainingLife >= 0
			if b := ApplyKilledLoot(gs, params, gs.Height, id, state.KillReasonPoison, poisoned); b != nil {
				result.Bounties = append(result.Bounties, *b)
			}
			delete(ps.Characters, idx)
		}
	}
}

// updateCrownHolder implements spec §4.5 step 11.
func updateCrownHolder(gs *state.GameState) {
	if gs.CrownHolder == nil {
		return
	}
	ps, ok := gs.Players[gs.CrownHolder.Player]
	if !ok {
		gs.CrownHolder = nil
		return
	}
	cs, ok := ps.Characters[gs.CrownHolder.Index]
	if !ok {
		gs.CrownHolder = nil
		return
	}
	if _, onBank := gs.Banks[cs.Coord]; onBank {
		gs.CrownHolder = nil
		gs.RespawnCrown = true
		return
	}
	gs.CrownCoord = cs.Coord
}

// applyBanking implements spec §4.5 step 12: depositing carried loot
// when standing on a bank (or, post-timesave, a player-spawn tile),
// minus the miner tax.
func applyBanking(gs *state.GameState, params *chainparams.Params, result *StepResult) {
	timesave := fork.Active(params, fork.Timesave, gs.Height)
	for _, pid := range gs.SortedPlayerIDs() {
		ps := gs.Players[pid]
		for _, idx := range ps.SortedCharacterIndices() {
			cs := ps.Characters[idx]
			if cs.Loot.Amount <= 0 {
				continue
			}
			_, onBank := gs.Banks[cs.Coord]
			onSpawnTile := timesave && mapdata.IsDedicatedPlayerSpawnTile(mapdata.Coord{X: cs.Coord.X, Y: cs.Coord.Y})
			if !onBank && !onSpawnTile {
				continue
			}
			amount := cs.Loot.Amount
			tax := amount * minerTaxPct / 100
			gs.GameFund += tax
			result.TaxCharged += tax
			payout := amount - tax
			result.Bounties = append(result.Bounties, Bounty{
				Player:              pid,
				CharacterIndex:      idx,
				Amount:              payout,
				LootFirstBlock:      cs.Loot.FirstBlock,
				LootLastBlock:       cs.Loot.LastBlock,
				CollectedFirstBlock: cs.Loot.CollectedFirstBlock,
				CollectedLastBlock:  cs.Loot.CollectedLastBlock,
			})
			result.MoneyOut += payout
			cs.Loot = state.CollectedLootInfo{}
		}
	}
}

// checkDisaster implements spec §4.5 step 15.
func checkDisaster(gs *state.GameState, params *chainparams.Params, r *rng.RNG) {
	if !fork.Active(params, fork.Poison, gs.Height) {
		return
	}
	gap := gs.Height - gs.DisasterHeight
	trigger := false
	switch {
	case gap >= disasterMaxGap:
		trigger = true
	case gap >= disasterMinGap:
		trigger = r.NextInRange(10000) == 0
	}
	if !trigger {
		return
	}
	for _, pid := range gs.SortedPlayerIDs() {
		gs.Players[pid].RemainingLife = int32(r.NextInRangeAB(1, 50))
	}
	if fork.Active(params, fork.LessHearts, gs.Height) {
		gs.Hearts = make(map[state.Coord]struct{})
	}
	gs.DisasterHeight = gs.Height
}

// spawnNewPlayers implements spec §4.5 step 17. Post-life-steal, a
// fresh player's value is capped to the height's name-coin amount (so
// overpaying newLocked cannot buy an arbitrarily beefed-up hunter);
// the overpay is credited straight to the game fund. Pre-life-steal,
// the full newLocked becomes the player's value, as the original
// overpay-to-value behaviour allowed.
func spawnNewPlayers(gs *state.GameState, parsed []*move.Move, params *chainparams.Params, r *rng.RNG) {
	count := initialCharacters(params, gs.Height)
	postLifeSteal := fork.Active(params, fork.LifeSteal, gs.Height)
	for _, m := range parsed {
		if !m.IsSpawn() {
			continue
		}
		ps := &state.PlayerState{
			Color:         m.Color,
			LockedCoin:    m.NewLocked,
			RemainingLife: -1,
			Characters:    make(map[int]*state.CharacterState),
		}
		if postLifeSteal {
			coinAmount := fork.NameCoinAmount(params, gs.Height)
			ps.Value = coinAmount
			gs.GameFund += m.NewLocked - coinAmount
		} else {
			ps.Value = m.NewLocked
		}
		gs.Players[m.Player] = ps
		for i := 0; i < count; i++ {
			spawnCharacter(gs, params, ps, r)
		}
	}
}

// spawnCharacter places one new character for ps, per spec §4.5 step
// 17's fork-dependent placement rule.
func spawnCharacter(gs *state.GameState, params *chainparams.Params, ps *state.PlayerState, r *rng.RNG) {
	if len(ps.Characters) >= maxSimultaneous || ps.NextCharacterIndex >= maxLifetime {
		return
	}
	idx := ps.NextCharacterIndex
	ps.NextCharacterIndex++

	coord := spawnCoord(params, gs.Height, ps.Color, r)
	ps.Characters[idx] = &state.CharacterState{
		Coord:           coord,
		FromCoord:       coord,
		Direction:       inwardDirection(ps.Color),
		StayInSpawnArea: 0,
	}
}

func spawnCoord(params *chainparams.Params, height int32, color int, r *rng.RNG) state.Coord {
	switch {
	case fork.Active(params, fork.Timesave, height):
		tiles := mapdata.DedicatedPlayerSpawnTiles()
		c := tiles[r.NextInRange(uint64(len(tiles)))]
		return state.Coord{X: c.X, Y: c.Y}
	case fork.Active(params, fork.LifeSteal, height):
		tiles := mapdata.WalkableTiles()
		c := tiles[r.NextInRange(uint64(len(tiles)))]
		return state.Coord{X: c.X, Y: c.Y}
	default:
		corner := mapdata.SpawnCorner(color)
		c := corner[r.NextInRange(uint64(len(corner)))]
		return state.Coord{X: c.X, Y: c.Y}
	}
}

// inwardDirection returns the keypad direction facing away from the
// colour's spawn corner, toward the map centre.
func inwardDirection(color int) state.Direction {
	switch color {
	case 0: // top-left
		return 3
	case 1: // top-right
		return 1
	case 2: // bottom-left
		return 9
	default: // bottom-right
		return 7
	}
}

// applyCommon implements spec §4.5 step 18.
func applyCommon(gs *state.GameState, parsed []*move.Move) {
	for _, m := range parsed {
		if m.IsSpawn() {
			continue
		}
		ps := gs.Players[m.Player]
		if ps == nil {
			continue
		}
		if m.Message != nil {
			ps.Message = *m.Message
			ps.MessageBlock = gs.Height
		}
		if m.Address != nil {
			ps.Address = *m.Address
		}
		if m.AddressLock != nil {
			ps.AddressLock = *m.AddressLock
		}
	}
}

// refreshBountyAddresses implements spec §4.5 step 19.
func refreshBountyAddresses(gs *state.GameState, result *StepResult) {
	for i := range result.Bounties {
		b := &result.Bounties[i]
		if ps, ok := gs.Players[b.Player]; ok && ps.Address != "" {
			b.Address = ps.Address
		}
	}
}

// colorDeadChat implements spec §4.5 step 20.
func colorDeadChat(gs *state.GameState, preStepColor map[state.PlayerId]int) {
	for i := range gs.DeadPlayersChat {
		entry := &gs.DeadPlayersChat[i]
		if c, ok := preStepColor[entry.Player]; ok {
			entry.Color = c
		}
	}
}

// dropTreasure implements spec §4.5 step 21, returning the total
// actually dropped (the sum of each area's floor-divided share, which
// can fall short of its exact 1/900 split by a few units of rounding).
func dropTreasure(gs *state.GameState, treasure state.Amount, r *rng.RNG) state.Amount {
	var total state.Amount
	for _, area := range mapdata.HarvestAreas() {
		if len(area.Coords) == 0 {
			continue
		}
		pick := area.Coords[r.NextInRange(uint64(len(area.Coords)))]
		amount := state.Amount(area.Portion) * treasure / 900
		total += amount
		c := state.Coord{X: pick.X, Y: pick.Y}
		if existing, ok := gs.Loot[c]; ok {
			existing.Amount += amount
			existing.LastBlock = gs.Height
		} else {
			gs.Loot[c] = &state.LootInfo{Amount: amount, FirstBlock: gs.Height, LastBlock: gs.Height}
		}
	}
	return total
}

// crownBonusAmount computes the crown's fixed per-block bonus.
func crownBonusAmount(treasure state.Amount) state.Amount {
	return 25 * treasure / 900
}

// carryingCapacity implements spec §4.5 step 22's capacity tiers.
func carryingCapacity(params *chainparams.Params, height int32, isGeneral, isCrownHolder bool) state.Amount {
	if isCrownHolder {
		return -1 // unlimited
	}
	switch {
	case fork.Active(params, fork.LifeSteal, height):
		return 100 * state.COIN
	case fork.Active(params, fork.LessHearts, height):
		return 2000 * state.COIN
	case fork.Active(params, fork.CarryCap, height):
		if isGeneral {
			return 50 * state.COIN
		}
		return 25 * state.COIN
	default:
		return -1 // unlimited pre-carrycap
	}
}

// isGhostPhased implements spec §4.5 step 22's post-timesave ghost rule.
func isGhostPhased(params *chainparams.Params, height int32, c state.Coord) bool {
	if !fork.Active(params, fork.Timesave, height) {
		return false
	}
	parity := (c.X % 2) + (c.Y % 2)
	switch {
	case height%500 >= 480:
		return true
	case height%500 >= 450:
		return parity > 0
	case height%500 >= 300:
		return parity > 1
	default:
		return false
	}
}

type lootCollector struct {
	id       state.CharacterId
	capacity state.Amount
}

// collectLoot implements spec §4.5 step 22.
func collectLoot(gs *state.GameState, params *chainparams.Params) {
	byTile := make(map[state.Coord][]lootCollector)
	for _, pid := range gs.SortedPlayerIDs() {
		ps := gs.Players[pid]
		for _, idx := range ps.SortedCharacterIndices() {
			cs := ps.Characters[idx]
			if _, hasLoot := gs.Loot[cs.Coord]; !hasLoot {
				continue
			}
			if isGhostPhased(params, gs.Height, cs.Coord) {
				continue
			}
			id := state.CharacterId{Player: pid, Index: idx}
			isHolder := gs.CrownHolder != nil && *gs.CrownHolder == id
			cap := carryingCapacity(params, gs.Height, idx == 0, isHolder)
			remaining := cap
			if cap >= 0 {
				remaining = cap - cs.Loot.Amount
				if remaining < 0 {
					remaining = 0
				}
			}
			byTile[cs.Coord] = append(byTile[cs.Coord], lootCollector{id: id, capacity: remaining})
		}
	}
	for _, coord := range gs.SortedLootCoords() {
		collectors := byTile[coord]
		if len(collectors) == 0 {
			continue
		}
		sortCollectors(collectors)
		loot := gs.Loot[coord]
		remainingCount := len(collectors)
		pool := loot.Amount
		for _, col := range collectors {
			share := pool / state.Amount(remainingCount)
			if col.capacity >= 0 && share > col.capacity {
				share = col.capacity
			}
			if share > 0 {
				creditLoot(gs, col.id, share, loot.FirstBlock, loot.LastBlock, gs.Height)
				pool -= share
				loot.Amount -= share
			}
			remainingCount--
		}
		if loot.Amount <= 0 {
			delete(gs.Loot, coord)
		}
	}
}

func creditLoot(gs *state.GameState, id state.CharacterId, amount state.Amount, firstBlock, lastBlock, height int32) {
	ps := gs.Players[id.Player]
	cs := ps.Characters[id.Index]
	if cs.Loot.Amount <= 0 {
		cs.Loot = state.CollectedLootInfo{
			LootInfo:            state.LootInfo{Amount: amount, FirstBlock: firstBlock, LastBlock: lastBlock},
			CollectedFirstBlock: height,
			CollectedLastBlock:  height,
		}
		return
	}
	cs.Loot.Amount += amount
	cs.Loot.LastBlock = lastBlock
	cs.Loot.CollectedLastBlock = height
}

// sortCollectors orders by (remaining_capacity ASC, player, index),
// spec §4.5 step 22.
func sortCollectors(c []lootCollector) {
	for i := 1; i < len(c); i++ {
		for j := i; j > 0 && collectorLess(c[j], c[j-1]); j-- {
			c[j-1], c[j] = c[j], c[j-1]
		}
	}
}

func collectorLess(a, b lootCollector) bool {
	if a.capacity != b.capacity {
		// unlimited (-1) sorts last: treat as +inf.
		if a.capacity < 0 {
			return false
		}
		if b.capacity < 0 {
			return true
		}
		return a.capacity < b.capacity
	}
	if a.id.Player != b.id.Player {
		return a.id.Player < b.id.Player
	}
	return a.id.Index < b.id.Index
}

// creditCrownBonus implements spec §4.5 step 23.
func creditCrownBonus(gs *state.GameState, bonus state.Amount) {
	if gs.CrownHolder == nil {
		gs.GameFund += bonus
		return
	}
	ps, ok := gs.Players[gs.CrownHolder.Player]
	if !ok {
		gs.GameFund += bonus
		return
	}
	if _, ok := ps.Characters[gs.CrownHolder.Index]; !ok {
		gs.GameFund += bonus
		return
	}
	creditLoot(gs, *gs.CrownHolder, bonus, gs.Height, gs.Height, gs.Height)
}

// updateBanks implements spec §4.5 step 24.
func updateBanks(gs *state.GameState, params *chainparams.Params, r *rng.RNG) {
	if !fork.Active(params, fork.LifeSteal, gs.Height) {
		return
	}
	if fork.ActivatesAt(params, fork.LifeSteal, gs.Height) {
		gs.Banks = make(map[state.Coord]int32)
		fillBanks(gs, mapdata.WalkableTiles(), r, bankCount)
		return
	}
	if fork.ActivatesAt(params, fork.Timesave, gs.Height) {
		gs.Banks = make(map[state.Coord]int32)
		fillBanks(gs, mapdata.DedicatedBankSpawnTiles(), r, bankCount)
		return
	}

	coords := gs.SortedBankCoords()
	for _, c := range coords {
		gs.Banks[c]--
		if gs.Banks[c] <= 0 {
			delete(gs.Banks, c)
		}
	}
	permitted := mapdata.WalkableTiles()
	if fork.Active(params, fork.Timesave, gs.Height) {
		permitted = mapdata.DedicatedBankSpawnTiles()
	}
	fillBanks(gs, permitted, r, bankCount-len(gs.Banks))
}

// fillBanks draws up to n fresh banks from permitted (excluding
// coords already present), lifespans in [25, 100], using the RNG in
// the fixed permitted-tile order (spec §4.5 step 24: "never use
// swap-with-last tricks").
func fillBanks(gs *state.GameState, permitted []mapdata.Coord, r *rng.RNG, n int) {
	if n <= 0 {
		return
	}
	var candidates []mapdata.Coord
	for _, c := range permitted {
		sc := state.Coord{X: c.X, Y: c.Y}
		if _, exists := gs.Banks[sc]; !exists {
			candidates = append(candidates, c)
		}
	}
	for len(candidates) > 0 && n > 0 {
		i := int(r.NextInRange(uint64(len(candidates))))
		c := candidates[i]
		candidates = append(candidates[:i], candidates[i+1:]...)
		sc := state.Coord{X: c.X, Y: c.Y}
		gs.Banks[sc] = int32(r.NextInRangeAB(bankMinLifespan, bankMaxLifespan))
		n--
	}
}

// dropHeart implements spec §4.5 step 25.
func dropHeart(gs *state.GameState, params *chainparams.Params, r *rng.RNG) {
	if !shouldDropHeart(params, gs.Height) {
		return
	}
	for {
		x := int(r.NextInRange(uint64(mapdata.MapWidth)))
		y := int(r.NextInRange(uint64(mapdata.MapHeight)))
		mc := mapdata.Coord{X: x, Y: y}
		if mapdata.IsWalkable(mc) && !mapdata.InOriginalSpawnArea(mc) {
			gs.Hearts[state.Coord{X: x, Y: y}] = struct{}{}
			return
		}
	}
}

func shouldDropHeart(params *chainparams.Params, height int32) bool {
	if fork.Active(params, fork.LifeSteal, height) {
		return false
	}
	if fork.Active(params, fork.LessHearts, height) {
		return height%500 == 0
	}
	return height%10 == 0
}

// collectHearts implements spec §4.5 step 26.
func collectHearts(gs *state.GameState, r *rng.RNG) {
	if len(gs.Hearts) == 0 {
		return
	}
	byTile := make(map[state.Coord][]state.PlayerId)
	for _, pid := range gs.SortedPlayerIDs() {
		ps := gs.Players[pid]
		for _, idx := range ps.SortedCharacterIndices() {
			cs := ps.Characters[idx]
			if _, onHeart := gs.Hearts[cs.Coord]; onHeart {
				// one entry per player per tile is enough to seed the draw
				list := byTile[cs.Coord]
				if len(list) == 0 || list[len(list)-1] != pid {
					byTile[cs.Coord] = append(list, pid)
				}
			}
		}
	}
	for _, coord := range gs.SortedHeartCoords() {
		candidates := byTile[coord]
		if len(candidates) == 0 {
			continue
		}
		taken := false
		for len(candidates) > 0 {
			i := int(r.NextInRange(uint64(len(candidates))))
			pid := candidates[i]
			candidates = append(candidates[:i], candidates[i+1:]...)
			ps := gs.Players[pid]
			if len(ps.Characters) >= maxSimultaneous || ps.NextCharacterIndex >= maxLifetime {
				continue
			}
			spawnCharacterAt(gs, ps, coord)
			taken = true
			break
		}
		if taken {
			delete(gs.Hearts, coord)
		}
	}
}

func spawnCharacterAt(gs *state.GameState, ps *state.PlayerState, coord state.Coord) {
	idx := ps.NextCharacterIndex
	ps.NextCharacterIndex++
	ps.Characters[idx] = &state.CharacterState{
		Coord:           coord,
		FromCoord:       coord,
		Direction:       inwardDirection(ps.Color),
		StayInSpawnArea: 0,
	}
}

// collectCrown implements spec §4.5 step 27.
func collectCrown(gs *state.GameState, r *rng.RNG) {
	if gs.CrownHolder != nil || !gs.RespawnCrown {
		return
	}
	candidates := mapdata.CrownSpawnCoords()
	pick := candidates[r.NextInRange(uint64(len(candidates)))]
	gs.CrownCoord = state.Coord{X: pick.X, Y: pick.Y}

	var onTile []state.CharacterId
	for _, pid := range gs.SortedPlayerIDs() {
		ps := gs.Players[pid]
		for _, idx := range ps.SortedCharacterIndices() {
			if ps.Characters[idx].Coord == gs.CrownCoord {
				onTile = append(onTile, state.CharacterId{Player: pid, Index: idx})
			}
		}
	}
	if len(onTile) == 0 {
		return
	}
	winner := onTile[r.NextInRange(uint64(len(onTile)))]
	gs.CrownHolder = &winner
	gs.RespawnCrown = false
}

// auditConservation implements spec §4.5 step 28.
func auditConservation(prev, gs *state.GameState, result *StepResult) error {
	before := totalMoney(prev)
	after := totalMoney(gs)
	if before+result.Treasure+result.MoneyIn != after+result.MoneyOut {
		return &engerr.EngineError{Reason: "conservation audit failed"}
	}
	return nil
}

// totalMoney sums every conserved money bucket: the game fund, on-map
// loot, and each player's value and carried loot. LockedCoin is
// bookkeeping only, not part of the conserved total — collectFees and
// spawnNewPlayers credit GameFund directly for every locked-coin
// change, so LockedCoin never needs to appear here.
func totalMoney(gs *state.GameState) state.Amount {
	var total state.Amount
	total += gs.GameFund
	for _, c := range gs.Loot {
		total += c.Amount
	}
	for _, ps := range gs.Players {
		total += ps.Value
		for _, cs := range ps.Characters {
			total += cs.Loot.Amount
		}
	}
	return total
}

// Package move implements the move parser & validator (spec.md §4.2):
// decoding a JSON move payload from a name-op output into a typed
// Move, and validating it against the previous GameState.
//
// Structurally grounded on a shared/protocol.MsgEnvelope pattern
// (parse an envelope, then dispatch on shape) and on
// hellsoul86-voxelcraft.ai's jsonschema-gated message parsing for the
// shape-gate step; per spec §9's design note, the legacy
// "color==0xFF means update" marker becomes the Kind sum type below.
package move

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/domob1812/huntercore/internal/chainparams"
	"github.com/domob1812/huntercore/internal/engerr"
	"github.com/domob1812/huntercore/internal/fork"
	"github.com/domob1812/huntercore/internal/mapdata"
	"github.com/domob1812/huntercore/internal/state"
)

// playerNameRegex is spec §3.1's PlayerId validity rule: no leading,
// trailing, or doubled spaces.
var playerNameRegex = regexp.MustCompile(`^([A-Za-z0-9_-]+ )*[A-Za-z0-9_-]+$`)

// ValidPlayerName reports whether name is a legal PlayerId.
func ValidPlayerName(name string) bool {
	if len(name) == 0 || len(name) > 255 {
		return false
	}
	return playerNameRegex.MatchString(name)
}

// Kind distinguishes the two move shapes (spec §9: a proper sum type
// replacing the legacy colour-sentinel marker).
type Kind int

const (
	KindSpawn Kind = iota
	KindUpdate
)

// CharacterUpdate is one character-index sub-object of an update move.
type CharacterUpdate struct {
	Waypoints    []state.Coord // already reversed: back() = next target
	HasWaypoints bool
	Destruct     bool
	HasDestruct  bool
}

// Move is the parsed, not-yet-validated move for one player in one
// block.
type Move struct {
	Player      state.PlayerId
	NewLocked   state.Amount
	Kind        Kind
	Color       int // valid only when Kind == KindSpawn
	Message     *string
	Address     *string
	AddressLock *string
	Characters  map[int]*CharacterUpdate
}

// IsSpawn reports whether this move registers a new player.
func (m *Move) IsSpawn() bool { return m.Kind == KindSpawn }

// Parse decodes and shape-validates a move payload. name is the
// name-op's name (the player id); raw is the JSON value; newLocked is
// the output's coin amount.
func Parse(name string, raw []byte, newLocked state.Amount) (*Move, error) {
	if !ValidPlayerName(name) {
		return nil, &engerr.ParseError{Reason: fmt.Sprintf("invalid player name %q", name)}
	}

	var generic any
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&generic); err != nil {
		return nil, &engerr.ParseError{Reason: "invalid JSON", Err: err}
	}
	obj, ok := generic.(map[string]any)
	if !ok {
		return nil, &engerr.ParseError{Reason: "move value must be a JSON object"}
	}
	if err := checkNoDuplicateTopLevelKeys(raw); err != nil {
		return nil, err
	}

	spawnSchema, updateSchema, err := schemas()
	if err != nil {
		return nil, &engerr.ParseError{Reason: "schema compilation failed", Err: err}
	}

	if isSpawnShape(obj) {
		if err := spawnSchema.Validate(generic); err != nil {
			return nil, &engerr.ParseError{Reason: "spawn move does not match schema", Err: err}
		}
		colorF, _ := obj["color"].(float64)
		return &Move{
			Player:    state.PlayerId(name),
			NewLocked: newLocked,
			Kind:      KindSpawn,
			Color:     int(colorF),
		}, nil
	}

	if err := updateSchema.Validate(generic); err != nil {
		return nil, &engerr.ParseError{Reason: "update move does not match schema", Err: err}
	}
	return parseUpdate(name, obj, newLocked)
}

// isSpawnShape reports whether obj looks like a spawn attempt: exactly
// one top-level key, "color".
func isSpawnShape(obj map[string]any) bool {
	if len(obj) != 1 {
		return false
	}
	_, ok := obj["color"]
	return ok
}

func parseUpdate(name string, obj map[string]any, newLocked state.Amount) (*Move, error) {
	m := &Move{
		Player:     state.PlayerId(name),
		NewLocked:  newLocked,
		Kind:       KindUpdate,
		Color:      0xFF,
		Characters: make(map[int]*CharacterUpdate),
	}
	if v, ok := obj["msg"]; ok {
		s, _ := v.(string)
		m.Message = &s
	}
	if v, ok := obj["address"]; ok {
		s, _ := v.(string)
		m.Address = &s
	}
	if v, ok := obj["addressLock"]; ok {
		s, _ := v.(string)
		m.AddressLock = &s
	}

	for key, v := range obj {
		if key == "msg" || key == "address" || key == "addressLock" {
			continue
		}
		idx, err := parseStrictIndex(key)
		if err != nil {
			return nil, &engerr.ParseError{Reason: fmt.Sprintf("bad character index key %q", key), Err: err}
		}
		sub, ok := v.(map[string]any)
		if !ok {
			return nil, &engerr.ParseError{Reason: fmt.Sprintf("character %d entry must be an object", idx)}
		}
		cu, err := parseCharacterUpdate(idx, sub)
		if err != nil {
			return nil, err
		}
		m.Characters[idx] = cu
	}
	return m, nil
}

// parseStrictIndex parses a decimal non-negative integer with no
// leading zeros (spec §4.2: "strict").
func parseStrictIndex(s string) (int, error) {
	if s == "0" {
		return 0, nil
	}
	if len(s) == 0 || s[0] == '0' {
		return 0, fmt.Errorf("leading zero or empty index %q", s)
	}
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("non-digit in index %q", s)
		}
		n = n*10 + int(r-'0')
	}
	return n, nil
}

func parseCharacterUpdate(idx int, sub map[string]any) (*CharacterUpdate, error) {
	cu := &CharacterUpdate{}
	if v, ok := sub["wp"]; ok {
		arr, ok := v.([]any)
		if !ok {
			return nil, &engerr.ParseError{Reason: fmt.Sprintf("character %d: wp must be an array", idx)}
		}
		if len(arr)%2 != 0 {
			return nil, &engerr.ParseError{Reason: fmt.Sprintf("character %d: wp must have even length", idx)}
		}
		nums := make([]int, len(arr))
		for i, e := range arr {
			f, ok := e.(float64)
			if !ok || f != float64(int(f)) {
				return nil, &engerr.ParseError{Reason: fmt.Sprintf("character %d: wp element must be an integer", idx)}
			}
			nums[i] = int(f)
		}
		pairCount := len(nums) / 2
		pairs := make([]state.Coord, pairCount)
		for i := 0; i < pairCount; i++ {
			pairs[i] = state.Coord{X: nums[2*i], Y: nums[2*i+1]}
		}
		for i := 1; i < len(pairs); i++ {
			if pairs[i] == pairs[i-1] {
				return nil, &engerr.ParseError{Reason: fmt.Sprintf("character %d: consecutive duplicate waypoint %v", idx, pairs[i])}
			}
		}
		for _, c := range pairs {
			if !mapdata.InMap(mapdata.Coord{X: c.X, Y: c.Y}) {
				return nil, &engerr.ParseError{Reason: fmt.Sprintf("character %d: waypoint %v out of map", idx, c)}
			}
		}
		// store reversed: back() (last element) is the next target.
		reversed := make([]state.Coord, pairCount)
		for i, c := range pairs {
			reversed[pairCount-1-i] = c
		}
		cu.Waypoints = reversed
		cu.HasWaypoints = true
	}
	if v, ok := sub["destruct"]; ok {
		b, _ := v.(bool)
		cu.Destruct = b
		cu.HasDestruct = true
	}
	return cu, nil
}

// checkNoDuplicateTopLevelKeys rejects a move whose raw JSON repeats a
// top-level key (spec §4.2's "distinct" requirement on character-index
// keys, and implicitly on every other top-level key); Go's
// map-based Unmarshal silently keeps only the last occurrence, so this
// must be checked against the token stream instead.
func checkNoDuplicateTopLevelKeys(raw []byte) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return &engerr.ParseError{Reason: "invalid JSON", Err: err}
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != '{' {
		return &engerr.ParseError{Reason: "move value must be a JSON object"}
	}
	seen := make(map[string]bool)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return &engerr.ParseError{Reason: "invalid JSON", Err: err}
		}
		key, _ := keyTok.(string)
		if seen[key] {
			return &engerr.ParseError{Reason: fmt.Sprintf("duplicate key %q", key)}
		}
		seen[key] = true
		var discard any
		if err := dec.Decode(&discard); err != nil {
			return &engerr.ParseError{Reason: "invalid JSON", Err: err}
		}
	}
	return nil
}

// MinimumGameFee implements spec §4.2's per-fork fee schedule,
// evaluated at the target block height (height+1 relative to the
// previous state's height).
func MinimumGameFee(p *chainparams.Params, height int32, isSpawn bool, destructCount int) state.Amount {
	if isSpawn {
		fee := fork.NameCoinAmount(p, height)
		switch {
		case fork.Active(p, fork.Timesave, height):
			fee += 1 * state.COIN
		case fork.Active(p, fork.LifeSteal, height):
			fee += 5 * state.COIN
		}
		return fee
	}
	var perDestruct state.Amount
	switch {
	case fork.Active(p, fork.Timesave, height):
		perDestruct = 1 * state.COIN
	case fork.Active(p, fork.LifeSteal, height):
		perDestruct = 20 * state.COIN
	}
	return state.Amount(destructCount) * perDestruct
}

// Validate checks a parsed move against the previous state (spec
// §4.2's Validity rules). oldLocked is the player's cached locked-coin
// amount (ignored for spawn moves). addressLockAuthorized, if non-nil,
// is called with the player's current addressLock when the move
// attempts an address change; it must report whether some input of
// the enclosing transaction was signed by it.
func Validate(
	m *Move,
	prev *state.GameState,
	targetHeight int32,
	params *chainparams.Params,
	oldLocked state.Amount,
	addressLockAuthorized func(currentAddressLock string) bool,
) error {
	existing, exists := prev.Players[m.Player]

	if m.IsSpawn() {
		if exists {
			return &engerr.ValidationError{Reason: fmt.Sprintf("player %q already exists, spawn move invalid", m.Player)}
		}
		fee := MinimumGameFee(params, targetHeight, true, 0)
		if m.NewLocked < fee {
			return &engerr.ValidationError{Reason: fmt.Sprintf("spawn game fee %d below minimum %d", m.NewLocked, fee)}
		}
		return nil
	}

	if !exists {
		return &engerr.ValidationError{Reason: fmt.Sprintf("update move for nonexistent player %q", m.Player)}
	}

	destructCount := 0
	for _, cu := range m.Characters {
		if cu.HasDestruct && cu.Destruct {
			destructCount++
		}
	}
	gameFee := m.NewLocked - oldLocked
	fee := MinimumGameFee(params, targetHeight, false, destructCount)
	if gameFee < fee {
		return &engerr.ValidationError{Reason: fmt.Sprintf("update game fee %d below minimum %d", gameFee, fee)}
	}

	if m.Address != nil && addressLockAuthorized != nil {
		if !addressLockAuthorized(existing.AddressLock) {
			return &engerr.ValidationError{Reason: "address change not authorised by addressLock"}
		}
	}
	return nil
}

package state

import "testing"

func sampleState() *GameState {
	s := New()
	s.Players["alice"] = &PlayerState{
		Color:              0,
		LockedCoin:         COIN,
		Value:              5 * COIN,
		NextCharacterIndex: 3,
		RemainingLife:      -1,
		Message:            "hi",
		Address:            "addr1",
		Characters: map[int]*CharacterState{
			0: {
				Coord:     Coord{X: 1, Y: 2},
				FromCoord: Coord{X: 0, Y: 0},
				Direction: 8,
				Waypoints: []Coord{{X: 5, Y: 5}, {X: 3, Y: 3}},
				Loot:      CollectedLootInfo{LootInfo: LootInfo{Amount: 42, FirstBlock: 1, LastBlock: 2}},
			},
		},
	}
	s.Players["bob"] = &PlayerState{Color: 1, Characters: map[int]*CharacterState{}}
	s.Loot[Coord{X: 10, Y: 10}] = &LootInfo{Amount: 7, FirstBlock: 3, LastBlock: 4}
	s.Hearts[Coord{X: 2, Y: 2}] = struct{}{}
	s.Banks[Coord{X: 3, Y: 3}] = 50
	s.CrownCoord = Coord{X: 9, Y: 9}
	s.CrownHolder = &CharacterId{Player: "alice", Index: 0}
	s.DeadPlayersChat = []DeadChatEntry{{Player: "carol", Message: "bye", Color: 2}}
	s.GameFund = 123456
	s.Height = 42
	s.DisasterHeight = 10
	s.BlockHash = [32]byte{1, 2, 3}
	return s
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	s := sampleState()
	b, err := s.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Height != s.Height || got.GameFund != s.GameFund || got.DisasterHeight != s.DisasterHeight {
		t.Fatalf("scalar fields mismatch: %+v vs %+v", got, s)
	}
	if len(got.Players) != len(s.Players) {
		t.Fatalf("player count mismatch")
	}
	a := got.Players["alice"]
	if a == nil || a.Value != 5*COIN || a.Characters[0].Coord != (Coord{X: 1, Y: 2}) {
		t.Fatalf("alice round-trip mismatch: %+v", a)
	}
	if len(a.Characters[0].Waypoints) != 2 || a.Characters[0].Waypoints[0] != (Coord{X: 5, Y: 5}) {
		t.Fatalf("waypoints round-trip mismatch: %+v", a.Characters[0].Waypoints)
	}
	if got.CrownHolder == nil || *got.CrownHolder != *s.CrownHolder {
		t.Fatalf("crown holder round-trip mismatch")
	}
	if got.Loot[Coord{X: 10, Y: 10}].Amount != 7 {
		t.Fatalf("loot round-trip mismatch")
	}
}

func TestEncodeDecodeEmptyCrownHolder(t *testing.T) {
	s := New()
	s.Height = 1
	b, err := s.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.CrownHolder != nil {
		t.Fatalf("expected nil crown holder, got %+v", got.CrownHolder)
	}
}

func TestCloneIsDeepCopy(t *testing.T) {
	s := sampleState()
	clone := s.Clone()
	clone.Players["alice"].Value = 999
	clone.Players["alice"].Characters[0].Coord = Coord{X: 99, Y: 99}
	clone.Loot[Coord{X: 10, Y: 10}].Amount = 999
	if s.Players["alice"].Value == 999 {
		t.Fatalf("clone shares PlayerState")
	}
	if s.Players["alice"].Characters[0].Coord == (Coord{X: 99, Y: 99}) {
		t.Fatalf("clone shares CharacterState")
	}
	if s.Loot[Coord{X: 10, Y: 10}].Amount == 999 {
		t.Fatalf("clone shares LootInfo")
	}
}

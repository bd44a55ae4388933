// Canonical binary encoding of GameState, spec.md §6 "Persisted state
// layout": field order players, dead-players-chat, loot, hearts,
// banks, crownPos, crownHolder-player, crownHolder-index (only if
// holder non-empty), game_fund, height, disaster_height, block_hash.
// Integers little-endian; amounts 64-bit signed LE; strings length-
// prefixed with CompactSize; containers length-prefixed and written in
// key-sorted order.
package state

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

func writeCompactSize(w io.Writer, n uint64) error {
	switch {
	case n < 0xfd:
		return binary.Write(w, binary.LittleEndian, uint8(n))
	case n <= 0xffff:
		if err := binary.Write(w, binary.LittleEndian, uint8(0xfd)); err != nil {
			return err
		}
		return binary.Write(w, binary.LittleEndian, uint16(n))
	case n <= 0xffffffff:
		if err := binary.Write(w, binary.LittleEndian, uint8(0xfe)); err != nil {
			return err
		}
		return binary.Write(w, binary.LittleEndian, uint32(n))
	default:
		if err := binary.Write(w, binary.LittleEndian, uint8(0xff)); err != nil {
			return err
		}
		return binary.Write(w, binary.LittleEndian, n)
	}
}

func readCompactSize(r io.Reader) (uint64, error) {
	var b uint8
	if err := binary.Read(r, binary.LittleEndian, &b); err != nil {
		return 0, err
	}
	switch b {
	case 0xfd:
		var v uint16
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return 0, err
		}
		return uint64(v), nil
	case 0xfe:
		var v uint32
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return 0, err
		}
		return uint64(v), nil
	case 0xff:
		var v uint64
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return 0, err
		}
		return v, nil
	default:
		return uint64(b), nil
	}
}

func writeString(w io.Writer, s string) error {
	if err := writeCompactSize(w, uint64(len(s))); err != nil {
		return err
	}
	_, err := w.Write([]byte(s))
	return err
}

func readString(r io.Reader) (string, error) {
	n, err := readCompactSize(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func writeCoord(w io.Writer, c Coord) error {
	if err := binary.Write(w, binary.LittleEndian, int64(c.X)); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, int64(c.Y))
}

func readCoord(r io.Reader) (Coord, error) {
	var x, y int64
	if err := binary.Read(r, binary.LittleEndian, &x); err != nil {
		return Coord{}, err
	}
	if err := binary.Read(r, binary.LittleEndian, &y); err != nil {
		return Coord{}, err
	}
	return Coord{X: int(x), Y: int(y)}, nil
}

func writeLootInfo(w io.Writer, l LootInfo) error {
	if err := binary.Write(w, binary.LittleEndian, l.Amount); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, l.FirstBlock); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, l.LastBlock)
}

func readLootInfo(r io.Reader) (LootInfo, error) {
	var l LootInfo
	if err := binary.Read(r, binary.LittleEndian, &l.Amount); err != nil {
		return l, err
	}
	if err := binary.Read(r, binary.LittleEndian, &l.FirstBlock); err != nil {
		return l, err
	}
	if err := binary.Read(r, binary.LittleEndian, &l.LastBlock); err != nil {
		return l, err
	}
	return l, nil
}

func writeCollectedLoot(w io.Writer, c CollectedLootInfo) error {
	if err := writeLootInfo(w, c.LootInfo); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, c.CollectedFirstBlock); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, c.CollectedLastBlock)
}

func readCollectedLoot(r io.Reader) (CollectedLootInfo, error) {
	var c CollectedLootInfo
	li, err := readLootInfo(r)
	if err != nil {
		return c, err
	}
	c.LootInfo = li
	if err := binary.Read(r, binary.LittleEndian, &c.CollectedFirstBlock); err != nil {
		return c, err
	}
	if err := binary.Read(r, binary.LittleEndian, &c.CollectedLastBlock); err != nil {
		return c, err
	}
	return c, nil
}

func writeCharacter(w io.Writer, c *CharacterState) error {
	if err := writeCoord(w, c.Coord); err != nil {
		return err
	}
	if err := writeCoord(w, c.FromCoord); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, int32(c.Direction)); err != nil {
		return err
	}
	if err := writeCompactSize(w, uint64(len(c.Waypoints))); err != nil {
		return err
	}
	for _, wp := range c.Waypoints {
		if err := writeCoord(w, wp); err != nil {
			return err
		}
	}
	if err := writeCollectedLoot(w, c.Loot); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, int32(c.StayInSpawnArea))
}

func readCharacter(r io.Reader) (*CharacterState, error) {
	c := &CharacterState{}
	var err error
	if c.Coord, err = readCoord(r); err != nil {
		return nil, err
	}
	if c.FromCoord, err = readCoord(r); err != nil {
		return nil, err
	}
	var dir int32
	if err := binary.Read(r, binary.LittleEndian, &dir); err != nil {
		return nil, err
	}
	c.Direction = Direction(dir)
	n, err := readCompactSize(r)
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < n; i++ {
		wp, err := readCoord(r)
		if err != nil {
			return nil, err
		}
		c.Waypoints = append(c.Waypoints, wp)
	}
	if c.Loot, err = readCollectedLoot(r); err != nil {
		return nil, err
	}
	var stay int32
	if err := binary.Read(r, binary.LittleEndian, &stay); err != nil {
		return nil, err
	}
	c.StayInSpawnArea = int(stay)
	return c, nil
}

func writePlayer(w io.Writer, id PlayerId, p *PlayerState) error {
	if err := writeString(w, string(id)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, int32(p.Color)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, p.LockedCoin); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, p.Value); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, int32(p.NextCharacterIndex)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, p.RemainingLife); err != nil {
		return err
	}
	if err := writeString(w, p.Message); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, p.MessageBlock); err != nil {
		return err
	}
	if err := writeString(w, p.Address); err != nil {
		return err
	}
	if err := writeString(w, p.AddressLock); err != nil {
		return err
	}
	indices := p.SortedCharacterIndices()
	if err := writeCompactSize(w, uint64(len(indices))); err != nil {
		return err
	}
	for _, idx := range indices {
		if err := binary.Write(w, binary.LittleEndian, int32(idx)); err != nil {
			return err
		}
		if err := writeCharacter(w, p.Characters[idx]); err != nil {
			return err
		}
	}
	return nil
}

func readPlayer(r io.Reader) (PlayerId, *PlayerState, error) {
	name, err := readString(r)
	if err != nil {
		return "", nil, err
	}
	p := &PlayerState{Characters: make(map[int]*CharacterState)}
	var color int32
	if err := binary.Read(r, binary.LittleEndian, &color); err != nil {
		return "", nil, err
	}
	p.Color = int(color)
	if err := binary.Read(r, binary.LittleEndian, &p.LockedCoin); err != nil {
		return "", nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &p.Value); err != nil {
		return "", nil, err
	}
	var nextIdx int32
	if err := binary.Read(r, binary.LittleEndian, &nextIdx); err != nil {
		return "", nil, err
	}
	p.NextCharacterIndex = int(nextIdx)
	if err := binary.Read(r, binary.LittleEndian, &p.RemainingLife); err != nil {
		return "", nil, err
	}
	if p.Message, err = readString(r); err != nil {
		return "", nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &p.MessageBlock); err != nil {
		return "", nil, err
	}
	if p.Address, err = readString(r); err != nil {
		return "", nil, err
	}
	if p.AddressLock, err = readString(r); err != nil {
		return "", nil, err
	}
	n, err := readCompactSize(r)
	if err != nil {
		return "", nil, err
	}
	for i := uint64(0); i < n; i++ {
		var idx int32
		if err := binary.Read(r, binary.LittleEndian, &idx); err != nil {
			return "", nil, err
		}
		ch, err := readCharacter(r)
		if err != nil {
			return "", nil, err
		}
		p.Characters[int(idx)] = ch
	}
	return PlayerId(name), p, nil
}

// Encode produces the canonical byte encoding of s.
func (s *GameState) Encode() ([]byte, error) {
	var buf bytes.Buffer
	ids := s.SortedPlayerIDs()
	if err := writeCompactSize(&buf, uint64(len(ids))); err != nil {
		return nil, err
	}
	for _, id := range ids {
		if err := writePlayer(&buf, id, s.Players[id]); err != nil {
			return nil, err
		}
	}
	if err := writeCompactSize(&buf, uint64(len(s.DeadPlayersChat))); err != nil {
		return nil, err
	}
	for _, d := range s.DeadPlayersChat {
		if err := writeString(&buf, string(d.Player)); err != nil {
			return nil, err
		}
		if err := writeString(&buf, d.Message); err != nil {
			return nil, err
		}
		if err := binary.Write(&buf, binary.LittleEndian, int32(d.Color)); err != nil {
			return nil, err
		}
	}
	lootCoords := s.SortedLootCoords()
	if err := writeCompactSize(&buf, uint64(len(lootCoords))); err != nil {
		return nil, err
	}
	for _, c := range lootCoords {
		if err := writeCoord(&buf, c); err != nil {
			return nil, err
		}
		if err := writeLootInfo(&buf, *s.Loot[c]); err != nil {
			return nil, err
		}
	}
	heartCoords := s.SortedHeartCoords()
	if err := writeCompactSize(&buf, uint64(len(heartCoords))); err != nil {
		return nil, err
	}
	for _, c := range heartCoords {
		if err := writeCoord(&buf, c); err != nil {
			return nil, err
		}
	}
	bankCoords := s.SortedBankCoords()
	if err := writeCompactSize(&buf, uint64(len(bankCoords))); err != nil {
		return nil, err
	}
	for _, c := range bankCoords {
		if err := writeCoord(&buf, c); err != nil {
			return nil, err
		}
		if err := binary.Write(&buf, binary.LittleEndian, s.Banks[c]); err != nil {
			return nil, err
		}
	}
	if err := writeCoord(&buf, s.CrownCoord); err != nil {
		return nil, err
	}
	holderName := PlayerId("")
	holderIdx := 0
	if s.CrownHolder != nil {
		holderName = s.CrownHolder.Player
		holderIdx = s.CrownHolder.Index
	}
	if err := writeString(&buf, string(holderName)); err != nil {
		return nil, err
	}
	if holderName != "" {
		if err := binary.Write(&buf, binary.LittleEndian, int32(holderIdx)); err != nil {
			return nil, err
		}
	}
	if err := binary.Write(&buf, binary.LittleEndian, s.GameFund); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, s.Height); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, s.DisasterHeight); err != nil {
		return nil, err
	}
	if _, err := buf.Write(s.BlockHash[:]); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses the canonical byte encoding into a new GameState.
func Decode(data []byte) (*GameState, error) {
	r := bytes.NewReader(data)
	s := New()
	nPlayers, err := readCompactSize(r)
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < nPlayers; i++ {
		id, p, err := readPlayer(r)
		if err != nil {
			return nil, fmt.Errorf("decode player %d: %w", i, err)
		}
		s.Players[id] = p
	}
	nChat, err := readCompactSize(r)
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < nChat; i++ {
		name, err := readString(r)
		if err != nil {
			return nil, err
		}
		msg, err := readString(r)
		if err != nil {
			return nil, err
		}
		var color int32
		if err := binary.Read(r, binary.LittleEndian, &color); err != nil {
			return nil, err
		}
		s.DeadPlayersChat = append(s.DeadPlayersChat, DeadChatEntry{
			Player: PlayerId(name), Message: msg, Color: int(color),
		})
	}
	nLoot, err := readCompactSize(r)
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < nLoot; i++ {
		c, err := readCoord(r)
		if err != nil {
			return nil, err
		}
		li, err := readLootInfo(r)
		if err != nil {
			return nil, err
		}
		s.Loot[c] = &li
	}
	nHearts, err := readCompactSize(r)
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < nHearts; i++ {
		c, err := readCoord(r)
		if err != nil {
			return nil, err
		}
		s.Hearts[c] = struct{}{}
	}
	nBanks, err := readCompactSize(r)
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < nBanks; i++ {
		c, err := readCoord(r)
		if err != nil {
			return nil, err
		}
		var life int32
		if err := binary.Read(r, binary.LittleEndian, &life); err != nil {
			return nil, err
		}
		s.Banks[c] = life
	}
	if s.CrownCoord, err = readCoord(r); err != nil {
		return nil, err
	}
	holderName, err := readString(r)
	if err != nil {
		return nil, err
	}
	if holderName != "" {
		var idx int32
		if err := binary.Read(r, binary.LittleEndian, &idx); err != nil {
			return nil, err
		}
		s.CrownHolder = &CharacterId{Player: PlayerId(holderName), Index: int(idx)}
	}
	if err := binary.Read(r, binary.LittleEndian, &s.GameFund); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &s.Height); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &s.DisasterHeight); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(r, s.BlockHash[:]); err != nil {
		return nil, err
	}
	return s, nil
}

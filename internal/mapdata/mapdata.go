// Package mapdata holds the immutable map & terrain tables spec.md §2
// describes as a leaf component: map dimensions, the obstacle
// predicate, harvest-area coordinate lists, crown-respawn locations
// and the post-timesave player/bank spawn-tile classification.
//
// The real Huntercoin map bitmap is production art shipped with the
// reference client, not something derivable from spec.md's prose; the
// obstacle layout below is a deterministic placeholder generator (the
// walkable-tile set is non-empty and sorted; the crown table avoids the
// corner spawn areas and the dedicated bank tiles) without claiming to
// reproduce the shipped map pixel-for-pixel.
// See DESIGN.md.
//
// internal/state.Coord is not imported here to avoid a cycle; mapdata
// defines its own Coord and internal/state's Coord is defined to be
// bit-compatible (same field order), so callers convert trivially.
package mapdata

import "sort"

// Coord is a signed (x, y) map coordinate.
type Coord struct {
	X, Y int
}

// Less orders coordinates lexicographically by (y, x) per spec §3.1.
func (c Coord) Less(o Coord) bool {
	if c.Y != o.Y {
		return c.Y < o.Y
	}
	return c.X < o.X
}

const (
	MapWidth  = 120
	MapHeight = 120

	// SpawnCornerSize is the side length of each colour's spawn corner,
	// matching spec scenario 1 (coord.x, coord.y in [0, 14]).
	SpawnCornerSize = 15
)

// InMap reports whether c lies within the map bounds.
func InMap(c Coord) bool {
	return c.X >= 0 && c.X < MapWidth && c.Y >= 0 && c.Y < MapHeight
}

// obstacle is the placeholder terrain predicate: the outer ring is a
// wall, and a sparse deterministic pillar pattern fills the interior,
// clear of every corner spawn area.
func obstacle(c Coord) bool {
	if c.X == 0 || c.Y == 0 || c.X == MapWidth-1 || c.Y == MapHeight-1 {
		return true
	}
	for _, corner := range spawnCornerBoxes() {
		if withinBox(c, corner) {
			return false
		}
	}
	h := uint32(c.X)*2654435761 ^ uint32(c.Y)*2246822519
	return h%37 == 0
}

// IsWalkable reports whether a character may stand on c: in-map and
// not an obstacle tile.
func IsWalkable(c Coord) bool {
	return InMap(c) && !obstacle(c)
}

type box struct{ x0, y0, x1, y1 int }

func withinBox(c Coord, b box) bool {
	return c.X >= b.x0 && c.X <= b.x1 && c.Y >= b.y0 && c.Y <= b.y1
}

// spawnCornerBoxes returns the four colour spawn corners in colour
// order 0..3 (yellow, red, green, blue — matching spec scenario 1's
// "yellow corner" for colour 0).
func spawnCornerBoxes() []box {
	s := SpawnCornerSize
	return []box{
		{0, 0, s - 1, s - 1},                                 // 0: top-left ("yellow")
		{MapWidth - s, 0, MapWidth - 1, s - 1},                // 1: top-right
		{0, MapHeight - s, s - 1, MapHeight - 1},              // 2: bottom-left
		{MapWidth - s, MapHeight - s, MapWidth - 1, MapHeight - 1}, // 3: bottom-right
	}
}

// SpawnCorner returns the sorted walkable coordinates of colour c's
// spawn corner (pre-life-steal spawn placement, spec §4.5 step 17).
func SpawnCorner(color int) []Coord {
	boxes := spawnCornerBoxes()
	if color < 0 || color >= len(boxes) {
		color = 0
	}
	b := boxes[color]
	var out []Coord
	for y := b.y0; y <= b.y1; y++ {
		for x := b.x0; x <= b.x1; x++ {
			c := Coord{X: x, Y: y}
			if IsWalkable(c) {
				out = append(out, c)
			}
		}
	}
	sortCoords(out)
	return out
}

// InOriginalSpawnArea reports whether c lies in any colour's original
// (pre-life-steal) spawn corner — used by heart drop (spec §4.5 step
// 25: hearts never drop in the original spawn area) regardless of
// which fork regime is currently active.
func InOriginalSpawnArea(c Coord) bool {
	for _, b := range spawnCornerBoxes() {
		if withinBox(c, b) {
			return true
		}
	}
	return false
}

func sortCoords(cs []Coord) {
	sort.Slice(cs, func(i, j int) bool { return cs[i].Less(cs[j]) })
}

// walkableTiles is the lazily-initialised, read-only, coord-sorted
// table of every walkable tile (spec §9 design note: random selection
// over this set must be order-independent across implementations).
var walkableTiles []Coord

// WalkableTiles returns the full sorted walkable-tile table.
func WalkableTiles() []Coord {
	if walkableTiles == nil {
		for y := 0; y < MapHeight; y++ {
			for x := 0; x < MapWidth; x++ {
				c := Coord{X: x, Y: y}
				if IsWalkable(c) {
					walkableTiles = append(walkableTiles, c)
				}
			}
		}
	}
	return walkableTiles
}

// borderBankCoords is the fixed 29x4-3 pre-life-steal bank ring (spec
// §3.2, §3.3 invariant 2): a 29-long strip walked along each of the
// four map edges just inside the outer wall, sharing three corner
// cells between adjacent strips (the historical off-by-one spec §3.3
// calls out explicitly), giving 29*4-3 = 113 coordinates.
var borderBankCoords []Coord

// BorderBankCoords returns the fixed pre-life-steal bank set.
func BorderBankCoords() []Coord {
	if borderBankCoords != nil {
		return borderBankCoords
	}
	const stripLen = 29
	const inset = 1
	seen := make(map[Coord]bool)
	add := func(c Coord) {
		if !seen[c] {
			seen[c] = true
			borderBankCoords = append(borderBankCoords, c)
		}
	}
	// top edge
	for i := 0; i < stripLen; i++ {
		add(Coord{X: inset + i, Y: inset})
	}
	// right edge, continuing from the top-right corner (shared cell)
	topRight := Coord{X: inset + stripLen - 1, Y: inset}
	for i := 0; i < stripLen; i++ {
		c := Coord{X: topRight.X, Y: inset + i}
		add(c)
	}
	// bottom edge, continuing from the bottom-right corner (shared cell)
	bottomRight := Coord{X: topRight.X, Y: inset + stripLen - 1}
	for i := 0; i < stripLen; i++ {
		add(Coord{X: bottomRight.X - i, Y: bottomRight.Y})
	}
	// left edge, continuing from the bottom-left corner (shared cell),
	// stopping one short of the top-left corner (already added).
	bottomLeft := Coord{X: bottomRight.X - stripLen + 1, Y: bottomRight.Y}
	for i := 0; i < stripLen-1; i++ {
		add(Coord{X: bottomLeft.X, Y: bottomLeft.Y - i})
	}
	sortCoords(borderBankCoords)
	return borderBankCoords
}

// dedicatedBankSpawnTiles / dedicatedPlayerSpawnTiles are the
// post-timesave classification of spawn tiles (spec §2, §4.5 step 17,
// §4.7): two disjoint, deterministic subsets of WalkableTiles,
// partitioned by a fixed modulus so the split is stable across runs.
var dedicatedBankSpawnTiles, dedicatedPlayerSpawnTiles []Coord

func classifyDedicatedSpawnTiles() {
	if dedicatedBankSpawnTiles != nil || dedicatedPlayerSpawnTiles != nil {
		return
	}
	for _, c := range WalkableTiles() {
		if InOriginalSpawnArea(c) {
			continue
		}
		h := uint32(c.X)*83492791 ^ uint32(c.Y)*2654435761
		switch {
		case h%211 == 0:
			dedicatedBankSpawnTiles = append(dedicatedBankSpawnTiles, c)
		case h%211 == 1:
			dedicatedPlayerSpawnTiles = append(dedicatedPlayerSpawnTiles, c)
		}
	}
}

// DedicatedBankSpawnTiles returns the post-timesave bank-tile set (the
// permitted tile set banks are (re)drawn from, spec §4.5 step 24).
func DedicatedBankSpawnTiles() []Coord {
	classifyDedicatedSpawnTiles()
	return dedicatedBankSpawnTiles
}

// DedicatedPlayerSpawnTiles returns the post-timesave player-spawn-tile
// set (spec §4.5 step 17, §4.7 spawn-area counter, §4.6 drop-tile rule).
func DedicatedPlayerSpawnTiles() []Coord {
	classifyDedicatedSpawnTiles()
	return dedicatedPlayerSpawnTiles
}

// IsDedicatedBankTile / IsDedicatedPlayerSpawnTile give O(1)-ish
// membership via a lazily built set; both tables are small enough
// (bounded by WalkableTiles) that a map is the right structure.
var bankTileSet, playerSpawnTileSet map[Coord]bool

func buildSpawnSets() {
	if bankTileSet != nil {
		return
	}
	bankTileSet = make(map[Coord]bool)
	for _, c := range DedicatedBankSpawnTiles() {
		bankTileSet[c] = true
	}
	playerSpawnTileSet = make(map[Coord]bool)
	for _, c := range DedicatedPlayerSpawnTiles() {
		playerSpawnTileSet[c] = true
	}
}

func IsDedicatedBankTile(c Coord) bool {
	buildSpawnSets()
	return bankTileSet[c]
}

func IsDedicatedPlayerSpawnTile(c Coord) bool {
	buildSpawnSets()
	return playerSpawnTileSet[c]
}

// HarvestArea is one of the 18 treasure-drop regions (spec §4.5 step
// 21). Portion is this area's share of the 900ths the treasure amount
// is divided into.
type HarvestArea struct {
	Coords  []Coord
	Portion int
}

// harvestAreas partitions a band of the map into 18 disjoint
// rectangular regions. Portions sum to 875 so that, with the fixed
// 25-portion crown bonus, the total is exactly 900 (spec step 21's
// assertion: sum of drops + crown_bonus = T).
var harvestAreas []HarvestArea

// HarvestAreas returns the 18 harvest areas in a fixed order.
func HarvestAreas() []HarvestArea {
	if harvestAreas != nil {
		return harvestAreas
	}
	portions := [18]int{130, 70, 65, 60, 55, 50, 48, 46, 44, 42, 40, 38, 36, 34, 32, 30, 28, 27}
	sum := 0
	for _, p := range portions {
		sum += p
	}
	if sum != 875 {
		panic("mapdata: harvest portions must sum to 875")
	}
	regionSize := 6
	perRow := 6
	startX, startY := 10, 10
	gap := 8
	for i := 0; i < 18; i++ {
		row := i / perRow
		col := i % perRow
		x0 := startX + col*(regionSize+gap)
		y0 := startY + row*(regionSize+gap)
		var coords []Coord
		for y := y0; y < y0+regionSize; y++ {
			for x := x0; x < x0+regionSize; x++ {
				c := Coord{X: x, Y: y}
				if IsWalkable(c) {
					coords = append(coords, c)
				}
			}
		}
		sortCoords(coords)
		harvestAreas = append(harvestAreas, HarvestArea{Coords: coords, Portion: portions[i]})
	}
	return harvestAreas
}

// crownSpawnCoords is the fixed table of 416 candidate crown-respawn
// locations (spec §4.5 step 27), a deterministic subsample of the
// walkable tile set excluding original spawn areas and bank tiles.
var crownSpawnCoords []Coord

// CrownSpawnCoords returns the 416 crown-respawn candidate locations.
func CrownSpawnCoords() []Coord {
	if crownSpawnCoords != nil {
		return crownSpawnCoords
	}
	const want = 416
	for _, c := range WalkableTiles() {
		if InOriginalSpawnArea(c) || IsDedicatedBankTile(c) {
			continue
		}
		crownSpawnCoords = append(crownSpawnCoords, c)
		if len(crownSpawnCoords) == want {
			break
		}
	}
	if len(crownSpawnCoords) != want {
		panic("mapdata: fewer than 416 eligible crown-spawn tiles generated")
	}
	return crownSpawnCoords
}

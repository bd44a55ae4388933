package engine

import (
	"github.com/domob1812/huntercore/internal/mapdata"
	"github.com/domob1812/huntercore/internal/state"
)

// MoveTowardsWaypoint advances c one step toward its next waypoint
// using the discrete line algorithm (spec §4.3). A no-op if c has no
// waypoints.
func MoveTowardsWaypoint(c *state.CharacterState) {
	target, ok := c.NextWaypoint()
	if !ok {
		return
	}

	newCoord, dir := stepToward(c.FromCoord, c.Coord, target)
	if !mapdata.IsWalkable(mapdata.Coord{X: newCoord.X, Y: newCoord.Y}) {
		c.ClearWaypoints()
		return
	}
	if dir != state.DirectionStopped {
		c.Direction = dir
	}
	c.Coord = newCoord

	if newCoord != target {
		return
	}
	c.PopWaypoint()
	// "repeat while waypoints.back()==coord": waypoints already reached
	// are popped without consuming another movement step this block.
	for {
		next, ok := c.NextWaypoint()
		if !ok || next != c.Coord {
			return
		}
		c.PopWaypoint()
	}
}

// stepToward computes one L-infinity unit of movement from coord
// toward target, interpolating the minor axis from the from/target
// line (spec §4.3's discrete line algorithm), and the keypad-encoded
// direction of that step.
func stepToward(from, coord, target state.Coord) (state.Coord, state.Direction) {
	dx := target.X - from.X
	dy := target.Y - from.Y

	var newX, newY int
	switch {
	case absInt(dx) > absInt(dy):
		newX = step1(coord.X, target.X)
		newY = from.Y + roundDiv((newX-from.X)*dy, dx)
	case absInt(dy) > 0:
		newY = step1(coord.Y, target.Y)
		newX = from.X + roundDiv((newY-from.Y)*dx, dy)
	default:
		newX, newY = target.X, target.Y
	}

	dirX := signInt(newX - coord.X)
	dirY := signInt(newY - coord.Y)
	return state.Coord{X: newX, Y: newY}, keypadDirection(dirX, dirY)
}

// step1 moves by exactly one unit toward target, or stays if already
// there.
func step1(cur, target int) int {
	switch {
	case cur < target:
		return cur + 1
	case cur > target:
		return cur - 1
	default:
		return cur
	}
}

// roundDiv computes num/den rounded to nearest, ties rounding away
// from zero, with the result's sign matching num/den's combined sign
// (spec §4.3: "(|t| + |dx|/2) / |dx| with sign of t").
func roundDiv(num, den int) int {
	if den == 0 {
		return 0
	}
	an, ad := absInt(num), absInt(den)
	mag := (an + ad/2) / ad
	if (num < 0) != (den < 0) {
		return -mag
	}
	return mag
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func signInt(x int) int {
	switch {
	case x < 0:
		return -1
	case x > 0:
		return 1
	default:
		return 0
	}
}

// keypadDirection maps a (-1|0|1, -1|0|1) delta to the 1-9 telephone-
// keypad encoding spec §3.1 uses (8=up, 2=down, 4=left, 6=right,
// 5=stopped).
func keypadDirection(dx, dy int) state.Direction {
	table := [3][3]state.Direction{
		{7, 8, 9}, // dy == -1 (up)
		{4, 5, 6}, // dy == 0
		{1, 2, 3}, // dy == 1 (down)
	}
	return table[dy+1][dx+1]
}

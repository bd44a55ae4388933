// Package fork collapses the inheritance hierarchy of per-fork rule
// classes mentioned in spec.md §9 into a single oracle function,
// parameterised over the chainparams fork-height table.
package fork

import "github.com/domob1812/huntercore/internal/chainparams"

// Fork names one of the five consensus rule changes the engine must
// branch on.
type Fork int

const (
	Poison Fork = iota
	LessHearts
	CarryCap
	LifeSteal
	Timesave
)

func (f Fork) name() string {
	switch f {
	case Poison:
		return "poison"
	case LessHearts:
		return "lesshearts"
	case CarryCap:
		return "carrycap"
	case LifeSteal:
		return "lifesteal"
	case Timesave:
		return "timesave"
	default:
		return ""
	}
}

// Active reports whether fork f is active at height for the given
// network params. A fork is active at and after its activation height.
func Active(p *chainparams.Params, f Fork, height int32) bool {
	h := p.HeightFor(f.name())
	if h < 0 {
		return false
	}
	return height >= h
}

// ActivatesAt reports whether height is exactly the activation height
// of f — used by the handful of one-time transition steps in spec §4.5
// (life-steal heart wipe, timesave bank re-draw) that must fire once.
func ActivatesAt(p *chainparams.Params, f Fork, height int32) bool {
	h := p.HeightFor(f.name())
	return h >= 0 && height == h
}

// NameCoinAmount implements spec §4.2's NameCoinAmount(h) schedule.
func NameCoinAmount(p *chainparams.Params, height int32) int64 {
	const coin = 1_00000000
	switch {
	case Active(p, Timesave, height):
		return 100 * coin
	case Active(p, LessHearts, height):
		return 200 * coin
	case Active(p, Poison, height):
		return 10 * coin
	default:
		return 1 * coin
	}
}

// Package chainparams describes the three named Huntercoin network
// profiles (production, public-test, regression-test). Only the
// fork-height table and the network-type tag are consumed by the
// engine; genesis hash and PoW limits are carried for completeness
// (a caller outside the engine's scope needs them) but the engine
// itself never touches PoW difficulty.
//
// Shaped after rony4d-go-opera-asset/opera/rules.go and
// opera/genesis/config.go: a handful of named struct literals, one per
// network, instead of a runtime-configurable rules object.
package chainparams

// Network identifies which of the three Huntercoin profiles a set of
// parameters describes.
type Network int

const (
	Main Network = iota
	Test
	Regtest
)

func (n Network) String() string {
	switch n {
	case Main:
		return "main"
	case Test:
		return "test"
	case Regtest:
		return "regtest"
	default:
		return "unknown"
	}
}

// ForkHeights gives the activation height of each named fork for a
// network. A height of 0 means "active from genesis"; a negative
// height (used by hand-built test params to keep certain forks
// inactive; none of the three profiles below uses one) means "never".
type ForkHeights struct {
	Poison     int32
	LessHearts int32
	CarryCap   int32
	LifeSteal  int32
	Timesave   int32
}

// Params is the full profile for one network.
type Params struct {
	Network     Network
	GenesisHash [32]byte
	Forks       ForkHeights
}

// heightFor returns the height at which the given fork name activates.
// (internal/fork re-exports the named comparisons; this just carries
// the table.)
func (p *Params) heightFor(name string) int32 {
	switch name {
	case "poison":
		return p.Forks.Poison
	case "lesshearts":
		return p.Forks.LessHearts
	case "carrycap":
		return p.Forks.CarryCap
	case "lifesteal":
		return p.Forks.LifeSteal
	case "timesave":
		return p.Forks.Timesave
	default:
		return -1
	}
}

// HeightFor exposes heightFor to internal/fork without creating an
// import cycle (fork imports chainparams, not the reverse).
func (p *Params) HeightFor(name string) int32 { return p.heightFor(name) }

// MainNetParams are the production Huntercoin network parameters.
var MainNetParams = Params{
	Network: Main,
	Forks: ForkHeights{
		Poison:     212500,
		LessHearts: 372500,
		CarryCap:   372500,
		LifeSteal:  442000,
		Timesave:   555000,
	},
}

// TestNetParams are the public test network parameters. Test networks
// activate forks much earlier so they can be exercised without
// replaying hundreds of thousands of blocks.
var TestNetParams = Params{
	Network: Test,
	Forks: ForkHeights{
		Poison:     500,
		LessHearts: 1000,
		CarryCap:   1000,
		LifeSteal:  1500,
		Timesave:   2000,
	},
}

// RegtestParams are the regression-test network parameters: every
// fork is active from genesis except where a particular test
// explicitly wants to exercise pre-fork behaviour (done by
// constructing a modified copy, not by mutating this value).
var RegtestParams = Params{
	Network: Regtest,
	Forks: ForkHeights{
		Poison:     0,
		LessHearts: 0,
		CarryCap:   0,
		LifeSteal:  0,
		Timesave:   0,
	},
}

// ForNetwork returns the canonical Params for a network tag.
func ForNetwork(n Network) *Params {
	switch n {
	case Main:
		return &MainNetParams
	case Test:
		return &TestNetParams
	case Regtest:
		return &RegtestParams
	default:
		return &MainNetParams
	}
}

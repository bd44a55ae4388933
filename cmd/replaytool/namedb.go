package main

import (
	"fmt"

	"github.com/domob1812/huntercore/internal/chainio"
	"github.com/domob1812/huntercore/internal/state"
)

// syntheticNameDb stands in for the containing chain's real name
// database: every player name resolves to a deterministic, made-up
// outpoint and payout address, since this tool has no UTXO set to
// consult. Good enough to exercise internal/gametx's script-building
// logic; never meant to resolve a real payout.
type syntheticNameDb struct{}

func (syntheticNameDb) GetName(name state.PlayerId) (chainio.NameData, bool) {
	var txid [32]byte
	copy(txid[:], string(name))
	return chainio.NameData{
		UpdateOutPoint: chainio.OutPoint{TxID: txid, Index: 0},
		Address:        fmt.Sprintf("replay-%s", name),
	}, true
}

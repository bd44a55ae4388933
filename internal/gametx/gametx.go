// Package gametx implements spec.md §6's game-transaction builder:
// converting a block's StepResult into the informational kill and
// bounty transaction templates the containing chain mints alongside
// the block (destroying killed players' name-coins, paying out
// collected loot and refunds).
//
// Grounded on internal/move's name-operation-output framing (a player
// name plus a small opcode/extras payload) and on a room tick's
// output-building helpers: constructing a small ordered slice of
// records describing external effects of a tick, rather than mutating
// anything itself.
package gametx

import (
	"fmt"

	"github.com/domob1812/huntercore/internal/chainio"
	"github.com/domob1812/huntercore/internal/engerr"
	"github.com/domob1812/huntercore/internal/engine"
	"github.com/domob1812/huntercore/internal/state"
)

// Opcode is the GAMEOP tag carried in a game-transaction input script,
// spec §6.
type Opcode int

const (
	OpKilledBy        Opcode = 1
	OpCollectedBounty Opcode = 2
	OpKilledPoison    Opcode = 3
	OpRefund          Opcode = 4
)

// TxIn is one input of a game transaction: the outpoint it spends (the
// player name's current update output) plus an informational script.
type TxIn struct {
	PrevOut chainio.OutPoint
	Script  string
}

// TxOut is one output of a game transaction.
type TxOut struct {
	Address string
	Amount  state.Amount
}

// KillTx is the block's single kill transaction: zero outputs, one
// input per player killed this block.
type KillTx struct {
	Inputs []TxIn
}

// BountyTx is the block's single bounty transaction: one input/output
// pair per bounty (collected loot or a locked-coin refund).
type BountyTx struct {
	Inputs  []TxIn
	Outputs []TxOut
}

// GameTx is one of the (at most two) transaction templates produced
// for a block: present only when the corresponding StepResult list is
// non-empty.
type GameTx struct {
	Kill   *KillTx
	Bounty *BountyTx
}

// CreateGameTransactions implements spec §6's create_game_transactions:
// builds the kill tx (if any players died this block) and the bounty
// tx (if any loot/refund bounties were produced), resolving each
// player's current name-output via nameDb.
func CreateGameTransactions(nameDb chainio.NameDb, height int32, result *engine.StepResult) ([]GameTx, error) {
	var txs []GameTx

	if len(result.Kills) > 0 {
		kill, err := buildKillTx(nameDb, result.Kills)
		if err != nil {
			return nil, err
		}
		txs = append(txs, GameTx{Kill: kill})
	}

	if len(result.Bounties) > 0 {
		bounty, err := buildBountyTx(nameDb, result.Bounties)
		if err != nil {
			return nil, err
		}
		txs = append(txs, GameTx{Bounty: bounty})
	}

	return txs, nil
}

func buildKillTx(nameDb chainio.NameDb, kills []engine.PlayerKill) (*KillTx, error) {
	tx := &KillTx{Inputs: make([]TxIn, 0, len(kills))}
	for _, k := range kills {
		nd, ok := nameDb.GetName(k.Player)
		if !ok {
			return nil, &engerr.StorageError{Reason: fmt.Sprintf("killed player %q has no name-db record", k.Player)}
		}
		tx.Inputs = append(tx.Inputs, TxIn{
			PrevOut: nd.UpdateOutPoint,
			Script:  killScript(k),
		})
	}
	return tx, nil
}

// killScript implements spec §6's kill-tx input script: `<name>
// <GAMEOP> [extra]`. DESTRUCT carries its killer character-ids as
// extras; SPAWN (the spawn-area overflow death) and POISON carry none.
func killScript(k engine.PlayerKill) string {
	op := OpKilledBy
	if k.Info.Reason == state.KillReasonPoison {
		op = OpKilledPoison
	}
	script := fmt.Sprintf("%s %d", k.Player, op)
	if k.Info.Reason == state.KillReasonDestruct {
		for _, killer := range k.Info.Killers {
			script += " " + killer.String()
		}
	}
	return script
}

func buildBountyTx(nameDb chainio.NameDb, bounties []engine.Bounty) (*BountyTx, error) {
	tx := &BountyTx{
		Inputs:  make([]TxIn, 0, len(bounties)),
		Outputs: make([]TxOut, 0, len(bounties)),
	}
	for _, b := range bounties {
		nd, ok := nameDb.GetName(b.Player)
		if !ok {
			return nil, &engerr.StorageError{Reason: fmt.Sprintf("bounty player %q has no name-db record", b.Player)}
		}
		address := b.Address
		if address == "" {
			address = nd.Address
		}
		tx.Inputs = append(tx.Inputs, TxIn{
			PrevOut: nd.UpdateOutPoint,
			Script:  bountyScript(b),
		})
		tx.Outputs = append(tx.Outputs, TxOut{Address: address, Amount: b.Amount})
	}
	return tx, nil
}

// bountyScript implements spec §6's bounty-tx input script: either the
// collected-loot form (with the loot/collection block-range extras) or
// the refund form (with the refund height).
func bountyScript(b engine.Bounty) string {
	if b.IsRefund {
		return fmt.Sprintf("%s %d %d %d", b.Player, OpRefund, b.CharacterIndex, b.RefundHeight)
	}
	return fmt.Sprintf("%s %d %d %d %d %d %d", b.Player, OpCollectedBounty, b.CharacterIndex,
		b.LootFirstBlock, b.LootLastBlock, b.CollectedFirstBlock, b.CollectedLastBlock)
}

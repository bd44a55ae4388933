package cache

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/domob1812/huntercore/internal/chainio"
	"github.com/domob1812/huntercore/internal/engerr"
	"github.com/domob1812/huntercore/internal/state"
)

// diskRecordPrefix is the byte spec §4.8 reserves for game-state cache
// records in the containing chain's shared key/value namespace; kept
// on the key here even though our table is private, so a future
// migration onto that shared store doesn't have to touch the schema.
const diskRecordPrefix = 'g'

// diskStore is the on-disk tier: a sqlite table keyed by block hash,
// holding the zstd-compressed encoding produced by encodeState.
// Grounded on MJE43-stake-pf-replay-go's backend/internal/store/sqlite.go
// (sql.Open("sqlite", path) + WAL mode + a migration run at open) and
// hellsoul86-voxelcraft.ai's indexdb/sqlite.go (a single narrow table
// keyed by an opaque id, no ORM).
type diskStore struct {
	db *sql.DB
}

func newDiskStore(path string) (*diskStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &engerr.StorageError{Reason: "open game-state cache db", Err: err}
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, &engerr.StorageError{Reason: "enable WAL mode", Err: err}
	}
	const schema = `CREATE TABLE IF NOT EXISTS game_states (
		key    BLOB PRIMARY KEY,
		height INTEGER NOT NULL,
		data   BLOB NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, &engerr.StorageError{Reason: "migrate game-state cache schema", Err: err}
	}
	return &diskStore{db: db}, nil
}

func diskKey(h chainio.BlockHash) []byte {
	key := make([]byte, 0, 1+len(h))
	key = append(key, diskRecordPrefix)
	return append(key, h[:]...)
}

func (d *diskStore) close() error {
	return d.db.Close()
}

func (d *diskStore) get(h chainio.BlockHash) (*state.GameState, bool, error) {
	var blob []byte
	err := d.db.QueryRow(`SELECT data FROM game_states WHERE key = ?`, diskKey(h)).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &engerr.StorageError{Reason: "read game-state cache row", Err: err}
	}
	gs, err := decodeState(blob)
	if err != nil {
		return nil, false, &engerr.StorageError{Reason: "decode game-state cache row", Err: err}
	}
	return gs, true, nil
}

func (d *diskStore) has(h chainio.BlockHash) (bool, error) {
	var dummy int
	err := d.db.QueryRow(`SELECT 1 FROM game_states WHERE key = ?`, diskKey(h)).Scan(&dummy)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, &engerr.StorageError{Reason: "probe game-state cache row", Err: err}
	}
	return true, nil
}

// putBatch writes every (hash, state) pair in a single transaction, per
// spec §4.8's "each cache flush uses a single atomic batch".
func (d *diskStore) putBatch(entries map[chainio.BlockHash]*state.GameState) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := d.db.Begin()
	if err != nil {
		return &engerr.StorageError{Reason: "begin game-state cache flush", Err: err}
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO game_states (key, height, data) VALUES (?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return &engerr.StorageError{Reason: "prepare game-state cache flush", Err: err}
	}
	defer stmt.Close()

	for h, gs := range entries {
		blob, err := encodeState(gs)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("encode game state for flush: %w", err)
		}
		if _, err := stmt.Exec(diskKey(h), gs.Height, blob); err != nil {
			tx.Rollback()
			return &engerr.StorageError{Reason: "write game-state cache row", Err: err}
		}
	}
	return tx.Commit()
}

// pruneExcept deletes every row whose height doesn't satisfy the
// every-Nth-block retention policy and whose hash isn't in keep.
func (d *diskStore) pruneExcept(n int32, keep map[chainio.BlockHash]struct{}) error {
	rows, err := d.db.Query(`SELECT key, height FROM game_states`)
	if err != nil {
		return &engerr.StorageError{Reason: "scan game-state cache for pruning", Err: err}
	}
	type row struct {
		key    []byte
		height int32
	}
	var toDelete [][]byte
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.key, &r.height); err != nil {
			rows.Close()
			return &engerr.StorageError{Reason: "read game-state cache row during pruning", Err: err}
		}
		var h chainio.BlockHash
		if len(r.key) == 1+len(h) {
			copy(h[:], r.key[1:])
		}
		if _, kept := keep[h]; kept {
			continue
		}
		if r.height%n == 0 {
			continue
		}
		toDelete = append(toDelete, r.key)
	}
	rows.Close()

	if len(toDelete) == 0 {
		return nil
	}
	tx, err := d.db.Begin()
	if err != nil {
		return &engerr.StorageError{Reason: "begin game-state cache prune", Err: err}
	}
	stmt, err := tx.Prepare(`DELETE FROM game_states WHERE key = ?`)
	if err != nil {
		tx.Rollback()
		return &engerr.StorageError{Reason: "prepare game-state cache prune", Err: err}
	}
	defer stmt.Close()
	for _, key := range toDelete {
		if _, err := stmt.Exec(key); err != nil {
			tx.Rollback()
			return &engerr.StorageError{Reason: "delete game-state cache row", Err: err}
		}
	}
	return tx.Commit()
}

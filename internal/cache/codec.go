package cache

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/domob1812/huntercore/internal/state"
)

// encodeState serializes a GameState using its canonical spec §6
// encoding (internal/state's GameState.Encode), zstd-compressed before
// it hits disk. Grounded on hellsoul86-voxelcraft.ai's snapshot writer
// (a serialized-state byte stream through a zstd writer) — adapted
// from a buffered file stream to an in-memory buffer, since a single
// state record is a few KB, not a world dump.
func encodeState(gs *state.GameState) ([]byte, error) {
	raw, err := gs.Encode()
	if err != nil {
		return nil, fmt.Errorf("encode game state: %w", err)
	}

	var out bytes.Buffer
	enc, err := zstd.NewWriter(&out, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	if _, err := enc.Write(raw); err != nil {
		enc.Close()
		return nil, fmt.Errorf("zstd-compress game state: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("close zstd encoder: %w", err)
	}
	return out.Bytes(), nil
}

// decodeState reverses encodeState.
func decodeState(blob []byte) (*state.GameState, error) {
	dec, err := zstd.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	defer dec.Close()

	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("zstd-decompress game state: %w", err)
	}
	return state.Decode(raw)
}

// Package verify checks that a decoded chunk's NBT coordinates match the
// region slot it was read from or is about to be written to, supporting
// both the modern (root-level xPos/zPos) and legacy (Level.xPos/zPos) chunk
// layouts.
package verify

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/OCharnyshevich/regionfs/internal/regionfs/nbt"
)

// ErrMissingCoords is returned when neither the modern nor legacy xPos/zPos
// fields can be found in the decoded tag tree.
var ErrMissingCoords = errors.New("verify: no xPos/zPos found in chunk NBT")

// ErrCoordMismatch is returned when the chunk's embedded coordinates do not
// match the coordinates implied by its region slot.
type ErrCoordMismatch struct {
	ExpectedX, ExpectedZ int32
	FoundX, FoundZ       int32
}

func (e *ErrCoordMismatch) Error() string {
	return fmt.Sprintf("verify: chunk NBT coords (%d,%d) do not match expected (%d,%d)",
		e.FoundX, e.FoundZ, e.ExpectedX, e.ExpectedZ)
}

// ChunkCoords extracts the chunk's xPos/zPos from its root tag, checking the
// modern layout (root.xPos/zPos) first and falling back to the legacy
// layout (root.Level.xPos/zPos).
func ChunkCoords(root nbt.Compound) (x, z int32, err error) {
	if x, okX := root.GetInt("xPos"); okX {
		if z, okZ := root.GetInt("zPos"); okZ {
			return x, z, nil
		}
	}

	if level, ok := root.GetCompound("Level"); ok {
		if x, okX := level.GetInt("xPos"); okX {
			if z, okZ := level.GetInt("zPos"); okZ {
				return x, z, nil
			}
		}
	}

	return 0, 0, ErrMissingCoords
}

// Coords parses root as a compound tag and extracts its chunk coordinates.
func Coords(root *nbt.Tag) (x, z int32, err error) {
	if root == nil || root.Type != nbt.TagCompound {
		return 0, 0, ErrMissingCoords
	}
	return ChunkCoords(root.Value.(nbt.Compound))
}

// DecodeCoords parses an uncompressed NBT chunk blob and extracts its
// embedded chunk coordinates.
func DecodeCoords(nbtData []byte) (x, z int32, err error) {
	root, err := nbt.NewReader(bytes.NewReader(nbtData)).ReadRoot()
	if err != nil {
		return 0, 0, fmt.Errorf("verify: parse chunk NBT: %w", err)
	}
	return Coords(root)
}

// VerifyCoords decodes nbtData and confirms its embedded chunk coordinates
// equal (expectedX, expectedZ).
func VerifyCoords(nbtData []byte, expectedX, expectedZ int32) error {
	x, z, err := DecodeCoords(nbtData)
	if err != nil {
		return err
	}
	if x != expectedX || z != expectedZ {
		return &ErrCoordMismatch{ExpectedX: expectedX, ExpectedZ: expectedZ, FoundX: x, FoundZ: z}
	}
	return nil
}

// Package gen defines the chunk generator capability: a pure function from
// chunk coordinates to NBT-encoded chunk bytes, plus the flat and
// vanilla/noise-based implementations the engine can select between.
package gen

import (
	"bytes"
	"fmt"

	"github.com/OCharnyshevich/regionfs/internal/regionfs/nbt"
)

// Section holds block state for a 16x16x16 vertical slice of a chunk.
// Index = y*256 + z*16 + x, value = blockID<<4 | metadata.
type Section struct {
	Blocks [4096]uint16
}

// ChunkData holds the generated terrain for one chunk column before NBT
// encoding.
type ChunkData struct {
	Sections [16]*Section // nil = all-air
	Biomes   [256]byte    // index = z*16 + x
}

// SetBlock sets a block state at chunk-local coordinates. x, z must be in
// [0,16); y must be in [0,256).
func (c *ChunkData) SetBlock(x, y, z int, state uint16) {
	sec := y >> 4
	if c.Sections[sec] == nil {
		if state == 0 {
			return
		}
		c.Sections[sec] = &Section{}
	}
	c.Sections[sec].Blocks[(y&0xF)*256+z*16+x] = state
}

// GetBlock returns the block state at chunk-local coordinates.
func (c *ChunkData) GetBlock(x, y, z int) uint16 {
	sec := y >> 4
	if sec < 0 || sec >= 16 || c.Sections[sec] == nil {
		return 0
	}
	return c.Sections[sec].Blocks[(y&0xF)*256+z*16+x]
}

// SetBiome sets the biome ID at chunk-local x, z.
func (c *ChunkData) SetBiome(x, z int, biome byte) {
	c.Biomes[z*16+x] = biome
}

// Generator produces an encoded chunk deterministically from its absolute
// chunk coordinates.
type Generator interface {
	// Generate returns the NBT-encoded bytes for chunk (cx, cz).
	Generate(cx, cz int32) ([]byte, error)
	// HeightAt returns the generator's surface height for an absolute block
	// column.
	HeightAt(blockX, blockZ int32) int
}

// DefaultDataVersion is the Minecraft data version stamped onto generated
// chunks when MC_DATA_VERSION is not set, corresponding to a modern
// 1.20-era release.
const DefaultDataVersion int32 = 3465

// DataVersion is written into every chunk's DataVersion tag. main overrides
// it from the MC_DATA_VERSION environment variable before mounting.
var DataVersion int32 = DefaultDataVersion

// EncodeChunk serializes chunk as a modern-layout NBT chunk: xPos/zPos at
// the document root, one list entry per populated section.
func EncodeChunk(cx, cz int32, chunk *ChunkData) ([]byte, error) {
	root := nbt.Compound{}
	root.SetInt("xPos", cx)
	root.SetInt("zPos", cz)
	// yPos is the chunk's lowest section index. This generator never
	// populates negative sections, so the bottommost section is always 0.
	root.SetInt("yPos", 0)
	root.SetString("Status", "minecraft:full")
	root.SetLong("LastUpdate", 0)
	root.SetLong("InhabitedTime", 0)
	root.SetInt("DataVersion", DataVersion)

	var sectionValues []interface{}
	for secY := 0; secY < 16; secY++ {
		sec := chunk.Sections[secY]
		if sec == nil {
			continue
		}

		blocks := make([]byte, 4096)
		data := make([]byte, 2048)
		hasAdd := false
		for i := 0; i < 4096; i++ {
			state := sec.Blocks[i]
			blockID := state >> 4
			meta := byte(state & 0xF)

			blocks[i] = byte(blockID)
			if blockID > 255 {
				hasAdd = true
			}
			setNibble(data, i, meta)
		}

		section := nbt.Compound{}
		section.SetInt("Y", int32(secY))
		section.SetByteArray("Blocks", blocks)
		section.SetByteArray("Data", data)

		if hasAdd {
			add := make([]byte, 2048)
			for i := 0; i < 4096; i++ {
				setNibble(add, i, byte(sec.Blocks[i]>>12))
			}
			section.SetByteArray("Add", add)
		}

		blockLight := make([]byte, 2048)
		skyLight := make([]byte, 2048)
		for i := range blockLight {
			blockLight[i] = 0xFF
			skyLight[i] = 0xFF
		}
		section.SetByteArray("BlockLight", blockLight)
		section.SetByteArray("SkyLight", skyLight)

		sectionValues = append(sectionValues, section)
	}

	root["Sections"] = &nbt.Tag{
		Type: nbt.TagList,
		Name: "Sections",
		Value: &nbt.List{
			ElemType: nbt.TagCompound,
			Values:   sectionValues,
		},
	}

	root.SetByteArray("Biomes", chunk.Biomes[:])
	root.SetIntArray("HeightMap", computeHeightMap(chunk))

	var buf bytes.Buffer
	rootTag := &nbt.Tag{Type: nbt.TagCompound, Value: root}
	if err := nbt.NewWriter(&buf).WriteRoot(rootTag); err != nil {
		return nil, fmt.Errorf("gen: encode chunk (%d,%d): %w", cx, cz, err)
	}
	return buf.Bytes(), nil
}

func setNibble(arr []byte, index int, val byte) {
	byteIdx := index / 2
	if index%2 == 0 {
		arr[byteIdx] = (arr[byteIdx] & 0xF0) | (val & 0x0F)
	} else {
		arr[byteIdx] = (arr[byteIdx] & 0x0F) | ((val & 0x0F) << 4)
	}
}

func computeHeightMap(chunk *ChunkData) []int32 {
	hm := make([]int32, 256)
	for z := 0; z < 16; z++ {
		for x := 0; x < 16; x++ {
			highest := int32(0)
			for y := 255; y >= 0; y-- {
				if chunk.GetBlock(x, y, z) != 0 {
					highest = int32(y + 1)
					break
				}
			}
			hm[z*16+x] = highest
		}
	}
	return hm
}

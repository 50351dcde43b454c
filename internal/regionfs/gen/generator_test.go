package gen

import (
	"bytes"
	"testing"

	"github.com/OCharnyshevich/regionfs/internal/regionfs/nbt"
	"github.com/OCharnyshevich/regionfs/internal/regionfs/verify"
)

func TestChunkDataSetGetBlock(t *testing.T) {
	c := &ChunkData{}
	c.SetBlock(1, 64, 1, 0x20)
	if got := c.GetBlock(1, 64, 1); got != 0x20 {
		t.Fatalf("expected 0x20, got 0x%X", got)
	}
	if got := c.GetBlock(2, 64, 1); got != 0 {
		t.Fatalf("expected air at untouched coordinate, got 0x%X", got)
	}
}

func TestEncodeChunkStructure(t *testing.T) {
	c := &ChunkData{}
	c.SetBlock(0, 0, 0, blockStone<<4)

	data, err := EncodeChunk(3, -2, c)
	if err != nil {
		t.Fatalf("EncodeChunk failed: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("empty NBT output")
	}
	if data[0] != nbt.TagCompound {
		t.Fatalf("expected root compound tag, got %d", data[0])
	}

	x, z, err := verify.DecodeCoords(data)
	if err != nil {
		t.Fatalf("decode coords: %v", err)
	}
	if x != 3 || z != -2 {
		t.Fatalf("expected coords (3,-2), got (%d,%d)", x, z)
	}
}

func TestEncodeChunkHighBlockIDUsesAddArray(t *testing.T) {
	c := &ChunkData{}
	c.SetBlock(0, 0, 0, 0x12C5) // block ID 300, meta 5

	data, err := EncodeChunk(0, 0, c)
	if err != nil {
		t.Fatalf("EncodeChunk failed: %v", err)
	}
	if !bytes.Contains(data, []byte("Add")) {
		t.Fatal("expected an Add array for block IDs above 255")
	}
}

func TestFlatGeneratorIsDeterministic(t *testing.T) {
	g := NewFlatGenerator(0)
	a, err := g.Generate(5, 5)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	b, err := g.Generate(5, 5)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatal("FlatGenerator must be deterministic for the same coordinates")
	}
	if g.HeightAt(0, 0) != 4 {
		t.Fatalf("expected flat height 4, got %d", g.HeightAt(0, 0))
	}
}

func TestVanillaGeneratorIsDeterministic(t *testing.T) {
	g := NewVanillaGenerator(42)
	a, err := g.Generate(10, -10)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	b, err := g.Generate(10, -10)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatal("VanillaGenerator must be deterministic for the same coordinates and seed")
	}

	x, z, err := verify.DecodeCoords(a)
	if err != nil {
		t.Fatalf("decode coords: %v", err)
	}
	if x != 10 || z != -10 {
		t.Fatalf("expected coords (10,-10), got (%d,%d)", x, z)
	}
}

func TestNoiseGeneratorIsBoundedAndDeterministic(t *testing.T) {
	ng := NewNoiseGenerator(7)
	for _, c := range [][2]float64{{0, 0}, {1.5, -3.25}, {128.0, 64.0}} {
		a := ng.Noise2D(c[0], c[1])
		b := ng.Noise2D(c[0], c[1])
		if a != b {
			t.Fatalf("Noise2D(%v) not deterministic: %v vs %v", c, a, b)
		}
		if a < -1.0001 || a > 1.0001 {
			t.Fatalf("Noise2D(%v) out of [-1,1] range: %v", c, a)
		}
	}
	o := ng.OctaveNoise2D(4.0, 4.0, 5, 0.5)
	if o < -1.0001 || o > 1.0001 {
		t.Fatalf("OctaveNoise2D out of range: %v", o)
	}
}

func TestVanillaGeneratorHeightWithinBounds(t *testing.T) {
	g := NewVanillaGenerator(3)
	for _, c := range [][2]int32{{0, 0}, {500, -500}, {-1234, 987}} {
		h := g.HeightAt(c[0], c[1])
		if h < 1 || h > 250 {
			t.Fatalf("HeightAt(%v) out of bounds: %d", c, h)
		}
	}
}

func TestVanillaGeneratorDiffersBySeed(t *testing.T) {
	a, err := NewVanillaGenerator(1).Generate(0, 0)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	b, err := NewVanillaGenerator(2).Generate(0, 0)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if bytes.Equal(a, b) {
		t.Fatal("different seeds should almost certainly produce different terrain")
	}
}

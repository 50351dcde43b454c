package gen

const (
	blockWater  = 9
	blockSand   = 12
	blockGravel = 13

	seaLevel = 62

	biomeOcean = 0
	biomeBeach = 6
	biomeHills = 4
)

// VanillaGenerator produces rolling terrain from seeded octave simplex noise,
// loosely modeling the shape of vanilla overworld generation without its
// biome registry, cave carving, or decoration passes.
type VanillaGenerator struct {
	terrain *NoiseGenerator
	detail  *NoiseGenerator
}

// NewVanillaGenerator creates a VanillaGenerator for the given world seed.
func NewVanillaGenerator(seed int64) *VanillaGenerator {
	return &VanillaGenerator{
		terrain: NewNoiseGenerator(seed),
		detail:  NewNoiseGenerator(seed + 1),
	}
}

// Generate implements Generator.
func (g *VanillaGenerator) Generate(cx, cz int32) ([]byte, error) {
	c := &ChunkData{}

	var heights [16][16]int
	for lx := 0; lx < 16; lx++ {
		for lz := 0; lz < 16; lz++ {
			wx := int(cx)*16 + lx
			wz := int(cz)*16 + lz
			height := g.heightAt(wx, wz)
			heights[lx][lz] = height
			g.fillColumn(c, lx, lz, height)
		}
	}

	return EncodeChunk(cx, cz, c)
}

// HeightAt implements Generator.
func (g *VanillaGenerator) HeightAt(blockX, blockZ int32) int {
	return g.heightAt(int(blockX), int(blockZ))
}

// heightAt computes the terrain height at a world block coordinate from two
// octave-layered noise sources: broad terrain shape and small-scale detail.
func (g *VanillaGenerator) heightAt(wx, wz int) int {
	nx := float64(wx) / 128.0
	nz := float64(wz) / 128.0
	base := g.terrain.OctaveNoise2D(nx, nz, 6, 0.5)

	dx := float64(wx) / 32.0
	dz := float64(wz) / 32.0
	detail := g.detail.OctaveNoise2D(dx, dz, 3, 0.5)

	const amplitude = 28.0
	const baseHeight = float64(seaLevel)

	height := baseHeight + base*amplitude + detail*4.0
	h := int(height)
	if h < 1 {
		h = 1
	}
	if h > 250 {
		h = 250
	}
	return h
}

// fillColumn fills a single block column with terrain blocks and determines
// its surface biome from the resulting height relative to sea level.
func (g *VanillaGenerator) fillColumn(c *ChunkData, lx, lz, height int) {
	c.SetBlock(lx, 0, lz, blockBedrock<<4)

	for y := 1; y < height-3; y++ {
		c.SetBlock(lx, y, lz, blockStone<<4)
	}

	switch {
	case height < seaLevel-4:
		for y := height - 3; y <= height; y++ {
			if y >= 1 {
				c.SetBlock(lx, y, lz, blockGravel<<4)
			}
		}
	case height < seaLevel+1:
		for y := height - 3; y <= height; y++ {
			if y >= 1 {
				c.SetBlock(lx, y, lz, blockSand<<4)
			}
		}
	default:
		for y := height - 3; y < height; y++ {
			if y >= 1 {
				c.SetBlock(lx, y, lz, blockDirt<<4)
			}
		}
		c.SetBlock(lx, height, lz, blockGrass<<4)
	}

	if height < seaLevel {
		for y := height + 1; y <= seaLevel; y++ {
			c.SetBlock(lx, y, lz, blockWater<<4)
		}
	}

	c.SetBiome(lx, lz, biomeFor(height))
}

// biomeFor maps a column's terrain height to a coarse biome ID relative to
// sea level; VanillaGenerator has no separate biome noise pass.
func biomeFor(height int) byte {
	switch {
	case height < seaLevel-1:
		return biomeOcean
	case height < seaLevel+2:
		return biomeBeach
	case height > seaLevel+30:
		return biomeHills
	default:
		return biomePlains
	}
}

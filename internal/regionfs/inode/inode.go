// Package inode packs and unpacks the synthetic 64-bit inode numbers the
// filesystem adapter hands out for region files and other virtual entries.
//
// Layout:
//
//	bit 63       region flag   (RegionStart)
//	bit 62       generic flag  (GenericStart)
//	bits 32..61  region X, 30 bits, offset-encoded
//	bits 0..29   region Z, 30 bits, offset-encoded
//
// Region and generic inodes are mutually exclusive; a plain small integer
// (e.g. the FUSE root inode 1) has neither flag set.
package inode

import "hash/fnv"

const (
	// offset re-centers signed coordinates into the unsigned 30-bit field.
	offset = 500_000_000
	// mask keeps a value to 30 bits.
	mask = 0x3FFFFFFF

	// RegionStart flags an inode as encoding region (X, Z) coordinates.
	RegionStart uint64 = 0x8000_0000_0000_0000
	// GenericStart flags an inode as a hashed generic (non-region) entry.
	GenericStart uint64 = 0x4000_0000_0000_0000
	// genericMask keeps a hash to 62 bits so it never collides with the
	// region/generic flag bits.
	genericMask uint64 = 0x3FFF_FFFF_FFFF_FFFF
)

// IsRegion reports whether ino was produced by PackRegion.
func IsRegion(ino uint64) bool {
	return ino&RegionStart != 0
}

// IsGeneric reports whether ino was produced by PackGeneric.
func IsGeneric(ino uint64) bool {
	return ino&GenericStart != 0
}

// PackRegion encodes region coordinates (rx, rz) into a region inode number.
// rx and rz must fit within +/-500,000,000, comfortably beyond Minecraft's
// own world limits.
func PackRegion(rx, rz int32) uint64 {
	xEnc := uint64(rx+offset) & mask
	zEnc := uint64(rz+offset) & mask
	return RegionStart | (xEnc << 32) | zEnc
}

// UnpackRegion decodes the region coordinates packed by PackRegion. The
// second return value is false if ino is not a region inode.
func UnpackRegion(ino uint64) (rx, rz int32, ok bool) {
	if !IsRegion(ino) {
		return 0, 0, false
	}
	xEnc := (ino >> 32) & mask
	zEnc := ino & mask
	return int32(xEnc) - offset, int32(zEnc) - offset, true
}

// PackGeneric derives a stable inode number for a non-region filesystem
// entry (e.g. a directory or a fixed auxiliary file) from its name.
func PackGeneric(name string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	return GenericStart | (h.Sum64() & genericMask)
}

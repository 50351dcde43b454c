// Package codec implements the chunk blob framing used inside a region
// file's data slots: a 4-byte big-endian length, a 1-byte compression type,
// and the compressed payload.
package codec

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
)

// Compression type identifiers, matching vanilla Anvil's on-disk values.
const (
	CompressionGZip = 1
	CompressionZlib = 2
	CompressionNone = 3
	CompressionLZ4  = 4
)

// HeaderBytes is the size of the length+type framing preceding the
// compressed payload inside a chunk slot.
const HeaderBytes = 5

// ErrBlobTooShort is returned when a chunk blob is too small to contain the
// length+type framing.
var ErrBlobTooShort = fmt.Errorf("codec: chunk blob shorter than %d bytes", HeaderBytes)

// ErrUnknownCompression is returned when a blob names a compression type
// this codec does not understand.
var ErrUnknownCompression = fmt.Errorf("codec: unknown compression type")

// Encode compresses payload with the given compression type and wraps it in
// the [length:4][type:1][data] chunk blob framing.
func Encode(payload []byte, compression byte) ([]byte, error) {
	var buf bytes.Buffer

	var w io.Writer = &buf
	var closer io.Closer

	switch compression {
	case CompressionGZip:
		gw := gzip.NewWriter(&buf)
		w, closer = gw, gw
	case CompressionZlib:
		zw := zlib.NewWriter(&buf)
		w, closer = zw, zw
	case CompressionNone:
		// write straight to buf
	case CompressionLZ4:
		lw := lz4.NewWriter(&buf)
		w, closer = lw, lw
	default:
		return nil, ErrUnknownCompression
	}

	if _, err := w.Write(payload); err != nil {
		return nil, fmt.Errorf("codec: compress payload: %w", err)
	}
	if closer != nil {
		if err := closer.Close(); err != nil {
			return nil, fmt.Errorf("codec: close compressor: %w", err)
		}
	}

	compressed := buf.Bytes()
	totalLen := uint32(len(compressed)) + 1 // +1 for the type byte

	blob := make([]byte, 4, 4+len(compressed)+1)
	binary.BigEndian.PutUint32(blob, totalLen)
	blob = append(blob, compression)
	blob = append(blob, compressed...)
	return blob, nil
}

// Decode parses a chunk blob's framing and decompresses its payload.
func Decode(blob []byte) ([]byte, error) {
	if len(blob) < HeaderBytes {
		return nil, ErrBlobTooShort
	}

	compression := blob[4]
	compressed := blob[5:]

	switch compression {
	case CompressionZlib:
		zr, err := zlib.NewReader(bytes.NewReader(compressed))
		if err != nil {
			return nil, fmt.Errorf("codec: open zlib reader: %w", err)
		}
		defer zr.Close()
		return io.ReadAll(zr)
	case CompressionGZip:
		gr, err := gzip.NewReader(bytes.NewReader(compressed))
		if err != nil {
			return nil, fmt.Errorf("codec: open gzip reader: %w", err)
		}
		defer gr.Close()
		return io.ReadAll(gr)
	case CompressionNone:
		// Uncompressed payloads carry no self-terminating marker, so this
		// is the one case that must still trust the declared length.
		declared := binary.BigEndian.Uint32(blob[0:4])
		want := int(declared) - 1
		if want < 0 || want > len(compressed) {
			return nil, fmt.Errorf("codec: declared length %d exceeds available bytes", declared)
		}
		out := make([]byte, want)
		copy(out, compressed[:want])
		return out, nil
	case CompressionLZ4:
		lr := lz4.NewReader(bytes.NewReader(compressed))
		return io.ReadAll(lr)
	default:
		return nil, ErrUnknownCompression
	}
}

// SectorCount returns the number of region sectors needed to hold a blob of
// the given byte length, rounding up to the sector boundary.
func SectorCount(blobLen, sectorBytes int) int {
	return (blobLen + sectorBytes - 1) / sectorBytes
}

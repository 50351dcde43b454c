package codec

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	payload := []byte("this is a pretend NBT chunk payload, repeated. ")
	for i := 0; i < 4; i++ {
		payload = append(payload, payload...)
	}

	for _, compression := range []byte{CompressionGZip, CompressionZlib, CompressionNone, CompressionLZ4} {
		blob, err := Encode(payload, compression)
		if err != nil {
			t.Fatalf("Encode(compression=%d) failed: %v", compression, err)
		}
		if blob[4] != compression {
			t.Fatalf("expected type byte %d, got %d", compression, blob[4])
		}

		got, err := Decode(blob)
		if err != nil {
			t.Fatalf("Decode(compression=%d) failed: %v", compression, err)
		}
		if !bytes.Equal(got, payload) {
			t.Fatalf("round trip mismatch for compression=%d", compression)
		}
	}
}

func TestDecodeRejectsShortBlob(t *testing.T) {
	if _, err := Decode([]byte{0, 0, 0}); err != ErrBlobTooShort {
		t.Fatalf("expected ErrBlobTooShort, got %v", err)
	}
}

func TestDecodeRejectsUnknownCompression(t *testing.T) {
	blob, err := Encode([]byte("x"), CompressionNone)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	blob[4] = 99
	if _, err := Decode(blob); err != ErrUnknownCompression {
		t.Fatalf("expected ErrUnknownCompression, got %v", err)
	}
}

func TestSectorCount(t *testing.T) {
	cases := []struct {
		blobLen, sector, want int
	}{
		{0, 4096, 0},
		{1, 4096, 1},
		{4096, 4096, 1},
		{4097, 4096, 2},
	}
	for _, c := range cases {
		if got := SectorCount(c.blobLen, c.sector); got != c.want {
			t.Fatalf("SectorCount(%d,%d)=%d, want %d", c.blobLen, c.sector, got, c.want)
		}
	}
}

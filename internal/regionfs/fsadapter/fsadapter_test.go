package fsadapter

import (
	"context"
	"testing"

	"github.com/jacobsa/fuse/fuseops"

	"github.com/OCharnyshevich/regionfs/internal/regionfs/bench"
	"github.com/OCharnyshevich/regionfs/internal/regionfs/cache"
	"github.com/OCharnyshevich/regionfs/internal/regionfs/codec"
	"github.com/OCharnyshevich/regionfs/internal/regionfs/engine"
	"github.com/OCharnyshevich/regionfs/internal/regionfs/gen"
	"github.com/OCharnyshevich/regionfs/internal/regionfs/inode"
	"github.com/OCharnyshevich/regionfs/internal/regionfs/region"
	"github.com/OCharnyshevich/regionfs/internal/regionfs/storage"
)

func newTestFS(t *testing.T) *FileSystem {
	t.Helper()
	c, err := cache.New(64)
	if err != nil {
		t.Fatalf("cache.New failed: %v", err)
	}
	eng := engine.New(gen.NewFlatGenerator(0), storage.NewMemoryBackend(), c, bench.New(), nil, 4, 0)
	return New(eng, nil)
}

func TestParseRegionFilename(t *testing.T) {
	cases := []struct {
		name   string
		wantX  int32
		wantZ  int32
		wantOK bool
	}{
		{"r.0.0.mca", 0, 0, true},
		{"r.-3.7.mca", -3, 7, true},
		{"r.1.2.txt", 0, 0, false},
		{"not-a-region", 0, 0, false},
	}
	for _, tc := range cases {
		x, z, ok := parseRegionFilename(tc.name)
		if ok != tc.wantOK {
			t.Fatalf("%s: ok=%v, want %v", tc.name, ok, tc.wantOK)
		}
		if ok && (x != tc.wantX || z != tc.wantZ) {
			t.Fatalf("%s: got (%d,%d), want (%d,%d)", tc.name, x, z, tc.wantX, tc.wantZ)
		}
	}
}

func TestLookUpInodeTracksRegion(t *testing.T) {
	fs := newTestFS(t)
	ctx := context.Background()

	op := &fuseops.LookUpInodeOp{Parent: fuseops.RootInodeID, Name: "r.5.-9.mca"}
	if err := fs.LookUpInode(ctx, op); err != nil {
		t.Fatalf("LookUpInode failed: %v", err)
	}
	if op.Entry.Attributes.Size != uint64(region.FileSize) {
		t.Fatalf("expected size %d, got %d", region.FileSize, op.Entry.Attributes.Size)
	}
	x, z, ok := inode.UnpackRegion(uint64(op.Entry.Child))
	if !ok || x != 5 || z != -9 {
		t.Fatalf("expected inode to decode to (5,-9), got (%d,%d) ok=%v", x, z, ok)
	}

	fs.mu.Lock()
	_, tracked := fs.regions[op.Entry.Child]
	fs.mu.Unlock()
	if !tracked {
		t.Fatal("expected LookUpInode to track the region for ReadDir")
	}
}

func TestReadDirListsTrackedRegions(t *testing.T) {
	fs := newTestFS(t)
	ctx := context.Background()

	if err := fs.LookUpInode(ctx, &fuseops.LookUpInodeOp{Parent: fuseops.RootInodeID, Name: "r.0.0.mca"}); err != nil {
		t.Fatalf("LookUpInode failed: %v", err)
	}

	op := &fuseops.ReadDirOp{Inode: fuseops.RootInodeID, Dst: make([]byte, 4096)}
	if err := fs.ReadDir(ctx, op); err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if op.BytesRead == 0 {
		t.Fatal("expected ReadDir to write at least one dirent")
	}
}

func TestReadFileServesHeader(t *testing.T) {
	fs := newTestFS(t)
	ctx := context.Background()

	ino := fuseops.InodeID(inode.PackRegion(0, 0))
	op := &fuseops.ReadFileOp{Inode: ino, Offset: 0, Dst: make([]byte, region.HeaderBytes)}
	if err := fs.ReadFile(ctx, op); err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if op.BytesRead != region.HeaderBytes {
		t.Fatalf("expected %d bytes read, got %d", region.HeaderBytes, op.BytesRead)
	}
	want := region.GenerateHeader()
	if string(op.Dst) != string(want) {
		t.Fatal("expected header bytes to match region.GenerateHeader")
	}
}

func TestWriteFileThenReadRoundTrips(t *testing.T) {
	fs := newTestFS(t)
	ctx := context.Background()

	ino := fuseops.InodeID(inode.PackRegion(0, 0))
	chunkData, err := gen.NewFlatGenerator(0).Generate(10, 10)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	blob, err := codec.Encode(chunkData, codec.CompressionNone)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	padded := make([]byte, region.SlotBytes)
	copy(padded, blob)

	slotOffset := region.SlotOffset(10, 10)
	writeOp := &fuseops.WriteFileOp{Inode: ino, Offset: slotOffset, Data: padded}
	if err := fs.WriteFile(ctx, writeOp); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	stored, ok, err := fs.Engine.Storage.LoadChunk(ctx, 10, 10)
	if err != nil || !ok {
		t.Fatalf("expected chunk to be persisted via WriteFile, ok=%v err=%v", ok, err)
	}
	if len(stored) != len(chunkData) {
		t.Fatalf("expected persisted length %d, got %d", len(chunkData), len(stored))
	}
}

func TestUnlinkRemovesTrackedRegion(t *testing.T) {
	fs := newTestFS(t)
	ctx := context.Background()

	if err := fs.LookUpInode(ctx, &fuseops.LookUpInodeOp{Parent: fuseops.RootInodeID, Name: "r.1.1.mca"}); err != nil {
		t.Fatalf("LookUpInode failed: %v", err)
	}
	if err := fs.Unlink(ctx, &fuseops.UnlinkOp{Parent: fuseops.RootInodeID, Name: "r.1.1.mca"}); err != nil {
		t.Fatalf("Unlink failed: %v", err)
	}

	fs.mu.Lock()
	_, tracked := fs.regions[fuseops.InodeID(inode.PackRegion(1, 1))]
	fs.mu.Unlock()
	if tracked {
		t.Fatal("expected region to be untracked after Unlink")
	}
}

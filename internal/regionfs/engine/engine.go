// Package engine implements the virtual file read/write pipeline that
// backs one synthesized Anvil region file: cache, then storage, then
// generator fallback on read; decode, verify, persist, and refresh the
// cache on write.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/OCharnyshevich/regionfs/internal/regionfs/bench"
	"github.com/OCharnyshevich/regionfs/internal/regionfs/cache"
	"github.com/OCharnyshevich/regionfs/internal/regionfs/codec"
	"github.com/OCharnyshevich/regionfs/internal/regionfs/gen"
	"github.com/OCharnyshevich/regionfs/internal/regionfs/region"
	"github.com/OCharnyshevich/regionfs/internal/regionfs/storage"
	"github.com/OCharnyshevich/regionfs/internal/regionfs/verify"
)

// DefaultCompression is the compression type used when framing newly
// generated or newly written chunk blobs.
const DefaultCompression = codec.CompressionZlib

// VirtualFile synthesizes the bytes of one region file on demand, without
// ever materializing it on disk.
type VirtualFile struct {
	Generator gen.Generator
	Storage   storage.ChunkStorage // nil disables persistence
	Cache     *cache.ChunkCache
	Bench     *bench.Metrics // nil disables benchmarking
	Log       *slog.Logger

	// PrefetchRadius is the chunk-neighbor radius r speculatively
	// materialized after a cold read, for dx,dz in [-r,r] excluding (0,0).
	// 0 disables prefetch entirely.
	PrefetchRadius int

	prefetchSem *semaphore.Weighted
}

// New builds a VirtualFile. maxConcurrentPrefetch bounds how many chunks may
// be generated by prefetch at once across the whole engine; values <= 0
// default to 2, matching a conservative "heavy generation" throttle.
// prefetchRadius is the neighbor radius prefetched after a cold read; 0
// disables prefetch.
func New(generator gen.Generator, store storage.ChunkStorage, chunkCache *cache.ChunkCache, metrics *bench.Metrics, log *slog.Logger, maxConcurrentPrefetch int64, prefetchRadius int) *VirtualFile {
	if maxConcurrentPrefetch <= 0 {
		maxConcurrentPrefetch = 2
	}
	if log == nil {
		log = slog.Default()
	}
	return &VirtualFile{
		Generator:      generator,
		Storage:        store,
		Cache:          chunkCache,
		Bench:          metrics,
		Log:            log,
		PrefetchRadius: prefetchRadius,
		prefetchSem:    semaphore.NewWeighted(maxConcurrentPrefetch),
	}
}

// ReadAt fills a size-byte response for a read at offset within the region
// file for (regionX, regionZ), synthesizing header bytes and chunk slots as
// needed and padding any gap with zeros.
func (v *VirtualFile) ReadAt(ctx context.Context, offset int64, size int, regionX, regionZ int32) ([]byte, error) {
	out := make([]byte, 0, size)

	if offset < region.HeaderBytes {
		header := region.GenerateHeader()
		start := int(offset)
		end := start + size
		if end > len(header) {
			end = len(header)
		}
		out = append(out, header[start:end]...)
	}

	for len(out) < size {
		readOffset := offset + int64(len(out))
		needed := size - len(out)

		lx, lz, ok := region.SlotOf(readOffset)
		if !ok {
			break
		}

		blob, err := v.chunkBlob(ctx, regionX, regionZ, lx, lz)
		if err != nil {
			v.Log.Error("synthesize chunk failed", "region_x", regionX, "region_z", regionZ, "lx", lx, "lz", lz, "error", err)
			break
		}

		slotStart := region.SlotOffset(lx, lz)
		localOffset := int(readOffset - slotStart)

		if localOffset < len(blob) {
			available := len(blob) - localOffset
			toCopy := available
			if toCopy > needed {
				toCopy = needed
			}
			out = append(out, blob[localOffset:localOffset+toCopy]...)
			continue
		}

		// Sparse-fill the remainder of the slot with zeros.
		slotEnd := slotStart + region.SlotBytes
		zerosAvailable := slotEnd - readOffset
		if zerosAvailable <= 0 {
			break
		}
		zerosToGive := int(zerosAvailable)
		if zerosToGive > needed {
			zerosToGive = needed
		}
		out = append(out, make([]byte, zerosToGive)...)
	}

	if len(out) < size {
		out = append(out, make([]byte, size-len(out))...)
	}
	return out, nil
}

// chunkBlob returns the compressed, framed blob for the chunk at local
// coordinates (lx, lz) within region (regionX, regionZ), consulting the
// cache, then storage, then falling back to generation.
func (v *VirtualFile) chunkBlob(ctx context.Context, regionX, regionZ int32, lx, lz int) ([]byte, error) {
	absX := regionX*32 + int32(lx)
	absZ := regionZ*32 + int32(lz)
	pos := cache.Pos{X: absX, Z: absZ}

	if v.Cache != nil {
		if blob, ok := v.Cache.Get(pos); ok {
			v.recordCacheHit()
			return blob, nil
		}
	}
	v.recordCacheMiss()

	nbtData, err := v.loadOrGenerate(ctx, absX, absZ)
	if err != nil {
		return nil, err
	}

	blob, err := codec.Encode(nbtData, DefaultCompression)
	if err != nil {
		return nil, fmt.Errorf("engine: frame chunk (%d,%d): %w", absX, absZ, err)
	}
	if v.Cache != nil {
		v.Cache.Put(pos, blob)
	}

	v.triggerPrefetch(absX, absZ)
	return blob, nil
}

// triggerPrefetch fires off neighbor prefetch for a chunk that was just
// materialized by a cold read, as an independent background task that
// never blocks the read that triggered it.
func (v *VirtualFile) triggerPrefetch(cx, cz int32) {
	if v.PrefetchRadius <= 0 {
		return
	}
	go func() {
		if err := v.SchedulePrefetch(context.Background(), cx, cz); err != nil {
			v.Log.Error("prefetch scheduling failed", "cx", cx, "cz", cz, "error", err)
		}
	}()
}

// loadOrGenerate returns raw (unframed) chunk NBT for absolute coordinates
// (x, z), preferring storage and regenerating whenever storage's data fails
// coordinate verification.
func (v *VirtualFile) loadOrGenerate(ctx context.Context, x, z int32) ([]byte, error) {
	if v.Storage != nil {
		start := time.Now()
		data, found, err := v.Storage.LoadChunk(ctx, x, z)
		if v.Bench != nil {
			v.Bench.RecordLoad(time.Since(start))
		}
		if err != nil {
			v.Log.Error("storage load failed, regenerating", "x", x, "z", z, "error", err)
		} else if found {
			if verifyErr := verify.VerifyCoords(data, x, z); verifyErr != nil {
				v.Log.Error("stored chunk failed coordinate verification, regenerating", "x", x, "z", z, "error", verifyErr)
			} else {
				return data, nil
			}
		}
	}

	return v.generate(x, z)
}

func (v *VirtualFile) generate(x, z int32) ([]byte, error) {
	start := time.Now()
	data, err := v.Generator.Generate(x, z)
	if v.Bench != nil {
		v.Bench.RecordGeneration(time.Since(start))
	}
	if err != nil {
		return nil, fmt.Errorf("engine: generate chunk (%d,%d): %w", x, z, err)
	}
	if err := verify.VerifyCoords(data, x, z); err != nil {
		return nil, fmt.Errorf("engine: generator produced inconsistent coordinates: %w", err)
	}
	return data, nil
}

// WriteAt decodes a full chunk-slot write, verifies its embedded
// coordinates, and persists it. It never returns an error for a region
// inode: the filesystem callback must always report the full byte count
// written, so every failure in this path (undefined slot, decode failure,
// missing coordinates, storage failure, cache-encode failure) is logged and
// absorbed rather than propagated. Writes to the header region are accepted
// and ignored, since the header is always synthesized. Coordinate
// mismatches between the slot and the chunk's own NBT are resolved in
// favor of the NBT payload ("payload wins"); a payload with no recognizable
// coordinates at all falls back to the nominal slot coordinates.
func (v *VirtualFile) WriteAt(ctx context.Context, offset int64, data []byte, regionX, regionZ int32) error {
	if offset < region.HeaderBytes {
		return nil
	}

	lx, lz, ok := region.SlotOf(offset)
	if !ok {
		v.Log.Warn("write offset does not address a chunk slot, dropping", "offset", offset, "region_x", regionX, "region_z", regionZ)
		return nil
	}

	nbtData, err := codec.Decode(data)
	if err != nil {
		v.Log.Warn("decode written chunk blob failed, dropping write", "region_x", regionX, "region_z", regionZ, "lx", lx, "lz", lz, "error", err)
		return nil
	}

	slotX := regionX*32 + int32(lx)
	slotZ := regionZ*32 + int32(lz)

	saveX, saveZ := slotX, slotZ
	if err := verify.VerifyCoords(nbtData, slotX, slotZ); err != nil {
		if mismatch, ok := err.(*verify.ErrCoordMismatch); ok {
			v.Log.Debug("write coordinate mismatch, trusting payload", "slot_x", slotX, "slot_z", slotZ, "payload_x", mismatch.FoundX, "payload_z", mismatch.FoundZ)
			saveX, saveZ = mismatch.FoundX, mismatch.FoundZ
		} else {
			v.Log.Warn("write payload missing coordinates, falling back to nominal slot", "slot_x", slotX, "slot_z", slotZ, "error", err)
		}
	}

	if v.Storage != nil {
		start := time.Now()
		err := v.Storage.SaveChunk(ctx, saveX, saveZ, nbtData)
		if v.Bench != nil {
			v.Bench.RecordSave(time.Since(start))
		}
		if err != nil {
			v.Log.Error("save chunk failed", "x", saveX, "z", saveZ, "error", err)
			return nil
		}
	}

	if v.Cache != nil {
		blob, err := codec.Encode(nbtData, DefaultCompression)
		if err != nil {
			v.Log.Error("frame written chunk failed", "x", saveX, "z", saveZ, "error", err)
			return nil
		}
		v.Cache.Put(cache.Pos{X: saveX, Z: saveZ}, blob)
	}

	return nil
}

// SchedulePrefetch speculatively materializes the chunks neighboring
// (cx, cz) within PrefetchRadius: for dx,dz in [-r,r] excluding (0,0), each
// neighbor independently runs fast-cache-check, semaphore-bounded
// re-check, storage lookup (trusted authoritative, never raced against
// generation), and generate-then-save-then-cache on a true miss. Per-neighbor
// errors are logged and swallowed; prefetch must never affect foreground
// correctness. It is safe to call while reads/writes are in flight.
func (v *VirtualFile) SchedulePrefetch(ctx context.Context, cx, cz int32) error {
	r := v.PrefetchRadius
	if r <= 0 {
		return nil
	}

	var wg sync.WaitGroup
	for dz := -r; dz <= r; dz++ {
		for dx := -r; dx <= r; dx++ {
			if dx == 0 && dz == 0 {
				continue
			}
			nx, nz := cx+int32(dx), cz+int32(dz)
			pos := cache.Pos{X: nx, Z: nz}

			// Step 1: fast cache check before spending a goroutine or permit.
			if v.Cache != nil {
				if _, ok := v.Cache.Get(pos); ok {
					continue
				}
			}

			wg.Add(1)
			go func(nx, nz int32, pos cache.Pos) {
				defer wg.Done()
				v.prefetchOne(ctx, nx, nz, pos)
			}(nx, nz, pos)
		}
	}
	wg.Wait()
	return nil
}

// prefetchOne runs the bounded steps 2-6 of the prefetch pipeline for one
// neighbor chunk. It never returns an error: all failures are logged.
func (v *VirtualFile) prefetchOne(ctx context.Context, x, z int32, pos cache.Pos) {
	// Step 2: acquire a permit from the bounded semaphore, the sole throttle.
	if err := v.prefetchSem.Acquire(ctx, 1); err != nil {
		return
	}
	defer v.prefetchSem.Release(1)

	// Step 3: re-check the cache now that a permit is held, in case a
	// concurrent reader or another prefetch task raced us to it.
	if v.Cache != nil {
		if _, ok := v.Cache.Get(pos); ok {
			return
		}
	}

	// Step 4: storage is trusted authoritative; never race generation
	// against data that already exists there.
	if v.Storage != nil {
		_, found, err := v.Storage.LoadChunk(ctx, x, z)
		if err != nil {
			v.Log.Error("prefetch storage lookup failed", "x", x, "z", z, "error", err)
			return
		}
		if found {
			return
		}
	}

	// Step 5: generate, save, and cache on a true miss.
	nbtData, err := v.generate(x, z)
	if err != nil {
		v.Log.Error("prefetch generation failed", "x", x, "z", z, "error", err)
		return
	}
	if v.Storage != nil {
		start := time.Now()
		err := v.Storage.SaveChunk(ctx, x, z, nbtData)
		if v.Bench != nil {
			v.Bench.RecordSave(time.Since(start))
		}
		if err != nil {
			v.Log.Error("prefetch save failed", "x", x, "z", z, "error", err)
			return
		}
	}
	blob, err := codec.Encode(nbtData, DefaultCompression)
	if err != nil {
		v.Log.Error("prefetch frame failed", "x", x, "z", z, "error", err)
		return
	}
	if v.Cache != nil {
		v.Cache.Put(pos, blob)
	}
}

func (v *VirtualFile) recordCacheHit() {
	if v.Bench != nil {
		v.Bench.RecordCacheHit()
	}
}

func (v *VirtualFile) recordCacheMiss() {
	if v.Bench != nil {
		v.Bench.RecordCacheMiss()
	}
}

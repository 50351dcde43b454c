package storage

import (
	"context"
	"sync"
)

type chunkPos struct{ x, z int32 }

// MemoryBackend is an in-memory ChunkStorage backed by a guarded map. Data
// does not survive process restart; it exists for tests and for mounts run
// without a configured database.
type MemoryBackend struct {
	mu     sync.RWMutex
	chunks map[chunkPos][]byte
}

// NewMemoryBackend creates an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{chunks: make(map[chunkPos][]byte)}
}

// SaveChunk implements ChunkStorage.
func (m *MemoryBackend) SaveChunk(_ context.Context, x, z int32, data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks[chunkPos{x, z}] = cp
	return nil
}

// LoadChunk implements ChunkStorage.
func (m *MemoryBackend) LoadChunk(_ context.Context, x, z int32) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.chunks[chunkPos{x, z}]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, true, nil
}

// TotalSize implements ChunkStorage by summing stored payload lengths.
func (m *MemoryBackend) TotalSize(_ context.Context) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var total uint64
	for _, data := range m.chunks {
		total += uint64(len(data))
	}
	return total, nil
}

// Delete removes a chunk from the backend, if present.
func (m *MemoryBackend) Delete(x, z int32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.chunks, chunkPos{x, z})
}

// Len returns the number of chunks currently stored.
func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks)
}

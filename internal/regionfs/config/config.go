// Package config holds the mount-time configuration for a regionfs daemon:
// where to mount, how to generate and store chunks, and how aggressively
// to cache and prefetch them.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/OCharnyshevich/regionfs/internal/regionfs/storage"
)

// Config holds the regionfsd daemon configuration.
type Config struct {
	Mountpoint string `json:"mountpoint"`

	GeneratorType string `json:"generator_type"` // "flat" or "vanilla"
	Seed          int64  `json:"seed"`

	StorageMode string `json:"storage_mode"` // "memory", "raw", "jsonb"
	PostgresDSN string `json:"postgres_dsn"`

	CacheCapacity int `json:"cache_capacity"`

	// PrefetchRadius is the chunk-neighbor radius r speculatively
	// materialized after each cold read, for dx,dz in [-r,r] excluding
	// (0,0). 0 disables prefetch entirely.
	PrefetchRadius int `json:"prefetch_radius"`
	// PrefetchConcurrent bounds how many chunks prefetch may generate at
	// once across the whole engine.
	PrefetchConcurrent int64 `json:"prefetch_concurrent"`

	BenchmarkIntervalSeconds int `json:"benchmark_interval_seconds"` // 0 disables periodic reporting
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Mountpoint:               "mnt",
		GeneratorType:            "vanilla",
		Seed:                     0,
		StorageMode:              "memory",
		PostgresDSN:              "",
		CacheCapacity:            500,
		PrefetchRadius:           0,
		PrefetchConcurrent:       2,
		BenchmarkIntervalSeconds: 0,
	}
}

// StorageModeValue maps the config's string storage mode to a storage.Mode.
func (c *Config) StorageModeValue() (storage.Mode, error) {
	switch c.StorageMode {
	case "memory":
		return storage.Raw, nil // memory backend ignores the mode distinction
	case "raw":
		return storage.Raw, nil
	case "jsonb":
		return storage.JSONB, nil
	default:
		return 0, fmt.Errorf("config: unknown storage mode %q", c.StorageMode)
	}
}

// Load reads a JSON config file into cfg. A missing file leaves cfg
// unchanged, matching a fresh mount with all defaults.
func Load(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

// Save writes cfg to path as indented JSON, atomically via a temp file and
// rename.
func Save(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	data = append(data, '\n')

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("config: write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("config: rename temp file: %w", err)
	}
	return nil
}

// Merge overwrites dst's fields with src's wherever the corresponding CLI
// flag name is absent from explicitFlags, so explicit command-line flags win
// over a config file loaded from disk.
func Merge(dst, src *Config, explicitFlags map[string]bool) {
	if !explicitFlags["mountpoint"] {
		dst.Mountpoint = src.Mountpoint
	}
	if !explicitFlags["generator"] {
		dst.GeneratorType = src.GeneratorType
	}
	if !explicitFlags["seed"] {
		dst.Seed = src.Seed
	}
	if !explicitFlags["storage-mode"] {
		dst.StorageMode = src.StorageMode
	}
	if !explicitFlags["postgres-dsn"] {
		dst.PostgresDSN = src.PostgresDSN
	}
	if !explicitFlags["cache-capacity"] {
		dst.CacheCapacity = src.CacheCapacity
	}
	if !explicitFlags["prefetch-radius"] {
		dst.PrefetchRadius = src.PrefetchRadius
	}
	if !explicitFlags["prefetch-concurrent"] {
		dst.PrefetchConcurrent = src.PrefetchConcurrent
	}
	if !explicitFlags["benchmark-interval"] {
		dst.BenchmarkIntervalSeconds = src.BenchmarkIntervalSeconds
	}
}

// Command regionfsd mounts a synthesized Minecraft world as a FUSE
// filesystem of Anvil region files, generating and caching chunks on
// demand instead of storing them on disk.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/jacobsa/fuse"
	"golang.org/x/sync/errgroup"

	"github.com/OCharnyshevich/regionfs/internal/regionfs/bench"
	"github.com/OCharnyshevich/regionfs/internal/regionfs/cache"
	"github.com/OCharnyshevich/regionfs/internal/regionfs/config"
	"github.com/OCharnyshevich/regionfs/internal/regionfs/engine"
	"github.com/OCharnyshevich/regionfs/internal/regionfs/fsadapter"
	"github.com/OCharnyshevich/regionfs/internal/regionfs/gen"
	"github.com/OCharnyshevich/regionfs/internal/regionfs/storage"
)

// storageConnectRetries and storageConnectDelay bound how long run() waits
// for Postgres to become reachable before giving up on mount.
const (
	storageConnectRetries = 30
	storageConnectDelay   = 2 * time.Second
)

func main() {
	cfg := config.DefaultConfig()

	var configPath string
	flag.StringVar(&configPath, "config", "regionfsd.json", "path to a JSON config file")
	flag.StringVar(&cfg.Mountpoint, "mountpoint", cfg.Mountpoint, "directory to mount the synthesized world at")
	flag.StringVar(&cfg.GeneratorType, "generator", cfg.GeneratorType, "world generator type (vanilla, flat)")
	flag.Int64Var(&cfg.Seed, "seed", cfg.Seed, "world generation seed")
	flag.StringVar(&cfg.StorageMode, "storage-mode", cfg.StorageMode, "chunk persistence backend (memory, raw, jsonb)")
	flag.StringVar(&cfg.PostgresDSN, "postgres-dsn", cfg.PostgresDSN, "Postgres connection string (required for raw/jsonb storage modes)")
	flag.IntVar(&cfg.CacheCapacity, "cache-capacity", cfg.CacheCapacity, "number of chunks to keep in the LRU cache")
	flag.IntVar(&cfg.PrefetchRadius, "prefetch-radius", cfg.PrefetchRadius, "chunk-neighbor radius to speculatively materialize after each cold read (0 disables prefetch)")
	flag.Int64Var(&cfg.PrefetchConcurrent, "prefetch-concurrent", cfg.PrefetchConcurrent, "max concurrent chunk generations during prefetch")
	flag.IntVar(&cfg.BenchmarkIntervalSeconds, "benchmark-interval", cfg.BenchmarkIntervalSeconds, "seconds between benchmark reports (0 disables)")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	fileCfg := config.DefaultConfig()
	if err := config.Load(configPath, fileCfg); err != nil {
		log.Error("load config", "error", err)
		os.Exit(1)
	}
	explicitFlags := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		explicitFlags[f.Name] = true
	})
	config.Merge(cfg, fileCfg, explicitFlags)

	// Environment variables are a lower-priority fallback beneath explicit
	// flags and the config file, matching how a containerized deployment
	// would set them without touching the JSON config.
	if !explicitFlags["postgres-dsn"] && cfg.PostgresDSN == "" {
		if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
			cfg.PostgresDSN = dsn
		}
	}
	if !explicitFlags["benchmark-interval"] && cfg.BenchmarkIntervalSeconds == 0 {
		if secs, err := strconv.Atoi(os.Getenv("BENCHMARK")); err == nil {
			cfg.BenchmarkIntervalSeconds = secs
		}
	}
	if v := os.Getenv("MC_DATA_VERSION"); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 32); err == nil {
			gen.DataVersion = int32(parsed)
		} else {
			log.Warn("ignoring unparseable MC_DATA_VERSION", "value", v, "error", err)
		}
	}

	if err := config.Save(configPath, cfg); err != nil {
		log.Error("save config", "error", err)
	}

	if err := run(cfg, log); err != nil {
		log.Error("regionfsd exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var generator gen.Generator
	switch cfg.GeneratorType {
	case "flat":
		generator = gen.NewFlatGenerator(cfg.Seed)
	default:
		generator = gen.NewVanillaGenerator(cfg.Seed)
	}

	store, err := newStorage(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}
	if closer, ok := store.(interface{ Close() }); ok {
		defer closer.Close()
	}

	chunkCache, err := cache.New(cfg.CacheCapacity)
	if err != nil {
		return fmt.Errorf("initialize cache: %w", err)
	}

	metrics := bench.New()
	eng := engine.New(generator, store, chunkCache, metrics, log, cfg.PrefetchConcurrent, cfg.PrefetchRadius)
	if cfg.PrefetchRadius > 0 {
		log.Info("cold-read neighbor prefetch enabled", "radius", cfg.PrefetchRadius, "max_concurrent", cfg.PrefetchConcurrent)
	}

	if err := os.MkdirAll(cfg.Mountpoint, 0o755); err != nil {
		return fmt.Errorf("create mountpoint %s: %w", cfg.Mountpoint, err)
	}
	absMountpoint, err := filepath.Abs(cfg.Mountpoint)
	if err != nil {
		return fmt.Errorf("resolve mountpoint: %w", err)
	}

	fs := fsadapter.New(eng, log)
	mfs, err := fsadapter.Mount(ctx, fs, absMountpoint)
	if err != nil {
		return fmt.Errorf("mount %s: %w", absMountpoint, err)
	}

	log.Info("mounted", "path", absMountpoint, "generator", cfg.GeneratorType, "storage", cfg.StorageMode)

	var eg errgroup.Group
	eg.Go(func() error {
		<-ctx.Done()
		return fuse.Unmount(absMountpoint)
	})
	eg.Go(func() error {
		return mfs.Join(context.Background())
	})
	if cfg.BenchmarkIntervalSeconds > 0 {
		eg.Go(func() error {
			if err := reportPeriodically(ctx, metrics, log, time.Duration(cfg.BenchmarkIntervalSeconds)*time.Second); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		})
	}

	return eg.Wait()
}

func newStorage(ctx context.Context, cfg *config.Config, log *slog.Logger) (storage.ChunkStorage, error) {
	if cfg.StorageMode == "memory" || cfg.StorageMode == "" {
		return storage.NewMemoryBackend(), nil
	}
	mode, err := cfg.StorageModeValue()
	if err != nil {
		return nil, err
	}
	if cfg.PostgresDSN == "" {
		return nil, fmt.Errorf("storage mode %q requires -postgres-dsn (or DATABASE_URL)", cfg.StorageMode)
	}

	var backend *storage.PostgresBackend
	for attempt := 1; attempt <= storageConnectRetries; attempt++ {
		backend, err = storage.NewPostgresBackend(ctx, cfg.PostgresDSN, mode)
		if err == nil {
			return backend, nil
		}
		log.Warn("postgres connect failed, retrying", "attempt", attempt, "max_attempts", storageConnectRetries, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(storageConnectDelay):
		}
	}
	return nil, fmt.Errorf("connect to postgres after %d attempts: %w", storageConnectRetries, err)
}

func reportPeriodically(ctx context.Context, metrics *bench.Metrics, log *slog.Logger, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			log.Info("benchmark report\n" + metrics.Report())
		}
	}
}

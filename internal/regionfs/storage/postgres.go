package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/OCharnyshevich/regionfs/internal/regionfs/nbt"
)

// PostgresBackend persists chunk NBT data in Postgres, in either Raw (BYTEA)
// or JSONB mode. Hybrid and Weightless are reserved modes; constructing a
// backend with either returns ErrModeNotImplemented.
type PostgresBackend struct {
	pool *pgxpool.Pool
	mode Mode
}

// NewPostgresBackend connects to connString, initializes the schema for
// mode, and returns a ready-to-use backend.
func NewPostgresBackend(ctx context.Context, connString string, mode Mode) (*PostgresBackend, error) {
	if mode != Raw && mode != JSONB {
		return nil, fmt.Errorf("storage: postgres backend in %s mode: %w", mode, ErrModeNotImplemented)
	}

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("storage: create postgres pool: %w", err)
	}

	b := &PostgresBackend{pool: pool, mode: mode}
	if err := b.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return b, nil
}

// Close releases the backend's connection pool.
func (b *PostgresBackend) Close() {
	b.pool.Close()
}

func (b *PostgresBackend) initSchema(ctx context.Context) error {
	switch b.mode {
	case Raw:
		_, err := b.pool.Exec(ctx, `
			CREATE TABLE IF NOT EXISTS chunks_raw (
				x INT NOT NULL,
				z INT NOT NULL,
				data BYTEA NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				PRIMARY KEY (x, z)
			)`)
		if err != nil {
			return fmt.Errorf("storage: init raw schema: %w", err)
		}
	case JSONB:
		_, err := b.pool.Exec(ctx, `
			CREATE TABLE IF NOT EXISTS chunks_jsonb (
				x INT NOT NULL,
				z INT NOT NULL,
				data JSONB NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				PRIMARY KEY (x, z)
			);
			CREATE INDEX IF NOT EXISTS idx_chunks_jsonb_data ON chunks_jsonb USING GIN (data)`)
		if err != nil {
			return fmt.Errorf("storage: init jsonb schema: %w", err)
		}
	}
	return nil
}

// SaveChunk implements ChunkStorage.
func (b *PostgresBackend) SaveChunk(ctx context.Context, x, z int32, data []byte) error {
	switch b.mode {
	case Raw:
		_, err := b.pool.Exec(ctx, `
			INSERT INTO chunks_raw (x, z, data, updated_at) VALUES ($1, $2, $3, NOW())
			ON CONFLICT (x, z) DO UPDATE SET data = $3, updated_at = NOW()`,
			x, z, data)
		if err != nil {
			return fmt.Errorf("storage: save chunk (%d,%d) raw: %w", x, z, err)
		}
		return nil
	case JSONB:
		root, err := nbt.NewReader(bytes.NewReader(data)).ReadRoot()
		if err != nil {
			return fmt.Errorf("storage: parse chunk (%d,%d) for jsonb encoding: %w", x, z, err)
		}
		jsonValue, err := tagToJSON(root)
		if err != nil {
			return fmt.Errorf("storage: convert chunk (%d,%d) to json: %w", x, z, err)
		}
		_, err = b.pool.Exec(ctx, `
			INSERT INTO chunks_jsonb (x, z, data, updated_at) VALUES ($1, $2, $3, NOW())
			ON CONFLICT (x, z) DO UPDATE SET data = $3, updated_at = NOW()`,
			x, z, jsonValue)
		if err != nil {
			return fmt.Errorf("storage: save chunk (%d,%d) jsonb: %w", x, z, err)
		}
		return nil
	default:
		return fmt.Errorf("storage: save chunk in %s mode: %w", b.mode, ErrModeNotImplemented)
	}
}

// LoadChunk implements ChunkStorage.
func (b *PostgresBackend) LoadChunk(ctx context.Context, x, z int32) ([]byte, bool, error) {
	switch b.mode {
	case Raw:
		var data []byte
		err := b.pool.QueryRow(ctx, `SELECT data FROM chunks_raw WHERE x = $1 AND z = $2`, x, z).Scan(&data)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, false, nil
			}
			return nil, false, fmt.Errorf("storage: load chunk (%d,%d) raw: %w", x, z, err)
		}
		return data, true, nil
	case JSONB:
		var raw json.RawMessage
		err := b.pool.QueryRow(ctx, `SELECT data FROM chunks_jsonb WHERE x = $1 AND z = $2`, x, z).Scan(&raw)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, false, nil
			}
			return nil, false, fmt.Errorf("storage: load chunk (%d,%d) jsonb: %w", x, z, err)
		}
		tag, err := jsonToTag(raw)
		if err != nil {
			return nil, false, fmt.Errorf("storage: decode chunk (%d,%d) from json: %w", x, z, err)
		}
		var buf bytes.Buffer
		if err := nbt.NewWriter(&buf).WriteRoot(tag); err != nil {
			return nil, false, fmt.Errorf("storage: re-encode chunk (%d,%d) from jsonb: %w", x, z, err)
		}
		return buf.Bytes(), true, nil
	default:
		return nil, false, fmt.Errorf("storage: load chunk in %s mode: %w", b.mode, ErrModeNotImplemented)
	}
}

// TotalSize implements ChunkStorage using Postgres's own relation-size
// accounting.
func (b *PostgresBackend) TotalSize(ctx context.Context) (uint64, error) {
	var table string
	switch b.mode {
	case Raw:
		table = "chunks_raw"
	case JSONB:
		table = "chunks_jsonb"
	default:
		return 0, nil
	}

	var size int64
	err := b.pool.QueryRow(ctx, `SELECT pg_total_relation_size($1)`, table).Scan(&size)
	if err != nil {
		return 0, fmt.Errorf("storage: total size of %s: %w", table, err)
	}
	return uint64(size), nil
}

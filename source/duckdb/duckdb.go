// Package duckdb implements a blockstore.Source backed by a single
// blob table in an embedded DuckDB database file.
package duckdb

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/oklog/ulid/v2"

	"github.com/vaultgrid/vaultgrid/blockstore"
)

// Source stores one row per descriptor in a blobs(descriptor, data)
// table.
type Source struct {
	db      *sql.DB
	maxSize int
	entropy *ulid.MonotonicEntropy
}

// Open opens (creating if needed) the DuckDB database file at path and
// ensures the blobs table exists.
func Open(path string, maxSize int) (*Source, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("duckdb: open %s: %w", path, err)
	}
	const ddl = `CREATE TABLE IF NOT EXISTS blobs (descriptor VARCHAR PRIMARY KEY, data BLOB)`
	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("duckdb: create blobs table: %w", err)
	}
	return &Source{db: db, maxSize: maxSize, entropy: ulid.Monotonic(rand.Reader, 0)}, nil
}

// Close closes the underlying database handle.
func (s *Source) Close() error {
	return s.db.Close()
}

func (s *Source) MaxSize() int {
	if s.maxSize <= 0 {
		return int(^uint(0) >> 1)
	}
	return s.maxSize
}

func (s *Source) Create(ctx context.Context) (blockstore.Descriptor, error) {
	id := ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy)
	descriptor := blockstore.Descriptor(id.String())
	_, err := s.db.ExecContext(ctx, `INSERT INTO blobs (descriptor, data) VALUES (?, ?)`, string(descriptor), []byte{})
	if err != nil {
		return nil, fmt.Errorf("duckdb: insert %s: %w", descriptor, err)
	}
	return descriptor, nil
}

func (s *Source) Put(ctx context.Context, descriptor blockstore.Descriptor, data []byte) error {
	if s.maxSize > 0 && len(data) > s.maxSize {
		return fmt.Errorf("duckdb: payload of %d bytes exceeds max size %d", len(data), s.maxSize)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE blobs SET data = ? WHERE descriptor = ?`, data, string(descriptor))
	if err != nil {
		return fmt.Errorf("duckdb: update %s: %w", descriptor, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("duckdb: rows affected for %s: %w", descriptor, err)
	}
	if n == 0 {
		return fmt.Errorf("duckdb: descriptor %q was never created", descriptor)
	}
	return nil
}

func (s *Source) Get(ctx context.Context, descriptor blockstore.Descriptor) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM blobs WHERE descriptor = ?`, string(descriptor)).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: duckdb descriptor %s", blockstore.ErrNotFound, descriptor)
	}
	if err != nil {
		return nil, fmt.Errorf("duckdb: select %s: %w", descriptor, err)
	}
	return data, nil
}

func (s *Source) Delete(ctx context.Context, descriptor blockstore.Descriptor) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM blobs WHERE descriptor = ?`, string(descriptor))
	if err != nil {
		return fmt.Errorf("duckdb: delete %s: %w", descriptor, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("duckdb: rows affected for %s: %w", descriptor, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: duckdb descriptor %s", blockstore.ErrNotFound, descriptor)
	}
	return nil
}

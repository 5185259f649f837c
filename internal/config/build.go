package config

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/vaultgrid/vaultgrid/blockstore"
	"github.com/vaultgrid/vaultgrid/source/duckdb"
	"github.com/vaultgrid/vaultgrid/source/flight"
	"github.com/vaultgrid/vaultgrid/source/local"
	"github.com/vaultgrid/vaultgrid/source/memory"
	"github.com/vaultgrid/vaultgrid/source/s3"
)

// BuildRegistry constructs a blockstore.Registry from a parsed Config,
// dialing every configured bucket's backend. Buckets that fail to build
// (a bad path, a missing required parameter, an invalid key) abort the
// whole build; an unreachable remote endpoint is not detected here. A
// Registry with a silently missing bucket is worse than a startup
// failure.
func BuildRegistry(ctx context.Context, cfg *Config) (*blockstore.Registry, error) {
	buckets := make(map[string]*blockstore.Bucket, len(cfg.Buckets))
	for name, b := range cfg.Buckets {
		src, err := buildSource(ctx, name, b)
		if err != nil {
			return nil, fmt.Errorf("config: build bucket %q: %w", name, err)
		}
		enc, err := buildEncryption(b.Encryption)
		if err != nil {
			return nil, fmt.Errorf("config: build bucket %q encryption: %w", name, err)
		}
		buckets[name] = blockstore.NewBucket(name, src, enc)
	}
	return blockstore.NewRegistry(buckets, cfg.DirectBlockCount), nil
}

func buildSource(ctx context.Context, name string, b SourceConfig) (blockstore.Source, error) {
	maxSize := 0
	if raw, ok := b.Params["max_size"]; ok {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("parse max_size: %w", err)
		}
		maxSize = n
	}

	switch b.Type {
	case "memory":
		return memory.New(maxSize), nil

	case "local":
		path, ok := b.Params["path"]
		if !ok {
			return nil, fmt.Errorf("local source requires params.path")
		}
		return local.New(path, maxSize)

	case "s3":
		region := b.Params["region"]
		endpoint := b.Params["endpoint"]
		bucketName := b.Params["bucket"]
		prefix := b.Params["prefix"]
		if bucketName == "" {
			return nil, fmt.Errorf("s3 source requires params.bucket")
		}
		client, err := s3.NewDefaultClient(ctx, region, endpoint)
		if err != nil {
			return nil, err
		}
		return s3.New(client, bucketName, prefix, maxSize), nil

	case "duckdb":
		path, ok := b.Params["path"]
		if !ok {
			return nil, fmt.Errorf("duckdb source requires params.path")
		}
		return duckdb.Open(path, maxSize)

	case "flight":
		target := b.Params["target"]
		if target == "" {
			return nil, fmt.Errorf("flight source requires params.target")
		}
		bucketName := b.Params["bucket"]
		if bucketName == "" {
			return nil, fmt.Errorf("flight source requires params.bucket")
		}
		return flight.Dial(ctx, target, bucketName, maxSize, nil)

	case "sftp":
		return nil, fmt.Errorf("sftp source requires an interactive ssh.ClientConfig; build it with source/sftp.Dial directly")

	default:
		return nil, fmt.Errorf("unknown source type %q for bucket %q", b.Type, name)
	}
}

func buildEncryption(e *EncryptionConfig) (blockstore.Encryption, error) {
	if e == nil {
		return nil, nil
	}
	key, err := hex.DecodeString(e.KeyHex)
	if err != nil {
		return nil, fmt.Errorf("decode hex key: %w", err)
	}
	return blockstore.NewChaCha20Poly1305(key)
}

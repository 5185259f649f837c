package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/vaultgrid/vaultgrid/blockstore"
	"github.com/vaultgrid/vaultgrid/inode"
	"github.com/vaultgrid/vaultgrid/internal/config"
	"github.com/vaultgrid/vaultgrid/rootstore"
)

// session bundles everything one CLI invocation needs: the registry
// built from config, the root store, and the root directory itself
// loaded (or freshly created) from it.
type session struct {
	reg   *blockstore.Registry
	store rootstore.Store
	root  *inode.Directory
}

func openSession(ctx context.Context) (*session, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	reg, err := config.BuildRegistry(ctx, cfg)
	if err != nil {
		return nil, err
	}
	store := rootstore.NewFileStore(cfg.RootPath)

	root, err := loadOrCreateRoot(ctx, reg, store)
	if err != nil {
		return nil, err
	}
	return &session{reg: reg, store: store, root: root}, nil
}

func loadOrCreateRoot(ctx context.Context, reg *blockstore.Registry, store rootstore.Store) (*inode.Directory, error) {
	data, err := store.Load(ctx)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return inode.NewDirectory(time.Now()), nil
		}
		return nil, fmt.Errorf("load root: %w", err)
	}
	dir, err := blockstore.DecodeValue[inode.Directory](data)
	if err != nil {
		return nil, fmt.Errorf("decode root: %w", err)
	}
	return &dir, nil
}

func (s *session) save(ctx context.Context) error {
	data, err := blockstore.EncodeValue(*s.root)
	if err != nil {
		return fmt.Errorf("encode root: %w", err)
	}
	return s.store.Save(ctx, data)
}

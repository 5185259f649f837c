package inode

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/vaultgrid/vaultgrid/blockstore"
)

// Directory owns a name-to-Stored map plus Metadata. Each entry's
// Stored resolves to an InodeType (File or Directory). Insertion order
// is not preserved; names are unique within one directory.
type Directory struct {
	Children map[string]blockstore.Stored `msgpack:"c,omitempty"`
	Meta     Metadata                     `msgpack:"m"`
}

// NewDirectory returns an empty Directory stamped with now.
func NewDirectory(now time.Time) *Directory {
	return &Directory{Children: make(map[string]blockstore.Stored), Meta: NewMetadata(now, 0)}
}

func (d *Directory) Metadata() Metadata { return d.Meta }

// Entry pairs a directory entry's name with its Stored handle, the
// shape ListEntries returns.
type Entry struct {
	Name   string
	Stored blockstore.Stored
}

// List returns every entry name.
func (d *Directory) List() []string {
	names := make([]string, 0, len(d.Children))
	for name := range d.Children {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ListEntries returns every (name, Stored) pair, sorted by name.
func (d *Directory) ListEntries() []Entry {
	entries := make([]Entry, 0, len(d.Children))
	for name, stored := range d.Children {
		entries = append(entries, Entry{Name: name, Stored: stored})
	}
	slices.SortFunc(entries, func(a, b Entry) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		default:
			return 0
		}
	})
	return entries
}

// Get returns the Stored handle for name.
func (d *Directory) Get(name string) (blockstore.Stored, error) {
	s, ok := d.Children[name]
	if !ok {
		return blockstore.Stored{}, fmt.Errorf("%w: entry %q", blockstore.ErrNotFound, name)
	}
	return s, nil
}

// Add creates a fresh Stored for value and inserts it under name. It
// fails if name already exists.
func (d *Directory) Add(ctx context.Context, reg *blockstore.Registry, name string, value InodeType) (blockstore.Stored, error) {
	if _, exists := d.Children[name]; exists {
		return blockstore.Stored{}, fmt.Errorf("%w: entry %q already exists", blockstore.ErrInvariant, name)
	}
	stored, err := blockstore.StoredCreate(ctx, reg, value)
	if err != nil {
		return blockstore.Stored{}, err
	}
	d.Children[name] = stored
	d.Meta.Touch(time.Now(), int64(len(d.Children)))
	return stored, nil
}

// Put inserts a pre-existing Stored under name (the paste destination
// of a move). It fails if name already exists.
func (d *Directory) Put(name string, stored blockstore.Stored) error {
	if _, exists := d.Children[name]; exists {
		return fmt.Errorf("%w: entry %q already exists", blockstore.ErrInvariant, name)
	}
	d.Children[name] = stored
	d.Meta.Touch(time.Now(), int64(len(d.Children)))
	return nil
}

// Unlink removes name from the map without deleting its blob, the
// source half of a move.
func (d *Directory) Unlink(name string) (blockstore.Stored, error) {
	stored, ok := d.Children[name]
	if !ok {
		return blockstore.Stored{}, fmt.Errorf("%w: entry %q", blockstore.ErrNotFound, name)
	}
	delete(d.Children, name)
	d.Meta.Touch(time.Now(), int64(len(d.Children)))
	return stored, nil
}

// Remove fetches the child inode, recursively deletes it, then deletes
// the child Stored itself. It fails if name is absent.
func (d *Directory) Remove(ctx context.Context, reg *blockstore.Registry, name string) error {
	stored, ok := d.Children[name]
	if !ok {
		return fmt.Errorf("%w: entry %q", blockstore.ErrNotFound, name)
	}
	child, err := blockstore.StoredGet[InodeType](ctx, reg, stored)
	if err != nil {
		return err
	}
	if err := child.Delete(ctx, reg); err != nil {
		return err
	}
	if err := stored.Delete(ctx, reg); err != nil {
		return err
	}
	delete(d.Children, name)
	d.Meta.Touch(time.Now(), int64(len(d.Children)))
	return nil
}

// Delete recursively deletes every child inode and then every child
// Stored blob, best-effort: it continues past a sub-failure and
// aggregates every error encountered rather than stopping early.
func (d *Directory) Delete(ctx context.Context, reg *blockstore.Registry) error {
	var errs []error
	for name, stored := range d.Children {
		child, err := blockstore.StoredGet[InodeType](ctx, reg, stored)
		if err != nil {
			errs = append(errs, fmt.Errorf("entry %q: %w", name, err))
			continue
		}
		if err := child.Delete(ctx, reg); err != nil {
			errs = append(errs, fmt.Errorf("entry %q: %w", name, err))
		}
		if err := stored.Delete(ctx, reg); err != nil {
			errs = append(errs, fmt.Errorf("entry %q: %w", name, err))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return &blockstore.AggregateError{Op: "directory delete", Errs: errs}
}

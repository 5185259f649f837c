package inode

import (
	"bytes"
	"context"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/vaultgrid/vaultgrid/blockstore"
)

// Inode is the operation set shared by File and Directory: both carry
// Metadata and both are deleted by recursively tearing down whatever
// they own.
type Inode interface {
	Metadata() Metadata
	Delete(ctx context.Context, reg *blockstore.Registry) error
}

const (
	tagFile      = "f"
	tagDirectory = "d"
)

// InodeType is the tagged union persisted wherever a directory entry's
// Stored resolves to an inode. Exactly one field is set.
type InodeType struct {
	File      *File
	Directory *Directory
}

func fileInodeType(f *File) InodeType           { return InodeType{File: f} }
func directoryInodeType(d *Directory) InodeType { return InodeType{Directory: d} }

// FileInodeType wraps f as the InodeType a directory entry's Stored
// resolves to, for callers outside this package (the CLI's upload path)
// that only see the Inode interface otherwise.
func FileInodeType(f *File) InodeType { return fileInodeType(f) }

// DirectoryInodeType wraps d as an InodeType, the Directory counterpart
// of FileInodeType.
func DirectoryInodeType(d *Directory) InodeType { return directoryInodeType(d) }

func (t InodeType) inner() Inode {
	switch {
	case t.File != nil:
		return t.File
	case t.Directory != nil:
		return t.Directory
	default:
		panic("inode: InodeType has no variant set")
	}
}

func (t InodeType) Metadata() Metadata { return t.inner().Metadata() }

func (t InodeType) Delete(ctx context.Context, reg *blockstore.Registry) error {
	return t.inner().Delete(ctx, reg)
}

// MarshalMsgpack encodes t as the single-key map {"f": File} or
// {"d": Directory}.
func (t InodeType) MarshalMsgpack() ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.UseArrayEncodedStructs(false)
	if err := enc.EncodeMapLen(1); err != nil {
		return nil, err
	}
	switch {
	case t.File != nil:
		if err := enc.EncodeString(tagFile); err != nil {
			return nil, err
		}
		if err := enc.Encode(t.File); err != nil {
			return nil, err
		}
	case t.Directory != nil:
		if err := enc.EncodeString(tagDirectory); err != nil {
			return nil, err
		}
		if err := enc.Encode(t.Directory); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("inode: encode InodeType with no variant set")
	}
	return buf.Bytes(), nil
}

// UnmarshalMsgpack decodes the single-key tagged map back into File or
// Directory.
func (t *InodeType) UnmarshalMsgpack(data []byte) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.UseArrayEncodedStructs(false)
	n, err := dec.DecodeMapLen()
	if err != nil {
		return fmt.Errorf("inode: decode InodeType header: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("inode: InodeType map must have exactly one key, got %d", n)
	}
	tag, err := dec.DecodeString()
	if err != nil {
		return fmt.Errorf("inode: decode InodeType tag: %w", err)
	}
	switch tag {
	case tagFile:
		var f File
		if err := dec.Decode(&f); err != nil {
			return fmt.Errorf("inode: decode File: %w", err)
		}
		*t = fileInodeType(&f)
	case tagDirectory:
		var d Directory
		if err := dec.Decode(&d); err != nil {
			return fmt.Errorf("inode: decode Directory: %w", err)
		}
		*t = directoryInodeType(&d)
	default:
		return fmt.Errorf("inode: unknown InodeType tag %q", tag)
	}
	return nil
}

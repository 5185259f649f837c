// Package sftp implements a blockstore.Source backed by a directory on
// a remote SFTP server, authenticating the transport over
// golang.org/x/crypto/ssh.
package sftp

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/vaultgrid/vaultgrid/blockstore"
)

// Source stores one file per descriptor under a fixed remote directory.
type Source struct {
	conn    *ssh.Client
	client  *sftp.Client
	dir     string
	maxSize int
	entropy *ulid.MonotonicEntropy
}

// Dial opens an SSH connection to addr and wraps it in an SFTP client,
// creating dir on the remote host if it does not already exist.
func Dial(addr string, config *ssh.ClientConfig, dir string, maxSize int) (*Source, error) {
	conn, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		return nil, fmt.Errorf("sftp: dial %s: %w", addr, err)
	}
	client, err := sftp.NewClient(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("sftp: open sftp session: %w", err)
	}
	if err := client.MkdirAll(dir); err != nil {
		client.Close()
		conn.Close()
		return nil, fmt.Errorf("sftp: create remote dir %s: %w", dir, err)
	}
	return &Source{conn: conn, client: client, dir: dir, maxSize: maxSize, entropy: ulid.Monotonic(rand.Reader, 0)}, nil
}

// Close closes the underlying SFTP session and its SSH connection.
func (s *Source) Close() error {
	err := s.client.Close()
	if connErr := s.conn.Close(); err == nil {
		err = connErr
	}
	return err
}

func (s *Source) MaxSize() int {
	if s.maxSize <= 0 {
		return int(^uint(0) >> 1)
	}
	return s.maxSize
}

func (s *Source) remotePath(descriptor blockstore.Descriptor) string {
	return path.Join(s.dir, string(descriptor))
}

func (s *Source) Create(ctx context.Context) (blockstore.Descriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id := ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy)
	descriptor := blockstore.Descriptor(id.String())
	f, err := s.client.Create(s.remotePath(descriptor))
	if err != nil {
		return nil, fmt.Errorf("sftp: create %s: %w", s.remotePath(descriptor), err)
	}
	return descriptor, f.Close()
}

func (s *Source) Put(ctx context.Context, descriptor blockstore.Descriptor, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.maxSize > 0 && len(data) > s.maxSize {
		return fmt.Errorf("sftp: payload of %d bytes exceeds max size %d", len(data), s.maxSize)
	}
	remote := s.remotePath(descriptor)
	f, err := s.client.Create(remote)
	if err != nil {
		return fmt.Errorf("sftp: open %s for write: %w", remote, err)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("sftp: write %s: %w", remote, err)
	}
	return nil
}

func (s *Source) Get(ctx context.Context, descriptor blockstore.Descriptor) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	remote := s.remotePath(descriptor)
	f, err := s.client.Open(remote)
	if err != nil {
		return nil, fmt.Errorf("sftp: open %s: %w", remote, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("sftp: read %s: %w", remote, err)
	}
	return data, nil
}

func (s *Source) Delete(ctx context.Context, descriptor blockstore.Descriptor) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	remote := s.remotePath(descriptor)
	if err := s.client.Remove(remote); err != nil {
		return fmt.Errorf("sftp: remove %s: %w", remote, err)
	}
	return nil
}

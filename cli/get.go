package cli

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vaultgrid/vaultgrid/blockstore"
	"github.com/vaultgrid/vaultgrid/inode"
)

func newGetCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "get <remote-name> <local-path>",
		Short: "Download a file from the root directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(cmd.Context(), args[0], args[1])
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	return c
}

func runGet(ctx context.Context, name, localPath string) error {
	sess, err := openSession(ctx)
	if err != nil {
		return err
	}

	stored, err := sess.root.Get(name)
	if err != nil {
		return fmt.Errorf("get: %w", err)
	}
	entry, err := blockstore.StoredGet[inode.InodeType](ctx, sess.reg, stored)
	if err != nil {
		return fmt.Errorf("get: resolve %q: %w", name, err)
	}
	if entry.File == nil {
		return fmt.Errorf("get: %q is a directory, not a file", name)
	}

	out, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("get: create %s: %w", localPath, err)
	}
	defer out.Close()

	w := bufio.NewWriter(out)
	var written int
	for chunk, err := range entry.File.Get(ctx, sess.reg) {
		if err != nil {
			return fmt.Errorf("get: stream %q: %w", name, err)
		}
		n, err := w.Write(chunk)
		if err != nil {
			return fmt.Errorf("get: write %s: %w", localPath, err)
		}
		written += n
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("get: flush %s: %w", localPath, err)
	}

	slog.Debug("get", "name", name, "local", localPath, "bytes", written)
	fmt.Printf("downloaded %d bytes to %s\n", written, localPath)
	return nil
}

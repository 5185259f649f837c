package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vaultgrid/vaultgrid/inode"
)

func newPutCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "put <local-path> [remote-name]",
		Short: "Upload a local file into the root directory",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := filepath.Base(args[0])
			if len(args) == 2 {
				name = args[1]
			}
			return runPut(cmd.Context(), args[0], name)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	return c
}

func runPut(ctx context.Context, localPath, name string) error {
	sess, err := openSession(ctx)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("put: read %s: %w", localPath, err)
	}

	file, err := inode.CreateFile(ctx, sess.reg, data)
	if err != nil {
		return fmt.Errorf("put: upload %s: %w", localPath, err)
	}

	if _, err := sess.root.Add(ctx, sess.reg, name, inode.FileInodeType(file)); err != nil {
		return fmt.Errorf("put: add %q to root: %w", name, err)
	}

	if err := sess.save(ctx); err != nil {
		return fmt.Errorf("put: save root: %w", err)
	}

	slog.Debug("put", "local", localPath, "name", name, "bytes", len(data))
	fmt.Printf("uploaded %d bytes to %q\n", len(data), name)
	return nil
}

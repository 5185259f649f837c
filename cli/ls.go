package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vaultgrid/vaultgrid/blockstore"
	"github.com/vaultgrid/vaultgrid/inode"
)

func newLsCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "ls",
		Short: "List the root directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLs(cmd.Context())
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	return c
}

func runLs(ctx context.Context) error {
	sess, err := openSession(ctx)
	if err != nil {
		return err
	}

	entries := sess.root.ListEntries()
	if len(entries) == 0 {
		fmt.Println(dimStyle.Render("(empty)"))
		return nil
	}

	for _, entry := range entries {
		child, err := blockstore.StoredGet[inode.InodeType](ctx, sess.reg, entry.Stored)
		if err != nil {
			fmt.Printf("  %s %s\n", errorStyle.Render("?"), entry.Name)
			continue
		}
		printEntry(entry.Name, child)
	}
	return nil
}

func printEntry(name string, entry inode.InodeType) {
	switch {
	case entry.Directory != nil:
		fmt.Printf("  %s  %s\n", dirStyle.Render(name+"/"), dimStyle.Render(fmt.Sprintf("%d entries", entry.Directory.Metadata().Size)))
	case entry.File != nil:
		fmt.Printf("  %s  %s\n", fileStyle.Render(name), dimStyle.Render(formatBytes(entry.File.Metadata().Size)))
	}
}

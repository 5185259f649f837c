// Package cli provides the vaultgrid command-line interface: a set of
// one-shot file operations plus an interactive shell, all driving the
// same blockstore/inode core through its canonical context-aware API.
package cli

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"
	"strings"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var configPath string

// Execute runs the CLI.
func Execute(ctx context.Context) error {
	root := &cobra.Command{
		Use:   "vaultgrid",
		Short: "vaultgrid: chunked, redundant, multi-backend content-addressed storage",
		Long: `vaultgrid stores files as a content-addressed tree of chunks spread
across one or more backends (memory, local disk, S3, DuckDB, Arrow
Flight), optionally encrypted per bucket.

Usage:
  vaultgrid put <local-path> [remote-name]   Upload a file into the root directory
  vaultgrid get <remote-name> <local-path>   Download a file
  vaultgrid rm <remote-name>                 Remove a file or directory entry
  vaultgrid ls                               List the root directory
  vaultgrid shell                            Start an interactive session`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.SetVersionTemplate("vaultgrid {{.Version}}\n")
	root.Version = versionString()
	root.PersistentFlags().StringVar(&configPath, "config", "vaultgrid.yaml", "configuration file path")

	root.AddCommand(
		newPutCmd(),
		newGetCmd(),
		newRmCmd(),
		newLsCmd(),
		newShellCmd(),
	)

	if err := fang.Execute(ctx, root); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return err
	}
	return nil
}

func versionString() string {
	if v := os.Getenv("VAULTGRID_VERSION"); strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		if bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			return bi.Main.Version
		}
	}
	return "dev"
}

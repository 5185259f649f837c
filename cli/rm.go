package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

func newRmCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "rm <remote-name>",
		Short: "Remove a file or directory entry from the root directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRm(cmd.Context(), args[0])
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	return c
}

func runRm(ctx context.Context, name string) error {
	sess, err := openSession(ctx)
	if err != nil {
		return err
	}

	if err := sess.root.Remove(ctx, sess.reg, name); err != nil {
		return fmt.Errorf("rm: %w", err)
	}
	if err := sess.save(ctx); err != nil {
		return fmt.Errorf("rm: save root: %w", err)
	}

	slog.Debug("rm", "name", name)
	fmt.Printf("removed %q\n", name)
	return nil
}

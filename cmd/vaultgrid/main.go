// Command vaultgrid is the chunked, redundant, multi-backend
// content-addressed storage engine's command-line front end.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/vaultgrid/vaultgrid/cli"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cli.Execute(ctx); err != nil {
		os.Exit(1)
	}
}

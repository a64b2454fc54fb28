// cmd/wpmn/main.go
//
// Operator CLI entry point.  See internal/cli for the command tree.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/stuttter/wp-multi-network-sub000/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cli.NewRoot(cli.ConfigOpener)
	if err := root.ExecuteContext(ctx); err != nil {
		cli.PrintError(root, err)
		stop()
		os.Exit(1)
	}
}

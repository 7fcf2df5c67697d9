// Command braid runs a node maintaining a slot-sliced block graph.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/braid-engine/braid/internal/bci"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if err := bci.NewRootCommand(logger).ExecuteContext(ctx); err != nil {
		logger.Error("Command failed", "err", err)
		os.Stderr.Sync()
		os.Exit(1)
	}
}

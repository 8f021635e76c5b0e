package main

import (
	"context"
	"os"
	"os/signal"

	"ampyfm/internal/errors"
)

var (
	version = "dev"
)

// Entry point for the application
func main() {
	// Interrupt cancels a running device command
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		var toolErr *errors.ToolError
		if errors.As(err, &toolErr) {
			PrintError(os.Stderr, toolErr.Message())
		} else {
			PrintError(os.Stderr, err.Error())
		}
		stop()
		os.Exit(1)
	}
}

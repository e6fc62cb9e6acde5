package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := NewApp()
	cmd, err := app.Command()
	if err != nil {
		fmt.Fprintf(os.Stderr, "claudewatch: %v\n", err)
		os.Exit(1)
	}
	// cobra prints the error and handles --help
	if err := cmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
)

func main() {
	// Interrupts stop the run at the next round boundary.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
)

// Entry point for the HAT driver.  SIGINT and SIGTERM stop the example loop.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := Execute(ctx); err != nil {
		stop()
		log.Fatalf("hatdriver: %v", err)
	}
}

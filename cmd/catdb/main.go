// Command catdb creates, loads and inspects catdb stores.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "catdb: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCommand(os.Stdout, os.Stderr).ExecuteContext(ctx)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"mindmovie/internal/services"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	cancel()
	if err != nil {
		if !errors.Is(err, errAborted) {
			fmt.Fprintln(os.Stderr, "Error:", services.Details(err).Message)
		}
		os.Exit(services.ExitCode(err))
	}
}

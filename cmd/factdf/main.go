package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	d "github.com/invertedv/factdf"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp()
	if err := a.rootCmd().ExecuteContext(ctx); err != nil {
		a.report(err)
		stop()
		os.Exit(exitCode(err))
	}
}

// exitCode distinguishes bad input (2) and rows dropped under --fail-on-drop (3) from other failures.
func exitCode(err error) int {
	switch {
	case errors.Is(err, d.ErrStructural):
		return 2
	case errors.Is(err, d.ErrUnmatched):
		return 3
	default:
		return 1
	}
}

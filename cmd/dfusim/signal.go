package main

import (
	"context"
	"log/slog"
	"os/signal"

	"golang.org/x/sys/unix"
)

// notifyShutdown returns a context canceled on SIGINT or SIGTERM, and a
// stop function that must be called once the signal has been handled so the
// underlying os/signal registration is released.
func notifyShutdown(logger *slog.Logger) (context.Context, func()) {
	ctx, stop := signal.NotifyContext(context.Background(), unix.SIGINT, unix.SIGTERM)

	go func() {
		<-ctx.Done()
		logger.Info("shutdown signal received")
	}()

	return ctx, stop
}

// Command seed loads historical daily bars into the configured store.
//
//	seed yahoo dow --file dow.csv      # Yahoo CSV into dow_yahoo
//	seed alphavantage DJIA             # Alpha Vantage series into dow
//	seed all --dir ./data              # every market from both sources
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := execute(ctx, newSeeder(), os.Args[1:]); err != nil {
		stop()
		slog.Error("seed failed", "err", err)
		os.Exit(1)
	}
}

package main

import (
	"log/slog"
	"os"

	"course-ledger-service/internal/cli"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"log/slog"
	"os"

	"github.com/vietddude/tokenwatch/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		slog.Error("tokenwatch exited", "error", err)
		os.Exit(1)
	}
}

// Command gridctl inspects and converts spreadsheet documents offline, using
// the same codecs, index and snapshot stores as the server.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/gridedit/internal/logging"
)

func main() {
	// Missing .env is normal for the CLI.
	_ = godotenv.Load()
	logging.Setup(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))

	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		slog.Debug("command failed", "error", err)
		os.Exit(1)
	}
}

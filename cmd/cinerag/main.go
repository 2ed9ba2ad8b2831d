// Command cinerag answers questions about a movie catalog.
package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/barekit/cinerag/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:           "cinerag",
	Short:         "Question answering over a movie catalog",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded
		setupLogging(cfg.LogLevel)
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("cinerag failed", "error", err)
		os.Exit(1)
	}
}

// setupLogging configures slog with the specified log level
func setupLogging(level string) {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}

	handler := slog.NewTextHandler(os.Stdout, opts)
	slog.SetDefault(slog.New(handler))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

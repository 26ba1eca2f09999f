package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/use-agent/growlog/config"
)

var rootCmd = &cobra.Command{
	Use:   "growlog",
	Short: "Extract cultivation timelines from growlog pages",
	Long: `growlog loads a growlog page in a headless browser, scrolls until the
timeline stops growing, and writes a reconciled, newest-first timeline
with plant states, de-duplicated actions and downloaded photos as JSON.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		rootCmd.PrintErrln("Error:", err)
		os.Exit(1)
	}
}

// initLogger builds the process logger from cfg and installs it as the
// slog default. Level "silent" discards everything.
func initLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "silent", "":
		logger := slog.New(slog.DiscardHandler)
		slog.SetDefault(logger)
		return logger
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

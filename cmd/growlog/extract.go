package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/use-agent/growlog/cache"
	"github.com/use-agent/growlog/config"
	"github.com/use-agent/growlog/engine"
	"github.com/use-agent/growlog/media"
	"github.com/use-agent/growlog/models"
	"github.com/use-agent/growlog/scraper"
	"github.com/use-agent/growlog/webhook"
)

var (
	extractOut           string
	extractTitle         string
	extractVerbose       bool
	extractNoPhotos      bool
	extractPhotosDir     string
	extractNaming        string
	extractMaxScrolls    int
	extractRequireStable bool
)

var extractCmd = &cobra.Command{
	Use:   "extract [url]",
	Short: "Extract the timeline of one growlog page",
	Long: `Loads the growlog page, waits for every timeline card to render,
and writes the reconciled timeline report as JSON.
Settings not given as flags come from GROWLOG_* environment variables.`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVarP(&extractOut, "out", "o", "-", `report file, "-" for stdout`)
	extractCmd.Flags().StringVar(&extractTitle, "title", "", "override the extracted page title")
	extractCmd.Flags().BoolVarP(&extractVerbose, "verbose", "v", false, "log progress at debug level to stderr")
	extractCmd.Flags().BoolVar(&extractNoPhotos, "no-photos", false, "keep photo URLs without downloading them")
	extractCmd.Flags().StringVar(&extractPhotosDir, "photos-dir", "", "directory for downloaded photos")
	extractCmd.Flags().StringVar(&extractNaming, "naming", "", `photo filename scheme: "sequence" or "content"`)
	extractCmd.Flags().IntVar(&extractMaxScrolls, "max-scrolls", 0, "maximum scroll iterations while loading")
	extractCmd.Flags().BoolVar(&extractRequireStable, "require-stable", false, "fail when the page never stops growing")
	rootCmd.AddCommand(extractCmd)
}

// runner is the part of engine.Engine the command drives.
type runner interface {
	Run(ctx context.Context, req models.ExtractRequest) (*models.Report, error)
}

// newRunner launches the browser and wires the engine. The returned
// cleanup releases the browser.
var newRunner = func(cfg *config.Config, logger *slog.Logger) (runner, func(), error) {
	sc, err := scraper.NewScraper(cfg.Browser, cfg.Loader, logger)
	if err != nil {
		return nil, nil, err
	}
	index := cache.New(10000, 24*time.Hour)
	cleanup := func() {
		index.Stop()
		sc.Close()
	}

	opts := []engine.Option{engine.WithLogger(logger)}
	if !cfg.Media.Disabled {
		acq, err := media.NewAcquirer(cfg.Media, logger, media.WithIndex(index))
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		opts = append(opts, engine.WithMedia(acq))
	}
	if cfg.Webhook.URL != "" {
		opts = append(opts, engine.WithNotifier(webhook.NewClient(cfg.Webhook.URL, cfg.Webhook.Secret, logger)))
	}
	return engine.New(sc, opts...), cleanup, nil
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	applyExtractFlags(cmd, cfg)
	logger := initLogger(cfg.Log, cmd.ErrOrStderr())

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r, cleanup, err := newRunner(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialise: %w", err)
	}
	defer cleanup()

	report, err := r.Run(ctx, models.ExtractRequest{
		URL:        args[0],
		Title:      extractTitle,
		SkipPhotos: cfg.Media.Disabled,
	})
	if err != nil {
		return err
	}

	return writeReport(cmd, report, extractOut)
}

// applyExtractFlags lets explicitly set flags override environment values.
func applyExtractFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if extractVerbose {
		cfg.Log.Level = "debug"
	}
	if flags.Changed("no-photos") {
		cfg.Media.Disabled = extractNoPhotos
	}
	if flags.Changed("photos-dir") {
		cfg.Media.Dir = extractPhotosDir
	}
	if flags.Changed("naming") {
		cfg.Media.Naming = extractNaming
	}
	if flags.Changed("max-scrolls") {
		cfg.Loader.MaxScrolls = extractMaxScrolls
	}
	if flags.Changed("require-stable") {
		cfg.Loader.RequireStable = extractRequireStable
	}
}

func writeReport(cmd *cobra.Command, report *models.Report, out string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if out == "" || out == "-" {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(out, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	cmd.PrintErrf("wrote %d entries to %s\n", len(report.Entries), out)
	return nil
}

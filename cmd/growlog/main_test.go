package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/growlog/config"
	"github.com/use-agent/growlog/models"
)

type fakeRunner struct {
	req    models.ExtractRequest
	report *models.Report
	err    error
}

func (f *fakeRunner) Run(_ context.Context, req models.ExtractRequest) (*models.Report, error) {
	f.req = req
	return f.report, f.err
}

// useRunner swaps the engine factory and resets flag state between tests.
func useRunner(t *testing.T, r *fakeRunner) *config.Config {
	t.Helper()
	var gotCfg config.Config
	orig := newRunner
	cleaned := false
	newRunner = func(cfg *config.Config, _ *slog.Logger) (runner, func(), error) {
		gotCfg = *cfg
		return r, func() { cleaned = true }, nil
	}
	t.Cleanup(func() {
		newRunner = orig
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		extractCmd.Flags().VisitAll(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
		assert.True(t, cleaned, "runner cleanup not called")
	})
	return &gotCfg
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestExtractCmd_Use(t *testing.T) {
	assert.Equal(t, "extract [url]", extractCmd.Use)
}

func TestExtractCmd_RequiresExactlyOneArg(t *testing.T) {
	defer rootCmd.SetArgs(nil)
	_, err := execute(t, "extract")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestExtractCmd_WritesReportToStdout(t *testing.T) {
	r := &fakeRunner{report: &models.Report{
		RunID:   "run-1",
		Title:   "NL",
		Entries: []models.TimelineEntry{{Kind: models.EntryActivity, Timestamp: "Jan 10th 24", PlantState: "vegetative"}},
	}}
	useRunner(t, r)

	out, err := execute(t, "extract", "https://growithjane.com/growlog/abc", "--title", "My grow")
	require.NoError(t, err)

	var got models.Report
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "run-1", got.RunID)
	require.Len(t, got.Entries, 1)
	assert.Equal(t, "vegetative", got.Entries[0].PlantState)

	assert.Equal(t, "https://growithjane.com/growlog/abc", r.req.URL)
	assert.Equal(t, "My grow", r.req.Title)
}

func TestExtractCmd_WritesReportFile(t *testing.T) {
	r := &fakeRunner{report: &models.Report{RunID: "run-2"}}
	useRunner(t, r)
	out := filepath.Join(t.TempDir(), "reports", "grow.json")

	_, err := execute(t, "extract", "https://growithjane.com/growlog/abc", "-o", out)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"run_id": "run-2"`)
}

func TestExtractCmd_FlagsOverrideConfig(t *testing.T) {
	r := &fakeRunner{report: &models.Report{}}
	cfg := useRunner(t, r)

	_, err := execute(t, "extract", "https://growithjane.com/growlog/abc",
		"--no-photos", "--photos-dir", "/tmp/p", "--naming", "content",
		"--max-scrolls", "7", "--require-stable", "-v")
	require.NoError(t, err)

	assert.True(t, cfg.Media.Disabled)
	assert.True(t, r.req.SkipPhotos)
	assert.Equal(t, "/tmp/p", cfg.Media.Dir)
	assert.Equal(t, "content", cfg.Media.Naming)
	assert.Equal(t, 7, cfg.Loader.MaxScrolls)
	assert.True(t, cfg.Loader.RequireStable)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestExtractCmd_PropagatesRunError(t *testing.T) {
	runErr := models.NewScrapeError(models.ErrCodeNavigation, "navigation to target URL failed", errors.New("dns"))
	useRunner(t, &fakeRunner{err: runErr})

	_, err := execute(t, "extract", "https://growithjane.com/growlog/abc")

	require.ErrorIs(t, err, runErr)
}

func TestInitLogger(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	buf := new(bytes.Buffer)
	initLogger(config.LogConfig{Level: "silent"}, buf).Info("hidden")
	assert.Empty(t, buf.String())

	initLogger(config.LogConfig{Level: "warn", Format: "json"}, buf).Warn("shown", "k", "v")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	buf.Reset()
	l := initLogger(config.LogConfig{Level: "info", Format: "text"}, buf)
	l.Debug("filtered")
	l.Info("kept")
	assert.NotContains(t, buf.String(), "filtered")
	assert.Contains(t, buf.String(), "msg=kept")
}

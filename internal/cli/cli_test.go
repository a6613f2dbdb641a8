package cli

import (
	"bytes"
	"context"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chronoview/internal/config"
	"chronoview/internal/dateparse"
	"chronoview/internal/model"
	"chronoview/internal/source"
	"chronoview/internal/timeline"
)

func TestDescribeDate(t *testing.T) {
	cfg := dateparse.DefaultConfig()

	r, err := describeDate("1066-10-14", cfg, false, model.TypeBox, time.UTC)
	require.NoError(t, err)
	require.Equal(t, 1066, r.Year)
	require.Equal(t, 10, r.Month)
	require.Equal(t, "token", r.Strategy)
	require.NotNil(t, r.Instant)
	require.Equal(t, time.Date(1066, 10, 14, 0, 0, 0, 0, time.UTC), *r.Instant)

	r, err = describeDate("2025", cfg, true, model.TypeRange, time.UTC)
	require.NoError(t, err)
	require.Equal(t, 2026, r.Year)
	require.Equal(t, "direct", r.Strategy)

	r, err = describeDate("0000", cfg, false, model.TypeBox, time.UTC)
	require.Error(t, err)
	require.NotEmpty(t, r.Error)
	require.Nil(t, r.Instant)
}

func TestWindowFromFlags(t *testing.T) {
	cfg := dateparse.DefaultConfig()
	require.Nil(t, windowFromFlags("", "", cfg, time.UTC))

	w := windowFromFlags("1990", "nonsense", cfg, time.UTC)
	require.NotNil(t, w)
	require.Equal(t, model.Millis(time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)), w.Start)
	require.True(t, math.IsNaN(w.End))
	require.True(t, math.IsNaN(w.Max))
}

func TestRenderKeepsRequestedWindow(t *testing.T) {
	cfg := config.DefaultConfig()
	r := newRenderer(cfg, time.UTC, nil)
	r.Now = func() time.Time { return time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC) }

	w := windowFromFlags("1950", "1970", cfg.DateFormat, time.UTC)
	pass := r.Render(nil, timeline.Request{Window: w})

	require.Equal(t, timeline.SourceExplicit, pass.ViewportSource)
	require.Equal(t, model.Millis(time.Date(1950, 1, 1, 0, 0, 0, 0, time.UTC)), pass.Viewport.Start)
	// A year-only end covers the whole year.
	require.Equal(t, model.Millis(time.Date(1971, 1, 1, 0, 0, 0, 0, time.UTC)), pass.Viewport.End)
	require.LessOrEqual(t, pass.Viewport.Min, pass.Viewport.Start)
	require.GreaterOrEqual(t, pass.Viewport.Max, pass.Viewport.End)
}

func TestLoadEventsJoinsEveryFailure(t *testing.T) {
	loader := &source.Loader{Fetcher: source.NewFetcher(t.TempDir(), nil), DateFormat: dateparse.DefaultConfig(), Loc: time.UTC}
	dir := t.TempDir()
	missing := []source.Source{
		{ID: "first", Path: filepath.Join(dir, "first.yaml")},
		{ID: "second", Path: filepath.Join(dir, "second.yaml")},
	}

	_, err := loadEvents(context.Background(), loader, missing)
	require.Error(t, err)
	require.ErrorIs(t, err, fs.ErrNotExist)
	require.Contains(t, err.Error(), "source first")
	require.Contains(t, err.Error(), "source second")

	good := filepath.Join(dir, "good.yaml")
	require.NoError(t, os.WriteFile(good, []byte("events:\n  - start: \"2020\"\n"), 0o600))
	events, err := loadEvents(context.Background(), loader, append(missing, source.Source{ID: "good", Path: good}))
	require.NoError(t, err)
	require.Len(t, events, 1)
}

func TestSourcesFrom(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Sources = []config.SourceConfig{
		{ID: "hist", Path: "history.yaml"},
		{URL: "https://example.com/cal.ics"},
	}
	got := sourcesFrom(cfg)
	require.Len(t, got, 2)
	require.Equal(t, "hist", got[0].ID)
	require.Equal(t, "source-2", got[1].ID)
	require.Equal(t, "https://example.com/cal.ics", got[1].URL)
}

func TestProbeHost(t *testing.T) {
	require.Equal(t, "127.0.0.1:8080", probeHost(":8080"))
	require.Equal(t, "127.0.0.1:8080", probeHost("0.0.0.0:8080"))
	require.Equal(t, "10.0.0.2:9000", probeHost("10.0.0.2:9000"))
}

func TestNewProberDisabled(t *testing.T) {
	cfg := config.DefaultConfig()
	require.Nil(t, newProber(cfg, nil))

	cfg.Probe.Enabled = true
	require.NotNil(t, newProber(cfg, nil))
}

func TestRefreshSchedulerRejectsBadSpec(t *testing.T) {
	_, err := newRefreshScheduler("every now and then", time.UTC, func() {})
	require.Error(t, err)

	c, err := newRefreshScheduler("*/15 * * * *", time.UTC, func() {})
	require.NoError(t, err)
	require.Len(t, c.Entries(), 1)
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, map[string]int{"a": 1}))
	require.Equal(t, "{\n  \"a\": 1\n}\n", buf.String())
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"chronoview/internal/calendar"
	"chronoview/internal/dateparse"
	"chronoview/internal/model"
	"chronoview/internal/source"
	"chronoview/internal/timeline"
)

func init() {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Run one render pass over the configured sources and print it as JSON",
		RunE:  runRender,
	}

	cmd.Flags().String("start", "", "Window start date, in the configured date format")
	cmd.Flags().String("end", "", "Window end date, in the configured date format")
	cmd.Flags().StringSliceP("source", "s", nil, "Local ICS/YAML file to render instead of the configured sources (repeatable)")

	RootCmd.AddCommand(cmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	loc := cfg.Location()

	sources := sourcesFrom(cfg)
	if paths, _ := cmd.Flags().GetStringSlice("source"); len(paths) > 0 {
		sources = make([]source.Source, 0, len(paths))
		for _, p := range paths {
			sources = append(sources, source.Source{ID: strings.TrimSuffix(filepath.Base(p), filepath.Ext(p)), Path: p})
		}
	}

	events, err := loadEvents(cmd.Context(), newLoader(cfg, loc, logger), sources)
	if err != nil {
		return err
	}

	start, _ := cmd.Flags().GetString("start")
	end, _ := cmd.Flags().GetString("end")
	req := timeline.Request{Window: windowFromFlags(start, end, cfg.DateFormat, loc)}

	pass := newRenderer(cfg, loc, logger).SafeRender(events, req)
	return writeJSON(os.Stdout, pass)
}

// loadEvents loads every source. It fails only when all of them fail; the
// error then carries each source's failure.
func loadEvents(ctx context.Context, loader *source.Loader, sources []source.Source) ([]model.RawEvent, error) {
	events, errs := loader.LoadAll(ctx, sources)
	if len(sources) > 0 && len(errs) == len(sources) {
		return nil, fmt.Errorf("every source failed to load: %w", errors.Join(errs...))
	}
	return events, nil
}

// windowFromFlags returns nil when neither bound is given. An unreadable
// bound is left NaN for the sanitizer to repair.
func windowFromFlags(start, end string, cfg dateparse.Config, loc *time.Location) *model.Viewport {
	if start == "" && end == "" {
		return nil
	}
	nan := math.NaN()
	return &model.Viewport{
		Start:   flagMillis(start, cfg, false, loc),
		End:     flagMillis(end, cfg, true, loc),
		Min:     nan,
		Max:     nan,
		ZoomMin: nan,
		ZoomMax: nan,
	}
}

func flagMillis(raw string, cfg dateparse.Config, isEnd bool, loc *time.Location) float64 {
	if raw == "" {
		return math.NaN()
	}
	c, err := dateparse.Parse(raw, cfg, isEnd, model.TypeRange)
	if err != nil {
		return math.NaN()
	}
	t, err := calendar.Build(c, loc)
	if err != nil {
		return math.NaN()
	}
	return model.Millis(t)
}

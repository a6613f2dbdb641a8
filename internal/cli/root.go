// Package cli implements the chronoview CLI commands.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"chronoview/internal/config"
	appLog "chronoview/internal/log"
	"chronoview/internal/source"
	"chronoview/internal/timeline"
)

var (
	configPath string
	logLevel   string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:           "chronoview",
	Short:         "Timeline renderer for ICS and YAML event sources",
	Long:          "Parses loosely formatted event dates, builds timeline items and serves them with a sanitized viewport.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config path (default: $CHRONOVIEW_CONFIG or /etc/chronoview/config.yaml)")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
}

func getConfigPath() string {
	if configPath != "" {
		return configPath
	}
	if env := os.Getenv("CHRONOVIEW_CONFIG"); env != "" {
		return env
	}
	return "/etc/chronoview/config.yaml"
}

// loadConfig reads the config file and returns it with a logger at the
// effective level. The package-level logger follows the same level.
func loadConfig() (*config.Config, *appLog.Logger, error) {
	path := getConfigPath()
	cfg, err := config.Load(path)
	if err != nil {
		if cfg == nil {
			return nil, nil, fmt.Errorf("load config %s: %w", path, err)
		}
		appLog.Warn("default config could not be written; continuing with defaults", "config_path", path, "err", err)
	}

	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	lvl := appLog.ParseLevel(level)
	appLog.SetLevel(lvl)
	return cfg, appLog.New(os.Stderr, lvl), nil
}

func newRenderer(cfg *config.Config, loc *time.Location, logger *appLog.Logger) *timeline.Renderer {
	return &timeline.Renderer{
		Settings:               cfg.TimelineSettings(),
		Loc:                    loc,
		Log:                    logger,
		LegacyDefaultDetection: cfg.LegacyDetection(),
	}
}

func newLoader(cfg *config.Config, loc *time.Location, logger *appLog.Logger) *source.Loader {
	return &source.Loader{
		Fetcher:      source.NewFetcher(cfg.CacheDir, logger),
		DateFormat:   cfg.DateFormat,
		Loc:          loc,
		HorizonYears: cfg.HorizonYears,
		Log:          logger,
	}
}

func sourcesFrom(cfg *config.Config) []source.Source {
	out := make([]source.Source, 0, len(cfg.Sources))
	for i, sc := range cfg.Sources {
		id := sc.ID
		if id == "" {
			id = fmt.Sprintf("source-%d", i+1)
		}
		out = append(out, source.Source{ID: id, Kind: sc.Kind, URL: sc.URL, Path: sc.Path})
	}
	return out
}

func writeJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

package cli

import (
	"fmt"
	"net"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"chronoview/internal/config"
	appLog "chronoview/internal/log"
	"chronoview/internal/probe"
	"chronoview/internal/source"
	"chronoview/internal/timeline"
	"chronoview/internal/web"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the timeline page and API, refreshing sources on a schedule",
		RunE:  runServe,
	}
	cmd.Flags().String("listen", "", "HTTP listen address (overrides config if set)")

	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		cfg.Listen = listen
	}

	loc := cfg.Location()
	logger.Info("effective config",
		"listen", cfg.Listen,
		"timezone", loc.String(),
		"refresh", cfg.RefreshCron,
		"sources", len(cfg.Sources),
		"tags", strings.Join(cfg.Tags, ","),
		"legacy_default_detection", cfg.LegacyDetection(),
		"probe", cfg.Probe.Enabled,
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loader := newLoader(cfg, loc, logger)
	sources := sourcesFrom(cfg)
	var snap source.Snapshot

	refresh := func() {
		if err := snap.Refresh(ctx, loader, sources); err != nil {
			logger.Error("source refresh incomplete", err)
		}
	}
	refresh()

	sched, err := newRefreshScheduler(cfg.RefreshCron, loc, refresh)
	if err != nil {
		return err
	}
	sched.Start()
	defer func() {
		<-sched.Stop().Done()
	}()

	srv := web.NewServer(cfg, newRenderer(cfg, loc, logger), &snap, logger)
	if p := newProber(cfg, logger); p != nil {
		srv.OnRendered = func(pass timeline.Pass) { p.Schedule(ctx, pass) }
	}

	err = srv.Run(ctx)
	logger.Info("chronoview exiting")
	return err
}

// newRefreshScheduler registers refresh on a standard 5-field cron spec.
func newRefreshScheduler(spec string, loc *time.Location, refresh func()) (*cron.Cron, error) {
	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(spec, refresh); err != nil {
		return nil, fmt.Errorf("refresh schedule %q: %w", spec, err)
	}
	return c, nil
}

func newProber(cfg *config.Config, logger *appLog.Logger) *probe.Prober {
	if !cfg.Probe.Enabled {
		return nil
	}
	url := cfg.Probe.URL
	if url == "" {
		url = "http://" + probeHost(cfg.Listen) + "/timeline"
	}
	return probe.New(probe.Options{
		URL:            url,
		ScreenshotPath: cfg.Probe.ScreenshotPath,
		Delay:          time.Duration(cfg.Probe.DelaySeconds) * time.Second,
	}, logger)
}

// probeHost turns a listen address into one a local browser can reach.
func probeHost(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return listen
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}

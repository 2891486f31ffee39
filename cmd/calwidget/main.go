package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"calwidget/internal/capture"
	"calwidget/internal/config"
	appLog "calwidget/internal/log"
	"calwidget/internal/sched"
	"calwidget/internal/source"
	"calwidget/internal/view"
	"calwidget/internal/web"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	once       bool
	snapshot   string
	debug      bool
}

func main() {
	appLog.Info("calwidget starting", "version", "0.1.0")

	flags := parseFlags()
	if flags.debug {
		appLog.SetLevel(appLog.LevelDebug)
	}

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	loc, err := conf.Location()
	if err != nil {
		appLog.Error("invalid timezone", err, "timezone", conf.Timezone)
		os.Exit(1)
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"days", conf.Days,
		"refresh_seconds", conf.RefreshSeconds,
		"countdown_seconds", conf.CountdownSeconds,
		"feed_count", len(conf.Feeds),
		"once", flags.once,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	// Source chain: per-feed adapters, merged, with bounded retries that
	// fall back to an empty list so the refresh path never hard-fails on
	// a flaky network.
	fetcher := source.NewFetcher(conf.CacheDir)
	feeds := make(source.Multi, 0, len(conf.Feeds))
	for _, fc := range conf.Feeds {
		feeds = append(feeds, source.NewFeed(fc.ID, fc.Name, fc.URL, fetcher, loc))
	}
	src := &source.Retry{Source: feeds}

	// One-time reachability probe, logged only; the refresh loop handles
	// outages on its own.
	for _, fc := range conf.Feeds {
		result := source.CheckAccess(ctx, nil, fc.URL, 10*time.Second)
		if result != source.AccessGranted {
			appLog.Info("feed access check", "feed", fc.ID, "result", result.String())
		}
	}

	ctrl := view.NewController(src,
		view.WithDays(conf.Days),
		view.WithClock(func() time.Time { return time.Now().In(loc) }),
	)

	if err := ctrl.Refresh(ctx); err != nil {
		appLog.Error("initial refresh failed, starting with empty view", err)
	}

	if flags.once {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(ctrl.Snapshot()); err != nil {
			appLog.Error("snapshot encode failed", err)
			os.Exit(1)
		}
		return
	}

	scheduler, err := sched.New(conf.RefreshInterval(), conf.CountdownInterval(),
		func() {
			if err := ctrl.Refresh(ctx); err != nil {
				appLog.Error("scheduled refresh failed", err)
			}
		},
		ctrl.Tick,
	)
	if err != nil {
		appLog.Error("failed to build scheduler", err)
		os.Exit(1)
	}
	scheduler.Start()
	defer func() { <-scheduler.Stop().Done() }()

	if flags.snapshot != "" {
		go func() {
			opts := capture.Options{
				URL:        "http://" + conf.Listen + "/",
				OutputPath: flags.snapshot,
			}
			if err := capture.WidgetPNG(ctx, opts); err != nil {
				appLog.Error("widget snapshot failed", err, "output", flags.snapshot)
			} else {
				appLog.Info("widget snapshot written", "output", flags.snapshot)
			}
			cancel()
		}()
	}

	if err := web.Serve(ctx, conf, ctrl); err != nil {
		appLog.Error("HTTP server failed", err)
		os.Exit(1)
	}
	appLog.Info("calwidget exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", defaultConfigPath(), "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Run one refresh, print the view snapshot as JSON and exit")
	flag.StringVar(&cfg.snapshot, "snapshot", "", "Capture the widget page to this PNG path and exit")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")

	flag.Parse()
	return cfg
}

func defaultConfigPath() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home + "/.config/calwidget/config.yaml"
	}
	return "./config.yaml"
}

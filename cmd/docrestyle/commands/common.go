package commands

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/docrestyle/internal/config"
	"git.home.luguber.info/inful/docrestyle/internal/events"
	"git.home.luguber.info/inful/docrestyle/internal/foundation/errors"
	"git.home.luguber.info/inful/docrestyle/internal/logfields"
	"git.home.luguber.info/inful/docrestyle/internal/metrics"
	"git.home.luguber.info/inful/docrestyle/internal/restyle"
	"git.home.luguber.info/inful/docrestyle/internal/site"
	"git.home.luguber.info/inful/docrestyle/internal/state"
)

// Global carries process-wide handles into subcommands.
type Global struct {
	Logger *slog.Logger
	Stdin  io.Reader
	Stdout io.Writer
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"docrestyle.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Apply ApplyCmd `cmd:"" help:"Restyle every page of a rendered site"`
	File  FileCmd  `cmd:"" help:"Restyle a single page (use - for stdin)"`
	Watch WatchCmd `cmd:"" help:"Watch a rendered site and restyle pages as they are written"`
	Init  InitCmd  `cmd:"" help:"Initialize a new configuration file"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// siteOptions maps the site section of the config onto processor options.
func siteOptions(cfg *config.Config) site.Options {
	return site.Options{
		Extensions:  cfg.Site.Extensions,
		Exclude:     cfg.Site.Exclude,
		Workers:     cfg.Site.Workers,
		Incremental: cfg.IncrementalEnabled(),
	}
}

// resolveRoot picks the site root: CLI flag first, then config.
func resolveRoot(flag string, cfg *config.Config) string {
	if flag != "" {
		return flag
	}
	return cfg.Site.Root
}

// components are the long-lived pieces a run needs, built from config.
type components struct {
	restyler  *restyle.Restyler
	store     state.Store
	publisher events.Publisher
	registry  *prometheus.Registry
	processor *site.Processor
}

func openStore(path string) (state.Store, error) {
	if path == "" {
		return state.NewSQLiteStore(":memory:")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to create state directory").
			WithContext("path", path).Build()
	}
	return state.NewSQLiteStore(path)
}

// build wires restyler, state store, metrics and events from cfg. withMetrics
// registers Prometheus collectors; one-shot runs leave it off.
func build(ctx context.Context, cfg *config.Config, opts site.Options, withMetrics bool) (*components, error) {
	r, err := restyle.New(cfg.RestyleOptions())
	if err != nil {
		return nil, err
	}
	store, err := openStore(cfg.State.Path)
	if err != nil {
		return nil, err
	}

	c := &components{restyler: r, store: store, publisher: events.NoopPublisher{}}
	if cfg.Events.Enabled {
		pub, err := events.NewNATSPublisher(ctx, events.NATSConfig{
			URL:     cfg.Events.NATSURL,
			Subject: cfg.Events.Subject,
			Stream:  cfg.Events.Stream,
			Retry:   cfg.EventsRetryPolicy(),
		})
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		c.publisher = pub
	}

	c.processor = site.NewProcessor(r, store, opts).WithPublisher(c.publisher)
	if withMetrics {
		c.registry = prometheus.NewRegistry()
		c.processor.WithRecorder(metrics.NewPrometheusRecorder(c.registry))
	}
	return c, nil
}

func (c *components) Close() {
	if err := c.publisher.Close(); err != nil {
		slog.Warn("Failed to close event publisher", logfields.Error(err))
	}
	if err := c.store.Close(); err != nil {
		slog.Warn("Failed to close state store", logfields.Error(err))
	}
}

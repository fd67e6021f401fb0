package commands

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/docrestyle/internal/config"
	"git.home.luguber.info/inful/docrestyle/internal/daemon"
	"git.home.luguber.info/inful/docrestyle/internal/metrics"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Root string `short:"r" help:"Rendered site root (overrides site.root)"`
}

func (w *WatchCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.LoadOptional(root.Config)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return RunWatch(ctx, cfg, w.Root)
}

// RunWatch runs the daemon until ctx is canceled.
func RunWatch(ctx context.Context, cfg *config.Config, rootFlag string) error {
	c, err := build(ctx, cfg, siteOptions(cfg), true)
	if err != nil {
		return err
	}
	defer c.Close()

	d, err := daemon.New(daemon.Config{
		Root:          resolveRoot(rootFlag, cfg),
		Debounce:      cfg.DebounceDuration(),
		SweepInterval: cfg.SweepIntervalDuration(),
		HTTPAddr:      cfg.StatusAddr(),
	}, c.processor, c.store, metrics.HTTPHandler(c.registry))
	if err != nil {
		return err
	}

	slog.Info("Starting watch mode", slog.String("http_addr", cfg.StatusAddr()))
	return d.Run(ctx)
}

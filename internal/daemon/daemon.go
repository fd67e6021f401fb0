package daemon

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"git.home.luguber.info/inful/docrestyle/internal/api"
	"git.home.luguber.info/inful/docrestyle/internal/foundation/errors"
	"git.home.luguber.info/inful/docrestyle/internal/logfields"
	"git.home.luguber.info/inful/docrestyle/internal/site"
	"git.home.luguber.info/inful/docrestyle/internal/state"
)

const defaultShutdownTimeout = 10 * time.Second

// Config holds the daemon settings.
type Config struct {
	Root          string
	Debounce      time.Duration
	SweepInterval time.Duration // zero disables the periodic sweep
	HTTPAddr      string        // empty disables the status server
}

// Daemon watches a rendered site and restyles pages as they are written.
type Daemon struct {
	cfg       Config
	processor *site.Processor
	runs      state.RunStore
	server    *api.Server
	scheduler *Scheduler
	workers   WorkerGroup

	// runMu serializes runs from the watcher and the sweep.
	runMu sync.Mutex

	mu      sync.RWMutex
	last    *state.Run
	cancel  context.CancelFunc
	started bool
}

// New creates a daemon. runs may be nil; metricsHandler may be nil.
func New(cfg Config, processor *site.Processor, runs state.RunStore, metricsHandler http.Handler) (*Daemon, error) {
	if processor == nil {
		return nil, errors.ValidationError("processor is required").Build()
	}
	if cfg.Root == "" {
		return nil, errors.ValidationError("site root is required").Build()
	}
	if cfg.Debounce <= 0 {
		return nil, errors.ValidationError("debounce must be > 0").
			WithContext("debounce", cfg.Debounce.String()).Build()
	}

	d := &Daemon{cfg: cfg, processor: processor, runs: runs}
	if cfg.HTTPAddr != "" {
		d.server = api.NewServer(cfg.HTTPAddr, d, metricsHandler)
	}
	return d, nil
}

// HTTPAddr returns the status server's bound address, or "" when disabled.
func (d *Daemon) HTTPAddr() string {
	if d.server == nil {
		return ""
	}
	return d.server.BoundAddr()
}

// Start runs an initial sweep and then starts the watcher, the scheduler and
// the status server. It returns once everything is running.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return errors.DaemonError("daemon already started").Build()
	}
	d.started = true
	d.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)

	// fail undoes a partial start so Start may be called again.
	fail := func(err error) error {
		cancel()
		_ = d.workers.StopAndWait(context.Background())
		d.workers.reset()
		d.mu.Lock()
		d.started = false
		d.scheduler = nil
		d.mu.Unlock()
		return err
	}

	watcher, err := NewSiteWatcher(d.cfg.Root, d.cfg.Debounce, d.processor.Options(), d.handleBatch)
	if err != nil {
		return fail(err)
	}
	// The watcher is live before the sweep so nothing written meanwhile is lost.
	d.workers.Go(func() { watcher.Run(runCtx) })

	if report, err := d.sweep(runCtx, site.TriggerSweep); report == nil && err != nil {
		return fail(err)
	}

	if d.cfg.SweepInterval > 0 {
		s, err := NewScheduler()
		if err != nil {
			return fail(err)
		}
		if _, err := s.ScheduleSweep(runCtx, d.cfg.SweepInterval, func(ctx context.Context) {
			_, _ = d.sweep(ctx, site.TriggerSweep)
		}); err != nil {
			_ = s.Stop()
			return fail(err)
		}
		s.Start()
		d.scheduler = s
	}

	if d.server != nil {
		if err := d.server.Listen(); err != nil {
			if d.scheduler != nil {
				_ = d.scheduler.Stop()
			}
			return fail(err)
		}
		slog.Info("Status server listening", slog.String("addr", d.server.BoundAddr()))
		d.workers.Go(func() {
			if err := d.server.Serve(); err != nil {
				slog.Error("Status server stopped", logfields.Error(err))
			}
		})
	}

	d.mu.Lock()
	d.cancel = cancel
	d.mu.Unlock()

	slog.Info("Watching site", logfields.Root(d.cfg.Root),
		slog.Duration("debounce", d.cfg.Debounce),
		slog.Duration("sweep_interval", d.cfg.SweepInterval))
	return nil
}

// Stop shuts everything down and waits for in-flight runs.
func (d *Daemon) Stop(ctx context.Context) error {
	d.mu.Lock()
	cancel := d.cancel
	d.cancel = nil
	d.mu.Unlock()
	if cancel == nil {
		return nil
	}

	cancel()
	var firstErr error
	if d.server != nil {
		if err := d.server.Shutdown(ctx); err != nil {
			firstErr = errors.WrapError(err, errors.CategoryDaemon, "failed to stop status server").Build()
		}
	}
	if d.scheduler != nil {
		if err := d.scheduler.Stop(); err != nil && firstErr == nil {
			firstErr = errors.WrapError(err, errors.CategoryDaemon, "failed to stop scheduler").Build()
		}
	}
	if err := d.workers.StopAndWait(ctx); err != nil && firstErr == nil {
		firstErr = errors.WrapError(err, errors.CategoryDaemon, "timed out waiting for workers").Build()
	}
	slog.Info("Daemon stopped")
	return firstErr
}

// Run starts the daemon and blocks until ctx is canceled.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultShutdownTimeout)
	defer cancel()
	return d.Stop(stopCtx)
}

// LastRun returns the most recent recorded run. Runs from this process win
// over the store, which is only consulted before the first one completes.
func (d *Daemon) LastRun(ctx context.Context) (*state.Run, error) {
	d.mu.RLock()
	last := d.last
	d.mu.RUnlock()
	if last != nil {
		run := *last
		return &run, nil
	}
	if d.runs == nil {
		return nil, nil
	}
	return d.runs.LastRun(ctx)
}

func (d *Daemon) sweep(ctx context.Context, trigger string) (*site.Report, error) {
	d.runMu.Lock()
	defer d.runMu.Unlock()

	report, err := d.processor.Run(ctx, d.cfg.Root, trigger)
	d.finish(report, err)
	return report, err
}

func (d *Daemon) handleBatch(ctx context.Context, paths []string) {
	d.runMu.Lock()
	defer d.runMu.Unlock()

	report, err := d.processor.RunFiles(ctx, d.cfg.Root, paths, site.TriggerWatch)
	d.finish(report, err)
}

func (d *Daemon) finish(report *site.Report, err error) {
	if err != nil && !errors.HasCategory(err, errors.CategoryCanceled) {
		slog.Warn("Restyle run reported errors", logfields.Root(d.cfg.Root), logfields.Error(err))
	}
	if report == nil || report.Idle {
		return
	}
	run := report.Run
	d.mu.Lock()
	d.last = &run
	d.mu.Unlock()
}

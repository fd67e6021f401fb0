package site

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/docrestyle/internal/events"
	"git.home.luguber.info/inful/docrestyle/internal/foundation/errors"
	"git.home.luguber.info/inful/docrestyle/internal/logfields"
	"git.home.luguber.info/inful/docrestyle/internal/metrics"
	"git.home.luguber.info/inful/docrestyle/internal/restyle"
	"git.home.luguber.info/inful/docrestyle/internal/state"
)

// Triggers recorded on runs.
const (
	TriggerCLI   = "cli"
	TriggerWatch = "watch"
	TriggerSweep = "sweep"
)

// PageResult is the outcome for one page.
type PageResult struct {
	Path    string              `json:"path"`
	Outcome metrics.PageOutcome `json:"outcome"`
	Result  restyle.Result      `json:"result"`
	Err     error               `json:"-"`
}

// Report is what a run returns: the summary plus every page outcome sorted by path.
type Report struct {
	Run   state.Run
	Pages []PageResult
	// Idle is set for watch runs that found nothing to do. Such runs are
	// neither recorded nor published.
	Idle bool
}

// ChangedPages lists the pages that were (or in dry-run would have been) rewritten.
func (r *Report) ChangedPages() []string {
	var out []string
	for _, p := range r.Pages {
		if p.Outcome == metrics.PageChanged {
			out = append(out, p.Path)
		}
	}
	return out
}

// Processor restyles the pages of a rendered site.
type Processor struct {
	restyler  *restyle.Restyler
	store     state.Store
	recorder  metrics.Recorder
	publisher events.Publisher
	opts      Options
	now       func() time.Time
	newID     func() string
}

// NewProcessor builds a processor. store may be nil, which disables
// incremental skipping and run recording.
func NewProcessor(r *restyle.Restyler, store state.Store, opts Options) *Processor {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Processor{
		restyler:  r,
		store:     store,
		recorder:  metrics.NoopRecorder{},
		publisher: events.NoopPublisher{},
		opts:      opts,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// WithRecorder sets the metrics recorder.
func (p *Processor) WithRecorder(r metrics.Recorder) *Processor {
	if r != nil {
		p.recorder = r
	}
	return p
}

// WithPublisher sets the run event publisher.
func (p *Processor) WithPublisher(pub events.Publisher) *Processor {
	if pub != nil {
		p.publisher = pub
	}
	return p
}

// Options returns the processor options.
func (p *Processor) Options() Options {
	return p.opts
}

// Run restyles every accepted page under root.
func (p *Processor) Run(ctx context.Context, root, trigger string) (*Report, error) {
	absRoot, err := resolveRoot(root)
	if err != nil {
		return nil, err
	}

	files, err := p.collect(ctx, absRoot)
	if err != nil {
		return nil, err
	}
	return p.runFiles(ctx, absRoot, files, trigger)
}

// RunFiles restyles the given pages, which must live under root. Paths that
// are not accepted by the options or no longer exist are ignored.
func (p *Processor) RunFiles(ctx context.Context, root string, paths []string, trigger string) (*Report, error) {
	absRoot, err := resolveRoot(root)
	if err != nil {
		return nil, err
	}

	var rels []string
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(absRoot, abs)
		if err != nil || !filepath.IsLocal(rel) {
			continue
		}
		rel = filepath.ToSlash(rel)
		if !p.opts.Accepts(rel) {
			continue
		}
		if info, err := os.Stat(abs); err != nil || !info.Mode().IsRegular() {
			continue
		}
		rels = append(rels, rel)
	}
	slices.Sort(rels)
	rels = slices.Compact(rels)
	return p.runFiles(ctx, absRoot, rels, trigger)
}

func resolveRoot(root string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryFileSystem, "failed to resolve site root").
			WithContext("path", root).Build()
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.NewError(errors.CategoryNotFound, "site root does not exist").
				WithContext("path", root).UserAction().Build()
		}
		return "", errors.WrapError(err, errors.CategoryFileSystem, "failed to stat site root").
			WithContext("path", root).Build()
	}
	if !info.IsDir() {
		return "", errors.ValidationError("site root is not a directory").WithContext("path", root).Build()
	}
	return absRoot, nil
}

// collect walks root and returns accepted pages as sorted slash paths.
func (p *Processor) collect(ctx context.Context, root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if rel != "." && p.opts.Excludes(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if p.opts.Accepts(rel) {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, canceled(ctx.Err())
		}
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to walk site").
			WithContext("path", root).Build()
	}
	slices.Sort(files)
	return files, nil
}

func canceled(err error) error {
	return errors.WrapError(err, errors.CategoryCanceled, "restyle run canceled").Build()
}

func (p *Processor) runFiles(ctx context.Context, root string, files []string, trigger string) (*Report, error) {
	run := state.Run{
		ID:        p.newID(),
		Root:      root,
		Trigger:   trigger,
		DryRun:    p.opts.DryRun,
		StartedAt: p.now(),
	}
	log := slog.With(logfields.RunID(run.ID), logfields.Root(root))
	log.Debug("Starting restyle run", logfields.Pages(len(files)), slog.String("trigger", trigger))

	results := make([]PageResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)
	for i, rel := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			results[i] = p.processPage(gctx, run.ID, root, rel)
			if results[i].Err != nil && gctx.Err() != nil {
				return gctx.Err()
			}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, canceled(err)
	}

	report := &Report{Pages: results}
	var firstErr error
	for _, pr := range results {
		run.Pages++
		switch pr.Outcome {
		case metrics.PageChanged:
			run.Changed++
		case metrics.PageUnchanged:
			run.Unchanged++
		case metrics.PageSkipped:
			run.Skipped++
		case metrics.PageFailed:
			run.Failed++
			if firstErr == nil {
				firstErr = pr.Err
			}
			log.Warn("Failed to restyle page", logfields.Path(pr.Path), logfields.Error(pr.Err))
		}
		run.Tables += pr.Result.Tables
		run.InlineCode += pr.Result.InlineCode
		run.SkippedReferences += pr.Result.SkippedReferences

		p.recorder.IncPage(pr.Outcome)
		p.recorder.AddElements(metrics.ElementTable, pr.Result.Tables)
		p.recorder.AddElements(metrics.ElementInlineCode, pr.Result.InlineCode)
		p.recorder.AddElements(metrics.ElementReference, pr.Result.SkippedReferences)
		if pr.Result.SearchHook {
			p.recorder.AddElements(metrics.ElementSearchHook, 1)
		}
	}
	run.FinishedAt = p.now()
	report.Run = run

	// Our own writes come back through the watcher as already restyled pages.
	if trigger == TriggerWatch && run.Pages == run.Skipped+run.Unchanged {
		log.Debug("Watch batch needed no changes", logfields.Pages(run.Pages))
		report.Idle = true
		return report, nil
	}

	p.recorder.ObserveRunDuration(trigger, run.Duration())
	p.recorder.SetLastRun(run.FinishedAt)

	if p.store != nil {
		if err := p.store.RecordRun(ctx, run); err != nil {
			log.Warn("Failed to record run", logfields.Error(err))
		}
	}
	if err := p.publisher.PublishRunCompleted(ctx, events.NewRunCompletedEvent(run, report.ChangedPages())); err != nil {
		log.Warn("Failed to publish run event", logfields.Error(err))
	}

	log.Info("Restyle run completed",
		logfields.Pages(run.Pages),
		logfields.Changed(run.Changed),
		logfields.Skipped(run.Skipped),
		logfields.Failed(run.Failed),
		logfields.Tables(run.Tables),
		logfields.InlineCode(run.InlineCode),
		logfields.DurationMS(float64(run.Duration().Microseconds())/1000),
		slog.Bool("dry_run", run.DryRun))

	if run.Failed > 0 {
		return report, errors.WrapError(firstErr, errors.GetCategory(firstErr), "failed to restyle some pages").
			WithContext("failed", run.Failed).
			WithContext("run_id", run.ID).
			Build()
	}
	return report, nil
}

// processPage never returns a Go error; failures are recorded on the result.
func (p *Processor) processPage(ctx context.Context, runID, root, rel string) PageResult {
	pr := PageResult{Path: rel}
	abs := filepath.Join(root, filepath.FromSlash(rel))
	key := filepath.ToSlash(abs)

	fail := func(err error) PageResult {
		pr.Outcome = metrics.PageFailed
		pr.Err = err
		return pr
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return fail(errors.WrapError(err, errors.CategoryFileSystem, "failed to read page").
			WithContext("path", rel).Build())
	}
	hash := contentHash(data)

	if p.opts.Incremental && p.store != nil {
		stored, err := p.store.PageHash(ctx, key)
		if err != nil {
			return fail(err)
		}
		if stored == hash {
			pr.Outcome = metrics.PageSkipped
			return pr
		}
	}

	var out bytes.Buffer
	res, err := p.restyler.Rewrite(bytes.NewReader(data), &out)
	if err != nil {
		return fail(errors.WrapError(err, errors.CategoryParse, "failed to restyle page").
			WithContext("path", rel).Build())
	}
	pr.Result = res

	if !res.Changed() {
		pr.Outcome = metrics.PageUnchanged
		return p.remember(ctx, pr, key, hash, runID)
	}

	pr.Outcome = metrics.PageChanged
	if p.opts.DryRun {
		return pr
	}
	if err := writeAtomic(abs, out.Bytes()); err != nil {
		return fail(errors.WrapError(err, errors.CategoryFileSystem, "failed to write page").
			WithContext("path", rel).Build())
	}
	return p.remember(ctx, pr, key, contentHash(out.Bytes()), runID)
}

func (p *Processor) remember(ctx context.Context, pr PageResult, key, hash, runID string) PageResult {
	if p.store == nil || p.opts.DryRun {
		return pr
	}
	if err := p.store.PutPageHash(ctx, state.Page{Path: key, Hash: hash, RunID: runID, UpdatedAt: p.now()}); err != nil {
		slog.Warn("Failed to record page hash", logfields.Path(pr.Path), logfields.Error(err))
	}
	return pr
}

func contentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// writeAtomic replaces path with data, keeping its permission bits.
func writeAtomic(path string, data []byte) error {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".docrestyle-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Chmod(mode); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return err
	}
	return nil
}

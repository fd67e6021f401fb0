package commands

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/docrestyle/internal/config"
	"git.home.luguber.info/inful/docrestyle/internal/site"
)

// ApplyCmd implements the 'apply' command.
type ApplyCmd struct {
	Root   string `short:"r" help:"Rendered site root (overrides site.root)"`
	DryRun bool   `name:"dry-run" help:"Report what would change without writing"`
	Full   bool   `help:"Ignore stored page hashes and restyle every page"`
}

func (a *ApplyCmd) Run(g *Global, root *CLI) error {
	cfg, err := config.LoadOptional(root.Config)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return RunApply(ctx, cfg, a, g.Stdout)
}

// RunApply performs one pass over the site and prints a summary to out.
func RunApply(ctx context.Context, cfg *config.Config, a *ApplyCmd, out io.Writer) error {
	opts := siteOptions(cfg)
	opts.DryRun = a.DryRun
	if a.Full {
		opts.Incremental = false
	}

	c, err := build(ctx, cfg, opts, false)
	if err != nil {
		return err
	}
	defer c.Close()

	report, err := c.processor.Run(ctx, resolveRoot(a.Root, cfg), site.TriggerCLI)
	if report != nil {
		printReport(out, report, a.DryRun)
	}
	return err
}

func printReport(out io.Writer, report *site.Report, dryRun bool) {
	run := report.Run
	verb := "Restyled"
	if dryRun {
		verb = "Would restyle"
		for _, path := range report.ChangedPages() {
			_, _ = fmt.Fprintf(out, "  %s\n", path)
		}
	}
	_, _ = fmt.Fprintf(out, "%s %d of %d pages (tables: %d, inline code: %d, skipped references: %d)\n",
		verb, run.Changed, run.Pages, run.Tables, run.InlineCode, run.SkippedReferences)
	if run.Skipped > 0 {
		_, _ = fmt.Fprintf(out, "Skipped %d unchanged pages\n", run.Skipped)
	}
	if run.Failed > 0 {
		_, _ = fmt.Fprintf(out, "Failed %d pages\n", run.Failed)
	}
}

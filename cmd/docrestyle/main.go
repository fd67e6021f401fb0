package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/docrestyle/cmd/docrestyle/commands"
	"git.home.luguber.info/inful/docrestyle/internal/foundation/errors"
	"git.home.luguber.info/inful/docrestyle/internal/version"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cli := &commands.CLI{}
	parser, err := kong.New(cli,
		kong.Name("docrestyle"),
		kong.Description("Restyle Sphinx-rendered HTML for Bootstrap and wire up the search widget."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)
	if err != nil {
		panic(err)
	}

	kctx, err := parser.Parse(args)
	parser.FatalIfErrorf(err)

	global := &commands.Global{Logger: slog.Default(), Stdin: os.Stdin, Stdout: os.Stdout}
	if err := kctx.Run(global, cli); err != nil {
		return errors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).Report(os.Stderr, err)
	}
	return 0
}

package commands

import (
	"bytes"
	"io"
	"log/slog"
	"os"

	"git.home.luguber.info/inful/docrestyle/internal/config"
	"git.home.luguber.info/inful/docrestyle/internal/foundation/errors"
	"git.home.luguber.info/inful/docrestyle/internal/logfields"
	"git.home.luguber.info/inful/docrestyle/internal/restyle"
)

// FileCmd implements the 'file' command.
type FileCmd struct {
	Path   string `arg:"" help:"Page to restyle, or - to read stdin"`
	Output string `short:"o" help:"Write the result here instead of in place (- for stdout)"`
}

func (f *FileCmd) Run(g *Global, root *CLI) error {
	cfg, err := config.LoadOptional(root.Config)
	if err != nil {
		return err
	}
	return RunFile(cfg, f, g.Stdin, g.Stdout)
}

// RunFile restyles one page. Input "-" reads stdin and, without --output,
// writes to stdout. A page restyled in place is only rewritten when it changed.
func RunFile(cfg *config.Config, f *FileCmd, stdin io.Reader, stdout io.Writer) error {
	r, err := restyle.New(cfg.RestyleOptions())
	if err != nil {
		return err
	}

	var src io.Reader = stdin
	var mode os.FileMode = 0o644
	if f.Path != "-" {
		data, err := os.ReadFile(f.Path)
		if err != nil {
			if os.IsNotExist(err) {
				return errors.NewError(errors.CategoryNotFound, "page not found").
					WithContext("path", f.Path).UserAction().Build()
			}
			return errors.WrapError(err, errors.CategoryFileSystem, "failed to read page").
				WithContext("path", f.Path).Build()
		}
		if info, err := os.Stat(f.Path); err == nil {
			mode = info.Mode().Perm()
		}
		src = bytes.NewReader(data)
	}

	var buf bytes.Buffer
	res, err := r.Rewrite(src, &buf)
	if err != nil {
		return err
	}

	dest := f.Output
	if dest == "" {
		dest = f.Path
	}
	slog.Debug("Restyled page",
		logfields.Path(f.Path),
		logfields.Tables(res.Tables),
		logfields.InlineCode(res.InlineCode),
		slog.Bool("changed", res.Changed()))

	if dest == "-" {
		_, err := stdout.Write(buf.Bytes())
		return err
	}
	if dest == f.Path && !res.Changed() {
		return nil
	}
	if err := os.WriteFile(dest, buf.Bytes(), mode); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to write page").
			WithContext("path", dest).Build()
	}
	return nil
}

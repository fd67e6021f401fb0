package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyRoot       = "root"
	KeyPath       = "path"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyTables     = "tables"
	KeyInlineCode = "inline_code"
	KeyPages      = "pages"
	KeyChanged    = "changed"
	KeySkipped    = "skipped"
	KeyFailed     = "failed"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Root(r string) slog.Attr         { return slog.String(KeyRoot, r) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Tables(n int) slog.Attr          { return slog.Int(KeyTables, n) }
func InlineCode(n int) slog.Attr      { return slog.Int(KeyInlineCode, n) }
func Pages(n int) slog.Attr           { return slog.Int(KeyPages, n) }
func Changed(n int) slog.Attr         { return slog.Int(KeyChanged, n) }
func Skipped(n int) slog.Attr         { return slog.Int(KeySkipped, n) }
func Failed(n int) slog.Attr          { return slog.Int(KeyFailed, n) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}

package site

import (
	"path/filepath"
	"slices"
	"strings"
)

// Options controls which files a Processor touches and how.
type Options struct {
	Extensions  []string
	Exclude     []string
	Workers     int
	Incremental bool
	DryRun      bool
}

// DefaultOptions returns HTML-only, four workers, incremental.
func DefaultOptions() Options {
	return Options{
		Extensions:  []string{".html", ".htm"},
		Workers:     4,
		Incremental: true,
	}
}

// Accepts reports whether the slash-separated path rel (relative to the site
// root) should be processed.
func (o Options) Accepts(rel string) bool {
	ext := strings.ToLower(filepath.Ext(rel))
	if !slices.ContainsFunc(o.Extensions, func(e string) bool { return strings.EqualFold(e, ext) }) {
		return false
	}
	return !o.Excludes(rel)
}

// Excludes reports whether rel (a file or directory) matches an exclude pattern.
func (o Options) Excludes(rel string) bool {
	for _, pattern := range o.Exclude {
		if ok, _ := filepath.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

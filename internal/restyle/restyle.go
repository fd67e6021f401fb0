package restyle

import (
	"io"
	"regexp"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"git.home.luguber.info/inful/docrestyle/internal/foundation/errors"
)

// Options controls which elements are restyled and how.
type Options struct {
	TableSelector      string
	TableMarkerClass   string
	TableClasses       []string
	TableBorder        string // empty removes the attribute
	InlineCodeSelector string
	InlineCodeTag      string
	ReferenceClass     string
	SearchEntryPoint   string // empty disables the search hook
}

// DefaultOptions returns the Sphinx/docutils to Bootstrap mapping.
func DefaultOptions() Options {
	return Options{
		TableSelector:      "table.docutils",
		TableMarkerClass:   "docutils",
		TableClasses:       []string{"table", "table-bordered", "table-striped"},
		TableBorder:        "0",
		InlineCodeSelector: "tt.docutils.literal:not(.xref)",
		InlineCodeTag:      "code",
		ReferenceClass:     "reference",
		SearchEntryPoint:   "Search.init",
	}
}

// Result counts what a single Apply changed.
type Result struct {
	Tables            int  `json:"tables"`
	InlineCode        int  `json:"inline_code"`
	SkippedReferences int  `json:"skipped_references"`
	SearchHook        bool `json:"search_hook"`
}

// Changed reports whether the document was mutated.
func (r Result) Changed() bool {
	return r.Tables > 0 || r.InlineCode > 0 || r.SearchHook
}

// Add accumulates other into r.
func (r *Result) Add(other Result) {
	r.Tables += other.Tables
	r.InlineCode += other.InlineCode
	r.SkippedReferences += other.SkippedReferences
	if other.SearchHook {
		r.SearchHook = true
	}
}

var entryPointPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*(\.[A-Za-z_$][A-Za-z0-9_$]*)*$`)

// ValidEntryPoint reports whether s is a dotted JavaScript identifier path.
func ValidEntryPoint(s string) bool {
	return entryPointPattern.MatchString(s)
}

// Restyler applies Options to parsed documents. It holds no per-document
// state and is safe for concurrent use.
type Restyler struct {
	opts       Options
	tables     cascadia.Selector
	inlineCode cascadia.Selector
	searchHook cascadia.Selector
	body       cascadia.Selector
}

// New compiles the selectors in opts.
func New(opts Options) (*Restyler, error) {
	tables, err := cascadia.Compile(opts.TableSelector)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryValidation, "invalid table selector").
			WithContext("selector", opts.TableSelector).Build()
	}
	inlineCode, err := cascadia.Compile(opts.InlineCodeSelector)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryValidation, "invalid inline code selector").
			WithContext("selector", opts.InlineCodeSelector).Build()
	}
	if opts.InlineCodeTag == "" {
		return nil, errors.ValidationError("inline code tag must not be empty").Build()
	}
	if opts.SearchEntryPoint != "" && !ValidEntryPoint(opts.SearchEntryPoint) {
		return nil, errors.ValidationError("search entry point must be a dotted identifier").
			WithContext("entry_point", opts.SearchEntryPoint).Build()
	}

	return &Restyler{
		opts:       opts,
		tables:     tables,
		inlineCode: inlineCode,
		searchHook: cascadia.MustCompile(`script[` + searchHookAttr + `="` + searchHookValue + `"]`),
		body:       cascadia.MustCompile("body"),
	}, nil
}

// Options returns the options the restyler was built with.
func (r *Restyler) Options() Options {
	return r.opts
}

// Apply restyles doc in place.
func (r *Restyler) Apply(doc *html.Node) Result {
	var res Result
	res.Tables = r.restyleTables(doc)
	res.InlineCode, res.SkippedReferences = r.restyleInlineCode(doc)
	res.SearchHook = r.ensureSearchHook(doc)
	return res
}

// Rewrite parses a document from src, restyles it and renders it to dst.
func (r *Restyler) Rewrite(src io.Reader, dst io.Writer) (Result, error) {
	doc, err := html.Parse(src)
	if err != nil {
		return Result{}, errors.WrapError(err, errors.CategoryParse, "failed to parse HTML").Build()
	}

	res := r.Apply(doc)

	if err := html.Render(dst, doc); err != nil {
		return res, errors.WrapError(err, errors.CategoryParse, "failed to render HTML").Build()
	}
	return res, nil
}

func (r *Restyler) restyleTables(doc *html.Node) int {
	count := 0
	for _, table := range r.tables.MatchAll(doc) {
		changed := false
		if r.opts.TableMarkerClass != "" && removeClass(table, r.opts.TableMarkerClass) {
			changed = true
		}
		if addClasses(table, r.opts.TableClasses...) {
			changed = true
		}
		if r.setBorder(table) {
			changed = true
		}
		if changed {
			count++
		}
	}
	return count
}

func (r *Restyler) setBorder(table *html.Node) bool {
	current, ok := getAttr(table, "border")
	if r.opts.TableBorder == "" {
		if !ok {
			return false
		}
		removeAttr(table, "border")
		return true
	}
	if ok && current == r.opts.TableBorder {
		return false
	}
	setAttr(table, "border", r.opts.TableBorder)
	return true
}

func (r *Restyler) restyleInlineCode(doc *html.Node) (replaced, skipped int) {
	for _, literal := range r.inlineCode.MatchAll(doc) {
		if r.opts.ReferenceClass != "" && hasClass(literal.Parent, r.opts.ReferenceClass) {
			skipped++
			continue
		}
		retag(literal, r.opts.InlineCodeTag)
		replaced++
	}
	return replaced, skipped
}

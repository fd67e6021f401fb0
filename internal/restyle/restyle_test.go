package restyle

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"git.home.luguber.info/inful/docrestyle/internal/foundation/errors"
)

func noSearchOptions() Options {
	opts := DefaultOptions()
	opts.SearchEntryPoint = ""
	return opts
}

func mustRestyler(t *testing.T, opts Options) *Restyler {
	t.Helper()
	r, err := New(opts)
	require.NoError(t, err)
	return r
}

func parse(t *testing.T, src string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(src))
	require.NoError(t, err)
	return doc
}

// renderBody renders the children of <body>, which is where fragments land.
func renderBody(t *testing.T, doc *html.Node) string {
	t.Helper()
	body := mustBody(t, doc)
	var buf bytes.Buffer
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		require.NoError(t, html.Render(&buf, c))
	}
	return buf.String()
}

func mustBody(t *testing.T, doc *html.Node) *html.Node {
	t.Helper()
	var find func(*html.Node) *html.Node
	find = func(n *html.Node) *html.Node {
		if n.Type == html.ElementNode && n.Data == "body" {
			return n
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if b := find(c); b != nil {
				return b
			}
		}
		return nil
	}
	body := find(doc)
	require.NotNil(t, body)
	return body
}

func TestApply_TableScenario(t *testing.T) {
	r := mustRestyler(t, noSearchOptions())
	doc := parse(t, `<table class="docutils" border="1"><tr><td>a</td></tr></table>`)

	res := r.Apply(doc)

	require.Equal(t, 1, res.Tables)
	require.Equal(t,
		`<table class="table table-bordered table-striped" border="0"><tbody><tr><td>a</td></tr></tbody></table>`,
		renderBody(t, doc))
}

func TestApply_TableKeepsOtherClasses(t *testing.T) {
	r := mustRestyler(t, noSearchOptions())
	doc := parse(t, `<table class="docutils field-list table"><tr><td>a</td></tr></table>`)

	res := r.Apply(doc)

	require.Equal(t, 1, res.Tables)
	require.Contains(t, renderBody(t, doc), `class="field-list table table-bordered table-striped" border="0"`)
}

func TestApply_TableWithoutMarkerIsUntouched(t *testing.T) {
	r := mustRestyler(t, noSearchOptions())
	src := `<table class="highlighttable" border="1"><tbody><tr><td>a</td></tr></tbody></table>`
	doc := parse(t, src)

	res := r.Apply(doc)

	require.False(t, res.Changed())
	require.Equal(t, src, renderBody(t, doc))
}

func TestApply_EmptyBorderRemovesAttribute(t *testing.T) {
	opts := noSearchOptions()
	opts.TableBorder = ""
	r := mustRestyler(t, opts)
	doc := parse(t, `<table class="docutils" border="1"></table>`)

	r.Apply(doc)

	require.Equal(t, `<table class="table table-bordered table-striped"></table>`, renderBody(t, doc))
}

func TestApply_InlineCodeScenario(t *testing.T) {
	r := mustRestyler(t, noSearchOptions())
	doc := parse(t, `<p><tt class="docutils literal">x</tt></p>`)

	res := r.Apply(doc)

	require.Equal(t, 1, res.InlineCode)
	require.Equal(t, `<p><code>x</code></p>`, renderBody(t, doc))
}

func TestApply_InlineCodePreservesInnerMarkup(t *testing.T) {
	r := mustRestyler(t, noSearchOptions())
	inner := `<span class="pre">os.path</span> <em>join</em>`
	doc := parse(t, `<p>call <tt class="docutils literal" id="lit">`+inner+`</tt> now</p>`)

	r.Apply(doc)

	require.Equal(t, `<p>call <code>`+inner+`</code> now</p>`, renderBody(t, doc))
}

func TestApply_InlineCodeInsideReferenceIsUntouched(t *testing.T) {
	r := mustRestyler(t, noSearchOptions())
	src := `<a class="reference"><tt class="docutils literal">x</tt></a>`
	doc := parse(t, src)

	res := r.Apply(doc)

	require.Equal(t, 0, res.InlineCode)
	require.Equal(t, 1, res.SkippedReferences)
	require.False(t, res.Changed())
	require.Equal(t, src, renderBody(t, doc))
}

func TestApply_CrossReferenceLiteralIsUntouched(t *testing.T) {
	r := mustRestyler(t, noSearchOptions())
	src := `<p><tt class="xref docutils literal">x</tt></p>`
	doc := parse(t, src)

	res := r.Apply(doc)

	require.False(t, res.Changed())
	require.Equal(t, src, renderBody(t, doc))
}

func TestApply_LiteralWithOnlyOneMarkerIsUntouched(t *testing.T) {
	r := mustRestyler(t, noSearchOptions())
	src := `<p><tt class="literal">x</tt><tt class="docutils">y</tt></p>`
	doc := parse(t, src)

	require.False(t, r.Apply(doc).Changed())
	require.Equal(t, src, renderBody(t, doc))
}

func TestApply_NoMatchesIsNoop(t *testing.T) {
	r := mustRestyler(t, noSearchOptions())
	src := `<h1>Title</h1><p>plain <code>text</code></p>`
	doc := parse(t, src)

	res := r.Apply(doc)

	if diff := cmp.Diff(Result{}, res); diff != "" {
		t.Fatalf("unexpected result (-want +got):\n%s", diff)
	}
	require.Equal(t, src, renderBody(t, doc))
}

func TestApply_SearchHookInjectedOnce(t *testing.T) {
	r := mustRestyler(t, DefaultOptions())
	doc := parse(t, `<p>hello</p>`)

	first := r.Apply(doc)
	second := r.Apply(doc)

	require.True(t, first.SearchHook)
	require.False(t, second.SearchHook)

	out := renderBody(t, doc)
	require.Equal(t, 1, strings.Count(out, `data-docrestyle="search-init"`))
	require.Contains(t, out, `Search.init();`)
}

func TestApply_CustomSearchEntryPoint(t *testing.T) {
	opts := DefaultOptions()
	opts.SearchEntryPoint = "window.DocSearch.setup"
	r := mustRestyler(t, opts)
	doc := parse(t, `<p>hello</p>`)

	r.Apply(doc)

	require.Contains(t, renderBody(t, doc), `window.DocSearch.setup();`)
}

func TestApply_Idempotent(t *testing.T) {
	r := mustRestyler(t, DefaultOptions())
	src := `<!DOCTYPE html><html><head><title>t</title></head><body>
<table class="docutils" border="1"><tr><td><tt class="docutils literal">a</tt></td></tr></table>
<p><a class="reference internal" href="#x"><tt class="xref docutils literal">ref</tt></a>
<a class="reference" href="#y"><tt class="docutils literal">y</tt></a>
<tt class="docutils literal"><span class="pre">z</span></tt></p>
</body></html>`

	var first bytes.Buffer
	res, err := r.Rewrite(strings.NewReader(src), &first)
	require.NoError(t, err)
	if diff := cmp.Diff(Result{Tables: 1, InlineCode: 2, SkippedReferences: 1, SearchHook: true}, res); diff != "" {
		t.Fatalf("first pass (-want +got):\n%s", diff)
	}

	var second bytes.Buffer
	res, err = r.Rewrite(bytes.NewReader(first.Bytes()), &second)
	require.NoError(t, err)
	require.False(t, res.Changed())
	require.Equal(t, first.String(), second.String())
}

func TestNew_InvalidSelector(t *testing.T) {
	opts := DefaultOptions()
	opts.TableSelector = "table[["

	_, err := New(opts)
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryValidation))
}

func TestNew_InvalidEntryPoint(t *testing.T) {
	opts := DefaultOptions()
	opts.SearchEntryPoint = "alert(1); Search.init"

	_, err := New(opts)
	require.Error(t, err)
}

func TestValidEntryPoint(t *testing.T) {
	require.True(t, ValidEntryPoint("Search.init"))
	require.True(t, ValidEntryPoint("$docs.search_v2.init"))
	require.False(t, ValidEntryPoint(""))
	require.False(t, ValidEntryPoint("Search..init"))
	require.False(t, ValidEntryPoint("Search.init()"))
}

func TestResultAdd(t *testing.T) {
	total := Result{Tables: 1}
	total.Add(Result{Tables: 2, InlineCode: 3, SkippedReferences: 1, SearchHook: true})
	total.Add(Result{})

	require.Equal(t, Result{Tables: 3, InlineCode: 3, SkippedReferences: 1, SearchHook: true}, total)
}

func TestRewrite_PageWithoutMatchesOnlyGainsSearchHook(t *testing.T) {
	r := mustRestyler(t, DefaultOptions())
	src := `<!DOCTYPE html><html><head><title>plain</title></head><body><p>plain <code>text</code></p></body></html>`

	var first bytes.Buffer
	res, err := r.Rewrite(strings.NewReader(src), &first)
	require.NoError(t, err)
	if diff := cmp.Diff(Result{SearchHook: true}, res); diff != "" {
		t.Fatalf("unexpected result (-want +got):\n%s", diff)
	}
	require.True(t, res.Changed())

	want := strings.Replace(src, `</body>`,
		`<script data-docrestyle="search-init">`+SearchHookScript("Search.init")+`</script></body>`, 1)
	require.Equal(t, want, first.String())

	var second bytes.Buffer
	res, err = r.Rewrite(bytes.NewReader(first.Bytes()), &second)
	require.NoError(t, err)
	require.False(t, res.Changed())
	require.Equal(t, first.String(), second.String())
}

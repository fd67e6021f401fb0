package restyle

import (
	"golang.org/x/net/html"
)

const (
	searchHookAttr  = "data-docrestyle"
	searchHookValue = "search-init"
)

// SearchHookScript returns the script body that calls entryPoint once the
// document is ready.
func SearchHookScript(entryPoint string) string {
	return `document.addEventListener("DOMContentLoaded", function () { ` + entryPoint + `(); });`
}

// ensureSearchHook appends the search setup script to <body> unless one is
// already present. Reports whether a script was added.
func (r *Restyler) ensureSearchHook(doc *html.Node) bool {
	if r.opts.SearchEntryPoint == "" {
		return false
	}
	if r.searchHook.MatchFirst(doc) != nil {
		return false
	}
	body := r.body.MatchFirst(doc)
	if body == nil {
		return false
	}

	script := newElement("script")
	script.Attr = []html.Attribute{{Key: searchHookAttr, Val: searchHookValue}}
	script.AppendChild(&html.Node{Type: html.TextNode, Data: SearchHookScript(r.opts.SearchEntryPoint)})
	body.AppendChild(script)
	return true
}

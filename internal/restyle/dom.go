package restyle

import (
	"slices"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) (string, bool) {
	for _, attr := range n.Attr {
		if attr.Namespace == "" && attr.Key == key {
			return attr.Val, true
		}
	}
	return "", false
}

// setAttr replaces the value of key in place, or appends it.
func setAttr(n *html.Node, key, val string) {
	for i, attr := range n.Attr {
		if attr.Namespace == "" && attr.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	n.Attr = slices.DeleteFunc(n.Attr, func(a html.Attribute) bool {
		return a.Namespace == "" && a.Key == key
	})
}

func classList(n *html.Node) []string {
	v, _ := getAttr(n, "class")
	return strings.Fields(v)
}

func hasClass(n *html.Node, class string) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	return slices.Contains(classList(n), class)
}

// removeClass drops every occurrence of class. Reports whether anything changed.
func removeClass(n *html.Node, class string) bool {
	classes := classList(n)
	kept := slices.DeleteFunc(slices.Clone(classes), func(c string) bool { return c == class })
	if len(kept) == len(classes) {
		return false
	}
	setAttr(n, "class", strings.Join(kept, " "))
	return true
}

// addClasses appends the missing classes in order. Reports whether anything changed.
func addClasses(n *html.Node, classes ...string) bool {
	current := classList(n)
	changed := false
	for _, c := range classes {
		if c == "" || slices.Contains(current, c) {
			continue
		}
		current = append(current, c)
		changed = true
	}
	if changed {
		setAttr(n, "class", strings.Join(current, " "))
	}
	return changed
}

func newElement(tag string) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}
}

// retag replaces old with a fresh attribute-less element named tag that
// adopts old's children unchanged.
func retag(old *html.Node, tag string) *html.Node {
	replacement := newElement(tag)
	for c := old.FirstChild; c != nil; {
		next := c.NextSibling
		old.RemoveChild(c)
		replacement.AppendChild(c)
		c = next
	}
	if parent := old.Parent; parent != nil {
		parent.InsertBefore(replacement, old)
		parent.RemoveChild(old)
	}
	return replacement
}

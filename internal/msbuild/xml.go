package msbuild

import (
	"strings"

	"github.com/beevik/etree"
)

const defaultIndent = "  "

// leadingSpace returns the whitespace token that precedes e in its parent.
func leadingSpace(e *etree.Element) string {
	parent := e.Parent()
	if parent == nil {
		return ""
	}
	if i := e.Index(); i > 0 {
		if cd, ok := parent.Child[i-1].(*etree.CharData); ok && cd.IsWhitespace() {
			return cd.Data
		}
	}
	return ""
}

// lineIndent returns the indentation of the line e starts on.
func lineIndent(e *etree.Element) string {
	ws := leadingSpace(e)
	if i := strings.LastIndex(ws, "\n"); i >= 0 {
		return ws[i+1:]
	}
	return ""
}

// detectIndent guesses the indentation unit from the root's first child.
func detectIndent(root *etree.Element) string {
	for _, child := range root.ChildElements() {
		if unit := lineIndent(child); unit != "" {
			return unit
		}
	}
	return defaultIndent
}

// appendChild adds child as the last element of parent, one indentation unit
// deeper than parent.
func appendChild(parent, child *etree.Element, unit string) {
	base := lineIndent(parent)
	if n := len(parent.Child); n > 0 {
		if cd, ok := parent.Child[n-1].(*etree.CharData); ok && cd.IsWhitespace() {
			parent.RemoveChildAt(n - 1)
		}
	}
	parent.AddChild(etree.NewText("\n" + base + unit))
	parent.AddChild(child)
	parent.AddChild(etree.NewText("\n" + base))
}

// insertAfter places child right after sibling at the same indentation.
func insertAfter(sibling, child *etree.Element) {
	parent := sibling.Parent()
	idx := sibling.Index() + 1
	parent.InsertChildAt(idx, child)
	parent.InsertChildAt(idx, etree.NewText("\n"+lineIndent(sibling)))
}

// removeElement detaches e along with the whitespace that precedes it.
func removeElement(e *etree.Element) {
	parent := e.Parent()
	if parent == nil {
		return
	}
	if i := e.Index(); i > 0 {
		if cd, ok := parent.Child[i-1].(*etree.CharData); ok && cd.IsWhitespace() {
			parent.RemoveChildAt(i - 1)
		}
	}
	parent.RemoveChild(e)
}

// textElement builds <tag>text</tag>.
func textElement(tag, text string) *etree.Element {
	e := etree.NewElement(tag)
	e.SetText(text)
	return e
}

// childText returns the text of the first child element named tag.
func childText(e *etree.Element, tag string) (string, bool) {
	for _, c := range e.ChildElements() {
		if c.Tag == tag {
			return strings.TrimSpace(c.Text()), true
		}
	}
	return "", false
}

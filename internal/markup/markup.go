// Package markup builds a tolerant element tree, with byte offsets, from
// markup that may be incomplete while the user is still typing.
package markup

import (
	"strings"

	"golang.org/x/net/html"
)

// voidElements never have content or an end tag.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// Node is one element. Offsets are bytes into the parsed text.
type Node struct {
	Tag         string // lower-cased
	Attrs       map[string]string
	Start       int    // offset of '<'
	StartTagEnd int    // offset just past the start tag
	EndTagStart int    // offset of "</", or -1 without an end tag
	End         int
	startName   int    // raw name length in the start tag
	endName     int    // raw name length in the end tag
	Closed      bool   // closed by its own end tag, or void/self-closing
	Parent      *Node
	Children    []*Node
}

// StartTagName returns the byte span of the tag name in the start tag.
func (n *Node) StartTagName() (int, int) {
	return n.Start + 1, n.Start + 1 + n.startName
}

// EndTagName returns the byte span of the tag name in the end tag.
func (n *Node) EndTagName() (int, int, bool) {
	if n.EndTagStart < 0 {
		return 0, 0, false
	}
	return n.EndTagStart + 2, n.EndTagStart + 2 + n.endName, true
}

// nameLen returns the length of the tag name at the start of s, as written.
// Tag and TagName are lower-cased and NUL-replaced, so their length can
// differ from the source bytes.
func nameLen(s string) int {
	if i := strings.IndexAny(s, " \t\n\r\f/>"); i >= 0 {
		return i
	}
	return len(s)
}

// Void reports whether the element can never have content.
func (n *Node) Void() bool {
	return voidElements[n.Tag]
}

// Stray is an end tag that closed nothing.
type Stray struct {
	Tag   string
	Start int
	End   int
}

// Tree is the parsed form of a markup document.
type Tree struct {
	Roots []*Node
	Stray []Stray
}

// Parse never fails. Elements left open at the end of the text end there,
// and an end tag closes the nearest open element with the same name,
// implicitly ending anything opened after it.
func Parse(text string) *Tree {
	tree := &Tree{}

	var (
		stack  []*Node
		offset int
	)

	z := html.NewTokenizer(strings.NewReader(text))
	for {
		tt := z.Next()
		start := offset
		offset += len(z.Raw())

		switch tt {
		case html.ErrorToken:
			for _, n := range stack {
				n.End = len(text)
			}
			return tree

		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			n := &Node{
				Tag:         string(name),
				Attrs:       readAttrs(z, hasAttr),
				Start:       start,
				StartTagEnd: offset,
				EndTagStart: -1,
				startName:   nameLen(text[min(start+1, len(text)):offset]),
			}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				n.Parent = parent
				parent.Children = append(parent.Children, n)
			} else {
				tree.Roots = append(tree.Roots, n)
			}

			if tt == html.SelfClosingTagToken {
				// <textarea/> would otherwise swallow the rest as raw text.
				z.NextIsNotRawText()
			}
			if tt == html.SelfClosingTagToken || n.Void() {
				n.End = offset
				n.Closed = true
				continue
			}
			stack = append(stack, n)

		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)

			i := len(stack) - 1
			for i >= 0 && stack[i].Tag != tag {
				i--
			}
			if i < 0 {
				tree.Stray = append(tree.Stray, Stray{Tag: tag, Start: start, End: offset})
				continue
			}

			for _, open := range stack[i+1:] {
				open.End = start
			}
			n := stack[i]
			n.EndTagStart = start
			n.endName = nameLen(text[min(start+2, offset):offset])
			n.End = offset
			n.Closed = true
			stack = stack[:i]
		}
	}
}

func readAttrs(z *html.Tokenizer, more bool) map[string]string {
	if !more {
		return nil
	}
	attrs := make(map[string]string)
	for more {
		var key, val []byte
		key, val, more = z.TagAttr()
		attrs[string(key)] = string(val)
	}
	return attrs
}

// NodeAt returns the innermost element whose span contains offset, or nil.
func (t *Tree) NodeAt(offset int) *Node {
	var found *Node
	nodes := t.Roots
	for {
		var next *Node
		for _, n := range nodes {
			if n.Start <= offset && offset < n.End {
				next = n
				break
			}
		}
		if next == nil {
			return found
		}
		found = next
		nodes = next.Children
	}
}

// Walk visits every element depth-first in document order. Returning false
// from fn skips the element's children.
func (t *Tree) Walk(fn func(n *Node) bool) {
	var walk func(nodes []*Node)
	walk = func(nodes []*Node) {
		for _, n := range nodes {
			if fn(n) {
				walk(n.Children)
			}
		}
	}
	walk(t.Roots)
}

package posttreat

import "github.com/beevik/etree"

// rewriter walks a tree in document order and hands every image element to
// the resolver.
//
// The walk reads the next sibling of a token before visiting it. Visiting an
// image may unlink it, so the live sibling links cannot be trusted
// afterwards, but the captured token is still in the tree.
type rewriter struct {
	resolver
}

// walk visits first and all its following siblings, depth first.
// It is called on the first child of an element.
func (w *rewriter) walk(first etree.Token) {
	for tok := first; tok != nil; {
		next := nextSibling(tok)
		if el, ok := tok.(*etree.Element); ok {
			w.visit(el)
		}
		tok = next
	}
}

func (w *rewriter) visit(el *etree.Element) {
	if el.Tag == "image" {
		w.report.Images++
		if w.resolve(el) != Recursed {
			return
		}
	}
	if len(el.Child) > 0 {
		w.walk(el.Child[0])
	}
}

// nextSibling returns the token following t in its parent, or nil.
func nextSibling(t etree.Token) etree.Token {
	parent := t.Parent()
	if parent == nil {
		return nil
	}
	i := t.Index() + 1
	if i <= 0 || i >= len(parent.Child) {
		return nil
	}
	return parent.Child[i]
}

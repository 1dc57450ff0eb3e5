// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package texmath

import (
	"bytes"
	"fmt"
	"strings"
	"sync/atomic"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// =============================================================================
// FRAGMENT RENDERER
// =============================================================================

// skipElements are never scanned for math.
var skipElements = map[atom.Atom]bool{
	atom.Pre:      true,
	atom.Code:     true,
	atom.Script:   true,
	atom.Style:    true,
	atom.Textarea: true,
	atom.Math:     true,
}

// Renderer replaces math spans inside an HTML fragment with MathML.
//
// A Renderer created with NewDeferred reports not ready until MarkReady is
// called, which models a math library that finishes loading after the first
// messages are already on screen.
type Renderer struct {
	ready atomic.Bool
}

// New returns a renderer that is ready immediately.
func New() *Renderer {
	r := &Renderer{}
	r.ready.Store(true)
	return r
}

// NewDeferred returns a renderer that is not ready yet.
func NewDeferred() *Renderer {
	return &Renderer{}
}

// MarkReady flips the renderer to ready.
func (r *Renderer) MarkReady() {
	r.ready.Store(true)
}

// Ready reports whether RenderMathSpans may be called.
func (r *Renderer) Ready() bool {
	return r.ready.Load()
}

// RenderMathSpans returns fragment with every well-formed math span in its
// text replaced by MathML. Malformed spans stay as literal text. Text inside
// pre, code, script, style and existing math elements is not touched, so
// running the pass twice is a no-op.
func (r *Renderer) RenderMathSpans(fragment string) (string, error) {
	if !strings.ContainsAny(fragment, `$\`) {
		return fragment, nil
	}

	context := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), context)
	if err != nil {
		return fragment, fmt.Errorf("parse fragment: %w", err)
	}

	root := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	for _, n := range nodes {
		root.AppendChild(n)
	}

	changed, err := replaceSpans(root)
	if err != nil {
		return fragment, err
	}
	if !changed {
		return fragment, nil
	}

	var buf bytes.Buffer
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return fragment, fmt.Errorf("render fragment: %w", err)
		}
	}
	return buf.String(), nil
}

// replaceSpans rewrites the text nodes under n that contain math. The
// walk keeps its own stack so deeply nested markup cannot exhaust the
// goroutine stack.
func replaceSpans(n *html.Node) (bool, error) {
	var texts []*html.Node
	stack := []*html.Node{n}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for c := top.LastChild; c != nil; c = c.PrevSibling {
			switch c.Type {
			case html.ElementNode:
				if !skipElements[c.DataAtom] {
					stack = append(stack, c)
				}
			case html.TextNode:
				texts = append(texts, c)
			}
		}
	}

	changed := false
	for _, t := range texts {
		ok, err := replaceText(t.Parent, t)
		if err != nil {
			return changed, err
		}
		changed = changed || ok
	}
	return changed, nil
}

// replaceText splices MathML for each span of text node t into parent.
func replaceText(parent, t *html.Node) (bool, error) {
	spans := FindSpans(t.Data)
	if len(spans) == 0 {
		return false, nil
	}

	changed := false
	last := 0
	var out []*html.Node
	for _, sp := range spans {
		mathml, err := ToMathML(sp.TeX, sp.Delim.Display())
		if err != nil {
			// Malformed: leave the span as text
			continue
		}
		rendered, err := html.ParseFragment(strings.NewReader(mathml), parent)
		if err != nil {
			return false, fmt.Errorf("parse mathml: %w", err)
		}
		if sp.Start > last {
			out = append(out, &html.Node{Type: html.TextNode, Data: t.Data[last:sp.Start]})
		}
		out = append(out, rendered...)
		last = sp.End
		changed = true
	}
	if !changed {
		return false, nil
	}
	if last < len(t.Data) {
		out = append(out, &html.Node{Type: html.TextNode, Data: t.Data[last:]})
	}

	for _, n := range out {
		parent.InsertBefore(n, t)
	}
	parent.RemoveChild(t)
	return true, nil
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package texmath finds delimited TeX math spans in text and renders them
// as MathML.
package texmath

import "strings"

// =============================================================================
// SPANS
// =============================================================================

// Delimiter identifies which delimiter pair enclosed a span.
type Delimiter int

const (
	DelimDollar       Delimiter = iota // $...$
	DelimDoubleDollar                  // $$...$$
	DelimParen                         // \(...\)
	DelimBracket                       // \[...\]
)

// Display reports whether the delimiter denotes block math.
func (d Delimiter) Display() bool {
	return d == DelimDoubleDollar || d == DelimBracket
}

func (d Delimiter) open() string {
	switch d {
	case DelimDoubleDollar:
		return "$$"
	case DelimParen:
		return `\(`
	case DelimBracket:
		return `\[`
	default:
		return "$"
	}
}

func (d Delimiter) close() string {
	switch d {
	case DelimDoubleDollar:
		return "$$"
	case DelimParen:
		return `\)`
	case DelimBracket:
		return `\]`
	default:
		return "$"
	}
}

// Span is one delimited math region. Start and End are byte offsets of the
// whole span in the scanned string, delimiters included.
type Span struct {
	Start int
	End   int
	Delim Delimiter
	TeX   string
}

// Source returns the span text exactly as it appeared.
func (s Span) Source() string {
	return s.Delim.open() + s.TeX + s.Delim.close()
}

// FindSpans returns the math spans of text in order. Unterminated or empty
// spans are not reported and stay literal. A backslash-escaped dollar never
// opens or closes a span. Inline dollar math must not start or end with
// whitespace, so prices like "$5 and $6" are left alone.
func FindSpans(text string) []Span {
	var spans []Span
	// Delimiters whose closer does not occur in the rest of text
	var unclosed [DelimBracket + 1]bool
	scan := func(i int, d Delimiter) (Span, bool) {
		if unclosed[d] {
			return Span{}, false
		}
		sp, ok, closed := scanClosed(text, i, d)
		if !closed {
			unclosed[d] = true
		}
		return sp, ok
	}

	for i := 0; i < len(text); {
		switch {
		case strings.HasPrefix(text[i:], `\$`):
			i += 2
			continue

		case strings.HasPrefix(text[i:], "$$"):
			if sp, ok := scan(i, DelimDoubleDollar); ok {
				spans = append(spans, sp)
				i = sp.End
				continue
			}
			i += 2
			continue

		case strings.HasPrefix(text[i:], `\[`):
			if sp, ok := scan(i, DelimBracket); ok {
				spans = append(spans, sp)
				i = sp.End
				continue
			}

		case strings.HasPrefix(text[i:], `\(`):
			if sp, ok := scan(i, DelimParen); ok {
				spans = append(spans, sp)
				i = sp.End
				continue
			}

		case text[i] == '$':
			if sp, ok := scanInlineDollar(text, i); ok {
				spans = append(spans, sp)
				i = sp.End
				continue
			}
		}
		i++
	}
	return spans
}

// scanClosed reads the span opened at start. closed is false when the
// closer does not occur anywhere after the opener.
func scanClosed(text string, start int, d Delimiter) (sp Span, ok, closed bool) {
	bodyStart := start + len(d.open())
	rel := strings.Index(text[bodyStart:], d.close())
	if rel < 0 {
		return Span{}, false, false
	}
	body := text[bodyStart : bodyStart+rel]
	if strings.TrimSpace(body) == "" {
		return Span{}, false, true
	}
	return Span{
		Start: start,
		End:   bodyStart + rel + len(d.close()),
		Delim: d,
		TeX:   body,
	}, true, true
}

func scanInlineDollar(text string, start int) (Span, bool) {
	bodyStart := start + 1
	if bodyStart >= len(text) || isSpace(text[bodyStart]) {
		return Span{}, false
	}
	for j := bodyStart; j < len(text); j++ {
		switch text[j] {
		case '\\':
			j++ // skip escaped char
		case '\n':
			if j+1 < len(text) && text[j+1] == '\n' {
				return Span{}, false
			}
		case '$':
			if isSpace(text[j-1]) {
				return Span{}, false
			}
			return Span{
				Start: start,
				End:   j + 1,
				Delim: DelimDollar,
				TeX:   text[bodyStart:j],
			}, true
		}
	}
	return Span{}, false
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

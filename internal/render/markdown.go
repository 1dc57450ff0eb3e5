// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"bytes"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/jeranaias/chatwidget/internal/render/texmath"
)

// Private-use runes bracket math placeholders while Markdown is parsed.
const (
	placeholderOpen  = '\uE000'
	placeholderClose = '\uE001'
)

// =============================================================================
// MARKDOWN FORMATTER
// =============================================================================

// MarkdownFormatter renders GitHub-flavored Markdown to sanitized HTML.
//
// Math spans are lifted out before parsing so that Markdown escapes and
// emphasis cannot eat TeX syntax, and are put back as literal text for the
// math pass to find.
type MarkdownFormatter struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// MarkdownOptions configures the formatter.
type MarkdownOptions struct {
	// HardWraps renders every newline as a line break.
	HardWraps bool
}

// NewMarkdownFormatter creates a formatter.
func NewMarkdownFormatter(opts MarkdownOptions) *MarkdownFormatter {
	rendererOpts := []goldmark.Option{
		goldmark.WithExtensions(
			extension.NewTable(extension.WithTableCellAlignMethod(extension.TableCellAlignAttribute)),
			extension.Strikethrough,
			extension.Linkify,
			extension.TaskList,
		),
	}
	if opts.HardWraps {
		rendererOpts = append(rendererOpts, goldmark.WithRendererOptions(gmhtml.WithHardWraps()))
	}

	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("type", "checked", "disabled").OnElements("input")
	policy.RequireNoFollowOnLinks(true)
	policy.AddTargetBlankToFullyQualifiedLinks(true)

	return &MarkdownFormatter{
		md:     goldmark.New(rendererOpts...),
		policy: policy,
	}
}

// Format implements Formatter.
func (f *MarkdownFormatter) Format(text string) (string, error) {
	protected, spans := protectMath(text)

	var buf bytes.Buffer
	if err := f.md.Convert([]byte(protected), &buf); err != nil {
		return "", fmt.Errorf("markdown: %w", err)
	}

	safe := f.policy.Sanitize(buf.String())
	return restoreMath(safe, spans), nil
}

// protectMath swaps every math span for a numbered placeholder.
func protectMath(text string) (string, []texmath.Span) {
	spans := texmath.FindSpans(text)
	if len(spans) == 0 {
		return text, nil
	}

	var b strings.Builder
	last := 0
	for i, sp := range spans {
		b.WriteString(text[last:sp.Start])
		b.WriteRune(placeholderOpen)
		b.WriteString(strconv.Itoa(i))
		b.WriteRune(placeholderClose)
		last = sp.End
	}
	b.WriteString(text[last:])
	return b.String(), spans
}

// restoreMath puts the escaped span sources back in place of placeholders.
func restoreMath(markup string, spans []texmath.Span) string {
	if len(spans) == 0 {
		return markup
	}

	var b strings.Builder
	for {
		open := strings.IndexRune(markup, placeholderOpen)
		if open < 0 {
			break
		}
		rest := markup[open+len(string(placeholderOpen)):]
		end := strings.IndexRune(rest, placeholderClose)
		if end < 0 {
			break
		}
		n, err := strconv.Atoi(rest[:end])
		if err != nil || n < 0 || n >= len(spans) {
			b.WriteString(markup[:open+len(string(placeholderOpen))])
			markup = rest
			continue
		}
		b.WriteString(markup[:open])
		b.WriteString(html.EscapeString(spans[n].Source()))
		markup = rest[end+len(string(placeholderClose)):]
	}
	b.WriteString(markup)
	return b.String()
}

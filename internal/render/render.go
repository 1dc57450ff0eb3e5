// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render turns message text into safe display markup.
package render

import (
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/jeranaias/chatwidget/internal/model"
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// Formatter converts structured document text (Markdown) into markup.
type Formatter interface {
	Format(text string) (string, error)
}

// MathRenderer replaces delimited math spans inside a markup fragment.
// Ready reports false while the underlying library is still loading.
type MathRenderer interface {
	Ready() bool
	RenderMathSpans(fragment string) (string, error)
}

// Capabilities carries the optional collaborators. A nil field means the
// capability is unavailable.
type Capabilities struct {
	Formatter Formatter
	Math      MathRenderer
}

// Result is the output of one render.
type Result struct {
	Markup string

	// MathPending is set when the math pass was skipped because the math
	// renderer was not ready. The caller may retry once later.
	MathPending bool
}

// Degradation stages passed to the degraded hook.
const (
	StageFormat = "format"
	StageMath   = "math"
)

// =============================================================================
// RENDERER
// =============================================================================

// Renderer renders message text for display. It never fails: every
// collaborator error is logged and the escaped form is used instead.
type Renderer struct {
	logger     *slog.Logger
	onDegraded func(stage string)
}

// NewRenderer creates a renderer. A nil logger discards log output.
func NewRenderer(logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Renderer{logger: logger}
}

// OnDegraded registers a hook called whenever a collaborator fails.
func (r *Renderer) OnDegraded(fn func(stage string)) {
	r.onDegraded = fn
}

// Render renders text for a message of the given role.
//
// User and system text is always escaped, never interpreted. Assistant text
// goes through the formatter when one is available, then through the math
// pass.
func (r *Renderer) Render(text string, role model.Role, caps Capabilities) Result {
	if role != model.RoleAssistant {
		return Result{Markup: EscapeText(text)}
	}

	markup := r.format(text, caps.Formatter)

	if caps.Math == nil {
		return Result{Markup: markup}
	}
	if !caps.Math.Ready() {
		return Result{Markup: markup, MathPending: true}
	}
	return Result{Markup: r.math(markup, caps.Math)}
}

func (r *Renderer) format(text string, f Formatter) (markup string) {
	if f == nil {
		return EscapeText(text)
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.degraded(StageFormat, fmt.Errorf("formatter panic: %v", rec))
			markup = EscapeText(text)
		}
	}()

	out, err := f.Format(text)
	if err != nil {
		r.degraded(StageFormat, err)
		return EscapeText(text)
	}
	return out
}

func (r *Renderer) math(markup string, m MathRenderer) (out string) {
	defer func() {
		if rec := recover(); rec != nil {
			r.degraded(StageMath, fmt.Errorf("math renderer panic: %v", rec))
			out = markup
		}
	}()

	rendered, err := m.RenderMathSpans(markup)
	if err != nil {
		r.degraded(StageMath, err)
		return markup
	}
	return rendered
}

func (r *Renderer) degraded(stage string, err error) {
	r.logger.Warn("RENDER_DEGRADED", "stage", stage, "error", err)
	if r.onDegraded != nil {
		r.onDegraded(stage)
	}
}

// =============================================================================
// ESCAPING
// =============================================================================

// EscapeText neutralizes HTML special characters and turns newlines into
// line breaks.
func EscapeText(text string) string {
	escaped := html.EscapeString(text)
	escaped = strings.ReplaceAll(escaped, "\r\n", "\n")
	return strings.ReplaceAll(escaped, "\n", "<br>")
}

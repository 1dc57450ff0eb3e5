// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package surface

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/jeranaias/chatwidget/internal/export"
	"github.com/jeranaias/chatwidget/internal/model"
	"github.com/jeranaias/chatwidget/internal/util"
)

// =============================================================================
// TERMINAL SURFACE
// =============================================================================

// TerminalOptions configures a Terminal surface.
type TerminalOptions struct {
	// Width is the number of columns available. Default: 80
	Width int

	// Profile is the color profile to render with. Default: termenv.Ascii
	Profile termenv.Profile

	// Dark selects the dark palette.
	Dark bool

	// Markdown renders assistant text with glamour.
	Markdown bool

	// ShowTimestamps adds message timestamps to the info line.
	ShowTimestamps bool
}

// Terminal is an append-only surface that prints chat bubbles to a
// terminal. Terminals cannot rewrite earlier output, so updates are printed
// again with an "edited" mark and removals print a notice.
//
// Terminals display source text rather than HTML markup: assistant text is
// rendered from Markdown by glamour, everything else is printed as is.
type Terminal struct {
	mu     sync.Mutex
	out    *termenv.Output
	lg     *lipgloss.Renderer
	opts   TerminalOptions
	md     *glamour.TermRenderer
	styles terminalStyles
}

type terminalStyles struct {
	user      lipgloss.Style
	assistant lipgloss.Style
	system    lipgloss.Style
	info      lipgloss.Style
	notice    lipgloss.Style
	selected  lipgloss.Style
}

// NewTerminal creates a terminal surface writing to w.
func NewTerminal(w io.Writer, opts TerminalOptions) *Terminal {
	if opts.Width <= 0 {
		opts.Width = 80
	}

	out := termenv.NewOutput(w, termenv.WithProfile(opts.Profile))
	lg := lipgloss.NewRenderer(w, termenv.WithProfile(opts.Profile))
	lg.SetHasDarkBackground(opts.Dark)

	t := &Terminal{
		out:    out,
		lg:     lg,
		opts:   opts,
		styles: newTerminalStyles(lg, opts.Dark),
	}

	if opts.Markdown {
		style := "light"
		if opts.Dark {
			style = "dark"
		}
		if opts.Profile == termenv.Ascii {
			style = "notty"
		}
		md, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithColorProfile(opts.Profile),
			glamour.WithWordWrap(t.bubbleWidth()-4),
		)
		if err == nil {
			t.md = md
		}
	}
	return t
}

func newTerminalStyles(lg *lipgloss.Renderer, dark bool) terminalStyles {
	bubbleBorder, bubbleFg, infoFg := lipgloss.Color("#e0e0e0"), lipgloss.Color("#2c2c2c"), lipgloss.Color("#666666")
	if dark {
		bubbleBorder, bubbleFg, infoFg = lipgloss.Color("#5d5d5d"), lipgloss.Color("#ffffff"), lipgloss.Color("#999999")
	}

	return terminalStyles{
		user: lg.NewStyle().
			Background(lipgloss.Color("#fe3636")).
			Foreground(lipgloss.Color("#ffffff")).
			Padding(0, 1),
		assistant: lg.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(bubbleBorder).
			Foreground(bubbleFg).
			Padding(0, 1),
		system: lg.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(bubbleBorder).
			Foreground(bubbleFg).
			Padding(0, 1),
		info:     lg.NewStyle().Foreground(infoFg),
		notice:   lg.NewStyle().Foreground(infoFg).Faint(true),
		selected: lg.NewStyle().Bold(true),
	}
}

// Mount implements Surface.
func (t *Terminal) Mount(v View) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.write(t.format(v.Message, ""))
}

// Update implements Surface.
func (t *Terminal) Update(v View) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.write(t.format(v.Message, "edited"))
}

// Remove implements Surface.
func (t *Terminal) Remove(id int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.write(t.styles.notice.Render(fmt.Sprintf("message #%d removed", id)))
}

// ClearAll implements Surface.
func (t *Terminal) ClearAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.opts.Profile == termenv.Ascii {
		t.write(t.styles.notice.Render("chat cleared"))
		return
	}
	t.out.ClearScreen()
}

// Highlight implements Highlighter.
func (t *Terminal) Highlight(id int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.write(t.styles.selected.Render(fmt.Sprintf("> selected message #%d", id)))
}

func (t *Terminal) write(s string) {
	fmt.Fprintln(t.out, s)
}

// bubbleWidth is the widest a bubble may be, 70% of the terminal.
func (t *Terminal) bubbleWidth() int {
	w := t.opts.Width * 7 / 10
	if w < 20 {
		w = 20
	}
	return w
}

// format renders one message as a bubble followed by its info line.
func (t *Terminal) format(msg model.Message, mark string) string {
	var body []string
	if msg.Attachment != "" {
		body = append(body, "["+util.StripControl(export.AttachmentSummary(msg.Attachment))+"]")
	}
	if text := t.text(msg); text != "" {
		body = append(body, text)
	}
	content := strings.Join(body, "\n")

	style := t.styles.system
	pos := lipgloss.Left
	switch msg.Role {
	case model.RoleUser:
		style = t.styles.user
		pos = lipgloss.Right
	case model.RoleAssistant:
		style = t.styles.assistant
	}

	bubble := style.Width(t.fitWidth(content)).Render(content)

	info := []string{fmt.Sprintf("#%d", msg.ID), msg.Role.DisplayName()}
	if msg.Role == model.RoleUser && msg.Author != "" {
		info = append(info, util.StripControl(msg.Author))
	}
	if t.opts.ShowTimestamps && msg.CreatedAt != "" {
		info = append(info, util.StripControl(msg.CreatedAt))
	}
	if msg.Reaction != model.ReactionNone {
		info = append(info, string(msg.Reaction))
	}
	if mark != "" {
		info = append(info, "("+mark+")")
	}
	line := t.styles.info.Render(util.TruncateWidth(strings.Join(info, " · "), t.opts.Width))

	block := lipgloss.JoinVertical(lipgloss.Left, bubble, line)
	if pos == lipgloss.Right {
		block = lipgloss.JoinVertical(lipgloss.Right, bubble, line)
	}
	return t.lg.PlaceHorizontal(t.opts.Width, pos, block)
}

// text returns the display text of msg with its control characters
// removed; only the Markdown renderer adds escape sequences.
func (t *Terminal) text(msg model.Message) string {
	text := util.StripControl(msg.Text)
	if text == "" {
		return ""
	}
	if msg.Role == model.RoleAssistant && t.md != nil {
		if out, err := t.md.Render(text); err == nil {
			return strings.Trim(out, "\n")
		}
	}
	return text
}

// fitWidth sizes a bubble to its longest line, capped at bubbleWidth.
func (t *Terminal) fitWidth(content string) int {
	longest := 0
	for _, line := range strings.Split(content, "\n") {
		if w := lipgloss.Width(line); w > longest {
			longest = w
		}
	}
	// padding on both sides
	w := longest + 2
	if w > t.bubbleWidth() {
		w = t.bubbleWidth()
	}
	return w
}

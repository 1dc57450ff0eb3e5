// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package surface

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/chatwidget/internal/model"
	"github.com/jeranaias/chatwidget/internal/render"
	"github.com/jeranaias/chatwidget/internal/render/texmath"
)

// manualScheduler queues callbacks until Run is called.
type manualScheduler struct {
	mu     sync.Mutex
	delays []time.Duration
	queue  []func()
}

func (s *manualScheduler) AfterFunc(d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	s.queue = append(s.queue, fn)
}

func (s *manualScheduler) Run() int {
	s.mu.Lock()
	queue := s.queue
	s.queue = nil
	s.mu.Unlock()
	for _, fn := range queue {
		fn()
	}
	return len(queue)
}

func lookupIn(msgs map[int64]model.Message) func(int64) (model.Message, bool) {
	return func(id int64) (model.Message, bool) {
		m, ok := msgs[id]
		return m, ok
	}
}

// =============================================================================
// PROJECTOR TESTS
// =============================================================================

func TestProjector_MountRendersThroughRenderer(t *testing.T) {
	rec := NewRecorder()
	p := NewProjector(rec, ProjectorOptions{})

	p.Mount(model.Message{ID: 1, Role: model.RoleUser, Text: "<b>x</b>"})
	p.Update(model.Message{ID: 1, Role: model.RoleUser, Text: "y"})
	p.Remove(1, 2)
	p.ClearAll()

	events := rec.Events()
	require.Len(t, events, 5)
	assert.Equal(t, Event{Op: OpMount, ID: 1, Markup: "&lt;b&gt;x&lt;/b&gt;"}, events[0])
	assert.Equal(t, Event{Op: OpUpdate, ID: 1, Markup: "y"}, events[1])
	assert.Equal(t, []string{OpMount, OpUpdate, OpRemove, OpRemove, OpClear}, rec.Ops())
}

func TestProjector_MathRetryOnce(t *testing.T) {
	rec := NewRecorder()
	sched := &manualScheduler{}
	math := texmath.NewDeferred()
	msg := model.Message{ID: 7, Role: model.RoleAssistant, Text: "$$2+2=4$$"}
	retries := 0

	p := NewProjector(rec, ProjectorOptions{
		Capabilities: func() render.Capabilities { return render.Capabilities{Math: math} },
		Scheduler:    sched,
		Lookup:       lookupIn(map[int64]model.Message{7: msg}),
		OnMathRetry:  func() { retries++ },
	})

	p.Mount(msg)
	require.Len(t, sched.queue, 1)
	assert.Equal(t, DefaultMathRetryDelay, sched.delays[0])
	assert.Equal(t, "$$2+2=4$$", rec.Events()[0].Markup)

	math.MarkReady()
	assert.Equal(t, 1, sched.Run())
	assert.Equal(t, 1, retries)

	events := rec.Events()
	require.Len(t, events, 2)
	assert.Equal(t, OpUpdate, events[1].Op)
	assert.Contains(t, events[1].Markup, "<math")

	// No further retries are queued.
	assert.Equal(t, 0, sched.Run())
}

func TestProjector_MathRetryStillPendingKeepsLiteral(t *testing.T) {
	rec := NewRecorder()
	sched := &manualScheduler{}
	msg := model.Message{ID: 1, Role: model.RoleAssistant, Text: "$x$"}

	p := NewProjector(rec, ProjectorOptions{
		Capabilities: func() render.Capabilities { return render.Capabilities{Math: texmath.NewDeferred()} },
		Scheduler:    sched,
		Lookup:       lookupIn(map[int64]model.Message{1: msg}),
	})

	p.Mount(msg)
	sched.Run()
	assert.Equal(t, []string{OpMount}, rec.Ops())
	assert.Equal(t, 0, sched.Run())
}

func TestProjector_MathRetrySkipsRemovedMessage(t *testing.T) {
	rec := NewRecorder()
	sched := &manualScheduler{}
	math := texmath.NewDeferred()

	p := NewProjector(rec, ProjectorOptions{
		Capabilities: func() render.Capabilities { return render.Capabilities{Math: math} },
		Scheduler:    sched,
		Lookup:       lookupIn(map[int64]model.Message{}),
	})

	p.Mount(model.Message{ID: 3, Role: model.RoleAssistant, Text: "$x$"})
	math.MarkReady()
	sched.Run()
	assert.Equal(t, []string{OpMount}, rec.Ops())
}

// interleave returns capabilities that run mutate once, from inside the
// first render after it is armed, as if another goroutine committed a
// change while a deferred pass was rendering.
type interleave struct {
	caps   render.Capabilities
	armed  bool
	mutate func()
}

func (i *interleave) capabilities() render.Capabilities {
	if i.armed {
		i.armed = false
		i.mutate()
	}
	return i.caps
}

func TestProjector_MathRetryDoesNotOverwriteNewerView(t *testing.T) {
	rec := NewRecorder()
	sched := &manualScheduler{}
	math := texmath.NewDeferred()
	msgs := map[int64]model.Message{1: {ID: 1, Role: model.RoleAssistant, Text: "old $x$"}}
	edited := model.Message{ID: 1, Role: model.RoleAssistant, Text: "new text"}

	var p *Projector
	il := &interleave{caps: render.Capabilities{Math: math}}
	il.mutate = func() {
		msgs[1] = edited
		p.Update(edited)
	}
	p = NewProjector(rec, ProjectorOptions{
		Capabilities: il.capabilities,
		Scheduler:    sched,
		Lookup:       lookupIn(msgs),
	})

	p.Mount(msgs[1])
	math.MarkReady()
	il.armed = true
	require.Equal(t, 1, sched.Run())

	events := rec.Events()
	require.Equal(t, []string{OpMount, OpUpdate}, rec.Ops())
	assert.Equal(t, "new text", events[len(events)-1].Markup)
}

func TestProjector_MathRetrySkipsMessageChangedMidRender(t *testing.T) {
	rec := NewRecorder()
	sched := &manualScheduler{}
	math := texmath.NewDeferred()
	msgs := map[int64]model.Message{1: {ID: 1, Role: model.RoleAssistant, Text: "$x$"}}

	il := &interleave{caps: render.Capabilities{Math: math}}
	il.mutate = func() {
		// Stored but not yet projected
		msgs[1] = model.Message{ID: 1, Role: model.RoleAssistant, Text: "$y$", Reaction: model.ReactionLike}
	}
	p := NewProjector(rec, ProjectorOptions{
		Capabilities: il.capabilities,
		Scheduler:    sched,
		Lookup:       lookupIn(msgs),
	})

	p.Mount(msgs[1])
	math.MarkReady()
	il.armed = true
	sched.Run()

	assert.Equal(t, []string{OpMount}, rec.Ops())
}

func TestProjector_RerenderAllDoesNotOverwriteNewerView(t *testing.T) {
	rec := NewRecorder()
	msgs := map[int64]model.Message{
		1: {ID: 1, Role: model.RoleUser, Text: "a"},
		2: {ID: 2, Role: model.RoleAssistant, Text: "before"},
	}
	reacted := model.Message{ID: 2, Role: model.RoleAssistant, Text: "after", Reaction: model.ReactionLike}

	var p *Projector
	il := &interleave{}
	il.mutate = func() {
		msgs[2] = reacted
		p.Update(reacted)
	}
	p = NewProjector(rec, ProjectorOptions{Capabilities: il.capabilities, Lookup: lookupIn(msgs)})
	p.Mount(msgs[1])
	p.Mount(msgs[2])

	p.RerenderAll([]int64{1})

	// The pass reads message 2 before the reaction lands
	il.armed = true
	p.RerenderAll([]int64{2, 3})

	events := rec.Events()
	last := events[len(events)-1]
	assert.Equal(t, int64(2), last.ID)
	assert.Equal(t, "after", last.Markup)
	assert.Equal(t, []string{OpMount, OpMount, OpUpdate, OpUpdate}, rec.Ops())
}

func TestProjector_RerenderAllSkipsClearedViews(t *testing.T) {
	rec := NewRecorder()
	msgs := map[int64]model.Message{1: {ID: 1, Role: model.RoleUser, Text: "a"}}
	p := NewProjector(rec, ProjectorOptions{Lookup: lookupIn(msgs)})

	p.Mount(msgs[1])
	p.ClearAll()
	p.RerenderAll([]int64{1})
	assert.Equal(t, []string{OpMount, OpClear}, rec.Ops())
}

func TestProjector_SelectNeedsHighlighter(t *testing.T) {
	assert.False(t, NewProjector(NewRecorder(), ProjectorOptions{}).Select(1))

	html := NewHTMLSurface()
	p := NewProjector(html, ProjectorOptions{})
	p.Mount(model.Message{ID: 4, Role: model.RoleUser, Text: "a"})
	assert.True(t, p.Select(4))
	assert.Equal(t, int64(4), html.Selected())
}

// =============================================================================
// HTML SURFACE TESTS
// =============================================================================

func TestHTMLSurface_OrderAndUpdates(t *testing.T) {
	s := NewHTMLSurface()
	s.Mount(View{Message: model.Message{ID: 1}, Markup: "a"})
	s.Mount(View{Message: model.Message{ID: 2}, Markup: "b"})
	s.Mount(View{Message: model.Message{ID: 3}, Markup: "c"})

	s.Update(View{Message: model.Message{ID: 2}, Markup: "B"})
	s.Update(View{Message: model.Message{ID: 9}, Markup: "ignored"})
	s.Remove(3)

	views := s.Views()
	require.Len(t, views, 2)
	assert.Equal(t, "a", views[0].Markup)
	assert.Equal(t, "B", views[1].Markup)

	_, ok := s.Markup(9)
	assert.False(t, ok)

	s.ClearAll()
	assert.Empty(t, s.Views())
}

func TestHTMLSurface_Document(t *testing.T) {
	s := NewHTMLSurface()
	p := NewProjector(s, ProjectorOptions{
		Capabilities: func() render.Capabilities {
			return render.Capabilities{Formatter: render.NewMarkdownFormatter(render.MarkdownOptions{})}
		},
	})
	p.Mount(model.Message{ID: 1, Role: model.RoleUser, Text: "<script>"})
	p.Mount(model.Message{ID: 2, Role: model.RoleAssistant, Text: "**bold**"})

	page, err := s.Document("Doc <title>", nil)
	require.NoError(t, err)
	out := string(page)
	assert.Contains(t, out, "<strong>bold</strong>")
	assert.Contains(t, out, "&lt;script&gt;")
	assert.Contains(t, out, "Doc &lt;title&gt;")
	assert.NotContains(t, out, "<script>")

	_, err = NewHTMLSurface().Document("empty", nil)
	assert.Error(t, err)
}

// =============================================================================
// TERMINAL SURFACE TESTS
// =============================================================================

func TestTerminal_PrintsBubbles(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(&buf, TerminalOptions{Width: 60, Profile: termenv.Ascii, ShowTimestamps: true})

	term.Mount(View{Message: model.Message{ID: 1, Role: model.RoleUser, Text: "hello", Author: "ann", CreatedAt: "10:00"}})
	term.Update(View{Message: model.Message{ID: 1, Role: model.RoleUser, Text: "hello again", Reaction: model.ReactionLike}})
	term.Remove(1)
	term.Highlight(2)
	term.ClearAll()

	out := buf.String()
	for _, want := range []string{"hello", "#1 · You · ann · 10:00", "hello again", "(edited)", "👍", "message #1 removed", "selected message #2", "chat cleared"} {
		assert.Contains(t, out, want)
	}
}

func TestTerminal_MarkdownAssistant(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(&buf, TerminalOptions{Width: 80, Profile: termenv.Ascii, Markdown: true})

	term.Mount(View{Message: model.Message{ID: 2, Role: model.RoleAssistant, Text: "**bold** words"}})
	out := buf.String()
	assert.Contains(t, out, "bold")
	assert.Contains(t, out, "Assistant")
}

func TestTerminal_AttachmentSummary(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(&buf, TerminalOptions{Profile: termenv.Ascii})

	term.Mount(View{Message: model.Message{ID: 1, Role: model.RoleSystem, Attachment: "data:image/png;base64,AAAA"}})
	assert.Contains(t, buf.String(), "[image/png, 3 B]")
}

func TestTerminal_StripsControlSequences(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(&buf, TerminalOptions{Width: 80, Profile: termenv.Ascii, ShowTimestamps: true})

	term.Mount(View{Message: model.Message{
		ID:        1,
		Role:      model.RoleUser,
		Text:      "hi \x1b[2J\x1b]0;pwned\x07there",
		Author:    "eve\x1b[31m",
		CreatedAt: "10:00\r",
	}})
	term.Mount(View{Message: model.Message{ID: 2, Role: model.RoleSystem, Text: "note\x1b[5m"}})

	out := buf.String()
	assert.NotContains(t, out, "\x1b")
	assert.NotContains(t, out, "\x07")
	assert.NotContains(t, out, "\r")
	assert.Contains(t, out, "hi there")
	assert.Contains(t, out, "eve")
	assert.Contains(t, out, "note")
}

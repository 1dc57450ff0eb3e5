// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package surface

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jeranaias/chatwidget/internal/model"
	"github.com/jeranaias/chatwidget/internal/render"
)

// DefaultMathRetryDelay is how long a pending math pass waits before its
// single retry.
const DefaultMathRetryDelay = 500 * time.Millisecond

// =============================================================================
// PROJECTOR
// =============================================================================

// ProjectorOptions configures a Projector.
type ProjectorOptions struct {
	// Renderer renders message text. Default: a renderer without logging.
	Renderer *render.Renderer

	// Capabilities returns the collaborators to render with. It is called
	// on every render so that capabilities can appear late.
	Capabilities func() render.Capabilities

	// Scheduler runs the deferred math retry. Default: TimerScheduler.
	Scheduler Scheduler

	// RetryDelay is the math retry delay. Default: DefaultMathRetryDelay.
	RetryDelay time.Duration

	// Lookup resolves a message id when a deferred pass fires. Messages it
	// cannot find are skipped.
	Lookup func(id int64) (model.Message, bool)

	// OnMathRetry is called each time a deferred math retry runs.
	OnMathRetry func()

	Logger *slog.Logger
}

// Projector keeps a surface in sync with the message log. It holds no
// message state of its own; deferred passes re-read messages through
// Lookup.
//
// Every write to a view stamps it with a sequence number. A deferred pass
// only writes if the stamp it started from is still current and Lookup
// still returns the message it rendered, so a pass that fires after an
// edit or reaction never puts the older view back.
type Projector struct {
	mu      sync.Mutex
	surface Surface
	opts    ProjectorOptions
	seq     uint64
	stamps  map[int64]uint64
}

// NewProjector creates a projector for s.
func NewProjector(s Surface, opts ProjectorOptions) *Projector {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Renderer == nil {
		opts.Renderer = render.NewRenderer(opts.Logger)
	}
	if opts.Capabilities == nil {
		opts.Capabilities = func() render.Capabilities { return render.Capabilities{} }
	}
	if opts.Scheduler == nil {
		opts.Scheduler = TimerScheduler{}
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultMathRetryDelay
	}
	if opts.Lookup == nil {
		opts.Lookup = func(int64) (model.Message, bool) { return model.Message{}, false }
	}
	return &Projector{surface: s, opts: opts, stamps: make(map[int64]uint64)}
}

// Surface returns the current surface.
func (p *Projector) Surface() Surface {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.surface
}

// Mount renders msg and appends it to the surface.
func (p *Projector) Mount(msg model.Message) {
	res := p.render(msg)

	p.mu.Lock()
	p.surface.Mount(View{Message: msg, Markup: res.Markup})
	stamp := p.stampLocked(msg.ID)
	p.mu.Unlock()

	if res.MathPending {
		p.scheduleRetry(msg.ID, stamp)
	}
}

// Update re-renders msg and replaces its view.
func (p *Projector) Update(msg model.Message) {
	res := p.render(msg)

	p.mu.Lock()
	p.surface.Update(View{Message: msg, Markup: res.Markup})
	stamp := p.stampLocked(msg.ID)
	p.mu.Unlock()

	if res.MathPending {
		p.scheduleRetry(msg.ID, stamp)
	}
}

// Remove drops the views of ids.
func (p *Projector) Remove(ids ...int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, id := range ids {
		p.surface.Remove(id)
		delete(p.stamps, id)
	}
}

// ClearAll drops every view.
func (p *Projector) ClearAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.surface.ClearAll()
	clear(p.stamps)
}

// RerenderAll re-renders the views of ids from their current messages.
// It is meant to run deferred: views written since the pass started, and
// messages Lookup no longer returns, are left alone.
func (p *Projector) RerenderAll(ids []int64) {
	for _, id := range ids {
		p.mu.Lock()
		stamp, ok := p.stamps[id]
		p.mu.Unlock()
		if !ok {
			continue
		}
		msg, ok := p.opts.Lookup(id)
		if !ok {
			continue
		}
		res := p.render(msg)
		if stamp, ok := p.refresh(msg, stamp, res.Markup); ok && res.MathPending {
			p.scheduleRetry(id, stamp)
		}
	}
}

// Select forwards a selection to the surface if it can highlight. It
// reports whether the surface supports highlighting.
func (p *Projector) Select(id int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	h, ok := p.surface.(Highlighter)
	if ok {
		h.Highlight(id)
	}
	return ok
}

func (p *Projector) render(msg model.Message) render.Result {
	return p.opts.Renderer.Render(msg.Text, msg.Role, p.opts.Capabilities())
}

// scheduleRetry schedules the single deferred math pass for the view of id
// written with stamp. A result that is still pending when it fires keeps
// its literal math.
func (p *Projector) scheduleRetry(id int64, stamp uint64) {
	p.opts.Scheduler.AfterFunc(p.opts.RetryDelay, func() {
		if p.opts.OnMathRetry != nil {
			p.opts.OnMathRetry()
		}

		msg, ok := p.opts.Lookup(id)
		if !ok {
			return
		}
		res := p.render(msg)
		if res.MathPending {
			p.opts.Logger.Debug("MATH_RETRY_PENDING", "id", id)
			return
		}
		p.refresh(msg, stamp, res.Markup)
	})
}

// refresh writes a deferred view of msg unless the view was rewritten
// after stamp or the message changed while it was rendering.
func (p *Projector) refresh(msg model.Message, stamp uint64, markup string) (uint64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stamps[msg.ID] != stamp {
		p.opts.Logger.Debug("DEFERRED_VIEW_STALE", "id", msg.ID)
		return 0, false
	}
	if current, ok := p.opts.Lookup(msg.ID); !ok || current != msg {
		p.opts.Logger.Debug("DEFERRED_VIEW_STALE", "id", msg.ID)
		return 0, false
	}
	p.surface.Update(View{Message: msg, Markup: markup})
	return p.stampLocked(msg.ID), true
}

func (p *Projector) stampLocked(id int64) uint64 {
	p.seq++
	p.stamps[id] = p.seq
	return p.seq
}

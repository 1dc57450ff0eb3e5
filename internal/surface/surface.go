// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package surface

import (
	"time"

	"github.com/jeranaias/chatwidget/internal/model"
)

// =============================================================================
// SURFACE CONTRACT
// =============================================================================

// View is what a surface displays for one message: the message itself and
// its rendered markup.
type View struct {
	Message model.Message
	Markup  string
}

// ID returns the id of the viewed message.
func (v View) ID() int64 {
	return v.Message.ID
}

// Surface is a display of the message log. Mount appends a new view,
// Update replaces the view with the same id (ignored when absent), Remove
// drops one view and ClearAll drops every view.
type Surface interface {
	Mount(v View)
	Update(v View)
	Remove(id int64)
	ClearAll()
}

// Highlighter is implemented by surfaces that can mark a selected message.
type Highlighter interface {
	Highlight(id int64)
}

// =============================================================================
// SCHEDULING
// =============================================================================

// Scheduler runs deferred passes. Callbacks run on another goroutine and are
// never cancelled.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func())
}

// TimerScheduler schedules with time.AfterFunc.
type TimerScheduler struct{}

// AfterFunc implements Scheduler.
func (TimerScheduler) AfterFunc(d time.Duration, fn func()) {
	time.AfterFunc(d, fn)
}

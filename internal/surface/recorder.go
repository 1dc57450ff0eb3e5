// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package surface

import "sync"

// Surface operations as recorded by Recorder.
const (
	OpMount  = "mount"
	OpUpdate = "update"
	OpRemove = "remove"
	OpClear  = "clear"
)

// Event is one recorded surface call.
type Event struct {
	Op     string
	ID     int64
	Markup string
}

// Recorder is a headless surface that records every call. Commands that
// only need the message log use it in place of a display.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) record(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Mount implements Surface.
func (r *Recorder) Mount(v View) { r.record(Event{Op: OpMount, ID: v.ID(), Markup: v.Markup}) }

// Update implements Surface.
func (r *Recorder) Update(v View) { r.record(Event{Op: OpUpdate, ID: v.ID(), Markup: v.Markup}) }

// Remove implements Surface.
func (r *Recorder) Remove(id int64) { r.record(Event{Op: OpRemove, ID: id}) }

// ClearAll implements Surface.
func (r *Recorder) ClearAll() { r.record(Event{Op: OpClear}) }

// Events returns a copy of the recorded calls.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Ops returns the recorded operation names in order.
func (r *Recorder) Ops() []string {
	events := r.Events()
	ops := make([]string, len(events))
	for i, e := range events {
		ops[i] = e.Op
	}
	return ops
}

// Reset forgets every recorded call.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session implements the edit session of the chat widget.
package session

import (
	"fmt"
	"strings"
	"sync"

	"github.com/jeranaias/chatwidget/internal/model"
	"github.com/jeranaias/chatwidget/internal/storage"
)

// =============================================================================
// STATE
// =============================================================================

// State is the edit session state.
type State int

const (
	StateIdle State = iota
	StateEditing
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateEditing:
		return "editing"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Target describes the message under edit.
type Target struct {
	ID    int64
	Index int

	OriginalText       string
	OriginalAttachment string

	PendingText       string
	PendingAttachment string
}

// CommitResult is what a successful commit produced.
type CommitResult struct {
	// Message is the rewritten message as stored.
	Message model.Message

	// Removed holds the messages truncation discarded, in order.
	Removed []model.Message
}

// =============================================================================
// EDITOR
// =============================================================================

// Editor is the single edit slot for one conversation.
type Editor struct {
	mu sync.Mutex

	store  *storage.MessageStore
	state  State
	target Target

	// Callbacks
	onChange func(State, Target)
}

// NewEditor creates an idle editor over store.
func NewEditor(store *storage.MessageStore) *Editor {
	return &Editor{
		store: store,
		state: StateIdle,
	}
}

// SetOnChange registers a callback fired after every state transition.
// The callback runs without the editor lock held.
func (e *Editor) SetOnChange(fn func(State, Target)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onChange = fn
}

// State returns the current state.
func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Active reports whether an edit is in progress.
func (e *Editor) Active() bool {
	return e.State() == StateEditing
}

// Target returns the current edit target. ok is false when idle.
func (e *Editor) Target() (Target, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateEditing {
		return Target{}, false
	}
	return e.target, true
}

// =============================================================================
// TRANSITIONS
// =============================================================================

// BeginEdit starts editing the message with the given id and seeds the
// pending content from it. An edit already in progress on another message is
// abandoned without restoring its pending content; abandoned reports that.
func (e *Editor) BeginEdit(id int64) (abandoned bool, err error) {
	idx, ok := e.store.FindIndexByID(id)
	if !ok {
		return false, fmt.Errorf("edit %d: %w", id, model.ErrNotFound)
	}
	msg, ok := e.store.At(idx)
	if !ok {
		return false, fmt.Errorf("edit %d: %w", id, model.ErrNotFound)
	}

	e.mu.Lock()
	abandoned = e.state == StateEditing && e.target.ID != id
	e.state = StateEditing
	e.target = Target{
		ID:                 id,
		Index:              idx,
		OriginalText:       msg.Text,
		OriginalAttachment: msg.Attachment,
		PendingText:        msg.Text,
		PendingAttachment:  msg.Attachment,
	}
	fn, state, target := e.onChange, e.state, e.target
	e.mu.Unlock()

	if fn != nil {
		fn(state, target)
	}
	return abandoned, nil
}

// SetPendingText replaces the pending composer text.
func (e *Editor) SetPendingText(text string) error {
	return e.updatePending(func(t *Target) { t.PendingText = text })
}

// SetPendingAttachment replaces the pending attachment.
func (e *Editor) SetPendingAttachment(ref string) error {
	return e.updatePending(func(t *Target) { t.PendingAttachment = ref })
}

// ClearPendingAttachment drops the pending attachment. Committing afterwards
// removes the attachment from the message.
func (e *Editor) ClearPendingAttachment() error {
	return e.updatePending(func(t *Target) { t.PendingAttachment = "" })
}

func (e *Editor) updatePending(apply func(*Target)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateEditing {
		return model.ErrNotEditing
	}
	apply(&e.target)
	return nil
}

// CommitPending commits the pending text and attachment.
func (e *Editor) CommitPending() (CommitResult, error) {
	e.mu.Lock()
	text, ref := e.target.PendingText, e.target.PendingAttachment
	e.mu.Unlock()
	return e.Commit(text, ref)
}

// Commit overwrites the target message with text and attachment and
// discards every message after it. An empty attachment removes any
// attachment the message had.
//
// Committing nothing is rejected with ErrNothingToSend and the session
// stays open. A target that vanished from the store (clear or import while
// editing) ends the session with ErrNotFound.
func (e *Editor) Commit(text, attachment string) (CommitResult, error) {
	e.mu.Lock()
	if e.state != StateEditing {
		e.mu.Unlock()
		return CommitResult{}, model.ErrNotEditing
	}
	if strings.TrimSpace(text) == "" && attachment == "" {
		e.mu.Unlock()
		return CommitResult{}, model.ErrNothingToSend
	}
	id := e.target.ID
	e.mu.Unlock()

	// Re-resolve the index: appends may have happened since BeginEdit
	idx, ok := e.store.FindIndexByID(id)
	if !ok {
		e.finish()
		return CommitResult{}, fmt.Errorf("commit %d: %w", id, model.ErrNotFound)
	}
	current, _ := e.store.At(idx)

	updated := current
	updated.Text = text
	updated.Attachment = attachment

	removed, err := e.store.ReplaceFrom(idx, updated)
	if err != nil {
		e.finish()
		return CommitResult{}, fmt.Errorf("commit %d: %w", id, err)
	}

	e.finish()
	return CommitResult{Message: updated, Removed: removed}, nil
}

// Cancel ends the session without touching the store. It reports whether an
// edit was in progress.
func (e *Editor) Cancel() bool {
	e.mu.Lock()
	wasEditing := e.state == StateEditing
	e.mu.Unlock()

	if wasEditing {
		e.finish()
	}
	return wasEditing
}

func (e *Editor) finish() {
	e.mu.Lock()
	e.state = StateIdle
	e.target = Target{}
	fn := e.onChange
	e.mu.Unlock()

	if fn != nil {
		fn(StateIdle, Target{})
	}
}

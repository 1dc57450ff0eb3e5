// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage owns the in-memory message log of the chat widget.
package storage

import (
	"fmt"
	"sync"

	"github.com/jeranaias/chatwidget/internal/model"
)

// =============================================================================
// MESSAGE STORE
// =============================================================================

// MessageStore is the ordered message log.
//
// Ids come from a strictly monotonic counter rather than the clock, so rapid
// appends can never collide. The counter survives Clear and is advanced past
// the last id of anything loaded with LoadFrom.
type MessageStore struct {
	mu       sync.RWMutex
	messages []model.Message
	lastID   int64
}

// NewMessageStore creates an empty store.
func NewMessageStore() *MessageStore {
	return &MessageStore{
		messages: make([]model.Message, 0),
	}
}

// =============================================================================
// WRITE OPERATIONS
// =============================================================================

// Append assigns the next id to msg, appends it and returns the id.
func (s *MessageStore) Append(msg model.Message) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastID++
	msg.ID = s.lastID
	s.messages = append(s.messages, msg)
	return msg.ID
}

// ReplaceFrom overwrites the message at index and discards every message
// after it. The stored id at index is kept. It returns the discarded
// messages in order.
func (s *MessageStore) ReplaceFrom(index int, msg model.Message) ([]model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.messages) {
		return nil, fmt.Errorf("replace at %d of %d: %w", index, len(s.messages), model.ErrIndex)
	}

	msg.ID = s.messages[index].ID

	removed := make([]model.Message, len(s.messages)-index-1)
	copy(removed, s.messages[index+1:])

	s.messages[index] = msg
	// Zero the tail so truncated attachments can be collected
	for i := index + 1; i < len(s.messages); i++ {
		s.messages[i] = model.Message{}
	}
	s.messages = s.messages[:index+1]

	return removed, nil
}

// ToggleReaction toggles glyph on the message with the given id and returns
// the updated message.
func (s *MessageStore) ToggleReaction(id int64, glyph model.Reaction) (model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return model.Message{}, fmt.Errorf("react to %d: %w", id, model.ErrNotFound)
	}

	updated, err := model.ToggleReaction(s.messages[idx], glyph)
	if err != nil {
		return model.Message{}, err
	}
	s.messages[idx] = updated
	return updated, nil
}

// Clear removes all messages. Ids are not reused afterwards.
func (s *MessageStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = make([]model.Message, 0)
}

// LoadFrom replaces the whole log with msgs. The input must satisfy the log
// invariants; on error the store is left untouched.
func (s *MessageStore) LoadFrom(msgs []model.Message) error {
	if err := model.ValidateLog(msgs); err != nil {
		return fmt.Errorf("load: %w", err)
	}

	loaded := make([]model.Message, len(msgs))
	copy(loaded, msgs)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = loaded
	if n := len(loaded); n > 0 && loaded[n-1].ID > s.lastID {
		s.lastID = loaded[n-1].ID
	}
	return nil
}

// =============================================================================
// READ OPERATIONS
// =============================================================================

// FindByID returns a copy of the message with the given id.
func (s *MessageStore) FindByID(id int64) (model.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return model.Message{}, false
	}
	return s.messages[idx], true
}

// FindIndexByID returns the current index of the message with the given id.
func (s *MessageStore) FindIndexByID(id int64) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexOf(id)
	return idx, idx >= 0
}

// At returns a copy of the message at index.
func (s *MessageStore) At(index int) (model.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if index < 0 || index >= len(s.messages) {
		return model.Message{}, false
	}
	return s.messages[index], true
}

// Last returns the most recent message.
func (s *MessageStore) Last() (model.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.messages) == 0 {
		return model.Message{}, false
	}
	return s.messages[len(s.messages)-1], true
}

// Len returns the number of messages.
func (s *MessageStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Snapshot returns a copy of the log in insertion order.
func (s *MessageStore) Snapshot() []model.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// indexOf does a reverse scan since edits and reactions usually target
// recent messages. Caller holds the lock.
func (s *MessageStore) indexOf(id int64) int {
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].ID == id {
			return i
		}
	}
	return -1
}

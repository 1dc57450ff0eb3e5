// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import "fmt"

// DefaultTitle is the title of a conversation nobody has named yet.
const DefaultTitle = "Chat"

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is a titled, ordered log of messages.
// Insertion order is display order; there is no reordering operation.
type Conversation struct {
	Title    string    `json:"title"`
	Messages []Message `json:"messages"`
}

// GetTitle returns the conversation title or a default.
func (c *Conversation) GetTitle() string {
	if c.Title != "" {
		return c.Title
	}
	return DefaultTitle
}

// MessageCount returns the number of messages.
func (c *Conversation) MessageCount() int {
	return len(c.Messages)
}

// IsEmpty returns true if there are no messages.
func (c *Conversation) IsEmpty() bool {
	return len(c.Messages) == 0
}

// Clone creates a deep copy of the conversation.
func (c *Conversation) Clone() *Conversation {
	clone := &Conversation{
		Title:    c.Title,
		Messages: make([]Message, len(c.Messages)),
	}
	// Messages are value types so copy() duplicates them
	copy(clone.Messages, c.Messages)
	return clone
}

// Validate checks every message and the id ordering of the log.
func (c *Conversation) Validate() error {
	return ValidateLog(c.Messages)
}

// ValidateLog checks that every message is valid and that ids strictly
// increase in slice order (which also makes them unique).
func ValidateLog(msgs []Message) error {
	var prev int64
	for i, msg := range msgs {
		if err := msg.Validate(); err != nil {
			return fmt.Errorf("message at index %d: %w", i, err)
		}
		if i > 0 && msg.ID <= prev {
			return fmt.Errorf("message at index %d: id %d does not follow id %d", i, msg.ID, prev)
		}
		prev = msg.ID
	}
	return nil
}

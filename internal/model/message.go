// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jeranaias/chatwidget/internal/util"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// wireAssistant is the assistant role as written by earlier widget versions.
// Exports keep writing it so older readers can still import them.
const wireAssistant = "ai"

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// ParseRole converts a wire value into a Role.
// Both "ai" and "assistant" map to RoleAssistant.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user":
		return RoleUser, nil
	case wireAssistant, "assistant":
		return RoleAssistant, nil
	case "system":
		return RoleSystem, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) {
	if r == RoleAssistant {
		return []byte(wireAssistant), nil
	}
	if !r.Valid() {
		return nil, fmt.Errorf("unknown role %q", string(r))
	}
	return []byte(r), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Role) UnmarshalText(b []byte) error {
	parsed, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a conversation.
//
// JSON keys follow the widget's interchange format, which predates this
// package: the role travels as "type" and the attachment as "image".
type Message struct {
	// Identity
	ID   int64 `json:"id"`
	Role Role  `json:"type"`

	// Content
	Text       string `json:"text"`
	Attachment string `json:"image,omitempty"` // data URI, opaque to the core

	// Display metadata
	Author    string   `json:"username,omitempty"`
	CreatedAt string   `json:"timestamp"`
	Reaction  Reaction `json:"reaction"`
}

// HasContent reports whether the message carries text or an attachment.
func (m Message) HasContent() bool {
	return m.Text != "" || m.Attachment != ""
}

// Validate checks the per-message invariants.
func (m Message) Validate() error {
	if m.ID <= 0 {
		return fmt.Errorf("message id %d must be positive", m.ID)
	}
	if !m.Role.Valid() {
		return fmt.Errorf("message %d: unknown role %q", m.ID, string(m.Role))
	}
	if !m.HasContent() {
		return fmt.Errorf("message %d: has neither text nor attachment", m.ID)
	}
	if !m.Reaction.Valid() {
		return fmt.Errorf("message %d: %w: %q", m.ID, ErrUnknownReaction, string(m.Reaction))
	}
	return nil
}

// Preview returns the message text on one line, cut to maxLen runes.
func (m Message) Preview(maxLen int) string {
	content := m.Text
	if content == "" && m.Attachment != "" {
		content = "[image]"
	}
	return util.TruncateRunes(strings.ReplaceAll(content, "\n", " "), maxLen)
}

// messageJSON mirrors Message for decoding so that a missing "type" can be
// reported instead of silently producing an empty role.
type messageJSON struct {
	ID         *int64   `json:"id"`
	Role       *Role    `json:"type"`
	Text       string   `json:"text"`
	Attachment string   `json:"image"`
	Author     string   `json:"username"`
	CreatedAt  string   `json:"timestamp"`
	Reaction   Reaction `json:"reaction"`
}

// UnmarshalJSON decodes a message and requires the id and type keys.
func (m *Message) UnmarshalJSON(b []byte) error {
	var raw messageJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw.ID == nil {
		return fmt.Errorf("message without id")
	}
	if raw.Role == nil {
		return fmt.Errorf("message %d without type", *raw.ID)
	}
	*m = Message{
		ID:         *raw.ID,
		Role:       *raw.Role,
		Text:       raw.Text,
		Attachment: raw.Attachment,
		Author:     raw.Author,
		CreatedAt:  raw.CreatedAt,
		Reaction:   raw.Reaction,
	}
	return nil
}

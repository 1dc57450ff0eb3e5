// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// This package defines the core domain types shared by the store, the edit
// session, the renderer and the serializer.
//
// # Key Types
//
//   - Conversation: A title plus the ordered message log
//   - Message: Single message with id, role, text and/or attachment, author,
//     display timestamp and an optional reaction
//   - Role: Message role enumeration (user, assistant, system)
//   - Reaction: One glyph from a fixed set, or none
//
// # Errors
//
// The sentinel errors (ErrNotFound, ErrIndex, ErrFormat, ...) live here so
// that every layer reports the same taxonomy:
//
//	if errors.Is(err, model.ErrNotFound) {
//	    // target message is gone, nothing to do
//	}
//
// # Reactions
//
// Toggling the same glyph twice returns a message to its prior state:
//
//	msg, _ = model.ToggleReaction(msg, model.ReactionLike) // 👍
//	msg, _ = model.ToggleReaction(msg, model.ReactionLike) // none
package model

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage owns the in-memory message log of the chat widget.
//
// # Key Types
//
//   - MessageStore: Ordered, append-mostly message log with id assignment,
//     edit truncation and bulk replace
//
// # Usage
//
// Append messages and look them up:
//
//	store := storage.NewMessageStore()
//	id := store.Append(model.Message{Role: model.RoleUser, Text: "hi"})
//	msg, ok := store.FindByID(id)
//
// Overwrite a message and drop everything after it:
//
//	removed, err := store.ReplaceFrom(idx, updated)
//
// # Ownership
//
// The store keeps messages by value. Every accessor returns copies, so the
// only way to change a stored message is through the store's methods.
package storage

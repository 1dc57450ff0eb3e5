// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session implements the edit session of the chat widget.
//
// An edit session targets one message. Beginning an edit seeds a pending
// composer from the message; committing writes the pending content back and
// discards every later message; cancelling leaves the log untouched.
//
// # Key Types
//
//   - Editor: Idle/Editing state machine bound to a MessageStore
//   - Target: Snapshot of the message being edited and its pending content
//   - CommitResult: The rewritten message and the messages truncation removed
//
// # Usage
//
//	ed := session.NewEditor(store)
//	if _, err := ed.BeginEdit(id); err != nil {
//	    return err
//	}
//	ed.SetPendingText("fixed typo")
//	res, err := ed.CommitPending()
//
// # Truncation
//
// Truncation happens only in commit, and only once. A partially typed edit
// never changes the log.
package session

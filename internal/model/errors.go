// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// =============================================================================
// ERRORS
// =============================================================================

// Sentinel errors shared by the store, the edit session and the serializer.
// Use errors.Is(err, ErrNotFound) and friends to check for them; callers
// wrap them with context using fmt.Errorf and %w.
var (
	// ErrNotFound is returned when an edit, react or copy target id is absent.
	ErrNotFound = &ChatError{Code: "not_found", Message: "message not found"}

	// ErrIndex signals a truncation index outside the log. It should never
	// surface while the store invariants hold.
	ErrIndex = &ChatError{Code: "index", Message: "message index out of range"}

	// ErrFormat is returned by import when the payload cannot be parsed or
	// violates the message invariants.
	ErrFormat = &ChatError{Code: "format", Message: "invalid conversation data"}

	// ErrNothingToSend is returned when a send or edit commit has neither
	// text nor attachment.
	ErrNothingToSend = &ChatError{Code: "empty", Message: "nothing to send"}

	// ErrUnknownReaction is returned for glyphs outside the reaction set.
	ErrUnknownReaction = &ChatError{Code: "reaction", Message: "unknown reaction"}

	// ErrNotEditing is returned when commit is called without an active edit.
	ErrNotEditing = &ChatError{Code: "not_editing", Message: "no edit in progress"}
)

// ChatError represents a widget model error.
// It implements the error interface and can be compared using errors.Is.
type ChatError struct {
	Code    string
	Message string
}

// Error implements the error interface.
func (e *ChatError) Error() string {
	return e.Message
}

// Is implements errors.Is support by comparing codes.
func (e *ChatError) Is(target error) bool {
	t, ok := target.(*ChatError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

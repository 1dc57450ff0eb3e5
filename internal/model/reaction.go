// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Reaction is a single glyph attached to a message. The zero value means
// no reaction and is encoded as JSON null.
type Reaction string

const (
	ReactionNone    Reaction = ""
	ReactionLike    Reaction = "👍"
	ReactionDislike Reaction = "👎"
)

// Reactions lists the glyphs a message can carry.
var Reactions = []Reaction{ReactionLike, ReactionDislike}

// Valid reports whether r is empty or one of the known glyphs.
func (r Reaction) Valid() bool {
	if r == ReactionNone {
		return true
	}
	for _, known := range Reactions {
		if r == known {
			return true
		}
	}
	return false
}

// ParseReaction accepts a glyph or one of its names ("like", "dislike").
func ParseReaction(s string) (Reaction, error) {
	switch s {
	case "like", "+1", "up":
		return ReactionLike, nil
	case "dislike", "-1", "down":
		return ReactionDislike, nil
	}
	r := Reaction(s)
	if r == ReactionNone || !r.Valid() {
		return ReactionNone, fmt.Errorf("%w: %q", ErrUnknownReaction, s)
	}
	return r, nil
}

// MarshalJSON encodes an empty reaction as null.
func (r Reaction) MarshalJSON() ([]byte, error) {
	if r == ReactionNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(r))
}

// UnmarshalJSON accepts null or a string.
func (r *Reaction) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*r = ReactionNone
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("reaction: %w", err)
	}
	*r = Reaction(s)
	return nil
}

// ToggleReaction applies glyph to msg: the same glyph clears the slot, any
// other glyph replaces it. A message holds at most one reaction.
func ToggleReaction(msg Message, glyph Reaction) (Message, error) {
	if glyph == ReactionNone || !glyph.Valid() {
		return msg, fmt.Errorf("%w: %q", ErrUnknownReaction, string(glyph))
	}
	if msg.Reaction == glyph {
		msg.Reaction = ReactionNone
	} else {
		msg.Reaction = glyph
	}
	return msg, nil
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

// =============================================================================
// ROLE TESTS
// =============================================================================

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{"user", RoleUser, false},
		{"ai", RoleAssistant, false},
		{"assistant", RoleAssistant, false},
		{"System", RoleSystem, false},
		{"tool", "", true},
		{"", "", true},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseRole(tc.in)
			if (err != nil) != tc.wantErr {
				t.Fatalf("ParseRole(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			}
			if got != tc.want {
				t.Errorf("ParseRole(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestRole_MarshalWritesLegacyAssistant(t *testing.T) {
	data, err := json.Marshal(RoleAssistant)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `"ai"` {
		t.Errorf("Marshal(RoleAssistant) = %s, want \"ai\"", data)
	}
}

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestMessage_JSONShape(t *testing.T) {
	msg := Message{
		ID:        7,
		Role:      RoleUser,
		Text:      "hi",
		Author:    "Ann",
		CreatedAt: "10:00:00",
	}
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	got := string(data)
	for _, want := range []string{`"id":7`, `"type":"user"`, `"text":"hi"`, `"username":"Ann"`, `"timestamp":"10:00:00"`, `"reaction":null`} {
		if !strings.Contains(got, want) {
			t.Errorf("JSON %s missing %s", got, want)
		}
	}
	if strings.Contains(got, `"image"`) {
		t.Errorf("JSON %s should omit empty image", got)
	}
}

func TestMessage_UnmarshalRequiresIDAndType(t *testing.T) {
	var msg Message
	if err := json.Unmarshal([]byte(`{"type":"user","text":"x"}`), &msg); err == nil {
		t.Error("expected error for missing id")
	}
	if err := json.Unmarshal([]byte(`{"id":1,"text":"x"}`), &msg); err == nil {
		t.Error("expected error for missing type")
	}
	if err := json.Unmarshal([]byte(`{"id":1,"type":"robot","text":"x"}`), &msg); err == nil {
		t.Error("expected error for unknown type")
	}
	if err := json.Unmarshal([]byte(`{"id":3,"type":"ai","text":"x","reaction":"👍"}`), &msg); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if msg.Role != RoleAssistant || msg.Reaction != ReactionLike {
		t.Errorf("decoded %+v", msg)
	}
}

func TestMessage_Validate(t *testing.T) {
	tests := []struct {
		name    string
		msg     Message
		wantErr bool
	}{
		{"text only", Message{ID: 1, Role: RoleUser, Text: "a"}, false},
		{"attachment only", Message{ID: 1, Role: RoleUser, Attachment: "data:image/png;base64,AA=="}, false},
		{"neither", Message{ID: 1, Role: RoleUser}, true},
		{"zero id", Message{ID: 0, Role: RoleUser, Text: "a"}, true},
		{"bad role", Message{ID: 1, Role: "tool", Text: "a"}, true},
		{"bad reaction", Message{ID: 1, Role: RoleUser, Text: "a", Reaction: "🔥"}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.msg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestMessage_Preview(t *testing.T) {
	msg := Message{Text: "Привет, как дела сегодня?"}
	if got := msg.Preview(10); got != "Привет,..." {
		t.Errorf("Preview(10) = %q", got)
	}
	img := Message{Attachment: "data:image/png;base64,AA=="}
	if got := img.Preview(20); got != "[image]" {
		t.Errorf("Preview of attachment = %q", got)
	}
}

// =============================================================================
// REACTION TESTS
// =============================================================================

func TestToggleReaction(t *testing.T) {
	msg := Message{ID: 1, Role: RoleAssistant, Text: "a"}

	once, err := ToggleReaction(msg, ReactionLike)
	if err != nil {
		t.Fatalf("ToggleReaction failed: %v", err)
	}
	if once.Reaction != ReactionLike {
		t.Errorf("after one toggle reaction = %q, want 👍", once.Reaction)
	}

	twice, _ := ToggleReaction(once, ReactionLike)
	if twice.Reaction != ReactionNone {
		t.Errorf("after two toggles reaction = %q, want none", twice.Reaction)
	}

	swapped, _ := ToggleReaction(once, ReactionDislike)
	if swapped.Reaction != ReactionDislike {
		t.Errorf("switching glyph gave %q, want 👎", swapped.Reaction)
	}

	if _, err := ToggleReaction(msg, "🔥"); !errors.Is(err, ErrUnknownReaction) {
		t.Errorf("unknown glyph error = %v, want ErrUnknownReaction", err)
	}
}

func TestParseReaction(t *testing.T) {
	if r, err := ParseReaction("like"); err != nil || r != ReactionLike {
		t.Errorf("ParseReaction(like) = %q, %v", r, err)
	}
	if r, err := ParseReaction("👎"); err != nil || r != ReactionDislike {
		t.Errorf("ParseReaction(👎) = %q, %v", r, err)
	}
	if _, err := ParseReaction(""); err == nil {
		t.Error("ParseReaction(\"\") should fail")
	}
}

// =============================================================================
// CONVERSATION TESTS
// =============================================================================

func TestValidateLog_Ordering(t *testing.T) {
	ok := []Message{
		{ID: 1, Role: RoleUser, Text: "a"},
		{ID: 5, Role: RoleAssistant, Text: "b"},
	}
	if err := ValidateLog(ok); err != nil {
		t.Errorf("ValidateLog(ok) = %v", err)
	}

	dup := []Message{
		{ID: 5, Role: RoleUser, Text: "a"},
		{ID: 5, Role: RoleAssistant, Text: "b"},
	}
	if err := ValidateLog(dup); err == nil {
		t.Error("duplicate ids should fail validation")
	}
}

func TestConversation_CloneIsDeep(t *testing.T) {
	conv := &Conversation{Title: "t", Messages: []Message{{ID: 1, Role: RoleUser, Text: "a"}}}
	clone := conv.Clone()
	clone.Messages[0].Text = "changed"
	if conv.Messages[0].Text != "a" {
		t.Error("Clone shares message storage with the original")
	}
	if (&Conversation{}).GetTitle() != DefaultTitle {
		t.Error("GetTitle should fall back to DefaultTitle")
	}
}

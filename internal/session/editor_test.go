// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"errors"
	"reflect"
	"testing"

	"github.com/jeranaias/chatwidget/internal/model"
	"github.com/jeranaias/chatwidget/internal/storage"
)

func newSeeded(t *testing.T, texts ...string) (*Editor, *storage.MessageStore, []int64) {
	t.Helper()
	store := storage.NewMessageStore()
	ids := make([]int64, 0, len(texts))
	for _, text := range texts {
		ids = append(ids, store.Append(model.Message{Role: model.RoleUser, Text: text}))
	}
	return NewEditor(store), store, ids
}

// =============================================================================
// BEGIN / CANCEL TESTS
// =============================================================================

func TestBeginEdit_SeedsPending(t *testing.T) {
	ed, store, ids := newSeeded(t, "a")
	store.Append(model.Message{Role: model.RoleUser, Text: "pic", Attachment: "data:image/png;base64,AA=="})

	if _, err := ed.BeginEdit(ids[0] + 1); err != nil {
		t.Fatalf("BeginEdit failed: %v", err)
	}
	target, ok := ed.Target()
	if !ok {
		t.Fatal("Target() not ok while editing")
	}
	if target.Index != 1 || target.PendingText != "pic" || target.PendingAttachment == "" {
		t.Errorf("target = %+v", target)
	}
	if ed.State() != StateEditing {
		t.Errorf("State = %v, want editing", ed.State())
	}
}

func TestBeginEdit_NotFound(t *testing.T) {
	ed, _, _ := newSeeded(t, "a")

	_, err := ed.BeginEdit(999)
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("BeginEdit(999) error = %v, want ErrNotFound", err)
	}
	if ed.Active() {
		t.Error("failed BeginEdit should leave the editor idle")
	}
}

func TestBeginEdit_SwitchAbandonsPrevious(t *testing.T) {
	ed, _, ids := newSeeded(t, "a", "b")

	if _, err := ed.BeginEdit(ids[0]); err != nil {
		t.Fatal(err)
	}
	_ = ed.SetPendingText("half typed")

	abandoned, err := ed.BeginEdit(ids[1])
	if err != nil {
		t.Fatal(err)
	}
	if !abandoned {
		t.Error("switching targets should report abandonment")
	}
	target, _ := ed.Target()
	if target.ID != ids[1] || target.PendingText != "b" {
		t.Errorf("target after switch = %+v", target)
	}

	again, _ := ed.BeginEdit(ids[1])
	if again {
		t.Error("re-beginning the same target is not an abandonment")
	}
}

func TestBeginThenCancel_LeavesStoreIdentical(t *testing.T) {
	ed, store, ids := newSeeded(t, "a", "b", "c")
	before := store.Snapshot()

	if _, err := ed.BeginEdit(ids[1]); err != nil {
		t.Fatal(err)
	}
	_ = ed.SetPendingText("something else")
	_ = ed.ClearPendingAttachment()

	if !ed.Cancel() {
		t.Error("Cancel should report an active edit")
	}
	if ed.Cancel() {
		t.Error("second Cancel should report nothing to cancel")
	}
	if !reflect.DeepEqual(before, store.Snapshot()) {
		t.Error("store changed across begin+cancel")
	}
}

// =============================================================================
// COMMIT TESTS
// =============================================================================

func TestCommit_TruncatesAfterTarget(t *testing.T) {
	ed, store, ids := newSeeded(t, "a", "b", "c", "d")

	if _, err := ed.BeginEdit(ids[1]); err != nil {
		t.Fatal(err)
	}
	res, err := ed.Commit("B", "")
	if err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	if store.Len() != 2 {
		t.Fatalf("Len after commit = %d, want 2", store.Len())
	}
	last, _ := store.Last()
	if last.Text != "B" || last.ID != ids[1] {
		t.Errorf("last message = %+v", last)
	}
	if len(res.Removed) != 2 || res.Removed[0].ID != ids[2] {
		t.Errorf("removed = %+v", res.Removed)
	}
	if ed.Active() {
		t.Error("editor should be idle after commit")
	}
}

func TestCommit_EmptyRejectedAndStaysOpen(t *testing.T) {
	ed, store, ids := newSeeded(t, "a", "b")

	_, _ = ed.BeginEdit(ids[0])
	_, err := ed.Commit("", "")
	if !errors.Is(err, model.ErrNothingToSend) {
		t.Errorf("empty commit error = %v, want ErrNothingToSend", err)
	}
	if !ed.Active() {
		t.Error("rejected commit should keep the session open")
	}
	if store.Len() != 2 {
		t.Error("rejected commit must not truncate")
	}
}

func TestCommit_WithoutAttachmentRemovesIt(t *testing.T) {
	store := storage.NewMessageStore()
	id := store.Append(model.Message{Role: model.RoleUser, Text: "look", Attachment: "data:image/png;base64,AA=="})
	ed := NewEditor(store)

	_, _ = ed.BeginEdit(id)
	_ = ed.ClearPendingAttachment()
	res, err := ed.CommitPending()
	if err != nil {
		t.Fatal(err)
	}
	if res.Message.Attachment != "" {
		t.Errorf("attachment = %q, want removed", res.Message.Attachment)
	}
}

func TestCommit_AttachmentOnly(t *testing.T) {
	ed, _, ids := newSeeded(t, "a")

	_, _ = ed.BeginEdit(ids[0])
	res, err := ed.Commit("", "data:image/png;base64,AA==")
	if err != nil {
		t.Fatalf("attachment-only commit failed: %v", err)
	}
	if res.Message.Text != "" || res.Message.Attachment == "" {
		t.Errorf("message = %+v", res.Message)
	}
}

func TestCommit_NotEditing(t *testing.T) {
	ed, _, _ := newSeeded(t, "a")

	if _, err := ed.Commit("x", ""); !errors.Is(err, model.ErrNotEditing) {
		t.Errorf("Commit while idle error = %v, want ErrNotEditing", err)
	}
	if err := ed.SetPendingText("x"); !errors.Is(err, model.ErrNotEditing) {
		t.Errorf("SetPendingText while idle error = %v", err)
	}
}

func TestCommit_TargetVanished(t *testing.T) {
	ed, store, ids := newSeeded(t, "a")

	_, _ = ed.BeginEdit(ids[0])
	store.Clear()

	_, err := ed.Commit("x", "")
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("commit after clear error = %v, want ErrNotFound", err)
	}
	if ed.Active() {
		t.Error("vanished target should end the session")
	}
}

func TestCommit_KeepsRoleAndTimestamp(t *testing.T) {
	store := storage.NewMessageStore()
	id := store.Append(model.Message{Role: model.RoleAssistant, Text: "old", CreatedAt: "09:00:00", Reaction: model.ReactionLike})
	ed := NewEditor(store)

	_, _ = ed.BeginEdit(id)
	res, err := ed.Commit("new", "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Message.Role != model.RoleAssistant || res.Message.CreatedAt != "09:00:00" || res.Message.Reaction != model.ReactionLike {
		t.Errorf("commit changed immutable fields: %+v", res.Message)
	}
}

// =============================================================================
// CALLBACK TESTS
// =============================================================================

func TestOnChange(t *testing.T) {
	ed, _, ids := newSeeded(t, "a")

	var states []State
	ed.SetOnChange(func(s State, _ Target) {
		states = append(states, s)
	})

	_, _ = ed.BeginEdit(ids[0])
	ed.Cancel()
	_, _ = ed.BeginEdit(ids[0])
	_, _ = ed.Commit("x", "")

	want := []State{StateEditing, StateIdle, StateEditing, StateIdle}
	if !reflect.DeepEqual(states, want) {
		t.Errorf("states = %v, want %v", states, want)
	}
}

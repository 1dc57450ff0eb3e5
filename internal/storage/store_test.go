// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jeranaias/chatwidget/internal/model"
)

func userMsg(text string) model.Message {
	return model.Message{Role: model.RoleUser, Text: text, CreatedAt: "10:00:00"}
}

func seed(t *testing.T, texts ...string) (*MessageStore, []int64) {
	t.Helper()
	s := NewMessageStore()
	ids := make([]int64, 0, len(texts))
	for _, text := range texts {
		ids = append(ids, s.Append(userMsg(text)))
	}
	return s, ids
}

// =============================================================================
// APPEND TESTS
// =============================================================================

func TestAppend_IDsStrictlyIncrease(t *testing.T) {
	s := NewMessageStore()

	var prev int64
	for i := 0; i < 1000; i++ {
		id := s.Append(userMsg("x"))
		if id <= prev {
			t.Fatalf("append %d returned id %d after %d", i, id, prev)
		}
		prev = id
	}

	snap := s.Snapshot()
	require.Len(t, snap, 1000)
	require.NoError(t, model.ValidateLog(snap))
}

func TestAppend_IDsNotReusedAfterClear(t *testing.T) {
	s, ids := seed(t, "a", "b")
	s.Clear()

	if s.Len() != 0 {
		t.Fatalf("Len after Clear = %d", s.Len())
	}
	id := s.Append(userMsg("c"))
	if id <= ids[1] {
		t.Errorf("id after Clear = %d, want > %d", id, ids[1])
	}
}

func TestAppend_ConcurrentUnique(t *testing.T) {
	s := NewMessageStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				s.Append(userMsg("x"))
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1000, s.Len())
	require.NoError(t, model.ValidateLog(s.Snapshot()))
}

// =============================================================================
// LOOKUP TESTS
// =============================================================================

func TestFind(t *testing.T) {
	s, ids := seed(t, "a", "b", "c")

	msg, ok := s.FindByID(ids[1])
	require.True(t, ok)
	require.Equal(t, "b", msg.Text)

	idx, ok := s.FindIndexByID(ids[2])
	require.True(t, ok)
	require.Equal(t, 2, idx)

	_, ok = s.FindByID(999)
	require.False(t, ok)
	_, ok = s.FindIndexByID(999)
	require.False(t, ok)

	last, ok := s.Last()
	require.True(t, ok)
	require.Equal(t, "c", last.Text)

	_, ok = s.At(3)
	require.False(t, ok)
}

func TestSnapshot_IsACopy(t *testing.T) {
	s, ids := seed(t, "a")

	snap := s.Snapshot()
	snap[0].Text = "mutated"

	msg, _ := s.FindByID(ids[0])
	if msg.Text != "a" {
		t.Errorf("store message changed through snapshot: %q", msg.Text)
	}
}

// =============================================================================
// REPLACE TESTS
// =============================================================================

func TestReplaceFrom_Truncates(t *testing.T) {
	s, ids := seed(t, "a", "b", "c", "d")

	updated := userMsg("B")
	updated.ID = 12345
	removed, err := s.ReplaceFrom(1, updated)
	require.NoError(t, err)

	require.Equal(t, 2, s.Len())
	require.Len(t, removed, 2)
	require.Equal(t, "c", removed[0].Text)
	require.Equal(t, "d", removed[1].Text)

	msg, ok := s.At(1)
	require.True(t, ok)
	require.Equal(t, "B", msg.Text)
	require.Equal(t, ids[1], msg.ID, "replace must keep the stored id")
}

func TestReplaceFrom_LastIndexRemovesNothing(t *testing.T) {
	s, _ := seed(t, "a", "b")

	removed, err := s.ReplaceFrom(1, userMsg("B"))
	require.NoError(t, err)
	require.Empty(t, removed)
	require.Equal(t, 2, s.Len())
}

func TestReplaceFrom_OutOfRange(t *testing.T) {
	s, _ := seed(t, "a")

	for _, idx := range []int{-1, 1, 10} {
		_, err := s.ReplaceFrom(idx, userMsg("x"))
		if !errors.Is(err, model.ErrIndex) {
			t.Errorf("ReplaceFrom(%d) error = %v, want ErrIndex", idx, err)
		}
	}
	require.Equal(t, 1, s.Len())
}

// =============================================================================
// REACTION TESTS
// =============================================================================

func TestToggleReaction(t *testing.T) {
	s, ids := seed(t, "a")

	msg, err := s.ToggleReaction(ids[0], model.ReactionLike)
	require.NoError(t, err)
	require.Equal(t, model.ReactionLike, msg.Reaction)

	msg, err = s.ToggleReaction(ids[0], model.ReactionLike)
	require.NoError(t, err)
	require.Equal(t, model.ReactionNone, msg.Reaction)

	_, err = s.ToggleReaction(999, model.ReactionLike)
	require.ErrorIs(t, err, model.ErrNotFound)

	_, err = s.ToggleReaction(ids[0], "🔥")
	require.ErrorIs(t, err, model.ErrUnknownReaction)
}

// =============================================================================
// LOAD TESTS
// =============================================================================

func TestLoadFrom_ReplacesAndAdvancesCounter(t *testing.T) {
	s, _ := seed(t, "a")

	err := s.LoadFrom([]model.Message{
		{ID: 100, Role: model.RoleUser, Text: "x"},
		{ID: 200, Role: model.RoleAssistant, Text: "y"},
	})
	require.NoError(t, err)
	require.Equal(t, 2, s.Len())

	id := s.Append(userMsg("z"))
	require.Greater(t, id, int64(200))
}

func TestLoadFrom_InvalidLeavesStoreUntouched(t *testing.T) {
	s, _ := seed(t, "a", "b")
	before := s.Snapshot()

	tests := []struct {
		name string
		msgs []model.Message
	}{
		{"duplicate ids", []model.Message{
			{ID: 1, Role: model.RoleUser, Text: "x"},
			{ID: 1, Role: model.RoleUser, Text: "y"},
		}},
		{"no content", []model.Message{{ID: 1, Role: model.RoleUser}}},
		{"bad role", []model.Message{{ID: 1, Role: "tool", Text: "x"}}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Error(t, s.LoadFrom(tc.msgs))
			require.Equal(t, before, s.Snapshot())
		})
	}
}

func TestLoadFrom_Empty(t *testing.T) {
	s, _ := seed(t, "a")
	require.NoError(t, s.LoadFrom(nil))
	require.Equal(t, 0, s.Len())
}

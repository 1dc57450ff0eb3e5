// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package diff

import (
	"testing"
)

func TestComputeWords_Replacement(t *testing.T) {
	d := ComputeWords("the quick fox", "the  slow fox")

	want := []Line{
		{Context, "the"},
		{Removed, "quick"},
		{Added, "slow"},
		{Context, "fox"},
	}
	if len(d.Lines) != len(want) {
		t.Fatalf("got %d entries, want %d: %+v", len(d.Lines), len(want), d.Lines)
	}
	for i := range want {
		if d.Lines[i] != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, d.Lines[i], want[i])
		}
	}
	if d.Summary() != "+1 -1" {
		t.Errorf("Summary() = %q", d.Summary())
	}
	if got := d.Inline(); got != "the [-quick-] {+slow+} fox" {
		t.Errorf("Inline() = %q", got)
	}
}

func TestComputeLines_Modified(t *testing.T) {
	d := ComputeLines("a\nb\nc", "a\nB\nc\nd\n")

	if d.Stats.Additions != 2 || d.Stats.Deletions != 1 {
		t.Errorf("Stats = %+v, want +2 -1", d.Stats)
	}
	if got := d.Unified(); got != " a\n-b\n+B\n c\n+d\n" {
		t.Errorf("Unified() = %q", got)
	}
}

func TestComputeLines_FromAndToEmpty(t *testing.T) {
	added := ComputeLines("", "x\ny")
	if added.Stats.Additions != 2 || added.Stats.Deletions != 0 {
		t.Errorf("Stats = %+v", added.Stats)
	}
	removed := ComputeLines("x\ny", "")
	if removed.Stats.Additions != 0 || removed.Stats.Deletions != 2 {
		t.Errorf("Stats = %+v", removed.Stats)
	}
}

func TestUnchanged(t *testing.T) {
	d := ForEdit("same text", "same text")
	if d.Changed() {
		t.Error("identical texts reported as changed")
	}
	if d.Summary() != "unchanged" {
		t.Errorf("Summary() = %q", d.Summary())
	}
	if d.Inline() != "same text" {
		t.Errorf("Inline() = %q", d.Inline())
	}
}

func TestForEdit_PicksMode(t *testing.T) {
	if got := ForEdit("a b", "a c").Inline(); got != "a [-b-] {+c+}" {
		t.Errorf("single line Inline() = %q", got)
	}
	if got := ForEdit("a b\nc", "a b\nd").Inline(); got != "a b\n[-c-]\n{+d+}" {
		t.Errorf("multi line Inline() = %q", got)
	}
}

func TestLineType(t *testing.T) {
	tests := []struct {
		typ    LineType
		name   string
		prefix string
	}{
		{Context, "context", " "},
		{Added, "added", "+"},
		{Removed, "removed", "-"},
		{LineType(9), "unknown", " "},
	}
	for _, tc := range tests {
		if tc.typ.String() != tc.name || tc.typ.Prefix() != tc.prefix {
			t.Errorf("%d: got %q %q", tc.typ, tc.typ.String(), tc.typ.Prefix())
		}
	}
}

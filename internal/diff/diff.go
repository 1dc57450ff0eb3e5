// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package diff

import (
	"fmt"
	"strings"
)

// =============================================================================
// DIFF TYPES
// =============================================================================

// LineType is the kind of a diff entry.
type LineType int

const (
	// Context is unchanged text
	Context LineType = iota
	// Added is text only in the new version
	Added
	// Removed is text only in the old version
	Removed
)

// String returns the string representation of a line type.
func (t LineType) String() string {
	switch t {
	case Context:
		return "context"
	case Added:
		return "added"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

// Prefix returns the unified diff prefix for this line type.
func (t LineType) Prefix() string {
	switch t {
	case Added:
		return "+"
	case Removed:
		return "-"
	default:
		return " "
	}
}

// Line is one entry of a diff: a line or a word depending on the mode.
type Line struct {
	Type    LineType
	Content string
}

// Stats counts the changed entries of a diff.
type Stats struct {
	Additions int
	Deletions int
}

// Diff is the comparison of two texts.
type Diff struct {
	Lines []Line
	Stats Stats

	// words is set when entries are words rather than lines
	words bool
}

// =============================================================================
// DIFF COMPUTATION
// =============================================================================

// ForEdit compares two versions of a message, by words when both are a
// single line and by lines otherwise.
func ForEdit(oldText, newText string) *Diff {
	if !strings.Contains(oldText, "\n") && !strings.Contains(newText, "\n") {
		return ComputeWords(oldText, newText)
	}
	return ComputeLines(oldText, newText)
}

// ComputeLines compares old and new line by line.
func ComputeLines(oldText, newText string) *Diff {
	return compute(splitLines(oldText), splitLines(newText), false)
}

// ComputeWords compares old and new word by word. Runs of whitespace are
// treated as single separators.
func ComputeWords(oldText, newText string) *Diff {
	return compute(strings.Fields(oldText), strings.Fields(newText), true)
}

// splitLines splits content into lines, dropping one trailing newline.
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(content, "\n"), "\n")
}

func compute(a, b []string, words bool) *Diff {
	d := &Diff{words: words}

	// lcs[i][j] is the LCS length of a[i:] and b[j:]
	lcs := make([][]int, len(a)+1)
	for i := range lcs {
		lcs[i] = make([]int, len(b)+1)
	}
	for i := len(a) - 1; i >= 0; i-- {
		for j := len(b) - 1; j >= 0; j-- {
			if a[i] == b[j] {
				lcs[i][j] = lcs[i+1][j+1] + 1
			} else {
				lcs[i][j] = max(lcs[i+1][j], lcs[i][j+1])
			}
		}
	}

	i, j := 0, 0
	for i < len(a) || j < len(b) {
		switch {
		case i < len(a) && j < len(b) && a[i] == b[j]:
			d.Lines = append(d.Lines, Line{Type: Context, Content: a[i]})
			i++
			j++
		case j == len(b) || (i < len(a) && lcs[i+1][j] >= lcs[i][j+1]):
			d.Lines = append(d.Lines, Line{Type: Removed, Content: a[i]})
			d.Stats.Deletions++
			i++
		default:
			d.Lines = append(d.Lines, Line{Type: Added, Content: b[j]})
			d.Stats.Additions++
			j++
		}
	}
	return d
}

// =============================================================================
// FORMATTING
// =============================================================================

// Changed reports whether the texts differ.
func (d *Diff) Changed() bool {
	return d.Stats.Additions > 0 || d.Stats.Deletions > 0
}

// Summary returns "+N -M", or "unchanged".
func (d *Diff) Summary() string {
	if !d.Changed() {
		return "unchanged"
	}
	return fmt.Sprintf("+%d -%d", d.Stats.Additions, d.Stats.Deletions)
}

// Unified returns one entry per line with its prefix.
func (d *Diff) Unified() string {
	var sb strings.Builder
	for _, l := range d.Lines {
		sb.WriteString(l.Type.Prefix())
		sb.WriteString(l.Content)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Inline returns the new text with removals marked [-like this-] and
// additions {+like this+}. Adjacent entries of the same type are grouped.
func (d *Diff) Inline() string {
	sep := "\n"
	if d.words {
		sep = " "
	}

	var parts []string
	for k := 0; k < len(d.Lines); {
		t := d.Lines[k].Type
		var run []string
		for ; k < len(d.Lines) && d.Lines[k].Type == t; k++ {
			run = append(run, d.Lines[k].Content)
		}
		text := strings.Join(run, sep)
		switch t {
		case Added:
			text = "{+" + text + "+}"
		case Removed:
			text = "[-" + text + "-]"
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, sep)
}

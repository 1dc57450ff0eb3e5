// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package diff compares the text of a message before and after an edit.
//
// Single-line messages are compared word by word, anything longer line by
// line, using a longest common subsequence.
//
// # Key Types
//
//   - LineType: Kind of diff entry (context, added, removed)
//   - Line: One entry of a diff
//   - Diff: Complete result with statistics
//
// # Usage
//
//	d := diff.ForEdit(target.OriginalText, committed.Text)
//	if d.Changed() {
//		fmt.Println(d.Summary())
//		fmt.Println(d.Inline())
//	}
package diff

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export_test

import (
	"fmt"
	"time"

	"github.com/jeranaias/chatwidget/internal/export"
	"github.com/jeranaias/chatwidget/internal/model"
)

// ExampleMarshal demonstrates the interchange format.
func ExampleMarshal() {
	conv := &model.Conversation{
		Title: "Homework",
		Messages: []model.Message{
			{ID: 1, Role: model.RoleUser, Text: "2+2?", CreatedAt: "10:00:00"},
			{ID: 2, Role: model.RoleAssistant, Text: "$$2+2=4$$", CreatedAt: "10:00:01", Reaction: model.ReactionLike},
		},
	}

	data, err := export.Marshal(conv, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println(string(data))

	// Output:
	// {
	//   "title": "Homework",
	//   "messages": [
	//     {
	//       "id": 1,
	//       "type": "user",
	//       "text": "2+2?",
	//       "timestamp": "10:00:00",
	//       "reaction": null
	//     },
	//     {
	//       "id": 2,
	//       "type": "ai",
	//       "text": "$$2+2=4$$",
	//       "timestamp": "10:00:01",
	//       "reaction": "👍"
	//     }
	//   ],
	//   "exportDate": "2025-03-01T12:00:00.000Z"
	// }
}

// ExampleUnmarshal demonstrates importing the legacy array shape, which
// keeps the current title.
func ExampleUnmarshal() {
	legacy := []byte(`[{"id": 5, "type": "user", "text": "hi", "timestamp": "09:00", "reaction": null}]`)

	conv, err := export.Unmarshal(legacy, "Current")
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println(conv.Title, len(conv.Messages), conv.Messages[0].Text)

	// Output:
	// Current 1 hi
}

// ExampleForFormat demonstrates writing a Markdown transcript.
func ExampleForFormat() {
	opts := export.DefaultOptions()
	opts.IncludeMetadata = false
	opts.Now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }

	exporter, err := export.ForFormat("md", opts)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	conv := &model.Conversation{
		Title:    "Notes",
		Messages: []model.Message{{ID: 1, Role: model.RoleUser, Text: "remember milk", Author: "ann"}},
	}
	data, err := exporter.Export(conv)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Print(string(data))

	// Output:
	// # Notes
	//
	// ### \[You\] ann
	//
	// > remember milk
	//
	//
	// ---
	//
	// *Exported from chatwidget on March 1, 2025 at 12:00 PM*
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package surface keeps displays of the message log in sync with it.
//
// A Surface shows one View per message. The Projector renders messages
// through the render package and pushes the result to a surface, and
// schedules the single deferred retry for math that could not be rendered
// yet.
//
// # Key Types
//
//   - Surface: Mount/Update/Remove/ClearAll display contract
//   - Projector: Renders messages onto a surface
//   - HTMLSurface: In-memory fragments with a standalone page writer
//   - Terminal: Append-only chat bubbles for a terminal
//   - Recorder: Headless surface that records calls
//   - Scheduler: Runs deferred passes
//
// # Usage
//
//	html := surface.NewHTMLSurface()
//	p := surface.NewProjector(html, surface.ProjectorOptions{
//	    Capabilities: func() render.Capabilities { return caps },
//	    Lookup:       store.FindByID,
//	})
//	p.Mount(msg)
//	page, err := html.Document("Chat", nil)
package surface

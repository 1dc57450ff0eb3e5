// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package widget is the command surface of the chat widget.
//
// A Widget owns one conversation: the message log, the edit slot and the
// projection of both onto a surface. Hosts create one instance and pass it
// to every command; there is no package-level widget.
//
// # Key Types
//
//   - Widget: the conversation plus its commands (send, edit, react,
//     export, import, clear)
//   - Options: injected collaborators (surface, render capabilities,
//     scheduler, clock, logger, metrics, regenerate hook)
//   - RegenerateFunc: the hook behind Regenerate
//
// # Usage
//
//	w := widget.New(widget.Options{Surface: surface.NewHTMLSurface()})
//	w.Send("2+2=?")
//	w.SendAsAssistant("$$2+2=4$$")
//
//	raw, _ := w.ExportConversation()
//	w.Clear()
//	if err := w.ImportConversation(raw); err != nil {
//		// conversation unchanged
//	}
//
// Rendering never fails a command. Formatter and math errors are logged
// as RENDER_DEGRADED and the message is shown as escaped text.
package widget

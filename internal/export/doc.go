// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export serializes chat widget conversations.
//
// The JSON interchange format is the only format that can be imported
// back: an object with title, messages and exportDate keys. Unmarshal also
// accepts the legacy shape, a bare array of messages. The Markdown, HTML
// and YAML exporters produce read-only transcripts.
//
// # Key Types
//
//   - Exporter: Interface implemented by every format
//   - JSONExporter: Interchange format, wraps Marshal
//   - MarkdownExporter: Transcript with YAML frontmatter
//   - HTMLExporter: Standalone page styled like the widget
//   - YAMLExporter: Readable structured dump
//   - Options: Export configuration options
//
// # Usage
//
// Round-trip a conversation:
//
//	data, err := export.Marshal(conv, time.Now())
//	restored, err := export.Unmarshal(data, conv.Title)
//
// Write a transcript to disk:
//
//	exporter, _ := export.ForFormat("md", nil)
//	path, err := export.ExportToFile(conv, exporter, export.DefaultOptions())
package export

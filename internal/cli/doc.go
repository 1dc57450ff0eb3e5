// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides the chatwidget command-line interface.
//
// The command tree is built with cobra. Every command shares the global
// setup in PersistentPreRunE: .env loading, configuration, the slog logger
// and the Prometheus metrics registry.
//
// # Key Types
//
//   - ChatSession: One interactive session driving a widget with slash commands
//   - ChatCLI: Line editing and persistent input history for chat
//   - CommandError, UsageError: Errors mapped to process exit codes
//
// # Usage
//
//	func main() {
//	    os.Exit(cli.Execute())
//	}
//
// # Commands Overview
//
//   - chat: Interactive chat session (optionally importing and watching a file)
//   - render: Render an export as a standalone HTML page
//   - export: Convert an export to json, md, html or yaml
//   - config: View and modify configuration
package cli

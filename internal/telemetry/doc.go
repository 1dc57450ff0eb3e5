// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package telemetry counts chat widget activity with Prometheus metrics.
//
// # Key Types
//
//   - Metrics: Counters for messages, edits, reactions, imports, exports
//     and render fallbacks, on a private registry
//   - Summary: Gathered values for display
//
// # Usage
//
//	metrics := telemetry.NewMetrics()
//	metrics.MessageAdded("user")
//	http.Handle("/metrics", metrics.Handler())
//
// # Privacy
//
// Metrics are local-only and never carry message content.
package telemetry

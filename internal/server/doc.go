// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server provides the optional HTTP endpoint of a running widget.
//
// # Endpoints
//
//   - GET /metrics       - Prometheus metrics
//   - GET /health        - Health check
//   - GET /stats         - Metric totals as JSON
//   - GET /conversation  - The current conversation in the export format
//
// Every route goes through recovery, security header, request logging and
// per-client rate limiting middleware.
//
// # Key Types
//
//   - Server: HTTP server with router and middleware
//   - Options: Metrics, logger and the conversation source
//
// # Usage
//
//	srv := server.New(":9090", server.Options{
//		Metrics:      metrics,
//		Logger:       logger,
//		Conversation: w.ExportConversation,
//	})
//	srv.Start()
//	defer srv.Shutdown(ctx)
package server

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()

	m.MessageAdded("user")
	m.MessageAdded("user")
	m.MessageAdded("ai")
	m.Edit(EditCommit)
	m.Reaction(true)
	m.Reaction(false)
	m.Import(ImportFailed)
	m.Export("md")
	m.RenderDegraded("math")
	m.MathRetry()
	m.SetLogSize(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.messages.WithLabelValues("user")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.messages.WithLabelValues("ai")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.edits.WithLabelValues(EditCommit)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reactions.WithLabelValues("cleared")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.imports.WithLabelValues(ImportFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.degraded.WithLabelValues("math")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.mathRetries))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.logSize))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.MessageAdded("user")
	m.Edit(EditBegin)
	m.SetLogSize(1)
	assert.Nil(t, m.Registry())

	s, err := m.Summary()
	require.NoError(t, err)
	assert.Empty(t, s)
}

func TestMetrics_Summary(t *testing.T) {
	m := NewMetrics()
	m.MessageAdded("user")
	m.MessageAdded("system")
	m.Export("json")

	s, err := m.Summary()
	require.NoError(t, err)
	assert.Equal(t, 2.0, s.Total("messages_total"))
	assert.Equal(t, 1.0, s["exports_total"]["json"])
	assert.Contains(t, s.Lines(), "messages_total{user} 1")
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.MessageAdded("user")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `chatwidget_messages_total{role="user"} 1`), body)
}

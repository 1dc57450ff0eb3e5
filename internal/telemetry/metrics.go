// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chatwidget"

// Edit outcomes.
const (
	EditBegin   = "begin"
	EditCommit  = "commit"
	EditCancel  = "cancel"
	EditAbandon = "abandon"
)

// Import results.
const (
	ImportOK     = "ok"
	ImportFailed = "failed"
)

// =============================================================================
// METRICS
// =============================================================================

// Metrics counts widget activity on a private registry. Every method is
// safe on a nil *Metrics, so metrics stay optional.
type Metrics struct {
	registry *prometheus.Registry

	messages    *prometheus.CounterVec
	edits       *prometheus.CounterVec
	reactions   *prometheus.CounterVec
	imports     *prometheus.CounterVec
	exports     *prometheus.CounterVec
	degraded    *prometheus.CounterVec
	mathRetries prometheus.Counter
	logSize     prometheus.Gauge
}

// NewMetrics creates and registers the widget metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Messages appended to the log, by role.",
		}, []string{"role"}),
		edits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "edits_total",
			Help:      "Edit session transitions, by outcome.",
		}, []string{"outcome"}),
		reactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reactions_total",
			Help:      "Reaction toggles, by resulting state.",
		}, []string{"state"}),
		imports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "imports_total",
			Help:      "Conversation imports, by result.",
		}, []string{"result"}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Conversation exports, by format.",
		}, []string{"format"}),
		degraded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "render_degraded_total",
			Help:      "Render collaborator failures that fell back, by stage.",
		}, []string{"stage"}),
		mathRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "math_retries_total",
			Help:      "Deferred math passes run.",
		}),
		logSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "log_messages",
			Help:      "Messages currently in the log.",
		}),
	}

	m.registry.MustRegister(
		m.messages, m.edits, m.reactions, m.imports, m.exports,
		m.degraded, m.mathRetries, m.logSize,
	)
	return m
}

// Registry returns the registry holding the widget metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// MessageAdded counts one appended message.
func (m *Metrics) MessageAdded(role string) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(role).Inc()
}

// Edit counts one edit session transition.
func (m *Metrics) Edit(outcome string) {
	if m == nil {
		return
	}
	m.edits.WithLabelValues(outcome).Inc()
}

// Reaction counts one toggle. set is false when the toggle cleared the slot.
func (m *Metrics) Reaction(set bool) {
	if m == nil {
		return
	}
	state := "cleared"
	if set {
		state = "set"
	}
	m.reactions.WithLabelValues(state).Inc()
}

// Import counts one import attempt.
func (m *Metrics) Import(result string) {
	if m == nil {
		return
	}
	m.imports.WithLabelValues(result).Inc()
}

// Export counts one export.
func (m *Metrics) Export(format string) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(format).Inc()
}

// RenderDegraded counts one render fallback.
func (m *Metrics) RenderDegraded(stage string) {
	if m == nil {
		return
	}
	m.degraded.WithLabelValues(stage).Inc()
}

// MathRetry counts one deferred math pass.
func (m *Metrics) MathRetry() {
	if m == nil {
		return
	}
	m.mathRetries.Inc()
}

// SetLogSize records the current number of messages.
func (m *Metrics) SetLogSize(n int) {
	if m == nil {
		return
	}
	m.logSize.Set(float64(n))
}

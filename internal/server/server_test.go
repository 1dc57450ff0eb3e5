// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jeranaias/chatwidget/internal/logging"
	"github.com/jeranaias/chatwidget/internal/telemetry"
)

func newTestServer(conv ConversationFunc) (*Server, *telemetry.Metrics) {
	m := telemetry.NewMetrics()
	return New("127.0.0.1:0", Options{Metrics: m, Conversation: conv, Version: "test"}), m
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// =============================================================================
// HANDLER TESTS
// =============================================================================

func TestHandleHealth(t *testing.T) {
	s, _ := newTestServer(nil)
	rec := get(t, s.Handler(), "/health")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var health HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&health); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if health.Status != "ok" || health.Version != "test" {
		t.Errorf("health = %+v", health)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}
}

func TestHandleStats(t *testing.T) {
	s, m := newTestServer(nil)
	m.MessageAdded("user")
	m.MessageAdded("ai")

	rec := get(t, s.Handler(), "/stats")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var totals map[string]float64
	if err := json.NewDecoder(rec.Body).Decode(&totals); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if totals["messages_total"] != 2 {
		t.Errorf("messages_total = %v, want 2", totals["messages_total"])
	}
}

func TestHandleMetrics(t *testing.T) {
	s, m := newTestServer(nil)
	m.MathRetry()

	rec := get(t, s.Handler(), "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "math_retries_total 1") {
		t.Errorf("metrics output missing counter:\n%s", rec.Body.String())
	}
}

func TestHandleConversation(t *testing.T) {
	s, _ := newTestServer(func() (string, error) {
		return `{"title":"Chat","messages":[]}`, nil
	})
	rec := get(t, s.Handler(), "/conversation")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != `{"title":"Chat","messages":[]}` {
		t.Errorf("body = %q", rec.Body.String())
	}

	failing, _ := newTestServer(func() (string, error) { return "", errors.New("boom") })
	if rec := get(t, failing.Handler(), "/conversation"); rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestConversationRouteDisabled(t *testing.T) {
	s, _ := newTestServer(nil)
	if rec := get(t, s.Handler(), "/conversation"); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

// =============================================================================
// MIDDLEWARE TESTS
// =============================================================================

func TestRateLimitMiddleware(t *testing.T) {
	s := New("127.0.0.1:0", Options{RPS: 1, Burst: 2})
	h := s.Handler()

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, get(t, h, "/health").Code)
	}
	if codes[0] != 200 || codes[1] != 200 || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [200 200 429]", codes)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	h := Chain(RecoveryMiddleware(logging.Discard()))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	if rec := get(t, h, "/"); rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(mark("a"), mark("b"))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	get(t, h, "/")
	if strings.Join(order, ",") != "a,b" {
		t.Errorf("order = %v, want [a b]", order)
	}
}

// =============================================================================
// LIFECYCLE TESTS
// =============================================================================

func TestStartAndShutdown(t *testing.T) {
	s, _ := newTestServer(nil)
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Shutdown(context.Background())

	resp, err := http.Get("http://" + s.Addr() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"ok"`) {
		t.Errorf("status = %d body = %s", resp.StatusCode, body)
	}

	if err := s.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
	if err := s.Shutdown(context.Background()); err != nil {
		t.Errorf("second Shutdown: %v", err)
	}
}

package alerting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"freetier-alerts/internal/storage"
)

func sampleAlert() storage.AlertEvent {
	return storage.AlertEvent{
		ID:              1,
		Resource:        "Amazon Relational Database Service",
		SubMetric:       "db.t2.micro",
		CurrentUsage:    decimal.NewFromInt(700),
		LimitValue:      decimal.NewFromInt(750),
		UsagePercentage: decimal.NewFromFloat(93.33),
		Severity:        "critical",
		Message:         "CRITICAL: usage high",
		Date:            time.Date(2026, time.June, 10, 0, 0, 0, 0, time.UTC),
	}
}

func TestTelegramNotifySendsMessage(t *testing.T) {
	var gotPath string
	var gotPayload map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write([]byte(`{"ok":true}`)); err != nil {
			t.Errorf("write response: %v", err)
		}
	}))
	defer server.Close()

	n := NewTelegramNotifier("test-token", "42", server.URL, time.Second, zerolog.Nop())
	if err := n.Notify(context.Background(), sampleAlert()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotPath != "/bottest-token/sendMessage" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotPayload["chat_id"] != "42" {
		t.Fatalf("chat_id = %q", gotPayload["chat_id"])
	}

	text := gotPayload["text"]
	for _, fragment := range []string{
		"[Free Tier Alert]",
		"Amazon Relational Database Service",
		"db.t2.micro",
		"700 of 750 (93.3%)",
		"Severity: critical",
		"Date: 2026-06-10",
		"CRITICAL: usage high",
	} {
		if !strings.Contains(text, fragment) {
			t.Fatalf("message missing %q:\n%s", fragment, text)
		}
	}
}

func TestTelegramNotifyStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"ok":false,"description":"Unauthorized"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	n := NewTelegramNotifier("bad-token", "42", server.URL, time.Second, zerolog.Nop())
	if err := n.Notify(context.Background(), sampleAlert()); err == nil {
		t.Fatal("expected error on 401")
	}
}

func TestTelegramNotifyAPIRefusal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write([]byte(`{"ok":false}`)); err != nil {
			t.Errorf("write response: %v", err)
		}
	}))
	defer server.Close()

	n := NewTelegramNotifier("test-token", "42", server.URL, time.Second, zerolog.Nop())
	if err := n.Notify(context.Background(), sampleAlert()); err == nil {
		t.Fatal("expected error when api responds ok=false")
	}
}

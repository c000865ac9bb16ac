package pipeline

import (
	"encoding/json"
	"testing"
	"time"
)

func TestResolvePricePrecedence(t *testing.T) {
	tests := []struct {
		name   string
		st     *AnalysisState
		want   float64
		ok     bool
		source string
	}{
		{
			name: "live quote wins",
			st: &AnalysisState{
				CurrentPrice: ptr(182.52),
				Prices:       map[string]float64{"2026-08-27": 180.00},
				Summary:      "trading at $15.20",
			},
			want: 182.52, ok: true, source: "quote",
		},
		{
			name: "zero quote falls through to history",
			st: &AnalysisState{
				CurrentPrice: ptr(0.0),
				Prices: map[string]float64{
					"2026-08-25": 101.00,
					"2026-08-27": 103.50,
				},
			},
			want: 103.50, ok: true, source: "history",
		},
		{
			name: "most recent positive history value",
			st: &AnalysisState{
				Prices: map[string]float64{
					"2026-08-25": 101.00,
					"2026-08-27": 0, // bad point skipped walking backward
				},
			},
			want: 101.00, ok: true, source: "history",
		},
		{
			name: "summary-embedded price",
			st: &AnalysisState{
				Summary: "ACME is currently trading at $15.20 after a volatile week.",
			},
			want: 15.20, ok: true, source: "summary",
		},
		{
			name: "summary price with thousands separator",
			st:   &AnalysisState{Summary: "now above $1,234.56 per share"},
			want: 1234.56, ok: true, source: "summary",
		},
		{
			name:   "nothing available",
			st:     &AnalysisState{},
			ok:     false,
			source: "none",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolvePrice(tt.st)
			if got.OK != tt.ok {
				t.Fatalf("expected ok=%v, got %+v", tt.ok, got)
			}
			if got.OK && got.Value != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got.Value)
			}
			if got.Source != tt.source {
				t.Fatalf("expected source %q, got %q", tt.source, got.Source)
			}
			if got.OK && got.Value == 0 {
				t.Fatal("reconciled price must never be zero")
			}
		})
	}
}

func TestResolvedPriceString(t *testing.T) {
	if got := (ResolvedPrice{Value: 15.2, OK: true}).String(); got != "$15.20" {
		t.Fatalf("expected $15.20, got %q", got)
	}
	if got := (ResolvedPrice{}).String(); got != PriceUnavailable {
		t.Fatalf("expected %q, got %q", PriceUnavailable, got)
	}
}

func TestRenderCompleteShape(t *testing.T) {
	st, _ := NewAnalysisState("ACME")
	at := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	report := Render(st, "q-1", at)
	if report.Price != PriceUnavailable {
		t.Fatalf("expected unavailable sentinel, got %v", report.Price)
	}
	if report.LogID != nil {
		t.Fatal("absent persistence must render a null log id")
	}

	// The report must round-trip with every key present even when empty.
	raw, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	for _, key := range []string{"query_id", "ticker", "price", "prices", "trend", "sentiment", "recommendation", "summary", "news", "log_id", "degraded"} {
		if _, ok := m[key]; !ok {
			t.Fatalf("report missing key %q: %s", key, raw)
		}
	}
	if m["sentiment"] != "Neutral" || m["recommendation"] != "Hold" {
		t.Fatalf("expected Neutral/Hold defaults, got %v/%v", m["sentiment"], m["recommendation"])
	}
}

func TestRenderUsesReconciledPrice(t *testing.T) {
	st, _ := NewAnalysisState("ACME")
	st.Summary = "ACME is currently trading at $15.20."
	st.PersistenceID = "abc-123"

	report := Render(st, "q-2", time.Now())
	if report.Price != 15.20 {
		t.Fatalf("expected 15.20 from summary fallback, got %v", report.Price)
	}
	if report.PriceSource != "summary" {
		t.Fatalf("expected summary source, got %q", report.PriceSource)
	}
	if report.LogID == nil || *report.LogID != "abc-123" {
		t.Fatalf("expected log id abc-123, got %v", report.LogID)
	}
}

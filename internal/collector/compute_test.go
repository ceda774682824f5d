package collector

import (
	"testing"
	"time"

	"trafficgen/internal/core"
)

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil, time.Second)
	if s.TotalEvents != 0 || s.Calls != 0 || len(s.Actions) != 0 {
		t.Errorf("expected empty summary, got %+v", s)
	}
}

func TestSummarize(t *testing.T) {
	events := []core.Event{
		{Kind: core.KindSimulation, Details: map[string]any{"status": "started"}},
		{Kind: core.KindRegister, Details: map[string]any{"status": "success", "status_code": 201, "elapsed_ms": 30.0}},
		{Kind: core.KindTopTransition, Details: map[string]any{"from": "anon_not_registered", "to": "anon_registered"}},
		{Kind: core.KindAnonAction, Details: map[string]any{"action": "search", "status": "recorded", "elapsed_ms": 10.0}},
		{Kind: core.KindAnonAction, Details: map[string]any{"action": "search", "status": "recorded", "elapsed_ms": 20.0}},
		{Kind: core.KindAnonAction, Details: map[string]any{"action": "view_product_detail", "status": "exception", "elapsed_ms": 5000.0}},
		{Kind: core.KindLogin, Details: map[string]any{"status": "failed", "elapsed_ms": 40.0}},
		{Kind: core.KindTopTransitionFail, Details: map[string]any{"action": "login"}},
		{Kind: core.KindAuthAction, Details: map[string]any{"action": "remove_from_cart", "status": "skipped"}},
		{Kind: core.KindComplete, Details: map[string]any{"reason": "done", "final_state": "done", "ticks": 4}},
		{Kind: core.KindComplete, Details: map[string]any{"reason": "max_transitions_reached", "final_state": "logged_in", "ticks": 20}},
		{Kind: core.KindPanic, Details: map[string]any{"error": "panic: boom"}},
	}

	s := Summarize(events, 2*time.Second)

	if s.TotalEvents != len(events) {
		t.Errorf("expected %d events, got %d", len(events), s.TotalEvents)
	}
	if s.Calls != 4 {
		t.Errorf("expected 4 timed calls (exceptions and skips excluded), got %d", s.Calls)
	}
	if s.CallsPerSec != 2 {
		t.Errorf("expected 2 calls/s, got %v", s.CallsPerSec)
	}
	if s.Exceptions != 1 {
		t.Errorf("expected 1 exception, got %d", s.Exceptions)
	}
	if s.Transitions != 1 || s.RejectedTransitions != 1 {
		t.Errorf("expected 1 committed and 1 rejected, got %d/%d", s.Transitions, s.RejectedTransitions)
	}
	if s.Sessions != 2 || s.TotalTicks != 24 || s.Panics != 1 {
		t.Errorf("unexpected session totals: %d sessions, %d ticks, %d panics", s.Sessions, s.TotalTicks, s.Panics)
	}
	if s.ByReason["max_transitions_reached"] != 1 || s.ByFinalState["logged_in"] != 1 {
		t.Errorf("unexpected end reasons: %v %v", s.ByReason, s.ByFinalState)
	}

	search := s.Actions["search"]
	if search == nil || search.Count != 2 || search.Duration.Max != 20*time.Millisecond {
		t.Errorf("unexpected search stats: %+v", search)
	}
	if s.Actions["register"] == nil || s.Actions["login"].ByStatus["failed"] != 1 {
		t.Error("account actions must be keyed by kind")
	}
	if s.Actions["remove_from_cart"].ByStatus["skipped"] != 1 {
		t.Error("skipped actions must be counted")
	}
	if s.Duration.Min != 10*time.Millisecond || s.Duration.Max != 40*time.Millisecond {
		t.Errorf("unexpected latency range: %v..%v", s.Duration.Min, s.Duration.Max)
	}
}

func TestComputePercentile(t *testing.T) {
	durations := []time.Duration{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}
	if p := ComputePercentile(durations, 0.50); p != 50 {
		t.Errorf("expected p50=50, got %d", p)
	}
	if p := ComputePercentile(durations, 0.90); p != 90 {
		t.Errorf("expected p90=90, got %d", p)
	}
	if p := ComputePercentile(durations, 1); p != 100 {
		t.Errorf("expected p100=100, got %d", p)
	}
	if p := ComputePercentile(nil, 0.5); p != 0 {
		t.Errorf("expected 0 for empty input, got %d", p)
	}
}

func TestComputeDurationMetrics(t *testing.T) {
	m := ComputeDurationMetrics([]time.Duration{30, 10, 20})
	if m.Min != 10 || m.Max != 30 || m.Avg != 20 || m.P50 != 20 {
		t.Errorf("unexpected metrics: %+v", m)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{500 * time.Microsecond, "500µs"},
		{45 * time.Millisecond, "45ms"},
		{1500 * time.Millisecond, "1.5s"},
		{90 * time.Second, "1m30s"},
	}
	for _, tc := range tests {
		if got := FormatDuration(tc.d); got != tc.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tc.d, got, tc.want)
		}
	}
}

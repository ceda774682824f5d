package collector

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// FormatText writes the summary in human-readable form.
func FormatText(w io.Writer, s *Summary) {
	if s.TotalEvents == 0 {
		fmt.Fprintln(w, "No events collected")
		return
	}

	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Traffic Generator - Run Summary")
	fmt.Fprintln(w, "===============================")
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "Duration:       %v\n", s.RunDuration.Round(time.Millisecond))
	fmt.Fprintf(w, "Sessions:       %s (panics: %d, ticks: %s)\n", formatNumber(s.Sessions), s.Panics, formatNumber(s.TotalTicks))
	fmt.Fprintf(w, "Events:         %s\n", formatNumber(s.TotalEvents))
	fmt.Fprintf(w, "API calls:      %s (%.1f/s, exceptions: %d)\n", formatNumber(s.Calls), s.CallsPerSec, s.Exceptions)
	fmt.Fprintf(w, "Transitions:    %s committed, %s rejected\n", formatNumber(s.Transitions), formatNumber(s.RejectedTransitions))

	if s.Calls > 0 {
		fmt.Fprintln(w, "")
		fmt.Fprintln(w, "Response Times:")
		fmt.Fprintf(w, "  Min:    %s\n", FormatDuration(s.Duration.Min))
		fmt.Fprintf(w, "  Avg:    %s\n", FormatDuration(s.Duration.Avg))
		fmt.Fprintf(w, "  P50:    %s\n", FormatDuration(s.Duration.P50))
		fmt.Fprintf(w, "  P90:    %s\n", FormatDuration(s.Duration.P90))
		fmt.Fprintf(w, "  P95:    %s\n", FormatDuration(s.Duration.P95))
		fmt.Fprintf(w, "  P99:    %s\n", FormatDuration(s.Duration.P99))
		fmt.Fprintf(w, "  Max:    %s\n", FormatDuration(s.Duration.Max))
	}

	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "By Action:")
	for _, name := range slices.Sorted(maps.Keys(s.Actions)) {
		a := s.Actions[name]
		fmt.Fprintf(w, "  %-22s %6s  %-40s avg=%s  p95=%s\n",
			name, formatNumber(a.Count), formatStatuses(a.ByStatus),
			FormatDuration(a.Duration.Avg), FormatDuration(a.Duration.P95))
	}

	if len(s.ByReason) > 0 {
		fmt.Fprintln(w, "")
		fmt.Fprintln(w, "Sessions ended:")
		for _, reason := range slices.Sorted(maps.Keys(s.ByReason)) {
			fmt.Fprintf(w, "  %-24s %s\n", reason, formatNumber(s.ByReason[reason]))
		}
	}
}

func formatStatuses(m map[string]int) string {
	parts := make([]string, 0, len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		parts = append(parts, fmt.Sprintf("%s=%d", k, m[k]))
	}
	return strings.Join(parts, " ")
}

// FormatJSON writes the summary as indented JSON.
func FormatJSON(w io.Writer, s *Summary) {
	output := jsonSummary{
		Duration:            s.RunDuration.Round(time.Millisecond).String(),
		Sessions:            s.Sessions,
		Panics:              s.Panics,
		TotalTicks:          s.TotalTicks,
		TotalEvents:         s.TotalEvents,
		Calls:               s.Calls,
		CallsPerSec:         s.CallsPerSec,
		Exceptions:          s.Exceptions,
		Transitions:         s.Transitions,
		RejectedTransitions: s.RejectedTransitions,
		Durations:           toJSONDurationMetrics(s.Duration),
		Events:              s.ByKind,
		Actions:             make(map[string]jsonActionStats, len(s.Actions)),
		EndReasons:          s.ByReason,
		FinalStates:         s.ByFinalState,
	}
	for name, a := range s.Actions {
		output.Actions[name] = jsonActionStats{
			Count:     a.Count,
			Statuses:  a.ByStatus,
			Durations: toJSONDurationMetrics(a.Duration),
		}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(output) // stdout errors are unrecoverable
}

type jsonSummary struct {
	Duration            string                     `json:"duration"`
	Sessions            int                        `json:"sessions"`
	Panics              int                        `json:"panics"`
	TotalTicks          int                        `json:"totalTicks"`
	TotalEvents         int                        `json:"totalEvents"`
	Calls               int                        `json:"calls"`
	CallsPerSec         float64                    `json:"callsPerSec"`
	Exceptions          int                        `json:"exceptions"`
	Transitions         int                        `json:"transitions"`
	RejectedTransitions int                        `json:"rejectedTransitions"`
	Durations           jsonDurationMetrics        `json:"durations"`
	Events              map[string]int             `json:"events"`
	Actions             map[string]jsonActionStats `json:"actions"`
	EndReasons          map[string]int             `json:"endReasons"`
	FinalStates         map[string]int             `json:"finalStates"`
}

type jsonDurationMetrics struct {
	Min string `json:"min"`
	Max string `json:"max"`
	Avg string `json:"avg"`
	P50 string `json:"p50"`
	P90 string `json:"p90"`
	P95 string `json:"p95"`
	P99 string `json:"p99"`
}

type jsonActionStats struct {
	Count     int                 `json:"count"`
	Statuses  map[string]int      `json:"statuses"`
	Durations jsonDurationMetrics `json:"durations"`
}

func toJSONDurationMetrics(d DurationMetrics) jsonDurationMetrics {
	return jsonDurationMetrics{
		Min: FormatDuration(d.Min),
		Max: FormatDuration(d.Max),
		Avg: FormatDuration(d.Avg),
		P50: FormatDuration(d.P50),
		P90: FormatDuration(d.P90),
		P95: FormatDuration(d.P95),
		P99: FormatDuration(d.P99),
	}
}

func formatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%d,%03d", n/1000, n%1000)
}

package collector

import (
	"time"

	"trafficgen/internal/core"
)

// actionKinds are the event kinds produced by API calls.
var actionKinds = map[string]bool{
	core.KindRegister:   true,
	core.KindLogin:      true,
	core.KindLogout:     true,
	core.KindDeleteUser: true,
	core.KindAnonAction: true,
	core.KindAuthAction: true,
}

// Summary is the end-of-run report.
type Summary struct {
	RunDuration time.Duration
	TotalEvents int
	ByKind      map[string]int

	Calls       int // actions that reached the network
	Exceptions  int
	CallsPerSec float64
	Duration    DurationMetrics
	Actions     map[string]*ActionStats

	Transitions         int
	RejectedTransitions int

	Sessions     int
	Panics       int
	TotalTicks   int
	ByReason     map[string]int
	ByFinalState map[string]int
}

// ActionStats counts one named action by outcome status.
type ActionStats struct {
	Count    int
	ByStatus map[string]int
	Duration DurationMetrics
}

// Summarize computes a Summary from events. Pure function.
func Summarize(events []core.Event, runDuration time.Duration) *Summary {
	s := &Summary{
		RunDuration:  runDuration,
		ByKind:       make(map[string]int),
		Actions:      make(map[string]*ActionStats),
		ByReason:     make(map[string]int),
		ByFinalState: make(map[string]int),
	}

	var all []time.Duration
	perAction := make(map[string][]time.Duration)

	for _, e := range events {
		s.TotalEvents++
		s.ByKind[e.Kind]++

		switch e.Kind {
		case core.KindTopTransition:
			s.Transitions++
		case core.KindTopTransitionFail:
			s.RejectedTransitions++
		case core.KindPanic:
			s.Panics++
		case core.KindComplete:
			s.Sessions++
			reason, _ := e.Details["reason"].(string)
			final, _ := e.Details["final_state"].(string)
			s.ByReason[reason]++
			s.ByFinalState[final]++
			if ticks, ok := e.Details["ticks"].(int); ok {
				s.TotalTicks += ticks
			}
		}

		if !actionKinds[e.Kind] {
			continue
		}
		name, _ := e.Details["action"].(string)
		if name == "" {
			name = e.Kind
		}
		status, _ := e.Details["status"].(string)

		a := s.Actions[name]
		if a == nil {
			a = &ActionStats{ByStatus: make(map[string]int)}
			s.Actions[name] = a
		}
		a.Count++
		a.ByStatus[status]++

		if status == string(core.StatusException) {
			s.Exceptions++
		}
		if ms, ok := e.Details["elapsed_ms"].(float64); ok && status != string(core.StatusException) {
			d := time.Duration(ms * float64(time.Millisecond))
			s.Calls++
			all = append(all, d)
			perAction[name] = append(perAction[name], d)
		}
	}

	if runDuration > 0 {
		s.CallsPerSec = float64(s.Calls) / runDuration.Seconds()
	}
	s.Duration = ComputeDurationMetrics(all)
	for name, ds := range perAction {
		s.Actions[name].Duration = ComputeDurationMetrics(ds)
	}
	return s
}

// Package core defines the types shared by every part of trafficgen: the
// event model, action outcomes, the clock abstraction and the tick runner.
package core

import (
	"context"
	"time"
)

// Event is a single observable happening inside a simulated user session.
type Event struct {
	ActorID   string
	Kind      string
	Details   map[string]any
	Timestamp time.Time
}

// EventSink receives events from sessions.
// Implementations must be safe for concurrent use and must not block the caller.
type EventSink interface {
	Emit(Event)
}

// Machine is a state machine advanced one tick at a time by a Runner.
type Machine interface {
	Tick(ctx context.Context) error
	Terminal() bool
}

// Event kinds emitted by sessions and the scheduler.
const (
	KindRegister          = "register"
	KindLogin             = "login"
	KindLogout            = "logout"
	KindDeleteUser        = "delete_user"
	KindAnonAction        = "anon_sub_action"
	KindAuthAction        = "logged_sub_action"
	KindAnonTransition    = "anon_sub_state_transition"
	KindAuthTransition    = "logged_sub_state_transition"
	KindTopTransition     = "top_level_state_transition"
	KindTopTransitionFail = "top_level_state_transition_failed"
	KindSubFSM            = "sub_fsm"
	KindUnregister        = "unregister"
	KindSimulation        = "simulation"
	KindComplete          = "simulation_complete"
	KindPanic             = "panic"
)

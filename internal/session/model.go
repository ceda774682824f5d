// Package session runs one simulated user: a confirmed-transition lifecycle
// machine whose states drive two nested activity machines.
package session

import (
	"context"

	"github.com/looplab/fsm"

	"trafficgen/internal/action"
	"trafficgen/internal/config"
	"trafficgen/internal/core"
	"trafficgen/internal/state"
	"trafficgen/internal/transition"
)

// finishEvent moves an unregistered user to done without consulting the table.
const finishEvent = "finish"

// handler is an action bound to a state.
type handler func(ctx context.Context, a *action.Actor) core.Outcome

// Model is the immutable behavior model shared by every session.
type Model struct {
	Top  transition.Table[state.Top]
	Anon transition.Table[state.AnonSub]
	Auth transition.Table[state.AuthSub]

	events []fsm.EventDesc
}

// NewModel precomputes the lifecycle events: one per table edge plus finish.
func NewModel(t config.TransitionsConfig) *Model {
	m := &Model{Top: t.Top, Anon: t.Anonymous, Auth: t.Authenticated}
	for _, e := range t.Top.Edges() {
		m.events = append(m.events, fsm.EventDesc{
			Name: eventName(e[0], e[1]),
			Src:  []string{string(e[0])},
			Dst:  string(e[1]),
		})
	}
	m.events = append(m.events, fsm.EventDesc{
		Name: finishEvent,
		Src:  []string{string(state.Unregistered)},
		Dst:  string(state.Done),
	})
	return m
}

func eventName(from, to state.Top) string {
	return string(from) + "->" + string(to)
}

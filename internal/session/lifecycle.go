package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/looplab/fsm"

	"trafficgen/internal/action"
	"trafficgen/internal/core"
	"trafficgen/internal/state"
)

type edge struct {
	from, to state.Top
}

// confirmation is the API call that must succeed before an edge commits.
type confirmation struct {
	name string
	run  handler
}

func confirmations(e *action.Executor) map[edge]confirmation {
	return map[edge]confirmation{
		{state.AnonNotRegistered, state.AnonRegistered}: {"register", e.Register},
		{state.AnonRegistered, state.LoggedIn}:          {"login", e.Login},
		{state.LoggedIn, state.LoggedOut}:               {"logout", e.Logout},
		{state.LoggedIn, state.Unregistered}:            {"delete_user", e.DeleteAccount},
		{state.LoggedOut, state.Unregistered}:           {"delete_user", e.DeleteAccount},
	}
}

// Lifecycle is the top-level user state. A proposed move commits only if
// the confirming action bound to its edge (if any) succeeds; that check runs
// as the machine's before_event guard and cancels the event on failure.
type Lifecycle struct {
	fsm      *fsm.FSM
	actor    *action.Actor
	confirms map[edge]confirmation
	rejected *Rejection
}

// Rejection describes a proposed move whose confirming action failed.
type Rejection struct {
	Action  string
	Outcome core.Outcome
}

var errRejected = errors.New("confirmation failed")

func newLifecycle(m *Model, exec *action.Executor, actor *action.Actor) *Lifecycle {
	l := &Lifecycle{actor: actor, confirms: confirmations(exec)}
	l.fsm = fsm.NewFSM(
		string(state.AnonNotRegistered),
		fsm.Events(m.events),
		fsm.Callbacks{
			"before_event": l.guard,
		},
	)
	return l
}

func (l *Lifecycle) guard(ctx context.Context, e *fsm.Event) {
	c, ok := l.confirms[edge{state.Top(e.Src), state.Top(e.Dst)}]
	if !ok {
		return
	}
	if o := c.run(ctx, l.actor); !o.OK() {
		l.rejected = &Rejection{Action: c.name, Outcome: o}
		e.Cancel(errRejected)
	}
}

// Current returns the current top-level state.
func (l *Lifecycle) Current() state.Top {
	return state.Top(l.fsm.Current())
}

// Propose tries to move to next. It returns nil when the move committed
// (self-loops included) and the rejection when the confirming action failed.
func (l *Lifecycle) Propose(ctx context.Context, next state.Top) (*Rejection, error) {
	l.rejected = nil
	err := l.fsm.Event(ctx, eventName(l.Current(), next))

	var noop fsm.NoTransitionError
	var canceled fsm.CanceledError
	switch {
	case err == nil, errors.As(err, &noop):
		return nil, nil
	case errors.As(err, &canceled) && l.rejected != nil:
		return l.rejected, nil
	default:
		return nil, fmt.Errorf("lifecycle %s -> %s: %w", l.Current(), next, err)
	}
}

// Finish forces unregistered to done.
func (l *Lifecycle) Finish(ctx context.Context) error {
	if err := l.fsm.Event(ctx, finishEvent); err != nil {
		return fmt.Errorf("finishing lifecycle: %w", err)
	}
	return nil
}

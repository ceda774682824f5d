package session

import (
	"context"
	"math/rand"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trafficgen/internal/action"
	"trafficgen/internal/config"
	"trafficgen/internal/core"
	"trafficgen/internal/persona"
	"trafficgen/internal/shop"
	"trafficgen/internal/state"
	"trafficgen/internal/transition"
)

// fakeShop answers every endpoint with a configured status, 200 by default.
type fakeShop struct {
	mu    sync.Mutex
	codes map[string]int
	calls []string
}

func (f *fakeShop) answer(endpoint string) (*shop.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, endpoint)
	code, ok := f.codes[endpoint]
	if !ok {
		code = 200
	}
	return &shop.Response{StatusCode: code, Duration: time.Millisecond}, nil
}

func (f *fakeShop) Root(context.Context) (*shop.Response, error) { return f.answer("") }
func (f *fakeShop) Get(_ context.Context, endpoint string, _ url.Values) (*shop.Response, error) {
	return f.answer(endpoint)
}
func (f *fakeShop) PostForm(_ context.Context, endpoint string, _ url.Values) (*shop.Response, error) {
	return f.answer(endpoint)
}

func (f *fakeShop) count(endpoint string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == endpoint {
			n++
		}
	}
	return n
}

type harness struct {
	session *Session
	sink    *core.RecordingSink
	shop    *fakeShop
	clock   *core.FakeClock
}

// quietSubs keeps the nested machines from making calls.
func quietSubs() config.TransitionsConfig {
	return config.TransitionsConfig{
		Anonymous:     transition.Table[state.AnonSub]{state.AnonInitial: {state.AnonDone: 1}},
		Authenticated: transition.Table[state.AuthSub]{state.AuthInitial: {state.AuthDone: 1}},
	}
}

func newHarness(t *testing.T, tables config.TransitionsConfig, codes map[string]int, maxTicks int) *harness {
	t.Helper()
	cfg := config.Default("http://shop.local")
	if tables.Top != nil {
		cfg.Transitions.Top = tables.Top
	}
	if tables.Anonymous != nil {
		cfg.Transitions.Anonymous = tables.Anonymous
	}
	if tables.Authenticated != nil {
		cfg.Transitions.Authenticated = tables.Authenticated
	}

	sink := &core.RecordingSink{}
	clock := core.NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	exec := action.NewExecutor(action.Options{Sink: sink, Profile: cfg.Profile, Clock: clock})

	r := rand.New(rand.NewSource(1))
	id, err := persona.New(r, cfg.Profile)
	require.NoError(t, err)
	fs := &fakeShop{codes: codes}

	s := New(Config{
		Model:    NewModel(cfg.Transitions),
		Executor: exec,
		MaxTicks: maxTicks,
		Pause:    config.PauseRange{Min: 10 * time.Millisecond, Max: 20 * time.Millisecond},
		Clock:    clock,
	}, &action.Actor{Identity: id, Client: fs, Rand: r})
	return &harness{session: s, sink: sink, shop: fs, clock: clock}
}

func TestSession_ZeroTicksOnlyBrackets(t *testing.T) {
	h := newHarness(t, quietSubs(), nil, 0)

	res := h.session.Run(context.Background())

	assert.Equal(t, ReasonMaxTicks, res.Reason)
	assert.Equal(t, 0, res.Ticks)
	assert.Equal(t, state.AnonNotRegistered, res.FinalState)
	assert.Equal(t, []string{core.KindSimulation, core.KindSimulation}, h.sink.Kinds())

	events := h.sink.Events()
	assert.Equal(t, "started", events[0].Details["status"])
	assert.Equal(t, ReasonMaxTicks, events[1].Details["status"])
	assert.Equal(t, "anon_not_registered", events[1].Details["current_state"])
}

func TestSession_RegisterNeedsCreated(t *testing.T) {
	tables := quietSubs()
	tables.Top = transition.Table[state.Top]{
		state.AnonNotRegistered: {state.AnonRegistered: 1},
	}
	h := newHarness(t, tables, map[string]int{shop.AddUser: 200}, 3)

	res := h.session.Run(context.Background())

	assert.Equal(t, state.AnonNotRegistered, res.FinalState)
	assert.Equal(t, 3, res.Ticks, "failed confirmations still count as ticks")
	assert.Equal(t, 3, h.shop.count(shop.AddUser))

	failed := h.sink.OfKind(core.KindTopTransitionFail)
	require.Len(t, failed, 3)
	assert.Equal(t, "register", failed[0].Details["action"])
	assert.Equal(t, "anon_registered", failed[0].Details["proposed_next"])
	assert.Equal(t, "anon_not_registered", failed[0].Details["current_state"])
	assert.Empty(t, h.sink.OfKind(core.KindTopTransition))
}

func TestSession_FullLifecycle(t *testing.T) {
	tables := quietSubs()
	tables.Top = transition.Table[state.Top]{
		state.AnonNotRegistered: {state.AnonRegistered: 1},
		state.AnonRegistered:    {state.LoggedIn: 1},
		state.LoggedIn:          {state.LoggedOut: 1},
		state.LoggedOut:         {state.Unregistered: 1},
		state.Unregistered:      {state.Done: 1},
	}
	h := newHarness(t, tables, map[string]int{shop.AddUser: 201}, -1)

	res := h.session.Run(context.Background())

	require.NoError(t, res.Err)
	assert.Equal(t, ReasonDone, res.Reason)
	assert.Equal(t, state.Done, res.FinalState)
	assert.Equal(t, 4, res.Ticks, "unregistered must reach done on the same tick")

	commits := h.sink.OfKind(core.KindTopTransition)
	require.Len(t, commits, 4)
	assert.Equal(t, "logged_out", commits[3].Details["from"])
	assert.Equal(t, "unregistered", commits[3].Details["to"])

	assert.Len(t, h.sink.OfKind(core.KindSubFSM), 1)
	assert.Len(t, h.sink.OfKind(core.KindUnregister), 1)
	assert.Equal(t, 1, h.shop.count(shop.Login))
	assert.Equal(t, 1, h.shop.count(shop.Logout))
	assert.Equal(t, 1, h.shop.count(shop.DeleteUser))
	assert.Len(t, h.clock.Sleeps(), 6, "one pause per sub-machine step and per tick")
}

func TestSession_LoggedOutBackToRegisteredIsFree(t *testing.T) {
	tables := quietSubs()
	tables.Top = transition.Table[state.Top]{
		state.LoggedOut:      {state.AnonRegistered: 1},
		state.AnonRegistered: {state.AnonRegistered: 1},
	}
	h := newHarness(t, tables, nil, 1)
	h.session.life.fsm.SetState(string(state.LoggedOut))

	res := h.session.Run(context.Background())

	assert.Equal(t, state.AnonRegistered, res.FinalState)
	assert.Empty(t, h.shop.calls)
}

func TestSession_SelfLoopCommits(t *testing.T) {
	tables := quietSubs()
	tables.Top = transition.Table[state.Top]{
		state.AnonNotRegistered: {state.AnonNotRegistered: 1},
	}
	h := newHarness(t, tables, nil, 2)

	res := h.session.Run(context.Background())

	assert.Equal(t, state.AnonNotRegistered, res.FinalState)
	assert.Len(t, h.sink.OfKind(core.KindTopTransition), 2)
	assert.Empty(t, h.sink.OfKind(core.KindTopTransitionFail))
}

func TestSession_ModelGaps(t *testing.T) {
	tests := []struct {
		name   string
		top    transition.Table[state.Top]
		reason string
		final  state.Top
		ticks  int
	}{
		{
			name:   "state without entry",
			top:    transition.Table[state.Top]{state.AnonNotRegistered: {state.LoggedOut: 1}},
			reason: ReasonInvalidState,
			final:  state.LoggedOut,
			ticks:  1,
		},
		{
			name:   "initial state without entry",
			top:    transition.Table[state.Top]{state.LoggedIn: {state.LoggedOut: 1}},
			reason: ReasonInvalidState,
			final:  state.AnonNotRegistered,
			ticks:  0,
		},
		{
			name:   "empty candidates",
			top:    transition.Table[state.Top]{state.AnonNotRegistered: {}},
			reason: ReasonNoCandidates,
			final:  state.AnonNotRegistered,
			ticks:  0,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tables := quietSubs()
			tables.Top = tc.top
			h := newHarness(t, tables, nil, 10)

			res := h.session.Run(context.Background())

			assert.Equal(t, tc.reason, res.Reason)
			assert.Equal(t, tc.final, res.FinalState)
			assert.Equal(t, tc.ticks, res.Ticks)
			assert.NoError(t, res.Err)

			sims := h.sink.OfKind(core.KindSimulation)
			require.Len(t, sims, 2)
			assert.Equal(t, tc.reason, sims[1].Details["status"])
			assert.Equal(t, string(tc.final), sims[1].Details["current_state"])
		})
	}
}

func TestSession_SubStateWithoutEntryRunsOnce(t *testing.T) {
	tables := config.TransitionsConfig{
		Top:           transition.Table[state.Top]{state.AnonNotRegistered: {state.AnonNotRegistered: 1}},
		Anonymous:     transition.Table[state.AnonSub]{state.AnonInitial: {state.AnonMain: 1}},
		Authenticated: quietSubs().Authenticated,
	}
	h := newHarness(t, tables, nil, 1)

	h.session.Run(context.Background())

	assert.Equal(t, 1, h.shop.count(""), "main page action runs once before the walk stops")
	moves := h.sink.OfKind(core.KindAnonTransition)
	require.Len(t, moves, 2)
	assert.Equal(t, "initial", moves[0].Details["from"])
	assert.Equal(t, "main", moves[0].Details["current_state"])
	assert.Equal(t, "no_transition", moves[1].Details["status"])
	assert.Equal(t, "main", moves[1].Details["current_state"])
}

func TestSession_EmptySubStateEntryEndsWalk(t *testing.T) {
	tables := config.TransitionsConfig{
		Top: transition.Table[state.Top]{state.AnonNotRegistered: {state.AnonNotRegistered: 1}},
		Anonymous: transition.Table[state.AnonSub]{
			state.AnonInitial: {state.AnonMain: 1},
			state.AnonMain:    {},
		},
		Authenticated: quietSubs().Authenticated,
	}
	h := newHarness(t, tables, nil, 2)

	res := h.session.Run(context.Background())

	assert.Equal(t, ReasonMaxTicks, res.Reason)
	assert.NoError(t, res.Err)
	assert.Equal(t, 2, h.shop.count(""))

	var gaps int
	for _, e := range h.sink.OfKind(core.KindAnonTransition) {
		if e.Details["status"] == "no_transition" {
			assert.Equal(t, "main", e.Details["current_state"])
			gaps++
		}
	}
	assert.Equal(t, 2, gaps, "each walk reports where it stopped")
}

func TestSession_AuthenticatedWalk(t *testing.T) {
	tables := config.TransitionsConfig{
		Top:       transition.Table[state.Top]{state.LoggedIn: {state.LoggedIn: 1}},
		Anonymous: quietSubs().Anonymous,
		Authenticated: transition.Table[state.AuthSub]{
			state.AuthInitial:  {state.AuthViewCart: 1},
			state.AuthViewCart: {state.AuthCheckout: 1},
			state.AuthCheckout: {state.AuthDone: 1},
		},
	}
	h := newHarness(t, tables, nil, 1)
	h.session.life.fsm.SetState(string(state.LoggedIn))

	h.session.Run(context.Background())

	assert.Equal(t, 1, h.shop.count(shop.CartView))
	assert.Equal(t, 1, h.shop.count(shop.Checkout))
	assert.Len(t, h.sink.OfKind(core.KindAuthTransition), 3)
	assert.Len(t, h.sink.OfKind(core.KindAuthAction), 2)
}

func TestSession_PausesWithinRange(t *testing.T) {
	tables := quietSubs()
	tables.Top = transition.Table[state.Top]{state.AnonNotRegistered: {state.AnonNotRegistered: 1}}
	tables.Anonymous = transition.Table[state.AnonSub]{
		state.AnonInitial: {state.AnonMain: 1},
		state.AnonMain:    {state.AnonDone: 1},
	}
	h := newHarness(t, tables, nil, 5)

	h.session.Run(context.Background())

	sleeps := h.clock.Sleeps()
	require.NotEmpty(t, sleeps)
	for _, d := range sleeps {
		assert.GreaterOrEqual(t, d, 10*time.Millisecond)
		assert.LessOrEqual(t, d, 20*time.Millisecond)
	}
}

func TestSession_Cancelled(t *testing.T) {
	h := newHarness(t, quietSubs(), nil, -1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := h.session.Run(ctx)

	assert.Equal(t, ReasonCancelled, res.Reason)
	assert.Equal(t, 0, res.Ticks)
	assert.NoError(t, res.Err)
}

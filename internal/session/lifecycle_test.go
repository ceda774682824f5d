package session

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trafficgen/internal/action"
	"trafficgen/internal/config"
	"trafficgen/internal/core"
	"trafficgen/internal/persona"
	"trafficgen/internal/shop"
	"trafficgen/internal/state"
)

func newTestLifecycle(t *testing.T, codes map[string]int) (*Lifecycle, *fakeShop) {
	t.Helper()
	cfg := config.Default("http://shop.local")
	r := rand.New(rand.NewSource(3))
	id, err := persona.New(r, cfg.Profile)
	require.NoError(t, err)
	fs := &fakeShop{codes: codes}
	exec := action.NewExecutor(action.Options{Sink: &core.RecordingSink{}, Profile: cfg.Profile})
	return newLifecycle(NewModel(cfg.Transitions), exec, &action.Actor{Identity: id, Client: fs, Rand: r}), fs
}

func TestLifecycle_ConfirmedEdges(t *testing.T) {
	tests := []struct {
		from, to state.Top
		endpoint string
		action   string
	}{
		{state.AnonNotRegistered, state.AnonRegistered, shop.AddUser, "register"},
		{state.AnonRegistered, state.LoggedIn, shop.Login, "login"},
		{state.LoggedIn, state.LoggedOut, shop.Logout, "logout"},
		{state.LoggedIn, state.Unregistered, shop.DeleteUser, "delete_user"},
		{state.LoggedOut, state.Unregistered, shop.DeleteUser, "delete_user"},
	}

	for _, tc := range tests {
		t.Run(tc.action+" from "+string(tc.from), func(t *testing.T) {
			l, _ := newTestLifecycle(t, map[string]int{tc.endpoint: 500})
			l.fsm.SetState(string(tc.from))

			rej, err := l.Propose(context.Background(), tc.to)
			require.NoError(t, err)
			require.NotNil(t, rej)
			assert.Equal(t, tc.action, rej.Action)
			assert.Equal(t, tc.from, l.Current(), "state moved despite failed confirmation")

			l2, fs := newTestLifecycle(t, map[string]int{tc.endpoint: 201})
			l2.fsm.SetState(string(tc.from))
			rej, err = l2.Propose(context.Background(), tc.to)
			require.NoError(t, err)
			require.Nil(t, rej)
			assert.Equal(t, tc.to, l2.Current())
			assert.Equal(t, 1, fs.count(tc.endpoint))
		})
	}
}

func TestLifecycle_UnconfirmedEdgeMakesNoCall(t *testing.T) {
	l, fs := newTestLifecycle(t, nil)
	l.fsm.SetState(string(state.LoggedIn))

	rej, err := l.Propose(context.Background(), state.LoggedIn)
	require.NoError(t, err)
	assert.Nil(t, rej, "self-loop should commit")
	assert.Empty(t, fs.calls)
}

func TestLifecycle_Finish(t *testing.T) {
	l, _ := newTestLifecycle(t, nil)
	assert.Error(t, l.Finish(context.Background()), "finish must only be allowed from unregistered")

	l.fsm.SetState(string(state.Unregistered))
	require.NoError(t, l.Finish(context.Background()))
	assert.Equal(t, state.Done, l.Current())
}

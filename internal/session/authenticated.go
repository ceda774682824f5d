package session

import (
	"context"

	"trafficgen/internal/action"
	"trafficgen/internal/core"
	"trafficgen/internal/state"
	"trafficgen/internal/transition"
)

func newAuthenticated(table transition.Table[state.AuthSub], e *action.Executor) *SubMachine[state.AuthSub] {
	return &SubMachine[state.AuthSub]{
		name:    "authenticated",
		kind:    core.KindAuthTransition,
		initial: state.AuthInitial,
		done:    state.AuthDone,
		table:   table,
		handlers: map[state.AuthSub]handler{
			state.AuthViewCart:        e.ViewCart,
			state.AuthCheckoutHistory: e.ViewCheckoutHistory,
			state.AuthCartAdd:         e.AddToCart,
			state.AuthCartRemove:      e.RemoveFromCart,
			state.AuthCheckout:        e.Checkout,
			state.AuthAddReview:       e.AddReview,
			state.AuthError: func(ctx context.Context, a *action.Actor) core.Outcome {
				return e.TriggerError(ctx, a, action.Authenticated)
			},
		},
	}
}

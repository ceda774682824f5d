package session

import (
	"context"

	"trafficgen/internal/action"
	"trafficgen/internal/core"
	"trafficgen/internal/state"
	"trafficgen/internal/transition"
)

func newAnonymous(table transition.Table[state.AnonSub], e *action.Executor) *SubMachine[state.AnonSub] {
	return &SubMachine[state.AnonSub]{
		name:    "anonymous",
		kind:    core.KindAnonTransition,
		initial: state.AnonInitial,
		done:    state.AnonDone,
		table:   table,
		handlers: map[state.AnonSub]handler{
			state.AnonMain:         e.MainPage,
			state.AnonProducts:     e.ViewProducts,
			state.AnonViewProduct:  e.ViewProduct,
			state.AnonCategories:   e.ViewCategories,
			state.AnonCategoryList: e.ViewCategory,
			state.AnonSearch:       e.Search,
			state.AnonError: func(ctx context.Context, a *action.Actor) core.Outcome {
				return e.TriggerError(ctx, a, action.Anonymous)
			},
		},
	}
}

package session

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"trafficgen/internal/transition"
)

type subState interface{ ~string }

// SubMachine walks one activity table from its initial state until it
// reaches done or runs out of transitions. It keeps no state between runs.
type SubMachine[S subState] struct {
	name     string
	kind     string
	initial  S
	done     S
	table    transition.Table[S]
	handlers map[S]handler
}

// Run executes one walk on behalf of s.
func (m *SubMachine[S]) Run(ctx context.Context, s *Session) error {
	current := m.initial
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if h, ok := m.handlers[current]; ok {
			h(ctx, s.actor)
		}
		if current == m.done {
			return nil
		}

		next, err := m.table.Next(s.actor.Rand, current)
		if errors.Is(err, transition.ErrNoTransition) || errors.Is(err, transition.ErrNoCandidates) {
			s.log.Warn("no transition, leaving sub-machine",
				zap.String("machine", m.name), zap.String("sub_state", string(current)))
			s.exec.Emit(s.actor, m.kind, map[string]any{
				"status":        "no_transition",
				"current_state": string(current),
			})
			return nil
		}
		if err != nil {
			return err
		}

		s.exec.Emit(s.actor, m.kind, map[string]any{
			"from":          string(current),
			"current_state": string(next),
		})
		if err := s.pause(ctx); err != nil {
			return err
		}
		current = next
	}
}

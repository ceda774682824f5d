package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"trafficgen/internal/action"
	"trafficgen/internal/config"
	"trafficgen/internal/core"
	"trafficgen/internal/state"
)

// Reasons a session stops.
const (
	ReasonMaxTicks     = "max_transitions_reached"
	ReasonDone         = "done"
	ReasonInvalidState = "invalid_state"
	ReasonNoCandidates = "no_next_candidates"
	ReasonCancelled    = "cancelled"
	ReasonError        = "error"
)

// errStopped ends the run when the model has nothing to say about the
// current state; the specific reason is kept on the session. The halted
// tick does not count toward the budget.
var errStopped = fmt.Errorf("session stopped: %w", core.ErrHalted)

// Config holds what every session shares.
type Config struct {
	Model    *Model
	Executor *action.Executor
	MaxTicks int // 0 = no ticks, negative = unlimited
	Pause    config.PauseRange
	Clock    core.Clock
	Logger   *zap.Logger
}

// Result summarizes a finished session.
type Result struct {
	UserID     string
	FinalState state.Top
	Ticks      int
	Reason     string
	Err        error
}

// Session is one simulated user. It implements core.Machine and must be
// driven by a single goroutine.
type Session struct {
	model  *Model
	exec   *action.Executor
	actor  *action.Actor
	life   *Lifecycle
	anon   *SubMachine[state.AnonSub]
	auth   *SubMachine[state.AuthSub]
	runner *core.Runner
	pauses config.PauseRange
	clock  core.Clock
	log    *zap.Logger

	stopReason string
}

// New creates a session for actor, starting in anon_not_registered.
func New(cfg Config, actor *action.Actor) *Session {
	if cfg.Clock == nil {
		cfg.Clock = core.RealClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	s := &Session{
		model:  cfg.Model,
		exec:   cfg.Executor,
		actor:  actor,
		life:   newLifecycle(cfg.Model, cfg.Executor, actor),
		anon:   newAnonymous(cfg.Model.Anon, cfg.Executor),
		auth:   newAuthenticated(cfg.Model.Auth, cfg.Executor),
		pauses: cfg.Pause,
		clock:  cfg.Clock,
		log:    cfg.Logger.With(zap.String("user_id", actor.Identity.ID)),
	}
	s.runner = core.NewRunner(s, core.RunnerConfig{MaxTicks: cfg.MaxTicks})
	return s
}

// ID returns the simulated user's id.
func (s *Session) ID() string { return s.actor.Identity.ID }

// State returns the current top-level state.
func (s *Session) State() state.Top { return s.life.Current() }

// Terminal reports whether the user reached done.
func (s *Session) Terminal() bool { return s.life.Current() == state.Done }

// Tick performs one top-level step: pick, confirm, dispatch, pause.
func (s *Session) Tick(ctx context.Context) error {
	from := s.life.Current()
	weights, ok := s.model.Top[from]
	switch {
	case !ok:
		s.stopReason = ReasonInvalidState
		return errStopped
	case len(weights) == 0:
		s.stopReason = ReasonNoCandidates
		return errStopped
	}

	proposed, err := s.model.Top.Next(s.actor.Rand, from)
	if err != nil {
		s.stopReason = ReasonNoCandidates
		return errStopped
	}

	rejected, err := s.life.Propose(ctx, proposed)
	if err != nil {
		return err
	}
	if rejected != nil {
		s.exec.Emit(s.actor, core.KindTopTransitionFail, map[string]any{
			"current_state": string(from),
			"proposed_next": string(proposed),
			"action":        rejected.Action,
		})
		s.log.Debug("transition rejected",
			zap.String("from", string(from)),
			zap.String("to", string(proposed)),
			zap.String("action", rejected.Action),
			zap.String("status", string(rejected.Outcome.Status)))
	} else {
		s.exec.Emit(s.actor, core.KindTopTransition, map[string]any{
			"from": string(from),
			"to":   string(proposed),
		})
	}

	if err := s.dispatch(ctx); err != nil {
		return err
	}
	return s.pause(ctx)
}

func (s *Session) dispatch(ctx context.Context) error {
	switch current := s.life.Current(); current {
	case state.AnonNotRegistered, state.AnonRegistered:
		return s.anon.Run(ctx, s)
	case state.LoggedIn:
		return s.auth.Run(ctx, s)
	case state.LoggedOut:
		s.exec.Emit(s.actor, core.KindSubFSM, map[string]any{"state": string(current)})
	case state.Unregistered:
		s.exec.Emit(s.actor, core.KindUnregister, map[string]any{"status": "done"})
		return s.life.Finish(ctx)
	}
	return nil
}

func (s *Session) pause(ctx context.Context) error {
	d := s.pauses.Min
	if span := s.pauses.Max - s.pauses.Min; span > 0 {
		d += time.Duration(s.actor.Rand.Int63n(int64(span) + 1))
	}
	return s.clock.Sleep(ctx, d)
}

// Run drives the session until it stops and reports why. The start and end
// events bracket everything else the session emits.
func (s *Session) Run(ctx context.Context) Result {
	id := s.actor.Identity
	s.exec.Emit(s.actor, core.KindSimulation, map[string]any{
		"status":  "started",
		"gender":  id.Gender,
		"age":     id.Age,
		"segment": string(id.Segment),
	})
	s.log.Info("session started",
		zap.String("gender", id.Gender), zap.Int("age", id.Age), zap.String("segment", string(id.Segment)))

	err := s.runner.Run(ctx)
	res := Result{
		UserID:     id.ID,
		FinalState: s.life.Current(),
		Ticks:      s.runner.Ticks(),
	}
	switch {
	case errors.Is(err, core.ErrMaxTicksReached):
		res.Reason = ReasonMaxTicks
	case errors.Is(err, core.ErrTerminal):
		res.Reason = ReasonDone
	case errors.Is(err, errStopped):
		res.Reason = s.stopReason
	case ctx.Err() != nil:
		res.Reason = ReasonCancelled
	default:
		res.Reason = ReasonError
		res.Err = err
	}

	s.exec.Emit(s.actor, core.KindSimulation, map[string]any{
		"status":        res.Reason,
		"current_state": string(res.FinalState),
		"ticks":         res.Ticks,
	})
	if res.Err != nil {
		s.log.Error("session failed", zap.Error(res.Err), zap.String("final_state", string(res.FinalState)))
	} else {
		s.log.Info("session finished",
			zap.String("final_state", string(res.FinalState)),
			zap.String("reason", res.Reason),
			zap.Int("ticks", res.Ticks))
	}
	return res
}

package core

import (
	"context"
	"errors"
)

var (
	// ErrMaxTicksReached indicates the runner hit its tick limit.
	ErrMaxTicksReached = errors.New("max ticks reached")
	// ErrTerminal indicates the machine is already in its terminal state.
	ErrTerminal = errors.New("terminal state reached")
	// ErrHalted is returned (or wrapped) by a Machine whose Tick stopped
	// before doing any work. Such a tick is not counted.
	ErrHalted = errors.New("machine halted")
)

// NullSink discards all events.
var NullSink EventSink = nullSink{}

type nullSink struct{}

func (nullSink) Emit(Event) {}

// RunnerConfig controls execution behavior.
type RunnerConfig struct {
	MaxTicks int // 0 = no ticks at all, negative = unlimited
}

// Runner drives a Machine tick by tick and enforces the tick budget.
// A Runner is NOT safe for concurrent use; each session owns its own Runner.
type Runner struct {
	machine Machine
	config  RunnerConfig
	ticks   int
}

// NewRunner creates a Runner for a single machine.
func NewRunner(machine Machine, config RunnerConfig) *Runner {
	return &Runner{machine: machine, config: config}
}

// RunTick executes one tick.
// Returns ErrMaxTicksReached when the budget is spent, ErrTerminal when the
// machine is done, or whatever the machine's Tick returned. A tick that
// returns an error still counts toward the budget unless the error wraps
// ErrHalted.
func (r *Runner) RunTick(ctx context.Context) error {
	if r.config.MaxTicks >= 0 && r.ticks >= r.config.MaxTicks {
		return ErrMaxTicksReached
	}
	if r.machine.Terminal() {
		return ErrTerminal
	}

	err := r.machine.Tick(ctx)
	if errors.Is(err, ErrHalted) {
		return err
	}
	r.ticks++
	return err
}

// Run ticks until the machine stops and returns the reason it stopped.
// ErrMaxTicksReached and ErrTerminal are normal endings; context errors are
// returned as-is.
func (r *Runner) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.RunTick(ctx); err != nil {
			return err
		}
	}
}

// Ticks returns the number of ticks executed so far.
func (r *Runner) Ticks() int {
	return r.ticks
}

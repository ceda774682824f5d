// Package transition implements weighted random selection of the next state
// from a static transition table.
package transition

import (
	"cmp"
	"errors"
	"fmt"
	"maps"
	"math"
	"math/rand"
	"slices"
	"sort"
)

var (
	// ErrNoCandidates is returned when a weight set is empty.
	ErrNoCandidates = errors.New("transition: no candidates")
	// ErrNoTransition is returned when a state has no outgoing entry in the table.
	ErrNoTransition = errors.New("transition: no transition defined")
)

// Weights maps candidate next states to non-negative relative weights.
type Weights[S cmp.Ordered] map[S]float64

// Table maps each state to the weighted set of states it may move to.
// A Table is read-only once built and safe to share between sessions.
type Table[S cmp.Ordered] map[S]Weights[S]

// Pick draws one candidate with probability proportional to its weight.
// Candidates are walked in sorted order so a seeded source gives a
// reproducible sequence. When every weight is zero the choice is uniform.
func Pick[S cmp.Ordered](r *rand.Rand, w Weights[S]) (S, error) {
	var zero S
	if len(w) == 0 {
		return zero, ErrNoCandidates
	}

	keys := slices.Sorted(maps.Keys(w))
	cumulative := make([]float64, len(keys))
	var total float64
	for i, k := range keys {
		total += clamp(w[k])
		cumulative[i] = total
	}

	if total == 0 {
		return keys[r.Intn(len(keys))], nil
	}

	target := r.Float64() * total
	idx := sort.Search(len(cumulative), func(i int) bool { return cumulative[i] > target })
	if idx == len(keys) {
		idx = len(keys) - 1
	}
	return keys[idx], nil
}

// Next picks the successor of from.
// Returns ErrNoTransition when from is absent or has an empty weight set.
func (t Table[S]) Next(r *rand.Rand, from S) (S, error) {
	w, ok := t[from]
	if !ok || len(w) == 0 {
		var zero S
		return zero, fmt.Errorf("%w: %v", ErrNoTransition, from)
	}
	return Pick(r, w)
}

// Has reports whether from has at least one outgoing candidate.
func (t Table[S]) Has(from S) bool {
	return len(t[from]) > 0
}

// Edges lists every (from, to) pair in the table in sorted order.
func (t Table[S]) Edges() [][2]S {
	var edges [][2]S
	for _, from := range slices.Sorted(maps.Keys(t)) {
		for _, to := range slices.Sorted(maps.Keys(t[from])) {
			edges = append(edges, [2]S{from, to})
		}
	}
	return edges
}

// Validate checks that every state named in the table is accepted by valid
// and that every weight is a finite non-negative number.
// All problems are reported together.
func (t Table[S]) Validate(valid func(S) bool) error {
	var errs []error
	for _, from := range slices.Sorted(maps.Keys(t)) {
		if !valid(from) {
			errs = append(errs, fmt.Errorf("unknown state %v", from))
		}
		for _, to := range slices.Sorted(maps.Keys(t[from])) {
			if !valid(to) {
				errs = append(errs, fmt.Errorf("%v: unknown target state %v", from, to))
			}
			wt := t[from][to]
			if wt < 0 || math.IsNaN(wt) || math.IsInf(wt, 0) {
				errs = append(errs, fmt.Errorf("%v -> %v: invalid weight %v", from, to, wt))
			}
		}
	}
	return errors.Join(errs...)
}

func clamp(w float64) float64 {
	if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
		return 0
	}
	return w
}

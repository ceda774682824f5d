// Package action performs the individual API calls a simulated user makes,
// classifies each response and emits exactly one event per call.
package action

import (
	"context"
	"math/rand"
	"net/url"
	"time"

	"go.uber.org/zap"

	"trafficgen/internal/catalog"
	"trafficgen/internal/config"
	"trafficgen/internal/core"
	"trafficgen/internal/persona"
	"trafficgen/internal/shop"
)

// Client is the subset of shop.Client used by actions.
type Client interface {
	Root(ctx context.Context) (*shop.Response, error)
	Get(ctx context.Context, endpoint string, query url.Values) (*shop.Response, error)
	PostForm(ctx context.Context, endpoint string, form url.Values) (*shop.Response, error)
}

// Actor is the per-session state an action runs on behalf of.
// It is owned by a single goroutine.
type Actor struct {
	Identity persona.Identity
	Client   Client
	Rand     *rand.Rand
}

// Scope selects which event kind a shared action (the error page) reports under.
type Scope int

const (
	Anonymous Scope = iota
	Authenticated
)

func (s Scope) kind() string {
	if s == Authenticated {
		return core.KindAuthAction
	}
	return core.KindAnonAction
}

// Options configures an Executor.
type Options struct {
	Catalog *catalog.Catalog
	Sink    core.EventSink
	Profile config.ProfileConfig
	Clock   core.Clock
	Logger  *zap.Logger
}

// Executor is shared by all sessions; it holds no per-user state.
type Executor struct {
	catalog   *catalog.Catalog
	sink      core.EventSink
	prefs     map[string]map[string][]string
	keywords  []string
	defaultID string
	maxQty    int
	maxRating int
	clock     core.Clock
	log       *zap.Logger
}

// NewExecutor fills unset options with defaults: an empty catalog, the null
// sink, the real clock and a no-op logger.
func NewExecutor(opts Options) *Executor {
	if opts.Catalog == nil {
		opts.Catalog = catalog.New(nil, nil)
	}
	if opts.Sink == nil {
		opts.Sink = core.NullSink
	}
	if opts.Clock == nil {
		opts.Clock = core.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	maxQty := opts.Profile.MaxAddQuantity
	if maxQty < 1 {
		maxQty = 1
	}
	maxRating := opts.Profile.MaxRating
	if maxRating < 1 {
		maxRating = 1
	}
	return &Executor{
		catalog:   opts.Catalog,
		sink:      opts.Sink,
		prefs:     opts.Profile.Preferences,
		keywords:  opts.Profile.SearchKeywords,
		defaultID: opts.Profile.DefaultProductID,
		maxQty:    maxQty,
		maxRating: maxRating,
		clock:     opts.Clock,
		log:       opts.Logger,
	}
}

// Emit sends an event stamped with the actor's id and the current time.
func (e *Executor) Emit(a *Actor, kind string, details map[string]any) {
	e.sink.Emit(core.Event{
		ActorID:   a.Identity.ID,
		Kind:      kind,
		Details:   details,
		Timestamp: e.clock.Now(),
	})
}

// classifier turns a response into a status.
type classifier func(*shop.Response) core.Status

func exactly(code int) classifier {
	return func(r *shop.Response) core.Status {
		if r.StatusCode == code {
			return core.StatusSuccess
		}
		return core.StatusFailed
	}
}

func any2xx(r *shop.Response) core.Status {
	if r.Is2xx() {
		return core.StatusSuccess
	}
	return core.StatusFailed
}

func recorded(*shop.Response) core.Status {
	return core.StatusRecorded
}

// send performs one call and converts transport faults into an exception outcome.
func (e *Executor) send(ctx context.Context, a *Actor, classify classifier, call func(context.Context) (*shop.Response, error)) (*shop.Response, core.Outcome) {
	ctx = core.ContextWithActorID(ctx, a.Identity.ID)
	start := e.clock.Now()
	resp, err := call(ctx)
	if err != nil {
		return nil, core.Outcome{Status: core.StatusException, Err: err, Duration: e.clock.Since(start)}
	}
	return resp, core.Outcome{Status: classify(resp), StatusCode: resp.StatusCode, Duration: resp.Duration}
}

// report adds outcome fields to details, logs and emits the event.
func (e *Executor) report(a *Actor, kind string, o core.Outcome, details map[string]any) {
	if details == nil {
		details = make(map[string]any, 4)
	}
	details["status"] = string(o.Status)
	if o.StatusCode != 0 {
		details["status_code"] = o.StatusCode
	}
	if o.Err != nil {
		details["error"] = o.Err.Error()
	}
	if o.Status != core.StatusSkipped {
		details["elapsed_ms"] = float64(o.Duration) / float64(time.Millisecond)
	}

	fields := []zap.Field{
		zap.String("user_id", a.Identity.ID),
		zap.String("kind", kind),
		zap.String("status", string(o.Status)),
	}
	if name, ok := details["action"].(string); ok {
		fields = append(fields, zap.String("action", name))
	}
	switch o.Status {
	case core.StatusException:
		e.log.Warn("action failed", append(fields, zap.Error(o.Err))...)
	case core.StatusFailed:
		e.log.Info("action rejected", append(fields, zap.Int("status_code", o.StatusCode))...)
	default:
		e.log.Debug("action done", append(fields, zap.Int("status_code", o.StatusCode))...)
	}

	e.Emit(a, kind, details)
}

// preferredProduct applies the gender and age-segment category preferences.
func (e *Executor) preferredProduct(a *Actor) string {
	cats := e.prefs[a.Identity.Gender][string(a.Identity.Segment)]
	return e.catalog.PickPreferred(a.Rand, cats, e.defaultID)
}

// between returns a uniform integer in [lo, hi].
func between(r *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + r.Intn(hi-lo+1)
}

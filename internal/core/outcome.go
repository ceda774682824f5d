package core

import (
	"context"
	"time"
)

// Status classifies the result of a single action.
type Status string

const (
	StatusSuccess   Status = "success"
	StatusFailed    Status = "failed"
	StatusRecorded  Status = "recorded" // read-only call, status code kept, no judgement
	StatusException Status = "exception"
	StatusSkipped   Status = "skipped"
)

// Outcome is the explicit result of an action.
// Transport faults never escape as Go errors; they surface here as
// StatusException with Err set.
type Outcome struct {
	Status     Status
	StatusCode int
	Err        error
	Duration   time.Duration
}

// OK reports whether the action counts as a confirmed success.
func (o Outcome) OK() bool {
	return o.Status == StatusSuccess
}

// Context key for passing the actor ID down to transport code.
type contextKey string

const actorIDContextKey contextKey = "actorID"

func ContextWithActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, actorIDContextKey, actorID)
}

func ActorIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(actorIDContextKey).(string); ok {
		return id
	}
	return ""
}

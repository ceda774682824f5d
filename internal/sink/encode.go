package sink

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"trafficgen/internal/core"
	"trafficgen/internal/pubsub"
)

type record struct {
	UserID    string         `json:"user_id"`
	EventType string         `json:"event_type"`
	Details   map[string]any `json:"details"`
	Timestamp string         `json:"timestamp"`
}

// Encode renders an event as a bus message: JSON data plus user_id and
// event_type attributes for server-side filtering.
func Encode(e core.Event) (pubsub.Message, error) {
	details := e.Details
	if details == nil {
		details = map[string]any{}
	}
	data, err := json.Marshal(record{
		UserID:    e.ActorID,
		EventType: e.Kind,
		Details:   details,
		Timestamp: e.Timestamp.Format(time.RFC3339Nano),
	})
	if err != nil {
		return pubsub.Message{}, fmt.Errorf("encoding %s event: %w", e.Kind, err)
	}
	return pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"user_id":    e.ActorID,
			"event_type": e.Kind,
		},
	}, nil
}

func encodeAll(events []core.Event) ([]pubsub.Message, error) {
	msgs := make([]pubsub.Message, 0, len(events))
	for _, e := range events {
		m, err := Encode(e)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

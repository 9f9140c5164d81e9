package events

import (
	"context"

	"campusev/backend/services/charging-service/internal/models"
)

// Sink receives committed session events.
type Sink interface {
	Publish(ctx context.Context, event models.SessionEvent)
}

// Fanout delivers each event to every sink in order.
type Fanout []Sink

// Publish implements Sink.
func (f Fanout) Publish(ctx context.Context, event models.SessionEvent) {
	for _, sink := range f {
		if sink != nil {
			sink.Publish(ctx, event)
		}
	}
}

package dispatcher

import (
	"context"
	"fmt"
	"reservo/pkg/kafka"
	"reservo/pkg/model"
)

const (
	EventSource        = "reservo-bookings"
	EventSchemaVersion = "1"
)

// EventTypeHeader is the event-type header value for a lifecycle event.
func EventTypeHeader(t model.BookingEventType) string {
	return "booking." + string(t)
}

type publisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

// KafkaSink publishes events keyed by booking id, so every event of one
// booking lands on the same partition in order.
type KafkaSink struct {
	producer publisher
}

func NewKafkaSink(producer *kafka.Producer) *KafkaSink {
	return &KafkaSink{producer: producer}
}

func (s *KafkaSink) Deliver(ctx context.Context, event model.BookingEvent) error {
	msg, err := kafka.NewMessage().
		WithKey(event.BookingID).
		WithValue(event).
		WithEventID(event.ID).
		WithEventType(EventTypeHeader(event.Type)).
		WithSchemaVersion(EventSchemaVersion).
		WithSource(EventSource).
		WithTimestamp(event.OccurredAt).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build event message: %w", err)
	}
	return s.producer.Publish(ctx, msg)
}

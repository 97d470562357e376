package kafkamiddleware

import (
	"context"
	"errors"
	"reservo/pkg/kafka"
	"testing"
)

func TestMetrics_CountsOutcomes(t *testing.T) {
	var m Metrics
	produce := m.Producer()
	consume := m.Consumer()

	ok := func(ctx context.Context, msg kafka.Message) error { return nil }
	fail := func(ctx context.Context, msg kafka.Message) error { return errors.New("boom") }

	_ = produce(context.Background(), kafka.Message{}, ok)
	_ = produce(context.Background(), kafka.Message{}, ok)
	_ = produce(context.Background(), kafka.Message{}, fail)
	_ = consume(context.Background(), kafka.Message{}, fail)

	s := m.Snapshot()
	if s.Published != 2 || s.PublishFailed != 1 || s.Consumed != 0 || s.ConsumeFailed != 1 {
		t.Errorf("unexpected snapshot: %+v", s)
	}
}

package dispatcher

import (
	"context"
	"errors"
	"reservo/pkg/kafka"
	"reservo/pkg/logger"
	"reservo/pkg/model"
	"sync"
	"testing"
	"time"
)

type recordingSink struct {
	mu     sync.Mutex
	events []model.BookingEvent
	gate   chan struct{}
	err    error
}

func (s *recordingSink) Deliver(ctx context.Context, event model.BookingEvent) error {
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func event(id string) model.BookingEvent {
	return model.BookingEvent{ID: id, BookingID: "b-" + id, Type: model.BookingEventCreated, RecipientUserID: "u1"}
}

func TestDispatcher_DeliversAndDrains(t *testing.T) {
	sink := &recordingSink{}
	d := New(sink, Options{Workers: 3, QueueSize: 16}, logger.Discard())
	d.Start()

	for i := 0; i < 10; i++ {
		d.Publish(event(string(rune('a' + i))))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.Close(ctx); err != nil {
		t.Fatal(err)
	}

	if sink.count() != 10 {
		t.Errorf("delivered %d events, want 10", sink.count())
	}
	if s := d.Stats(); s.Delivered != 10 || s.Dropped != 0 {
		t.Errorf("unexpected stats: %+v", s)
	}
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	sink := &recordingSink{gate: make(chan struct{})}
	d := New(sink, Options{Workers: 1, QueueSize: 1}, logger.Discard())
	d.Start()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 20; i++ {
			d.Publish(event(string(rune('a' + i))))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a stalled sink")
	}

	close(sink.gate)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.Close(ctx); err != nil {
		t.Fatal(err)
	}

	s := d.Stats()
	if s.Dropped < 18 {
		t.Errorf("expected at least 18 drops with one worker and one slot, got %d", s.Dropped)
	}
	if s.Delivered+s.Dropped != 20 {
		t.Errorf("events unaccounted for: %+v", s)
	}
}

func TestDispatcher_SinkFailureIsContained(t *testing.T) {
	sink := &recordingSink{err: errors.New("broker down")}
	d := New(sink, Options{Workers: 1, QueueSize: 4}, logger.Discard())
	d.Start()

	d.Publish(event("a"))
	if err := d.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	if s := d.Stats(); s.Failed != 1 || s.Delivered != 0 {
		t.Errorf("unexpected stats: %+v", s)
	}
}

func TestDispatcher_PublishAfterClose(t *testing.T) {
	sink := &recordingSink{}
	d := New(sink, Options{}, logger.Discard())
	d.Start()
	if err := d.Close(context.Background()); err != nil {
		t.Fatal(err)
	}

	d.Publish(event("late"))
	if sink.count() != 0 || d.Stats().Dropped != 1 {
		t.Errorf("late event must be dropped: %+v", d.Stats())
	}
}

type fakePublisher struct {
	msgs []kafka.Message
}

func (p *fakePublisher) Publish(ctx context.Context, msg kafka.Message) error {
	p.msgs = append(p.msgs, msg)
	return nil
}

func TestKafkaSink_KeysByBooking(t *testing.T) {
	pub := &fakePublisher{}
	sink := &KafkaSink{producer: pub}

	ev := event("e1")
	ev.Type = model.BookingEventApproved
	ev.OccurredAt = time.Date(2030, 3, 4, 8, 0, 0, 0, time.UTC)
	if err := sink.Deliver(context.Background(), ev); err != nil {
		t.Fatal(err)
	}

	if len(pub.msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(pub.msgs))
	}
	msg := pub.msgs[0]
	if msg.Key != "b-e1" || msg.GetEventID() != "e1" || msg.GetEventType() != "booking.approved" {
		t.Errorf("unexpected message: key=%s headers=%v", msg.Key, msg.Headers)
	}

	var decoded model.BookingEvent
	if err := msg.DecodeValue(&decoded); err != nil || decoded.RecipientUserID != "u1" {
		t.Errorf("decode: %v %+v", err, decoded)
	}
}

package dispatcher

import (
	"context"
	"errors"
	"reservo/pkg/logger"
	"reservo/pkg/model"
	"sync"
	"sync/atomic"
	"time"
)

var ErrClosed = errors.New("dispatcher is closed")

// Sink delivers one lifecycle event. Implementations may block; the
// dispatcher bounds each call with its delivery timeout.
type Sink interface {
	Deliver(ctx context.Context, event model.BookingEvent) error
}

type SinkFunc func(ctx context.Context, event model.BookingEvent) error

func (f SinkFunc) Deliver(ctx context.Context, event model.BookingEvent) error {
	return f(ctx, event)
}

type Options struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

// Dispatcher hands booking events to a Sink from a fixed pool of workers.
// Publish never blocks: when the queue is full the event is dropped and
// logged.
type Dispatcher struct {
	sink    Sink
	queue   chan model.BookingEvent
	timeout time.Duration
	workers int
	log     *logger.Logger

	mu      sync.RWMutex
	closed  bool
	started bool
	wg      sync.WaitGroup

	delivered atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

type Stats struct {
	Queued    int   `json:"queued"`
	Delivered int64 `json:"delivered"`
	Failed    int64 `json:"failed"`
	Dropped   int64 `json:"dropped"`
}

func New(sink Sink, opts Options, log *logger.Logger) *Dispatcher {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.QueueSize < 1 {
		opts.QueueSize = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	return &Dispatcher{
		sink:    sink,
		queue:   make(chan model.BookingEvent, opts.QueueSize),
		timeout: opts.Timeout,
		workers: opts.Workers,
		log:     log.WithComponent("notification-dispatcher"),
	}
}

// Start launches the workers. Calling it more than once has no effect.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
	d.log.Info("Notification dispatcher started", "workers", d.workers, "queue_size", cap(d.queue))
}

func (d *Dispatcher) Publish(event model.BookingEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(event, ErrClosed)
		return
	}

	select {
	case d.queue <- event:
	default:
		d.drop(event, errors.New("queue full"))
	}
}

func (d *Dispatcher) drop(event model.BookingEvent, reason error) {
	d.dropped.Add(1)
	d.log.Warn("Dropping booking event",
		"event_id", event.ID,
		"booking_id", event.BookingID,
		"type", event.Type,
		"reason", reason,
	)
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for event := range d.queue {
		d.deliver(event)
	}
}

func (d *Dispatcher) deliver(event model.BookingEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			d.failed.Add(1)
			d.log.Error("Notification sink panicked", "event_id", event.ID, "panic", r)
		}
	}()

	if err := d.sink.Deliver(ctx, event); err != nil {
		d.failed.Add(1)
		d.log.Error("Failed to deliver booking event",
			"event_id", event.ID,
			"booking_id", event.BookingID,
			"type", event.Type,
			"recipient", event.RecipientUserID,
			"error", err,
		)
		return
	}
	d.delivered.Add(1)
}

// Close stops accepting events and waits for queued ones to be delivered
// or for ctx to expire.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	started := d.started
	d.mu.Unlock()

	if !started {
		return nil
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.log.Info("Notification dispatcher drained", "delivered", d.delivered.Load(), "dropped", d.dropped.Load())
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) Stats() Stats {
	return Stats{
		Queued:    len(d.queue),
		Delivered: d.delivered.Load(),
		Failed:    d.failed.Load(),
		Dropped:   d.dropped.Load(),
	}
}

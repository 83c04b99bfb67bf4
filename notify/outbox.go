package notify

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/kendall-kelly/quickfix-api/dispatch"
)

// DefaultDeliveryTimeout bounds a single event delivery
const DefaultDeliveryTimeout = 30 * time.Second

// Outbox is an in-process queue of committed events drained by one worker.
// Emit never blocks: when the queue is full the event is dropped and logged.
type Outbox struct {
	notifier Notifier
	events   chan dispatch.Event
	timeout  time.Duration

	mu      sync.RWMutex
	closed  bool
	started bool
	wg      sync.WaitGroup
}

var _ dispatch.Emitter = (*Outbox)(nil)

// NewOutbox creates an outbox holding at most size pending events
func NewOutbox(n Notifier, size int) *Outbox {
	if size < 1 {
		size = 1
	}
	return &Outbox{
		notifier: n,
		events:   make(chan dispatch.Event, size),
		timeout:  DefaultDeliveryTimeout,
	}
}

// WithDeliveryTimeout overrides the per-event delivery deadline
func (o *Outbox) WithDeliveryTimeout(d time.Duration) *Outbox {
	o.timeout = d
	return o
}

// Start launches the worker. Calling it more than once has no effect.
func (o *Outbox) Start() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.started || o.closed {
		return
	}
	o.started = true
	o.wg.Add(1)
	go o.run()
}

// Emit queues evt for delivery
func (o *Outbox) Emit(_ context.Context, evt dispatch.Event) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed {
		log.Printf("[notify] outbox closed, dropping %s for booking #%d", evt.Type, evt.Booking.ID)
		return
	}
	select {
	case o.events <- evt:
	default:
		log.Printf("[notify] outbox full, dropping %s for booking #%d", evt.Type, evt.Booking.ID)
	}
}

// Close stops accepting events and waits for the queued ones to be delivered
// or for ctx to expire, whichever comes first.
func (o *Outbox) Close(ctx context.Context) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	close(o.events)
	started := o.started
	o.mu.Unlock()

	if !started {
		// nothing will drain the queue; deliver inline
		o.wg.Add(1)
		go o.run()
	}

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		log.Printf("[notify] outbox shutdown deadline reached with %d events pending", len(o.events))
		return ctx.Err()
	}
}

func (o *Outbox) run() {
	defer o.wg.Done()
	for evt := range o.events {
		o.deliver(evt)
	}
}

func (o *Outbox) deliver(evt dispatch.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()

	if err := Deliver(ctx, o.notifier, evt); err != nil {
		log.Printf("[notify] delivering %s for booking #%d failed: %v", evt.Type, evt.Booking.ID, err)
	}
}

// Package notify delivers booking lifecycle events to people and to other
// systems. Delivery is asynchronous and best effort.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/kendall-kelly/quickfix-api/dispatch"
)

// Notifier reacts to booking lifecycle events
type Notifier interface {
	NotifyBookingCreated(ctx context.Context, evt dispatch.Event) error
	NotifyStatusChanged(ctx context.Context, evt dispatch.Event) error
	NotifyTechnicianAssigned(ctx context.Context, evt dispatch.Event) error
}

// Deliver routes evt to the matching Notifier method
func Deliver(ctx context.Context, n Notifier, evt dispatch.Event) error {
	switch evt.Type {
	case dispatch.EventBookingCreated:
		return n.NotifyBookingCreated(ctx, evt)
	case dispatch.EventStatusChanged:
		return n.NotifyStatusChanged(ctx, evt)
	case dispatch.EventTechnicianAssigned:
		return n.NotifyTechnicianAssigned(ctx, evt)
	}
	return fmt.Errorf("unknown event type %q", evt.Type)
}

// Multi fans every event out to all of its notifiers. One failing notifier
// does not stop the others; their errors are joined.
type Multi []Notifier

func (m Multi) NotifyBookingCreated(ctx context.Context, evt dispatch.Event) error {
	return m.each(ctx, evt)
}

func (m Multi) NotifyStatusChanged(ctx context.Context, evt dispatch.Event) error {
	return m.each(ctx, evt)
}

func (m Multi) NotifyTechnicianAssigned(ctx context.Context, evt dispatch.Event) error {
	return m.each(ctx, evt)
}

func (m Multi) each(ctx context.Context, evt dispatch.Event) error {
	var errs []error
	for _, n := range m {
		if err := Deliver(ctx, n, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogNotifier writes a one-line summary of every event
type LogNotifier struct{}

func (LogNotifier) NotifyBookingCreated(_ context.Context, evt dispatch.Event) error {
	log.Printf("[notify] booking #%d created by %s for %s on %s %s",
		evt.Booking.ID, evt.Customer.Email, serviceName(evt),
		evt.Booking.PreferredDate.Format("2006-01-02"), evt.Booking.PreferredTime)
	return nil
}

func (LogNotifier) NotifyStatusChanged(_ context.Context, evt dispatch.Event) error {
	log.Printf("[notify] booking #%d is now %s (customer %s)",
		evt.Booking.ID, evt.Booking.Status, evt.Customer.Email)
	return nil
}

func (LogNotifier) NotifyTechnicianAssigned(_ context.Context, evt dispatch.Event) error {
	technician := "unknown technician"
	if evt.Technician != nil {
		technician = evt.Technician.Email
	}
	log.Printf("[notify] booking #%d assigned to %s", evt.Booking.ID, technician)
	return nil
}

func serviceName(evt dispatch.Event) string {
	if evt.Service == nil {
		return "a service"
	}
	return evt.Service.Name
}

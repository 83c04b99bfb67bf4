package dispatch

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kendall-kelly/quickfix-api/models"
)

// EventType names a booking lifecycle event
type EventType string

const (
	EventBookingCreated     EventType = "booking.created"
	EventStatusChanged      EventType = "booking.status_changed"
	EventTechnicianAssigned EventType = "booking.technician_assigned"
)

// Contact is the denormalized contact detail of a participant
type Contact struct {
	ID    uint    `json:"id"`
	Name  string  `json:"name"`
	Email string  `json:"email"`
	Phone *string `json:"phone,omitempty"`
}

// ServiceInfo identifies the booked catalog entry
type ServiceInfo struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// BookingSnapshot is the part of a booking a notification renders
type BookingSnapshot struct {
	ID                 uint                 `json:"id"`
	Status             models.BookingStatus `json:"status"`
	ProblemDescription string               `json:"problem_description"`
	Address            string               `json:"address"`
	PreferredDate      time.Time            `json:"preferred_date"`
	PreferredTime      string               `json:"preferred_time"`
}

// Event is a lifecycle change captured at the moment of the operation. The
// snapshot is not kept in sync with later edits.
type Event struct {
	ID         string          `json:"id"`
	Type       EventType       `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Booking    BookingSnapshot `json:"booking"`
	Customer   Contact         `json:"customer"`
	Technician *Contact        `json:"technician,omitempty"`
	Service    *ServiceInfo    `json:"service,omitempty"`
}

// Emitter accepts events after a mutation has been committed. Emit must not
// block the caller and has no way to fail the operation.
type Emitter interface {
	Emit(ctx context.Context, event Event)
}

// NopEmitter discards every event
type NopEmitter struct{}

func (NopEmitter) Emit(context.Context, Event) {}

func newEvent(typ EventType, b *models.Booking, p participants, now time.Time) Event {
	evt := Event{
		ID:         uuid.NewString(),
		Type:       typ,
		OccurredAt: now,
		Booking: BookingSnapshot{
			ID:                 b.ID,
			Status:             b.Status,
			ProblemDescription: b.ProblemDescription,
			Address:            b.Address,
			PreferredDate:      b.PreferredDate,
			PreferredTime:      b.PreferredTime,
		},
	}
	if p.customer != nil {
		evt.Customer = contactOf(p.customer)
	}
	if p.technicianUser != nil {
		c := contactOf(p.technicianUser)
		evt.Technician = &c
	}
	if p.service != nil {
		evt.Service = &ServiceInfo{ID: p.service.ID, Name: p.service.Name, Category: p.service.Category}
	}
	return evt
}

func contactOf(u *models.User) Contact {
	return Contact{ID: u.ID, Name: u.Name, Email: u.Email, Phone: u.Phone}
}

package dispatch

import (
	"fmt"
	"time"

	"github.com/kendall-kelly/quickfix-api/models"
)

// strictTransitions is the only table consulted in strict mode. Cancellation
// is always reachable from a non-terminal state and is not listed.
var strictTransitions = map[models.BookingStatus][]models.BookingStatus{
	models.StatusPending:    {models.StatusAccepted},
	models.StatusAccepted:   {models.StatusInProgress},
	models.StatusInProgress: {models.StatusCompleted},
}

// StateMachine validates and applies booking status transitions.
//
// Permissive mode lets any non-terminal booking move to any status, so
// PENDING -> COMPLETED is accepted. Strict mode only allows the forward path
// PENDING -> ACCEPTED -> IN_PROGRESS -> COMPLETED. Both modes reject every
// transition out of COMPLETED and CANCELLED.
type StateMachine struct {
	Strict bool
}

// CanTransition checks whether from -> to is allowed
func (m StateMachine) CanTransition(from, to models.BookingStatus) error {
	if !to.Valid() {
		return validationFailed("INVALID_STATUS", fmt.Sprintf("Unknown booking status %q", to))
	}
	if from.Terminal() {
		return invalidTransition("BOOKING_CLOSED",
			fmt.Sprintf("Booking is already %s; no further status changes are allowed", from))
	}
	if to == models.StatusCancelled || !m.Strict {
		return nil
	}
	for _, next := range strictTransitions[from] {
		if next == to {
			return nil
		}
	}
	return invalidTransition("INVALID_TRANSITION",
		fmt.Sprintf("Cannot move booking from %s to %s", from, to))
}

// Transition moves b to status to. It reports whether this call completed
// the booking for the first time, in which case the caller owes the assigned
// technician one job on their counter.
func (m StateMachine) Transition(b *models.Booking, to models.BookingStatus, now time.Time) (bool, error) {
	if err := m.CanTransition(b.Status, to); err != nil {
		return false, err
	}
	b.Status = to
	b.UpdatedAt = now
	if to == models.StatusCompleted && b.CompletedAt == nil {
		completed := now
		b.CompletedAt = &completed
		return true, nil
	}
	return false, nil
}

// CanAccept checks the narrower ACCEPT entry point. Acceptance never reopens
// a terminal booking; in strict mode it is only valid before work starts.
func (m StateMachine) CanAccept(from models.BookingStatus) error {
	if from.Terminal() {
		return invalidTransition("BOOKING_CLOSED",
			fmt.Sprintf("Booking is already %s and can no longer be accepted", from))
	}
	if m.Strict && from != models.StatusPending && from != models.StatusAccepted {
		return invalidTransition("INVALID_TRANSITION",
			fmt.Sprintf("Cannot accept a booking that is %s", from))
	}
	return nil
}

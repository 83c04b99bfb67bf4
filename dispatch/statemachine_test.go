package dispatch

import (
	"errors"
	"testing"
	"time"

	"github.com/kendall-kelly/quickfix-api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition_Permissive(t *testing.T) {
	m := StateMachine{}

	for _, from := range []models.BookingStatus{models.StatusPending, models.StatusAccepted, models.StatusInProgress} {
		for _, to := range models.BookingStatuses {
			assert.NoError(t, m.CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestCanTransition_Strict(t *testing.T) {
	m := StateMachine{Strict: true}

	tests := []struct {
		from, to models.BookingStatus
		ok       bool
	}{
		{models.StatusPending, models.StatusAccepted, true},
		{models.StatusPending, models.StatusCancelled, true},
		{models.StatusPending, models.StatusInProgress, false},
		{models.StatusPending, models.StatusCompleted, false},
		{models.StatusPending, models.StatusPending, false},
		{models.StatusAccepted, models.StatusInProgress, true},
		{models.StatusAccepted, models.StatusCancelled, true},
		{models.StatusAccepted, models.StatusCompleted, false},
		{models.StatusInProgress, models.StatusCompleted, true},
		{models.StatusInProgress, models.StatusCancelled, true},
		{models.StatusInProgress, models.StatusAccepted, false},
	}

	for _, tt := range tests {
		err := m.CanTransition(tt.from, tt.to)
		if tt.ok {
			assert.NoError(t, err, "%s -> %s", tt.from, tt.to)
		} else {
			assert.True(t, errors.Is(err, ErrInvalidTransition), "%s -> %s", tt.from, tt.to)
		}
	}
}

func TestCanTransition_TerminalStates(t *testing.T) {
	for _, strict := range []bool{false, true} {
		m := StateMachine{Strict: strict}
		for _, from := range []models.BookingStatus{models.StatusCompleted, models.StatusCancelled} {
			for _, to := range models.BookingStatuses {
				err := m.CanTransition(from, to)
				assert.True(t, errors.Is(err, ErrInvalidTransition), "strict=%v %s -> %s", strict, from, to)
			}
		}
	}
}

func TestCanTransition_UnknownStatus(t *testing.T) {
	err := StateMachine{}.CanTransition(models.StatusPending, "archived")
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestTransition_CompletionStampedOnce(t *testing.T) {
	m := StateMachine{}
	first := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	b := &models.Booking{Status: models.StatusInProgress}

	firstCompletion, err := m.Transition(b, models.StatusCompleted, first)
	require.NoError(t, err)
	assert.True(t, firstCompletion)
	require.NotNil(t, b.CompletedAt)
	assert.Equal(t, first, *b.CompletedAt)
	assert.Equal(t, first, b.UpdatedAt)

	// a booking that already carries a completion time is never restamped
	b.Status = models.StatusInProgress
	firstCompletion, err = m.Transition(b, models.StatusCompleted, first.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, firstCompletion)
	assert.Equal(t, first, *b.CompletedAt)
}

func TestTransition_RejectedLeavesBookingUntouched(t *testing.T) {
	b := &models.Booking{Status: models.StatusCancelled}
	_, err := StateMachine{}.Transition(b, models.StatusPending, time.Now())
	assert.Error(t, err)
	assert.Equal(t, models.StatusCancelled, b.Status)
	assert.True(t, b.UpdatedAt.IsZero())
}

func TestCanAccept(t *testing.T) {
	tests := []struct {
		from         models.BookingStatus
		permissiveOK bool
		strictOK     bool
	}{
		{models.StatusPending, true, true},
		{models.StatusAccepted, true, true},
		{models.StatusInProgress, true, false},
		{models.StatusCompleted, false, false},
		{models.StatusCancelled, false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from), func(t *testing.T) {
			assert.Equal(t, tt.permissiveOK, StateMachine{}.CanAccept(tt.from) == nil)
			assert.Equal(t, tt.strictOK, StateMachine{Strict: true}.CanAccept(tt.from) == nil)
		})
	}
}

package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kendall-kelly/quickfix-api/dispatch"
	"github.com/kendall-kelly/quickfix-api/models"
	"github.com/kendall-kelly/quickfix-api/store"
	"github.com/kendall-kelly/quickfix-api/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormStore_NotFound(t *testing.T) {
	db := testutil.NewTestDB(t)
	st := store.NewGormStore(db)
	ctx := context.Background()

	_, err := st.GetBooking(ctx, 1)
	assert.True(t, errors.Is(err, dispatch.ErrRecordNotFound))
	_, err = st.GetUser(ctx, 1)
	assert.True(t, errors.Is(err, dispatch.ErrRecordNotFound))
	_, err = st.GetService(ctx, 1)
	assert.True(t, errors.Is(err, dispatch.ErrRecordNotFound))
	_, err = st.GetTechnician(ctx, 1)
	assert.True(t, errors.Is(err, dispatch.ErrRecordNotFound))
	_, err = st.GetTechnicianByUser(ctx, 1)
	assert.True(t, errors.Is(err, dispatch.ErrRecordNotFound))
	err = st.IncrementTechnicianJobs(ctx, 1)
	assert.True(t, errors.Is(err, dispatch.ErrRecordNotFound))
}

func TestGormStore_CreateAndUpdate(t *testing.T) {
	db := testutil.NewTestDB(t)
	st := store.NewGormStore(db)
	ctx := context.Background()
	customer := testutil.CreateUser(t, db, models.RoleCustomer, "John Doe")
	service := testutil.CreateService(t, db, "Drain Cleaning", "Plumbing", true)
	_, tech := testutil.CreateTechnician(t, db, "Sarah Williams", "Plumber")

	b := &models.Booking{
		CustomerID:         customer.ID,
		ServiceID:          service.ID,
		ProblemDescription: "Slow drain",
		Address:            "1 Elm Street",
		PreferredDate:      time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC),
		PreferredTime:      "09:00",
		Status:             models.StatusPending,
	}
	require.NoError(t, st.CreateBooking(ctx, b))
	assert.Equal(t, 1, b.Version)

	b.Status = models.StatusAccepted
	b.TechnicianID = &tech.ID
	require.NoError(t, st.UpdateBooking(ctx, b))
	assert.Equal(t, 2, b.Version)

	stored, err := st.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, stored.Status)
	assert.Equal(t, 2, stored.Version)
	require.NotNil(t, stored.TechnicianID)
	assert.Equal(t, tech.ID, *stored.TechnicianID)

	// clearing a nullable column is written through
	b.TechnicianID = nil
	require.NoError(t, st.UpdateBooking(ctx, b))
	stored, err = st.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.TechnicianID)

	stale := *stored
	stale.Version = 1
	err = st.UpdateBooking(ctx, &stale)
	assert.True(t, errors.Is(err, dispatch.ErrVersionMismatch))
}

func TestGormStore_IncrementTechnicianJobs(t *testing.T) {
	db := testutil.NewTestDB(t)
	st := store.NewGormStore(db)
	ctx := context.Background()
	_, tech := testutil.CreateTechnician(t, db, "Mike Johnson", "Electrician")

	require.NoError(t, st.IncrementTechnicianJobs(ctx, tech.ID))
	require.NoError(t, st.IncrementTechnicianJobs(ctx, tech.ID))

	fresh, err := st.GetTechnician(ctx, tech.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, fresh.TotalJobs)

	byUser, err := st.GetTechnicianByUser(ctx, tech.UserID)
	require.NoError(t, err)
	assert.Equal(t, tech.ID, byUser.ID)
}

func TestGormStore_TransactionRollsBack(t *testing.T) {
	db := testutil.NewTestDB(t)
	st := store.NewGormStore(db)
	ctx := context.Background()
	_, tech := testutil.CreateTechnician(t, db, "Mike Johnson", "Electrician")

	boom := errors.New("boom")
	err := st.Transaction(ctx, func(tx dispatch.Store) error {
		require.NoError(t, tx.IncrementTechnicianJobs(ctx, tech.ID))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	fresh, err := st.GetTechnician(ctx, tech.ID)
	require.NoError(t, err)
	assert.Zero(t, fresh.TotalJobs)
}

func TestGormStore_ListBookings(t *testing.T) {
	db := testutil.NewTestDB(t)
	st := store.NewGormStore(db)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, models.RoleCustomer, "Alice")
	bob := testutil.CreateUser(t, db, models.RoleCustomer, "Bob")
	service := testutil.CreateService(t, db, "Heater Repair", "HVAC", true)
	_, tech := testutil.CreateTechnician(t, db, "Sarah Williams", "HVAC")

	testutil.CreateBooking(t, db, alice.ID, service.ID, models.StatusPending, nil)
	testutil.CreateBooking(t, db, alice.ID, service.ID, models.StatusAccepted, &tech.ID)
	testutil.CreateBooking(t, db, bob.ID, service.ID, models.StatusCompleted, &tech.ID)

	tests := []struct {
		name      string
		filter    dispatch.ListFilter
		wantTotal int64
		wantLen   int
	}{
		{"everything", dispatch.ListFilter{Limit: 10}, 3, 3},
		{"by customer", dispatch.ListFilter{CustomerID: &alice.ID, Limit: 10}, 2, 2},
		{"by technician", dispatch.ListFilter{TechnicianID: &tech.ID, Limit: 10}, 2, 2},
		{"by status", dispatch.ListFilter{Status: models.StatusCompleted, Limit: 10}, 1, 1},
		{"customer and status", dispatch.ListFilter{CustomerID: &alice.ID, Status: models.StatusPending, Limit: 10}, 1, 1},
		{"paged", dispatch.ListFilter{Offset: 2, Limit: 2}, 3, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bookings, total, err := st.ListBookings(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, total)
			assert.Len(t, bookings, tt.wantLen)
		})
	}
}

package dispatch

import (
	"context"

	"github.com/kendall-kelly/quickfix-api/models"
)

// ListFilter narrows a booking listing. A nil CustomerID and TechnicianID
// lists every booking.
type ListFilter struct {
	CustomerID   *uint
	TechnicianID *uint
	Status       models.BookingStatus // empty means any
	Offset       int
	Limit        int
}

// Store is the persistence the engine needs. Lookups of missing rows return
// an error wrapping ErrRecordNotFound.
type Store interface {
	// Transaction runs fn against a store bound to a single transaction.
	// Returning an error from fn rolls everything back.
	Transaction(ctx context.Context, fn func(tx Store) error) error

	GetBooking(ctx context.Context, id uint) (*models.Booking, error)
	CreateBooking(ctx context.Context, b *models.Booking) error
	// UpdateBooking replaces the mutable fields of b if the stored version
	// still equals b.Version, then bumps b.Version. A stale version returns
	// an error wrapping ErrVersionMismatch.
	UpdateBooking(ctx context.Context, b *models.Booking) error
	ListBookings(ctx context.Context, filter ListFilter) ([]models.Booking, int64, error)

	GetTechnician(ctx context.Context, id uint) (*models.Technician, error)
	GetTechnicianByUser(ctx context.Context, userID uint) (*models.Technician, error)
	IncrementTechnicianJobs(ctx context.Context, id uint) error

	GetUser(ctx context.Context, id uint) (*models.User, error)
	GetService(ctx context.Context, id uint) (*models.Service, error)
}

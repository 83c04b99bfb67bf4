package models

import "time"

// BookingStatus is the lifecycle state of a booking
type BookingStatus string

const (
	StatusPending    BookingStatus = "pending"
	StatusAccepted   BookingStatus = "accepted"
	StatusInProgress BookingStatus = "in_progress"
	StatusCompleted  BookingStatus = "completed"
	StatusCancelled  BookingStatus = "cancelled"
)

// BookingStatuses lists every status in lifecycle order
var BookingStatuses = []BookingStatus{
	StatusPending,
	StatusAccepted,
	StatusInProgress,
	StatusCompleted,
	StatusCancelled,
}

// Valid reports whether s is a known status
func (s BookingStatus) Valid() bool {
	for _, known := range BookingStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible from s
func (s BookingStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Booking represents a customer's request for a service visit
type Booking struct {
	ID                 uint          `gorm:"primaryKey" json:"id"`
	CustomerID         uint          `gorm:"not null;index" json:"customer_id"`
	ServiceID          uint          `gorm:"not null;index" json:"service_id"`
	TechnicianID       *uint         `gorm:"index" json:"technician_id"` // nullable, set by assignment
	ProblemDescription string        `gorm:"type:text;not null" json:"problem_description"`
	Address            string        `gorm:"not null" json:"address"`
	PreferredDate      time.Time     `gorm:"not null" json:"preferred_date"`
	PreferredTime      string        `gorm:"not null" json:"preferred_time"`
	Status             BookingStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	FinalPrice         *float64      `json:"final_price"`
	ImageKey           *string       `json:"-"`                                 // nullable, storage key of the problem photo
	Version            int           `gorm:"not null;default:1" json:"version"` // bumped on every write
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
	CompletedAt        *time.Time    `json:"completed_at"`
}

// TableName specifies the table name for the Booking model
func (Booking) TableName() string {
	return "bookings"
}

// AssignedTo reports whether the booking is assigned to the given technician profile
func (b *Booking) AssignedTo(technicianID uint) bool {
	return b.TechnicianID != nil && *b.TechnicianID == technicianID
}

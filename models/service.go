package models

import "time"

// Service is a catalog entry a booking is made against
type Service struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex;not null" json:"name"` // e.g. "Electrical Repair"
	Description *string   `gorm:"type:text" json:"description"`
	Category    string    `gorm:"not null;index" json:"category"` // e.g. "Electrical", "Plumbing"
	BasePrice   float64   `gorm:"not null;default:0" json:"base_price"`
	IsActive    bool      `gorm:"not null" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name for the Service model
func (Service) TableName() string {
	return "services"
}

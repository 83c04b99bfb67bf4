package models

import "time"

// Technician is the dispatch profile bound 1:1 to a technician-role user
type Technician struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	User            *User     `gorm:"foreignKey:UserID" json:"-"`
	Specialization  string    `gorm:"not null" json:"specialization"`
	ExperienceYears int       `gorm:"not null;default:0;check:experience_years >= 0" json:"experience_years"`
	Bio             *string   `gorm:"type:text" json:"bio"`
	Rating          float64   `gorm:"not null;default:0" json:"rating"`
	TotalJobs       int       `gorm:"not null;default:0" json:"total_jobs"` // only ever incremented on completion
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName specifies the table name for the Technician model
func (Technician) TableName() string {
	return "technicians"
}

// DefaultSpecialization is given to profiles created at registration time
const DefaultSpecialization = "General"

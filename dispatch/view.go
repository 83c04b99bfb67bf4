package dispatch

import "github.com/kendall-kelly/quickfix-api/models"

// CustomerSummary is the customer as shown alongside a booking
type CustomerSummary struct {
	ID    uint    `json:"id"`
	Name  string  `json:"name"`
	Email string  `json:"email"`
	Phone *string `json:"phone"`
}

// TechnicianSummary is the assigned technician as shown alongside a booking
type TechnicianSummary struct {
	ID              uint    `json:"id"`
	UserID          uint    `json:"user_id"`
	Name            string  `json:"name"`
	Email           string  `json:"email"`
	Phone           *string `json:"phone"`
	Specialization  string  `json:"specialization"`
	ExperienceYears int     `json:"experience_years"`
	Rating          float64 `json:"rating"`
	TotalJobs       int     `json:"total_jobs"`
}

// BookingView is the response shape of every booking operation
type BookingView struct {
	models.Booking
	ImageURL   *string            `json:"image_url,omitempty"`
	Customer   *CustomerSummary   `json:"customer,omitempty"`
	Technician *TechnicianSummary `json:"technician,omitempty"`
}

// NewBookingView projects a booking and its resolved rows into a view.
// Any of the rows may be nil when they could not be resolved.
func NewBookingView(b models.Booking, customer *models.User, tech *models.Technician, techUser *models.User) BookingView {
	v := BookingView{Booking: b}
	if customer != nil {
		v.Customer = &CustomerSummary{
			ID:    customer.ID,
			Name:  customer.Name,
			Email: customer.Email,
			Phone: customer.Phone,
		}
	}
	if tech != nil && techUser != nil {
		v.Technician = &TechnicianSummary{
			ID:              tech.ID,
			UserID:          tech.UserID,
			Name:            techUser.Name,
			Email:           techUser.Email,
			Phone:           techUser.Phone,
			Specialization:  tech.Specialization,
			ExperienceYears: tech.ExperienceYears,
			Rating:          tech.Rating,
			TotalJobs:       tech.TotalJobs,
		}
	}
	return v
}

// BookingPage is one page of a booking listing
type BookingPage struct {
	Items      []BookingView
	Page       int
	Limit      int
	Total      int64
	TotalPages int
}

package database

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"

	"github.com/kendall-kelly/quickfix-api/models"
)

// SeedResult counts the rows a Seed call created
type SeedResult struct {
	Users       int
	Technicians int
	Services    int
}

type seedUser struct {
	auth0ID string
	name    string
	email   string
	phone   string
	role    string
}

type seedTechnician struct {
	email           string
	specialization  string
	experienceYears int
	bio             string
	rating          float64
}

type seedService struct {
	name        string
	description string
	category    string
	basePrice   float64
}

var seedUsers = []seedUser{
	{"seed|admin", "Admin User", "admin@quickfix.com", "+1234567890", models.RoleAdmin},
	{"seed|customer", "John Doe", "customer@example.com", "+1234567891", models.RoleCustomer},
	{"seed|electrician", "Mike Johnson", "electrician@quickfix.com", "+1234567893", models.RoleTechnician},
	{"seed|plumber", "Sarah Williams", "plumber@quickfix.com", "+1234567894", models.RoleTechnician},
}

var seedTechnicians = []seedTechnician{
	{"electrician@quickfix.com", "Electrician", 5, "Experienced electrician with 5 years in residential repairs", 4.8},
	{"plumber@quickfix.com", "Plumber", 8, "Expert plumber specializing in emergency repairs", 4.9},
}

var seedServices = []seedService{
	{"Electrical Repair", "General electrical repairs and installations", "Electrical", 75},
	{"Wiring Installation", "New wiring installation and rewiring services", "Electrical", 150},
	{"Circuit Breaker Repair", "Circuit breaker troubleshooting and replacement", "Electrical", 100},
	{"Plumbing Repair", "Fix leaks, clogs, and other plumbing issues", "Plumbing", 80},
	{"Pipe Installation", "New pipe installation and replacement", "Plumbing", 120},
	{"Drain Cleaning", "Professional drain cleaning and unclogging", "Plumbing", 90},
	{"Washing Machine Repair", "Repair for washing machines and dryers", "Appliance", 90},
	{"Refrigerator Repair", "Refrigerator and freezer repair services", "Appliance", 100},
	{"Dishwasher Repair", "Dishwasher troubleshooting and repair", "Appliance", 85},
	{"AC Installation", "Air conditioning installation and setup", "HVAC", 200},
	{"Heater Repair", "Heating system repair and maintenance", "HVAC", 110},
}

// Seed loads demo users, technician profiles and the service catalog. Rows
// that already exist are left alone, so it is safe to run repeatedly.
func Seed(ctx context.Context, db *gorm.DB) (SeedResult, error) {
	var result SeedResult
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		usersByEmail := make(map[string]*models.User, len(seedUsers))
		for _, su := range seedUsers {
			user, created, err := seedOneUser(tx, su)
			if err != nil {
				return err
			}
			if created {
				result.Users++
			}
			usersByEmail[su.email] = user
		}

		for _, st := range seedTechnicians {
			user := usersByEmail[st.email]
			var existing models.Technician
			err := tx.Where("user_id = ?", user.ID).First(&existing).Error
			if err == nil {
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("look up technician for %s: %w", st.email, err)
			}
			bio := st.bio
			tech := models.Technician{
				UserID:          user.ID,
				Specialization:  st.specialization,
				ExperienceYears: st.experienceYears,
				Bio:             &bio,
				Rating:          st.rating,
			}
			if err := tx.Create(&tech).Error; err != nil {
				return fmt.Errorf("create technician for %s: %w", st.email, err)
			}
			result.Technicians++
		}

		for _, ss := range seedServices {
			var existing models.Service
			err := tx.Where("name = ?", ss.name).First(&existing).Error
			if err == nil {
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("look up service %q: %w", ss.name, err)
			}
			description := ss.description
			service := models.Service{
				Name:        ss.name,
				Description: &description,
				Category:    ss.category,
				BasePrice:   ss.basePrice,
				IsActive:    true,
			}
			if err := tx.Create(&service).Error; err != nil {
				return fmt.Errorf("create service %q: %w", ss.name, err)
			}
			result.Services++
		}
		return nil
	})
	if err != nil {
		return SeedResult{}, err
	}

	log.Printf("seed: created %d users, %d technicians, %d services",
		result.Users, result.Technicians, result.Services)
	return result, nil
}

func seedOneUser(tx *gorm.DB, su seedUser) (*models.User, bool, error) {
	var user models.User
	err := tx.Where("email = ?", su.email).First(&user).Error
	if err == nil {
		return &user, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("look up user %s: %w", su.email, err)
	}
	phone := su.phone
	user = models.User{
		Auth0ID: su.auth0ID,
		Name:    su.name,
		Email:   su.email,
		Phone:   &phone,
		Role:    su.role,
	}
	if err := tx.Create(&user).Error; err != nil {
		return nil, false, fmt.Errorf("create user %s: %w", su.email, err)
	}
	return &user, true, nil
}

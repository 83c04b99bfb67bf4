// Package testutil holds fixtures shared by the package tests
package testutil

import (
	"fmt"
	"os"
	"regexp"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kendall-kelly/quickfix-api/database"
	"github.com/kendall-kelly/quickfix-api/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	sequence  atomic.Int64
	unsafeDSN = regexp.MustCompile(`[^A-Za-z0-9_]`)
)

// Main guards a package's TestMain: an unset GO_ENV becomes "test" and any
// other value aborts the run before a test can reach a real database.
func Main(m *testing.M) {
	env, ok := os.LookupEnv("GO_ENV")
	if !ok || env == "" {
		_ = os.Setenv("GO_ENV", "test")
		env = "test"
	}
	if env != "test" {
		fmt.Fprintf(os.Stderr, "SAFETY CHECK FAILED: tests must run with GO_ENV=test (current: %q)\n", env)
		os.Exit(1)
	}
	os.Exit(m.Run())
}

// NewTestDB opens a private in-memory sqlite database with the full schema.
// The database lives until the test finishes.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := unsafeDSN.ReplaceAllString(t.Name(), "_")
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, sequence.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to access test database pool: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(database.Models()...); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}

// CreateUser inserts a user with the given role and a unique subject and email
func CreateUser(t *testing.T, db *gorm.DB, role, name string) *models.User {
	t.Helper()
	n := sequence.Add(1)
	phone := fmt.Sprintf("+1555000%04d", n)
	user := &models.User{
		Auth0ID: fmt.Sprintf("auth0|%s-%d", role, n),
		Name:    name,
		Email:   fmt.Sprintf("%s-%d@example.com", role, n),
		Phone:   &phone,
		Role:    role,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	return user
}

// CreateTechnician inserts a technician-role user with a bound profile
func CreateTechnician(t *testing.T, db *gorm.DB, name, specialization string) (*models.User, *models.Technician) {
	t.Helper()
	user := CreateUser(t, db, models.RoleTechnician, name)
	tech := &models.Technician{
		UserID:          user.ID,
		Specialization:  specialization,
		ExperienceYears: 3,
		Rating:          4.5,
	}
	if err := db.Create(tech).Error; err != nil {
		t.Fatalf("Failed to create technician: %v", err)
	}
	return user, tech
}

// CreateService inserts a catalog entry
func CreateService(t *testing.T, db *gorm.DB, name, category string, active bool) *models.Service {
	t.Helper()
	service := &models.Service{
		Name:      name,
		Category:  category,
		BasePrice: 80,
		IsActive:  active,
	}
	if err := db.Create(service).Error; err != nil {
		t.Fatalf("Failed to create service: %v", err)
	}
	return service
}

// CreateBooking inserts a booking directly, bypassing the lifecycle rules
func CreateBooking(t *testing.T, db *gorm.DB, customerID, serviceID uint, status models.BookingStatus, technicianID *uint) *models.Booking {
	t.Helper()
	now := time.Now().UTC()
	booking := &models.Booking{
		CustomerID:         customerID,
		ServiceID:          serviceID,
		TechnicianID:       technicianID,
		ProblemDescription: "Kitchen sink is leaking",
		Address:            "12 Main Street",
		PreferredDate:      now.Add(48 * time.Hour).Truncate(24 * time.Hour),
		PreferredTime:      "10:00",
		Status:             status,
		Version:            1,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := db.Create(booking).Error; err != nil {
		t.Fatalf("Failed to create booking: %v", err)
	}
	return booking
}

// Package store implements dispatch.Store on top of gorm
package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kendall-kelly/quickfix-api/dispatch"
	"github.com/kendall-kelly/quickfix-api/models"
)

// GormStore persists bookings and reads their participants through gorm
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps db
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

var _ dispatch.Store = (*GormStore)(nil)

// Transaction runs fn against a store bound to one database transaction
func (s *GormStore) Transaction(ctx context.Context, fn func(tx dispatch.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func (s *GormStore) GetBooking(ctx context.Context, id uint) (*models.Booking, error) {
	var b models.Booking
	if err := s.db.WithContext(ctx).First(&b, id).Error; err != nil {
		return nil, translate(err, "booking", id)
	}
	return &b, nil
}

func (s *GormStore) CreateBooking(ctx context.Context, b *models.Booking) error {
	if b.Version == 0 {
		b.Version = 1
	}
	return s.db.WithContext(ctx).Create(b).Error
}

// UpdateBooking writes the mutable columns with a compare-and-swap on version
func (s *GormStore) UpdateBooking(ctx context.Context, b *models.Booking) error {
	result := s.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ? AND version = ?", b.ID, b.Version).
		Updates(map[string]interface{}{
			"problem_description": b.ProblemDescription,
			"address":             b.Address,
			"preferred_date":      b.PreferredDate,
			"preferred_time":      b.PreferredTime,
			"status":              b.Status,
			"technician_id":       b.TechnicianID,
			"final_price":         b.FinalPrice,
			"image_key":           b.ImageKey,
			"completed_at":        b.CompletedAt,
			"updated_at":          b.UpdatedAt,
			"version":             b.Version + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("booking %d at version %d: %w", b.ID, b.Version, dispatch.ErrVersionMismatch)
	}
	b.Version++
	return nil
}

func (s *GormStore) ListBookings(ctx context.Context, filter dispatch.ListFilter) ([]models.Booking, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Booking{})
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.TechnicianID != nil {
		query = query.Where("technician_id = ?", *filter.TechnicianID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var bookings []models.Booking
	err := query.
		Order(clause.OrderByColumn{Column: clause.Column{Name: "created_at"}, Desc: true}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: true}).
		Offset(filter.Offset).
		Limit(filter.Limit).
		Find(&bookings).Error
	if err != nil {
		return nil, 0, err
	}
	return bookings, total, nil
}

func (s *GormStore) GetTechnician(ctx context.Context, id uint) (*models.Technician, error) {
	var t models.Technician
	if err := s.db.WithContext(ctx).First(&t, id).Error; err != nil {
		return nil, translate(err, "technician", id)
	}
	return &t, nil
}

func (s *GormStore) GetTechnicianByUser(ctx context.Context, userID uint) (*models.Technician, error) {
	var t models.Technician
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&t).Error; err != nil {
		return nil, translate(err, "technician for user", userID)
	}
	return &t, nil
}

func (s *GormStore) IncrementTechnicianJobs(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).
		Model(&models.Technician{}).
		Where("id = ?", id).
		Update("total_jobs", gorm.Expr("total_jobs + ?", 1))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("technician %d: %w", id, dispatch.ErrRecordNotFound)
	}
	return nil
}

func (s *GormStore) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, translate(err, "user", id)
	}
	return &u, nil
}

func (s *GormStore) GetService(ctx context.Context, id uint) (*models.Service, error) {
	var svc models.Service
	if err := s.db.WithContext(ctx).First(&svc, id).Error; err != nil {
		return nil, translate(err, "service", id)
	}
	return &svc, nil
}

func translate(err error, what string, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %d: %w", what, id, dispatch.ErrRecordNotFound)
	}
	return err
}

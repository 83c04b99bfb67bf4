package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/kendall-kelly/quickfix-api/models"
)

// participants are the rows a booking refers to. Any of them may be nil when
// the referenced row no longer exists.
type participants struct {
	customer       *models.User
	technician     *models.Technician
	technicianUser *models.User
	service        *models.Service
}

// resolver loads participants and remembers every lookup, including misses,
// so a page of bookings touches each row once.
type resolver struct {
	st          Store
	users       map[uint]*models.User
	technicians map[uint]*models.Technician
	services    map[uint]*models.Service
}

func newResolver(st Store) *resolver {
	return &resolver{
		st:          st,
		users:       map[uint]*models.User{},
		technicians: map[uint]*models.Technician{},
		services:    map[uint]*models.Service{},
	}
}

func (r *resolver) participants(ctx context.Context, b *models.Booking, withService bool) (participants, error) {
	var (
		p   participants
		err error
	)
	if p.customer, err = r.user(ctx, b.CustomerID); err != nil {
		return p, err
	}
	if b.TechnicianID != nil {
		if p.technician, err = r.technician(ctx, *b.TechnicianID); err != nil {
			return p, err
		}
		if p.technician != nil {
			if p.technicianUser, err = r.user(ctx, p.technician.UserID); err != nil {
				return p, err
			}
		}
	}
	if withService {
		if p.service, err = r.service(ctx, b.ServiceID); err != nil {
			return p, err
		}
	}
	return p, nil
}

func (r *resolver) user(ctx context.Context, id uint) (*models.User, error) {
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	u, err := r.st.GetUser(ctx, id)
	if err := ignoreNotFound(err); err != nil {
		return nil, fmt.Errorf("load user %d: %w", id, err)
	}
	r.users[id] = u
	return u, nil
}

func (r *resolver) technician(ctx context.Context, id uint) (*models.Technician, error) {
	if t, ok := r.technicians[id]; ok {
		return t, nil
	}
	t, err := r.st.GetTechnician(ctx, id)
	if err := ignoreNotFound(err); err != nil {
		return nil, fmt.Errorf("load technician %d: %w", id, err)
	}
	r.technicians[id] = t
	return t, nil
}

func (r *resolver) service(ctx context.Context, id uint) (*models.Service, error) {
	if s, ok := r.services[id]; ok {
		return s, nil
	}
	s, err := r.st.GetService(ctx, id)
	if err := ignoreNotFound(err); err != nil {
		return nil, fmt.Errorf("load service %d: %w", id, err)
	}
	r.services[id] = s
	return s, nil
}

func ignoreNotFound(err error) error {
	if errors.Is(err, ErrRecordNotFound) {
		return nil
	}
	return err
}

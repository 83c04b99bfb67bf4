// Package dispatch is the booking lifecycle and dispatch engine: the
// authorization policy, the status state machine and the coordinator that
// ties them to a Store and an Emitter.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kendall-kelly/quickfix-api/models"
)

// Paging defaults for List
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Options configures a Service
type Options struct {
	// StrictTransitions selects the strict transition table
	StrictTransitions bool
	// Now overrides the clock, mainly for tests
	Now func() time.Time
}

// Service coordinates every booking operation: it loads the booking,
// consults the policy, applies the state machine, persists the result and
// emits lifecycle events once the write has been committed.
type Service struct {
	store   Store
	machine StateMachine
	events  Emitter
	now     func() time.Time
}

// NewService builds a Service. A nil emitter discards events.
func NewService(store Store, events Emitter, opts Options) *Service {
	if events == nil {
		events = NopEmitter{}
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		store:   store,
		machine: StateMachine{Strict: opts.StrictTransitions},
		events:  events,
		now:     now,
	}
}

// CreateInput is what a customer supplies for a new booking
type CreateInput struct {
	ServiceID          uint
	ProblemDescription string
	Address            string
	PreferredDate      time.Time
	PreferredTime      string
}

func (in CreateInput) validate() error {
	switch {
	case in.ServiceID == 0:
		return validationFailed("VALIDATION_ERROR", "service_id is required")
	case strings.TrimSpace(in.ProblemDescription) == "":
		return validationFailed("VALIDATION_ERROR", "problem_description is required")
	case strings.TrimSpace(in.Address) == "":
		return validationFailed("VALIDATION_ERROR", "address is required")
	case in.PreferredDate.IsZero():
		return validationFailed("VALIDATION_ERROR", "preferred_date is required")
	case strings.TrimSpace(in.PreferredTime) == "":
		return validationFailed("VALIDATION_ERROR", "preferred_time is required")
	}
	return nil
}

// BookingPatch holds the fields UpdateFields may change. Nil means untouched.
type BookingPatch struct {
	ProblemDescription *string
	Address            *string
	PreferredDate      *time.Time
	PreferredTime      *string
	FinalPrice         *float64
	ExpectedVersion    *int
}

func (p BookingPatch) touchesDetails() bool {
	return p.ProblemDescription != nil || p.Address != nil || p.PreferredDate != nil || p.PreferredTime != nil
}

func (p BookingPatch) validate() error {
	for field, v := range map[string]*string{
		"problem_description": p.ProblemDescription,
		"address":             p.Address,
		"preferred_time":      p.PreferredTime,
	} {
		if v != nil && strings.TrimSpace(*v) == "" {
			return validationFailed("VALIDATION_ERROR", field+" cannot be empty")
		}
	}
	if p.PreferredDate != nil && p.PreferredDate.IsZero() {
		return validationFailed("VALIDATION_ERROR", "preferred_date cannot be empty")
	}
	if p.FinalPrice != nil && *p.FinalPrice < 0 {
		return validationFailed("VALIDATION_ERROR", "final_price cannot be negative")
	}
	return nil
}

func (p BookingPatch) apply(b *models.Booking) {
	if p.ProblemDescription != nil {
		b.ProblemDescription = strings.TrimSpace(*p.ProblemDescription)
	}
	if p.Address != nil {
		b.Address = strings.TrimSpace(*p.Address)
	}
	if p.PreferredDate != nil {
		b.PreferredDate = *p.PreferredDate
	}
	if p.PreferredTime != nil {
		b.PreferredTime = strings.TrimSpace(*p.PreferredTime)
	}
	if p.FinalPrice != nil {
		price := *p.FinalPrice
		b.FinalPrice = &price
	}
}

// StatusUpdate requests a status transition
type StatusUpdate struct {
	Status          models.BookingStatus
	ExpectedVersion *int
}

// Assignment requests dispatching a technician to a booking
type Assignment struct {
	TechnicianID    uint
	ExpectedVersion *int
}

// ListQuery selects a page of bookings visible to the actor
type ListQuery struct {
	Status string
	Page   int
	Limit  int
}

// Create opens a new PENDING booking for the calling customer
func (s *Service) Create(ctx context.Context, actor Actor, in CreateInput) (*BookingView, error) {
	if err := Authorize(actor, nil, 0, ActionCreate); err != nil {
		return nil, forbidden("FORBIDDEN", "Only customers can create bookings")
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	service, err := s.store.GetService(ctx, in.ServiceID)
	if errors.Is(err, ErrRecordNotFound) {
		return nil, notFound("SERVICE_NOT_FOUND", "Service not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load service %d: %w", in.ServiceID, err)
	}
	if !service.IsActive {
		return nil, validationFailed("SERVICE_INACTIVE", fmt.Sprintf("Service %q is not currently offered", service.Name))
	}

	customer, err := s.store.GetUser(ctx, actor.ID)
	if errors.Is(err, ErrRecordNotFound) {
		return nil, notFound("USER_NOT_FOUND", "User profile not found. Please create a profile first.")
	}
	if err != nil {
		return nil, fmt.Errorf("load customer %d: %w", actor.ID, err)
	}

	now := s.now()
	b := &models.Booking{
		CustomerID:         actor.ID,
		ServiceID:          service.ID,
		ProblemDescription: strings.TrimSpace(in.ProblemDescription),
		Address:            strings.TrimSpace(in.Address),
		PreferredDate:      in.PreferredDate,
		PreferredTime:      strings.TrimSpace(in.PreferredTime),
		Status:             models.StatusPending,
		Version:            1,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.store.CreateBooking(ctx, b); err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}

	p := participants{customer: customer, service: service}
	s.events.Emit(ctx, newEvent(EventBookingCreated, b, p, now))
	return viewOf(b, p), nil
}

// Get returns one booking the actor may view
func (s *Service) Get(ctx context.Context, actor Actor, id uint) (*BookingView, error) {
	b, err := loadBooking(ctx, s.store, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, s.store, actor, b, ActionView); err != nil {
		return nil, err
	}
	p, err := newResolver(s.store).participants(ctx, b, false)
	if err != nil {
		return nil, err
	}
	return viewOf(b, p), nil
}

// List pages through the bookings visible to the actor: every booking for
// an admin, their own for a customer, assigned ones for a technician.
func (s *Service) List(ctx context.Context, actor Actor, q ListQuery) (*BookingPage, error) {
	status := models.BookingStatus(q.Status)
	if status != "" && !status.Valid() {
		return nil, validationFailed("INVALID_STATUS", fmt.Sprintf("Unknown booking status %q", q.Status))
	}
	page, limit := normalizePage(q.Page, q.Limit)
	filter := ListFilter{Status: status, Offset: (page - 1) * limit, Limit: limit}

	switch actor.Role {
	case models.RoleAdmin:
		if err := Authorize(actor, nil, 0, ActionListAll); err != nil {
			return nil, err
		}
	case models.RoleCustomer:
		customerID := actor.ID
		filter.CustomerID = &customerID
	case models.RoleTechnician:
		tech, err := s.store.GetTechnicianByUser(ctx, actor.ID)
		if errors.Is(err, ErrRecordNotFound) {
			return nil, notFound("TECHNICIAN_PROFILE_NOT_FOUND", "Technician profile not found")
		}
		if err != nil {
			return nil, fmt.Errorf("load technician profile for user %d: %w", actor.ID, err)
		}
		filter.TechnicianID = &tech.ID
	default:
		return nil, Authorize(actor, nil, 0, ActionListAll)
	}

	bookings, total, err := s.store.ListBookings(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}

	r := newResolver(s.store)
	items := make([]BookingView, 0, len(bookings))
	for i := range bookings {
		p, err := r.participants(ctx, &bookings[i], false)
		if err != nil {
			return nil, err
		}
		items = append(items, *viewOf(&bookings[i], p))
	}

	return &BookingPage{
		Items:      items,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: int((total + int64(limit) - 1) / int64(limit)),
	}, nil
}

// UpdateFields edits the customer-supplied details and the final price.
// Details are frozen once the booking is terminal; the price is not.
func (s *Service) UpdateFields(ctx context.Context, actor Actor, id uint, patch BookingPatch) (*BookingView, error) {
	if err := patch.validate(); err != nil {
		return nil, err
	}
	b, p, err := s.mutate(ctx, id, false, func(tx Store, b *models.Booking) (bool, error) {
		if err := s.authorize(ctx, tx, actor, b, ActionUpdateFields); err != nil {
			return false, err
		}
		if err := checkVersion(b, patch.ExpectedVersion); err != nil {
			return false, err
		}
		if patch.touchesDetails() && b.Status.Terminal() {
			return false, invalidTransition("BOOKING_CLOSED",
				fmt.Sprintf("Booking is %s; its details can no longer be changed", b.Status))
		}
		if !patch.touchesDetails() && patch.FinalPrice == nil {
			return false, nil
		}
		patch.apply(b)
		b.UpdatedAt = s.now()
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return viewOf(b, p), nil
}

// UpdateStatus moves a booking through the state machine. The first
// completion stamps completed_at and credits the assigned technician.
func (s *Service) UpdateStatus(ctx context.Context, actor Actor, id uint, in StatusUpdate) (*BookingView, error) {
	b, p, err := s.mutate(ctx, id, false, func(tx Store, b *models.Booking) (bool, error) {
		if err := s.authorize(ctx, tx, actor, b, ActionUpdateStatus); err != nil {
			return false, err
		}
		if err := checkVersion(b, in.ExpectedVersion); err != nil {
			return false, err
		}
		firstCompletion, err := s.machine.Transition(b, in.Status, s.now())
		if err != nil {
			return false, err
		}
		if firstCompletion && b.TechnicianID != nil {
			if err := creditTechnician(ctx, tx, *b.TechnicianID); err != nil {
				return false, err
			}
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	s.events.Emit(ctx, newEvent(EventStatusChanged, b, p, s.now()))
	return viewOf(b, p), nil
}

// Assign dispatches a technician. A PENDING booking advances to ACCEPTED; a
// booking already past PENDING only has its technician replaced.
func (s *Service) Assign(ctx context.Context, actor Actor, id uint, in Assignment) (*BookingView, error) {
	b, p, err := s.mutate(ctx, id, true, func(tx Store, b *models.Booking) (bool, error) {
		if err := s.authorize(ctx, tx, actor, b, ActionAssign); err != nil {
			return false, err
		}
		if in.TechnicianID == 0 {
			return false, validationFailed("VALIDATION_ERROR", "technician_id is required")
		}
		_, err := tx.GetTechnician(ctx, in.TechnicianID)
		if errors.Is(err, ErrRecordNotFound) {
			return false, notFound("TECHNICIAN_NOT_FOUND", "Technician not found")
		}
		if err != nil {
			return false, fmt.Errorf("load technician %d: %w", in.TechnicianID, err)
		}
		if b.Status.Terminal() {
			return false, invalidTransition("BOOKING_CLOSED",
				fmt.Sprintf("Booking is already %s and cannot be reassigned", b.Status))
		}
		if err := checkVersion(b, in.ExpectedVersion); err != nil {
			return false, err
		}

		technicianID := in.TechnicianID
		b.TechnicianID = &technicianID
		b.UpdatedAt = s.now()
		if b.Status == models.StatusPending {
			if _, err := s.machine.Transition(b, models.StatusAccepted, b.UpdatedAt); err != nil {
				return false, err
			}
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	s.events.Emit(ctx, newEvent(EventStatusChanged, b, p, now))
	s.events.Emit(ctx, newEvent(EventTechnicianAssigned, b, p, now))
	return viewOf(b, p), nil
}

// Accept lets the assigned technician confirm the job
func (s *Service) Accept(ctx context.Context, actor Actor, id uint) (*BookingView, error) {
	var previous models.BookingStatus
	b, p, err := s.mutate(ctx, id, false, func(tx Store, b *models.Booking) (bool, error) {
		var technicianID uint
		if actor.Role == models.RoleTechnician {
			tech, err := tx.GetTechnicianByUser(ctx, actor.ID)
			if errors.Is(err, ErrRecordNotFound) {
				return false, notFound("TECHNICIAN_PROFILE_NOT_FOUND", "Technician profile not found")
			}
			if err != nil {
				return false, fmt.Errorf("load technician profile for user %d: %w", actor.ID, err)
			}
			technicianID = tech.ID
		}
		if err := Authorize(actor, b, technicianID, ActionAccept); err != nil {
			return false, err
		}
		if err := s.machine.CanAccept(b.Status); err != nil {
			return false, err
		}
		previous = b.Status
		b.Status = models.StatusAccepted
		b.UpdatedAt = s.now()
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if previous != models.StatusAccepted {
		s.events.Emit(ctx, newEvent(EventStatusChanged, b, p, s.now()))
	}
	return viewOf(b, p), nil
}

// Cancel moves a booking to CANCELLED. The row is kept.
func (s *Service) Cancel(ctx context.Context, actor Actor, id uint) (*BookingView, error) {
	b, p, err := s.mutate(ctx, id, false, func(tx Store, b *models.Booking) (bool, error) {
		if err := s.authorize(ctx, tx, actor, b, ActionCancel); err != nil {
			return false, err
		}
		if _, err := s.machine.Transition(b, models.StatusCancelled, s.now()); err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	s.events.Emit(ctx, newEvent(EventStatusChanged, b, p, s.now()))
	return viewOf(b, p), nil
}

// CanAttachImage reports whether AttachImage would currently accept a photo
// from actor, so the caller can refuse before storing the file.
func (s *Service) CanAttachImage(ctx context.Context, actor Actor, id uint) error {
	b, err := loadBooking(ctx, s.store, id)
	if err != nil {
		return err
	}
	return s.checkAttach(ctx, s.store, actor, b)
}

func (s *Service) checkAttach(ctx context.Context, st Store, actor Actor, b *models.Booking) error {
	if err := s.authorize(ctx, st, actor, b, ActionUpdateFields); err != nil {
		return err
	}
	if b.Status.Terminal() {
		return invalidTransition("BOOKING_CLOSED",
			fmt.Sprintf("Booking is %s; photos can no longer be attached", b.Status))
	}
	return nil
}

// AttachImage records the storage key of a problem photo. It returns the key
// it replaced, if any, so the caller can remove the old object.
func (s *Service) AttachImage(ctx context.Context, actor Actor, id uint, key string) (*BookingView, *string, error) {
	if strings.TrimSpace(key) == "" {
		return nil, nil, validationFailed("VALIDATION_ERROR", "image key is required")
	}
	var previous *string
	b, p, err := s.mutate(ctx, id, false, func(tx Store, b *models.Booking) (bool, error) {
		if err := s.checkAttach(ctx, tx, actor, b); err != nil {
			return false, err
		}
		previous = b.ImageKey
		newKey := key
		b.ImageKey = &newKey
		b.UpdatedAt = s.now()
		return true, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return viewOf(b, p), previous, nil
}

// mutate loads the booking inside a transaction, lets apply change it and
// writes it back under the version check. apply returns false to skip the
// write. Participants are resolved in the same transaction so the returned
// view and any event snapshot reflect the committed state.
func (s *Service) mutate(ctx context.Context, id uint, withService bool,
	apply func(tx Store, b *models.Booking) (bool, error)) (*models.Booking, participants, error) {
	var (
		booking *models.Booking
		p       participants
	)
	err := s.store.Transaction(ctx, func(tx Store) error {
		b, err := loadBooking(ctx, tx, id)
		if err != nil {
			return err
		}
		changed, err := apply(tx, b)
		if err != nil {
			return err
		}
		if changed {
			if err := save(ctx, tx, b); err != nil {
				return err
			}
		}
		p, err = newResolver(tx).participants(ctx, b, withService)
		if err != nil {
			return err
		}
		booking = b
		return nil
	})
	if err != nil {
		return nil, participants{}, err
	}
	return booking, p, nil
}

func (s *Service) authorize(ctx context.Context, st Store, actor Actor, b *models.Booking, action Action) error {
	technicianID, err := technicianIDFor(ctx, st, actor)
	if err != nil {
		return err
	}
	return Authorize(actor, b, technicianID, action)
}

// technicianIDFor returns the technician profile bound to the actor, or zero
func technicianIDFor(ctx context.Context, st Store, actor Actor) (uint, error) {
	if actor.Role != models.RoleTechnician {
		return 0, nil
	}
	tech, err := st.GetTechnicianByUser(ctx, actor.ID)
	if errors.Is(err, ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load technician profile for user %d: %w", actor.ID, err)
	}
	return tech.ID, nil
}

func loadBooking(ctx context.Context, st Store, id uint) (*models.Booking, error) {
	b, err := st.GetBooking(ctx, id)
	if errors.Is(err, ErrRecordNotFound) {
		return nil, notFound("BOOKING_NOT_FOUND", "Booking not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load booking %d: %w", id, err)
	}
	return b, nil
}

func save(ctx context.Context, st Store, b *models.Booking) error {
	err := st.UpdateBooking(ctx, b)
	if errors.Is(err, ErrVersionMismatch) {
		return conflict("VERSION_CONFLICT", "Booking was modified by another request; reload and retry")
	}
	if err != nil {
		return fmt.Errorf("save booking %d: %w", b.ID, err)
	}
	return nil
}

func creditTechnician(ctx context.Context, st Store, technicianID uint) error {
	err := st.IncrementTechnicianJobs(ctx, technicianID)
	if errors.Is(err, ErrRecordNotFound) {
		return notFound("TECHNICIAN_NOT_FOUND", "Assigned technician not found")
	}
	if err != nil {
		return fmt.Errorf("credit technician %d: %w", technicianID, err)
	}
	return nil
}

func checkVersion(b *models.Booking, expected *int) error {
	if expected == nil || *expected == b.Version {
		return nil
	}
	return conflict("VERSION_CONFLICT",
		fmt.Sprintf("Booking is at version %d, not %d; reload and retry", b.Version, *expected))
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit
}

func viewOf(b *models.Booking, p participants) *BookingView {
	v := NewBookingView(*b, p.customer, p.technician, p.technicianUser)
	return &v
}

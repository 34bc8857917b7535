// Package memory is the in-memory Store used by tests and local runs.
// It enforces the same contracts as the SQL store: conditional status
// transitions, guarded seat counts, one non-cancelled booking per
// holder and activity.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tripagenda/bookings/internal/domain"
)

type Store struct {
	mu         sync.RWMutex
	activities map[uuid.UUID]*domain.Activity
	bookings   map[uuid.UUID]*domain.Booking
	byCode     map[string]*domain.Ticket
	byBooking  map[uuid.UUID]*domain.Ticket
}

func NewStore() *Store {
	return &Store{
		activities: make(map[uuid.UUID]*domain.Activity),
		bookings:   make(map[uuid.UUID]*domain.Booking),
		byCode:     make(map[string]*domain.Ticket),
		byBooking:  make(map[uuid.UUID]*domain.Ticket),
	}
}

// AddActivity seeds an activity. Test and dev wiring only.
func (s *Store) AddActivity(a domain.Activity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := a
	s.activities[a.ID] = &cp
}

func (s *Store) GetActivity(ctx context.Context, id uuid.UUID) (*domain.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.activities[id]
	if !ok {
		return nil, domain.ErrActivityNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *Store) Activities(ctx context.Context) ([]domain.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Activity, 0, len(s.activities))
	for _, a := range s.activities {
		out = append(out, *a)
	}
	return out, nil
}

func (s *Store) HasActiveBooking(ctx context.Context, holderID, activityID uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasActiveLocked(holderID, activityID), nil
}

func (s *Store) hasActiveLocked(holderID, activityID uuid.UUID) bool {
	for _, b := range s.bookings {
		if b.HolderID == holderID && b.ActivityID == activityID && b.Status != domain.BookingCancelled {
			return true
		}
	}
	return false
}

func (s *Store) GetBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *Store) GetTicket(ctx context.Context, code string) (*domain.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.byCode[code]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *Store) CreateBooking(ctx context.Context, b *domain.Booking, t *domain.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.activities[b.ActivityID]
	if !ok {
		return domain.ErrActivityNotFound
	}
	if s.hasActiveLocked(b.HolderID, b.ActivityID) {
		return domain.ErrDuplicateBooking
	}
	if a.AvailableSeats <= 0 {
		return domain.ErrSeatUnavailable
	}
	a.AvailableSeats--

	bc := *b
	tc := *t
	s.bookings[b.ID] = &bc
	s.byCode[t.Code] = &tc
	s.byBooking[b.ID] = &tc
	return nil
}

func (s *Store) TransitionBooking(ctx context.Context, id uuid.UUID, from, to domain.BookingStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return domain.ErrBookingNotFound
	}
	if b.Status != from {
		return domain.ErrInvalidTransition
	}
	if to == domain.BookingCancelled {
		a, ok := s.activities[b.ActivityID]
		if !ok {
			return domain.ErrActivityNotFound
		}
		if a.AvailableSeats >= a.Capacity {
			return domain.ErrAlreadyFull
		}
		a.AvailableSeats++
	}
	b.Status = to
	return nil
}

// ValidateBooking moves a CONFIRMED booking to ATTENDED and flips its
// ticket's used flag as one step, so a booking can never end up
// ATTENDED with an unused ticket.
func (s *Store) ValidateBooking(ctx context.Context, id uuid.UUID, at time.Time, by string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return domain.ErrBookingNotFound
	}
	if b.Status != domain.BookingConfirmed {
		return domain.ErrInvalidTransition
	}
	t, ok := s.byBooking[id]
	if !ok {
		return domain.ErrBookingNotFound
	}
	if t.Used {
		return domain.ErrInvalidTransition
	}

	b.Status = domain.BookingAttended
	b.ValidatedAt = &at
	b.ValidatedBy = by
	t.Used = true
	return nil
}

func (s *Store) BookingsByHolder(ctx context.Context, holderID uuid.UUID) ([]domain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Booking
	for _, b := range s.bookings {
		if b.HolderID == holderID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (s *Store) BookingsByActivity(ctx context.Context, activityID uuid.UUID) ([]domain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Booking
	for _, b := range s.bookings {
		if b.ActivityID == activityID {
			out = append(out, *b)
		}
	}
	return out, nil
}

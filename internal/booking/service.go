// Package booking drives the booking state machine: create reserves a
// seat, prices the charge, and issues a ticket as one logical unit;
// cancel and validate move a confirmed booking to its terminal state.
package booking

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/tripagenda/bookings/internal/domain"
	"github.com/tripagenda/bookings/internal/inventory"
	"github.com/tripagenda/bookings/internal/observability"
	"github.com/tripagenda/bookings/internal/pricing"
	"github.com/tripagenda/bookings/internal/ticket"
)

type Service struct {
	store    Store
	seats    *inventory.SeatInventory
	pricing  *pricing.Calculator
	tickets  ticket.Issuer
	notifier Notifier
	logger   observability.Logger
	now      func() time.Time
}

func NewService(store Store, seats *inventory.SeatInventory, calc *pricing.Calculator, tickets ticket.Issuer, notifier Notifier, logger observability.Logger, now func() time.Time) *Service {
	return &Service{
		store:    store,
		seats:    seats,
		pricing:  calc,
		tickets:  tickets,
		notifier: notifier,
		logger:   logger,
		now:      now,
	}
}

// LoadInventory seeds the seat inventory from the store. Call once at
// startup before serving requests.
func (s *Service) LoadInventory(ctx context.Context) error {
	activities, err := s.store.Activities(ctx)
	if err != nil {
		return err
	}
	for _, a := range activities {
		if err := s.seats.Register(a.ID, a.Capacity, a.AvailableSeats); err != nil {
			return errors.Wrapf(err, "activity %s", a.ID)
		}
	}
	return nil
}

// Create books quantity seats' worth of attendance for holder on the
// activity: one seat is reserved, the charge covers quantity tickets.
// Any failure after the seat reservation triggers a compensating
// release before the error is returned, so a failed create never
// leaks a seat. The returned ticket carries the signed code the
// holder presents at validation.
func (s *Service) Create(ctx context.Context, activityID, holderID uuid.UUID, quantity int) (*domain.Booking, *domain.Ticket, error) {
	if quantity <= 0 {
		quantity = 1
	}

	activity, err := s.store.GetActivity(ctx, activityID)
	if err != nil {
		return nil, nil, err
	}
	exists, err := s.store.HasActiveBooking(ctx, holderID, activityID)
	if err != nil {
		return nil, nil, err
	}
	if exists {
		return nil, nil, domain.ErrDuplicateBooking
	}

	if err := s.seats.Reserve(activityID); err != nil {
		return nil, nil, err
	}

	bookedAt := s.now()
	charge := s.pricing.Calculate(activity.BasePrice, bookedAt, quantity)

	bookingID := uuid.New()
	code, err := s.tickets.Issue(ctx, bookingID)
	if err != nil {
		s.compensate(activityID)
		return nil, nil, errors.Wrap(err, "issue ticket")
	}

	b := &domain.Booking{
		ID:            bookingID,
		ActivityID:    activityID,
		HolderID:      holderID,
		Status:        domain.BookingConfirmed,
		Quantity:      quantity,
		AmountCharged: charge,
		CreatedAt:     bookedAt,
	}
	t := &domain.Ticket{BookingID: bookingID, Code: code}

	if err := s.store.CreateBooking(ctx, b, t); err != nil {
		s.compensate(activityID)
		return nil, nil, err
	}

	observability.BookingsCreated.Inc()
	s.notify(holderID, "SUCCESS", "booking.created", "Booking confirmed for: "+activity.Title)
	return b, t, nil
}

// Cancel moves a CONFIRMED booking to CANCELLED and restores its seat.
func (s *Service) Cancel(ctx context.Context, bookingID uuid.UUID) (*domain.Booking, error) {
	b, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status != domain.BookingConfirmed {
		return nil, errors.Wrapf(domain.ErrInvalidTransition, "booking is %s", b.Status)
	}

	if err := s.store.TransitionBooking(ctx, bookingID, domain.BookingConfirmed, domain.BookingCancelled); err != nil {
		return nil, err
	}
	if err := s.seats.Release(b.ActivityID); err != nil {
		// A failed release here means the reserve/release pairing is
		// broken somewhere; surface it, don't swallow it.
		if errors.Is(err, domain.ErrAlreadyFull) {
			observability.ReleaseOverflow.Inc()
		}
		s.logger.WithField("booking_id", bookingID).WithError(err).Error("seat release after cancel failed")
		return nil, err
	}

	observability.BookingsCancelled.Inc()
	s.notify(b.HolderID, "INFO", "booking.cancelled", "Booking cancelled")
	b.Status = domain.BookingCancelled
	return b, nil
}

// Validate verifies a ticket code, marks the ticket used, and moves
// the booking to ATTENDED, recording who validated it and when. The
// used flag flips exactly once: a second attempt fails with
// ErrInvalidTransition and has no side effect.
func (s *Service) Validate(ctx context.Context, code, validatedBy string) (*domain.Booking, error) {
	if err := s.tickets.Validate(ctx, code); err != nil {
		return nil, err
	}

	t, err := s.store.GetTicket(ctx, code)
	if err != nil {
		return nil, err
	}
	b, err := s.store.GetBooking(ctx, t.BookingID)
	if err != nil {
		return nil, err
	}
	if b.Status != domain.BookingConfirmed {
		return nil, errors.Wrapf(domain.ErrInvalidTransition, "booking is %s", b.Status)
	}

	activity, err := s.store.GetActivity(ctx, b.ActivityID)
	if err != nil {
		return nil, err
	}
	if activity.Status != domain.ActivityUpcoming {
		return nil, errors.Wrapf(domain.ErrInvalidTransition, "activity is %s", activity.Status)
	}

	validatedAt := s.now()
	if err := s.store.ValidateBooking(ctx, b.ID, validatedAt, validatedBy); err != nil {
		return nil, err
	}

	s.notify(b.HolderID, "SUCCESS", "ticket.validated", "Your ticket for "+activity.Title+" has been validated")
	b.Status = domain.BookingAttended
	b.ValidatedAt = &validatedAt
	b.ValidatedBy = validatedBy
	return b, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	return s.store.GetBooking(ctx, id)
}

// Activity returns the stored activity with the live in-process seat
// count when one is registered.
func (s *Service) Activity(ctx context.Context, id uuid.UUID) (*domain.Activity, error) {
	a, err := s.store.GetActivity(ctx, id)
	if err != nil {
		return nil, err
	}
	if n, err := s.seats.Available(id); err == nil {
		a.AvailableSeats = n
	}
	return a, nil
}

func (s *Service) ByHolder(ctx context.Context, holderID uuid.UUID) ([]domain.Booking, error) {
	return s.store.BookingsByHolder(ctx, holderID)
}

func (s *Service) ByActivity(ctx context.Context, activityID uuid.UUID) ([]domain.Booking, error) {
	return s.store.BookingsByActivity(ctx, activityID)
}

// compensate rolls back a seat reservation after a partial create
// failure. This is mandatory cleanup, not a retry.
func (s *Service) compensate(activityID uuid.UUID) {
	observability.SeatCompensations.Inc()
	if err := s.seats.Release(activityID); err != nil {
		if errors.Is(err, domain.ErrAlreadyFull) {
			observability.ReleaseOverflow.Inc()
		}
		s.logger.WithField("activity_id", activityID).WithError(err).Error("seat compensation failed")
	}
}

// notify dispatches fire-and-forget; delivery failures are counted and
// logged but never reach the caller.
func (s *Service) notify(holderID uuid.UUID, kind, eventType, message string) {
	n := domain.Notification{
		ID:        uuid.New(),
		HolderID:  holderID,
		Kind:      kind,
		EventType: eventType,
		Message:   message,
		CreatedAt: s.now(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.notifier.Publish(ctx, n); err != nil {
			observability.NotifyPublishFailures.Inc()
			s.logger.WithField("event_type", n.EventType).WithError(err).Warn("notification publish failed")
		}
	}()
}

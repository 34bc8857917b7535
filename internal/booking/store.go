package booking

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tripagenda/bookings/internal/domain"
)

// Store is the persistence collaborator the lifecycle consumes. The
// in-process SeatInventory decides admission; the store carries the
// durable projection of the same transitions, so implementations keep
// booking, ticket, and seat-count writes consistent with each other
// (one transaction in the SQL store).
type Store interface {
	GetActivity(ctx context.Context, id uuid.UUID) (*domain.Activity, error)
	Activities(ctx context.Context) ([]domain.Activity, error)

	// HasActiveBooking reports whether holder already has a
	// non-cancelled booking for the activity. ATTENDED counts: a
	// validated booking still occupies the holder's one slot.
	HasActiveBooking(ctx context.Context, holderID, activityID uuid.UUID) (bool, error)

	GetBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	GetTicket(ctx context.Context, code string) (*domain.Ticket, error)

	// CreateBooking persists the booking with its ticket and decrements
	// the stored seat count. Fails ErrDuplicateBooking if holder already
	// holds a non-cancelled booking for the activity, ErrSeatUnavailable
	// if the stored count is exhausted.
	CreateBooking(ctx context.Context, b *domain.Booking, t *domain.Ticket) error

	// TransitionBooking moves a booking from one status to another in a
	// single conditional step; it fails ErrInvalidTransition when the
	// booking is not currently in from. A transition to CANCELLED also
	// restores the stored seat (guarded, ErrAlreadyFull past capacity).
	TransitionBooking(ctx context.Context, id uuid.UUID, from, to domain.BookingStatus) error

	// ValidateBooking atomically moves a CONFIRMED booking to ATTENDED,
	// records who validated it and when, and flips the ticket's used
	// flag. Fails ErrInvalidTransition if the booking is not CONFIRMED
	// or the ticket was already used; on failure nothing changes.
	ValidateBooking(ctx context.Context, id uuid.UUID, at time.Time, by string) error

	BookingsByHolder(ctx context.Context, holderID uuid.UUID) ([]domain.Booking, error)
	BookingsByActivity(ctx context.Context, activityID uuid.UUID) ([]domain.Booking, error)
}

// Notifier receives fire-and-forget side-effect requests on booking
// transitions.
type Notifier interface {
	Publish(ctx context.Context, n domain.Notification) error
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Cents is a fixed-point currency amount. All pricing arithmetic is
// done in integer cents so repeated discounts cannot drift.
type Cents int64

type ActivityStatus string

const (
	ActivityUpcoming  ActivityStatus = "UPCOMING"
	ActivityCompleted ActivityStatus = "COMPLETED"
	ActivityCancelled ActivityStatus = "CANCELLED"
)

// Activity is a bookable event or trip with fixed capacity. The core
// only ever mutates AvailableSeats; everything else is owned by the
// surrounding system.
type Activity struct {
	ID             uuid.UUID
	Title          string
	Capacity       int
	AvailableSeats int
	BasePrice      Cents
	Status         ActivityStatus
}

type BookingStatus string

const (
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCancelled BookingStatus = "CANCELLED"
	BookingAttended  BookingStatus = "ATTENDED"
)

// Terminal reports whether no further status transition is allowed.
func (s BookingStatus) Terminal() bool {
	return s == BookingCancelled || s == BookingAttended
}

// Booking is a holder's claim on seats for one activity. Bookings are
// never deleted, only transitioned.
type Booking struct {
	ID            uuid.UUID
	ActivityID    uuid.UUID
	HolderID      uuid.UUID
	Status        BookingStatus
	Quantity      int
	AmountCharged Cents
	CreatedAt     time.Time
	ValidatedAt   *time.Time
	ValidatedBy   string
}

// Ticket is the signed proof of a confirmed booking. Code is opaque to
// callers; Used flips false to true exactly once.
type Ticket struct {
	BookingID uuid.UUID
	Code      string
	Used      bool
}

// Notification is a side-effect request emitted on booking
// transitions. Delivery is fire-and-forget.
type Notification struct {
	ID        uuid.UUID
	HolderID  uuid.UUID
	Kind      string // SUCCESS, INFO
	EventType string // booking.created, booking.cancelled, ticket.validated
	Message   string
	CreatedAt time.Time
}

// Package crdb is the SQL-backed Store. Seat counts are updated with
// conditional writes inside the same transaction as the booking row,
// so the durable state can never disagree with itself even though the
// in-process inventory makes the admission decision.
package crdb

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tripagenda/bookings/internal/domain"
	"github.com/tripagenda/bookings/internal/observability"
)

const (
	serializationFailureCode = "40001"
	uniqueViolationCode      = "23505"
)

var errSerializationFailure = errors.New("serialization failure")

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	start := time.Now()
	defer func() {
		observability.StoreTxDuration.Observe(time.Since(start).Seconds())
	}()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SET TRANSACTION ISOLATION LEVEL SERIALIZABLE"); err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == serializationFailureCode {
			return errSerializationFailure
		}
		return err
	}

	return tx.Commit(ctx)
}

func (s *Store) InsertActivity(ctx context.Context, a domain.Activity) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO activities (id, title, capacity, available_seats, base_price_cents, status)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, a.ID, a.Title, a.Capacity, a.AvailableSeats, a.BasePrice, a.Status)
	return err
}

func (s *Store) GetActivity(ctx context.Context, id uuid.UUID) (*domain.Activity, error) {
	var a domain.Activity
	err := s.pool.QueryRow(ctx, `
		SELECT id, title, capacity, available_seats, base_price_cents, status
		FROM activities WHERE id = $1
	`, id).Scan(&a.ID, &a.Title, &a.Capacity, &a.AvailableSeats, &a.BasePrice, &a.Status)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrActivityNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) Activities(ctx context.Context) ([]domain.Activity, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, title, capacity, available_seats, base_price_cents, status
		FROM activities
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Activity
	for rows.Next() {
		var a domain.Activity
		if err := rows.Scan(&a.ID, &a.Title, &a.Capacity, &a.AvailableSeats, &a.BasePrice, &a.Status); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) HasActiveBooking(ctx context.Context, holderID, activityID uuid.UUID) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE holder_id = $1 AND activity_id = $2 AND status != 'CANCELLED'
		)
	`, holderID, activityID).Scan(&exists)
	return exists, err
}

func (s *Store) CreateBooking(ctx context.Context, b *domain.Booking, t *domain.Ticket) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx, `
			UPDATE activities SET available_seats = available_seats - 1
			WHERE id = $1 AND available_seats > 0
		`, b.ActivityID)
		if err != nil {
			return err
		}
		if result.RowsAffected() == 0 {
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM activities WHERE id = $1)`, b.ActivityID).Scan(&exists); err != nil {
				return err
			}
			if !exists {
				return domain.ErrActivityNotFound
			}
			return domain.ErrSeatUnavailable
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO bookings (id, activity_id, holder_id, status, quantity, amount_cents, created_at)
			VALUES ($1, $2, $3, 'CONFIRMED', $4, $5, $6)
		`, b.ID, b.ActivityID, b.HolderID, b.Quantity, b.AmountCharged, b.CreatedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
				return domain.ErrDuplicateBooking
			}
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO tickets (booking_id, code, used)
			VALUES ($1, $2, false)
		`, t.BookingID, t.Code)
		return err
	})
}

func (s *Store) GetBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	var b domain.Booking
	err := s.pool.QueryRow(ctx, `
		SELECT id, activity_id, holder_id, status, quantity, amount_cents, created_at, validated_at, validated_by
		FROM bookings WHERE id = $1
	`, id).Scan(&b.ID, &b.ActivityID, &b.HolderID, &b.Status, &b.Quantity, &b.AmountCharged, &b.CreatedAt, &b.ValidatedAt, &b.ValidatedBy)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Store) GetTicket(ctx context.Context, code string) (*domain.Ticket, error) {
	var t domain.Ticket
	err := s.pool.QueryRow(ctx, `
		SELECT booking_id, code, used FROM tickets WHERE code = $1
	`, code).Scan(&t.BookingID, &t.Code, &t.Used)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) TransitionBooking(ctx context.Context, id uuid.UUID, from, to domain.BookingStatus) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx, `
			UPDATE bookings SET status = $3
			WHERE id = $1 AND status = $2
		`, id, from, to)
		if err != nil {
			return err
		}
		if result.RowsAffected() == 0 {
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM bookings WHERE id = $1)`, id).Scan(&exists); err != nil {
				return err
			}
			if !exists {
				return domain.ErrBookingNotFound
			}
			return domain.ErrInvalidTransition
		}

		if to != domain.BookingCancelled {
			return nil
		}
		result, err = tx.Exec(ctx, `
			UPDATE activities SET available_seats = available_seats + 1
			WHERE id = (SELECT activity_id FROM bookings WHERE id = $1)
			AND available_seats < capacity
		`, id)
		if err != nil {
			return err
		}
		if result.RowsAffected() == 0 {
			return domain.ErrAlreadyFull
		}
		return nil
	})
}

// ValidateBooking records attendance: the status change and the ticket
// used flag commit in the same transaction, never one without the
// other.
func (s *Store) ValidateBooking(ctx context.Context, id uuid.UUID, at time.Time, by string) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx, `
			UPDATE bookings SET status = 'ATTENDED', validated_at = $2, validated_by = $3
			WHERE id = $1 AND status = 'CONFIRMED'
		`, id, at, by)
		if err != nil {
			return err
		}
		if result.RowsAffected() == 0 {
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM bookings WHERE id = $1)`, id).Scan(&exists); err != nil {
				return err
			}
			if !exists {
				return domain.ErrBookingNotFound
			}
			return domain.ErrInvalidTransition
		}

		result, err = tx.Exec(ctx, `
			UPDATE tickets SET used = true WHERE booking_id = $1 AND used = false
		`, id)
		if err != nil {
			return err
		}
		if result.RowsAffected() == 0 {
			return domain.ErrInvalidTransition
		}
		return nil
	})
}

func (s *Store) BookingsByHolder(ctx context.Context, holderID uuid.UUID) ([]domain.Booking, error) {
	return s.queryBookings(ctx, `
		SELECT id, activity_id, holder_id, status, quantity, amount_cents, created_at, validated_at, validated_by
		FROM bookings WHERE holder_id = $1
	`, holderID)
}

func (s *Store) BookingsByActivity(ctx context.Context, activityID uuid.UUID) ([]domain.Booking, error) {
	return s.queryBookings(ctx, `
		SELECT id, activity_id, holder_id, status, quantity, amount_cents, created_at, validated_at, validated_by
		FROM bookings WHERE activity_id = $1
	`, activityID)
}

func (s *Store) queryBookings(ctx context.Context, query string, arg interface{}) ([]domain.Booking, error) {
	rows, err := s.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Booking
	for rows.Next() {
		var b domain.Booking
		if err := rows.Scan(&b.ID, &b.ActivityID, &b.HolderID, &b.Status, &b.Quantity, &b.AmountCharged, &b.CreatedAt, &b.ValidatedAt, &b.ValidatedBy); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

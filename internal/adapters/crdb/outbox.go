package crdb

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tripagenda/bookings/internal/domain"
)

// Notification outbox: the API writes rows, the dispatcher worker
// drains them to the broker. SKIP LOCKED keeps concurrent dispatchers
// from shipping the same row twice.

func (s *Store) InsertNotification(ctx context.Context, n domain.Notification) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO notification_outbox (id, holder_id, kind, event_type, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, n.ID, n.HolderID, n.Kind, n.EventType, n.Message, n.CreatedAt)
	return err
}

func (s *Store) UnsentNotifications(ctx context.Context, limit int) ([]domain.Notification, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, holder_id, kind, event_type, message, created_at
		FROM notification_outbox WHERE sent_at IS NULL
		ORDER BY created_at ASC LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.HolderID, &n.Kind, &n.EventType, &n.Message, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) MarkNotificationSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE notification_outbox SET sent_at = $2 WHERE id = $1
	`, id, at)
	return err
}

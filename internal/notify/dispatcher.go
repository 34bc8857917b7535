package notify

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/google/uuid"

	"github.com/tripagenda/bookings/internal/adapters/rabbit"
	"github.com/tripagenda/bookings/internal/domain"
	"github.com/tripagenda/bookings/internal/observability"
)

// OutboxStore is the slice of the store the outbox path needs.
type OutboxStore interface {
	InsertNotification(ctx context.Context, n domain.Notification) error
	UnsentNotifications(ctx context.Context, limit int) ([]domain.Notification, error)
	MarkNotificationSent(ctx context.Context, id uuid.UUID, at time.Time) error
}

// Dispatcher polls the outbox and publishes pending notifications to
// the broker. A record that fails to publish stays unsent and is
// retried on the next tick.
type Dispatcher struct {
	store    OutboxStore
	pub      *rabbit.Publisher
	logger   observability.Logger
	interval time.Duration
	batch    int
}

func NewDispatcher(store OutboxStore, pub *rabbit.Publisher, logger observability.Logger) *Dispatcher {
	return &Dispatcher{
		store:    store,
		pub:      pub,
		logger:   logger,
		interval: 5 * time.Second,
		batch:    50,
	}
}

func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.drain(ctx)
		}
	}
}

func (d *Dispatcher) drain(ctx context.Context) {
	records, err := d.store.UnsentNotifications(ctx, d.batch)
	if err != nil {
		d.logger.WithError(err).Error("outbox poll failed")
		return
	}
	for _, n := range records {
		body, err := json.Marshal(n)
		if err != nil {
			d.logger.WithField("notification_id", n.ID).WithError(err).Error("outbox marshal failed")
			continue
		}
		msg := amqp.Publishing{
			MessageId:   n.ID.String(),
			ContentType: "application/json",
			Body:        body,
		}
		if err := d.pub.Publish(ctx, n.EventType, msg); err != nil {
			observability.NotifyPublishFailures.Inc()
			d.logger.WithField("notification_id", n.ID).WithError(err).Warn("outbox publish failed")
			continue
		}
		if err := d.store.MarkNotificationSent(ctx, n.ID, time.Now()); err != nil {
			d.logger.WithField("notification_id", n.ID).WithError(err).Error("outbox mark sent failed")
		}
	}
}

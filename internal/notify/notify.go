// Package notify carries booking side-effect notifications out of the
// core. Sinks are fire-and-forget from the caller's point of view: the
// lifecycle never waits on delivery.
package notify

import (
	"context"
	"encoding/json"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/tripagenda/bookings/internal/adapters/rabbit"
	"github.com/tripagenda/bookings/internal/domain"
)

// Memory collects notifications in process. Test and dev sink.
type Memory struct {
	mu     sync.Mutex
	events []domain.Notification
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Publish(ctx context.Context, n domain.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, n)
	return nil
}

func (m *Memory) Events() []domain.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Notification, len(m.events))
	copy(out, m.events)
	return out
}

// Rabbit publishes each notification straight to the events exchange,
// routed by event type.
type Rabbit struct {
	pub *rabbit.Publisher
}

func NewRabbit(pub *rabbit.Publisher) *Rabbit {
	return &Rabbit{pub: pub}
}

func (r *Rabbit) Publish(ctx context.Context, n domain.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return r.pub.Publish(ctx, n.EventType, amqp.Publishing{
		MessageId:   n.ID.String(),
		ContentType: "application/json",
		Body:        body,
	})
}

// Outbox writes notifications to the store's outbox table; the
// dispatcher worker ships them to the broker later. This keeps the
// API instance free of a broker connection.
type Outbox struct {
	store OutboxStore
}

func NewOutbox(store OutboxStore) *Outbox {
	return &Outbox{store: store}
}

func (o *Outbox) Publish(ctx context.Context, n domain.Notification) error {
	return o.store.InsertNotification(ctx, n)
}

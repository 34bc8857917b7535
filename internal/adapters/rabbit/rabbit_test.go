package rabbit_test

import (
	"context"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/tripagenda/bookings/internal/adapters/rabbit"
)

func TestPublishConsumeRoundTrip(t *testing.T) {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "rabbitmq:3.13-management",
			ExposedPorts: []string{"5672/tcp", "15672/tcp"},
			WaitingFor:   wait.ForHTTP("/api/health").WithPort("15672"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { container.Terminate(ctx) })

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatal(err)
	}
	port, err := container.MappedPort(ctx, "5672")
	if err != nil {
		t.Fatal(err)
	}

	conn, err := amqp.Dial("amqp://guest:guest@" + host + ":" + port.Port() + "/")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })

	pub, err := rabbit.NewPublisher(conn)
	if err != nil {
		t.Fatal(err)
	}
	consumer, err := rabbit.NewConsumer(conn, "test.notifications", "booking.*")
	if err != nil {
		t.Fatal(err)
	}
	deliveries, err := consumer.Consume()
	if err != nil {
		t.Fatal(err)
	}

	msg := amqp.Publishing{
		MessageId:   "msg-1",
		ContentType: "application/json",
		Body:        []byte(`{"event":"booking.created"}`),
	}
	if err := pub.Publish(ctx, "booking.created", msg); err != nil {
		t.Fatal(err)
	}

	select {
	case d := <-deliveries:
		if d.RoutingKey != "booking.created" {
			t.Errorf("expected routing key booking.created, got %s", d.RoutingKey)
		}
		if string(d.Body) != `{"event":"booking.created"}` {
			t.Errorf("unexpected body: %s", d.Body)
		}
		if err := d.Ack(false); err != nil {
			t.Fatal(err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("no delivery within 10s")
	}

	// The pattern scopes the binding: ticket events do not reach this queue.
	if err := pub.Publish(ctx, "ticket.validated", msg); err != nil {
		t.Fatal(err)
	}
	select {
	case d := <-deliveries:
		t.Fatalf("unexpected delivery for routing key %s", d.RoutingKey)
	case <-time.After(2 * time.Second):
	}
}

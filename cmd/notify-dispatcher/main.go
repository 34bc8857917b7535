package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/tripagenda/bookings/internal/adapters/crdb"
	"github.com/tripagenda/bookings/internal/adapters/rabbit"
	"github.com/tripagenda/bookings/internal/config"
	"github.com/tripagenda/bookings/internal/notify"
	"github.com/tripagenda/bookings/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdownOtel, err := observability.SetupOTel(context.Background(), cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdownOtel()

	logger := observability.NewLogger()

	pool, err := pgxpool.New(context.Background(), cfg.CRDBDSN)
	if err != nil {
		log.Fatalf("failed to connect to crdb: %v", err)
	}
	defer pool.Close()
	store := crdb.NewStore(pool)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer conn.Close()
	pub, err := rabbit.NewPublisher(conn)
	if err != nil {
		log.Fatalf("failed to create publisher: %v", err)
	}

	dispatcher := notify.NewDispatcher(store, pub, logger)

	consumer, err := rabbit.NewConsumer(conn, "bookings.notifications", "#")
	if err != nil {
		log.Fatalf("failed to create consumer: %v", err)
	}
	deliveries, err := consumer.Consume()
	if err != nil {
		log.Fatalf("failed to start consuming: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go dispatcher.Run(ctx)
	go logDeliveries(deliveries, logger)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("Shutdown notify dispatcher")
}

// logDeliveries acknowledges delivered notification events. The queue
// gives operators a live feed of everything the dispatcher published.
func logDeliveries(deliveries <-chan amqp.Delivery, logger observability.Logger) {
	for d := range deliveries {
		logger.
			WithField("routing_key", d.RoutingKey).
			WithField("message_id", d.MessageId).
			Info("notification delivered")
		if err := d.Ack(false); err != nil {
			logger.WithError(err).Warn("delivery ack failed")
		}
	}
}

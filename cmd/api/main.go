package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	redisclient "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tripagenda/bookings/internal/adapters/crdb"
	mongoadapter "github.com/tripagenda/bookings/internal/adapters/mongo"
	redisadapter "github.com/tripagenda/bookings/internal/adapters/redis"
	"github.com/tripagenda/bookings/internal/booking"
	"github.com/tripagenda/bookings/internal/config"
	"github.com/tripagenda/bookings/internal/httpapi"
	"github.com/tripagenda/bookings/internal/idempotency"
	"github.com/tripagenda/bookings/internal/inventory"
	"github.com/tripagenda/bookings/internal/notify"
	"github.com/tripagenda/bookings/internal/observability"
	"github.com/tripagenda/bookings/internal/pricing"
	"github.com/tripagenda/bookings/internal/rategate"
	"github.com/tripagenda/bookings/internal/ticket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdown, err := observability.SetupOTel(context.Background(), cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdown()

	logger := observability.NewLogger()

	pool, err := pgxpool.New(context.Background(), cfg.CRDBDSN)
	if err != nil {
		log.Fatalf("failed to connect to crdb: %v", err)
	}
	defer pool.Close()
	store := crdb.NewStore(pool)

	var recorder ticket.Recorder
	if cfg.MongoURI != "" {
		mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			log.Fatalf("failed to connect to mongo: %v", err)
		}
		defer mongoClient.Disconnect(context.Background())
		recorder = mongoadapter.NewAuditSink(mongoClient.Database("bookings"), logger)
	}

	var gate rategate.Gate
	var replay httpapi.ReplayCache
	if cfg.RedisAddr != "" {
		redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
		replay = idempotency.New(redisadapter.NewIdempotency(redisClient), cfg.IdempotencyTTL)
		if cfg.RateGateRedis {
			gate = rategate.NewRedisWindow(redisadapter.NewCounter(redisClient), cfg.RateWindow, cfg.RateMax)
		}
	}
	if gate == nil {
		fw := rategate.NewFixedWindow(cfg.RateWindow, cfg.RateMax, time.Now)
		go evictLoop(fw, cfg.RateWindow)
		gate = fw
	}

	calc, err := pricing.NewCalculator(cfg.PricingPolicy, pricing.Options{
		EarlyBirdPercent: cfg.EarlyBirdPercent,
		BulkPercent:      cfg.BulkPercent,
		BulkThreshold:    cfg.BulkThreshold,
	})
	if err != nil {
		log.Fatalf("failed to build pricing calculator: %v", err)
	}

	issuer := ticket.NewPipeline([]byte(cfg.TicketSecret), logger, recorder)
	notifier := notify.NewOutbox(store)

	svc := booking.NewService(store, inventory.New(), calc, issuer, notifier, logger, time.Now)
	if err := svc.LoadInventory(context.Background()); err != nil {
		log.Fatalf("failed to load seat inventory: %v", err)
	}

	handlers := httpapi.NewHandlers(svc, replay, logger)
	r := httpapi.SetupRouter(handlers, logger, gate)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()
	logger.WithField("addr", cfg.HTTPAddr).Info("api listening")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown Server ...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}
	logger.Info("Server exiting")
}

func evictLoop(fw *rategate.FixedWindow, window time.Duration) {
	ticker := time.NewTicker(window)
	defer ticker.Stop()
	for range ticker.C {
		fw.EvictIdle(2 * window)
	}
}

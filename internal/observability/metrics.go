package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookings_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "code", "method"},
	)

	BookingsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bookings_created_total",
			Help: "Total bookings confirmed",
		},
	)

	BookingsCancelled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bookings_cancelled_total",
			Help: "Total bookings cancelled",
		},
	)

	TicketsIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bookings_tickets_issued_total",
			Help: "Total tickets issued",
		},
	)

	TicketValidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookings_ticket_validations_total",
			Help: "Ticket validation attempts by outcome",
		},
		[]string{"outcome"},
	)

	SeatCompensations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bookings_seat_compensations_total",
			Help: "Seat releases performed to roll back a failed create",
		},
	)

	ReleaseOverflow = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bookings_release_overflow_total",
			Help: "Releases rejected because seats were already at capacity",
		},
	)

	RateLimitRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bookings_rate_limit_rejections_total",
			Help: "Requests rejected by the rate gate",
		},
	)

	NotifyPublishFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bookings_notify_publish_failures_total",
			Help: "Notification publishes that failed",
		},
	)

	StoreTxDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bookings_store_tx_seconds",
			Help:    "Duration of store transactions",
			Buckets: prometheus.DefBuckets,
		},
	)
)

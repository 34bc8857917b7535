package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"

	"github.com/tripagenda/bookings/internal/domain"
	"github.com/tripagenda/bookings/internal/observability"
	"github.com/tripagenda/bookings/internal/rategate"
)

type ctxKey int

const clientIDKey ctxKey = iota

// ClientIDMiddleware derives the rate-gate client id: the first
// X-Forwarded-For entry when present, else the peer address without
// its port. The core never computes this itself.
func ClientIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Forwarded-For")
		if id == "" {
			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				host = r.RemoteAddr
			}
			id = host
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), clientIDKey, id)))
	})
}

// ClientID returns the id stashed by ClientIDMiddleware.
func ClientID(ctx context.Context) string {
	if id, ok := ctx.Value(clientIDKey).(string); ok {
		return id
	}
	return "unknown"
}

func RateGateMiddleware(gate rategate.Gate) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := gate.Allow(r.Context(), ClientID(r.Context())); err != nil {
				if errors.Is(err, domain.ErrRateLimitExceeded) {
					observability.RateLimitRejections.Inc()
					writeError(w, err)
					return
				}
				writeError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func RequestIDMiddleware(next http.Handler) http.Handler {
	return middleware.RequestID(next)
}

func LoggerMiddleware(logger observability.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			entry := logger.
				WithField("request_id", middleware.GetReqID(r.Context())).
				WithField("client_id", ClientID(r.Context()))
			entry.WithField("path", r.URL.Path).Debug(r.Method)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			observability.RequestsTotal.
				WithLabelValues(r.URL.Path, strconv.Itoa(ww.Status()), r.Method).
				Inc()
		})
	}
}

// IdempotencyKeyMiddleware requires a usable Idempotency-Key header.
// Scoped to booking creation only.
func IdempotencyKeyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("Idempotency-Key")
		if key == "" {
			http.Error(w, "missing Idempotency-Key", http.StatusBadRequest)
			return
		}
		if len(key) < 16 {
			http.Error(w, "invalid Idempotency-Key", http.StatusBadRequest)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func TracingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		tracer := otel.Tracer("httpapi")
		ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path)
		defer span.End()

		span.SetAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.url", r.URL.String()),
		)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

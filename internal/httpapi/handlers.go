// Package httpapi is the thin transport shell: it derives client ids,
// gates request rates, and maps the core's typed results to HTTP
// responses. No booking rules live here.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tripagenda/bookings/internal/booking"
	"github.com/tripagenda/bookings/internal/domain"
	"github.com/tripagenda/bookings/internal/idempotency"
	"github.com/tripagenda/bookings/internal/observability"
)

// ReplayCache stores create responses keyed by Idempotency-Key so a
// retried request replays the first outcome instead of booking again.
// *idempotency.Idempotency is the production implementation.
type ReplayCache interface {
	Get(ctx context.Context, key string) (*idempotency.Response, error)
	Set(ctx context.Context, key string, resp idempotency.Response) error
}

type Handlers struct {
	svc    *booking.Service
	idemp  ReplayCache // nil disables replay
	logger observability.Logger
}

func NewHandlers(svc *booking.Service, idemp ReplayCache, logger observability.Logger) *Handlers {
	return &Handlers{svc: svc, idemp: idemp, logger: logger}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"response encoding failed"}`))
		return nil
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
	return data
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrSeatUnavailable),
		errors.Is(err, domain.ErrDuplicateBooking),
		errors.Is(err, domain.ErrAlreadyFull):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrBookingNotFound),
		errors.Is(err, domain.ErrActivityNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrInvalidSignature):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrRateLimitExceeded):
		status = http.StatusTooManyRequests
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (h *Handlers) CreateBooking(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get("Idempotency-Key")
	if h.idemp != nil && key != "" {
		existing, err := h.idemp.Get(r.Context(), key)
		if err != nil {
			writeError(w, err)
			return
		}
		if existing != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(existing.Status)
			w.Write(existing.Body)
			return
		}
	}

	var req struct {
		ActivityID uuid.UUID `json:"activity_id"`
		HolderID   uuid.UUID `json:"holder_id"`
		Quantity   int       `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	b, t, err := h.svc.Create(r.Context(), req.ActivityID, req.HolderID, req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}

	body := writeJSON(w, http.StatusCreated, map[string]interface{}{
		"booking_id":   b.ID,
		"status":       b.Status,
		"quantity":     b.Quantity,
		"amount_cents": b.AmountCharged,
		"ticket_code":  t.Code,
		"created_at":   b.CreatedAt.Format(time.RFC3339),
	})
	if h.idemp != nil && key != "" {
		if err := h.idemp.Set(r.Context(), key, idempotency.Response{Status: http.StatusCreated, Body: body}); err != nil {
			h.logger.WithError(err).Warn("idempotency store failed")
		}
	}
}

func (h *Handlers) CancelBooking(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid booking id"})
		return
	}
	b, err := h.svc.Cancel(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"booking_id": b.ID,
		"status":     b.Status,
	})
}

func (h *Handlers) ValidateTicket(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code        string `json:"code"`
		ValidatedBy string `json:"validated_by"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	b, err := h.svc.Validate(r.Context(), req.Code, req.ValidatedBy)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"booking_id":   b.ID,
		"status":       b.Status,
		"validated_at": b.ValidatedAt.Format(time.RFC3339),
		"validated_by": b.ValidatedBy,
	})
}

func (h *Handlers) GetBooking(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid booking id"})
		return
	}
	b, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"booking_id":   b.ID,
		"activity_id":  b.ActivityID,
		"holder_id":    b.HolderID,
		"status":       b.Status,
		"quantity":     b.Quantity,
		"amount_cents": b.AmountCharged,
	})
}

func (h *Handlers) GetActivity(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid activity id"})
		return
	}
	a, err := h.svc.Activity(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"activity_id":      a.ID,
		"title":            a.Title,
		"capacity":         a.Capacity,
		"available_seats":  a.AvailableSeats,
		"base_price_cents": a.BasePrice,
		"status":           a.Status,
	})
}

func (h *Handlers) HolderBookings(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid holder id"})
		return
	}
	bookings, err := h.svc.ByHolder(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]map[string]interface{}, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, map[string]interface{}{
			"booking_id":  b.ID,
			"activity_id": b.ActivityID,
			"status":      b.Status,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"bookings": out})
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}

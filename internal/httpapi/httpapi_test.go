package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tripagenda/bookings/internal/adapters/memory"
	"github.com/tripagenda/bookings/internal/booking"
	"github.com/tripagenda/bookings/internal/domain"
	"github.com/tripagenda/bookings/internal/httpapi"
	"github.com/tripagenda/bookings/internal/idempotency"
	"github.com/tripagenda/bookings/internal/inventory"
	"github.com/tripagenda/bookings/internal/notify"
	"github.com/tripagenda/bookings/internal/observability"
	"github.com/tripagenda/bookings/internal/pricing"
	"github.com/tripagenda/bookings/internal/rategate"
	"github.com/tripagenda/bookings/internal/ticket"
)

// fakeReplay is an in-memory httpapi.ReplayCache.
type fakeReplay struct {
	mu    sync.Mutex
	saved map[string]idempotency.Response
}

func newFakeReplay() *fakeReplay {
	return &fakeReplay{saved: make(map[string]idempotency.Response)}
}

func (f *fakeReplay) Get(ctx context.Context, key string) (*idempotency.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.saved[key]
	if !ok {
		return nil, nil
	}
	cp := r
	return &cp, nil
}

func (f *fakeReplay) Set(ctx context.Context, key string, resp idempotency.Response) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved[key] = resp
	return nil
}

func newServer(t *testing.T, capacity, rateMax int) (*httptest.Server, uuid.UUID) {
	t.Helper()
	srv, activityID := newServerWithReplay(t, capacity, rateMax, nil)
	return srv, activityID
}

func newServerWithReplay(t *testing.T, capacity, rateMax int, replay httpapi.ReplayCache) (*httptest.Server, uuid.UUID) {
	t.Helper()

	store := memory.NewStore()
	activityID := uuid.New()
	store.AddActivity(domain.Activity{
		ID:             activityID,
		Title:          "City Tour",
		Capacity:       capacity,
		AvailableSeats: capacity,
		BasePrice:      5000,
		Status:         domain.ActivityUpcoming,
	})

	calc, err := pricing.NewCalculator(pricing.PolicyStandard, pricing.Options{})
	if err != nil {
		t.Fatal(err)
	}
	logger := observability.NewLogger()
	svc := booking.NewService(store, inventory.New(), calc,
		ticket.NewPipeline([]byte("test-secret"), logger, nil),
		notify.NewMemory(), logger, time.Now)
	if err := svc.LoadInventory(t.Context()); err != nil {
		t.Fatal(err)
	}

	gate := rategate.NewFixedWindow(time.Minute, rateMax, time.Now)
	router := httpapi.SetupRouter(httpapi.NewHandlers(svc, replay, logger), logger, gate)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, activityID
}

func createBooking(t *testing.T, srv *httptest.Server, activityID, holderID uuid.UUID) (int, map[string]interface{}) {
	t.Helper()
	return createBookingWithKey(t, srv, activityID, holderID, "k-"+uuid.New().String())
}

func createBookingWithKey(t *testing.T, srv *httptest.Server, activityID, holderID uuid.UUID, key string) (int, map[string]interface{}) {
	t.Helper()
	body, _ := json.Marshal(map[string]interface{}{
		"activity_id": activityID,
		"holder_id":   holderID,
		"quantity":    1,
	})
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/v1/bookings", bytes.NewReader(body))
	req.Header.Set("Idempotency-Key", key)
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func TestBookingFlowOverHTTP(t *testing.T) {
	srv, activityID := newServer(t, 2, 100)

	status, created := createBooking(t, srv, activityID, uuid.New())
	if status != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %v", status, created)
	}
	code, _ := created["ticket_code"].(string)
	if code == "" {
		t.Fatal("response missing ticket_code")
	}

	// Validate the issued ticket.
	body, _ := json.Marshal(map[string]string{"code": code, "validated_by": "staff"})
	resp, err := srv.Client().Post(srv.URL+"/v1/tickets/validate", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	// A second validation is a conflict with the state machine.
	resp, err = srv.Client().Post(srv.URL+"/v1/tickets/validate", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 on re-validation, got %d", resp.StatusCode)
	}
}

func TestDuplicateBookingConflict(t *testing.T) {
	srv, activityID := newServer(t, 5, 100)
	holder := uuid.New()

	if status, _ := createBooking(t, srv, activityID, holder); status != http.StatusCreated {
		t.Fatalf("first create failed: %d", status)
	}
	if status, _ := createBooking(t, srv, activityID, holder); status != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate, got %d", status)
	}
}

func TestSoldOutConflict(t *testing.T) {
	srv, activityID := newServer(t, 1, 100)

	if status, _ := createBooking(t, srv, activityID, uuid.New()); status != http.StatusCreated {
		t.Fatal("first create failed")
	}
	if status, _ := createBooking(t, srv, activityID, uuid.New()); status != http.StatusConflict {
		t.Fatal("expected 409 when sold out")
	}
}

func TestMissingIdempotencyKey(t *testing.T) {
	srv, activityID := newServer(t, 1, 100)
	body, _ := json.Marshal(map[string]interface{}{
		"activity_id": activityID,
		"holder_id":   uuid.New(),
	})
	resp, err := srv.Client().Post(srv.URL+"/v1/bookings", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 without Idempotency-Key, got %d", resp.StatusCode)
	}
}

func TestRateGateReturns429(t *testing.T) {
	srv, activityID := newServer(t, 1, 3)

	url := fmt.Sprintf("%s/v1/activities/%s", srv.URL, activityID)
	for i := 0; i < 3; i++ {
		req, _ := http.NewRequest(http.MethodGet, url, nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.9")
		resp, err := srv.Client().Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, resp.StatusCode)
		}
	}

	req, _ := http.NewRequest(http.MethodGet, url, nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp.StatusCode)
	}

	// A different forwarded client is unaffected.
	req, _ = http.NewRequest(http.MethodGet, url, nil)
	req.Header.Set("X-Forwarded-For", "198.51.100.7")
	resp, err = srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for other client, got %d", resp.StatusCode)
	}
}

func TestIdempotentReplay(t *testing.T) {
	srv, activityID := newServerWithReplay(t, 5, 100, newFakeReplay())
	holder := uuid.New()
	key := "k-" + uuid.New().String()

	status, first := createBookingWithKey(t, srv, activityID, holder, key)
	if status != http.StatusCreated {
		t.Fatalf("first create failed: %d", status)
	}

	// Same key replays the stored response instead of re-booking.
	status, second := createBookingWithKey(t, srv, activityID, holder, key)
	if status != http.StatusCreated {
		t.Fatalf("replay must return the original 201, got %d", status)
	}
	if first["booking_id"] != second["booking_id"] || first["ticket_code"] != second["ticket_code"] {
		t.Fatalf("replay must return the original body: first=%v second=%v", first, second)
	}

	// A fresh key goes through to the service and hits the duplicate guard.
	if status, _ := createBooking(t, srv, activityID, holder); status != http.StatusConflict {
		t.Fatalf("expected 409 for new key, got %d", status)
	}
}

func TestUnknownBooking404(t *testing.T) {
	srv, _ := newServer(t, 1, 100)
	resp, err := srv.Client().Get(srv.URL + "/v1/bookings/" + uuid.New().String())
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

// Package inventory tracks available seats per activity. Reservation
// and release are atomic per activity; operations on different
// activities never contend on the same lock.
package inventory

import (
	"sync"

	"github.com/google/uuid"

	"github.com/tripagenda/bookings/internal/domain"
)

type slot struct {
	mu        sync.Mutex
	capacity  int
	available int
}

// SeatInventory is the in-process admission gate for seats. The
// registry lock only guards slot lookup and registration; seat counts
// are guarded by each slot's own mutex.
type SeatInventory struct {
	mu    sync.RWMutex
	slots map[uuid.UUID]*slot
}

func New() *SeatInventory {
	return &SeatInventory{slots: make(map[uuid.UUID]*slot)}
}

// Register adds an activity's seat slot. Re-registering an id
// overwrites the slot; callers do this only at startup or when an
// activity is created.
func (inv *SeatInventory) Register(activityID uuid.UUID, capacity, available int) error {
	if capacity <= 0 || available < 0 || available > capacity {
		return domain.ErrConfiguration
	}
	inv.mu.Lock()
	defer inv.mu.Unlock()
	inv.slots[activityID] = &slot{capacity: capacity, available: available}
	return nil
}

func (inv *SeatInventory) get(activityID uuid.UUID) (*slot, bool) {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	s, ok := inv.slots[activityID]
	return s, ok
}

// Reserve takes one seat. The availability check and the decrement are
// a single step under the slot lock.
func (inv *SeatInventory) Reserve(activityID uuid.UUID) error {
	s, ok := inv.get(activityID)
	if !ok {
		return domain.ErrActivityNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.available <= 0 {
		return domain.ErrSeatUnavailable
	}
	s.available--
	return nil
}

// Release returns one seat. A release that would push the count past
// capacity fails with ErrAlreadyFull instead of clamping: it means a
// compensation or cancel path released twice.
func (inv *SeatInventory) Release(activityID uuid.UUID) error {
	s, ok := inv.get(activityID)
	if !ok {
		return domain.ErrActivityNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.available >= s.capacity {
		return domain.ErrAlreadyFull
	}
	s.available++
	return nil
}

// Available reports the current seat count for an activity.
func (inv *SeatInventory) Available(activityID uuid.UUID) (int, error) {
	s, ok := inv.get(activityID)
	if !ok {
		return 0, domain.ErrActivityNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.available, nil
}

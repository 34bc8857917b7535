// Package pricing computes the charge for a booking. Calculators are
// pure: no shared state, no clock access beyond the booking time
// passed in.
package pricing

import (
	"time"

	"github.com/cockroachdb/errors"

	"github.com/tripagenda/bookings/internal/domain"
)

type Policy string

const (
	PolicyStandard  Policy = "standard"
	PolicyEarlyBird Policy = "earlybird"
	PolicyBulk      Policy = "bulk"
)

// Calculator applies one pricing policy. Percentages are whole
// percents; arithmetic stays in integer cents.
type Calculator struct {
	policy           Policy
	earlyBirdPercent int64
	bulkPercent      int64
	bulkThreshold    int
}

type Options struct {
	EarlyBirdPercent int64 // default 15
	BulkPercent      int64 // default 20
	BulkThreshold    int   // default 5
}

func NewCalculator(policy Policy, opts Options) (*Calculator, error) {
	switch policy {
	case PolicyStandard, PolicyEarlyBird, PolicyBulk:
	default:
		return nil, errors.Wrapf(domain.ErrConfiguration, "unknown pricing policy %q", policy)
	}
	c := &Calculator{
		policy:           policy,
		earlyBirdPercent: opts.EarlyBirdPercent,
		bulkPercent:      opts.BulkPercent,
		bulkThreshold:    opts.BulkThreshold,
	}
	if c.earlyBirdPercent == 0 {
		c.earlyBirdPercent = 15
	}
	if c.bulkPercent == 0 {
		c.bulkPercent = 20
	}
	if c.bulkThreshold == 0 {
		c.bulkThreshold = 5
	}
	if c.earlyBirdPercent < 0 || c.earlyBirdPercent > 100 || c.bulkPercent < 0 || c.bulkPercent > 100 {
		return nil, errors.Wrap(domain.ErrConfiguration, "discount percent out of range")
	}
	return c, nil
}

// Calculate returns the total charge for quantity seats at basePrice.
//
// The early-bird policy discounts unconditionally: it does not compare
// bookedAt against the activity date. That matches the behavior this
// system has always had; changing it needs a product decision, not a
// code fix.
func (c *Calculator) Calculate(basePrice domain.Cents, bookedAt time.Time, quantity int) domain.Cents {
	total := basePrice * domain.Cents(quantity)
	switch c.policy {
	case PolicyEarlyBird:
		return total - discount(total, c.earlyBirdPercent)
	case PolicyBulk:
		if quantity >= c.bulkThreshold {
			return total - discount(total, c.bulkPercent)
		}
		return total
	default:
		return total
	}
}

func discount(total domain.Cents, percent int64) domain.Cents {
	return total * domain.Cents(percent) / 100
}

package pricing_test

import (
	"errors"
	"testing"
	"time"

	"github.com/tripagenda/bookings/internal/domain"
	"github.com/tripagenda/bookings/internal/pricing"
)

func TestCalculate(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name     string
		policy   pricing.Policy
		base     domain.Cents
		quantity int
		want     domain.Cents
	}{
		{"standard single", pricing.PolicyStandard, 10000, 1, 10000},
		{"standard multi", pricing.PolicyStandard, 10000, 4, 40000},
		{"earlybird takes 15 off", pricing.PolicyEarlyBird, 10000, 2, 17000},
		{"bulk at threshold", pricing.PolicyBulk, 10000, 5, 40000},
		{"bulk below threshold", pricing.PolicyBulk, 10000, 4, 40000},
		{"bulk above threshold", pricing.PolicyBulk, 2000, 10, 16000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			calc, err := pricing.NewCalculator(tc.policy, pricing.Options{})
			if err != nil {
				t.Fatal(err)
			}
			if got := calc.Calculate(tc.base, now, tc.quantity); got != tc.want {
				t.Errorf("got %d cents, want %d", got, tc.want)
			}
		})
	}
}

// The early-bird discount applies regardless of how close the booking
// is to the activity date.
func TestEarlyBirdIgnoresLeadTime(t *testing.T) {
	calc, err := pricing.NewCalculator(pricing.PolicyEarlyBird, pricing.Options{})
	if err != nil {
		t.Fatal(err)
	}
	early := calc.Calculate(10000, time.Now().Add(-30*24*time.Hour), 1)
	late := calc.Calculate(10000, time.Now(), 1)
	if early != late || early != 8500 {
		t.Errorf("expected 8500 for both, got early=%d late=%d", early, late)
	}
}

func TestUnknownPolicy(t *testing.T) {
	_, err := pricing.NewCalculator("vip", pricing.Options{})
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestPercentOutOfRange(t *testing.T) {
	_, err := pricing.NewCalculator(pricing.PolicyBulk, pricing.Options{BulkPercent: 120})
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestCustomBulkThreshold(t *testing.T) {
	calc, err := pricing.NewCalculator(pricing.PolicyBulk, pricing.Options{BulkThreshold: 3, BulkPercent: 10})
	if err != nil {
		t.Fatal(err)
	}
	if got := calc.Calculate(1000, time.Now(), 3); got != 2700 {
		t.Errorf("expected 2700, got %d", got)
	}
	if got := calc.Calculate(1000, time.Now(), 2); got != 2000 {
		t.Errorf("expected 2000, got %d", got)
	}
}

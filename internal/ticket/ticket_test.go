package ticket_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/tripagenda/bookings/internal/domain"
	"github.com/tripagenda/bookings/internal/observability"
	"github.com/tripagenda/bookings/internal/ticket"
)

var secret = []byte("test-signing-secret")

func newPipeline() ticket.Issuer {
	return ticket.NewPipeline(secret, observability.NewLogger(), nil)
}

func TestIssueValidateRoundTrip(t *testing.T) {
	iss := newPipeline()
	code, err := iss.Issue(context.Background(), uuid.New())
	if err != nil {
		t.Fatal(err)
	}
	if err := iss.Validate(context.Background(), code); err != nil {
		t.Fatalf("fresh code must validate, got %v", err)
	}
}

func TestCodeShape(t *testing.T) {
	id := uuid.New()
	code, err := newPipeline().Issue(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(code, "QR-"+id.String()+"-") {
		t.Errorf("unexpected code prefix: %s", code)
	}
	dot := strings.LastIndexByte(code, '.')
	if dot < 0 {
		t.Fatalf("code has no signature: %s", code)
	}
	suffix := code[:dot]
	suffix = suffix[strings.LastIndexByte(suffix, '-')+1:]
	if len(suffix) != 8 {
		t.Errorf("expected 8-char random suffix, got %q", suffix)
	}
}

// Flipping any single character anywhere in the code must fail
// verification.
func TestSingleCharacterCorruption(t *testing.T) {
	iss := newPipeline()
	code, err := iss.Issue(context.Background(), uuid.New())
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < len(code); i++ {
		mutated := []byte(code)
		if mutated[i] == 'x' {
			mutated[i] = 'y'
		} else {
			mutated[i] = 'x'
		}
		if err := iss.Validate(context.Background(), string(mutated)); !errors.Is(err, domain.ErrInvalidSignature) {
			t.Fatalf("corruption at index %d accepted: %q", i, mutated)
		}
	}
}

func TestWrongSecret(t *testing.T) {
	code, err := newPipeline().Issue(context.Background(), uuid.New())
	if err != nil {
		t.Fatal(err)
	}
	other := ticket.NewPipeline([]byte("another-secret"), observability.NewLogger(), nil)
	if err := other.Validate(context.Background(), code); !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestMalformedCodes(t *testing.T) {
	iss := newPipeline()
	for _, code := range []string{
		"",
		"QR-",
		"no-dot-at-all",
		"QR-not-a-uuid-deadbeef.c2ln",
		"QR-" + uuid.New().String() + "-short.c2ln",
		"QR-" + uuid.New().String() + "-DEADBEEF.c2ln",
	} {
		if err := iss.Validate(context.Background(), code); !errors.Is(err, domain.ErrInvalidSignature) {
			t.Errorf("expected ErrInvalidSignature for %q, got %v", code, err)
		}
	}
}

// The base stage only checks shape, so a well-formed raw code passes
// it even without a signature.
func TestBaseValidatesShapeOnly(t *testing.T) {
	raw, err := ticket.Base{}.Issue(context.Background(), uuid.New())
	if err != nil {
		t.Fatal(err)
	}
	if err := (ticket.Base{}).Validate(context.Background(), raw); err != nil {
		t.Fatalf("raw code must pass base validation, got %v", err)
	}
	if err := (ticket.Base{}).Validate(context.Background(), "bogus"); !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

type countingRecorder struct {
	issues      int
	validations int
}

func (r *countingRecorder) RecordIssue(ctx context.Context, bookingID uuid.UUID, code string) error {
	r.issues++
	return nil
}

func (r *countingRecorder) RecordValidation(ctx context.Context, code string, ok bool) error {
	r.validations++
	return nil
}

func TestAuditStageDoesNotChangeOutcome(t *testing.T) {
	rec := &countingRecorder{}
	iss := ticket.NewPipeline(secret, observability.NewLogger(), rec)

	code, err := iss.Issue(context.Background(), uuid.New())
	if err != nil {
		t.Fatal(err)
	}
	if err := iss.Validate(context.Background(), code); err != nil {
		t.Fatalf("valid code rejected: %v", err)
	}
	if err := iss.Validate(context.Background(), code+"x"); !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
	if rec.issues != 1 || rec.validations != 2 {
		t.Errorf("recorder saw issues=%d validations=%d", rec.issues, rec.validations)
	}
}

// Package ticket issues and verifies tamper-evident ticket codes.
//
// An issuer is a pipeline of stages sharing one interface: a base
// stage that mints raw codes, a signing stage that appends an HMAC,
// and an audit stage that records what happened. Stages wrap each
// other explicitly; production wiring composes Audit(Signed(Base)).
package ticket

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/tripagenda/bookings/internal/domain"
)

// Issuer is the capability every pipeline stage implements. Validate
// returns nil for an acceptable code and ErrInvalidSignature for a
// malformed or tampered one.
type Issuer interface {
	Issue(ctx context.Context, bookingID uuid.UUID) (string, error)
	Validate(ctx context.Context, code string) error
}

const codePrefix = "QR-"

// Base mints raw codes of the form "QR-<bookingID>-<8 hex chars>".
type Base struct{}

func (Base) Issue(ctx context.Context, bookingID uuid.UUID) (string, error) {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", errors.Wrap(err, "ticket suffix")
	}
	return codePrefix + bookingID.String() + "-" + hex.EncodeToString(buf[:]), nil
}

// Validate checks raw-code shape only; it knows nothing about
// signatures or bookings.
func (Base) Validate(ctx context.Context, code string) error {
	if !wellFormed(code) {
		return domain.ErrInvalidSignature
	}
	return nil
}

func wellFormed(code string) bool {
	if !strings.HasPrefix(code, codePrefix) {
		return false
	}
	rest := code[len(codePrefix):]
	i := strings.LastIndexByte(rest, '-')
	if i < 0 {
		return false
	}
	id, suffix := rest[:i], rest[i+1:]
	if _, err := uuid.Parse(id); err != nil {
		return false
	}
	if len(suffix) != 8 {
		return false
	}
	_, err := hex.DecodeString(suffix)
	return err == nil && strings.ToLower(suffix) == suffix
}

package ticket

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"

	"github.com/google/uuid"

	"github.com/tripagenda/bookings/internal/domain"
)

// Signed appends "." + base64(HMAC-SHA256(secret, rawCode)) to codes
// produced by the next stage. The signature input is exactly the
// portion before the final dot, so one corrupted bit in either part
// fails verification.
type Signed struct {
	next   Issuer
	secret []byte
}

func NewSigned(next Issuer, secret []byte) *Signed {
	return &Signed{next: next, secret: secret}
}

func (s *Signed) Issue(ctx context.Context, bookingID uuid.UUID) (string, error) {
	raw, err := s.next.Issue(ctx, bookingID)
	if err != nil {
		return "", err
	}
	return raw + "." + s.sign(raw), nil
}

func (s *Signed) Validate(ctx context.Context, code string) error {
	i := strings.LastIndexByte(code, '.')
	if i < 0 {
		return domain.ErrInvalidSignature
	}
	raw, sig := code[:i], code[i+1:]
	if !hmac.Equal([]byte(s.sign(raw)), []byte(sig)) {
		return domain.ErrInvalidSignature
	}
	return s.next.Validate(ctx, raw)
}

func (s *Signed) sign(raw string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(raw))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

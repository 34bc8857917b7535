package ticket

import (
	"context"

	"github.com/google/uuid"

	"github.com/tripagenda/bookings/internal/observability"
)

// Recorder receives audit events from the audit stage. Recording is
// best effort: a failing recorder never changes the pipeline outcome.
type Recorder interface {
	RecordIssue(ctx context.Context, bookingID uuid.UUID, code string) error
	RecordValidation(ctx context.Context, code string, ok bool) error
}

// Audited wraps a stage with observability: a structured log line, a
// counter, and optionally a Recorder document per operation.
type Audited struct {
	next     Issuer
	logger   observability.Logger
	recorder Recorder // may be nil
}

func NewAudited(next Issuer, logger observability.Logger, recorder Recorder) *Audited {
	return &Audited{next: next, logger: logger, recorder: recorder}
}

func (a *Audited) Issue(ctx context.Context, bookingID uuid.UUID) (string, error) {
	code, err := a.next.Issue(ctx, bookingID)
	if err != nil {
		a.logger.WithField("booking_id", bookingID).WithError(err).Error("ticket issue failed")
		return "", err
	}
	observability.TicketsIssued.Inc()
	a.logger.WithField("booking_id", bookingID).Info("ticket issued")
	if a.recorder != nil {
		if rerr := a.recorder.RecordIssue(ctx, bookingID, code); rerr != nil {
			a.logger.WithError(rerr).Warn("ticket audit record failed")
		}
	}
	return code, nil
}

func (a *Audited) Validate(ctx context.Context, code string) error {
	err := a.next.Validate(ctx, code)
	outcome := "valid"
	if err != nil {
		outcome = "invalid"
	}
	observability.TicketValidations.WithLabelValues(outcome).Inc()
	a.logger.WithField("outcome", outcome).Info("ticket validation")
	if a.recorder != nil {
		if rerr := a.recorder.RecordValidation(ctx, code, err == nil); rerr != nil {
			a.logger.WithError(rerr).Warn("ticket audit record failed")
		}
	}
	return err
}

// NewPipeline composes the production stage order.
func NewPipeline(secret []byte, logger observability.Logger, recorder Recorder) Issuer {
	return NewAudited(NewSigned(Base{}, secret), logger, recorder)
}

// Package mongo holds the ticket audit sink: every issue and
// validation attempt becomes a document, separate from the relational
// store so audit volume never competes with booking transactions.
package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/tripagenda/bookings/internal/observability"
)

type AuditSink struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewAuditSink(db *mongo.Database, logger observability.Logger) *AuditSink {
	return &AuditSink{
		coll:   db.Collection("ticket_audit"),
		logger: logger,
	}
}

type auditDoc struct {
	ID        uuid.UUID `bson:"_id"`
	Action    string    `bson:"action"`
	BookingID string    `bson:"booking_id,omitempty"`
	Outcome   string    `bson:"outcome,omitempty"`
	Timestamp time.Time `bson:"timestamp"`
	Data      bson.M    `bson:"data,omitempty"`
}

func (a *AuditSink) insert(ctx context.Context, doc auditDoc) error {
	if _, err := a.coll.InsertOne(ctx, doc); err != nil {
		a.logger.WithError(err).Error("failed to insert ticket audit document")
		return err
	}
	return nil
}

func (a *AuditSink) RecordIssue(ctx context.Context, bookingID uuid.UUID, code string) error {
	return a.insert(ctx, auditDoc{
		ID:        uuid.New(),
		Action:    "ticket.issued",
		BookingID: bookingID.String(),
		Timestamp: time.Now(),
		Data:      bson.M{"code": code},
	})
}

func (a *AuditSink) RecordValidation(ctx context.Context, code string, ok bool) error {
	outcome := "invalid"
	if ok {
		outcome = "valid"
	}
	return a.insert(ctx, auditDoc{
		ID:        uuid.New(),
		Action:    "ticket.validated",
		Outcome:   outcome,
		Timestamp: time.Now(),
		Data:      bson.M{"code": code},
	})
}

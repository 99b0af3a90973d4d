// Package audit writes finished claim operations to the operation log and
// the claims topic.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/AnthonyGillesRudolfo/Siniestros-Gateway/internal/claims"
	"github.com/AnthonyGillesRudolfo/Siniestros-Gateway/internal/events"
	"github.com/AnthonyGillesRudolfo/Siniestros-Gateway/internal/storage/postgres"
)

// Store is the subset of the repository the recorder needs.
type Store interface {
	Available() bool
	InsertOperation(ctx context.Context, rec postgres.OperationRecord) error
}

// Recorder implements claims.Recorder.
type Recorder struct {
	store     Store
	publisher events.Publisher
	topic     string
	logger    *log.Logger
}

// NewRecorder builds a recorder. A nil store or publisher disables that sink.
func NewRecorder(store Store, publisher events.Publisher, topic string, logger *log.Logger) *Recorder {
	if logger == nil {
		logger = log.Default()
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &Recorder{store: store, publisher: publisher, topic: topic, logger: logger}
}

var _ claims.Recorder = (*Recorder)(nil)

// Record stores op and publishes its event. Both sinks are attempted; the
// returned error joins their failures.
func (r *Recorder) Record(ctx context.Context, op claims.Operation) error {
	id := uuid.NewString()

	var errs []error
	if r.store != nil && r.store.Available() {
		rec, err := toRecord(id, op)
		if err == nil {
			err = r.store.InsertOperation(ctx, rec)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("store %s: %w", op.Name, err))
		}
	}

	evt := events.Envelope{
		EventID:     id,
		EventType:   eventType(op.Outcome),
		AggregateID: op.Transaccion,
		OccurredAt:  op.FinishedAt.UTC(),
		Data: events.OperationData{
			Operation:   op.Name,
			Transaccion: op.Transaccion,
			NumSini:     op.NumSini,
			Outcome:     string(op.Outcome),
			Error:       op.Error,
			DurationMS:  op.FinishedAt.Sub(op.StartedAt).Milliseconds(),
		},
	}
	if err := r.publisher.Publish(ctx, r.topic, op.Transaccion, evt); err != nil {
		errs = append(errs, fmt.Errorf("publish %s: %w", evt.EventType, err))
	} else if op.Outcome != claims.OutcomeSucceeded {
		r.logger.Printf("[audit] %s %s transaccion=%s", evt.EventType, op.Name, op.Transaccion)
	}
	return errors.Join(errs...)
}

func toRecord(id string, op claims.Operation) (postgres.OperationRecord, error) {
	rec := postgres.OperationRecord{
		ID:          id,
		Operation:   op.Name,
		Transaccion: op.Transaccion,
		NumSini:     op.NumSini,
		Outcome:     string(op.Outcome),
		Error:       op.Error,
		StartedAt:   op.StartedAt,
		FinishedAt:  op.FinishedAt,
	}
	if op.Result != nil {
		b, err := json.Marshal(op.Result)
		if err != nil {
			return rec, fmt.Errorf("encode result: %w", err)
		}
		rec.Result = b
	}
	return rec, nil
}

func eventType(o claims.Outcome) string {
	switch o {
	case claims.OutcomeFailed:
		return events.ClaimOperationFailed
	case claims.OutcomeFollowUpFailed:
		return events.FollowUpQueryFailed
	default:
		return events.ClaimOperationSucceeded
	}
}

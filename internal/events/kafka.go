package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// Event types published on the claims topic.
const (
	ClaimOperationSucceeded = "ClaimOperationSucceeded"
	ClaimOperationFailed    = "ClaimOperationFailed"
	FollowUpQueryFailed     = "FollowUpQueryFailed"
)

// Envelope is the standard event schema published by the gateway.
// Keep it small and stable.
type Envelope struct {
	EventID      string    `json:"eventId"`
	EventType    string    `json:"eventType"`
	EventVersion string    `json:"eventVersion"`
	OccurredAt   time.Time `json:"occurredAt"`
	AggregateID  string    `json:"aggregateId"` // transaccion
	Data         any       `json:"data"`
}

// OperationData is the payload of every claims event.
type OperationData struct {
	Operation   string `json:"operation"`
	Transaccion string `json:"transaccion"`
	NumSini     string `json:"numSini,omitempty"`
	Outcome     string `json:"outcome"`
	Error       string `json:"error,omitempty"`
	DurationMS  int64  `json:"durationMs"`
}

// Decode parses a message value. Data is decoded into OperationData.
func Decode(value []byte) (Envelope, OperationData, error) {
	var raw struct {
		Envelope
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(value, &raw); err != nil {
		return Envelope{}, OperationData{}, fmt.Errorf("decode envelope: %w", err)
	}
	var data OperationData
	if len(raw.Data) > 0 {
		if err := json.Unmarshal(raw.Data, &data); err != nil {
			return Envelope{}, OperationData{}, fmt.Errorf("decode %s data: %w", raw.EventType, err)
		}
	}
	evt := raw.Envelope
	evt.Data = data
	return evt, data, nil
}

// Publisher publishes claims events.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, evt Envelope) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct{ w messageWriter }

// NewProducer returns a producer for brokers, or a no-op publisher when no
// broker is configured.
func NewProducer(brokers []string) Publisher {
	if len(brokers) == 0 {
		return NoopPublisher{}
	}
	return &Producer{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{}, // partition by Kafka message key
			RequiredAcks:           kafka.RequireOne,
			BatchTimeout:           10 * time.Millisecond,
			AllowAutoTopicCreation: true,
		},
	}
}

func (p *Producer) Close() error { return p.w.Close() }

// Publish writes a single message to Kafka.
// 'key' is the Kafka partition key (use transaccion to keep per-claim ordering).
func (p *Producer) Publish(ctx context.Context, topic, key string, evt Envelope) error {
	if evt.EventID == "" {
		evt.EventID = uuid.NewString()
	}
	if evt.EventVersion == "" {
		evt.EventVersion = "1"
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}
	val, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode %s: %w", evt.EventType, err)
	}
	return p.w.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: val,
	})
}

// NoopPublisher drops every event. Used when Kafka is not configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, string, Envelope) error { return nil }
func (NoopPublisher) Close() error                                            { return nil }

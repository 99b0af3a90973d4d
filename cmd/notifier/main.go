package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/segmentio/kafka-go"

	appconfig "github.com/AnthonyGillesRudolfo/Siniestros-Gateway/internal/config"
	"github.com/AnthonyGillesRudolfo/Siniestros-Gateway/internal/email"
	"github.com/AnthonyGillesRudolfo/Siniestros-Gateway/internal/events"
)

// messageReader is the part of *kafka.Reader the consumer loop uses.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

type notifier struct {
	sender     email.Sender
	to         string
	retryDelay time.Duration
	logger     *log.Logger
}

func main() {
	_ = godotenv.Load()

	cfg, err := appconfig.LoadNotifier()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := log.New(os.Stdout, fmt.Sprintf("[%s] ", cfg.ServiceName), log.LstdFlags|log.Lmicroseconds)

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Kafka.Brokers,
		Topic:    cfg.Kafka.ClaimsTopic,
		GroupID:  cfg.Kafka.AlertsGroup, // its own consumer group
		MinBytes: 1e3, MaxBytes: 10e6,
	})
	defer reader.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	n := &notifier{sender: email.FromEnv(), to: cfg.Email.AlertRecipient, retryDelay: time.Second, logger: logger}
	logger.Printf("[notifier] consuming %s (group=%s)", cfg.Kafka.ClaimsTopic, cfg.Kafka.AlertsGroup)
	if err := n.run(ctx, reader); err != nil {
		logger.Fatalf("[notifier] %v", err)
	}
	logger.Printf("[notifier] stopped")
}

// run consumes until ctx is cancelled. A message is committed once handled;
// send failures are retried after a pause without committing.
func (n *notifier) run(ctx context.Context, reader messageReader) error {
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("read error: %w", err)
		}

		if err := n.handle(msg); err != nil {
			n.logger.Printf("[notifier] %v; retrying offset %d", err, msg.Offset)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(n.retryDelay):
			}
			continue
		}
		if err := reader.CommitMessages(ctx, msg); err != nil {
			n.logger.Printf("[notifier] commit error: %v", err)
		}
	}
}

// handle sends an alert for FollowUpQueryFailed events. Bad payloads and
// other event types are skipped.
func (n *notifier) handle(msg kafka.Message) error {
	evt, data, err := events.Decode(msg.Value)
	if err != nil {
		n.logger.Printf("[notifier] bad JSON: %v; payload=%s", err, string(msg.Value))
		return nil
	}
	if evt.EventType != events.FollowUpQueryFailed {
		return nil
	}

	subject, body, err := email.RenderFollowUpFailedAlert(email.FollowUpAlert{
		Operation:   data.Operation,
		Transaccion: data.Transaccion,
		NumSini:     data.NumSini,
		Error:       data.Error,
		OccurredAt:  evt.OccurredAt,
	})
	if err != nil {
		n.logger.Printf("[notifier] %v", err)
		return nil
	}
	if err := n.sender.Send(n.to, subject, body); err != nil {
		return fmt.Errorf("send alert for %s: %w", data.Transaccion, err)
	}
	n.logger.Printf("[notifier] sent follow-up alert to=%s operation=%s transaccion=%s", n.to, data.Operation, data.Transaccion)
	return nil
}

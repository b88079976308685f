// Package sink mirrors persisted audit events to Kafka so SIEM and reporting
// consumers can tail the trail without querying the primary store. Delivery
// is best-effort: the relational store remains the source of truth and a
// broker outage never affects the drain pipeline.
package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"careledger/internal/audit"
)

// KafkaSink publishes persisted events to a single topic, keyed by actor so
// per-actor ordering survives partitioning.
type KafkaSink struct {
	client *kgo.Client
	topic  string
}

// NewKafkaSink connects a producer-only client to the given brokers.
func NewKafkaSink(brokers []string, topic string) (*KafkaSink, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &KafkaSink{client: client, topic: topic}, nil
}

type eventMessage struct {
	ID          string    `json:"id"`
	ActionName  string    `json:"action_name"`
	Description string    `json:"description"`
	ActorID     string    `json:"actor_id,omitempty"`
	Payload     string    `json:"payload,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Publish produces the batch and waits for broker acknowledgement. The first
// failure is returned for logging; the caller does not retry.
func (s *KafkaSink) Publish(ctx context.Context, events []audit.Event) error {
	records := make([]*kgo.Record, 0, len(events))
	for _, event := range events {
		msg := eventMessage{
			ID:          event.ID.String(),
			ActionName:  event.ActionName,
			Description: event.Description,
			Payload:     event.Payload,
			OccurredAt:  event.OccurredAt,
		}
		var key []byte
		if event.ActorID != nil {
			msg.ActorID = event.ActorID.String()
			key = []byte(msg.ActorID)
		}
		value, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("marshal audit event %s: %w", msg.ID, err)
		}
		records = append(records, &kgo.Record{Topic: s.topic, Key: key, Value: value})
	}

	results := s.client.ProduceSync(ctx, records...)
	if err := results.FirstErr(); err != nil {
		return fmt.Errorf("produce audit events: %w", err)
	}
	return nil
}

// Close flushes and releases the underlying client.
func (s *KafkaSink) Close() {
	s.client.Close()
}

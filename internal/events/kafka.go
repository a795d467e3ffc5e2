package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaPublisher produces transition events to a Kafka topic. Records are
// keyed by key id so all events for one key land on one partition and stay
// ordered.
type KafkaPublisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewKafkaPublisher builds a publisher on an existing franz-go client.
func NewKafkaPublisher(client *kgo.Client, topic string, logger *slog.Logger) (*KafkaPublisher, error) {
	if client == nil {
		return nil, fmt.Errorf("kafka client is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic is required")
	}
	return &KafkaPublisher{client: client, topic: topic, logger: logger}, nil
}

// Publish produces one record synchronously. A synchronous produce keeps the
// at-least-once contract honest: the transition commit already happened, so
// the caller must know the event made it out (or retry the publish).
func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.KeyID),
		Value: payload,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce event %s: %w", event.Name, err)
	}
	if p.logger != nil {
		p.logger.DebugContext(ctx, "published transition event",
			"event", event.Name, "key_id", event.KeyID, "new_state", event.NewState)
	}
	return nil
}

// EnsureTopics creates the given topics if the cluster does not have them.
// Idempotent; safe to run on every startup.
func EnsureTopics(ctx context.Context, client *kgo.Client, partitions int32, topics ...string) error {
	adm := kadm.NewClient(client)
	existing, err := adm.ListTopics(ctx)
	if err != nil {
		return fmt.Errorf("list topics: %w", err)
	}
	var missing []string
	for _, topic := range topics {
		if !existing.Has(topic) {
			missing = append(missing, topic)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	if _, err := adm.CreateTopics(ctx, partitions, 1, nil, missing...); err != nil {
		return fmt.Errorf("create topics: %w", err)
	}
	return nil
}

// Package retry re-queues triggers whose gateway call failed transiently
// and routes exhausted triggers to the dead-letter channel. Local key state
// is never touched between attempts; only exhaustion moves the key to ERROR
// so it stays queryable with the original reason.
package retry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/twmb/franz-go/pkg/kgo"

	"chaveiro/internal/keys/models"
	"chaveiro/internal/platform/metrics"
)

// ErrorMarker surfaces a key as ERROR once its retry budget is spent.
// Implemented by the keys service.
type ErrorMarker interface {
	MarkError(ctx context.Context, keyID string, errMsg string) (*models.Key, error)
}

// MarkerFunc adapts a function to ErrorMarker. The router and the state
// machine reference each other, so main wires the marker through a closure
// bound after both exist.
type MarkerFunc func(ctx context.Context, keyID string, errMsg string) (*models.Key, error)

func (f MarkerFunc) MarkError(ctx context.Context, keyID string, errMsg string) (*models.Key, error) {
	return f(ctx, keyID, errMsg)
}

// KafkaRouter implements ports.RetryRouter on Kafka topics. Retries and
// dead letters are separate topics; the operation rides in a header so the
// dead-letter topic can be filtered per failing operation.
type KafkaRouter struct {
	client      *kgo.Client
	retryTopic  string
	deadTopic   string
	maxAttempts int
	marker      ErrorMarker
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// NewKafkaRouter builds the router. maxAttempts bounds redeliveries; the
// attempt count travels inside the trigger payload.
func NewKafkaRouter(client *kgo.Client, retryTopic, deadTopic string, maxAttempts int, marker ErrorMarker, logger *slog.Logger, m *metrics.Metrics) (*KafkaRouter, error) {
	if client == nil {
		return nil, fmt.Errorf("kafka client is required")
	}
	if retryTopic == "" || deadTopic == "" {
		return nil, fmt.Errorf("retry and dead-letter topics are required")
	}
	if maxAttempts < 1 {
		return nil, fmt.Errorf("max attempts must be at least 1")
	}
	if marker == nil {
		return nil, fmt.Errorf("error marker is required")
	}
	return &KafkaRouter{
		client:      client,
		retryTopic:  retryTopic,
		deadTopic:   deadTopic,
		maxAttempts: maxAttempts,
		marker:      marker,
		logger:      logger,
		metrics:     m,
	}, nil
}

// Route re-queues the trigger, or dead-letters it once the attempt budget
// is spent. Dead-lettering also surfaces the key as ERROR with the original
// failure preserved; resumption from there is an explicit operator action.
func (r *KafkaRouter) Route(ctx context.Context, trigger models.RetryTrigger) error {
	payload, err := json.Marshal(trigger)
	if err != nil {
		return fmt.Errorf("marshal retry trigger: %w", err)
	}
	record := &kgo.Record{
		Key:   []byte(trigger.KeyID),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "operation", Value: []byte(trigger.Operation)},
			{Key: "attempt", Value: []byte(strconv.Itoa(trigger.Attempt))},
		},
	}

	if trigger.Attempt > r.maxAttempts {
		record.Topic = r.deadTopic
		if err := r.client.ProduceSync(ctx, record).FirstErr(); err != nil {
			return fmt.Errorf("produce dead letter: %w", err)
		}
		if r.metrics != nil {
			r.metrics.DeadLetters.Inc()
		}
		reason := fmt.Sprintf("retries exhausted for %s: %s", trigger.Operation, trigger.LastError)
		if trigger.Reason != "" {
			reason = fmt.Sprintf("%s (reason %s)", reason, trigger.Reason)
		}
		if _, err := r.marker.MarkError(ctx, trigger.KeyID, reason); err != nil {
			return fmt.Errorf("mark key after dead letter: %w", err)
		}
		if r.logger != nil {
			r.logger.ErrorContext(ctx, "trigger dead-lettered",
				"operation", trigger.Operation, "key_id", trigger.KeyID, "attempts", trigger.Attempt-1)
		}
		return nil
	}

	record.Topic = r.retryTopic
	if err := r.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce retry: %w", err)
	}
	if r.metrics != nil {
		r.metrics.RetriesRouted.WithLabelValues(string(trigger.Operation)).Inc()
	}
	return nil
}

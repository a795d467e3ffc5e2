package retry

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"chaveiro/internal/keys/models"
)

// TriggerHandler replays a retry trigger through the state machine.
// Implemented by the keys service.
type TriggerHandler interface {
	ApplyTrigger(ctx context.Context, trigger models.RetryTrigger) error
}

// Consumer drains the retry topic and replays triggers. Offsets commit only
// after a trigger is handled, so a crash re-delivers; the state machine's
// idempotency rules make the replay safe.
type Consumer struct {
	client  *kgo.Client
	handler TriggerHandler
	logger  *slog.Logger
}

// NewConsumer wraps an existing consumer-group client subscribed to the
// retry topic.
func NewConsumer(client *kgo.Client, handler TriggerHandler, logger *slog.Logger) *Consumer {
	return &Consumer{client: client, handler: handler, logger: logger}
}

// Run polls until ctx is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		fetches := c.client.PollFetches(ctx)
		if err := ctx.Err(); err != nil {
			return err
		}
		if errs := fetches.Errors(); len(errs) > 0 {
			for _, fe := range errs {
				if c.logger != nil {
					c.logger.WarnContext(ctx, "retry fetch error", "topic", fe.Topic, "error", fe.Err)
				}
			}
		}

		var handled []*kgo.Record
		fetches.EachRecord(func(record *kgo.Record) {
			var trigger models.RetryTrigger
			if err := json.Unmarshal(record.Value, &trigger); err != nil {
				if c.logger != nil {
					c.logger.ErrorContext(ctx, "malformed retry trigger, skipping", "error", err)
				}
				handled = append(handled, record)
				return
			}
			c.waitBackoff(ctx, trigger)
			if err := c.handler.ApplyTrigger(ctx, trigger); err != nil {
				// The trigger stays uncommitted and will re-deliver.
				if c.logger != nil {
					c.logger.WarnContext(ctx, "retry trigger failed",
						"operation", trigger.Operation, "key_id", trigger.KeyID,
						"attempt", trigger.Attempt, "error", err)
				}
				return
			}
			handled = append(handled, record)
		})

		if len(handled) > 0 {
			if err := c.client.CommitRecords(ctx, handled...); err != nil && c.logger != nil {
				c.logger.WarnContext(ctx, "commit retry offsets failed", "error", err)
			}
		}
	}
}

// waitBackoff spaces redeliveries: each attempt waits twice as long as the
// previous one from the recorded failure time, capped at a minute.
func (c *Consumer) waitBackoff(ctx context.Context, trigger models.RetryTrigger) {
	if trigger.FailedAt.IsZero() {
		return
	}
	delay := time.Second << uint(trigger.Attempt-1)
	if delay > time.Minute {
		delay = time.Minute
	}
	wait := time.Until(trigger.FailedAt.Add(delay))
	if wait <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(wait):
	}
}

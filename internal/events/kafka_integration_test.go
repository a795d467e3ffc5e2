//go:build integration

package events_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"chaveiro/internal/events"
	"chaveiro/pkg/testutil/containers"
)

type KafkaPublisherSuite struct {
	suite.Suite
	broker *containers.RedpandaContainer
}

func TestKafkaPublisherSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaPublisherSuite))
}

func (s *KafkaPublisherSuite) SetupSuite() {
	s.broker = containers.NewRedpandaContainer(s.T())
}

func (s *KafkaPublisherSuite) TearDownSuite() {
	if s.broker != nil {
		_ = s.broker.Container.Terminate(context.Background())
	}
}

func (s *KafkaPublisherSuite) TestEnsureTopicsIsIdempotent() {
	ctx := context.Background()
	client := s.broker.NewClient(s.T())

	err := events.EnsureTopics(ctx, client, 3, "chaveiro.ensure-a", "chaveiro.ensure-b")
	s.Require().NoError(err)

	// A second run must not fail on the now-existing topics.
	err = events.EnsureTopics(ctx, client, 3, "chaveiro.ensure-a", "chaveiro.ensure-b")
	s.Require().NoError(err)
}

func (s *KafkaPublisherSuite) TestPublishRoundTrip() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	const topic = "chaveiro.key-events-test"

	producer := s.broker.NewClient(s.T())
	s.Require().NoError(events.EnsureTopics(ctx, producer, 1, topic))

	publisher, err := events.NewKafkaPublisher(producer, topic, nil)
	s.Require().NoError(err)

	sent := events.Event{
		Name:     "key-confirmed",
		KeyID:    "key-123",
		KeyValue: "user@bank.example",
		OldState: "PENDING",
		NewState: "READY",
	}
	s.Require().NoError(publisher.Publish(ctx, sent))

	consumer := s.broker.NewClient(s.T(),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)

	fetches := consumer.PollFetches(ctx)
	s.Require().NoError(fetches.Err())

	records := fetches.Records()
	s.Require().Len(records, 1)
	s.Equal("key-123", string(records[0].Key), "records must be keyed by key id for per-key ordering")

	var got events.Event
	s.Require().NoError(json.Unmarshal(records[0].Value, &got))
	s.Equal(sent.Name, got.Name)
	s.Equal(sent.KeyID, got.KeyID)
	s.Equal(sent.NewState, got.NewState)
	s.False(got.Timestamp.IsZero(), "publisher must stamp events that arrive without a timestamp")
}

//go:build integration

package audit_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"foodbridge/internal/audit"
	"foodbridge/internal/platform/logger"
	"foodbridge/pkg/testutil/containers"
)

func TestKafkaPublisherRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	redpanda := containers.GetManager().GetRedpanda(t)
	topic := "foodbridge.audit.test"

	publisher, err := audit.NewKafkaPublisher(ctx, []string{redpanda.Broker}, topic, logger.New())
	require.NoError(t, err)

	sent := audit.Event{
		Actor:    "recipient-1",
		Action:   audit.ActionMatchCommitted,
		Entity:   "donation",
		EntityID: "donation-1",
		Detail:   "accepted via proposal",
	}
	require.NoError(t, publisher.Emit(ctx, sent))
	require.NoError(t, publisher.Close(ctx))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(redpanda.Broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetchCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	fetches := consumer.PollFetches(fetchCtx)
	require.NoError(t, fetches.Err())

	records := fetches.Records()
	require.Len(t, records, 1)
	require.Equal(t, []byte(sent.EntityID), records[0].Key)

	var got audit.Event
	require.NoError(t, json.Unmarshal(records[0].Value, &got))
	require.Equal(t, sent.Action, got.Action)
	require.Equal(t, sent.Actor, got.Actor)
	require.Equal(t, sent.Detail, got.Detail)
	require.False(t, got.Timestamp.IsZero())
}

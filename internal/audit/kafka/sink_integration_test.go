//go:build integration

package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"commune/internal/audit"
	"commune/pkg/testutil/containers"
)

func TestSink_ProducesAuditEvents(t *testing.T) {
	broker := containers.NewRedpandaContainer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sink, err := New(broker.Brokers, "commune.audit.test")
	require.NoError(t, err)
	defer sink.Close()

	require.NoError(t, sink.EnsureTopic(ctx, 1, 1))
	require.NoError(t, sink.EnsureTopic(ctx, 1, 1), "ensuring an existing topic is a no-op")

	event := audit.Event{
		Timestamp: time.Now().UTC().Truncate(time.Millisecond),
		Action:    audit.ActionConfirmationConfirmed,
		Email:     "ada@example.org",
		Purpose:   "event_join",
	}
	require.NoError(t, sink.Append(ctx, event))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(broker.Brokers...),
		kgo.ConsumeTopics("commune.audit.test"),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	require.NoError(t, fetches.Err())
	records := fetches.Records()
	require.Len(t, records, 1)

	var got audit.Event
	require.NoError(t, json.Unmarshal(records[0].Value, &got))
	assert.Equal(t, event.Action, got.Action)
	assert.Equal(t, event.Email, got.Email)
	assert.Equal(t, string(audit.ActionConfirmationConfirmed), string(records[0].Key))
}

package audit_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warungtech/stockhold/internal/audit"
	"github.com/warungtech/stockhold/internal/events"
)

type memStore struct {
	entries map[string]audit.Entry
}

func (m *memStore) Record(_ context.Context, e audit.Entry) error {
	if _, ok := m.entries[e.EventID]; ok {
		return nil
	}
	m.entries[e.EventID] = e
	return nil
}

func message(t *testing.T, env events.Envelope) kafkago.Message {
	t.Helper()
	b, err := json.Marshal(env)
	require.NoError(t, err)
	return kafkago.Message{Topic: events.TopicReservationCreated, Value: b}
}

func TestHandleEvent(t *testing.T) {
	store := &memStore{entries: map[string]audit.Entry{}}
	svc := &audit.Service{Store: store, ServiceName: "test-auditor", Log: logrus.New()}

	env := events.Envelope{
		EventID:       "ev-1",
		EventType:     events.EventReservationCreated,
		OccurredAt:    time.Now().UTC(),
		Producer:      "test",
		CorrelationID: "res-1",
		Payload:       json.RawMessage(`{"reservation_id":"res-1"}`),
	}

	require.NoError(t, svc.HandleEvent(context.Background(), message(t, env)))
	require.Len(t, store.entries, 1)
	got := store.entries["ev-1"]
	assert.Equal(t, events.EventReservationCreated, got.EventType)
	assert.Equal(t, "res-1", got.CorrelationID)

	t.Run("replay is a no-op", func(t *testing.T) {
		require.NoError(t, svc.HandleEvent(context.Background(), message(t, env)))
		assert.Len(t, store.entries, 1)
	})

	t.Run("malformed payload commits without recording", func(t *testing.T) {
		m := kafkago.Message{Topic: events.TopicCreditClosed, Value: []byte("{not json")}
		require.NoError(t, svc.HandleEvent(context.Background(), m))
		assert.Len(t, store.entries, 1)
	})

	t.Run("missing event id is skipped", func(t *testing.T) {
		env2 := env
		env2.EventID = ""
		require.NoError(t, svc.HandleEvent(context.Background(), message(t, env2)))
		assert.Len(t, store.entries, 1)
	})
}

package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/warungtech/stockhold/internal/events"
	"github.com/warungtech/stockhold/internal/redisx"
)

// Entry is one row of the audit trail.
type Entry struct {
	EventID       string
	EventType     string
	OccurredAt    time.Time
	Producer      string
	CorrelationID string
	Payload       json.RawMessage
}

type Store interface {
	// Record must be idempotent on EventID: replays are no-ops.
	Record(ctx context.Context, e Entry) error
}

// Service is the consumer handler that turns lifecycle events into audit
// trail rows.
type Service struct {
	Store       Store
	Redis       *redis.Client
	ServiceName string
	Log         *logrus.Logger
}

// HandleEvent is wired as the kafka consumer handler.
func (s *Service) HandleEvent(ctx context.Context, m kafkago.Message) error {
	var env events.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		// malformed message, log and commit so it is not retried forever
		s.Log.WithFields(logrus.Fields{"module": "audit", "topic": m.Topic}).
			Warn("skipping malformed event: " + err.Error())
		return nil
	}
	if env.EventID == "" {
		return nil
	}

	// dedup via Redis; the store's conflict handling backstops a miss
	if s.Redis != nil {
		dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
		if exists, _ := redisx.Exists(ctx, s.Redis, dkey); exists {
			return nil
		}
		_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	}

	return s.Store.Record(ctx, Entry{
		EventID:       env.EventID,
		EventType:     env.EventType,
		OccurredAt:    env.OccurredAt,
		Producer:      env.Producer,
		CorrelationID: env.CorrelationID,
		Payload:       env.Payload,
	})
}

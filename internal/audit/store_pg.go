package audit

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PGStore struct{ DB *pgxpool.Pool }

func (s *PGStore) Record(ctx context.Context, e Entry) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO audit_events(event_id, event_type, occurred_at, producer, correlation_id, payload)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (event_id) DO NOTHING`,
		e.EventID, e.EventType, e.OccurredAt, e.Producer, e.CorrelationID, []byte(e.Payload))
	return err
}

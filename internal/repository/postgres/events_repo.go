package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/TwigaDEVs/BitCred/internal/events"
)

type EventRepository struct {
	pool *pgxpool.Pool
}

func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

func (r *EventRepository) InsertChainEvent(ctx context.Context, ev events.ChainEvent) error {
	q := `
INSERT INTO chain_events (id, tx_hash, caller, event_name, payload, chain_time)
VALUES ($1, $2, $3, $4, $5, $6)
`
	_, err := r.pool.Exec(ctx, q, ev.ID, ev.TxHash, ev.Caller, ev.EventName, ev.Payload, ev.ChainTime)
	return err
}

func (r *EventRepository) ListUnprocessed(ctx context.Context, limit int32) ([]events.StoredEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `
SELECT id, event_name, tx_hash, payload, chain_time
FROM chain_events
WHERE processed_at IS NULL
ORDER BY created_at ASC
LIMIT $1
`
	rows, err := r.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []events.StoredEvent{}
	for rows.Next() {
		var ev events.StoredEvent
		if err := rows.Scan(&ev.ID, &ev.EventName, &ev.TxHash, &ev.Payload, &ev.ChainTime); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (r *EventRepository) MarkProcessed(ctx context.Context, eventID string) error {
	q := `UPDATE chain_events SET processed_at = now() WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, eventID)
	return err
}

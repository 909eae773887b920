package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/TwigaDEVs/BitCred/internal/lending"
	"github.com/TwigaDEVs/BitCred/internal/registry"
)

// StoredEvent is a row claimed from the event log for projection.
type StoredEvent struct {
	ID        string
	EventName string
	TxHash    string
	Payload   []byte
	ChainTime uint64
}

type EventSource interface {
	ListUnprocessed(ctx context.Context, limit int32) ([]StoredEvent, error)
	MarkProcessed(ctx context.Context, eventID string) error
}

// ProjectionStore maintains the scores_current and positions_current
// read models.
type ProjectionStore interface {
	ApplyScoreRegistered(ctx context.Context, id, owner string, score uint16, tier uint8, ratioBPS uint32, at uint64) error
	ApplyScoreUpdated(ctx context.Context, id string, newScore uint16, at uint64) error
	ApplyDeposit(ctx context.Context, user, amount, scoreID string, at uint64) error
	ApplyBorrow(ctx context.Context, user, amount string, ratioBPS uint32, at uint64) error
	ApplyRepay(ctx context.Context, user, amount string, at uint64) error
	ApplyWithdraw(ctx context.Context, user, amount string, at uint64) error
	ApplyLiquidation(ctx context.Context, user, liquidator, debtRepaid, collateralSeized string, at uint64) error
}

// errMalformedPayload marks rows that can never be projected; they are
// skipped and marked processed so one bad row cannot wedge the loop.
var errMalformedPayload = errors.New("malformed_payload")

// Indexer replays the committed event log into queryable projections.
type Indexer struct {
	source EventSource
	store  ProjectionStore
	logger *slog.Logger
}

func NewIndexer(source EventSource, store ProjectionStore, logger *slog.Logger) *Indexer {
	return &Indexer{source: source, store: store, logger: logger}
}

func (s *Indexer) RunOnce(ctx context.Context, batchSize int32) error {
	claimed, err := s.source.ListUnprocessed(ctx, batchSize)
	if err != nil {
		return err
	}

	for _, ev := range claimed {
		if err := s.processEvent(ctx, ev); err != nil {
			// Store errors are transient: leave the row claimed-able
			// and retry next tick. Malformed payloads never improve.
			if !errors.Is(err, errMalformedPayload) {
				return err
			}
			s.logger.Error("skipping unprojectable event", "event_id", ev.ID, "event", ev.EventName, "err", err)
		}
		if err := s.source.MarkProcessed(ctx, ev.ID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Indexer) processEvent(ctx context.Context, ev StoredEvent) error {
	switch ev.EventName {
	case registry.EventScoreRegistered:
		var payload registry.ScoreRegisteredEvent
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			return fmt.Errorf("%w: %s: %v", errMalformedPayload, ev.EventName, err)
		}
		return s.store.ApplyScoreRegistered(ctx, payload.ID, string(payload.Owner), payload.Score, payload.Tier, payload.RatioBPS, payload.Timestamp)

	case registry.EventScoreUpdated:
		var payload registry.ScoreUpdatedEvent
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			return fmt.Errorf("%w: %s: %v", errMalformedPayload, ev.EventName, err)
		}
		return s.store.ApplyScoreUpdated(ctx, payload.ID, payload.NewScore, payload.Timestamp)

	case lending.EventCollateralDeposited:
		var payload lending.CollateralDepositedEvent
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			return fmt.Errorf("%w: %s: %v", errMalformedPayload, ev.EventName, err)
		}
		return s.store.ApplyDeposit(ctx, string(payload.User), payload.Amount, payload.ID, ev.ChainTime)

	case lending.EventBorrowed:
		var payload lending.BorrowedEvent
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			return fmt.Errorf("%w: %s: %v", errMalformedPayload, ev.EventName, err)
		}
		return s.store.ApplyBorrow(ctx, string(payload.User), payload.Amount, payload.RatioBPS, ev.ChainTime)

	case lending.EventRepaid:
		var payload lending.RepaidEvent
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			return fmt.Errorf("%w: %s: %v", errMalformedPayload, ev.EventName, err)
		}
		return s.store.ApplyRepay(ctx, string(payload.User), payload.Amount, ev.ChainTime)

	case lending.EventCollateralWithdrawn:
		var payload lending.CollateralWithdrawnEvent
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			return fmt.Errorf("%w: %s: %v", errMalformedPayload, ev.EventName, err)
		}
		return s.store.ApplyWithdraw(ctx, string(payload.User), payload.Amount, ev.ChainTime)

	case lending.EventLiquidated:
		var payload lending.LiquidatedEvent
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			return fmt.Errorf("%w: %s: %v", errMalformedPayload, ev.EventName, err)
		}
		return s.store.ApplyLiquidation(ctx, string(payload.User), string(payload.Liquidator), payload.DebtRepaid, payload.CollateralSeized, ev.ChainTime)

	default:
		// Scorer approval events carry no projection state; skip them.
		return nil
	}
}

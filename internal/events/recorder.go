// Package events persists committed chain events and projects them into
// read models consumed by the API and indexers.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/TwigaDEVs/BitCred/internal/chain"
	"github.com/TwigaDEVs/BitCred/internal/lending"
	"github.com/TwigaDEVs/BitCred/internal/registry"
	"github.com/TwigaDEVs/BitCred/internal/ws"
)

// ChainEvent is the persisted form of one emitted contract event.
type ChainEvent struct {
	ID        string
	TxHash    string
	Caller    string
	EventName string
	Payload   []byte
	ChainTime uint64
}

type EventLog interface {
	InsertChainEvent(ctx context.Context, ev ChainEvent) error
}

type Broadcaster interface {
	Publish(topic string, payload []byte)
}

// Recorder subscribes to the chain environment and fans committed
// events out to the event log and the websocket hub. Reverted
// operations never reach it with events, so indexers only ever see
// committed state.
//
// Committed is called while the environment holds its operation lock,
// so it only enqueues; Run persists and broadcasts on its own
// goroutine so a slow database write never stalls chain operations.
type Recorder struct {
	log    EventLog
	hub    Broadcaster
	logger *slog.Logger
	queue  chan chain.Receipt
}

func NewRecorder(log EventLog, hub Broadcaster, logger *slog.Logger) *Recorder {
	return &Recorder{
		log:    log,
		hub:    hub,
		logger: logger,
		queue:  make(chan chain.Receipt, 256),
	}
}

func (r *Recorder) Committed(receipt chain.Receipt) {
	select {
	case r.queue <- receipt:
	default:
		r.logger.Error("event queue full, dropping receipt", "tx", receipt.TxHash)
	}
}

// Run drains the receipt queue until ctx is cancelled, then flushes
// whatever is still buffered.
func (r *Recorder) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			r.flush()
			return
		case receipt := <-r.queue:
			r.persist(receipt)
		}
	}
}

func (r *Recorder) flush() {
	for {
		select {
		case receipt := <-r.queue:
			r.persist(receipt)
		default:
			return
		}
	}
}

func (r *Recorder) persist(receipt chain.Receipt) {
	for _, ev := range receipt.Events {
		payload, err := json.Marshal(ev.Data)
		if err != nil {
			r.logger.Error("marshal chain event", "event", ev.Name, "err", err)
			continue
		}

		if r.log != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := r.log.InsertChainEvent(ctx, ChainEvent{
				ID:        uuid.NewString(),
				TxHash:    receipt.TxHash,
				Caller:    string(receipt.Caller),
				EventName: ev.Name,
				Payload:   payload,
				ChainTime: receipt.Timestamp,
			})
			cancel()
			if err != nil {
				r.logger.Error("persist chain event", "event", ev.Name, "tx", receipt.TxHash, "err", err)
			}
		}

		if r.hub != nil {
			r.broadcast(ev.Name, payload)
		}
	}
}

func (r *Recorder) Reverted(caller chain.Address, err error) {
	r.logger.Debug("operation reverted", "caller", string(caller), "err", err)
}

func (r *Recorder) broadcast(name string, payload []byte) {
	framed, err := json.Marshal(map[string]any{"event": name, "data": json.RawMessage(payload)})
	if err != nil {
		return
	}

	switch name {
	case registry.EventScoreRegistered, registry.EventScoreUpdated,
		registry.EventScorerApproved, registry.EventScorerRevoked:
		r.hub.Publish(ws.TopicScores, framed)
	case lending.EventCollateralDeposited, lending.EventBorrowed,
		lending.EventRepaid, lending.EventCollateralWithdrawn,
		lending.EventLiquidated:
		r.hub.Publish(ws.TopicPool, framed)
		var scoped struct {
			User string `json:"user"`
		}
		if json.Unmarshal(payload, &scoped) == nil && scoped.User != "" {
			r.hub.Publish(ws.TopicUserPrefix+scoped.User, framed)
		}
	}
}

package events

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/TwigaDEVs/BitCred/internal/chain"
	"github.com/TwigaDEVs/BitCred/internal/registry"
	"github.com/TwigaDEVs/BitCred/internal/ws"
)

type captureLog struct {
	block    chan struct{}
	inserted chan ChainEvent
}

func (l *captureLog) InsertChainEvent(_ context.Context, ev ChainEvent) error {
	if l.block != nil {
		<-l.block
	}
	l.inserted <- ev
	return nil
}

type captureHub struct {
	mu     sync.Mutex
	frames map[string][][]byte
}

func newCaptureHub() *captureHub {
	return &captureHub{frames: map[string][][]byte{}}
}

func (h *captureHub) Publish(topic string, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.frames[topic] = append(h.frames[topic], payload)
}

func (h *captureHub) count(topic string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.frames[topic])
}

func testReceipt() chain.Receipt {
	return chain.Receipt{
		TxHash:    "0xdeadbeef",
		Caller:    "admin",
		Timestamp: 1_700_000_000,
		Events: []chain.Event{
			{Name: registry.EventScoreRegistered, Data: registry.ScoreRegisteredEvent{
				ID: "0xaa", Owner: "alice", Score: 820, Tier: 1, RatioBPS: 11000, Timestamp: 1_700_000_000,
			}},
		},
	}
}

// Committed runs under the environment's operation lock, so it must
// return without waiting on the event log.
func TestCommittedReturnsWithoutTouchingEventLog(t *testing.T) {
	log := &captureLog{block: make(chan struct{}), inserted: make(chan ChainEvent, 4)}
	rec := NewRecorder(log, newCaptureHub(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	done := make(chan struct{})
	go func() {
		rec.Committed(testReceipt())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Committed blocked on the event log")
	}

	// Run performs the insert once the log unblocks.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go rec.Run(ctx)

	close(log.block)
	select {
	case ev := <-log.inserted:
		if ev.EventName != registry.EventScoreRegistered {
			t.Fatalf("expected %s, got %s", registry.EventScoreRegistered, ev.EventName)
		}
		if ev.TxHash != "0xdeadbeef" || ev.ChainTime != 1_700_000_000 {
			t.Fatalf("unexpected event row: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("Run never persisted the queued receipt")
	}
}

func TestRunPersistsAndBroadcastsQueuedReceipts(t *testing.T) {
	log := &captureLog{inserted: make(chan ChainEvent, 4)}
	hub := newCaptureHub()
	rec := NewRecorder(log, hub, slog.New(slog.NewTextHandler(io.Discard, nil)))

	rec.Committed(testReceipt())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go rec.Run(ctx)

	select {
	case ev := <-log.inserted:
		var payload registry.ScoreRegisteredEvent
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			t.Fatalf("unmarshal persisted payload: %v", err)
		}
		if payload.Score != 820 || payload.ID != "0xaa" {
			t.Fatalf("unexpected payload: %+v", payload)
		}
	case <-time.After(time.Second):
		t.Fatal("receipt never persisted")
	}

	deadline := time.After(time.Second)
	for hub.count(ws.TopicScores) == 0 {
		select {
		case <-deadline:
			t.Fatal("receipt never broadcast to the scores topic")
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
}

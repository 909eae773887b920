package chain

import (
	"encoding/binary"
	"encoding/hex"
	"sync"
	"time"

	"golang.org/x/crypto/sha3"
)

// Env executes public contract operations one at a time. Each call to
// Execute is a single atomic unit: the clock is read exactly once, every
// state write registered through the Tx journal is undone if the
// operation returns an error, and buffered events reach observers only
// on commit.
type Env struct {
	mu        sync.Mutex
	now       func() time.Time
	nonce     uint64
	observers []Observer
}

func NewEnv() *Env {
	return &Env{
		now: func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the clock. Tests use this to drive cooldowns and
// interest accrual deterministically.
func (e *Env) SetClock(now func() time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = now
}

func (e *Env) AddObserver(obs Observer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers = append(e.observers, obs)
}

// NowUnix exposes the environment clock for pure reads that need a
// consistent "now" outside of an operation.
func (e *Env) NowUnix() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return uint64(e.now().Unix())
}

// View runs fn under the same lock Execute holds. Every read that can
// run concurrently with operations (API handlers, the keeper sweep)
// must go through here; contract state has no locking of its own.
func (e *Env) View(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn()
}

// Execute runs fn as one atomic operation on behalf of caller. On error
// every journaled write is reverted in reverse order and no events are
// published.
func (e *Env) Execute(caller Address, fn func(tx *Tx) error) (*Receipt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	tx := &Tx{
		Caller:    caller,
		Timestamp: uint64(e.now().Unix()),
	}

	if err := fn(tx); err != nil {
		tx.revert()
		for _, obs := range e.observers {
			obs.Reverted(caller, err)
		}
		return nil, err
	}

	e.nonce++
	receipt := Receipt{
		TxHash:    txHash(caller, e.nonce, tx.Timestamp),
		Caller:    caller,
		Timestamp: tx.Timestamp,
		Events:    tx.events,
	}
	for _, obs := range e.observers {
		obs.Committed(receipt)
	}
	return &receipt, nil
}

func txHash(caller Address, nonce, timestamp uint64) string {
	h := sha3.NewLegacyKeccak256()
	_, _ = h.Write([]byte(caller))
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], nonce)
	binary.BigEndian.PutUint64(buf[8:], timestamp)
	_, _ = h.Write(buf[:])
	return "0x" + hex.EncodeToString(h.Sum(nil))
}

// Tx is the per-operation view handed to contract code: the caller, the
// single timestamp for this logical "now", the revert journal, and the
// event buffer.
type Tx struct {
	Caller    Address
	Timestamp uint64

	undo   []func()
	events []Event
}

// OnRevert registers a compensating write. Contracts call this before
// every map or aggregate mutation so a failed operation leaves no trace.
func (tx *Tx) OnRevert(fn func()) {
	tx.undo = append(tx.undo, fn)
}

func (tx *Tx) Emit(name string, data any) {
	tx.events = append(tx.events, Event{Name: name, Data: data})
}

func (tx *Tx) revert() {
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.undo = nil
	tx.events = nil
}

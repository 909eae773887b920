package registry

import (
	"errors"

	"github.com/TwigaDEVs/BitCred/internal/chain"
)

const (
	ScoreMin uint16 = 650
	ScoreMax uint16 = 850

	// Minimum elapsed time between score updates: 30 days.
	UpdateCooldownSeconds uint64 = 2_592_000

	// Ratio applied to identifiers with no registered score.
	DefaultRatioBPS uint32 = 15000
)

var (
	ErrInvalidRange      = errors.New("invalid_range")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrAlreadyRegistered = errors.New("already_registered")
	ErrNotRegistered     = errors.New("not_registered")
	ErrCooldownActive    = errors.New("cooldown_active")
	ErrAdminOnly         = errors.New("admin_only")
)

// ScoreRecord is the on-chain state for one Bitcoin address hash.
// Score 0 is the one and only representation of "unregistered"; a
// registered record always carries a score in [650, 850].
type ScoreRecord struct {
	Score       uint16
	Owner       chain.Address
	LastUpdated uint64
}

// TierForScore maps a score to its tier and collateral ratio in basis
// points. Thresholds are evaluated top down; 0 means unregistered.
func TierForScore(score uint16) (tier uint8, ratioBPS uint32) {
	switch {
	case score == 0:
		return 0, DefaultRatioBPS
	case score >= 800:
		return 1, 11000
	case score >= 750:
		return 2, 11500
	case score >= 700:
		return 3, 12000
	default:
		return 4, 13000
	}
}

type ScoreRegisteredEvent struct {
	ID        string        `json:"id"`
	Owner     chain.Address `json:"owner"`
	Score     uint16        `json:"score"`
	Tier      uint8         `json:"tier"`
	RatioBPS  uint32        `json:"ratio_bps"`
	Timestamp uint64        `json:"timestamp"`
}

type ScoreUpdatedEvent struct {
	ID        string `json:"id"`
	OldScore  uint16 `json:"old_score"`
	NewScore  uint16 `json:"new_score"`
	Timestamp uint64 `json:"timestamp"`
}

type ScorerApprovedEvent struct {
	Scorer chain.Address `json:"scorer"`
}

type ScorerRevokedEvent struct {
	Scorer chain.Address `json:"scorer"`
}

const (
	EventScoreRegistered = "ScoreRegistered"
	EventScoreUpdated    = "ScoreUpdated"
	EventScorerApproved  = "ScorerApproved"
	EventScorerRevoked   = "ScorerRevoked"
)

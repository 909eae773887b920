package registry

import (
	"math/big"

	"github.com/TwigaDEVs/BitCred/internal/chain"
)

// Registry maps Bitcoin address hashes to credibility scores and owns
// scorer authorization. Records are created once, updated under a
// 30-day cooldown, and never deleted.
type Registry struct {
	acl     *AccessControl
	records map[chain.Hash]ScoreRecord
}

func New(admin chain.Address) *Registry {
	return &Registry{
		acl:     NewAccessControl(admin),
		records: map[chain.Hash]ScoreRecord{},
	}
}

// RegisterScore stores a new score for id. The proof payload is carried
// opaquely for future verification and is not interpreted here.
func (r *Registry) RegisterScore(tx *chain.Tx, id chain.Hash, score uint16, proof []*big.Int) error {
	_ = proof
	if score < ScoreMin || score > ScoreMax {
		return ErrInvalidRange
	}
	if !r.acl.IsApprovedScorer(tx.Caller) {
		return ErrUnauthorized
	}
	if existing, ok := r.records[id]; ok && existing.Score != 0 {
		return ErrAlreadyRegistered
	}

	r.writeRecord(tx, id, ScoreRecord{
		Score:       score,
		Owner:       tx.Caller,
		LastUpdated: tx.Timestamp,
	})

	tier, ratio := TierForScore(score)
	tx.Emit(EventScoreRegistered, ScoreRegisteredEvent{
		ID:        id.Hex(),
		Owner:     tx.Caller,
		Score:     score,
		Tier:      tier,
		RatioBPS:  ratio,
		Timestamp: tx.Timestamp,
	})
	return nil
}

// UpdateScore overwrites an existing record's score, gated by the update
// cooldown. The record owner is unchanged.
func (r *Registry) UpdateScore(tx *chain.Tx, id chain.Hash, newScore uint16, proof []*big.Int) error {
	_ = proof
	if newScore < ScoreMin || newScore > ScoreMax {
		return ErrInvalidRange
	}
	existing, ok := r.records[id]
	if !ok || existing.Score == 0 {
		return ErrNotRegistered
	}
	if tx.Caller != existing.Owner && !r.acl.IsApprovedScorer(tx.Caller) {
		return ErrUnauthorized
	}
	if tx.Timestamp < existing.LastUpdated+UpdateCooldownSeconds {
		return ErrCooldownActive
	}

	oldScore := existing.Score
	existing.Score = newScore
	existing.LastUpdated = tx.Timestamp
	r.writeRecord(tx, id, existing)

	tx.Emit(EventScoreUpdated, ScoreUpdatedEvent{
		ID:        id.Hex(),
		OldScore:  oldScore,
		NewScore:  newScore,
		Timestamp: tx.Timestamp,
	})
	return nil
}

func (r *Registry) ApproveScorer(tx *chain.Tx, account chain.Address) error {
	if !r.acl.IsAdmin(tx.Caller) {
		return ErrAdminOnly
	}
	r.acl.setApproved(tx, account, true)
	tx.Emit(EventScorerApproved, ScorerApprovedEvent{Scorer: account})
	return nil
}

func (r *Registry) RevokeScorer(tx *chain.Tx, account chain.Address) error {
	if !r.acl.IsAdmin(tx.Caller) {
		return ErrAdminOnly
	}
	r.acl.setApproved(tx, account, false)
	tx.Emit(EventScorerRevoked, ScorerRevokedEvent{Scorer: account})
	return nil
}

// GetScore returns 0 for unknown identifiers.
func (r *Registry) GetScore(id chain.Hash) uint16 {
	return r.records[id].Score
}

func (r *Registry) GetOwner(id chain.Hash) chain.Address {
	return r.records[id].Owner
}

func (r *Registry) GetLastUpdated(id chain.Hash) uint64 {
	return r.records[id].LastUpdated
}

// GetCollateralRatio returns the tier ratio in basis points, or the
// default 15000 for an unregistered identifier.
func (r *Registry) GetCollateralRatio(id chain.Hash) uint32 {
	_, ratio := TierForScore(r.records[id].Score)
	return ratio
}

func (r *Registry) GetScoreTier(id chain.Hash) uint8 {
	tier, _ := TierForScore(r.records[id].Score)
	return tier
}

func (r *Registry) IsApprovedScorer(account chain.Address) bool {
	return r.acl.IsApprovedScorer(account)
}

func (r *Registry) Admin() chain.Address {
	return r.acl.Admin()
}

func (r *Registry) writeRecord(tx *chain.Tx, id chain.Hash, rec ScoreRecord) {
	prev, existed := r.records[id]
	tx.OnRevert(func() {
		if existed {
			r.records[id] = prev
		} else {
			delete(r.records, id)
		}
	})
	r.records[id] = rec
}

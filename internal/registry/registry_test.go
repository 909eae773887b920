package registry

import (
	"errors"
	"testing"
	"time"

	"github.com/TwigaDEVs/BitCred/internal/chain"
)

const (
	admin  = chain.Address("admin")
	scorer = chain.Address("scorer")
	rando  = chain.Address("rando")
)

func newTestEnv(startUnix int64) (*chain.Env, *int64) {
	now := startUnix
	env := chain.NewEnv()
	env.SetClock(func() time.Time { return time.Unix(now, 0).UTC() })
	return env, &now
}

func register(t *testing.T, env *chain.Env, reg *Registry, caller chain.Address, id chain.Hash, score uint16) error {
	t.Helper()
	_, err := env.Execute(caller, func(tx *chain.Tx) error {
		return reg.RegisterScore(tx, id, score, nil)
	})
	return err
}

func TestRegisterScoreRange(t *testing.T) {
	env, _ := newTestEnv(1_700_000_000)
	reg := New(admin)
	id := chain.HashBTCAddress("bc1qrange")

	for _, score := range []uint16{0, 1, 649} {
		if err := register(t, env, reg, admin, id, score); !errors.Is(err, ErrInvalidRange) {
			t.Fatalf("score %d: expected invalid_range, got %v", score, err)
		}
	}
	if err := register(t, env, reg, admin, id, 851); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected invalid_range for 851, got %v", err)
	}
	if err := register(t, env, reg, admin, id, 650); err != nil {
		t.Fatalf("650 should register: %v", err)
	}

	high := chain.HashBTCAddress("bc1qhigh")
	if err := register(t, env, reg, admin, high, 850); err != nil {
		t.Fatalf("850 should register: %v", err)
	}
}

func TestRegisterScoreAuthorization(t *testing.T) {
	env, _ := newTestEnv(1_700_000_000)
	reg := New(admin)
	id := chain.HashBTCAddress("bc1qauth")

	if err := register(t, env, reg, rando, id, 700); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}

	if _, err := env.Execute(admin, func(tx *chain.Tx) error {
		return reg.ApproveScorer(tx, scorer)
	}); err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if err := register(t, env, reg, scorer, id, 700); err != nil {
		t.Fatalf("approved scorer should register: %v", err)
	}
	if reg.GetOwner(id) != scorer {
		t.Fatalf("owner should be registering caller, got %q", reg.GetOwner(id))
	}
}

func TestRegisterScoreOncePerIdentifier(t *testing.T) {
	env, _ := newTestEnv(1_700_000_000)
	reg := New(admin)
	id := chain.HashBTCAddress("bc1qonce")

	if err := register(t, env, reg, admin, id, 720); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	if err := register(t, env, reg, admin, id, 800); !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("expected already_registered, got %v", err)
	}
	if reg.GetScore(id) != 720 {
		t.Fatalf("score mutated by rejected registration: %d", reg.GetScore(id))
	}
}

func TestTierTable(t *testing.T) {
	cases := []struct {
		score uint16
		tier  uint8
		ratio uint32
	}{
		{820, 1, 11000},
		{760, 2, 11500},
		{720, 3, 12000},
		{660, 4, 13000},
		{650, 4, 13000},
		{699, 4, 13000},
		{700, 3, 12000},
		{749, 3, 12000},
		{750, 2, 11500},
		{799, 2, 11500},
		{800, 1, 11000},
		{850, 1, 11000},
	}
	for _, tc := range cases {
		tier, ratio := TierForScore(tc.score)
		if tier != tc.tier || ratio != tc.ratio {
			t.Fatalf("score %d: got tier %d ratio %d, want %d/%d", tc.score, tier, ratio, tc.tier, tc.ratio)
		}
	}

	tier, ratio := TierForScore(0)
	if tier != 0 || ratio != DefaultRatioBPS {
		t.Fatalf("unregistered: got %d/%d", tier, ratio)
	}
}

func TestUnregisteredReads(t *testing.T) {
	reg := New(admin)
	id := chain.HashBTCAddress("bc1qunknown")

	if reg.GetScore(id) != 0 {
		t.Fatal("unknown id must read as score 0")
	}
	if reg.GetScoreTier(id) != 0 {
		t.Fatal("unknown id must read as tier 0")
	}
	if reg.GetCollateralRatio(id) != DefaultRatioBPS {
		t.Fatalf("unknown id ratio %d, want %d", reg.GetCollateralRatio(id), DefaultRatioBPS)
	}
	if reg.GetOwner(id) != "" {
		t.Fatal("unknown id must have empty owner")
	}
	if reg.GetLastUpdated(id) != 0 {
		t.Fatal("unknown id must have zero timestamp")
	}
}

func TestUpdateScoreCooldown(t *testing.T) {
	start := int64(1_700_000_000)
	env, now := newTestEnv(start)
	reg := New(admin)
	id := chain.HashBTCAddress("bc1qcooldown")

	if err := register(t, env, reg, admin, id, 700); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	update := func(score uint16) error {
		_, err := env.Execute(admin, func(tx *chain.Tx) error {
			return reg.UpdateScore(tx, id, score, nil)
		})
		return err
	}

	*now = start + int64(UpdateCooldownSeconds) - 1
	if err := update(750); !errors.Is(err, ErrCooldownActive) {
		t.Fatalf("one second early: expected cooldown_active, got %v", err)
	}

	*now = start + int64(UpdateCooldownSeconds)
	if err := update(750); err != nil {
		t.Fatalf("update at exact cooldown boundary failed: %v", err)
	}
	if reg.GetScore(id) != 750 {
		t.Fatalf("score not updated: %d", reg.GetScore(id))
	}
	if reg.GetLastUpdated(id) != uint64(*now) {
		t.Fatalf("last_updated not refreshed: %d", reg.GetLastUpdated(id))
	}
}

func TestUpdateScoreAuthorization(t *testing.T) {
	start := int64(1_700_000_000)
	env, now := newTestEnv(start)
	reg := New(admin)
	id := chain.HashBTCAddress("bc1qowner")

	if _, err := env.Execute(admin, func(tx *chain.Tx) error {
		return reg.ApproveScorer(tx, scorer)
	}); err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if err := register(t, env, reg, scorer, id, 700); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	*now = start + int64(UpdateCooldownSeconds)
	if _, err := env.Execute(rando, func(tx *chain.Tx) error {
		return reg.UpdateScore(tx, id, 710, nil)
	}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}

	// The record owner may update even after losing scorer approval.
	if _, err := env.Execute(admin, func(tx *chain.Tx) error {
		return reg.RevokeScorer(tx, scorer)
	}); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if _, err := env.Execute(scorer, func(tx *chain.Tx) error {
		return reg.UpdateScore(tx, id, 710, nil)
	}); err != nil {
		t.Fatalf("owner update failed: %v", err)
	}
	if reg.GetOwner(id) != scorer {
		t.Fatal("owner must not change on update")
	}
}

func TestUpdateScoreUnknownIdentifier(t *testing.T) {
	env, _ := newTestEnv(1_700_000_000)
	reg := New(admin)

	_, err := env.Execute(admin, func(tx *chain.Tx) error {
		return reg.UpdateScore(tx, chain.HashBTCAddress("bc1qnothere"), 700, nil)
	})
	if !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("expected not_registered, got %v", err)
	}
}

func TestScorerApprovalLifecycle(t *testing.T) {
	env, _ := newTestEnv(1_700_000_000)
	reg := New(admin)

	if reg.IsApprovedScorer(admin) != true {
		t.Fatal("admin must be implicitly approved")
	}
	if reg.IsApprovedScorer(scorer) {
		t.Fatal("scorer approved before approval")
	}

	if _, err := env.Execute(rando, func(tx *chain.Tx) error {
		return reg.ApproveScorer(tx, scorer)
	}); !errors.Is(err, ErrAdminOnly) {
		t.Fatalf("expected admin_only, got %v", err)
	}

	receipt, err := env.Execute(admin, func(tx *chain.Tx) error {
		return reg.ApproveScorer(tx, scorer)
	})
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if len(receipt.Events) != 1 || receipt.Events[0].Name != EventScorerApproved {
		t.Fatalf("unexpected events %+v", receipt.Events)
	}
	if !reg.IsApprovedScorer(scorer) {
		t.Fatal("scorer not approved")
	}

	if _, err := env.Execute(admin, func(tx *chain.Tx) error {
		return reg.RevokeScorer(tx, scorer)
	}); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if reg.IsApprovedScorer(scorer) {
		t.Fatal("scorer still approved after revoke")
	}
}

func TestRegistrationEventPayload(t *testing.T) {
	env, _ := newTestEnv(1_700_000_000)
	reg := New(admin)
	id := chain.HashBTCAddress("bc1qevent")

	receipt, err := env.Execute(admin, func(tx *chain.Tx) error {
		return reg.RegisterScore(tx, id, 820, nil)
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if len(receipt.Events) != 1 {
		t.Fatalf("expected one event, got %d", len(receipt.Events))
	}
	ev, ok := receipt.Events[0].Data.(ScoreRegisteredEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", receipt.Events[0].Data)
	}
	if ev.Score != 820 || ev.Tier != 1 || ev.RatioBPS != 11000 || ev.Owner != admin {
		t.Fatalf("bad payload %+v", ev)
	}
}

func TestReadsAreIdempotent(t *testing.T) {
	env, _ := newTestEnv(1_700_000_000)
	reg := New(admin)
	id := chain.HashBTCAddress("bc1qpure")
	if err := register(t, env, reg, admin, id, 760); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	first := [5]any{reg.GetScore(id), reg.GetOwner(id), reg.GetLastUpdated(id), reg.GetCollateralRatio(id), reg.GetScoreTier(id)}
	second := [5]any{reg.GetScore(id), reg.GetOwner(id), reg.GetLastUpdated(id), reg.GetCollateralRatio(id), reg.GetScoreTier(id)}
	if first != second {
		t.Fatalf("reads not idempotent: %v vs %v", first, second)
	}
}

package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ProjectionRepository maintains the indexer's read models:
// scores_current mirrors the registry, positions_current mirrors the
// pool's stored principal and collateral (interest accrues on-chain,
// not here).
type ProjectionRepository struct {
	pool *pgxpool.Pool
}

func NewProjectionRepository(pool *pgxpool.Pool) *ProjectionRepository {
	return &ProjectionRepository{pool: pool}
}

func (r *ProjectionRepository) ApplyScoreRegistered(ctx context.Context, id, owner string, score uint16, tier uint8, ratioBPS uint32, at uint64) error {
	q := `
INSERT INTO scores_current (id_hash, owner, score, tier, ratio_bps, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id_hash) DO UPDATE
SET owner = EXCLUDED.owner, score = EXCLUDED.score, tier = EXCLUDED.tier,
    ratio_bps = EXCLUDED.ratio_bps, updated_at = EXCLUDED.updated_at
`
	_, err := r.pool.Exec(ctx, q, id, owner, int32(score), int16(tier), int64(ratioBPS), int64(at))
	return err
}

func (r *ProjectionRepository) ApplyScoreUpdated(ctx context.Context, id string, newScore uint16, at uint64) error {
	q := `
UPDATE scores_current
SET score = $2,
    tier = CASE WHEN $2 >= 800 THEN 1 WHEN $2 >= 750 THEN 2 WHEN $2 >= 700 THEN 3 ELSE 4 END,
    ratio_bps = CASE WHEN $2 >= 800 THEN 11000 WHEN $2 >= 750 THEN 11500 WHEN $2 >= 700 THEN 12000 ELSE 13000 END,
    updated_at = $3
WHERE id_hash = $1
`
	_, err := r.pool.Exec(ctx, q, id, int32(newScore), int64(at))
	return err
}

func (r *ProjectionRepository) ApplyDeposit(ctx context.Context, user, amount, scoreID string, at uint64) error {
	q := `
INSERT INTO positions_current (account, collateral, principal, score_id_hash, updated_at)
VALUES ($1, $2::numeric, 0, $3, $4)
ON CONFLICT (account) DO UPDATE
SET collateral = positions_current.collateral + EXCLUDED.collateral,
    score_id_hash = EXCLUDED.score_id_hash,
    updated_at = EXCLUDED.updated_at
`
	_, err := r.pool.Exec(ctx, q, user, amount, scoreID, int64(at))
	return err
}

func (r *ProjectionRepository) ApplyBorrow(ctx context.Context, user, amount string, ratioBPS uint32, at uint64) error {
	q := `
UPDATE positions_current
SET principal = principal + $2::numeric, ratio_bps = $3, updated_at = $4
WHERE account = $1
`
	_, err := r.pool.Exec(ctx, q, user, amount, int64(ratioBPS), int64(at))
	return err
}

func (r *ProjectionRepository) ApplyRepay(ctx context.Context, user, amount string, at uint64) error {
	q := `
UPDATE positions_current
SET principal = GREATEST(principal - $2::numeric, 0), updated_at = $3
WHERE account = $1
`
	_, err := r.pool.Exec(ctx, q, user, amount, int64(at))
	return err
}

func (r *ProjectionRepository) ApplyWithdraw(ctx context.Context, user, amount string, at uint64) error {
	q := `
UPDATE positions_current
SET collateral = GREATEST(collateral - $2::numeric, 0), updated_at = $3
WHERE account = $1
`
	_, err := r.pool.Exec(ctx, q, user, amount, int64(at))
	return err
}

func (r *ProjectionRepository) ApplyLiquidation(ctx context.Context, user, liquidator, debtRepaid, collateralSeized string, at uint64) error {
	q := `
UPDATE positions_current
SET collateral = 0, principal = 0, updated_at = $2,
    liquidations = liquidations + 1
WHERE account = $1
`
	if _, err := r.pool.Exec(ctx, q, user, int64(at)); err != nil {
		return err
	}

	audit := `
INSERT INTO liquidations (account, liquidator, debt_repaid, collateral_seized, chain_time)
VALUES ($1, $2, $3::numeric, $4::numeric, $5)
`
	_, err := r.pool.Exec(ctx, audit, user, liquidator, debtRepaid, collateralSeized, int64(at))
	return err
}

package referral

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// Repository provides referral aggregation reads
type Repository interface {
	CountReferrals(ctx context.Context, referrerID uuid.UUID) (int, error)
	SumBonuses(ctx context.Context, referrerID uuid.UUID) (decimal.Decimal, error)
	Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates new referral repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

// CountReferrals returns how many users name referrerID as their referrer
func (r *repository) CountReferrals(ctx context.Context, referrerID uuid.UUID) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM users WHERE referred_by_id = $1
	`, referrerID)
	if err != nil {
		return 0, fmt.Errorf("referral repository count: %w", err)
	}
	return count, nil
}

// SumBonuses returns the total referral bonus tokens credited to a referrer.
// Failed transactions are excluded; referral bonuses are never queued for
// settlement so pending states do not occur here.
func (r *repository) SumBonuses(ctx context.Context, referrerID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.db.GetContext(ctx, &sum, `
		SELECT COALESCE(SUM(amount), 0)
		FROM reward_transactions
		WHERE user_id = $1 AND type = 'referral_bonus' AND status IN ('confirmed', 'distributed')
	`, referrerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("referral repository sum bonuses: %w", err)
	}
	return sum, nil
}

// Leaderboard returns the top referrers by referral count
func (r *repository) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	entries := make([]LeaderboardEntry, 0)
	err := r.db.SelectContext(ctx, &entries, `
		SELECT ref.id AS user_id, ref.email AS email, COUNT(u.id) AS referral_count
		FROM users ref
		JOIN users u ON u.referred_by_id = ref.id
		GROUP BY ref.id, ref.email
		ORDER BY referral_count DESC, ref.created_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("referral repository leaderboard: %w", err)
	}

	return entries, nil
}

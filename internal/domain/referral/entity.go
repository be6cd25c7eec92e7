package referral

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Stats is the referral read view for a single user
type Stats struct {
	ReferralCount  int             `json:"referral_count"`
	ReferralCode   string          `json:"referral_code"`
	Tier           Tier            `json:"tier"`
	NextTier       *Tier           `json:"next_tier,omitempty"`
	ProgressToNext int             `json:"progress_to_next"`
	TotalBonuses   decimal.Decimal `json:"total_bonuses"`
}

// LeaderboardEntry is one row of the public referrer leaderboard
type LeaderboardEntry struct {
	UserID        uuid.UUID `json:"user_id" db:"user_id"`
	Email         string    `json:"email" db:"email"`
	ReferralCount int       `json:"referral_count" db:"referral_count"`
	TierLabel     string    `json:"tier"`
}

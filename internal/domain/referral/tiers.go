package referral

import "github.com/shopspring/decimal"

// Tier is a bonus-rate bracket assigned by total referral count.
type Tier struct {
	MinReferrals int             `json:"min_referrals"`
	Label        string          `json:"label"`
	Rate         decimal.Decimal `json:"rate"`
	Bonus        decimal.Decimal `json:"bonus"`
}

// tiers is ordered ascending by MinReferrals; TierFor relies on that.
var tiers = []Tier{
	{MinReferrals: 0, Label: "Bronze", Rate: decimal.RequireFromString("0.05"), Bonus: decimal.Zero},
	{MinReferrals: 5, Label: "Silver", Rate: decimal.RequireFromString("0.07"), Bonus: decimal.NewFromInt(50)},
	{MinReferrals: 15, Label: "Gold", Rate: decimal.RequireFromString("0.10"), Bonus: decimal.NewFromInt(150)},
	{MinReferrals: 30, Label: "Platinum", Rate: decimal.RequireFromString("0.12"), Bonus: decimal.NewFromInt(400)},
	{MinReferrals: 60, Label: "Diamond", Rate: decimal.RequireFromString("0.15"), Bonus: decimal.NewFromInt(1000)},
}

// Tiers returns the configured tier table (ascending order)
func Tiers() []Tier {
	out := make([]Tier, len(tiers))
	copy(out, tiers)
	return out
}

// TierFor returns the highest tier whose threshold is met. Iterates the
// ascending table so the last match wins; a count of exactly MinReferrals
// lands in that tier, not the previous one.
func TierFor(referralCount int) Tier {
	current := tiers[0]
	for _, t := range tiers {
		if referralCount >= t.MinReferrals {
			current = t
		}
	}
	return current
}

// NextTierFor returns the first tier strictly above the current count,
// or nil at the maximum tier.
func NextTierFor(referralCount int) *Tier {
	for _, t := range tiers {
		if t.MinReferrals > referralCount {
			next := t
			return &next
		}
	}
	return nil
}

// ProgressToNext returns the percentage toward the next tier threshold,
// clamped to 100 when already at the top. Display aid only.
func ProgressToNext(referralCount int) int {
	next := NextTierFor(referralCount)
	if next == nil {
		return 100
	}
	progress := (referralCount*100 + next.MinReferrals/2) / next.MinReferrals
	if progress > 100 {
		progress = 100
	}
	return progress
}

// UnlockedTiers returns every bonus-bearing tier whose threshold the count
// meets. Referrals register outside the claim path, so a count can jump past
// a threshold between evaluations; callers diff this against the bonuses
// already paid instead of matching thresholds exactly.
func UnlockedTiers(referralCount int) []Tier {
	var unlocked []Tier
	for _, t := range tiers {
		if t.MinReferrals > 0 && t.MinReferrals <= referralCount {
			unlocked = append(unlocked, t)
		}
	}
	return unlocked
}

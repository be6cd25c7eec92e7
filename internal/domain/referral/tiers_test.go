package referral

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestTierForBoundaries(t *testing.T) {
	cases := []struct {
		count int
		label string
	}{
		{0, "Bronze"},
		{4, "Bronze"},
		{5, "Silver"},
		{14, "Silver"},
		{15, "Gold"},
		{29, "Gold"},
		{30, "Platinum"},
		{59, "Platinum"},
		{60, "Diamond"},
		{500, "Diamond"},
	}

	for _, tc := range cases {
		if got := TierFor(tc.count); got.Label != tc.label {
			t.Errorf("TierFor(%d) = %s, want %s", tc.count, got.Label, tc.label)
		}
	}
}

func TestTierForSilverScenario(t *testing.T) {
	bronze := TierFor(0)
	if bronze.Label != "Bronze" || !bronze.Rate.Equal(decimal.RequireFromString("0.05")) {
		t.Fatalf("expected Bronze 0.05 for 0 referrals, got %s %s", bronze.Label, bronze.Rate)
	}

	silver := TierFor(5)
	if silver.Label != "Silver" {
		t.Fatalf("expected Silver for 5 referrals, got %s", silver.Label)
	}
	if !silver.Rate.Equal(decimal.RequireFromString("0.07")) {
		t.Errorf("expected Silver rate 0.07, got %s", silver.Rate)
	}
	if !silver.Bonus.Equal(decimal.NewFromInt(50)) {
		t.Errorf("expected Silver bonus 50, got %s", silver.Bonus)
	}
}

func TestNextTierFor(t *testing.T) {
	next := NextTierFor(0)
	if next == nil || next.Label != "Silver" {
		t.Fatalf("expected Silver next at 0 referrals, got %+v", next)
	}

	next = NextTierFor(5)
	if next == nil || next.Label != "Gold" {
		t.Fatalf("expected Gold next at 5 referrals, got %+v", next)
	}

	if next := NextTierFor(60); next != nil {
		t.Fatalf("expected no next tier at 60 referrals, got %+v", next)
	}
	if next := NextTierFor(1000); next != nil {
		t.Fatalf("expected no next tier at 1000 referrals, got %+v", next)
	}
}

func TestProgressToNext(t *testing.T) {
	cases := []struct {
		count int
		want  int
	}{
		{0, 0},
		{1, 20},
		{4, 80},
		{5, 33},  // 5/15
		{7, 47},  // 7/15 = 46.67, rounds up
		{15, 50}, // 15/30
		{60, 100},
		{75, 100},
	}

	for _, tc := range cases {
		if got := ProgressToNext(tc.count); got != tc.want {
			t.Errorf("ProgressToNext(%d) = %d, want %d", tc.count, got, tc.want)
		}
	}
}

func TestUnlockedTiers(t *testing.T) {
	if got := UnlockedTiers(0); len(got) != 0 {
		t.Errorf("expected no unlocked tiers at 0 referrals, got %d", len(got))
	}
	if got := UnlockedTiers(4); len(got) != 0 {
		t.Errorf("expected no unlocked tiers at 4 referrals, got %d", len(got))
	}

	got := UnlockedTiers(5)
	if len(got) != 1 || got[0].Label != "Silver" {
		t.Fatalf("expected [Silver] at 5 referrals, got %+v", got)
	}

	// A count that skipped straight past a threshold still unlocks it.
	got = UnlockedTiers(6)
	if len(got) != 1 || got[0].Label != "Silver" {
		t.Fatalf("expected [Silver] at 6 referrals, got %+v", got)
	}

	got = UnlockedTiers(60)
	if len(got) != 4 {
		t.Fatalf("expected 4 unlocked tiers at 60 referrals, got %d", len(got))
	}
	if got[0].Label != "Silver" || got[3].Label != "Diamond" {
		t.Errorf("expected Silver..Diamond ascending, got %+v", got)
	}
}

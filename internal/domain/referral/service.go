package referral

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/virala/virala-api/internal/domain/user"
)

const (
	leaderboardCacheKey = "referrals:leaderboard"
	leaderboardCacheTTL = 60 * time.Second
)

// Service exposes the referral read side: per-user stats and the public
// leaderboard. Bonus issuance lives in the reward domain.
type Service struct {
	repo     Repository
	userRepo user.Repository
	redis    *redis.Client // optional leaderboard cache
}

// NewService creates referral service. redis may be nil.
func NewService(repo Repository, userRepo user.Repository, rdb *redis.Client) *Service {
	return &Service{repo: repo, userRepo: userRepo, redis: rdb}
}

// GetStats returns the referral view for a user
func (s *Service) GetStats(ctx context.Context, userID uuid.UUID) (*Stats, error) {
	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, user.ErrUserNotFound
	}

	count, err := s.repo.CountReferrals(ctx, userID)
	if err != nil {
		return nil, err
	}

	totalBonuses, err := s.repo.SumBonuses(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &Stats{
		ReferralCount:  count,
		ReferralCode:   u.ReferralCode,
		Tier:           TierFor(count),
		NextTier:       NextTierFor(count),
		ProgressToNext: ProgressToNext(count),
		TotalBonuses:   totalBonuses,
	}, nil
}

// ResolveCode reports whether a referral code belongs to an active account.
// Used by signup flows before they commit the referral linkage.
func (s *Service) ResolveCode(ctx context.Context, code string) (bool, error) {
	u, err := s.userRepo.GetByReferralCode(ctx, code)
	if err != nil {
		return false, err
	}
	return u != nil && !u.IsBanned, nil
}

// Leaderboard returns the top referrers, cached for 60s when redis is present
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if s.redis != nil && limit == 0 {
		if cached, err := s.redis.Get(ctx, leaderboardCacheKey).Bytes(); err == nil {
			var entries []LeaderboardEntry
			if json.Unmarshal(cached, &entries) == nil {
				return entries, nil
			}
		}
	}

	entries, err := s.repo.Leaderboard(ctx, limit)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].TierLabel = TierFor(entries[i].ReferralCount).Label
	}

	if s.redis != nil && limit == 0 {
		if data, err := json.Marshal(entries); err == nil {
			if err := s.redis.Set(ctx, leaderboardCacheKey, data, leaderboardCacheTTL).Err(); err != nil {
				log.Warn().Err(err).Msg("Failed to cache referral leaderboard")
			}
		}
	}

	return entries, nil
}

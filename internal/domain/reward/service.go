package reward

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/virala/virala-api/internal/domain/referral"
	"github.com/virala/virala-api/internal/domain/user"
)

// Config holds the configured credit amounts per reward type
type Config struct {
	AdViewAmount         decimal.Decimal
	AdEngagementAmount   decimal.Decimal
	SignupBonusAmount    decimal.Decimal
	ReferralSignupAmount decimal.Decimal
}

// Service is the reward issuer: it validates reward-earning events, records
// them against the ledger, and credits referral bonuses to referrers.
type Service struct {
	repo         Repository
	userRepo     user.Repository
	referralRepo referral.Repository
	events       *Publisher
	cfg          Config
}

// NewService creates the reward service. events may be nil.
func NewService(repo Repository, userRepo user.Repository, referralRepo referral.Repository, events *Publisher, cfg Config) *Service {
	return &Service{
		repo:         repo,
		userRepo:     userRepo,
		referralRepo: referralRepo,
		events:       events,
		cfg:          cfg,
	}
}

// AmountFor returns the configured credit amount for a claimable type
func (s *Service) AmountFor(txType TxType) (decimal.Decimal, error) {
	switch txType {
	case TxTypeAdView:
		return s.cfg.AdViewAmount, nil
	case TxTypeAdEngagement:
		return s.cfg.AdEngagementAmount, nil
	default:
		return decimal.Zero, ErrInvalidClaimType
	}
}

// Claim credits a view/engagement reward for a post, at most once per
// (user, post, type). The existence pre-check is a fast path; the unique
// index inside Credit settles races.
func (s *Service) Claim(ctx context.Context, userID, postID uuid.UUID, txType TxType, campaignID uuid.NullUUID) (*Transaction, error) {
	if !txType.IsClaimable() {
		return nil, ErrInvalidClaimType
	}

	amount, err := s.AmountFor(txType)
	if err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	claimed, err := s.repo.HasClaim(ctx, userID, postID, txType)
	if err != nil {
		return nil, err
	}
	if claimed {
		return nil, ErrAlreadyClaimed
	}

	tx, err := s.repo.Credit(ctx, CreditParams{
		UserID:      userID,
		Type:        txType,
		Amount:      amount,
		Description: fmt.Sprintf("%s reward", txType),
		PostID:      uuid.NullUUID{UUID: postID, Valid: true},
		CampaignID:  campaignID,
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("user_id", userID.String()).
		Str("post_id", postID.String()).
		Str("type", string(txType)).
		Str("amount", amount.String()).
		Msg("Reward claimed")

	s.creditReferralSkim(ctx, userID, amount)
	s.events.Publish(ctx, Event{Event: "reward.credited", UserID: userID, Type: txType, Amount: amount})

	return tx, nil
}

// IssueSignupBonus credits the one-time signup bonus and, when the user was
// referred, pays the referrer the fixed referral bonus plus any one-time
// tier bonus the new referral count unlocks.
func (s *Service) IssueSignupBonus(ctx context.Context, userID uuid.UUID) (*Transaction, error) {
	granted, err := s.repo.HasSignupBonus(ctx, userID)
	if err != nil {
		return nil, err
	}
	if granted {
		return nil, ErrAlreadyClaimed
	}

	tx, err := s.repo.Credit(ctx, CreditParams{
		UserID:      userID,
		Type:        TxTypeSignupBonus,
		Amount:      s.cfg.SignupBonusAmount,
		Description: "welcome signup bonus",
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("user_id", userID.String()).
		Str("amount", s.cfg.SignupBonusAmount.String()).
		Msg("Signup bonus issued")

	s.creditReferralSignup(ctx, userID)
	s.events.Publish(ctx, Event{Event: "reward.credited", UserID: userID, Type: TxTypeSignupBonus, Amount: s.cfg.SignupBonusAmount})

	return tx, nil
}

// AirdropResult reports per-user outcomes of a bulk airdrop
type AirdropResult struct {
	Credited int           `json:"credited"`
	Failed   int           `json:"failed"`
	Results  []AirdropItem `json:"results"`
}

// AirdropItem is one user's airdrop outcome
type AirdropItem struct {
	UserID uuid.UUID `json:"user_id"`
	Status string    `json:"status"`
	Error  string    `json:"error,omitempty"`
}

// Airdrop credits amount to each user, one ledger transaction per user.
// A failure for one user never blocks the rest.
func (s *Service) Airdrop(ctx context.Context, userIDs []uuid.UUID, amount decimal.Decimal, description string) (*AirdropResult, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if description == "" {
		description = "admin airdrop"
	}

	result := &AirdropResult{Results: make([]AirdropItem, 0, len(userIDs))}
	for _, id := range userIDs {
		_, err := s.repo.Credit(ctx, CreditParams{
			UserID:      id,
			Type:        TxTypeAirdrop,
			Amount:      amount,
			Description: description,
		})
		if err != nil {
			result.Failed++
			result.Results = append(result.Results, AirdropItem{UserID: id, Status: "failed", Error: err.Error()})
			log.Error().Err(err).Str("user_id", id.String()).Msg("Airdrop credit failed")
			continue
		}

		result.Credited++
		result.Results = append(result.Results, AirdropItem{UserID: id, Status: "credited"})
		s.events.Publish(ctx, Event{Event: "reward.credited", UserID: id, Type: TxTypeAirdrop, Amount: amount})
	}

	log.Info().
		Int("credited", result.Credited).
		Int("failed", result.Failed).
		Str("amount", amount.String()).
		Msg("Airdrop completed")

	return result, nil
}

// GetBalance returns the read-side balance aggregation
func (s *Service) GetBalance(ctx context.Context, userID uuid.UUID) (*Balance, error) {
	return s.repo.GetBalance(ctx, userID)
}

// GetHistory returns a page of the user's ledger, newest first
func (s *Service) GetHistory(ctx context.Context, userID uuid.UUID, filter HistoryFilter) ([]Transaction, string, error) {
	return s.repo.ListTransactions(ctx, userID, filter)
}

// creditReferralSkim pays the referrer their tier percentage of an earned
// reward. Skim failures are logged and never fail the original claim.
func (s *Service) creditReferralSkim(ctx context.Context, earnerID uuid.UUID, amount decimal.Decimal) {
	referrer, err := s.userRepo.GetReferrer(ctx, earnerID)
	if err != nil {
		log.Error().Err(err).Str("user_id", earnerID.String()).Msg("Referrer lookup failed")
		return
	}
	if referrer == nil || referrer.IsBanned {
		return
	}

	count, err := s.referralRepo.CountReferrals(ctx, referrer.ID)
	if err != nil {
		log.Error().Err(err).Str("referrer_id", referrer.ID.String()).Msg("Referral count failed")
		return
	}

	tier := referral.TierFor(count)
	skim := amount.Mul(tier.Rate).Round(8)
	if !skim.IsPositive() {
		return
	}

	_, err = s.repo.Credit(ctx, CreditParams{
		UserID:       referrer.ID,
		Type:         TxTypeReferralBonus,
		Amount:       skim,
		Description:  fmt.Sprintf("%s tier earnings share", tier.Label),
		SourceUserID: uuid.NullUUID{UUID: earnerID, Valid: true},
		ReferralRate: decimal.NullDecimal{Decimal: tier.Rate, Valid: true},
	})
	if err != nil {
		log.Error().Err(err).
			Str("referrer_id", referrer.ID.String()).
			Str("source_user_id", earnerID.String()).
			Msg("Referral skim credit failed")
		return
	}

	s.events.Publish(ctx, Event{Event: "reward.credited", UserID: referrer.ID, Type: TxTypeReferralBonus, Amount: skim})
}

// creditReferralSignup pays the referrer the fixed signup referral bonus and
// any newly unlocked one-time tier bonus.
func (s *Service) creditReferralSignup(ctx context.Context, newUserID uuid.UUID) {
	referrer, err := s.userRepo.GetReferrer(ctx, newUserID)
	if err != nil {
		log.Error().Err(err).Str("user_id", newUserID.String()).Msg("Referrer lookup failed")
		return
	}
	if referrer == nil || referrer.IsBanned {
		return
	}

	count, err := s.referralRepo.CountReferrals(ctx, referrer.ID)
	if err != nil {
		log.Error().Err(err).Str("referrer_id", referrer.ID.String()).Msg("Referral count failed")
		return
	}
	tier := referral.TierFor(count)

	if s.cfg.ReferralSignupAmount.IsPositive() {
		_, err = s.repo.Credit(ctx, CreditParams{
			UserID:       referrer.ID,
			Type:         TxTypeReferralBonus,
			Amount:       s.cfg.ReferralSignupAmount,
			Description:  "referred signup bonus",
			SourceUserID: uuid.NullUUID{UUID: newUserID, Valid: true},
			ReferralRate: decimal.NullDecimal{Decimal: tier.Rate, Valid: true},
		})
		if err != nil {
			log.Error().Err(err).Str("referrer_id", referrer.ID.String()).Msg("Referral signup credit failed")
		} else {
			s.events.Publish(ctx, Event{Event: "reward.credited", UserID: referrer.ID, Type: TxTypeReferralBonus, Amount: s.cfg.ReferralSignupAmount})
		}
	}

	// Referrals register outside this path, so the count may have jumped past
	// a threshold since the last bonus evaluation. Pay every unlocked tier the
	// referrer has not been paid yet; the ledger's unique index on tier-unlock
	// rows settles concurrent evaluations in favor of a single payment.
	paid, err := s.repo.PaidTierBonuses(ctx, referrer.ID)
	if err != nil {
		log.Error().Err(err).Str("referrer_id", referrer.ID.String()).Msg("Paid tier bonus lookup failed")
		return
	}

	for _, unlocked := range referral.UnlockedTiers(count) {
		if !unlocked.Bonus.IsPositive() {
			continue
		}
		desc := tierBonusDescription(unlocked.Label)
		if paid[desc] {
			continue
		}

		_, err = s.repo.Credit(ctx, CreditParams{
			UserID:       referrer.ID,
			Type:         TxTypeReferralBonus,
			Amount:       unlocked.Bonus,
			Description:  desc,
			SourceUserID: uuid.NullUUID{UUID: newUserID, Valid: true},
			ReferralRate: decimal.NullDecimal{Decimal: unlocked.Rate, Valid: true},
		})
		if err != nil {
			if errors.Is(err, ErrAlreadyClaimed) {
				continue
			}
			log.Error().Err(err).
				Str("referrer_id", referrer.ID.String()).
				Str("tier", unlocked.Label).
				Msg("Tier bonus credit failed")
			continue
		}

		log.Info().
			Str("referrer_id", referrer.ID.String()).
			Str("tier", unlocked.Label).
			Str("bonus", unlocked.Bonus.String()).
			Msg("Tier bonus unlocked")
	}
}

// tierBonusDescription is the idempotency marker for one-time tier bonuses;
// PaidTierBonuses and the ledger's tier-unlock unique index both key on it.
func tierBonusDescription(label string) string {
	return fmt.Sprintf("%s tier unlocked", label)
}

package reward

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TxType defines supported reward transaction types.
type TxType string

const (
	TxTypeAdView        TxType = "ad_view"
	TxTypeAdEngagement  TxType = "ad_engagement"
	TxTypeReferralBonus TxType = "referral_bonus"
	TxTypeWithdrawal    TxType = "withdrawal"
	TxTypeAirdrop       TxType = "airdrop"
	TxTypeSignupBonus   TxType = "signup_bonus"
)

// TxStatus is the transaction lifecycle state. distributed and failed are
// terminal; nothing mutates a transaction after it reaches either.
type TxStatus string

const (
	TxStatusPending     TxStatus = "pending"
	TxStatusConfirmed   TxStatus = "confirmed"
	TxStatusDistributed TxStatus = "distributed"
	TxStatusFailed      TxStatus = "failed"
)

// IsClaimable reports whether the type can be claimed against a post
func (t TxType) IsClaimable() bool {
	return t == TxTypeAdView || t == TxTypeAdEngagement
}

// Transaction is an immutable ledger row. Amount is signed: positive for
// credits, negative for withdrawal debits.
type Transaction struct {
	ID     uuid.UUID       `db:"id" json:"id"`
	UserID uuid.UUID       `db:"user_id" json:"user_id"`
	Type   TxType          `db:"type" json:"type"`
	Amount decimal.Decimal `db:"amount" json:"amount"`

	Description string `db:"description" json:"description,omitempty"`

	// Claim context
	PostID     uuid.NullUUID `db:"post_id" json:"post_id,omitempty"`
	CampaignID uuid.NullUUID `db:"campaign_id" json:"campaign_id,omitempty"`

	// Referral bonus context: the earner whose activity produced this bonus,
	// and the tier rate applied at issuance. The rate is snapshotted here
	// because the live tier table moves as the referrer recruits more users.
	SourceUserID uuid.NullUUID       `db:"source_user_id" json:"source_user_id,omitempty"`
	ReferralRate decimal.NullDecimal `db:"referral_rate" json:"referral_rate,omitempty"`

	Status TxStatus `db:"status" json:"status"`

	// Settlement context, withdrawals only
	BatchID       uuid.NullUUID `db:"batch_id" json:"batch_id,omitempty"`
	TxHash        *string       `db:"tx_hash" json:"tx_hash,omitempty"`
	WalletAddress *string       `db:"wallet_address" json:"wallet_address,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Balance is the read-side aggregation for a user
type Balance struct {
	Balance        decimal.Decimal `json:"balance"`
	TotalEarned    decimal.Decimal `json:"total_earned"`
	TotalWithdrawn decimal.Decimal `json:"total_withdrawn"`
	PendingRewards int             `json:"pending_rewards"`
}

// CreditParams describes a credit to record against the ledger
type CreditParams struct {
	UserID       uuid.UUID
	Type         TxType
	Amount       decimal.Decimal
	Description  string
	PostID       uuid.NullUUID
	CampaignID   uuid.NullUUID
	SourceUserID uuid.NullUUID
	ReferralRate decimal.NullDecimal
}

// HistoryFilter controls transaction listing
type HistoryFilter struct {
	Type   TxType
	Cursor string
	Limit  int
}

package distribution

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BatchStatus is the distribution batch lifecycle state.
// confirmed and failed are terminal.
type BatchStatus string

const (
	BatchStatusPending    BatchStatus = "pending"
	BatchStatusProcessing BatchStatus = "processing"
	BatchStatusConfirmed  BatchStatus = "confirmed"
	BatchStatusFailed     BatchStatus = "failed"
)

// Batch groups withdrawal transactions settled by one on-chain transfer
type Batch struct {
	ID              uuid.UUID       `db:"id" json:"id"`
	TxHash          *string         `db:"tx_hash" json:"tx_hash,omitempty"`
	ContractAddress string          `db:"contract_address" json:"contract_address"`
	ChainID         int64           `db:"chain_id" json:"chain_id"`
	TotalAmount     decimal.Decimal `db:"total_amount" json:"total_amount"`
	RecipientCount  int             `db:"recipient_count" json:"recipient_count"`
	Status          BatchStatus     `db:"status" json:"status"`
	ErrorMessage    *string         `db:"error_message" json:"error_message,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	ProcessedAt     *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
	ConfirmedAt     *time.Time      `db:"confirmed_at" json:"confirmed_at,omitempty"`
}

// RunResult summarizes one distributor run
type RunResult struct {
	BatchID     *uuid.UUID `json:"batch_id,omitempty"`
	Processed   int        `json:"processed"`
	Distributed int        `json:"distributed"`
	Failed      int        `json:"failed"`
	TxHash      string     `json:"tx_hash,omitempty"`
	Results     []RunItem  `json:"results"`
}

// RunItem is the outcome for one constituent withdrawal
type RunItem struct {
	TransactionID uuid.UUID       `json:"transaction_id"`
	UserID        uuid.UUID       `json:"user_id"`
	Amount        decimal.Decimal `json:"amount"`
	WalletAddress string          `json:"wallet_address"`
	Status        string          `json:"status"` // distributed | failed
}

package withdrawal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/virala/virala-api/internal/domain/reward"
	"github.com/virala/virala-api/internal/domain/user"
)

const queryTimeout = 3 * time.Second

// Repository reserves withdrawal amounts against the ledger
type Repository interface {
	Debit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, walletAddress string) (*reward.Transaction, error)
}

// QueueRepository implements Repository on Postgres
type QueueRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *QueueRepository {
	return &QueueRepository{db: db}
}

// Debit reserves amount for settlement: inside one DB transaction it locks
// the user row, verifies the balance, decrements off_chain_balance,
// increments total_withdrawn, and inserts a confirmed withdrawal transaction
// with a negative amount. Reserving up front is what prevents double-spend
// across concurrent withdrawal requests.
func (r *QueueRepository) Debit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, walletAddress string) (*reward.Transaction, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx2, &sql.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	var balance decimal.Decimal
	err = tx.QueryRowContext(ctx2, `SELECT off_chain_balance FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, user.ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: lock user row", ErrInternal)
	}

	if balance.LessThan(amount) {
		return nil, ErrInsufficientBalance
	}

	var created reward.Transaction
	err = tx.QueryRowxContext(ctx2, `
		INSERT INTO reward_transactions (
			id, user_id, type, amount, description, status, wallet_address
		)
		VALUES (gen_random_uuid(), $1, 'withdrawal', $2, 'token withdrawal', 'confirmed', $3)
		RETURNING id, user_id, type, amount, description, post_id, campaign_id,
			source_user_id, referral_rate, status, batch_id, tx_hash, wallet_address,
			created_at, updated_at
	`, userID, amount.Neg(), walletAddress).StructScan(&created)
	if err != nil {
		return nil, fmt.Errorf("%w: insert withdrawal", ErrInternal)
	}

	_, err = tx.ExecContext(ctx2, `
		UPDATE users
		SET off_chain_balance = off_chain_balance - $2,
		    total_withdrawn = total_withdrawn + $2,
		    updated_at = NOW()
		WHERE id = $1
	`, userID, amount)
	if err != nil {
		return nil, fmt.Errorf("%w: update user balance", ErrInternal)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit tx", ErrInternal)
	}

	return &created, nil
}

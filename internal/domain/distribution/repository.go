package distribution

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/virala/virala-api/internal/domain/reward"
)

const queryTimeout = 5 * time.Second

const batchColumns = `id, tx_hash, contract_address, chain_id, total_amount,
	recipient_count, status, error_message, created_at, processed_at, confirmed_at`

// Repository owns distribution batch rows and the settlement-side mutations
// of reward transactions.
type Repository interface {
	ClaimBatch(ctx context.Context, maxSize int, contractAddress string, chainID int64) (*Batch, []reward.Transaction, error)
	ClaimSingle(ctx context.Context, txID uuid.UUID, contractAddress string, chainID int64) (*Batch, []reward.Transaction, error)
	MarkProcessing(ctx context.Context, batchID uuid.UUID) error
	ConfirmBatch(ctx context.Context, batchID uuid.UUID, txHash string) error
	FailBatch(ctx context.Context, batchID uuid.UUID, errMsg string) (rolledBack bool, err error)
	GetBatch(ctx context.Context, batchID uuid.UUID) (*Batch, error)
	ListBatches(ctx context.Context, limit int) ([]Batch, error)
}

// BatchRepository implements Repository on Postgres
type BatchRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// ClaimBatch exclusively claims up to maxSize confirmed withdrawals not yet
// attached to a batch, oldest first, and creates the batch row around them.
// FOR UPDATE SKIP LOCKED keeps the claimed set invisible to any concurrent
// run. Returns (nil, nil, nil) when nothing is eligible.
func (r *BatchRepository) ClaimBatch(ctx context.Context, maxSize int, contractAddress string, chainID int64) (*Batch, []reward.Transaction, error) {
	return r.claim(ctx, `
		SELECT id FROM reward_transactions
		WHERE type = 'withdrawal' AND status = 'confirmed' AND batch_id IS NULL
		ORDER BY created_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, []interface{}{maxSize}, contractAddress, chainID)
}

// ClaimSingle claims one specific withdrawal into a batch of its own.
// Used by the synchronous fast path right after the withdrawal is queued.
func (r *BatchRepository) ClaimSingle(ctx context.Context, txID uuid.UUID, contractAddress string, chainID int64) (*Batch, []reward.Transaction, error) {
	return r.claim(ctx, `
		SELECT id FROM reward_transactions
		WHERE id = $1 AND type = 'withdrawal' AND status = 'confirmed' AND batch_id IS NULL
		FOR UPDATE SKIP LOCKED
	`, []interface{}{txID}, contractAddress, chainID)
}

func (r *BatchRepository) claim(ctx context.Context, selectQuery string, selectArgs []interface{}, contractAddress string, chainID int64) (*Batch, []reward.Transaction, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx2, &sql.TxOptions{})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	var ids []uuid.UUID
	if err := tx.SelectContext(ctx2, &ids, selectQuery, selectArgs...); err != nil {
		return nil, nil, fmt.Errorf("%w: select eligible withdrawals", ErrInternal)
	}
	if len(ids) == 0 {
		return nil, nil, nil
	}

	var batch Batch
	err = tx.QueryRowxContext(ctx2, `
		INSERT INTO distribution_batches (
			id, contract_address, chain_id, total_amount, recipient_count, status
		)
		SELECT gen_random_uuid(), $1, $2, COALESCE(SUM(-amount), 0), COUNT(*), 'pending'
		FROM reward_transactions
		WHERE id = ANY($3)
		RETURNING `+batchColumns+`
	`, contractAddress, chainID, pq.Array(ids)).StructScan(&batch)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: create batch", ErrInternal)
	}

	claimed := make([]reward.Transaction, 0, len(ids))
	err = tx.SelectContext(ctx2, &claimed, `
		UPDATE reward_transactions
		SET batch_id = $1, updated_at = NOW()
		WHERE id = ANY($2)
		RETURNING id, user_id, type, amount, description, post_id, campaign_id,
			source_user_id, referral_rate, status, batch_id, tx_hash, wallet_address,
			created_at, updated_at
	`, batch.ID, pq.Array(ids))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: attach withdrawals to batch", ErrInternal)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("%w: commit claim", ErrInternal)
	}

	return &batch, claimed, nil
}

// MarkProcessing transitions a pending batch to processing
func (r *BatchRepository) MarkProcessing(ctx context.Context, batchID uuid.UUID) error {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := r.db.ExecContext(ctx2, `
		UPDATE distribution_batches
		SET status = 'processing', processed_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`, batchID)
	if err != nil {
		return fmt.Errorf("%w: mark processing", ErrInternal)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: mark processing", ErrInternal)
	}
	if rows == 0 {
		return fmt.Errorf("%w: batch %s not in pending state", ErrInternal, batchID)
	}

	return nil
}

// ConfirmBatch finalizes a successful settlement: the batch becomes
// confirmed with the tx hash, and every constituent withdrawal becomes
// distributed carrying the same hash.
func (r *BatchRepository) ConfirmBatch(ctx context.Context, batchID uuid.UUID, txHash string) error {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx2, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx2, `
		UPDATE distribution_batches
		SET status = 'confirmed', tx_hash = $2, confirmed_at = NOW()
		WHERE id = $1 AND status = 'processing'
	`, batchID, txHash)
	if err != nil {
		return fmt.Errorf("%w: confirm batch", ErrInternal)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: confirm batch", ErrInternal)
	}
	if rows == 0 {
		return fmt.Errorf("%w: batch %s not in processing state", ErrInternal, batchID)
	}

	_, err = tx.ExecContext(ctx2, `
		UPDATE reward_transactions
		SET status = 'distributed', tx_hash = $2, updated_at = NOW()
		WHERE batch_id = $1
	`, batchID, txHash)
	if err != nil {
		return fmt.Errorf("%w: mark transactions distributed", ErrInternal)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit confirm", ErrInternal)
	}

	return nil
}

// FailBatch finalizes a failed settlement: the batch becomes failed with an
// error message, constituents become failed, and every affected user is
// re-credited the amount reserved at request time. The guarded status
// transition makes the rollback safely repeatable: when the batch is already
// terminal the update touches zero rows and the rollback is skipped.
func (r *BatchRepository) FailBatch(ctx context.Context, batchID uuid.UUID, errMsg string) (bool, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx2, &sql.TxOptions{})
	if err != nil {
		return false, fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx2, `
		UPDATE distribution_batches
		SET status = 'failed', error_message = $2
		WHERE id = $1 AND status IN ('pending', 'processing')
	`, batchID, errMsg)
	if err != nil {
		return false, fmt.Errorf("%w: fail batch", ErrInternal)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: fail batch", ErrInternal)
	}
	if rows == 0 {
		// Already terminal: another actor finalized this batch
		return false, nil
	}

	_, err = tx.ExecContext(ctx2, `
		UPDATE reward_transactions
		SET status = 'failed', updated_at = NOW()
		WHERE batch_id = $1
	`, batchID)
	if err != nil {
		return false, fmt.Errorf("%w: mark transactions failed", ErrInternal)
	}

	// Restore the reservation: withdrawal amounts are stored negative,
	// so -amount is the original debit.
	_, err = tx.ExecContext(ctx2, `
		UPDATE users u
		SET off_chain_balance = u.off_chain_balance + refund.total,
		    total_withdrawn = u.total_withdrawn - refund.total,
		    updated_at = NOW()
		FROM (
			SELECT user_id, SUM(-amount) AS total
			FROM reward_transactions
			WHERE batch_id = $1
			GROUP BY user_id
		) refund
		WHERE u.id = refund.user_id
	`, batchID)
	if err != nil {
		return false, fmt.Errorf("%w: restore balances", ErrInternal)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("%w: commit rollback", ErrInternal)
	}

	return true, nil
}

// GetBatch returns a batch by id, or nil when absent
func (r *BatchRepository) GetBatch(ctx context.Context, batchID uuid.UUID) (*Batch, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var b Batch
	err := r.db.GetContext(ctx2, &b, `SELECT `+batchColumns+` FROM distribution_batches WHERE id = $1`, batchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: get batch", ErrInternal)
	}

	return &b, nil
}

// ListBatches returns recent batches, newest first
func (r *BatchRepository) ListBatches(ctx context.Context, limit int) ([]Batch, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if limit <= 0 || limit > 100 {
		limit = 20
	}

	batches := make([]Batch, 0, limit)
	err := r.db.SelectContext(ctx2, &batches, `
		SELECT `+batchColumns+` FROM distribution_batches
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list batches", ErrInternal)
	}

	return batches, nil
}

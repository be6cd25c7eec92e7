package reward

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const queryTimeout = 3 * time.Second

const txColumns = `id, user_id, type, amount, description, post_id, campaign_id,
	source_user_id, referral_rate, status, batch_id, tx_hash, wallet_address,
	created_at, updated_at`

// Repository is the ledger store: user balance columns plus the immutable
// reward_transactions table, mutated only inside a single DB transaction.
type Repository interface {
	Credit(ctx context.Context, p CreditParams) (*Transaction, error)
	HasClaim(ctx context.Context, userID, postID uuid.UUID, txType TxType) (bool, error)
	HasSignupBonus(ctx context.Context, userID uuid.UUID) (bool, error)
	PaidTierBonuses(ctx context.Context, userID uuid.UUID) (map[string]bool, error)
	GetBalance(ctx context.Context, userID uuid.UUID) (*Balance, error)
	GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, filter HistoryFilter) ([]Transaction, string, error)
}

// LedgerRepository implements Repository on Postgres
type LedgerRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Credit atomically inserts a confirmed credit transaction and increments
// the user's off_chain_balance and total_earned. The partial unique index on
// (user_id, post_id, type) is the authoritative duplicate-claim guard: a
// 23505 from the insert maps to ErrAlreadyClaimed regardless of what any
// earlier fast-path check saw.
func (r *LedgerRepository) Credit(ctx context.Context, p CreditParams) (*Transaction, error) {
	if !p.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx2, &sql.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	// Serialize balance mutation per user
	var exists bool
	err = tx.QueryRowContext(ctx2, `SELECT TRUE FROM users WHERE id = $1 FOR UPDATE`, p.UserID).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: lock user row", ErrInternal)
	}

	var created Transaction
	err = tx.QueryRowxContext(ctx2, `
		INSERT INTO reward_transactions (
			id, user_id, type, amount, description, post_id, campaign_id,
			source_user_id, referral_rate, status
		)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8, 'confirmed')
		RETURNING `+txColumns+`
	`, p.UserID, string(p.Type), p.Amount, p.Description, p.PostID, p.CampaignID,
		p.SourceUserID, p.ReferralRate).StructScan(&created)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, ErrAlreadyClaimed
		}
		return nil, fmt.Errorf("%w: insert transaction", ErrInternal)
	}

	_, err = tx.ExecContext(ctx2, `
		UPDATE users
		SET off_chain_balance = off_chain_balance + $2,
		    total_earned = total_earned + $2,
		    updated_at = NOW()
		WHERE id = $1
	`, p.UserID, p.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: update user balance", ErrInternal)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit tx", ErrInternal)
	}

	return &created, nil
}

// HasClaim is the fast-path duplicate check for (user, post, type).
// The unique index remains the source of truth under concurrency.
func (r *LedgerRepository) HasClaim(ctx context.Context, userID, postID uuid.UUID, txType TxType) (bool, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var exists bool
	err := r.db.GetContext(ctx2, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM reward_transactions
			WHERE user_id = $1 AND post_id = $2 AND type = $3
		)
	`, userID, postID, string(txType))
	if err != nil {
		return false, fmt.Errorf("%w: check claim", ErrInternal)
	}

	return exists, nil
}

// HasSignupBonus reports whether the user was already granted a signup bonus
func (r *LedgerRepository) HasSignupBonus(ctx context.Context, userID uuid.UUID) (bool, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var exists bool
	err := r.db.GetContext(ctx2, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM reward_transactions
			WHERE user_id = $1 AND type = 'signup_bonus'
		)
	`, userID)
	if err != nil {
		return false, fmt.Errorf("%w: check signup bonus", ErrInternal)
	}

	return exists, nil
}

// PaidTierBonuses returns the descriptions of one-time tier bonuses already
// credited to the user, keyed by the tier-unlock description. The partial
// unique index on (user_id, description) over tier-unlock referral_bonus rows
// is the authoritative guard; this read only avoids pointless inserts.
func (r *LedgerRepository) PaidTierBonuses(ctx context.Context, userID uuid.UUID) (map[string]bool, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var descriptions []string
	err := r.db.SelectContext(ctx2, &descriptions, `
		SELECT description FROM reward_transactions
		WHERE user_id = $1 AND type = 'referral_bonus' AND description LIKE '% tier unlocked'
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: list tier bonuses", ErrInternal)
	}

	paid := make(map[string]bool, len(descriptions))
	for _, d := range descriptions {
		paid[d] = true
	}

	return paid, nil
}

// GetBalance returns the user's balance aggregation. pending_rewards counts
// confirmed withdrawals still awaiting batch settlement.
func (r *LedgerRepository) GetBalance(ctx context.Context, userID uuid.UUID) (*Balance, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var b Balance
	err := r.db.QueryRowxContext(ctx2, `
		SELECT u.off_chain_balance, u.total_earned, u.total_withdrawn,
		       (SELECT COUNT(*) FROM reward_transactions t
		        WHERE t.user_id = u.id AND t.type = 'withdrawal' AND t.status = 'confirmed') AS pending
		FROM users u
		WHERE u.id = $1
	`, userID).Scan(&b.Balance, &b.TotalEarned, &b.TotalWithdrawn, &b.PendingRewards)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: get balance", ErrInternal)
	}

	return &b, nil
}

// GetTransaction returns a single ledger row, or nil when absent
func (r *LedgerRepository) GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var t Transaction
	err := r.db.GetContext(ctx2, &t, `SELECT `+txColumns+` FROM reward_transactions WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: get transaction", ErrInternal)
	}

	return &t, nil
}

// ListTransactions returns a keyset-paginated transaction page, newest first,
// plus the cursor for the next page ("" when exhausted).
func (r *LedgerRepository) ListTransactions(ctx context.Context, userID uuid.UUID, filter HistoryFilter) ([]Transaction, string, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := `SELECT ` + txColumns + ` FROM reward_transactions WHERE user_id = $1`
	args := []interface{}{userID}
	idx := 2

	if filter.Type != "" {
		query += fmt.Sprintf(" AND type = $%d", idx)
		args = append(args, string(filter.Type))
		idx++
	}

	if filter.Cursor != "" {
		c, err := decodeCursor(filter.Cursor)
		if err != nil {
			return nil, "", err
		}
		query += fmt.Sprintf(" AND (created_at, id) < ($%d, $%d)", idx, idx+1)
		args = append(args, c.CreatedAt, c.ID)
		idx += 2
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", idx)
	args = append(args, limit+1)

	transactions := make([]Transaction, 0, limit)
	if err := r.db.SelectContext(ctx2, &transactions, query, args...); err != nil {
		return nil, "", fmt.Errorf("%w: list transactions", ErrInternal)
	}

	nextCursor := ""
	if len(transactions) > limit {
		transactions = transactions[:limit]
		last := transactions[limit-1]
		nextCursor = encodeCursor(cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	return transactions, nextCursor, nil
}

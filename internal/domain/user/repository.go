package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const userColumns = `id, email, role, is_banned, wallet_address, referral_code, referred_by_id,
	off_chain_balance, total_earned, total_withdrawn, created_at, updated_at`

// Repository defines user directory access. Balance mutations live in the
// reward and withdrawal repositories, never here.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByReferralCode(ctx context.Context, code string) (*User, error)
	GetReferrer(ctx context.Context, userID uuid.UUID) (*User, error)
	LinkWallet(ctx context.Context, userID uuid.UUID, address string) error
}

// repository implements Repository
type repository struct {
	db *sqlx.DB
}

// NewRepository creates new user repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

// GetByID returns user by ID, or nil when no row exists
func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	var u User
	err := r.db.GetContext(ctx, &u, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("user repository get by id: %w", err)
	}

	return &u, nil
}

// GetByReferralCode returns the user owning a referral code, or nil
func (r *repository) GetByReferralCode(ctx context.Context, code string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE referral_code = $1`

	var u User
	err := r.db.GetContext(ctx, &u, query, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("user repository get by referral code: %w", err)
	}

	return &u, nil
}

// GetReferrer returns the user who referred userID, or nil when the user
// was not referred (or does not exist).
func (r *repository) GetReferrer(ctx context.Context, userID uuid.UUID) (*User, error) {
	query := `
		SELECT ` + referrerColumns() + `
		FROM users ref
		JOIN users u ON u.referred_by_id = ref.id
		WHERE u.id = $1
	`

	var u User
	err := r.db.GetContext(ctx, &u, query, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("user repository get referrer: %w", err)
	}

	return &u, nil
}

// LinkWallet stores the settlement address for a user
func (r *repository) LinkWallet(ctx context.Context, userID uuid.UUID, address string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE users SET wallet_address = $2, updated_at = NOW() WHERE id = $1
	`, userID, address)
	if err != nil {
		return fmt.Errorf("user repository link wallet: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("user repository link wallet: %w", err)
	}
	if rows == 0 {
		return ErrUserNotFound
	}

	return nil
}

func referrerColumns() string {
	return `ref.id, ref.email, ref.role, ref.is_banned, ref.wallet_address, ref.referral_code, ref.referred_by_id,
	ref.off_chain_balance, ref.total_earned, ref.total_withdrawn, ref.created_at, ref.updated_at`
}

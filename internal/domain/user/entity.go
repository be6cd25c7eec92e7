package user

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Role represents user role in the system (matches user_role enum)
type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

// User represents a user account. The identity service owns most columns;
// this service reads them and mutates only the balance triple, always inside
// a ledger transaction.
type User struct {
	ID       uuid.UUID `db:"id"`
	Email    string    `db:"email"`
	Role     Role      `db:"role"`
	IsBanned bool      `db:"is_banned"`

	// On-chain settlement target, linked from the wallet-connect flow
	WalletAddress sql.NullString `db:"wallet_address"`

	// Referral linkage
	ReferralCode string        `db:"referral_code"`
	ReferredByID uuid.NullUUID `db:"referred_by_id"`

	// Reward ledger running totals (8 fractional digits)
	OffChainBalance decimal.Decimal `db:"off_chain_balance"`
	TotalEarned     decimal.Decimal `db:"total_earned"`
	TotalWithdrawn  decimal.Decimal `db:"total_withdrawn"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// IsAdmin returns true if user is an admin
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// HasWallet returns true if a settlement address is linked
func (u *User) HasWallet() bool {
	return u.WalletAddress.Valid && u.WalletAddress.String != ""
}

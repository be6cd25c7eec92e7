package withdrawal

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/virala/virala-api/internal/domain/distribution"
	"github.com/virala/virala-api/internal/domain/user"
	"github.com/virala/virala-api/internal/pkg/chain"
)

// WakeChannel is the redis channel the distributor worker listens on.
// The API publishes here after queuing a withdrawal so settlement does not
// have to wait for the next poll tick.
const WakeChannel = "rewards:distributor:wake"

// Settler settles a single freshly queued withdrawal immediately.
// Implemented by the distribution service; nil when running queue-only.
type Settler interface {
	Enabled() bool
	SettleNow(ctx context.Context, txID uuid.UUID) (txHash string, err error)
}

// Config holds withdrawal bounds and the sync-settlement switch
type Config struct {
	MinWithdrawal  decimal.Decimal
	MaxWithdrawal  decimal.Decimal
	SyncSettlement bool
}

// Result is the outcome returned to the requester
type Result struct {
	Status        string          `json:"status"` // queued | distributed | pending | failed
	TxHash        string          `json:"tx_hash,omitempty"`
	ExplorerURL   string          `json:"explorer_url,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	WalletAddress string          `json:"wallet_address"`
	Message       string          `json:"message"`
}

// Service is the withdrawal queue: it validates requests, reserves the
// amount against the ledger, and either leaves the transaction for the next
// batch or settles it immediately on the fast path.
type Service struct {
	repo     Repository
	userRepo user.Repository
	chainCli *chain.Client
	settler  Settler
	redis    *redis.Client
	cfg      Config
}

// NewService creates the withdrawal service. chainCli, settler and redis may
// each be nil.
func NewService(repo Repository, userRepo user.Repository, chainCli *chain.Client, settler Settler, rdb *redis.Client, cfg Config) *Service {
	return &Service{
		repo:     repo,
		userRepo: userRepo,
		chainCli: chainCli,
		settler:  settler,
		redis:    rdb,
		cfg:      cfg,
	}
}

// Request queues a withdrawal for userID. walletAddress may be empty, in
// which case the account's linked address is used.
func (s *Service) Request(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, walletAddress string) (*Result, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if amount.LessThan(s.cfg.MinWithdrawal) || amount.GreaterThan(s.cfg.MaxWithdrawal) {
		return nil, ErrAmountOutOfBounds
	}

	address, err := s.resolveWallet(ctx, userID, walletAddress)
	if err != nil {
		return nil, err
	}

	tx, err := s.repo.Debit(ctx, userID, amount, address)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("user_id", userID.String()).
		Str("tx_id", tx.ID.String()).
		Str("amount", amount.String()).
		Str("wallet", address).
		Msg("Withdrawal queued")

	if s.cfg.SyncSettlement && s.settler != nil && s.settler.Enabled() {
		txHash, err := s.settler.SettleNow(ctx, tx.ID)
		if err != nil {
			log.Error().Err(err).Str("tx_id", tx.ID.String()).Msg("Immediate settlement failed")

			// A rejected submission already rolled the reservation back and
			// marked the transaction failed; the requester can retry. Any
			// other error may mean the transfer hit the chain before the
			// local finalize failed, so the funds must not be promised back.
			if errors.Is(err, distribution.ErrSubmissionFailed) {
				return &Result{
					Status:        "failed",
					Amount:        amount,
					WalletAddress: address,
					Message:       "on-chain settlement failed, funds returned to your balance",
				}, nil
			}
			return &Result{
				Status:        "pending",
				Amount:        amount,
				WalletAddress: address,
				Message:       "withdrawal accepted, settlement is being reconciled",
			}, nil
		}

		return &Result{
			Status:        "distributed",
			TxHash:        txHash,
			ExplorerURL:   s.explorerURL(txHash),
			Amount:        amount,
			WalletAddress: address,
			Message:       "withdrawal settled on-chain",
		}, nil
	}

	s.wakeDistributor(ctx)

	return &Result{
		Status:        "queued",
		Amount:        amount,
		WalletAddress: address,
		Message:       "withdrawal queued for the next distribution batch",
	}, nil
}

// resolveWallet picks the settlement address: the request-supplied address
// wins over the account link; both absent is a hard error.
func (s *Service) resolveWallet(ctx context.Context, userID uuid.UUID, requested string) (string, error) {
	if requested != "" {
		if !chain.IsValidAddress(requested) {
			return "", ErrInvalidAddress
		}
		return chain.ChecksumAddress(requested), nil
	}

	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if u == nil {
		return "", user.ErrUserNotFound
	}
	if !u.HasWallet() {
		return "", ErrNoWalletLinked
	}
	if !chain.IsValidAddress(u.WalletAddress.String) {
		return "", ErrInvalidAddress
	}

	return chain.ChecksumAddress(u.WalletAddress.String), nil
}

func (s *Service) explorerURL(txHash string) string {
	if s.chainCli == nil {
		return ""
	}
	return s.chainCli.ExplorerTxURL(txHash)
}

func (s *Service) wakeDistributor(ctx context.Context) {
	if s.redis == nil {
		return
	}

	ctx2, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	if err := s.redis.Publish(ctx2, WakeChannel, "1").Err(); err != nil {
		log.Warn().Err(err).Msg("Failed to wake distributor")
	}
}

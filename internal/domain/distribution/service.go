package distribution

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/virala/virala-api/internal/domain/reward"
	"github.com/virala/virala-api/internal/pkg/chain"
)

// ChainClient is the settlement transport. *chain.Client satisfies it; tests
// supply a fake.
type ChainClient interface {
	Enabled() bool
	SubmitBatchTransfer(ctx context.Context, transfers []chain.Transfer) (*chain.BatchTransferResponse, error)
	ContractAddress() string
	ChainID() int64
	ExplorerTxURL(txHash string) string
}

// Service runs settlement batches against the chain relayer
type Service struct {
	repo   Repository
	client ChainClient
	events *reward.Publisher
}

func NewService(repo Repository, client ChainClient, events *reward.Publisher) *Service {
	return &Service{repo: repo, client: client, events: events}
}

// Enabled reports whether the relayer is configured
func (s *Service) Enabled() bool {
	return s.client.Enabled()
}

// RunBatch claims up to maxSize eligible withdrawals, submits them to the
// relayer as one transfer batch, and finalizes the batch by the outcome.
// The relayer call runs outside any database transaction: the claim commit
// reserves the rows first, so a crash mid-submission leaves a processing
// batch for the operator rather than locked rows.
func (s *Service) RunBatch(ctx context.Context, maxSize int) (*RunResult, error) {
	if !s.client.Enabled() {
		return nil, ErrDistributionDisabled
	}

	batch, claimed, err := s.repo.ClaimBatch(ctx, maxSize, s.client.ContractAddress(), s.client.ChainID())
	if err != nil {
		return nil, err
	}
	if batch == nil {
		return &RunResult{}, nil
	}

	return s.settle(ctx, batch, claimed)
}

// SettleNow settles one specific withdrawal immediately in a batch of its
// own. Returns the tx hash on success.
func (s *Service) SettleNow(ctx context.Context, txID uuid.UUID) (string, error) {
	if !s.client.Enabled() {
		return "", ErrDistributionDisabled
	}

	batch, claimed, err := s.repo.ClaimSingle(ctx, txID, s.client.ContractAddress(), s.client.ChainID())
	if err != nil {
		return "", err
	}
	if batch == nil {
		return "", ErrNothingToDistribute
	}

	result, err := s.settle(ctx, batch, claimed)
	if err != nil {
		return "", err
	}
	if result.Failed > 0 {
		return "", ErrSubmissionFailed
	}

	return result.TxHash, nil
}

func (s *Service) settle(ctx context.Context, batch *Batch, claimed []reward.Transaction) (*RunResult, error) {
	if err := s.repo.MarkProcessing(ctx, batch.ID); err != nil {
		return nil, err
	}

	transfers := make([]chain.Transfer, 0, len(claimed))
	for _, tx := range claimed {
		addr := ""
		if tx.WalletAddress != nil {
			addr = *tx.WalletAddress
		}
		transfers = append(transfers, chain.Transfer{
			To:        addr,
			Amount:    tx.Amount.Neg(),
			Reference: tx.ID.String(),
		})
	}

	resp, submitErr := s.client.SubmitBatchTransfer(ctx, transfers)
	if submitErr != nil {
		return s.rollback(ctx, batch, claimed, submitErr)
	}

	if err := s.repo.ConfirmBatch(ctx, batch.ID, resp.TxHash); err != nil {
		// Submission went through but the confirm write failed: never roll
		// back balances here, tokens are on chain. Leave the batch in
		// processing for reconciliation.
		log.Error().Err(err).
			Str("batch_id", batch.ID.String()).
			Str("tx_hash", resp.TxHash).
			Msg("batch confirmed on chain but local finalize failed")
		return nil, err
	}

	log.Info().
		Str("batch_id", batch.ID.String()).
		Str("tx_hash", resp.TxHash).
		Int("recipients", len(claimed)).
		Str("total", batch.TotalAmount.String()).
		Msg("distribution batch confirmed")

	result := &RunResult{
		BatchID:     &batch.ID,
		Processed:   len(claimed),
		Distributed: len(claimed),
		TxHash:      resp.TxHash,
	}
	for _, tx := range claimed {
		result.Results = append(result.Results, runItem(tx, string(reward.TxStatusDistributed)))
		s.publish(ctx, "withdrawal.distributed", tx, resp.TxHash)
	}

	return result, nil
}

func (s *Service) rollback(ctx context.Context, batch *Batch, claimed []reward.Transaction, cause error) (*RunResult, error) {
	rolledBack, err := s.repo.FailBatch(ctx, batch.ID, cause.Error())
	if err != nil {
		log.Error().Err(err).
			Str("batch_id", batch.ID.String()).
			Msg("rollback after failed submission did not complete")
		return nil, err
	}
	if !rolledBack {
		log.Warn().
			Str("batch_id", batch.ID.String()).
			Msg("batch already finalized, skipping rollback")
	} else {
		log.Warn().Err(cause).
			Str("batch_id", batch.ID.String()).
			Int("recipients", len(claimed)).
			Msg("distribution batch failed, balances restored")
	}

	result := &RunResult{
		BatchID:   &batch.ID,
		Processed: len(claimed),
		Failed:    len(claimed),
	}
	for _, tx := range claimed {
		result.Results = append(result.Results, runItem(tx, string(reward.TxStatusFailed)))
		s.publish(ctx, "withdrawal.failed", tx, "")
	}

	return result, nil
}

func (s *Service) publish(ctx context.Context, event string, tx reward.Transaction, txHash string) {
	if s.events == nil {
		return
	}
	s.events.Publish(ctx, reward.Event{
		Event:         event,
		UserID:        tx.UserID,
		Type:          tx.Type,
		Amount:        tx.Amount.Neg(),
		TransactionID: tx.ID,
		TxHash:        txHash,
	})
}

// GetBatch returns a batch by id
func (s *Service) GetBatch(ctx context.Context, batchID uuid.UUID) (*Batch, error) {
	return s.repo.GetBatch(ctx, batchID)
}

// ListBatches returns recent batches
func (s *Service) ListBatches(ctx context.Context, limit int) ([]Batch, error) {
	return s.repo.ListBatches(ctx, limit)
}

func runItem(tx reward.Transaction, status string) RunItem {
	addr := ""
	if tx.WalletAddress != nil {
		addr = *tx.WalletAddress
	}
	return RunItem{
		TransactionID: tx.ID,
		UserID:        tx.UserID,
		Amount:        tx.Amount.Neg(),
		WalletAddress: addr,
		Status:        status,
	}
}

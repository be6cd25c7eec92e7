package user

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/virala/virala-api/internal/pkg/chain"
)

// Service exposes the user directory: profile reads and wallet linking.
// Account creation and identity live in a separate service.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// GetProfile returns the user's directory entry
func (s *Service) GetProfile(ctx context.Context, userID uuid.UUID) (*User, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// LinkWallet validates and stores the settlement address. The address is
// normalized to its EIP-55 checksum form before it is persisted.
func (s *Service) LinkWallet(ctx context.Context, userID uuid.UUID, address string) (string, error) {
	if !chain.IsValidAddress(address) {
		return "", ErrInvalidAddress
	}

	checksummed := chain.ChecksumAddress(address)
	if err := s.repo.LinkWallet(ctx, userID, checksummed); err != nil {
		return "", err
	}

	log.Info().
		Str("user_id", userID.String()).
		Str("wallet", checksummed).
		Msg("Wallet linked")

	return checksummed, nil
}

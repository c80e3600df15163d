package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/pawsitter-settlement/internal/domain/journal"
	"github.com/pawsitter-settlement/internal/domain/shared"
	"github.com/pawsitter-settlement/internal/domain/wallet"
)

// WalletServiceImpl implements the WalletService interface
type WalletServiceImpl struct {
	wallets      wallet.Repository
	transactions wallet.TransactionRepository
	journal      journal.Repository
}

// NewWalletService creates a new wallet query service
func NewWalletService(wallets wallet.Repository, transactions wallet.TransactionRepository, journalRepo journal.Repository) WalletService {
	return &WalletServiceImpl{
		wallets:      wallets,
		transactions: transactions,
		journal:      journalRepo,
	}
}

// GetWallet returns ErrNotFound for a sitter who has never earned
func (s *WalletServiceImpl) GetWallet(ctx context.Context, sitterID uuid.UUID) (*wallet.Wallet, error) {
	w, err := s.wallets.GetBySitterID(ctx, sitterID)
	if err != nil {
		if errors.Is(err, wallet.ErrWalletNotFound{}) {
			return nil, shared.ErrNotFound{Resource: "wallet", ID: sitterID.String()}
		}
		return nil, err
	}
	return w, nil
}

func (s *WalletServiceImpl) ListTransactions(ctx context.Context, sitterID uuid.UUID, page, perPage int) ([]*wallet.Transaction, int64, error) {
	w, err := s.GetWallet(ctx, sitterID)
	if err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * perPage

	transactions, err := s.transactions.ListByWalletID(ctx, w.ID, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.transactions.CountByWalletID(ctx, w.ID)
	if err != nil {
		return nil, 0, err
	}

	return transactions, total, nil
}

func (s *WalletServiceImpl) ListActivity(ctx context.Context, sitterID uuid.UUID, page, perPage int) ([]*journal.Entry, int64, error) {
	offset := (page - 1) * perPage

	entries, err := s.journal.ListBySitterID(ctx, sitterID, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.journal.CountBySitterID(ctx, sitterID)
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

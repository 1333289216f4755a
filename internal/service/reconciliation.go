package service

import (
	"context"
	"fmt"

	"github.com/creatorx/wallet-service/internal/observability"
	"go.uber.org/zap"
)

// ReconciliationService audits the ledger invariant: every wallet's
// balance must equal the signed sum of its completed transactions.
// It only reports; it never rewrites balances.
type ReconciliationService struct {
	store QueryStore
}

func NewReconciliationService(store QueryStore) *ReconciliationService {
	return &ReconciliationService{store: store}
}

// CheckLedger returns the number of wallets whose balance drifted from
// their completed transaction sum. Drift indicates a write that went
// around the guarded balance update and always warrants investigation.
func (s *ReconciliationService) CheckLedger(ctx context.Context) (int, error) {
	drifted, err := s.store.Queries().GetWalletDrift(ctx)
	if err != nil {
		return 0, fmt.Errorf("get wallet drift: %w", err)
	}

	for _, row := range drifted {
		observability.IncrementLedgerConflict()
		zap.L().Error("wallet balance drifted from completed transaction sum",
			zap.String("wallet_id", row.WalletID.String()),
			zap.Int64("balance", row.Balance),
			zap.Int64("completed_sum", row.CompletedSum),
		)
	}
	return len(drifted), nil
}

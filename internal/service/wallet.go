package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/creatorx/wallet-service/internal/domain"
	"github.com/creatorx/wallet-service/internal/gateway"
	"github.com/creatorx/wallet-service/internal/models"
	"github.com/creatorx/wallet-service/internal/observability"
	"github.com/creatorx/wallet-service/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrInvalidSignature        = errors.New("invalid payment signature")
	ErrTransactionNotFound     = errors.New("transaction not found")
	ErrTransactionFinalized    = errors.New("transaction already finalized")
	ErrPaymentNotSuccessful    = errors.New("payment not successful")
	ErrConcurrentModification  = errors.New("concurrent wallet modification")
	ErrPayoutRequestNotFound   = errors.New("payout request not found")
	ErrPayoutRequestNotPending = errors.New("payout request is not pending")
)

const (
	// walletWriteAttempts bounds the compare-and-swap retry loop on the
	// wallet version before giving up with ErrConcurrentModification.
	walletWriteAttempts = 3

	defaultStaleWindow = 30 * time.Minute
)

// WalletService is the sole mutator of wallet balances and transaction
// statuses. Both the synchronous verify-payment path and the webhook
// reconciler funnel topup completion through CompleteTopup, so the
// idempotency guard lives in exactly one place.
type WalletService struct {
	store   QueryStore
	gateway gateway.Gateway
	audit   *AuditService

	feeRate     decimal.Decimal
	feeMinimum  int64 // paise
	staleWindow time.Duration
}

func NewWalletService(store QueryStore, gw gateway.Gateway) *WalletService {
	return &WalletService{
		store:       store,
		gateway:     gw,
		audit:       NewAuditService(store),
		feeRate:     decimal.NewFromFloat(0.02),
		feeMinimum:  1_000, // ₹10
		staleWindow: defaultStaleWindow,
	}
}

// WithPayoutFee overrides the processing fee schedule.
func (s *WalletService) WithPayoutFee(rate decimal.Decimal, minimum int64) *WalletService {
	if rate.IsPositive() {
		s.feeRate = rate
	}
	if minimum > 0 {
		s.feeMinimum = minimum
	}
	return s
}

// WithStaleWindow overrides the default stale pending window.
func (s *WalletService) WithStaleWindow(window time.Duration) *WalletService {
	if window > 0 {
		s.staleWindow = window
	}
	return s
}

// StaleWindow returns the configured stale pending window.
func (s *WalletService) StaleWindow() time.Duration {
	return s.staleWindow
}

// GetOrCreateWallet returns the user's wallet, creating it on first
// access. The insert is ON CONFLICT DO NOTHING on user_id, so a race
// between two first requests never yields two wallets: the loser falls
// through to the fetch.
func (s *WalletService) GetOrCreateWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	queries := s.store.Queries()

	wallet, err := queries.GetWalletByUserID(ctx, userID)
	if err == nil {
		return &wallet, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get wallet: %w", err)
	}

	if _, err := queries.CreateWallet(ctx, repository.CreateWalletParams{
		ID:       uuid.New(),
		UserID:   userID,
		Currency: domain.DefaultCurrency,
	}); err != nil {
		return nil, fmt.Errorf("create wallet: %w", err)
	}

	wallet, err = queries.GetWalletByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get wallet after create: %w", err)
	}
	return &wallet, nil
}

// CreateTopupOrder asks the gateway for an order and records a pending
// transaction keyed by the gateway order id. The balance is untouched;
// crediting happens only on verified completion. A gateway failure
// leaves no transaction behind.
func (s *WalletService) CreateTopupOrder(ctx context.Context, userID uuid.UUID, amount int64) (*gateway.Order, *models.Transaction, error) {
	if amount <= 0 {
		return nil, nil, fmt.Errorf("invalid amount: %d", amount)
	}

	wallet, err := s.GetOrCreateWallet(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	receipt := fmt.Sprintf("topup_%s_%d", userID, time.Now().UnixNano())
	order, err := s.gateway.CreateOrder(ctx, amount, wallet.Currency, receipt, map[string]string{
		"user_id": userID.String(),
		"type":    "wallet_topup",
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create gateway order: %w", err)
	}

	metadata, err := json.Marshal(map[string]string{"receipt": receipt})
	if err != nil {
		return nil, nil, fmt.Errorf("encode metadata: %w", err)
	}

	var txn models.Transaction
	err = s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		txn, err = qtx.CreateTransaction(ctx, repository.CreateTransactionParams{
			ID:              uuid.New(),
			WalletID:        wallet.ID,
			Type:            domain.TxTypeTopup,
			Amount:          amount,
			Status:          domain.TxStatusPending,
			Currency:        wallet.Currency,
			RazorpayOrderID: &order.ID,
			Description:     fmt.Sprintf("Wallet topup of %s", domain.NewMoney(amount, wallet.Currency)),
			Metadata:        metadata,
		})
		if err != nil {
			return fmt.Errorf("create transaction: %w", err)
		}
		return s.audit.Write(ctx, qtx, "transaction", txn.ID, nil, "created", "", domain.TxStatusPending, metadata)
	})
	if err != nil {
		return nil, nil, err
	}

	return order, &txn, nil
}

// VerifyAndCompletePayment is the client-driven completion path: it
// checks the checkout signature before anything else touches the
// ledger, then funnels into CompleteTopup.
func (s *WalletService) VerifyAndCompletePayment(ctx context.Context, orderID, paymentID, signature string) (*models.Transaction, error) {
	if !s.gateway.VerifyPaymentSignature(orderID, paymentID, signature) {
		return nil, ErrInvalidSignature
	}
	return s.CompleteTopup(ctx, orderID, paymentID, &signature)
}

// CompleteTopup finalizes a topup for a gateway order. It is safe to
// call any number of times and from both the verify endpoint and the
// webhook reconciler: a transaction that is already completed is
// returned unchanged and the wallet is credited exactly once.
//
// The gateway is re-queried for the authoritative payment status; the
// signature alone is not proof of capture.
func (s *WalletService) CompleteTopup(ctx context.Context, orderID, paymentID string, signature *string) (*models.Transaction, error) {
	queries := s.store.Queries()

	txn, err := queries.GetTransactionByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("get transaction by order id: %w", err)
	}
	if txn.Status == domain.TxStatusCompleted {
		zap.L().Warn("transaction already completed", zap.String("transaction_id", txn.ID.String()), zap.String("order_id", orderID))
		return &txn, nil
	}
	if txn.Status != domain.TxStatusPending {
		return nil, fmt.Errorf("%w: status %s", ErrTransactionFinalized, txn.Status)
	}

	payment, err := s.gateway.FetchPayment(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("fetch payment: %w", err)
	}

	if payment.Status != domain.PaymentStatusCaptured && payment.Status != domain.PaymentStatusAuthorized {
		if failErr := s.failPendingTopup(ctx, orderID, paymentID, fmt.Sprintf("Failed: payment status %s", payment.Status)); failErr != nil {
			return nil, failErr
		}
		return nil, fmt.Errorf("%w: status %s", ErrPaymentNotSuccessful, payment.Status)
	}
	if payment.Amount != 0 && payment.Amount != txn.Amount {
		if failErr := s.failPendingTopup(ctx, orderID, paymentID, fmt.Sprintf("Failed: amount mismatch %d != %d", payment.Amount, txn.Amount)); failErr != nil {
			return nil, failErr
		}
		return nil, fmt.Errorf("%w: amount mismatch", ErrPaymentNotSuccessful)
	}

	var completed models.Transaction
	err = s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		// Re-read under the row lock: the webhook reconciler or a second
		// verify call may have completed or failed it meanwhile.
		row, err := qtx.GetTransactionByOrderIDForUpdate(ctx, orderID)
		if err != nil {
			return fmt.Errorf("lock transaction: %w", err)
		}
		if row.Status == domain.TxStatusCompleted {
			completed = row
			return nil
		}
		if row.Status != domain.TxStatusPending {
			return fmt.Errorf("%w: status %s", ErrTransactionFinalized, row.Status)
		}

		rows, err := qtx.CompleteTransaction(ctx, repository.CompleteTransactionParams{
			ID:                row.ID,
			RazorpayPaymentID: paymentID,
			RazorpaySignature: signature,
		})
		if err != nil {
			return fmt.Errorf("complete transaction: %w", err)
		}
		if err := requireExactlyOne(rows, "complete transaction"); err != nil {
			return err
		}
		if err := s.audit.Write(ctx, qtx, "transaction", row.ID, nil, "topup_completed", domain.TxStatusPending, domain.TxStatusCompleted, nil); err != nil {
			return err
		}

		if err := s.applyWalletDelta(ctx, qtx, row.WalletID, row.Amount); err != nil {
			return err
		}

		completed, err = qtx.GetTransaction(ctx, row.ID)
		if err != nil {
			return fmt.Errorf("reload transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("topup completed",
		zap.String("transaction_id", completed.ID.String()),
		zap.String("order_id", orderID),
		zap.Int64("amount", completed.Amount),
	)
	return &completed, nil
}

// failPendingTopup marks a still-pending topup failed; a transaction
// that reached a terminal state meanwhile is left untouched.
func (s *WalletService) failPendingTopup(ctx context.Context, orderID, paymentID, reason string) error {
	return s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		row, err := qtx.GetTransactionByOrderIDForUpdate(ctx, orderID)
		if err != nil {
			return fmt.Errorf("lock transaction: %w", err)
		}
		if row.Status != domain.TxStatusPending {
			return nil
		}
		rows, err := qtx.FailTransaction(ctx, repository.FailTransactionParams{
			ID:                row.ID,
			Reason:            reason,
			RazorpayPaymentID: &paymentID,
		})
		if err != nil {
			return fmt.Errorf("fail transaction: %w", err)
		}
		if err := requireExactlyOne(rows, "fail transaction"); err != nil {
			return err
		}
		metadata, metaErr := marshalReasonMetadata(reason)
		if metaErr != nil {
			return fmt.Errorf("marshal failure metadata: %w", metaErr)
		}
		return s.audit.Write(ctx, qtx, "transaction", row.ID, nil, "topup_failed", domain.TxStatusPending, domain.TxStatusFailed, metadata)
	})
}

// applyWalletDelta performs the guarded read-modify-write on a wallet
// balance. The UPDATE is conditioned on the version observed at read
// time; a lost race re-reads and retries up to walletWriteAttempts
// before failing with ErrConcurrentModification.
func (s *WalletService) applyWalletDelta(ctx context.Context, qtx *repository.Queries, walletID uuid.UUID, delta int64) error {
	for attempt := 0; attempt < walletWriteAttempts; attempt++ {
		wallet, err := qtx.GetWallet(ctx, walletID)
		if err != nil {
			return fmt.Errorf("read wallet: %w", err)
		}
		if wallet.Balance+delta < 0 {
			return models.ErrInsufficientBalance
		}

		rows, err := qtx.ApplyWalletDelta(ctx, repository.ApplyWalletDeltaParams{
			ID:      walletID,
			Delta:   delta,
			Version: wallet.Version,
		})
		if err != nil {
			return fmt.Errorf("apply wallet delta: %w", err)
		}
		if rows == 1 {
			return nil
		}
		observability.IncrementWalletCASRetry()
	}
	return ErrConcurrentModification
}

// ListTransactions returns the wallet's transaction history, newest
// first.
func (s *WalletService) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]models.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}

	wallet, err := s.GetOrCreateWallet(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.store.Queries().ListTransactions(ctx, repository.ListTransactionsParams{
		WalletID: wallet.ID,
		Limit:    limit,
		Offset:   offset,
	})
}

// BankDetailsInput is the withdrawal destination supplied by creators.
type BankDetailsInput struct {
	AccountNumber string  `json:"bank_account_number"`
	IFSCCode      string  `json:"bank_ifsc_code"`
	AccountName   string  `json:"bank_account_name"`
	BankName      *string `json:"bank_name,omitempty"`
}

// Validate ensures the destination contains the required fields.
func (d BankDetailsInput) Validate() error {
	if d.AccountNumber == "" {
		return errors.New("bank_account_number is required")
	}
	if d.IFSCCode == "" {
		return errors.New("bank_ifsc_code is required")
	}
	if d.AccountName == "" {
		return errors.New("bank_account_name is required")
	}
	return nil
}

// CreatePayoutRequest records a withdrawal ask. The balance must cover
// the gross amount at request time but is not debited yet; the debit
// happens when an admin processes the request, so funds are never held
// in limbo for a request that ends up rejected.
func (s *WalletService) CreatePayoutRequest(ctx context.Context, userID uuid.UUID, amount int64, bank BankDetailsInput) (*models.PayoutRequest, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("invalid amount: %d", amount)
	}
	if err := bank.Validate(); err != nil {
		return nil, err
	}

	wallet, err := s.GetOrCreateWallet(ctx, userID)
	if err != nil {
		return nil, err
	}
	if wallet.Balance < amount {
		return nil, models.ErrInsufficientBalance
	}

	fee := domain.ProcessingFee(amount, s.feeRate, s.feeMinimum)
	net := amount - fee
	if net <= 0 {
		return nil, fmt.Errorf("amount %d does not cover the processing fee %d", amount, fee)
	}

	var req models.PayoutRequest
	err = s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		req, err = qtx.CreatePayoutRequest(ctx, repository.CreatePayoutRequestParams{
			ID:                uuid.New(),
			UserID:            userID,
			Amount:            amount,
			Currency:          wallet.Currency,
			BankAccountNumber: bank.AccountNumber,
			BankIFSCCode:      bank.IFSCCode,
			BankAccountName:   bank.AccountName,
			BankName:          bank.BankName,
			ProcessingFee:     fee,
			NetAmount:         net,
		})
		if err != nil {
			return fmt.Errorf("create payout request: %w", err)
		}
		return s.audit.Write(ctx, qtx, "payout_request", req.ID, &userID, "created", "", domain.PayoutStatusPending, nil)
	})
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// ProcessPayout executes a pending payout request (admin operation).
// The request is claimed (pending -> processing) under a row lock
// before the gateway call, so two concurrent attempts cannot both issue
// a transfer. On gateway success a completed debit transaction is
// recorded and the wallet debited; on a definitive gateway failure the
// request is failed with the error as admin notes and the wallet is
// untouched. A gateway timeout leaves the request in processing, since
// the transfer may still have gone through.
func (s *WalletService) ProcessPayout(ctx context.Context, payoutRequestID uuid.UUID, actorID *uuid.UUID) (*models.Transaction, error) {
	var (
		req             models.PayoutRequest
		wallet          models.Wallet
		insufficientErr error
	)
	err := s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		var err error
		req, err = qtx.GetPayoutRequestForUpdate(ctx, payoutRequestID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrPayoutRequestNotFound
			}
			return fmt.Errorf("lock payout request: %w", err)
		}
		if req.Status != domain.PayoutStatusPending {
			return fmt.Errorf("%w: status %s", ErrPayoutRequestNotPending, req.Status)
		}

		wallet, err = qtx.GetWalletByUserID(ctx, req.UserID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return models.ErrWalletNotFound
			}
			return fmt.Errorf("get wallet: %w", err)
		}

		// Balance re-check: time has passed since request creation.
		if wallet.Balance < req.Amount {
			notes := "Insufficient balance"
			if err := transitionPayoutRequest(ctx, qtx, s.audit, &req, domain.PayoutStatusFailed, &notes, actorID, "processing_rejected", nil); err != nil {
				return err
			}
			insufficientErr = models.ErrInsufficientBalance
			return nil
		}

		return transitionPayoutRequest(ctx, qtx, s.audit, &req, domain.PayoutStatusProcessing, nil, actorID, "processing_started", nil)
	})
	if err != nil {
		return nil, err
	}
	if insufficientErr != nil {
		return nil, insufficientErr
	}

	payout, err := s.gateway.CreatePayout(ctx, gateway.PayoutDestination{
		AccountNumber: req.BankAccountNumber,
		IFSC:          req.BankIFSCCode,
		Name:          req.BankAccountName,
	}, req.NetAmount, map[string]string{
		"payout_request_id": req.ID.String(),
		"user_id":           req.UserID.String(),
	})
	if err != nil {
		if errors.Is(err, gateway.ErrTimeout) {
			// A timed-out transfer may still settle at the gateway, so
			// the request stays in processing until the payout webhook
			// or an operator resolves it.
			zap.L().Error("gateway payout timed out; request left processing for reconciliation",
				zap.Error(err), zap.String("payout_request_id", payoutRequestID.String()))
			return nil, fmt.Errorf("create gateway payout: %w", err)
		}
		notes := err.Error()
		failErr := s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
			row, lockErr := qtx.GetPayoutRequestForUpdate(ctx, payoutRequestID)
			if lockErr != nil {
				return fmt.Errorf("lock payout request: %w", lockErr)
			}
			metadata, metaErr := marshalReasonMetadata(notes)
			if metaErr != nil {
				return fmt.Errorf("marshal failure metadata: %w", metaErr)
			}
			return transitionPayoutRequest(ctx, qtx, s.audit, &row, domain.PayoutStatusFailed, &notes, actorID, "gateway_failed", metadata)
		})
		if failErr != nil {
			zap.L().Error("failed to mark payout request failed after gateway error",
				zap.Error(failErr), zap.String("payout_request_id", payoutRequestID.String()))
		}
		return nil, fmt.Errorf("create gateway payout: %w", err)
	}

	metadata, err := json.Marshal(map[string]int64{"processing_fee": req.ProcessingFee})
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}

	var txn models.Transaction
	now := time.Now()
	err = s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		txn, err = qtx.CreateTransaction(ctx, repository.CreateTransactionParams{
			ID:               uuid.New(),
			WalletID:         wallet.ID,
			Type:             domain.TxTypePayout,
			Amount:           -req.Amount, // gross debit; the fee is kept by the platform
			Status:           domain.TxStatusCompleted,
			Currency:         req.Currency,
			RazorpayPayoutID: &payout.ID,
			Description:      fmt.Sprintf("Withdrawal of %s", domain.NewMoney(req.Amount, req.Currency)),
			Metadata:         metadata,
			PayoutRequestID:  &req.ID,
			CompletedAt:      &now,
		})
		if err != nil {
			return fmt.Errorf("create payout transaction: %w", err)
		}
		if err := s.audit.Write(ctx, qtx, "transaction", txn.ID, actorID, "payout_debited", "", domain.TxStatusCompleted, metadata); err != nil {
			return err
		}
		return s.applyWalletDelta(ctx, qtx, wallet.ID, -req.Amount)
	})
	if err != nil {
		// The gateway transfer is already in flight and cannot be
		// recalled; the request stays in processing for the webhook or
		// an operator to settle.
		zap.L().Error("payout issued at gateway but local debit failed; manual reconciliation required",
			zap.Error(err),
			zap.String("payout_request_id", req.ID.String()),
			zap.String("gateway_payout_id", payout.ID),
		)
		return nil, err
	}

	zap.L().Info("payout processing",
		zap.String("payout_request_id", req.ID.String()),
		zap.String("gateway_payout_id", payout.ID),
		zap.Int64("gross", req.Amount),
		zap.Int64("net", req.NetAmount),
	)
	return &txn, nil
}

// RejectPayoutRequest declines a pending request before any debit
// occurred (admin operation).
func (s *WalletService) RejectPayoutRequest(ctx context.Context, payoutRequestID uuid.UUID, actorID *uuid.UUID, reason string) (*models.PayoutRequest, error) {
	var req models.PayoutRequest
	err := s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		var err error
		req, err = qtx.GetPayoutRequestForUpdate(ctx, payoutRequestID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrPayoutRequestNotFound
			}
			return fmt.Errorf("lock payout request: %w", err)
		}
		if req.Status != domain.PayoutStatusPending {
			return fmt.Errorf("%w: status %s", ErrPayoutRequestNotPending, req.Status)
		}
		metadata, metaErr := marshalReasonMetadata(reason)
		if metaErr != nil {
			return fmt.Errorf("marshal rejection metadata: %w", metaErr)
		}
		return transitionPayoutRequest(ctx, qtx, s.audit, &req, domain.PayoutStatusRejected, &reason, actorID, "rejected", metadata)
	})
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// CleanupStalePending fails the wallet's pending transactions older
// than maxAge. A zero maxAge is the explicit manual override that
// sweeps every pending transaction regardless of age; routine callers
// pass the configured window. Terminal transactions are never touched:
// the UPDATE's status predicate is re-evaluated under the row lock held
// by any concurrent completion.
func (s *WalletService) CleanupStalePending(ctx context.Context, userID uuid.UUID, maxAge time.Duration) (int, error) {
	if maxAge < 0 {
		return 0, fmt.Errorf("invalid max age: %v", maxAge)
	}
	cutoff := time.Now().Add(-maxAge)

	var count int
	err := s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		wallet, err := qtx.GetWalletByUserID(ctx, userID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			return fmt.Errorf("get wallet: %w", err)
		}

		ids, err := qtx.MarkStalePendingTransactions(ctx, repository.MarkStalePendingParams{
			WalletID: wallet.ID,
			Cutoff:   cutoff,
		})
		if err != nil {
			return fmt.Errorf("mark stale pending: %w", err)
		}
		for _, id := range ids {
			if err := s.audit.Write(ctx, qtx, "transaction", id, nil, "timed_out", domain.TxStatusPending, domain.TxStatusFailed, nil); err != nil {
				return err
			}
		}
		count = len(ids)
		return nil
	})
	if err != nil {
		return 0, err
	}

	if count > 0 {
		zap.L().Info("cleaned up stale pending transactions",
			zap.String("user_id", userID.String()),
			zap.Int("count", count),
		)
	}
	return count, nil
}

// SweepStalePending is the background variant of CleanupStalePending:
// it times out pending transactions older than the configured window
// across all wallets.
func (s *WalletService) SweepStalePending(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-s.staleWindow)

	var count int
	err := s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		ids, err := qtx.MarkAllStalePendingTransactions(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("mark stale pending: %w", err)
		}
		for _, id := range ids {
			if err := s.audit.Write(ctx, qtx, "transaction", id, nil, "timed_out", domain.TxStatusPending, domain.TxStatusFailed, nil); err != nil {
				return err
			}
		}
		count = len(ids)
		return nil
	})
	if err != nil {
		return 0, err
	}

	if count > 0 {
		zap.L().Info("swept stale pending transactions", zap.Int("count", count))
	}
	return count, nil
}

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
	"go.uber.org/zap"
)

var ErrWebhookAuthFailure = errors.New("webhook signature verification failed")

const (
	eventPaymentCaptured = "payment.captured"
	eventPaymentFailed   = "payment.failed"
	eventPayoutProcessed = "payout.processed"
	eventPayoutFailed    = "payout.failed"
)

type webhookEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity webhookPayment `json:"entity"`
		} `json:"payment"`
		Payout struct {
			Entity webhookPayout `json:"entity"`
		} `json:"payout"`
	} `json:"payload"`
}

type webhookPayment struct {
	ID               string `json:"id"`
	OrderID          string `json:"order_id"`
	Status           string `json:"status"`
	Amount           int64  `json:"amount"`
	ErrorDescription string `json:"error_description"`
}

type webhookPayout struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	FailureReason string `json:"failure_reason"`
}

// WebhookService reconciles the local ledger against gateway events.
// It is the safety net for clients that drop off after paying and for
// payouts that fail asynchronously at the bank.
type WebhookService struct {
	store   QueryStore
	gateway gateway.Gateway
	wallets *WalletService
	audit   *AuditService
}

func NewWebhookService(store QueryStore, gw gateway.Gateway, wallets *WalletService) *WebhookService {
	return &WebhookService{
		store:   store,
		gateway: gw,
		wallets: wallets,
		audit:   NewAuditService(store),
	}
}

// HandleEvent authenticates and dispatches one webhook delivery. The
// raw body is verified before parsing; an unverifiable delivery is
// rejected outright. Deliveries are retried by the gateway, so every
// branch is idempotent: replaying an already-applied event is a no-op.
func (s *WebhookService) HandleEvent(ctx context.Context, payload []byte, signature string) error {
	if !s.gateway.VerifyWebhookSignature(payload, signature) {
		observability.IncrementWebhookEvent("unverified")
		return ErrWebhookAuthFailure
	}

	var env webhookEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return fmt.Errorf("decode webhook payload: %w", err)
	}

	logger := zap.L().With(zap.String("event", env.Event))
	observability.IncrementWebhookEvent(env.Event)

	switch env.Event {
	case eventPaymentCaptured:
		return s.handlePaymentCaptured(ctx, logger, env.Payload.Payment.Entity)
	case eventPaymentFailed:
		return s.handlePaymentFailed(ctx, logger, env.Payload.Payment.Entity)
	case eventPayoutProcessed:
		return s.handlePayoutProcessed(ctx, logger, env.Payload.Payout.Entity)
	case eventPayoutFailed:
		return s.handlePayoutFailed(ctx, logger, env.Payload.Payout.Entity)
	default:
		// Acknowledge so the gateway stops retrying; nothing to do.
		logger.Debug("ignoring webhook event")
		return nil
	}
}

func (s *WebhookService) handlePaymentCaptured(ctx context.Context, logger *zap.Logger, payment webhookPayment) error {
	if payment.OrderID == "" || payment.ID == "" {
		logger.Warn("payment.captured event missing identifiers")
		return nil
	}

	_, err := s.wallets.CompleteTopup(ctx, payment.OrderID, payment.ID, nil)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrTransactionNotFound):
		// An order this service never issued; acknowledge.
		logger.Warn("no transaction for captured payment", zap.String("order_id", payment.OrderID))
		return nil
	case errors.Is(err, ErrTransactionFinalized):
		observability.IncrementLedgerConflict()
		logger.Error("captured payment for a failed transaction; manual review required",
			zap.String("order_id", payment.OrderID), zap.String("payment_id", payment.ID))
		return nil
	default:
		return err
	}
}

func (s *WebhookService) handlePaymentFailed(ctx context.Context, logger *zap.Logger, payment webhookPayment) error {
	if payment.OrderID == "" {
		logger.Warn("payment.failed event missing order id")
		return nil
	}

	return s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		row, err := qtx.GetTransactionByOrderIDForUpdate(ctx, payment.OrderID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				logger.Warn("no transaction for failed payment", zap.String("order_id", payment.OrderID))
				return nil
			}
			return fmt.Errorf("lock transaction: %w", err)
		}

		switch row.Status {
		case domain.TxStatusPending:
		case domain.TxStatusCompleted:
			// The wallet was credited for a payment the gateway says
			// failed. Surface loudly but acknowledge the delivery.
			observability.IncrementLedgerConflict()
			logger.Error("gateway reports failure for a completed transaction; manual review required",
				zap.String("transaction_id", row.ID.String()), zap.String("order_id", payment.OrderID))
			return nil
		default:
			return nil
		}

		reason := payment.ErrorDescription
		if reason == "" {
			reason = "Payment failed"
		}
		var paymentID *string
		if payment.ID != "" {
			paymentID = &payment.ID
		}
		rows, err := qtx.FailTransaction(ctx, repository.FailTransactionParams{
			ID:                row.ID,
			Reason:            reason,
			RazorpayPaymentID: paymentID,
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
		return s.audit.Write(ctx, qtx, "transaction", row.ID, nil, "payment_failed", domain.TxStatusPending, domain.TxStatusFailed, metadata)
	})
}

func (s *WebhookService) handlePayoutProcessed(ctx context.Context, logger *zap.Logger, payout webhookPayout) error {
	if payout.ID == "" {
		logger.Warn("payout.processed event missing payout id")
		return nil
	}

	return s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		req, err := qtx.GetPayoutRequestByPayoutIDForUpdate(ctx, payout.ID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				logger.Warn("no payout request for processed payout", zap.String("payout_id", payout.ID))
				return nil
			}
			return fmt.Errorf("lock payout request: %w", err)
		}
		if req.Status == domain.PayoutStatusCompleted {
			return nil
		}
		return transitionPayoutRequest(ctx, qtx, s.audit, &req, domain.PayoutStatusCompleted, nil, nil, "payout_settled", nil)
	})
}

// handlePayoutFailed refunds the gross debit. The transfer was debited
// when the payout was issued; the bank rejecting it afterwards means
// the funds must go back. The refund is a new completed transaction
// rather than a reversal of the original row, so the history keeps
// both sides.
func (s *WebhookService) handlePayoutFailed(ctx context.Context, logger *zap.Logger, payout webhookPayout) error {
	if payout.ID == "" {
		logger.Warn("payout.failed event missing payout id")
		return nil
	}

	return s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		req, err := qtx.GetPayoutRequestByPayoutIDForUpdate(ctx, payout.ID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				logger.Warn("no payout request for failed payout", zap.String("payout_id", payout.ID))
				return nil
			}
			return fmt.Errorf("lock payout request: %w", err)
		}

		// A replayed delivery finds the request already failed and the
		// refund already booked.
		if req.Status == domain.PayoutStatusFailed {
			return nil
		}
		if req.Status != domain.PayoutStatusProcessing {
			logger.Warn("payout.failed for request in unexpected state",
				zap.String("payout_request_id", req.ID.String()), zap.String("status", req.Status))
			return nil
		}

		reason := payout.FailureReason
		if reason == "" {
			reason = "Payout failed at gateway"
		}
		metadata, metaErr := json.Marshal(map[string]string{
			"gateway_payout_id": payout.ID,
			"failure_reason":    reason,
		})
		if metaErr != nil {
			return fmt.Errorf("marshal refund metadata: %w", metaErr)
		}
		if err := transitionPayoutRequest(ctx, qtx, s.audit, &req, domain.PayoutStatusFailed, &reason, nil, "payout_failed", metadata); err != nil {
			return err
		}

		wallet, err := qtx.GetWalletByUserID(ctx, req.UserID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return models.ErrWalletNotFound
			}
			return fmt.Errorf("get wallet: %w", err)
		}

		now := time.Now()
		refund, err := qtx.CreateTransaction(ctx, repository.CreateTransactionParams{
			ID:              uuid.New(),
			WalletID:        wallet.ID,
			Type:            domain.TxTypeRefund,
			Amount:          req.Amount, // gross back, fee included
			Status:          domain.TxStatusCompleted,
			Currency:        req.Currency,
			Description:     fmt.Sprintf("Refund for failed withdrawal of %s", domain.NewMoney(req.Amount, req.Currency)),
			Metadata:        metadata,
			PayoutRequestID: &req.ID,
			CompletedAt:     &now,
		})
		if err != nil {
			return fmt.Errorf("create refund transaction: %w", err)
		}
		if err := s.audit.Write(ctx, qtx, "transaction", refund.ID, nil, "refund_credited", "", domain.TxStatusCompleted, metadata); err != nil {
			return err
		}

		if err := s.wallets.applyWalletDelta(ctx, qtx, wallet.ID, req.Amount); err != nil {
			return err
		}

		logger.Info("refunded failed payout",
			zap.String("payout_request_id", req.ID.String()),
			zap.Int64("amount", req.Amount),
		)
		return nil
	})
}

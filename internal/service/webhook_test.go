package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/creatorx/wallet-service/internal/domain"
	"github.com/creatorx/wallet-service/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func webhookBody(t *testing.T, event string, entityKind string, entity map[string]any) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"event": event,
		"payload": map[string]any{
			entityKind: map[string]any{"entity": entity},
		},
	})
	require.NoError(t, err)
	return body
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	_, webhookSvc, _ := newTestServices(db)

	body := webhookBody(t, "payment.captured", "payment", map[string]any{"id": "pay_x", "order_id": "order_x"})
	err := webhookSvc.HandleEvent(context.Background(), body, "forged")
	require.ErrorIs(t, err, ErrWebhookAuthFailure)
}

func TestWebhookPaymentCapturedCompletesAbandonedTopup(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	walletSvc, webhookSvc, gw := newTestServices(db)
	ctx := context.Background()

	// The user paid but never returned to the verify endpoint.
	userID := uuid.New()
	order, _, err := walletSvc.CreateTopupOrder(ctx, userID, 75_000)
	require.NoError(t, err)
	paymentID, _ := gw.CapturePayment(order.ID, 75_000)

	body := webhookBody(t, "payment.captured", "payment", map[string]any{
		"id":       paymentID,
		"order_id": order.ID,
		"status":   "captured",
		"amount":   75_000,
	})
	require.NoError(t, webhookSvc.HandleEvent(ctx, body, gw.SignWebhook(body)))
	require.Equal(t, int64(75_000), walletBalance(t, db, userID))

	// Redelivery is a no-op.
	require.NoError(t, webhookSvc.HandleEvent(ctx, body, gw.SignWebhook(body)))
	require.Equal(t, int64(75_000), walletBalance(t, db, userID))
}

func TestWebhookPaymentCapturedUnknownOrderIsAcknowledged(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	_, webhookSvc, gw := newTestServices(db)

	body := webhookBody(t, "payment.captured", "payment", map[string]any{
		"id":       "pay_other_system",
		"order_id": "order_other_system",
		"status":   "captured",
	})
	require.NoError(t, webhookSvc.HandleEvent(context.Background(), body, gw.SignWebhook(body)))
}

func TestWebhookPaymentFailedMarksPending(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	walletSvc, webhookSvc, gw := newTestServices(db)
	ctx := context.Background()

	userID := uuid.New()
	order, pending, err := walletSvc.CreateTopupOrder(ctx, userID, 25_000)
	require.NoError(t, err)

	body := webhookBody(t, "payment.failed", "payment", map[string]any{
		"id":                "pay_declined",
		"order_id":          order.ID,
		"status":            "failed",
		"error_description": "card declined",
	})
	require.NoError(t, webhookSvc.HandleEvent(ctx, body, gw.SignWebhook(body)))

	row, err := repository.New(db).GetTransaction(ctx, pending.ID)
	require.NoError(t, err)
	require.Equal(t, domain.TxStatusFailed, row.Status)
	require.Contains(t, row.Description, "card declined")
	require.Equal(t, int64(0), walletBalance(t, db, userID))
}

func TestWebhookPaymentFailedNeverReversesCompleted(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	walletSvc, webhookSvc, gw := newTestServices(db)
	ctx := context.Background()

	userID := uuid.New()
	txn := topupWallet(t, walletSvc, gw, userID, 60_000)

	body := webhookBody(t, "payment.failed", "payment", map[string]any{
		"id":       *txn.RazorpayPaymentID,
		"order_id": *txn.RazorpayOrderID,
		"status":   "failed",
	})
	// Acknowledged, logged as a conflict, nothing reversed.
	require.NoError(t, webhookSvc.HandleEvent(ctx, body, gw.SignWebhook(body)))

	row, err := repository.New(db).GetTransaction(ctx, txn.ID)
	require.NoError(t, err)
	require.Equal(t, domain.TxStatusCompleted, row.Status)
	require.Equal(t, int64(60_000), walletBalance(t, db, userID))
}

func TestWebhookPayoutProcessedSettlesRequest(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	walletSvc, webhookSvc, gw := newTestServices(db)
	ctx := context.Background()

	userID := uuid.New()
	topupWallet(t, walletSvc, gw, userID, 100_000)

	req, err := walletSvc.CreatePayoutRequest(ctx, userID, 40_000, testBank)
	require.NoError(t, err)
	adminID := uuid.New()
	txn, err := walletSvc.ProcessPayout(ctx, req.ID, &adminID)
	require.NoError(t, err)

	body := webhookBody(t, "payout.processed", "payout", map[string]any{
		"id":     *txn.RazorpayPayoutID,
		"status": "processed",
	})
	require.NoError(t, webhookSvc.HandleEvent(ctx, body, gw.SignWebhook(body)))

	row, err := repository.New(db).GetPayoutRequest(ctx, req.ID)
	require.NoError(t, err)
	require.Equal(t, domain.PayoutStatusCompleted, row.Status)
	require.Equal(t, int64(60_000), walletBalance(t, db, userID))

	// Redelivery leaves the settled request alone.
	require.NoError(t, webhookSvc.HandleEvent(ctx, body, gw.SignWebhook(body)))
}

func TestWebhookPayoutFailedRefundsGross(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	walletSvc, webhookSvc, gw := newTestServices(db)
	ctx := context.Background()

	// Concrete round trip: topup 1000.00, withdraw 400.00 (fee 10.00),
	// payout fails downstream, balance restored to 1000.00.
	userID := uuid.New()
	topupWallet(t, walletSvc, gw, userID, 100_000)

	req, err := walletSvc.CreatePayoutRequest(ctx, userID, 40_000, testBank)
	require.NoError(t, err)
	require.Equal(t, int64(1_000), req.ProcessingFee)

	adminID := uuid.New()
	txn, err := walletSvc.ProcessPayout(ctx, req.ID, &adminID)
	require.NoError(t, err)
	require.Equal(t, int64(60_000), walletBalance(t, db, userID))

	body := webhookBody(t, "payout.failed", "payout", map[string]any{
		"id":             *txn.RazorpayPayoutID,
		"status":         "failed",
		"failure_reason": "beneficiary account closed",
	})
	require.NoError(t, webhookSvc.HandleEvent(ctx, body, gw.SignWebhook(body)))
	require.Equal(t, int64(100_000), walletBalance(t, db, userID))

	queries := repository.New(db)
	row, err := queries.GetPayoutRequest(ctx, req.ID)
	require.NoError(t, err)
	require.Equal(t, domain.PayoutStatusFailed, row.Status)
	require.NotNil(t, row.AdminNotes)
	require.Contains(t, *row.AdminNotes, "beneficiary account closed")

	// Exactly one refund transaction, for the gross amount.
	var refundCount int
	var refundSum int64
	err = db.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(amount), 0) FROM transactions
		WHERE payout_request_id = $1 AND type = 'refund'
	`, req.ID).Scan(&refundCount, &refundSum)
	require.NoError(t, err)
	require.Equal(t, 1, refundCount)
	require.Equal(t, int64(40_000), refundSum)

	// Redelivery must not refund twice.
	require.NoError(t, webhookSvc.HandleEvent(ctx, body, gw.SignWebhook(body)))
	require.Equal(t, int64(100_000), walletBalance(t, db, userID))

	// Ledger invariant after the full round trip.
	wallet, err := queries.GetWalletByUserID(ctx, userID)
	require.NoError(t, err)
	sum, err := queries.SumCompletedAmounts(ctx, wallet.ID)
	require.NoError(t, err)
	require.Equal(t, wallet.Balance, sum)
}

func TestWebhookUnknownEventIsAcknowledged(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	_, webhookSvc, gw := newTestServices(db)

	body := webhookBody(t, "invoice.paid", "payment", map[string]any{"id": "inv_1"})
	require.NoError(t, webhookSvc.HandleEvent(context.Background(), body, gw.SignWebhook(body)))
}

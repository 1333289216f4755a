package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/creatorx/wallet-service/internal/gateway"
	"github.com/creatorx/wallet-service/internal/models"
	"github.com/creatorx/wallet-service/internal/service"
	"go.uber.org/zap"
)

// WalletHandler handles HTTP requests for wallet topups, balances and
// payout requests.
type WalletHandler struct {
	walletSvc *service.WalletService
	gw        gateway.Gateway
}

// NewWalletHandler creates a new WalletHandler instance.
func NewWalletHandler(walletSvc *service.WalletService, gw gateway.Gateway) *WalletHandler {
	return &WalletHandler{
		walletSvc: walletSvc,
		gw:        gw,
	}
}

type topupRequest struct {
	Amount int64 `json:"amount"`
}

type topupResponse struct {
	OrderID       string `json:"order_id"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	KeyID         string `json:"key_id"`
	TransactionID string `json:"transaction_id"`
}

// CreateTopup handles POST /v1/wallet/topup
// It creates a gateway order the client opens checkout with.
func (h *WalletHandler) CreateTopup(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	var req topupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}
	if req.Amount <= 0 {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-amount", "Amount must be greater than zero")
		return
	}

	order, txn, err := h.walletSvc.CreateTopupOrder(r.Context(), actorID, req.Amount)
	if err != nil {
		if errors.Is(err, gateway.ErrTimeout) {
			RespondError(w, r, http.StatusGatewayTimeout, "gateway/timeout", "Payment gateway timed out")
			return
		}
		if status, problemType, message, ok := mapDBError(err); ok {
			RespondError(w, r, status, problemType, message)
			return
		}
		zap.L().Error("create topup order failed", zap.Error(err))
		RespondError(w, r, http.StatusBadGateway, "topup/create-failed", "Failed to create topup order")
		return
	}

	RespondJSON(w, http.StatusCreated, topupResponse{
		OrderID:       order.ID,
		Amount:        order.Amount,
		Currency:      order.Currency,
		KeyID:         h.gw.KeyID(),
		TransactionID: txn.ID.String(),
	})
}

type verifyPaymentRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature"`
}

// VerifyPayment handles POST /v1/wallet/topup/verify
// Replays return the already-completed transaction with 200.
func (h *WalletHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	if _, _, err := requestActor(r); err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	var req verifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}
	if req.RazorpayOrderID == "" || req.RazorpayPaymentID == "" || req.RazorpaySignature == "" {
		RespondError(w, r, http.StatusBadRequest, "request/missing-fields", "razorpay_order_id, razorpay_payment_id and razorpay_signature are required")
		return
	}

	txn, err := h.walletSvc.VerifyAndCompletePayment(r.Context(), req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidSignature):
			RespondError(w, r, http.StatusBadRequest, "topup/invalid-signature", "Invalid payment signature")
		case errors.Is(err, service.ErrTransactionNotFound):
			RespondError(w, r, http.StatusNotFound, "topup/transaction-not-found", "No transaction for this order")
		case errors.Is(err, service.ErrPaymentNotSuccessful):
			RespondError(w, r, http.StatusBadRequest, "topup/payment-not-successful", err.Error())
		case errors.Is(err, service.ErrTransactionFinalized):
			RespondError(w, r, http.StatusConflict, "topup/transaction-finalized", "Transaction is already finalized")
		case errors.Is(err, service.ErrConcurrentModification):
			RespondError(w, r, http.StatusConflict, "wallet/concurrent-modification", "Wallet was modified concurrently, retry")
		case errors.Is(err, gateway.ErrTimeout):
			RespondError(w, r, http.StatusGatewayTimeout, "gateway/timeout", "Payment gateway timed out")
		default:
			zap.L().Error("verify payment failed", zap.Error(err))
			RespondError(w, r, http.StatusInternalServerError, "topup/verify-failed", "Failed to verify payment")
		}
		return
	}

	RespondJSON(w, http.StatusOK, txn)
}

type balanceResponse struct {
	WalletID string `json:"wallet_id"`
	Balance  int64  `json:"balance"`
	Currency string `json:"currency"`
}

// GetBalance handles GET /v1/wallet
func (h *WalletHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	wallet, err := h.walletSvc.GetOrCreateWallet(r.Context(), actorID)
	if err != nil {
		zap.L().Error("get wallet failed", zap.Error(err))
		RespondError(w, r, http.StatusInternalServerError, "wallet/read-failed", "Failed to read wallet")
		return
	}

	RespondJSON(w, http.StatusOK, balanceResponse{
		WalletID: wallet.ID.String(),
		Balance:  wallet.Balance,
		Currency: wallet.Currency,
	})
}

// ListTransactions handles GET /v1/wallet/transactions
func (h *WalletHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	limit, offset, err := parsePagination(r)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-pagination", err.Error())
		return
	}

	txns, err := h.walletSvc.ListTransactions(r.Context(), actorID, limit, offset)
	if err != nil {
		zap.L().Error("list transactions failed", zap.Error(err))
		RespondError(w, r, http.StatusInternalServerError, "wallet/list-failed", "Failed to list transactions")
		return
	}
	if txns == nil {
		txns = []models.Transaction{}
	}

	RespondJSON(w, http.StatusOK, map[string]any{
		"items":  txns,
		"limit":  limit,
		"offset": offset,
		"count":  len(txns),
	})
}

type createPayoutRequest struct {
	Amount int64 `json:"amount"`
	service.BankDetailsInput
}

type payoutRequestResponse struct {
	ID            string     `json:"id"`
	Amount        int64      `json:"amount"`
	Currency      string     `json:"currency"`
	Status        string     `json:"status"`
	AccountNumber string     `json:"bank_account_number"`
	IFSCCode      string     `json:"bank_ifsc_code"`
	AccountName   string     `json:"bank_account_name"`
	ProcessingFee int64      `json:"processing_fee"`
	NetAmount     int64      `json:"net_amount"`
	AdminNotes    *string    `json:"admin_notes,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	ReviewedAt    *time.Time `json:"reviewed_at,omitempty"`
}

func payoutRequestToResponse(req *models.PayoutRequest) payoutRequestResponse {
	return payoutRequestResponse{
		ID:            req.ID.String(),
		Amount:        req.Amount,
		Currency:      req.Currency,
		Status:        req.Status,
		AccountNumber: req.MaskedAccountNumber(),
		IFSCCode:      req.BankIFSCCode,
		AccountName:   req.BankAccountName,
		ProcessingFee: req.ProcessingFee,
		NetAmount:     req.NetAmount,
		AdminNotes:    req.AdminNotes,
		CreatedAt:     req.CreatedAt,
		ReviewedAt:    req.ReviewedAt,
	}
}

// CreatePayout handles POST /v1/wallet/payouts
// It records a withdrawal request for admin review; no funds move yet.
func (h *WalletHandler) CreatePayout(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	var req createPayoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}
	if req.Amount <= 0 {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-amount", "Amount must be greater than zero")
		return
	}
	if err := req.BankDetailsInput.Validate(); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-destination", err.Error())
		return
	}

	payoutReq, err := h.walletSvc.CreatePayoutRequest(r.Context(), actorID, req.Amount, req.BankDetailsInput)
	if err != nil {
		if errors.Is(err, models.ErrInsufficientBalance) {
			RespondError(w, r, http.StatusBadRequest, "payout/insufficient-balance", "Insufficient wallet balance")
			return
		}
		if status, problemType, message, ok := mapDBError(err); ok {
			RespondError(w, r, status, problemType, message)
			return
		}
		zap.L().Error("create payout request failed", zap.Error(err))
		RespondError(w, r, http.StatusInternalServerError, "payout/create-failed", "Failed to create payout request")
		return
	}

	RespondJSON(w, http.StatusCreated, payoutRequestToResponse(payoutReq))
}

// CleanupPending handles POST /v1/wallet/cleanup
// It times out the caller's stale pending transactions.
func (h *WalletHandler) CleanupPending(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	count, err := h.walletSvc.CleanupStalePending(r.Context(), actorID, h.walletSvc.StaleWindow())
	if err != nil {
		zap.L().Error("cleanup pending failed", zap.Error(err))
		RespondError(w, r, http.StatusInternalServerError, "wallet/cleanup-failed", "Failed to clean up pending transactions")
		return
	}

	RespondJSON(w, http.StatusOK, map[string]any{"cleaned_up": count})
}

package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/creatorx/wallet-service/internal/gateway"
	"github.com/creatorx/wallet-service/internal/models"
	"github.com/creatorx/wallet-service/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AdminHandler handles the admin-only payout review routes.
type AdminHandler struct {
	walletSvc *service.WalletService
}

// NewAdminHandler creates a new AdminHandler instance.
func NewAdminHandler(walletSvc *service.WalletService) *AdminHandler {
	return &AdminHandler{walletSvc: walletSvc}
}

// ProcessPayout handles POST /v1/admin/payouts/{id}/process
// It claims the pending request and issues the bank transfer.
func (h *AdminHandler) ProcessPayout(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	requestID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-payout-request-id", "Invalid payout request ID")
		return
	}

	txn, err := h.walletSvc.ProcessPayout(r.Context(), requestID, &actorID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPayoutRequestNotFound):
			RespondError(w, r, http.StatusNotFound, "payout/not-found", "Payout request not found")
		case errors.Is(err, service.ErrPayoutRequestNotPending):
			RespondError(w, r, http.StatusConflict, "payout/not-pending", "Payout request is not pending")
		case errors.Is(err, models.ErrInsufficientBalance):
			RespondError(w, r, http.StatusBadRequest, "payout/insufficient-balance", "Wallet balance no longer covers the payout")
		case errors.Is(err, service.ErrConcurrentModification):
			RespondError(w, r, http.StatusConflict, "wallet/concurrent-modification", "Wallet was modified concurrently, retry")
		case errors.Is(err, gateway.ErrTimeout):
			RespondError(w, r, http.StatusGatewayTimeout, "gateway/timeout", "Payment gateway timed out")
		default:
			zap.L().Error("process payout failed", zap.Error(err), zap.String("payout_request_id", requestID.String()))
			RespondError(w, r, http.StatusBadGateway, "payout/process-failed", "Failed to process payout")
		}
		return
	}

	RespondJSON(w, http.StatusOK, txn)
}

type rejectPayoutRequest struct {
	Reason string `json:"reason"`
}

// RejectPayout handles POST /v1/admin/payouts/{id}/reject
func (h *AdminHandler) RejectPayout(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	requestID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-payout-request-id", "Invalid payout request ID")
		return
	}

	var req rejectPayoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}
	req.Reason = strings.TrimSpace(req.Reason)
	if req.Reason == "" {
		RespondError(w, r, http.StatusBadRequest, "request/missing-reason", "reason is required")
		return
	}

	payoutReq, err := h.walletSvc.RejectPayoutRequest(r.Context(), requestID, &actorID, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPayoutRequestNotFound):
			RespondError(w, r, http.StatusNotFound, "payout/not-found", "Payout request not found")
		case errors.Is(err, service.ErrPayoutRequestNotPending):
			RespondError(w, r, http.StatusConflict, "payout/not-pending", "Payout request is not pending")
		default:
			zap.L().Error("reject payout failed", zap.Error(err), zap.String("payout_request_id", requestID.String()))
			RespondError(w, r, http.StatusInternalServerError, "payout/reject-failed", "Failed to reject payout")
		}
		return
	}

	RespondJSON(w, http.StatusOK, payoutRequestToResponse(payoutReq))
}

// CleanupUserPending handles POST /v1/admin/wallets/{user_id}/cleanup
// The force flag sweeps every pending transaction regardless of age.
func (h *AdminHandler) CleanupUserPending(w http.ResponseWriter, r *http.Request) {
	if _, _, err := requestActor(r); err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	userID, err := uuid.Parse(chi.URLParam(r, "user_id"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-user-id", "Invalid user ID")
		return
	}

	maxAge := h.walletSvc.StaleWindow()
	if r.URL.Query().Get("force") == "true" {
		maxAge = 0
	}

	count, err := h.walletSvc.CleanupStalePending(r.Context(), userID, maxAge)
	if err != nil {
		zap.L().Error("admin cleanup failed", zap.Error(err), zap.String("user_id", userID.String()))
		RespondError(w, r, http.StatusInternalServerError, "wallet/cleanup-failed", "Failed to clean up pending transactions")
		return
	}

	RespondJSON(w, http.StatusOK, map[string]any{"cleaned_up": count})
}

package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/creatorx/wallet-service/internal/service"
	"go.uber.org/zap"
)

// WebhookHandler handles incoming gateway webhook deliveries.
type WebhookHandler struct {
	webhookSvc *service.WebhookService
}

// NewWebhookHandler creates a new WebhookHandler instance.
func NewWebhookHandler(webhookSvc *service.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhookSvc: webhookSvc}
}

// HandleRazorpayWebhook handles POST /v1/webhooks/razorpay
// The raw body is verified against the webhook secret before any
// processing. A 2xx acknowledges the delivery; transient failures
// return 5xx so the gateway retries.
func (h *WebhookHandler) HandleRazorpayWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		zap.L().Error("read webhook body failed", zap.Error(err))
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Failed to read request body")
		return
	}

	signature := r.Header.Get("X-Razorpay-Signature")

	if err := h.webhookSvc.HandleEvent(r.Context(), body, signature); err != nil {
		if errors.Is(err, service.ErrWebhookAuthFailure) {
			RespondError(w, r, http.StatusUnauthorized, "webhook/invalid-signature", "Invalid webhook signature")
			return
		}
		zap.L().Error("process webhook failed", zap.Error(err))
		RespondError(w, r, http.StatusInternalServerError, "webhook/process-failed", "Failed to process webhook")
		return
	}

	RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

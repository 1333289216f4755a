package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultBaseURL = "https://api.razorpay.com"

// RazorpayGateway talks to the Razorpay REST API over HTTP.
type RazorpayGateway struct {
	client        *resty.Client
	keyID         string
	keySecret     []byte
	webhookSecret []byte
}

var _ Gateway = (*RazorpayGateway)(nil)

// NewRazorpayGateway builds a client with basic auth and a bounded
// request timeout.
func NewRazorpayGateway(baseURL, keyID, keySecret, webhookSecret string, timeout time.Duration) *RazorpayGateway {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetBasicAuth(keyID, keySecret).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")

	return &RazorpayGateway{
		client:        client,
		keyID:         keyID,
		keySecret:     []byte(keySecret),
		webhookSecret: []byte(webhookSecret),
	}
}

// KeyID returns the public key id clients need to open checkout.
func (g *RazorpayGateway) KeyID() string {
	return g.keyID
}

type razorpayAPIError struct {
	ErrorBody struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

func (g *RazorpayGateway) wrapErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, ErrTimeout)
	}
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Timeout() {
		return fmt.Errorf("%s: %w", op, ErrTimeout)
	}
	return &Error{Op: op, Err: err}
}

func apiError(op string, resp *resty.Response) error {
	var body razorpayAPIError
	msg := resp.Status()
	if err := json.Unmarshal(resp.Body(), &body); err == nil && body.ErrorBody.Description != "" {
		msg = fmt.Sprintf("%s: %s", body.ErrorBody.Code, body.ErrorBody.Description)
	}
	return &Error{Op: op, Err: errors.New(msg)}
}

func (g *RazorpayGateway) CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*Order, error) {
	var order Order
	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"amount":   amount,
			"currency": currency,
			"receipt":  receipt,
			"notes":    notes,
		}).
		SetResult(&order).
		Post("/v1/orders")
	if err != nil {
		return nil, g.wrapErr("create order", err)
	}
	if resp.IsError() {
		return nil, apiError("create order", resp)
	}
	return &order, nil
}

// VerifyPaymentSignature checks the checkout signature binding
// order_id|payment_id under the key secret, in constant time.
func (g *RazorpayGateway) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	mac := hmac.New(sha256.New, g.keySecret)
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (g *RazorpayGateway) FetchPayment(ctx context.Context, paymentID string) (*Payment, error) {
	var payment Payment
	resp, err := g.client.R().
		SetContext(ctx).
		SetResult(&payment).
		Get("/v1/payments/" + url.PathEscape(paymentID))
	if err != nil {
		return nil, g.wrapErr("fetch payment", err)
	}
	if resp.IsError() {
		return nil, apiError("fetch payment", resp)
	}
	return &payment, nil
}

func (g *RazorpayGateway) CreatePayout(ctx context.Context, dest PayoutDestination, amount int64, notes map[string]string) (*Payout, error) {
	var payout Payout
	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"account_number": dest.AccountNumber,
			"fund_account": map[string]any{
				"account_type": "bank_account",
				"bank_account": map[string]string{
					"name":           dest.Name,
					"ifsc":           dest.IFSC,
					"account_number": dest.AccountNumber,
				},
			},
			"amount":               amount,
			"currency":             "INR",
			"mode":                 "IMPS",
			"purpose":              "payout",
			"queue_if_low_balance": true,
			"reference_id":         fmt.Sprintf("payout_%d", time.Now().UnixNano()),
			"notes":                notes,
		}).
		SetResult(&payout).
		Post("/v1/payouts")
	if err != nil {
		return nil, g.wrapErr("create payout", err)
	}
	if resp.IsError() {
		return nil, apiError("create payout", resp)
	}
	return &payout, nil
}

// VerifyWebhookSignature authenticates an inbound webhook: hex
// HMAC-SHA256 over the raw body under the webhook secret, compared in
// constant time.
func (g *RazorpayGateway) VerifyWebhookSignature(payload []byte, signature string) bool {
	return verifyWebhookHMAC(g.webhookSecret, payload, signature)
}

func verifyWebhookHMAC(secret, payload []byte, signature string) bool {
	if len(secret) == 0 {
		return false
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// MockGateway simulates the payment gateway for local runs and tests.
// Orders and payments live in memory; payouts fail at the configured
// rate and signatures are real HMACs under the configured secrets, so
// the full verify path is exercised without network access.
type MockGateway struct {
	// FailureRate is the probability a payout fails (0.0 to 1.0).
	FailureRate float64
	// TimeoutRate is the probability a payout call times out instead
	// of answering (0.0 to 1.0).
	TimeoutRate float64

	keySecret     []byte
	webhookSecret []byte

	mu       sync.Mutex
	seq      int
	payments map[string]*Payment
}

var _ Gateway = (*MockGateway)(nil)

func NewMockGateway(keySecret, webhookSecret string) *MockGateway {
	return &MockGateway{
		FailureRate:   0,
		keySecret:     []byte(keySecret),
		webhookSecret: []byte(webhookSecret),
		payments:      make(map[string]*Payment),
	}
}

func (g *MockGateway) KeyID() string {
	return "rzp_test_mock"
}

func (g *MockGateway) nextID(prefix string) string {
	g.seq++
	return fmt.Sprintf("%s_MOCK%06d", prefix, g.seq)
}

func (g *MockGateway) CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return &Order{
		ID:       g.nextID("order"),
		Amount:   amount,
		Currency: currency,
		Receipt:  receipt,
		Status:   "created",
	}, nil
}

// CapturePayment simulates the customer completing checkout and returns
// the payment id plus a valid signature for the order.
func (g *MockGateway) CapturePayment(orderID string, amount int64) (paymentID, signature string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	paymentID = g.nextID("pay")
	g.payments[paymentID] = &Payment{
		ID:      paymentID,
		OrderID: orderID,
		Amount:  amount,
		Status:  "captured",
	}
	return paymentID, g.sign(orderID, paymentID)
}

// FailPayment registers a payment that did not capture.
func (g *MockGateway) FailPayment(orderID string) (paymentID, signature string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	paymentID = g.nextID("pay")
	g.payments[paymentID] = &Payment{
		ID:      paymentID,
		OrderID: orderID,
		Status:  "failed",
	}
	return paymentID, g.sign(orderID, paymentID)
}

func (g *MockGateway) sign(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, g.keySecret)
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func (g *MockGateway) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	return hmac.Equal([]byte(g.sign(orderID, paymentID)), []byte(signature))
}

func (g *MockGateway) FetchPayment(ctx context.Context, paymentID string) (*Payment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.payments[paymentID]
	if !ok {
		return nil, &Error{Op: "fetch payment", Err: fmt.Errorf("payment %s not found", paymentID)}
	}
	cp := *p
	return &cp, nil
}

func (g *MockGateway) CreatePayout(ctx context.Context, dest PayoutDestination, amount int64, notes map[string]string) (*Payout, error) {
	select {
	case <-time.After(time.Duration(rand.Intn(20)) * time.Millisecond):
	case <-ctx.Done():
		return nil, fmt.Errorf("gateway call canceled: %w", ctx.Err())
	}
	if rand.Float64() < g.TimeoutRate {
		return nil, fmt.Errorf("create payout: %w", ErrTimeout)
	}
	if rand.Float64() < g.FailureRate {
		return nil, &Error{Op: "create payout", Err: fmt.Errorf("gateway temporarily unavailable")}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return &Payout{
		ID:     g.nextID("pout"),
		Amount: amount,
		Status: "processing",
	}, nil
}

func (g *MockGateway) VerifyWebhookSignature(payload []byte, signature string) bool {
	return verifyWebhookHMAC(g.webhookSecret, payload, signature)
}

// SignWebhook produces a valid webhook signature, for tests and the
// local event simulator.
func (g *MockGateway) SignWebhook(payload []byte) string {
	mac := hmac.New(sha256.New, g.webhookSecret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

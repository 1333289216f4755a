package gateway

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrTimeout is returned when the gateway did not answer within the
	// configured deadline. The caller must reconcile the outcome later
	// instead of assuming failure.
	ErrTimeout = errors.New("gateway timeout")
)

// Error wraps a non-timeout gateway failure with the failing operation.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Order is a gateway payment order created ahead of a topup.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"` // paise
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// Payment is the authoritative gateway view of a payment attempt.
type Payment struct {
	ID      string `json:"id"`
	OrderID string `json:"order_id"`
	Amount  int64  `json:"amount"` // paise
	Status  string `json:"status"` // created, authorized, captured, failed, ...
}

// Payout is a gateway bank transfer issued for a withdrawal.
type Payout struct {
	ID     string `json:"id"`
	Amount int64  `json:"amount"` // paise
	Status string `json:"status"`
}

// PayoutDestination carries the bank account a payout is sent to.
type PayoutDestination struct {
	AccountNumber string
	IFSC          string
	Name          string
}

// Gateway is the payment gateway capability consumed by the ledger.
// Implementations must bound every call with a timeout and surface
// ErrTimeout rather than hang.
type Gateway interface {
	KeyID() string
	CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*Order, error)
	VerifyPaymentSignature(orderID, paymentID, signature string) bool
	FetchPayment(ctx context.Context, paymentID string) (*Payment, error)
	CreatePayout(ctx context.Context, dest PayoutDestination, amount int64, notes map[string]string) (*Payout, error)
	VerifyWebhookSignature(payload []byte, signature string) bool
}

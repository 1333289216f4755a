package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrWalletNotFound      = errors.New("wallet not found")
)

// Wallet is the single mutable balance record for a user. Balance is
// stored in paise and only ever changes together with a version bump;
// every write is conditioned on the version read beforehand.
type Wallet struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Balance   int64     `json:"balance"` // paise
	Currency  string    `json:"currency"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Transaction is an append-style record of one balance-affecting event.
// The gateway order id is the idempotency key: it is unique and a
// transaction that reached a terminal status is never applied again.
type Transaction struct {
	ID                uuid.UUID  `json:"id"`
	WalletID          uuid.UUID  `json:"wallet_id"`
	Type              string     `json:"type"`
	Amount            int64      `json:"amount"` // paise, negative for payouts
	Status            string     `json:"status"`
	Currency          string     `json:"currency"`
	RazorpayOrderID   *string    `json:"razorpay_order_id,omitempty"`
	RazorpayPaymentID *string    `json:"razorpay_payment_id,omitempty"`
	RazorpaySignature *string    `json:"-"`
	RazorpayPayoutID  *string    `json:"razorpay_payout_id,omitempty"`
	Description       string     `json:"description"`
	Metadata          []byte     `json:"metadata,omitempty"`
	CollaborationID   *uuid.UUID `json:"collaboration_id,omitempty"`
	PayoutRequestID   *uuid.UUID `json:"payout_request_id,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
}

// PayoutRequest is a creator's withdrawal ask. The wallet debit happens
// at processing time, not request time.
type PayoutRequest struct {
	ID                uuid.UUID  `json:"id"`
	UserID            uuid.UUID  `json:"user_id"`
	Amount            int64      `json:"amount"` // gross, paise
	Currency          string     `json:"currency"`
	Status            string     `json:"status"`
	BankAccountNumber string     `json:"bank_account_number"`
	BankIFSCCode      string     `json:"bank_ifsc_code"`
	BankAccountName   string     `json:"bank_account_name"`
	BankName          *string    `json:"bank_name,omitempty"`
	AdminNotes        *string    `json:"admin_notes,omitempty"`
	ReviewedBy        *uuid.UUID `json:"reviewed_by,omitempty"`
	ReviewedAt        *time.Time `json:"reviewed_at,omitempty"`
	ProcessingFee     int64      `json:"processing_fee"` // paise
	NetAmount         int64      `json:"net_amount"`     // paise
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// MaskedAccountNumber returns the bank account number reduced to its
// last four digits for API responses.
func (p PayoutRequest) MaskedAccountNumber() string {
	n := p.BankAccountNumber
	if len(n) <= 4 {
		return "****"
	}
	return "****" + n[len(n)-4:]
}

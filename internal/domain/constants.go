package domain

const (
	DefaultCurrency = "INR"

	TxTypeTopup                = "topup"
	TxTypePayout               = "payout"
	TxTypeCollaborationPayment = "collaboration_payment"
	TxTypeCollaborationEarning = "collaboration_earning"
	TxTypeRefund               = "refund"

	TxStatusPending   = "pending"
	TxStatusCompleted = "completed"
	TxStatusFailed    = "failed"
	TxStatusRefunded  = "refunded"

	// Payout request statuses
	PayoutStatusPending    = "pending"
	PayoutStatusProcessing = "processing"
	PayoutStatusCompleted  = "completed"
	PayoutStatusFailed     = "failed"
	PayoutStatusRejected   = "rejected"

	// Gateway payment statuses that count as a successful capture.
	PaymentStatusCaptured   = "captured"
	PaymentStatusAuthorized = "authorized"
	PaymentStatusFailed     = "failed"
)

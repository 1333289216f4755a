package repository

import (
	"context"
	"time"

	"github.com/creatorx/wallet-service/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx, so the same query
// set runs inside and outside explicit transactions.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries is the hand-written data access layer for the ledger tables.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a query set bound to the given transaction.
func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

const walletColumns = `id, user_id, balance, currency, version, created_at, updated_at`

func scanWallet(row pgx.Row) (models.Wallet, error) {
	var w models.Wallet
	err := row.Scan(&w.ID, &w.UserID, &w.Balance, &w.Currency, &w.Version, &w.CreatedAt, &w.UpdatedAt)
	return w, err
}

type CreateWalletParams struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Currency string
}

// CreateWallet inserts a zero-balance wallet. The unique constraint on
// user_id makes concurrent first-access safe: the loser of the race
// inserts nothing and fetches the winner's row instead.
func (q *Queries) CreateWallet(ctx context.Context, arg CreateWalletParams) (int64, error) {
	tag, err := q.db.Exec(ctx, `
		INSERT INTO wallets (id, user_id, balance, currency, version, created_at, updated_at)
		VALUES ($1, $2, 0, $3, 1, NOW(), NOW())
		ON CONFLICT (user_id) DO NOTHING
	`, arg.ID, arg.UserID, arg.Currency)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (q *Queries) GetWallet(ctx context.Context, id uuid.UUID) (models.Wallet, error) {
	return scanWallet(q.db.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE id = $1`, id))
}

func (q *Queries) GetWalletByUserID(ctx context.Context, userID uuid.UUID) (models.Wallet, error) {
	return scanWallet(q.db.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE user_id = $1`, userID))
}

type ApplyWalletDeltaParams struct {
	ID      uuid.UUID
	Delta   int64 // paise, negative for debits
	Version int64 // version observed at read time
}

// ApplyWalletDelta is the only statement that mutates a wallet balance.
// The write is conditioned on the version observed at read time; zero
// rows affected means a concurrent mutation won and the caller must
// re-read and retry. The balance check constraint rejects overdrafts.
func (q *Queries) ApplyWalletDelta(ctx context.Context, arg ApplyWalletDeltaParams) (int64, error) {
	tag, err := q.db.Exec(ctx, `
		UPDATE wallets
		SET balance = balance + $1, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND version = $3
	`, arg.Delta, arg.ID, arg.Version)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const transactionColumns = `id, wallet_id, type, amount, status, currency,
	razorpay_order_id, razorpay_payment_id, razorpay_signature, razorpay_payout_id,
	description, metadata, collaboration_id, payout_request_id, created_at, completed_at`

func scanTransaction(row pgx.Row) (models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(&t.ID, &t.WalletID, &t.Type, &t.Amount, &t.Status, &t.Currency,
		&t.RazorpayOrderID, &t.RazorpayPaymentID, &t.RazorpaySignature, &t.RazorpayPayoutID,
		&t.Description, &t.Metadata, &t.CollaborationID, &t.PayoutRequestID, &t.CreatedAt, &t.CompletedAt)
	return t, err
}

type CreateTransactionParams struct {
	ID               uuid.UUID
	WalletID         uuid.UUID
	Type             string
	Amount           int64
	Status           string
	Currency         string
	RazorpayOrderID  *string
	RazorpayPayoutID *string
	Description      string
	Metadata         []byte
	PayoutRequestID  *uuid.UUID
	CompletedAt      *time.Time
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (models.Transaction, error) {
	return scanTransaction(q.db.QueryRow(ctx, `
		INSERT INTO transactions (id, wallet_id, type, amount, status, currency,
			razorpay_order_id, razorpay_payout_id, description, metadata, payout_request_id, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), $12)
		RETURNING `+transactionColumns,
		arg.ID, arg.WalletID, arg.Type, arg.Amount, arg.Status, arg.Currency,
		arg.RazorpayOrderID, arg.RazorpayPayoutID, arg.Description, arg.Metadata, arg.PayoutRequestID, arg.CompletedAt))
}

func (q *Queries) GetTransaction(ctx context.Context, id uuid.UUID) (models.Transaction, error) {
	return scanTransaction(q.db.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id))
}

func (q *Queries) GetTransactionByOrderID(ctx context.Context, orderID string) (models.Transaction, error) {
	return scanTransaction(q.db.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE razorpay_order_id = $1`, orderID))
}

// GetTransactionByOrderIDForUpdate locks the transaction row for the
// duration of the surrounding database transaction. Completion, webhook
// failure marking and stale cleanup all contend on this lock.
func (q *Queries) GetTransactionByOrderIDForUpdate(ctx context.Context, orderID string) (models.Transaction, error) {
	return scanTransaction(q.db.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE razorpay_order_id = $1 FOR UPDATE`, orderID))
}

type CompleteTransactionParams struct {
	ID                uuid.UUID
	RazorpayPaymentID string
	RazorpaySignature *string
}

func (q *Queries) CompleteTransaction(ctx context.Context, arg CompleteTransactionParams) (int64, error) {
	tag, err := q.db.Exec(ctx, `
		UPDATE transactions
		SET status = 'completed', razorpay_payment_id = $2, razorpay_signature = $3, completed_at = NOW()
		WHERE id = $1
	`, arg.ID, arg.RazorpayPaymentID, arg.RazorpaySignature)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type FailTransactionParams struct {
	ID                uuid.UUID
	Reason            string
	RazorpayPaymentID *string
}

// FailTransaction marks a transaction failed and appends the reason to
// its description.
func (q *Queries) FailTransaction(ctx context.Context, arg FailTransactionParams) (int64, error) {
	tag, err := q.db.Exec(ctx, `
		UPDATE transactions
		SET status = 'failed',
			description = description || ' - ' || $2,
			razorpay_payment_id = COALESCE($3, razorpay_payment_id)
		WHERE id = $1
	`, arg.ID, arg.Reason, arg.RazorpayPaymentID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type ListTransactionsParams struct {
	WalletID uuid.UUID
	Limit    int32
	Offset   int32
}

func (q *Queries) ListTransactions(ctx context.Context, arg ListTransactionsParams) ([]models.Transaction, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE wallet_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, arg.WalletID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type MarkStalePendingParams struct {
	WalletID uuid.UUID
	Cutoff   time.Time
}

// MarkStalePendingTransactions fails every pending transaction for the
// wallet older than the cutoff and returns the affected ids. Rows being
// completed concurrently are locked by the completer; this UPDATE blocks
// on them and re-evaluates the status predicate after the lock clears,
// so a transaction that just completed is never touched.
func (q *Queries) MarkStalePendingTransactions(ctx context.Context, arg MarkStalePendingParams) ([]uuid.UUID, error) {
	rows, err := q.db.Query(ctx, `
		UPDATE transactions
		SET status = 'failed', description = description || ' - Timed out'
		WHERE wallet_id = $1 AND status = 'pending' AND created_at < $2
		RETURNING id
	`, arg.WalletID, arg.Cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// MarkAllStalePendingTransactions is the sweep variant over every
// wallet, used by the background cleanup worker.
func (q *Queries) MarkAllStalePendingTransactions(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	rows, err := q.db.Query(ctx, `
		UPDATE transactions
		SET status = 'failed', description = description || ' - Timed out'
		WHERE status = 'pending' AND created_at < $1
		RETURNING id
	`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SumCompletedAmounts returns the signed sum of all completed
// transaction amounts for a wallet. The ledger invariant is that this
// always equals the wallet balance.
func (q *Queries) SumCompletedAmounts(ctx context.Context, walletID uuid.UUID) (int64, error) {
	var sum int64
	err := q.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM transactions
		WHERE wallet_id = $1 AND status = 'completed'
	`, walletID).Scan(&sum)
	return sum, err
}

type WalletDriftRow struct {
	WalletID     uuid.UUID
	Balance      int64
	CompletedSum int64
}

// GetWalletDrift reports wallets whose balance diverged from the sum of
// their completed transactions.
func (q *Queries) GetWalletDrift(ctx context.Context) ([]WalletDriftRow, error) {
	rows, err := q.db.Query(ctx, `
		SELECT w.id, w.balance, COALESCE(SUM(t.amount) FILTER (WHERE t.status = 'completed'), 0) AS completed_sum
		FROM wallets w
		LEFT JOIN transactions t ON t.wallet_id = w.id
		GROUP BY w.id, w.balance
		HAVING w.balance <> COALESCE(SUM(t.amount) FILTER (WHERE t.status = 'completed'), 0)
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []WalletDriftRow
	for rows.Next() {
		var r WalletDriftRow
		if err := rows.Scan(&r.WalletID, &r.Balance, &r.CompletedSum); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const payoutRequestColumns = `id, user_id, amount, currency, status,
	bank_account_number, bank_ifsc_code, bank_account_name, bank_name,
	admin_notes, reviewed_by, reviewed_at, processing_fee, net_amount, created_at, updated_at`

func scanPayoutRequest(row pgx.Row) (models.PayoutRequest, error) {
	var p models.PayoutRequest
	err := row.Scan(&p.ID, &p.UserID, &p.Amount, &p.Currency, &p.Status,
		&p.BankAccountNumber, &p.BankIFSCCode, &p.BankAccountName, &p.BankName,
		&p.AdminNotes, &p.ReviewedBy, &p.ReviewedAt, &p.ProcessingFee, &p.NetAmount, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

type CreatePayoutRequestParams struct {
	ID                uuid.UUID
	UserID            uuid.UUID
	Amount            int64
	Currency          string
	BankAccountNumber string
	BankIFSCCode      string
	BankAccountName   string
	BankName          *string
	ProcessingFee     int64
	NetAmount         int64
}

func (q *Queries) CreatePayoutRequest(ctx context.Context, arg CreatePayoutRequestParams) (models.PayoutRequest, error) {
	return scanPayoutRequest(q.db.QueryRow(ctx, `
		INSERT INTO payout_requests (id, user_id, amount, currency, status,
			bank_account_number, bank_ifsc_code, bank_account_name, bank_name,
			processing_fee, net_amount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'pending', $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING `+payoutRequestColumns,
		arg.ID, arg.UserID, arg.Amount, arg.Currency,
		arg.BankAccountNumber, arg.BankIFSCCode, arg.BankAccountName, arg.BankName,
		arg.ProcessingFee, arg.NetAmount))
}

func (q *Queries) GetPayoutRequest(ctx context.Context, id uuid.UUID) (models.PayoutRequest, error) {
	return scanPayoutRequest(q.db.QueryRow(ctx,
		`SELECT `+payoutRequestColumns+` FROM payout_requests WHERE id = $1`, id))
}

func (q *Queries) GetPayoutRequestForUpdate(ctx context.Context, id uuid.UUID) (models.PayoutRequest, error) {
	return scanPayoutRequest(q.db.QueryRow(ctx,
		`SELECT `+payoutRequestColumns+` FROM payout_requests WHERE id = $1 FOR UPDATE`, id))
}

// GetPayoutRequestByPayoutIDForUpdate resolves a gateway payout id to
// its payout request via the linked transaction and locks the request.
func (q *Queries) GetPayoutRequestByPayoutIDForUpdate(ctx context.Context, payoutID string) (models.PayoutRequest, error) {
	return scanPayoutRequest(q.db.QueryRow(ctx, `
		SELECT `+prefixedPayoutRequestColumns+`
		FROM payout_requests pr
		JOIN transactions t ON t.payout_request_id = pr.id
		WHERE t.razorpay_payout_id = $1
		FOR UPDATE OF pr
	`, payoutID))
}

const prefixedPayoutRequestColumns = `pr.id, pr.user_id, pr.amount, pr.currency, pr.status,
	pr.bank_account_number, pr.bank_ifsc_code, pr.bank_account_name, pr.bank_name,
	pr.admin_notes, pr.reviewed_by, pr.reviewed_at, pr.processing_fee, pr.net_amount, pr.created_at, pr.updated_at`

type UpdatePayoutRequestStatusParams struct {
	ID         uuid.UUID
	Status     string
	AdminNotes *string
	ReviewedBy *uuid.UUID
}

func (q *Queries) UpdatePayoutRequestStatus(ctx context.Context, arg UpdatePayoutRequestStatusParams) (int64, error) {
	tag, err := q.db.Exec(ctx, `
		UPDATE payout_requests
		SET status = $2,
			admin_notes = COALESCE($3, admin_notes),
			reviewed_by = COALESCE($4, reviewed_by),
			reviewed_at = CASE WHEN $4::uuid IS NULL THEN reviewed_at ELSE NOW() END,
			updated_at = NOW()
		WHERE id = $1
	`, arg.ID, arg.Status, arg.AdminNotes, arg.ReviewedBy)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type InsertAuditLogParams struct {
	EntityType string
	EntityID   uuid.UUID
	ActorID    *uuid.UUID
	Action     string
	PrevState  *string
	NextState  *string
	Metadata   []byte
}

func (q *Queries) InsertAuditLog(ctx context.Context, arg InsertAuditLogParams) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO audit_log (entity_type, entity_id, actor_id, action, prev_state, next_state, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`, arg.EntityType, arg.EntityID, arg.ActorID, arg.Action, arg.PrevState, arg.NextState, arg.Metadata)
	return err
}

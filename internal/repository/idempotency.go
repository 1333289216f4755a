package repository

import (
	"context"
)

type IdempotencyKeyRow struct {
	IdempotencyKey string
	RequestHash    string
	Method         string
	Path           string
	ResponseStatus int32
	ResponseBody   []byte
	ContentType    string
	InProgress     bool
}

func scanIdempotencyKey(row interface{ Scan(dest ...any) error }) (IdempotencyKeyRow, error) {
	var r IdempotencyKeyRow
	err := row.Scan(&r.IdempotencyKey, &r.RequestHash, &r.Method, &r.Path,
		&r.ResponseStatus, &r.ResponseBody, &r.ContentType, &r.InProgress)
	return r, err
}

const idempotencyColumns = `idempotency_key, request_hash, method, path,
	response_status, response_body, content_type, in_progress`

func (q *Queries) GetIdempotencyKey(ctx context.Context, key string) (IdempotencyKeyRow, error) {
	return scanIdempotencyKey(q.db.QueryRow(ctx,
		`SELECT `+idempotencyColumns+` FROM idempotency_keys WHERE idempotency_key = $1`, key))
}

type ReserveIdempotencyKeyParams struct {
	IdempotencyKey string
	RequestHash    string
	Method         string
	Path           string
}

// ReserveIdempotencyKey claims a key for in-flight processing. Returns
// pgx.ErrNoRows when another request already holds the key.
func (q *Queries) ReserveIdempotencyKey(ctx context.Context, arg ReserveIdempotencyKeyParams) (IdempotencyKeyRow, error) {
	return scanIdempotencyKey(q.db.QueryRow(ctx, `
		INSERT INTO idempotency_keys (idempotency_key, request_hash, method, path, response_status, response_body, content_type, in_progress, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 0, NULL, '', TRUE, NOW(), NOW())
		ON CONFLICT (idempotency_key) DO NOTHING
		RETURNING `+idempotencyColumns,
		arg.IdempotencyKey, arg.RequestHash, arg.Method, arg.Path))
}

type FinalizeIdempotencyKeyParams struct {
	IdempotencyKey string
	ResponseStatus int32
	ResponseBody   []byte
	ContentType    string
}

func (q *Queries) FinalizeIdempotencyKey(ctx context.Context, arg FinalizeIdempotencyKeyParams) (IdempotencyKeyRow, error) {
	return scanIdempotencyKey(q.db.QueryRow(ctx, `
		UPDATE idempotency_keys
		SET response_status = $2, response_body = $3, content_type = $4, in_progress = FALSE, updated_at = NOW()
		WHERE idempotency_key = $1
		RETURNING `+idempotencyColumns,
		arg.IdempotencyKey, arg.ResponseStatus, arg.ResponseBody, arg.ContentType))
}

func (q *Queries) DeleteExpiredIdempotencyKeys(ctx context.Context, ttlSeconds int64) (int64, error) {
	tag, err := q.db.Exec(ctx,
		`DELETE FROM idempotency_keys WHERE updated_at < NOW() - ($1 * INTERVAL '1 second')`, ttlSeconds)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/flash-sale-checkout/internal/model"
	"github.com/fairyhunter13/flash-sale-checkout/internal/service"
	"github.com/fairyhunter13/flash-sale-checkout/pkg/database"
)

// WebhookRepository provides data access for webhook logs and pending
// payment results using pgx.
type WebhookRepository struct {
	pool PoolInterface
}

// NewWebhookRepository creates a new WebhookRepository with the given pool.
func NewWebhookRepository(pool *pgxpool.Pool) *WebhookRepository {
	return &WebhookRepository{pool: pool}
}

// NewWebhookRepositoryWithPool creates a new WebhookRepository with a custom
// pool interface. This is primarily used for testing.
func NewWebhookRepositoryWithPool(pool PoolInterface) *WebhookRepository {
	return &WebhookRepository{pool: pool}
}

// GetLog retrieves a sealed webhook log by idempotency key.
// Returns nil, nil if no log exists for the key.
func (r *WebhookRepository) GetLog(ctx context.Context, idempotencyKey string) (*model.WebhookLog, error) {
	query := `SELECT idempotency_key, response_body, response_status_code FROM webhook_logs
		WHERE idempotency_key = $1`

	var log model.WebhookLog
	err := r.pool.QueryRow(ctx, query, idempotencyKey).
		Scan(&log.IdempotencyKey, &log.ResponseBody, &log.ResponseStatusCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not sealed yet - let service handle
		}
		return nil, fmt.Errorf("get webhook log: %w", err)
	}
	return &log, nil
}

// InsertLog seals the response for an idempotency key within a transaction.
// The primary key on idempotency_key guarantees exactly one sealed response
// per key; a violation is returned as service.ErrWebhookLogExists so the
// caller can re-read the winner's response.
func (r *WebhookRepository) InsertLog(ctx context.Context, tx database.TxQuerier, log *model.WebhookLog) error {
	query := `INSERT INTO webhook_logs (idempotency_key, response_body, response_status_code)
		VALUES ($1, $2, $3)`

	_, err := tx.Exec(ctx, query, log.IdempotencyKey, log.ResponseBody, log.ResponseStatusCode)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return service.ErrWebhookLogExists
		}
		return fmt.Errorf("insert webhook log: %w", err)
	}
	return nil
}

// InsertPending records a payment result that arrived before its order was
// created. The unique constraint on hold_id admits at most one stashed
// result per hold; a violation is returned as service.ErrWebhookConflict.
func (r *WebhookRepository) InsertPending(ctx context.Context, tx database.TxQuerier, pending *model.PendingWebhook) error {
	query := `INSERT INTO pending_webhooks (id, hold_id, status) VALUES ($1, $2, $3)`

	_, err := tx.Exec(ctx, query, pending.ID, pending.HoldID, pending.Status)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return service.ErrWebhookConflict
		}
		return fmt.Errorf("insert pending webhook: %w", err)
	}
	return nil
}

// GetPendingByHoldID retrieves the stashed payment result for a hold, if any.
// Returns nil, nil when nothing is stashed.
func (r *WebhookRepository) GetPendingByHoldID(ctx context.Context, holdID uuid.UUID) (*model.PendingWebhook, error) {
	query := `SELECT id, hold_id, status, created_at FROM pending_webhooks WHERE hold_id = $1`

	var pending model.PendingWebhook
	err := r.pool.QueryRow(ctx, query, holdID).
		Scan(&pending.ID, &pending.HoldID, &pending.Status, &pending.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Nothing stashed - let service handle
		}
		return nil, fmt.Errorf("get pending webhook: %w", err)
	}
	return &pending, nil
}

// ConsumePendingByHoldID deletes the stashed payment result for a hold and
// returns its status in the same statement. Reading via RETURNING means the
// status can never be observed after another transaction consumed the row.
func (r *WebhookRepository) ConsumePendingByHoldID(ctx context.Context, tx database.TxQuerier, holdID uuid.UUID) (string, bool, error) {
	query := `DELETE FROM pending_webhooks WHERE hold_id = $1 RETURNING status`

	var status string
	err := tx.QueryRow(ctx, query, holdID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("consume pending webhook: %w", err)
	}
	return status, true, nil
}

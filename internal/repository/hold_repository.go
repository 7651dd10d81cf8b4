package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/flash-sale-checkout/internal/model"
	"github.com/fairyhunter13/flash-sale-checkout/internal/service"
	"github.com/fairyhunter13/flash-sale-checkout/pkg/database"
)

// QueryPoolInterface defines the pool operations needed by HoldRepository.
type QueryPoolInterface interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// HoldRepository provides data access for holds using pgx.
type HoldRepository struct {
	pool QueryPoolInterface
}

// NewHoldRepository creates a new HoldRepository with the given pool.
func NewHoldRepository(pool *pgxpool.Pool) *HoldRepository {
	return &HoldRepository{pool: pool}
}

// NewHoldRepositoryWithPool creates a new HoldRepository with a custom pool
// interface. This is primarily used for testing.
func NewHoldRepositoryWithPool(pool QueryPoolInterface) *HoldRepository {
	return &HoldRepository{pool: pool}
}

const holdColumns = `id, product_id, qty, status, expires_at, created_at, updated_at`

// Insert inserts a new hold within a transaction.
func (r *HoldRepository) Insert(ctx context.Context, tx database.TxQuerier, hold *model.Hold) error {
	query := `INSERT INTO holds (id, product_id, qty, status, expires_at) VALUES ($1, $2, $3, $4, $5)`

	_, err := tx.Exec(ctx, query, hold.ID, hold.ProductID, hold.Qty, hold.Status, hold.ExpiresAt)
	if err != nil {
		return fmt.Errorf("insert hold: %w", err)
	}
	return nil
}

// GetForUpdate retrieves a hold with a row lock (SELECT FOR UPDATE),
// regardless of its status. Returns service.ErrHoldNotFound if the hold
// doesn't exist.
func (r *HoldRepository) GetForUpdate(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (*model.Hold, error) {
	query := `SELECT ` + holdColumns + ` FROM holds WHERE id = $1 FOR UPDATE`
	return scanHoldRow(tx.QueryRow(ctx, query, id), id)
}

// GetPendingForUpdate retrieves a hold with a row lock, filtered to
// status = pending. A hold that exists but is completed or expired is
// reported as service.ErrHoldNotFound, exactly like a missing one.
func (r *HoldRepository) GetPendingForUpdate(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (*model.Hold, error) {
	query := `SELECT ` + holdColumns + ` FROM holds WHERE id = $1 AND status = $2 FOR UPDATE`
	return scanHoldRow(tx.QueryRow(ctx, query, id, model.HoldStatusPending), id)
}

func scanHoldRow(row pgx.Row, id uuid.UUID) (*model.Hold, error) {
	var hold model.Hold
	err := row.Scan(
		&hold.ID,
		&hold.ProductID,
		&hold.Qty,
		&hold.Status,
		&hold.ExpiresAt,
		&hold.CreatedAt,
		&hold.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrHoldNotFound
		}
		return nil, fmt.Errorf("get hold for update %s: %w", id, err)
	}
	return &hold, nil
}

// UpdateStatus moves a hold to the given status. Must be called within a
// transaction after locking the row.
func (r *HoldRepository) UpdateStatus(ctx context.Context, tx database.TxQuerier, id uuid.UUID, status model.HoldStatus) error {
	query := `UPDATE holds SET status = $2, updated_at = NOW() WHERE id = $1`

	_, err := tx.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("update hold %s status to %s: %w", id, status, err)
	}
	return nil
}

// ListExpiredPending returns the ids of pending holds whose expires_at has
// passed, oldest first. The sweeper re-locks and re-checks each hold in its
// own transaction, so this read takes no locks.
func (r *HoldRepository) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	query := `SELECT id FROM holds WHERE status = $1 AND expires_at <= $2 ORDER BY expires_at LIMIT $3`

	rows, err := r.pool.Query(ctx, query, model.HoldStatusPending, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list expired holds: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan expired hold id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expired hold rows: %w", err)
	}

	return ids, nil
}

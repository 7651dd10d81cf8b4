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

// OrderRepository provides data access for orders using pgx.
type OrderRepository struct {
	pool PoolInterface
}

// NewOrderRepository creates a new OrderRepository with the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// NewOrderRepositoryWithPool creates a new OrderRepository with a custom pool
// interface. This is primarily used for testing.
func NewOrderRepositoryWithPool(pool PoolInterface) *OrderRepository {
	return &OrderRepository{pool: pool}
}

const orderColumns = `id, hold_id, status, total_amount, created_at, updated_at`

// Insert inserts a new order within a transaction and reads back its
// database-assigned timestamps. The unique constraint on hold_id enforces
// at most one order per hold; a violation is returned as
// service.ErrOrderExists.
func (r *OrderRepository) Insert(ctx context.Context, tx database.TxQuerier, order *model.Order) error {
	query := `INSERT INTO orders (id, hold_id, status, total_amount) VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`

	err := tx.QueryRow(ctx, query, order.ID, order.HoldID, order.Status, order.TotalAmount).
		Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return service.ErrOrderExists
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// GetByID retrieves an order by its id.
// Returns nil, nil if the order is not found (service layer handles this).
func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	return scanOrderRow(r.pool.QueryRow(ctx, query, id))
}

// GetByHoldID retrieves the order belonging to a hold, if any, within a
// transaction. Returns nil, nil if no order references the hold.
func (r *OrderRepository) GetByHoldID(ctx context.Context, tx database.TxQuerier, holdID uuid.UUID) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE hold_id = $1`
	return scanOrderRow(tx.QueryRow(ctx, query, holdID))
}

func scanOrderRow(row pgx.Row) (*model.Order, error) {
	var order model.Order
	err := row.Scan(
		&order.ID,
		&order.HoldID,
		&order.Status,
		&order.TotalAmount,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found - let service handle
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return &order, nil
}

// UpdateStatus overwrites the order's status. Must be called within a
// transaction that holds the order's hold row lock, which serializes
// webhook handling and reconciliation for the same hold.
func (r *OrderRepository) UpdateStatus(ctx context.Context, tx database.TxQuerier, id uuid.UUID, status model.OrderStatus) error {
	query := `UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1`

	_, err := tx.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("update order %s status to %s: %w", id, status, err)
	}
	return nil
}

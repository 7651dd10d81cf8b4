package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/flash-sale-checkout/internal/model"
	"github.com/fairyhunter13/flash-sale-checkout/internal/service"
	"github.com/fairyhunter13/flash-sale-checkout/pkg/database"
)

// PoolInterface defines the database operations needed by repositories.
// This allows for easier testing with mocks.
type PoolInterface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ProductRepository provides data access for products using pgx.
type ProductRepository struct {
	pool PoolInterface
}

// NewProductRepository creates a new ProductRepository with the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// NewProductRepositoryWithPool creates a new ProductRepository with a custom
// pool interface. This is primarily used for testing.
func NewProductRepositoryWithPool(pool PoolInterface) *ProductRepository {
	return &ProductRepository{pool: pool}
}

const productColumns = `id, name, total_stock, price, created_at, updated_at`

// GetByID retrieves a product by its id.
// Returns nil, nil if the product is not found (service layer handles this).
func (r *ProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	var product model.Product
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&product.ID,
		&product.Name,
		&product.TotalStock,
		&product.Price,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found - let service handle
		}
		return nil, fmt.Errorf("get product %s: %w", id, err)
	}
	return &product, nil
}

// GetForUpdate retrieves a product with a row lock (SELECT FOR UPDATE).
// The lock serializes every transaction that intends to mutate this
// product's stock. Returns service.ErrProductNotFound if the product
// doesn't exist.
func (r *ProductRepository) GetForUpdate(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (*model.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 FOR UPDATE`

	var product model.Product
	err := tx.QueryRow(ctx, query, id).Scan(
		&product.ID,
		&product.Name,
		&product.TotalStock,
		&product.Price,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product for update %s: %w", id, err)
	}
	return &product, nil
}

// AdjustStock adds delta to the product's total stock. Negative delta
// reserves stock, positive delta restores it. Must be called within a
// transaction after locking the row.
func (r *ProductRepository) AdjustStock(ctx context.Context, tx database.TxQuerier, id uuid.UUID, delta int) error {
	query := `UPDATE products SET total_stock = total_stock + $2, updated_at = NOW() WHERE id = $1`

	_, err := tx.Exec(ctx, query, id, delta)
	if err != nil {
		return fmt.Errorf("adjust stock for %s by %d: %w", id, delta, err)
	}
	return nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/flash-sale-checkout/internal/model"
	"github.com/fairyhunter13/flash-sale-checkout/pkg/database"
)

// HoldRepositoryInterface defines the interface for hold data access.
type HoldRepositoryInterface interface {
	Insert(ctx context.Context, tx database.TxQuerier, hold *model.Hold) error
	GetForUpdate(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (*model.Hold, error)
	GetPendingForUpdate(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (*model.Hold, error)
	UpdateStatus(ctx context.Context, tx database.TxQuerier, id uuid.UUID, status model.HoldStatus) error
	ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
}

// TxBeginner defines the interface for beginning transactions.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// HoldService reserves stock for checkout.
type HoldService struct {
	pool        TxBeginner
	productRepo ProductRepositoryInterface
	holdRepo    HoldRepositoryInterface
	cache       ProductCacheInterface
	clock       clock.Clock
	holdTTL     time.Duration
}

// NewHoldService creates a new HoldService with the given pool and repositories.
func NewHoldService(pool *pgxpool.Pool, productRepo ProductRepositoryInterface, holdRepo HoldRepositoryInterface, cache ProductCacheInterface, clk clock.Clock, holdTTL time.Duration) *HoldService {
	return &HoldService{
		pool:        pool,
		productRepo: productRepo,
		holdRepo:    holdRepo,
		cache:       cache,
		clock:       clk,
		holdTTL:     holdTTL,
	}
}

// NewHoldServiceWithTxBeginner creates a HoldService with a custom TxBeginner.
// Primarily used for testing.
func NewHoldServiceWithTxBeginner(pool TxBeginner, productRepo ProductRepositoryInterface, holdRepo HoldRepositoryInterface, cache ProductCacheInterface, clk clock.Clock, holdTTL time.Duration) *HoldService {
	return &HoldService{
		pool:        pool,
		productRepo: productRepo,
		holdRepo:    holdRepo,
		cache:       cache,
		clock:       clk,
		holdTTL:     holdTTL,
	}
}

// CreateHold atomically reserves qty units of a product.
// Uses SELECT FOR UPDATE to lock the product row during the transaction, so
// concurrent holds serialize and stock can never go negative.
// Returns:
//   - ErrProductNotFound if the product doesn't exist
//   - ErrInsufficientStock if fewer than qty units remain
//   - ErrInvalidQty if qty is not positive
func (s *HoldService) CreateHold(ctx context.Context, req *model.CreateHoldRequest) (*model.HoldResponse, error) {
	// Defense-in-depth: check for nil pointer even though handler validates
	if req == nil || req.Qty == nil {
		return nil, ErrInvalidRequest
	}
	qty := *req.Qty
	if qty <= 0 {
		return nil, ErrInvalidQty
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return nil, ErrProductNotFound
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }() // Safe: no-op if committed

	// 1. Lock the product row (SELECT FOR UPDATE)
	product, err := s.productRepo.GetForUpdate(ctx, tx, productID)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("get product for update: %w", err)
	}

	// 2. Check stock under the lock
	if product.TotalStock < qty {
		return nil, ErrInsufficientStock
	}

	// 3. Insert the pending hold with its expiry
	hold := &model.Hold{
		ID:        uuid.New(),
		ProductID: productID,
		Qty:       qty,
		Status:    model.HoldStatusPending,
		ExpiresAt: s.clock.Now().UTC().Add(s.holdTTL),
	}
	if err := s.holdRepo.Insert(ctx, tx, hold); err != nil {
		return nil, fmt.Errorf("insert hold: %w", err)
	}

	// 4. Decrement stock
	if err := s.productRepo.AdjustStock(ctx, tx, productID, -qty); err != nil {
		return nil, fmt.Errorf("decrement stock: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	invalidateProduct(ctx, s.cache, productID)

	return &model.HoldResponse{HoldID: hold.ID, ExpiresAt: hold.ExpiresAt}, nil
}

// invalidateProduct drops the cached product after a committed stock change.
// Failures are logged and swallowed; the cache self-heals via TTL.
func invalidateProduct(ctx context.Context, cache ProductCacheInterface, productID uuid.UUID) {
	if err := cache.Invalidate(ctx, productID); err != nil {
		log.Warn().
			Err(err).
			Str("product_id", productID.String()).
			Msg("Product cache invalidation failed")
	}
}

package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/flash-sale-checkout/internal/model"
)

// ReconcileService joins parked payment results with freshly created orders.
// It runs after every order commit and no-ops unless an early webhook parked
// a result for the order's hold.
type ReconcileService struct {
	pool        TxBeginner
	holdRepo    HoldRepositoryInterface
	orderRepo   OrderRepositoryInterface
	productRepo ProductRepositoryInterface
	webhookRepo WebhookRepositoryInterface
	cache       ProductCacheInterface
}

// NewReconcileService creates a new ReconcileService with the given pool and repositories.
func NewReconcileService(pool *pgxpool.Pool, holdRepo HoldRepositoryInterface, orderRepo OrderRepositoryInterface, productRepo ProductRepositoryInterface, webhookRepo WebhookRepositoryInterface, cache ProductCacheInterface) *ReconcileService {
	return &ReconcileService{
		pool:        pool,
		holdRepo:    holdRepo,
		orderRepo:   orderRepo,
		productRepo: productRepo,
		webhookRepo: webhookRepo,
		cache:       cache,
	}
}

// NewReconcileServiceWithTxBeginner creates a ReconcileService with a custom TxBeginner.
// Primarily used for testing.
func NewReconcileServiceWithTxBeginner(pool TxBeginner, holdRepo HoldRepositoryInterface, orderRepo OrderRepositoryInterface, productRepo ProductRepositoryInterface, webhookRepo WebhookRepositoryInterface, cache ProductCacheInterface) *ReconcileService {
	return &ReconcileService{
		pool:        pool,
		holdRepo:    holdRepo,
		orderRepo:   orderRepo,
		productRepo: productRepo,
		webhookRepo: webhookRepo,
		cache:       cache,
	}
}

// Reconcile applies any parked payment result to the given order. It is
// idempotent: the parked row is consumed by the same statement that reads
// it, so concurrent or repeated runs apply the result at most once.
func (s *ReconcileService) Reconcile(ctx context.Context, orderID uuid.UUID) error {
	// 1. Load the order; a missing order means nothing to repair
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil
	}

	// 2. Cheap pre-check outside the transaction. Parked results are only
	// written before the order exists, so a miss here is final.
	pending, err := s.webhookRepo.GetPendingByHoldID(ctx, order.HoldID)
	if err != nil {
		return fmt.Errorf("get pending webhook: %w", err)
	}
	if pending == nil {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }() // Safe: no-op if committed

	// 3. Lock the hold row; serializes with webhook handling for this hold
	hold, err := s.holdRepo.GetForUpdate(ctx, tx, order.HoldID)
	if err != nil {
		if errors.Is(err, ErrHoldNotFound) {
			return fmt.Errorf("order %s references missing hold %s", order.ID, order.HoldID)
		}
		return fmt.Errorf("get hold for update: %w", err)
	}

	// 4. Consume the parked result. DELETE ... RETURNING reads the status
	// and removes the row in one atomic statement.
	status, found, err := s.webhookRepo.ConsumePendingByHoldID(ctx, tx, order.HoldID)
	if err != nil {
		return fmt.Errorf("consume pending webhook: %w", err)
	}
	if !found {
		// A concurrent run already consumed it.
		return nil
	}

	// 5. Apply it to the order
	if err := s.orderRepo.UpdateStatus(ctx, tx, order.ID, model.OrderStatus(status)); err != nil {
		return fmt.Errorf("update order status: %w", err)
	}

	// 6. A failed payment releases the held stock
	invalidate := uuid.Nil
	if status == model.PaymentStatusFailed {
		if _, err := s.productRepo.GetForUpdate(ctx, tx, hold.ProductID); err != nil {
			return fmt.Errorf("get product for update: %w", err)
		}
		if err := s.productRepo.AdjustStock(ctx, tx, hold.ProductID, hold.Qty); err != nil {
			return fmt.Errorf("restore stock: %w", err)
		}
		invalidate = hold.ProductID
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	if invalidate != uuid.Nil {
		invalidateProduct(ctx, s.cache, invalidate)
	}
	return nil
}

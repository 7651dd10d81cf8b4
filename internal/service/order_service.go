package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/flash-sale-checkout/internal/model"
	"github.com/fairyhunter13/flash-sale-checkout/pkg/database"
)

// OrderRepositoryInterface defines the interface for order data access.
type OrderRepositoryInterface interface {
	Insert(ctx context.Context, tx database.TxQuerier, order *model.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	GetByHoldID(ctx context.Context, tx database.TxQuerier, holdID uuid.UUID) (*model.Order, error)
	UpdateStatus(ctx context.Context, tx database.TxQuerier, id uuid.UUID, status model.OrderStatus) error
}

// ReconcileDispatcher hands a committed order to the reconciliation worker.
// Dispatch must not block the request path.
type ReconcileDispatcher interface {
	Dispatch(orderID uuid.UUID)
}

// OrderService turns pending holds into orders.
type OrderService struct {
	pool        TxBeginner
	holdRepo    HoldRepositoryInterface
	productRepo ProductRepositoryInterface
	orderRepo   OrderRepositoryInterface
	dispatcher  ReconcileDispatcher
}

// NewOrderService creates a new OrderService with the given pool and repositories.
func NewOrderService(pool *pgxpool.Pool, holdRepo HoldRepositoryInterface, productRepo ProductRepositoryInterface, orderRepo OrderRepositoryInterface, dispatcher ReconcileDispatcher) *OrderService {
	return &OrderService{
		pool:        pool,
		holdRepo:    holdRepo,
		productRepo: productRepo,
		orderRepo:   orderRepo,
		dispatcher:  dispatcher,
	}
}

// NewOrderServiceWithTxBeginner creates an OrderService with a custom TxBeginner.
// Primarily used for testing.
func NewOrderServiceWithTxBeginner(pool TxBeginner, holdRepo HoldRepositoryInterface, productRepo ProductRepositoryInterface, orderRepo OrderRepositoryInterface, dispatcher ReconcileDispatcher) *OrderService {
	return &OrderService{
		pool:        pool,
		holdRepo:    holdRepo,
		productRepo: productRepo,
		orderRepo:   orderRepo,
		dispatcher:  dispatcher,
	}
}

// CreateOrder atomically creates the single order for a pending hold and
// marks the hold completed. The hold row lock with the pending filter plus
// the unique constraint on orders.hold_id give at-most-one order per hold
// under concurrent attempts.
// Returns:
//   - ErrHoldInvalid if the hold is missing, expired, or already completed
//   - ErrOrderExists if a concurrent order won the unique constraint
func (s *OrderService) CreateOrder(ctx context.Context, req *model.CreateOrderRequest) (*model.Order, error) {
	// Defense-in-depth: check for nil pointer even though handler validates
	if req == nil {
		return nil, ErrInvalidRequest
	}
	holdID, err := uuid.Parse(req.HoldID)
	if err != nil {
		return nil, ErrHoldInvalid
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }() // Safe: no-op if committed

	// 1. Lock the hold row, pending only (SELECT FOR UPDATE)
	hold, err := s.holdRepo.GetPendingForUpdate(ctx, tx, holdID)
	if err != nil {
		if errors.Is(err, ErrHoldNotFound) {
			return nil, ErrHoldInvalid
		}
		return nil, fmt.Errorf("get hold for update: %w", err)
	}

	// 2. Lock the product to price the order at this moment
	product, err := s.productRepo.GetForUpdate(ctx, tx, hold.ProductID)
	if err != nil {
		return nil, fmt.Errorf("get product for update: %w", err)
	}

	// 3. Insert the order (UNIQUE on hold_id catches concurrent duplicates)
	order := &model.Order{
		ID:          uuid.New(),
		HoldID:      holdID,
		Status:      model.OrderStatusPending,
		TotalAmount: product.Price.Mul(decimal.NewFromInt(int64(hold.Qty))).Round(2),
	}
	if err := s.orderRepo.Insert(ctx, tx, order); err != nil {
		if errors.Is(err, ErrOrderExists) {
			return nil, ErrOrderExists
		}
		return nil, fmt.Errorf("insert order: %w", err)
	}

	// 4. Complete the hold
	if err := s.holdRepo.UpdateStatus(ctx, tx, holdID, model.HoldStatusCompleted); err != nil {
		return nil, fmt.Errorf("complete hold: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	// Dispatch only after the commit so reconciliation never sees an
	// uncommitted order.
	s.dispatcher.Dispatch(order.ID)

	return order, nil
}

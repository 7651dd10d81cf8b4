package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/fairyhunter13/flash-sale-checkout/internal/model"
	"github.com/fairyhunter13/flash-sale-checkout/pkg/database"
)

// mockProductRepository is a mock implementation of ProductRepositoryInterface.
type mockProductRepository struct {
	getByIDFn      func(ctx context.Context, id uuid.UUID) (*model.Product, error)
	getForUpdateFn func(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (*model.Product, error)
	adjustStockFn  func(ctx context.Context, tx database.TxQuerier, id uuid.UUID, delta int) error
}

func (m *mockProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockProductRepository) GetForUpdate(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (*model.Product, error) {
	if m.getForUpdateFn != nil {
		return m.getForUpdateFn(ctx, tx, id)
	}
	return nil, ErrProductNotFound
}

func (m *mockProductRepository) AdjustStock(ctx context.Context, tx database.TxQuerier, id uuid.UUID, delta int) error {
	if m.adjustStockFn != nil {
		return m.adjustStockFn(ctx, tx, id, delta)
	}
	return nil
}

// mockHoldRepository is a mock implementation of HoldRepositoryInterface.
type mockHoldRepository struct {
	insertFn              func(ctx context.Context, tx database.TxQuerier, hold *model.Hold) error
	getForUpdateFn        func(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (*model.Hold, error)
	getPendingForUpdateFn func(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (*model.Hold, error)
	updateStatusFn        func(ctx context.Context, tx database.TxQuerier, id uuid.UUID, status model.HoldStatus) error
	listExpiredPendingFn  func(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
}

func (m *mockHoldRepository) Insert(ctx context.Context, tx database.TxQuerier, hold *model.Hold) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, tx, hold)
	}
	return nil
}

func (m *mockHoldRepository) GetForUpdate(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (*model.Hold, error) {
	if m.getForUpdateFn != nil {
		return m.getForUpdateFn(ctx, tx, id)
	}
	return nil, ErrHoldNotFound
}

func (m *mockHoldRepository) GetPendingForUpdate(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (*model.Hold, error) {
	if m.getPendingForUpdateFn != nil {
		return m.getPendingForUpdateFn(ctx, tx, id)
	}
	return nil, ErrHoldNotFound
}

func (m *mockHoldRepository) UpdateStatus(ctx context.Context, tx database.TxQuerier, id uuid.UUID, status model.HoldStatus) error {
	if m.updateStatusFn != nil {
		return m.updateStatusFn(ctx, tx, id, status)
	}
	return nil
}

func (m *mockHoldRepository) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	if m.listExpiredPendingFn != nil {
		return m.listExpiredPendingFn(ctx, now, limit)
	}
	return nil, nil
}

// mockOrderRepository is a mock implementation of OrderRepositoryInterface.
type mockOrderRepository struct {
	insertFn       func(ctx context.Context, tx database.TxQuerier, order *model.Order) error
	getByIDFn      func(ctx context.Context, id uuid.UUID) (*model.Order, error)
	getByHoldIDFn  func(ctx context.Context, tx database.TxQuerier, holdID uuid.UUID) (*model.Order, error)
	updateStatusFn func(ctx context.Context, tx database.TxQuerier, id uuid.UUID, status model.OrderStatus) error
}

func (m *mockOrderRepository) Insert(ctx context.Context, tx database.TxQuerier, order *model.Order) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, tx, order)
	}
	return nil
}

func (m *mockOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockOrderRepository) GetByHoldID(ctx context.Context, tx database.TxQuerier, holdID uuid.UUID) (*model.Order, error) {
	if m.getByHoldIDFn != nil {
		return m.getByHoldIDFn(ctx, tx, holdID)
	}
	return nil, nil
}

func (m *mockOrderRepository) UpdateStatus(ctx context.Context, tx database.TxQuerier, id uuid.UUID, status model.OrderStatus) error {
	if m.updateStatusFn != nil {
		return m.updateStatusFn(ctx, tx, id, status)
	}
	return nil
}

// mockWebhookRepository is a mock implementation of WebhookRepositoryInterface.
type mockWebhookRepository struct {
	getLogFn             func(ctx context.Context, idempotencyKey string) (*model.WebhookLog, error)
	insertLogFn          func(ctx context.Context, tx database.TxQuerier, log *model.WebhookLog) error
	insertPendingFn      func(ctx context.Context, tx database.TxQuerier, pending *model.PendingWebhook) error
	getPendingByHoldIDFn func(ctx context.Context, holdID uuid.UUID) (*model.PendingWebhook, error)
	consumePendingFn     func(ctx context.Context, tx database.TxQuerier, holdID uuid.UUID) (string, bool, error)
}

func (m *mockWebhookRepository) GetLog(ctx context.Context, idempotencyKey string) (*model.WebhookLog, error) {
	if m.getLogFn != nil {
		return m.getLogFn(ctx, idempotencyKey)
	}
	return nil, nil
}

func (m *mockWebhookRepository) InsertLog(ctx context.Context, tx database.TxQuerier, log *model.WebhookLog) error {
	if m.insertLogFn != nil {
		return m.insertLogFn(ctx, tx, log)
	}
	return nil
}

func (m *mockWebhookRepository) InsertPending(ctx context.Context, tx database.TxQuerier, pending *model.PendingWebhook) error {
	if m.insertPendingFn != nil {
		return m.insertPendingFn(ctx, tx, pending)
	}
	return nil
}

func (m *mockWebhookRepository) GetPendingByHoldID(ctx context.Context, holdID uuid.UUID) (*model.PendingWebhook, error) {
	if m.getPendingByHoldIDFn != nil {
		return m.getPendingByHoldIDFn(ctx, holdID)
	}
	return nil, nil
}

func (m *mockWebhookRepository) ConsumePendingByHoldID(ctx context.Context, tx database.TxQuerier, holdID uuid.UUID) (string, bool, error) {
	if m.consumePendingFn != nil {
		return m.consumePendingFn(ctx, tx, holdID)
	}
	return "", false, nil
}

// mockProductCache is a mock implementation of ProductCacheInterface.
type mockProductCache struct {
	getFn        func(ctx context.Context, productID uuid.UUID) (*model.Product, bool)
	setFn        func(ctx context.Context, product *model.Product)
	invalidateFn func(ctx context.Context, productID uuid.UUID) error
}

func (m *mockProductCache) Get(ctx context.Context, productID uuid.UUID) (*model.Product, bool) {
	if m.getFn != nil {
		return m.getFn(ctx, productID)
	}
	return nil, false
}

func (m *mockProductCache) Set(ctx context.Context, product *model.Product) {
	if m.setFn != nil {
		m.setFn(ctx, product)
	}
}

func (m *mockProductCache) Invalidate(ctx context.Context, productID uuid.UUID) error {
	if m.invalidateFn != nil {
		return m.invalidateFn(ctx, productID)
	}
	return nil
}

// mockDispatcher is a mock implementation of ReconcileDispatcher.
type mockDispatcher struct {
	dispatchFn func(orderID uuid.UUID)
}

func (m *mockDispatcher) Dispatch(orderID uuid.UUID) {
	if m.dispatchFn != nil {
		m.dispatchFn(orderID)
	}
}

// mockTx is a mock implementation of pgx.Tx for testing transactions.
type mockTx struct {
	commitFn   func(ctx context.Context) error
	rollbackFn func(ctx context.Context) error
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) {
	return nil, errors.New("nested transactions not supported")
}

func (m *mockTx) Commit(ctx context.Context) error {
	if m.commitFn != nil {
		return m.commitFn(ctx)
	}
	return nil
}

func (m *mockTx) Rollback(ctx context.Context) error {
	if m.rollbackFn != nil {
		return m.rollbackFn(ctx)
	}
	return nil
}

func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}

func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	return nil
}

func (m *mockTx) LargeObjects() pgx.LargeObjects {
	return pgx.LargeObjects{}
}

func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}

func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}

func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}

func (m *mockTx) Conn() *pgx.Conn {
	return nil
}

// mockTxBeginner is a mock implementation of TxBeginner.
type mockTxBeginner struct {
	beginFn func(ctx context.Context) (pgx.Tx, error)
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	if m.beginFn != nil {
		return m.beginFn(ctx)
	}
	return &mockTx{}, nil
}

func intPtr(i int) *int {
	return &i
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/flash-sale-checkout/internal/model"
	"github.com/fairyhunter13/flash-sale-checkout/pkg/database"
)

// WebhookRepositoryInterface defines the interface for webhook log and
// pending-webhook data access.
type WebhookRepositoryInterface interface {
	GetLog(ctx context.Context, idempotencyKey string) (*model.WebhookLog, error)
	InsertLog(ctx context.Context, tx database.TxQuerier, log *model.WebhookLog) error
	InsertPending(ctx context.Context, tx database.TxQuerier, pending *model.PendingWebhook) error
	GetPendingByHoldID(ctx context.Context, holdID uuid.UUID) (*model.PendingWebhook, error)
	ConsumePendingByHoldID(ctx context.Context, tx database.TxQuerier, holdID uuid.UUID) (string, bool, error)
}

// WebhookService processes payment-result webhooks idempotently. Every
// delivery outcome, including the 404 for an unknown hold, is sealed in
// webhook_logs inside the same transaction as its side effects, so retries
// with the same idempotency key replay the stored response without
// re-applying anything.
type WebhookService struct {
	pool        TxBeginner
	holdRepo    HoldRepositoryInterface
	orderRepo   OrderRepositoryInterface
	productRepo ProductRepositoryInterface
	webhookRepo WebhookRepositoryInterface
	cache       ProductCacheInterface
}

// NewWebhookService creates a new WebhookService with the given pool and repositories.
func NewWebhookService(pool *pgxpool.Pool, holdRepo HoldRepositoryInterface, orderRepo OrderRepositoryInterface, productRepo ProductRepositoryInterface, webhookRepo WebhookRepositoryInterface, cache ProductCacheInterface) *WebhookService {
	return &WebhookService{
		pool:        pool,
		holdRepo:    holdRepo,
		orderRepo:   orderRepo,
		productRepo: productRepo,
		webhookRepo: webhookRepo,
		cache:       cache,
	}
}

// NewWebhookServiceWithTxBeginner creates a WebhookService with a custom TxBeginner.
// Primarily used for testing.
func NewWebhookServiceWithTxBeginner(pool TxBeginner, holdRepo HoldRepositoryInterface, orderRepo OrderRepositoryInterface, productRepo ProductRepositoryInterface, webhookRepo WebhookRepositoryInterface, cache ProductCacheInterface) *WebhookService {
	return &WebhookService{
		pool:        pool,
		holdRepo:    holdRepo,
		orderRepo:   orderRepo,
		productRepo: productRepo,
		webhookRepo: webhookRepo,
		cache:       cache,
	}
}

// HandleWebhook applies a payment result to the checkout state machine.
// The receipt carries the exact body bytes and status code to return.
// Returns:
//   - ErrWebhookConflict if a second early webhook with a new key hits a
//     hold whose result is already parked (nothing is sealed)
//   - ErrInvalidRequest on a nil or unparseable request
//
// Infrastructure failures abort the transaction, so no response is ever
// sealed for a delivery whose side effects did not commit.
func (s *WebhookService) HandleWebhook(ctx context.Context, req *model.WebhookRequest) (*model.WebhookReceipt, error) {
	// Defense-in-depth: check for nil pointer even though handler validates
	if req == nil {
		return nil, ErrInvalidRequest
	}
	holdID, err := uuid.Parse(req.Data.HoldID)
	if err != nil {
		return nil, ErrInvalidRequest
	}

	// 1. Replay the sealed response when this key was already processed
	receipt, err := s.sealed(ctx, req.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	if receipt != nil {
		return receipt, nil
	}

	receipt, err = s.process(ctx, req.IdempotencyKey, holdID, req.Data.Status)
	if err != nil {
		if errors.Is(err, ErrWebhookLogExists) {
			// Lost a same-key race. This delivery's transaction rolled back
			// with all its side effects; replay the winner's sealed response.
			winner, serr := s.sealed(ctx, req.IdempotencyKey)
			if serr != nil {
				return nil, serr
			}
			if winner == nil {
				return nil, fmt.Errorf("sealed response missing after unique violation on key %s", req.IdempotencyKey)
			}
			return winner, nil
		}
		return nil, err
	}
	return receipt, nil
}

// process runs the single transaction that applies the payment result and
// seals the response.
func (s *WebhookService) process(ctx context.Context, key string, holdID uuid.UUID, status string) (*model.WebhookReceipt, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }() // Safe: no-op if committed

	// 1. Lock the hold row, any status (SELECT FOR UPDATE)
	hold, err := s.holdRepo.GetForUpdate(ctx, tx, holdID)
	if err != nil && !errors.Is(err, ErrHoldNotFound) {
		return nil, fmt.Errorf("get hold for update: %w", err)
	}

	var receipt *model.WebhookReceipt
	invalidate := uuid.Nil

	if hold == nil {
		// 2a. Unknown hold: the 404 is still sealed under the key
		receipt = notFoundReceipt()
	} else {
		// 2b. Apply to the order when it exists, else park the result
		order, err := s.orderRepo.GetByHoldID(ctx, tx, holdID)
		if err != nil {
			return nil, fmt.Errorf("get order by hold: %w", err)
		}
		if order != nil {
			if err := s.orderRepo.UpdateStatus(ctx, tx, order.ID, model.OrderStatus(status)); err != nil {
				return nil, fmt.Errorf("update order status: %w", err)
			}
		} else {
			pending := &model.PendingWebhook{ID: uuid.New(), HoldID: holdID, Status: status}
			if err := s.webhookRepo.InsertPending(ctx, tx, pending); err != nil {
				if errors.Is(err, ErrWebhookConflict) {
					// A different key already parked a result for this hold.
					// Abort so nothing is sealed for this delivery.
					return nil, ErrWebhookConflict
				}
				return nil, fmt.Errorf("insert pending webhook: %w", err)
			}
		}

		// 3. A failed payment releases the held stock
		if status == model.PaymentStatusFailed {
			if _, err := s.productRepo.GetForUpdate(ctx, tx, hold.ProductID); err != nil {
				return nil, fmt.Errorf("get product for update: %w", err)
			}
			if err := s.productRepo.AdjustStock(ctx, tx, hold.ProductID, hold.Qty); err != nil {
				return nil, fmt.Errorf("restore stock: %w", err)
			}
			invalidate = hold.ProductID
		}

		receipt, err = appliedReceipt(holdID, status)
		if err != nil {
			return nil, err
		}
	}

	// 4. Seal the response under the idempotency key, same transaction
	sealedLog := &model.WebhookLog{
		IdempotencyKey:     key,
		ResponseBody:       receipt.Body,
		ResponseStatusCode: receipt.StatusCode,
	}
	if err := s.webhookRepo.InsertLog(ctx, tx, sealedLog); err != nil {
		return nil, err // ErrWebhookLogExists is handled by the caller
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	if invalidate != uuid.Nil {
		invalidateProduct(ctx, s.cache, invalidate)
	}

	return receipt, nil
}

// sealed returns the response previously sealed under key, if any.
func (s *WebhookService) sealed(ctx context.Context, key string) (*model.WebhookReceipt, error) {
	sealedLog, err := s.webhookRepo.GetLog(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("get webhook log: %w", err)
	}
	if sealedLog == nil {
		return nil, nil
	}
	return &model.WebhookReceipt{
		Body:       sealedLog.ResponseBody,
		StatusCode: sealedLog.ResponseStatusCode,
	}, nil
}

func notFoundReceipt() *model.WebhookReceipt {
	return &model.WebhookReceipt{
		Body:       []byte(`{"msg":"Hold not found"}`),
		StatusCode: http.StatusNotFound,
	}
}

func appliedReceipt(holdID uuid.UUID, status string) (*model.WebhookReceipt, error) {
	body, err := json.Marshal(model.DataEnvelope{Data: model.WebhookData{
		HoldID: holdID.String(),
		Status: status,
	}})
	if err != nil {
		return nil, fmt.Errorf("marshal webhook response: %w", err)
	}
	return &model.WebhookReceipt{Body: body, StatusCode: http.StatusOK}, nil
}

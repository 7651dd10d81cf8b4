package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/flash-sale-checkout/internal/model"
)

// sweepLimit caps how many expired holds a single pass reclaims. Anything
// beyond the cap is picked up by the next pass.
const sweepLimit = 500

// SweepService reclaims stock from pending holds whose deadline passed.
type SweepService struct {
	pool        TxBeginner
	holdRepo    HoldRepositoryInterface
	productRepo ProductRepositoryInterface
	cache       ProductCacheInterface
	clock       clock.Clock
}

// NewSweepService creates a new SweepService with the given pool and repositories.
func NewSweepService(pool *pgxpool.Pool, holdRepo HoldRepositoryInterface, productRepo ProductRepositoryInterface, cache ProductCacheInterface, clk clock.Clock) *SweepService {
	return &SweepService{
		pool:        pool,
		holdRepo:    holdRepo,
		productRepo: productRepo,
		cache:       cache,
		clock:       clk,
	}
}

// NewSweepServiceWithTxBeginner creates a SweepService with a custom TxBeginner.
// Primarily used for testing.
func NewSweepServiceWithTxBeginner(pool TxBeginner, holdRepo HoldRepositoryInterface, productRepo ProductRepositoryInterface, cache ProductCacheInterface, clk clock.Clock) *SweepService {
	return &SweepService{
		pool:        pool,
		holdRepo:    holdRepo,
		productRepo: productRepo,
		cache:       cache,
		clock:       clk,
	}
}

// ExpireDue expires every pending hold whose deadline has passed and
// restores its stock. Each hold gets its own short transaction so one
// contended row cannot stall the whole pass. Returns the number of holds
// expired; a storage failure aborts the pass and the next one retries the
// remainder.
func (s *SweepService) ExpireDue(ctx context.Context) (int, error) {
	now := s.clock.Now().UTC()

	ids, err := s.holdRepo.ListExpiredPending(ctx, now, sweepLimit)
	if err != nil {
		return 0, fmt.Errorf("list expired holds: %w", err)
	}

	expired := 0
	for _, id := range ids {
		ok, err := s.expireOne(ctx, id, now)
		if err != nil {
			return expired, err
		}
		if ok {
			expired++
		}
	}
	return expired, nil
}

// expireOne expires a single hold. Returns false without error when the
// hold lost the race to an order or was already swept.
func (s *SweepService) expireOne(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }() // Safe: no-op if committed

	// 1. Re-lock with the pending filter; a concurrent order may have won
	hold, err := s.holdRepo.GetPendingForUpdate(ctx, tx, id)
	if err != nil {
		if errors.Is(err, ErrHoldNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("get hold for update: %w", err)
	}

	// 2. Re-check the deadline under the lock
	if hold.ExpiresAt.After(now) {
		return false, nil
	}

	// 3. Mark expired
	if err := s.holdRepo.UpdateStatus(ctx, tx, id, model.HoldStatusExpired); err != nil {
		return false, fmt.Errorf("expire hold: %w", err)
	}

	// 4. Restore stock under the product lock
	if _, err := s.productRepo.GetForUpdate(ctx, tx, hold.ProductID); err != nil {
		return false, fmt.Errorf("get product for update: %w", err)
	}
	if err := s.productRepo.AdjustStock(ctx, tx, hold.ProductID, hold.Qty); err != nil {
		return false, fmt.Errorf("restore stock: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit tx: %w", err)
	}

	invalidateProduct(ctx, s.cache, hold.ProductID)

	log.Info().
		Str("hold_id", id.String()).
		Str("product_id", hold.ProductID.String()).
		Int("qty", hold.Qty).
		Msg("Hold expired, stock restored")

	return true, nil
}

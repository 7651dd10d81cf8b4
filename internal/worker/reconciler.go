package worker

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ReconcileRunner runs one reconciliation pass for a committed order.
type ReconcileRunner interface {
	Reconcile(ctx context.Context, orderID uuid.UUID) error
}

// Reconciler drains a queue of freshly committed order ids and reconciles
// each one, retrying transient storage failures with exponential backoff.
// Reconciliation is idempotent, so at-least-once delivery is safe.
type Reconciler struct {
	runner  ReconcileRunner
	queue   chan uuid.UUID
	workers int
	group   *errgroup.Group
}

// NewReconciler creates a Reconciler with the given pool size and queue
// capacity. Call Start before dispatching.
func NewReconciler(runner ReconcileRunner, workers, queueSize int) *Reconciler {
	return &Reconciler{
		runner:  runner,
		queue:   make(chan uuid.UUID, queueSize),
		workers: workers,
	}
}

// Start launches the worker pool. The context bounds every reconciliation
// attempt; cancelling it abandons in-flight retries during shutdown.
func (r *Reconciler) Start(ctx context.Context) {
	group, gctx := errgroup.WithContext(ctx)
	r.group = group
	for i := 0; i < r.workers; i++ {
		group.Go(func() error {
			for orderID := range r.queue {
				r.reconcile(gctx, orderID)
			}
			return nil
		})
	}
}

// Dispatch hands an order to the pool without blocking the caller. When the
// queue is full the order is dropped with an error log; the parked payment
// result stays in storage for manual repair.
func (r *Reconciler) Dispatch(orderID uuid.UUID) {
	select {
	case r.queue <- orderID:
	default:
		log.Error().
			Str("order_id", orderID.String()).
			Msg("Reconcile queue full, dropping order")
	}
}

// Stop closes the queue and waits for the workers to drain it.
func (r *Reconciler) Stop() {
	close(r.queue)
	if r.group != nil {
		_ = r.group.Wait()
	}
}

func (r *Reconciler) reconcile(ctx context.Context, orderID uuid.UUID) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	bo.MaxInterval = 5 * time.Second
	bo.MaxElapsedTime = 30 * time.Second

	op := func() error {
		return r.runner.Reconcile(ctx, orderID)
	}
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		log.Error().
			Err(err).
			Str("order_id", orderID.String()).
			Msg("Reconciliation failed after retries")
	}
}

package model

import (
	"time"

	"github.com/google/uuid"
)

// HoldStatus is the lifecycle state of a stock reservation.
type HoldStatus string

const (
	// HoldStatusPending means the stock is reserved and waiting for an order.
	HoldStatusPending HoldStatus = "pending"
	// HoldStatusCompleted means an order has been created from the hold.
	HoldStatusCompleted HoldStatus = "completed"
	// HoldStatusExpired means the hold outlived its TTL and its stock was reclaimed.
	HoldStatusExpired HoldStatus = "expired"
)

// Hold is a time-limited reservation of Qty units of a product.
// A hold leaves "pending" exactly once: to "completed" (order created)
// or to "expired" (swept after ExpiresAt).
type Hold struct {
	ID        uuid.UUID
	ProductID uuid.UUID
	Qty       int
	Status    HoldStatus
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateHoldRequest is the DTO for POST /api/holds.
type CreateHoldRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Qty       *int   `json:"qty" validate:"required,gte=1"`
}

// HoldResponse is the API response DTO for a freshly created hold.
type HoldResponse struct {
	HoldID    uuid.UUID `json:"hold_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

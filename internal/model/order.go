package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order. Orders are created
// pending and move to paid or failed exactly once, driven by payment
// webhooks or by reconciliation of a parked webhook.
type OrderStatus string

const (
	OrderStatusPending OrderStatus = "pending"
	OrderStatusPaid    OrderStatus = "paid"
	OrderStatusFailed  OrderStatus = "failed"
)

// Order is the purchase created from a hold. TotalAmount captures
// price × qty at creation time, rounded to two decimal places.
type Order struct {
	ID          uuid.UUID       `json:"id"`
	HoldID      uuid.UUID       `json:"hold_id"`
	Status      OrderStatus     `json:"status"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// CreateOrderRequest is the DTO for POST /api/orders.
type CreateOrderRequest struct {
	HoldID string `json:"hold_id" validate:"required,uuid"`
}

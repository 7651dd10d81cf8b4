package model

import (
	"time"

	"github.com/google/uuid"
)

// Payment result statuses accepted on the webhook endpoint.
const (
	PaymentStatusPaid   = "paid"
	PaymentStatusFailed = "failed"
)

// WebhookLog is the sealed outcome of a webhook delivery, keyed by the
// client-provided idempotency key. Once a log row exists, every retry
// with the same key returns the stored response verbatim.
type WebhookLog struct {
	IdempotencyKey     string
	ResponseBody       []byte
	ResponseStatusCode int
}

// PendingWebhook parks a payment result that arrived before its order
// existed. At most one row per hold; consumed by reconciliation.
type PendingWebhook struct {
	ID        uuid.UUID
	HoldID    uuid.UUID
	Status    string
	CreatedAt time.Time
}

// WebhookRequest is the DTO for POST /api/payments/webhook.
type WebhookRequest struct {
	IdempotencyKey string      `json:"idempotency_key" validate:"required,notblank,max=255"`
	Data           WebhookData `json:"data"`
}

// WebhookData carries the payment result payload.
type WebhookData struct {
	HoldID string `json:"hold_id" validate:"required,uuid"`
	Status string `json:"status" validate:"required,oneof=paid failed"`
}

// WebhookReceipt is the response for a webhook delivery: the exact body
// bytes and status code sealed under the delivery's idempotency key.
type WebhookReceipt struct {
	Body       []byte
	StatusCode int
}

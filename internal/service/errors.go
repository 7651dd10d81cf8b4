package service

import "errors"

var (
	// ErrProductNotFound is returned when a product cannot be found
	ErrProductNotFound = errors.New("product does not exist")

	// ErrInsufficientStock is returned when a product has less stock than requested
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrInvalidQty is returned when the requested quantity is not a positive integer
	ErrInvalidQty = errors.New("qty must be a positive integer")

	// ErrInvalidRequest is returned when request data is invalid or incomplete
	ErrInvalidRequest = errors.New("invalid request")

	// ErrHoldInvalid is returned when a hold is missing, expired, or no longer pending
	ErrHoldInvalid = errors.New("hold invalid or expired")

	// ErrOrderExists is returned when an order already exists for a hold
	ErrOrderExists = errors.New("order already exists for this hold")

	// ErrHoldNotFound is returned by the webhook path when the hold does not exist
	ErrHoldNotFound = errors.New("hold not found")

	// ErrWebhookConflict is returned when a second early webhook with a new
	// idempotency key races an already-parked payment result for the same hold
	ErrWebhookConflict = errors.New("payment result already pending for this hold")

	// ErrWebhookLogExists is returned when sealing a webhook response loses a
	// same-key race; the caller replays the winner's sealed response
	ErrWebhookLogExists = errors.New("webhook log already sealed")
)

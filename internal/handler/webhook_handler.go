package handler

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/flash-sale-checkout/internal/model"
	"github.com/fairyhunter13/flash-sale-checkout/internal/service"
)

// WebhookServiceInterface defines the interface for payment webhook processing.
type WebhookServiceInterface interface {
	HandleWebhook(ctx context.Context, req *model.WebhookRequest) (*model.WebhookReceipt, error)
}

// WebhookHandler handles HTTP requests from the payment provider.
type WebhookHandler struct {
	service   WebhookServiceInterface
	validator *validator.Validate
}

// NewWebhookHandler creates a new WebhookHandler with the given service and validator.
func NewWebhookHandler(svc WebhookServiceInterface, v *validator.Validate) *WebhookHandler {
	return &WebhookHandler{service: svc, validator: v}
}

// HandleWebhook handles POST /api/payments/webhook requests.
// The response is written from the receipt's raw bytes so a replayed
// delivery gets back exactly what was sealed the first time.
func (h *WebhookHandler) HandleWebhook(c *fiber.Ctx) error {
	var req model.WebhookRequest

	// Parse JSON body
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	// Validate request
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(validationErrorResponse(err))
	}

	// Apply the payment result via service
	receipt, err := h.service.HandleWebhook(c.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrWebhookConflict) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "a payment result is already pending for this hold"})
		}
		if errors.Is(err, service.ErrInvalidRequest) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
		}
		log.Error().
			Err(err).
			Str("request_id", c.GetRespHeader("X-Request-ID")).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("idempotency_key", req.IdempotencyKey).
			Str("hold_id", req.Data.HoldID).
			Msg("failed to handle payment webhook")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	log.Info().
		Str("request_id", c.GetRespHeader("X-Request-ID")).
		Str("idempotency_key", req.IdempotencyKey).
		Str("hold_id", req.Data.HoldID).
		Str("status", req.Data.Status).
		Int("response_status", receipt.StatusCode).
		Msg("payment webhook handled")

	return c.Status(receipt.StatusCode).Type("json").Send(receipt.Body)
}
